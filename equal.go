package capnp

import "bytes"

// Equal reports whether p1 and p2 are equal, per spec.md §4.2 "Equality"
// and Testable property 3: two structs are equal iff all fields are
// equal (extra fields on the larger side must be zero); two lists are
// equal iff counts, item types, and raw body byte ranges match. Lists
// and structs have no ordering.
func Equal(p1, p2 Ptr) (bool, error) {
	if !p1.IsValid() && !p2.IsValid() {
		return true, nil
	}
	if !p1.IsValid() || !p2.IsValid() {
		return false, nil
	}
	if p1.kind != p2.kind {
		return false, nil
	}
	switch p1.kind {
	case ptrStruct:
		return structsEqual(p1.s, p2.s)
	case ptrList:
		return listsEqual(p1.l, p2.l)
	default:
		return false, nil
	}
}

func structsEqual(s1, s2 Struct) (bool, error) {
	d1, err := dataSectionBytes(s1)
	if err != nil {
		return false, err
	}
	d2, err := dataSectionBytes(s2)
	if err != nil {
		return false, err
	}
	if !equalPadded(d1, d2) {
		return false, nil
	}
	n := s1.size.PointerCount
	if s2.size.PointerCount < n {
		n = s2.size.PointerCount
	}
	for i := uint16(0); i < n; i++ {
		p1, err := s1.Ptr(i)
		if err != nil {
			return false, err
		}
		p2, err := s2.Ptr(i)
		if err != nil {
			return false, err
		}
		ok, err := Equal(p1, p2)
		if err != nil || !ok {
			return false, err
		}
	}
	if !extraPointersZero(s1, n, s1.size.PointerCount) {
		return false, nil
	}
	if !extraPointersZero(s2, n, s2.size.PointerCount) {
		return false, nil
	}
	return true, nil
}

func extraPointersZero(s Struct, from, to uint16) bool {
	for i := from; i < to; i++ {
		if s.HasPtr(i) {
			return false
		}
	}
	return true
}

func dataSectionBytes(s Struct) ([]byte, error) {
	return s.seg.slice(s.off, Size(s.size.DataWords)*wordSize)
}

// equalPadded compares two byte slices of possibly different lengths,
// treating the shorter as zero-padded to the longer's length.
func equalPadded(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if !bytes.Equal(a[:n], b[:n]) {
		return false
	}
	if len(a) > n && !isZeroFilled(a[n:]) {
		return false
	}
	if len(b) > n && !isZeroFilled(b[n:]) {
		return false
	}
	return true
}

func isZeroFilled(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func listsEqual(l1, l2 List) (bool, error) {
	if l1.length != l2.length {
		return false, nil
	}
	if l1.tag == sizeComposite || l2.tag == sizeComposite {
		return compositeLikeEqual(l1, l2)
	}
	if l1.tag != l2.tag {
		return false, nil
	}
	if l1.tag == sizePointer {
		for i := int32(0); i < l1.length; i++ {
			p1, err := l1.PtrAt(i)
			if err != nil {
				return false, err
			}
			p2, err := l2.PtrAt(i)
			if err != nil {
				return false, err
			}
			ok, err := Equal(p1, p2)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	end1, err := scalarListEnd(l1)
	if err != nil {
		return false, err
	}
	end2, err := scalarListEnd(l2)
	if err != nil {
		return false, err
	}
	b1, err := l1.seg.slice(l1.off, Size(end1-l1.off))
	if err != nil {
		return false, err
	}
	b2, err := l2.seg.slice(l2.off, Size(end2-l2.off))
	if err != nil {
		return false, err
	}
	return bytes.Equal(b1, b2), nil
}

// compositeLikeEqual compares a composite list element-by-element against
// a composite or pointer list. A scalar list compared against a composite
// list is not converted to one-field structs; it is reported as
// ErrTypeMismatch.
func compositeLikeEqual(l1, l2 List) (bool, error) {
	for i := int32(0); i < l1.length; i++ {
		p1, err := elementAsPtr(l1, i)
		if err != nil {
			return false, err
		}
		p2, err := elementAsPtr(l2, i)
		if err != nil {
			return false, err
		}
		ok, err := Equal(p1, p2)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func elementAsPtr(l List, i int32) (Ptr, error) {
	if l.tag == sizeComposite {
		s, err := l.StructAt(i)
		if err != nil {
			return Ptr{}, err
		}
		return s.ToPtr(), nil
	}
	if l.tag == sizePointer {
		return l.PtrAt(i)
	}
	return Ptr{}, wrapf(ErrTypeMismatch, "cannot compare scalar list against composite list")
}
