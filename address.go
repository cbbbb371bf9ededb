package capnp

// Address is a byte offset within a segment.
type Address uint32

// addSize returns base+sz, reporting whether the add overflowed the
// addressable range.
func (base Address) addSize(sz Size) (sum Address, ok bool) {
	s := uint64(base) + uint64(sz)
	if s > uint64(^Address(0)) {
		return 0, false
	}
	return Address(s), true
}

// element returns the address of the i'th element of a list whose
// elements are sz bytes wide, starting at base.
func (base Address) element(i int32, sz Size) (addr Address, ok bool) {
	off, ok := sz.times(i)
	if !ok {
		return 0, false
	}
	return base.addOffset(off)
}

func (base Address) addOffset(off offset) (Address, bool) {
	s := int64(base) + int64(off)*8
	if s < 0 || s > int64(^Address(0)) {
		return 0, false
	}
	return Address(s), true
}

// offset is a signed word count, as encoded in a pointer's offset field.
type offset int32

// resolve computes the absolute address a pointer with this offset,
// located at byte address "from", refers to: from + 8 + o*8, i.e. o words
// past the word immediately following the pointer.
func (o offset) resolve(from Address) (Address, bool) {
	base, ok := from.addSize(wordSize)
	if !ok {
		return 0, false
	}
	return base.addOffset(o)
}

// Size is a size of a memory region in bytes.
type Size uint32

const wordSize Size = 8

// times returns sz*n, reporting whether the multiplication overflowed.
func (sz Size) times(n int32) (result Size, ok bool) {
	if n < 0 || (n != 0 && uint64(sz)*uint64(n)/uint64(n) != uint64(sz)) {
		return 0, false
	}
	p := uint64(sz) * uint64(n)
	if p > uint64(^Size(0)) {
		return 0, false
	}
	return Size(p), true
}

// padToWord rounds sz up to the nearest multiple of 8.
func (sz Size) padToWord() Size {
	return (sz + 7) &^ 7
}

// ObjectSize records the size of a struct's data and pointer sections,
// in words.
type ObjectSize struct {
	DataWords uint16
	// PointerCount is the number of pointer-sized slots in the
	// struct's pointer section.
	PointerCount uint16
}

// totalSize returns the word count of the struct, converted to bytes.
func (sz ObjectSize) totalSize() Size {
	return Size(sz.DataWords)*wordSize + Size(sz.PointerCount)*wordSize
}

func (sz ObjectSize) isZero() bool {
	return sz.DataWords == 0 && sz.PointerCount == 0
}
