package capnp

// writePtr writes p into the pointer slot at addr in seg, per spec.md
// §4.3 "Writing a pointer slot": a same-segment, in-range target gets a
// direct pointer; otherwise a far (or double-far) pointer is emitted. A
// Ptr that lives in a different Message entirely is first deep-copied
// into seg's message, since a pointer word cannot address another
// message's memory.
func writePtr(seg *Segment, addr Address, p Ptr) error {
	if !p.IsValid() {
		return seg.writeRawPointer(addr, 0)
	}
	if contentMessage(p) != seg.msg {
		cp, err := deepCopy(seg, p)
		if err != nil {
			return err
		}
		p = cp
	}
	contentSeg, contentAddr, shapeWord := pointerShape(p)

	if contentSeg == seg {
		delta := int64(contentAddr) - int64(addr) - int64(wordSize)
		if delta%8 == 0 && fitsSigned30(delta/8) {
			d, err := decodePointer(shapeWord)
			if err != nil {
				return err
			}
			d.Off = offset(delta / 8)
			return seg.writeRawPointer(addr, encodePointer(d))
		}
	}

	// Cross-segment: needs a far pointer.
	if hasCapacity(contentSeg.data, wordSize) {
		_, padAddr, err := seg.msg.alloc(contentSeg, wordSize)
		if err != nil {
			return err
		}
		d, err := decodePointer(shapeWord)
		if err != nil {
			return err
		}
		delta := int64(contentAddr) - int64(padAddr) - int64(wordSize)
		if delta%8 != 0 || !fitsSigned30(delta/8) {
			return wrapf(ErrMalformedPointer, "landing pad too far from content")
		}
		d.Off = offset(delta / 8)
		if err := contentSeg.writeRawPointer(padAddr, encodePointer(d)); err != nil {
			return err
		}
		return seg.writeRawPointer(addr, rawFarPointer(uint32(contentSeg.id), padAddr, false))
	}

	// contentSeg is full: double-far through a 2-word landing pad,
	// preferentially placed in the writing segment seg.
	landingSeg, padAddr, err := seg.msg.alloc(seg, wordSize*2)
	if err != nil {
		return err
	}
	far := rawFarPointer(uint32(contentSeg.id), contentAddr, false)
	if err := landingSeg.writeRawPointer(padAddr, far); err != nil {
		return err
	}
	d, err := decodePointer(shapeWord)
	if err != nil {
		return err
	}
	d.Off = offset(-1) // as if the tag sat one word before the content
	if err := landingSeg.writeRawPointer(padAddr+Address(wordSize), encodePointer(d)); err != nil {
		return err
	}
	return seg.writeRawPointer(addr, rawFarPointer(uint32(landingSeg.id), padAddr, true))
}

func fitsSigned30(v int64) bool {
	return v >= -(1<<29) && v < (1<<29)
}

func contentMessage(p Ptr) *Message {
	switch p.kind {
	case ptrStruct:
		return p.s.seg.msg
	case ptrList:
		return p.l.seg.msg
	default:
		return nil
	}
}

// pointerShape returns the segment/address the pointer refers to, plus a
// pointer word carrying the shape (offset 0, size tag/struct size) ready
// to have its offset field overwritten once the final delta is known.
func pointerShape(p Ptr) (*Segment, Address, rawPointer) {
	switch p.kind {
	case ptrStruct:
		return p.s.seg, p.s.off, rawStructPointer(0, p.s.size)
	case ptrList:
		l := p.l
		if l.tag == sizeComposite {
			totalWords := int32(l.elemSize.totalSize()/wordSize) * l.length
			return l.seg, l.off - Address(wordSize), rawCompositeListPointer(0, totalWords)
		}
		return l.seg, l.off, rawListPointer(0, l.tag, l.length)
	default:
		return nil, 0, 0
	}
}

// deepCopy copies p's struct or list into pref's message, returning a Ptr
// to the copy. Used when a pointer slot is set to a value from a
// different Message (spec.md §4.3 builder "forceCopy" case, generalized
// from the teacher's writePtr).
func deepCopy(pref *Segment, p Ptr) (Ptr, error) {
	switch p.kind {
	case ptrStruct:
		dst, err := NewStruct(pref, p.s.size)
		if err != nil {
			return Ptr{}, err
		}
		if err := copyStructInto(dst, p.s); err != nil {
			return Ptr{}, err
		}
		return dst.ToPtr(), nil
	case ptrList:
		dst, err := copyListInto(pref, p.l)
		if err != nil {
			return Ptr{}, err
		}
		return dst.ToPtr(), nil
	default:
		return Ptr{}, nil
	}
}

func copyStructInto(dst, src Struct) error {
	dataLen := src.size.DataWords
	if dst.size.DataWords < dataLen {
		dataLen = dst.size.DataWords
	}
	for w := uint16(0); w < dataLen; w++ {
		v, err := src.seg.readUint64(src.off + Address(w)*Address(wordSize))
		if err != nil {
			return err
		}
		if err := dst.seg.writeUint64(dst.off+Address(w)*Address(wordSize), v); err != nil {
			return err
		}
	}
	ptrLen := src.size.PointerCount
	if dst.size.PointerCount < ptrLen {
		ptrLen = dst.size.PointerCount
	}
	for i := uint16(0); i < ptrLen; i++ {
		p, err := src.Ptr(i)
		if err != nil {
			return err
		}
		if !p.IsValid() {
			continue
		}
		if err := dst.SetPtr(i, p); err != nil {
			return err
		}
	}
	return nil
}

func copyListInto(pref *Segment, src List) (List, error) {
	switch {
	case src.tag == sizeComposite:
		dst, err := NewCompositeList(pref, src.elemSize, src.length)
		if err != nil {
			return List{}, err
		}
		for i := int32(0); i < src.length; i++ {
			s1, err := src.StructAt(i)
			if err != nil {
				return List{}, err
			}
			d1, err := dst.StructAt(i)
			if err != nil {
				return List{}, err
			}
			if err := copyStructInto(d1, s1); err != nil {
				return List{}, err
			}
		}
		return dst, nil
	case src.tag == sizePointer:
		dst, err := NewPointerList(pref, src.length)
		if err != nil {
			return List{}, err
		}
		for i := int32(0); i < src.length; i++ {
			p, err := src.PtrAt(i)
			if err != nil {
				return List{}, err
			}
			if !p.IsValid() {
				continue
			}
			if err := dst.SetPtrAt(i, p); err != nil {
				return List{}, err
			}
		}
		return dst, nil
	default:
		dst, err := NewScalarList(pref, src.tag, src.length)
		if err != nil {
			return List{}, err
		}
		end, err := scalarListEnd(src)
		if err != nil {
			return List{}, err
		}
		n := Size(end) - Size(src.off)
		srcBytes, err := src.seg.slice(src.off, n)
		if err != nil {
			return List{}, err
		}
		dstBytes, err := dst.seg.slice(dst.off, n)
		if err != nil {
			return List{}, err
		}
		copy(dstBytes, srcBytes)
		return dst, nil
	}
}
