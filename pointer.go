package capnp

// pointerKind is the low 2 bits of a pointer word.
type pointerKind uint8

const (
	structPointer pointerKind = 0
	listPointer   pointerKind = 1
	farPointer    pointerKind = 2
	otherPointer  pointerKind = 3 // capabilities; out of scope but decoded for completeness
)

// sizeTag is the 3-bit element-size code carried by a list pointer.
type sizeTag uint8

const (
	sizeVoid sizeTag = iota
	sizeBit
	sizeByte
	sizeTwoBytes
	sizeFourBytes
	sizeEightBytes
	sizePointer
	sizeComposite
)

// byteSize returns the per-element footprint of a non-composite,
// non-bit list, or 0 if the tag does not describe a fixed byte width.
func (t sizeTag) byteSize() Size {
	switch t {
	case sizeByte:
		return 1
	case sizeTwoBytes:
		return 2
	case sizeFourBytes:
		return 4
	case sizeEightBytes, sizePointer:
		return 8
	default:
		return 0
	}
}

// rawPointer is the 64-bit little-endian word Cap'n Proto uses to encode
// struct, list, and far pointers. See spec.md §6 "Pointer word layout".
type rawPointer uint64

func (p rawPointer) kind() pointerKind {
	return pointerKind(p & 3)
}

func (p rawPointer) isNull() bool {
	return p == 0
}

// --- struct pointer ---

func rawStructPointer(off offset, sz ObjectSize) rawPointer {
	word := uint64(uint32(off)<<2) & 0xFFFFFFFF
	word |= uint64(sz.DataWords) << 32
	word |= uint64(sz.PointerCount) << 48
	return rawPointer(word)
}

func (p rawPointer) structOffset() offset {
	return offset(int32(p) >> 2)
}

func (p rawPointer) structSize() ObjectSize {
	return ObjectSize{
		DataWords:    uint16(p >> 32),
		PointerCount: uint16(p >> 48),
	}
}

// --- list pointer ---

func rawListPointer(off offset, tag sizeTag, count int32) rawPointer {
	word := uint64(1)
	word |= uint64(uint32(off)<<2) & 0xFFFFFFFF
	word |= uint64(tag) << 32
	word |= uint64(uint32(count)) << 35
	return rawPointer(word)
}

func rawCompositeListPointer(off offset, totalWords int32) rawPointer {
	return rawListPointer(off, sizeComposite, totalWords)
}

func (p rawPointer) listOffset() offset {
	return offset(int32(p) >> 2)
}

func (p rawPointer) listSizeTag() sizeTag {
	return sizeTag((p >> 32) & 7)
}

func (p rawPointer) listCount() int32 {
	return int32(p >> 35)
}

// --- far pointer ---

func rawFarPointer(segID uint32, padOff Address, double bool) rawPointer {
	p := rawPointer(2)
	if double {
		p |= 1 << 2
	}
	p |= rawPointer(uint32(padOff/8)) << 3
	p |= rawPointer(segID) << 32
	return p
}

func (p rawPointer) isDoubleFar() bool {
	return p&(1<<2) != 0
}

func (p rawPointer) farLandingWord() Address {
	return Address((uint32(p)>>3)&0x1FFFFFFF) * 8
}

func (p rawPointer) farSegment() uint32 {
	return uint32(p >> 32)
}

// decodedPointer is the tagged-union form of a decoded rawPointer, used
// by the read path (readPtr, resolvePointer), by writePtr, and by tests.
type decodedPointer struct {
	Kind pointerKind

	// struct / list
	Off offset

	// struct
	StructSize ObjectSize

	// list
	ListTag   sizeTag
	ListCount int32

	// far
	DoubleFar bool
	LandingPad Address
	SegmentID  uint32
}

// decodePointer decodes a raw pointer word into its tagged-variant form,
// per spec.md §4.1. Null words decode to the zero decodedPointer without
// error; a nonsensical otherPointer kind (capabilities) is reported as
// ErrMalformedPointer since this core has no capability table.
func decodePointer(p rawPointer) (decodedPointer, error) {
	if p.isNull() {
		return decodedPointer{}, nil
	}
	switch p.kind() {
	case structPointer:
		return decodedPointer{
			Kind:       structPointer,
			Off:        p.structOffset(),
			StructSize: p.structSize(),
		}, nil
	case listPointer:
		return decodedPointer{
			Kind:      listPointer,
			Off:       p.listOffset(),
			ListTag:   p.listSizeTag(),
			ListCount: p.listCount(),
		}, nil
	case farPointer:
		return decodedPointer{
			Kind:       farPointer,
			DoubleFar:  p.isDoubleFar(),
			LandingPad: p.farLandingWord(),
			SegmentID:  p.farSegment(),
		}, nil
	default:
		return decodedPointer{}, wrapf(ErrMalformedPointer, "unknown pointer kind %d", p.kind())
	}
}

// encodePointer is the inverse of decodePointer; encode(decode(w)) == w
// for every well-formed word (testable property 1).
func encodePointer(d decodedPointer) rawPointer {
	switch d.Kind {
	case structPointer:
		return rawStructPointer(d.Off, d.StructSize)
	case listPointer:
		return rawListPointer(d.Off, d.ListTag, d.ListCount)
	case farPointer:
		return rawFarPointer(d.SegmentID, d.LandingPad, d.DoubleFar)
	default:
		return 0
	}
}
