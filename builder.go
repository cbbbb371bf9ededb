package capnp

// This file covers the remaining half of spec.md §4.3 "Builder runtime":
// list, string, and data allocation, plus the union-arm helper the
// generator's constructors call into.

// NewScalarList allocates a list of n fixed-width elements of the given
// size tag (VOID, BIT, BYTE, TWO_BYTES, FOUR_BYTES, or EIGHT_BYTES).
// Pointer and composite lists have their own constructors below since
// their allocation math differs.
func NewScalarList(pref *Segment, tag sizeTag, n int32) (List, error) {
	if tag == sizePointer || tag == sizeComposite {
		return List{}, wrapf(ErrTypeMismatch, "NewScalarList called with tag %d", tag)
	}
	var bodySize Size
	if tag == sizeBit {
		bodySize = Size((n + 7) / 8)
	} else {
		var ok bool
		bodySize, ok = tag.byteSize().times(n)
		if !ok {
			return List{}, wrapf(ErrOutOfBounds, "list of %d elements overflows", n)
		}
	}
	seg, addr, err := pref.msg.alloc(pref, bodySize)
	if err != nil {
		return List{}, err
	}
	return List{seg: seg, off: addr, length: n, tag: tag, depthLimit: defaultDepthLimit}, nil
}

// NewPointerList allocates a list of n pointer-sized slots: List(Text),
// List(Data), List(AnyPointer), or a list of a struct type represented by
// reference rather than inline (inline struct lists go through
// NewCompositeList).
func NewPointerList(pref *Segment, n int32) (List, error) {
	bodySize, ok := sizePointer.byteSize().times(n)
	if !ok {
		return List{}, wrapf(ErrOutOfBounds, "pointer list of %d elements overflows", n)
	}
	seg, addr, err := pref.msg.alloc(pref, bodySize)
	if err != nil {
		return List{}, err
	}
	return List{seg: seg, off: addr, length: n, tag: sizePointer, depthLimit: defaultDepthLimit}, nil
}

// NewCompositeList allocates a list of n structs shaped by elemSize,
// prepending the one-word struct tag the wire format requires (spec.md
// §4.3 "For COMPOSITE, prepend a tag word whose struct pointer encodes
// element count, data words, ptr words").
func NewCompositeList(pref *Segment, elemSize ObjectSize, n int32) (List, error) {
	elemBytes, ok := elemSize.totalSize().times(n)
	if !ok {
		return List{}, wrapf(ErrOutOfBounds, "composite list of %d elements overflows", n)
	}
	total, ok := elemBytes.addSizeChecked(wordSize)
	if !ok {
		return List{}, wrapf(ErrOutOfBounds, "composite list tag word overflows size")
	}
	seg, tagAddr, err := pref.msg.alloc(pref, total)
	if err != nil {
		return List{}, err
	}
	tagWord := rawStructPointer(offset(n), elemSize)
	if err := seg.writeRawPointer(tagAddr, tagWord); err != nil {
		return List{}, err
	}
	elemsAddr, ok := tagAddr.addSize(wordSize)
	if !ok {
		return List{}, wrapf(ErrOutOfBounds, "composite list body overflows address space")
	}
	return List{seg: seg, off: elemsAddr, length: n, tag: sizeComposite, elemSize: elemSize, depthLimit: defaultDepthLimit}, nil
}

func (sz Size) addSizeChecked(o Size) (Size, bool) {
	s := uint64(sz) + uint64(o)
	if s > uint64(^Size(0)) {
		return 0, false
	}
	return Size(s), true
}

// NewText allocates a List(Byte) holding s plus a trailing NUL
// terminator (spec.md §4.3 "String/data allocation"). The returned List
// has item_count == len(s)+1; TextValue strips the terminator back off.
func NewText(pref *Segment, s string) (List, error) {
	l, err := NewScalarList(pref, sizeByte, int32(len(s))+1)
	if err != nil {
		return List{}, err
	}
	b, err := l.seg.slice(l.off, Size(len(s))+1)
	if err != nil {
		return List{}, err
	}
	copy(b, s)
	b[len(s)] = 0
	return l, nil
}

// NewData allocates a List(Byte) holding b verbatim, with no terminator.
func NewData(pref *Segment, b []byte) (List, error) {
	l, err := NewScalarList(pref, sizeByte, int32(len(b)))
	if err != nil {
		return List{}, err
	}
	dst, err := l.seg.slice(l.off, Size(len(b)))
	if err != nil {
		return List{}, err
	}
	copy(dst, b)
	return l, nil
}

// TextValue reads a string field's backing List(Byte), stripping its NUL
// terminator (spec.md §4.2 "String"). An absent (zero) list reads as "".
func TextValue(l List) (string, error) {
	if !l.IsValid() {
		return "", nil
	}
	if err := l.checkTag(sizeByte); err != nil {
		return "", err
	}
	if l.length == 0 {
		return "", nil
	}
	b, err := l.seg.slice(l.off, Size(l.length-1))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DataValue reads a Data field's backing List(Byte) verbatim (spec.md
// §4.2 "Data": "a List(BYTE) without NUL requirement").
func DataValue(l List) ([]byte, error) {
	if !l.IsValid() {
		return nil, nil
	}
	if err := l.checkTag(sizeByte); err != nil {
		return nil, err
	}
	b, err := l.seg.slice(l.off, Size(l.length))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// SetUnionTag stamps the struct's 16-bit discriminant word with value,
// per spec.md §4.3 "Union construction": "The tag word is stamped with
// the arm's discriminant_value." discriminantOffset is in 16-bit words,
// as in spec.md §3 "discriminant_offset*2 bytes".
func (s Struct) SetUnionTag(discriminantOffset uint16, value uint16) error {
	return s.SetUint16(Size(discriminantOffset)*2, value, 0)
}

// UnionTag reads the struct's 16-bit discriminant.
func (s Struct) UnionTag(discriminantOffset uint16) uint16 {
	return s.Uint16(Size(discriminantOffset)*2, 0)
}

// SetTextField allocates a new text value and stores it in pointer slot
// i, for use by generated String accessors (spec.md §4.3 "String/data
// allocation").
func (s Struct) SetTextField(i uint16, text string) error {
	l, err := NewText(s.seg, text)
	if err != nil {
		return err
	}
	return s.SetPtr(i, l.ToPtr())
}

// SetDataField allocates a new data value and stores it in pointer slot
// i, for use by generated Data accessors.
func (s Struct) SetDataField(i uint16, data []byte) error {
	l, err := NewData(s.seg, data)
	if err != nil {
		return err
	}
	return s.SetPtr(i, l.ToPtr())
}

// CheckUnionArm is an "exactly one arm given" check: given the number of
// non-zero-value arguments supplied to a oneof-style constructor, it
// reports ErrUnionArmConflict unless exactly one was given. The
// generator's per-arm constructors do not call it.
func CheckUnionArm(given int) error {
	if given != 1 {
		return wrapf(ErrUnionArmConflict, "expected exactly one union arm, got %d", given)
	}
	return nil
}
