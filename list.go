package capnp

// List is the Reader/Builder view of a Cap'n Proto list: a quadruple of
// (buf, byte_offset, size_tag, item_count) plus, for composite lists, the
// per-element ObjectSize carried by the tag word (spec.md §3 "List view").
type List struct {
	seg    *Segment
	off    Address // first element, after the tag word for composite lists
	length int32
	tag    sizeTag
	// elemSize is only meaningful when tag == sizeComposite: the
	// per-element data/pointer word counts from the tag word.
	elemSize   ObjectSize
	depthLimit int
}

// IsValid reports whether l refers to an actual list (as opposed to the
// zero List returned for a null/absent pointer).
func (l List) IsValid() bool { return l.seg != nil }

// ToPtr wraps l as a Ptr, mirroring Struct.ToPtr.
func (l List) ToPtr() Ptr { return listPtr(l) }

// Len returns the number of elements in l.
func (l List) Len() int32 { return l.length }

// SizeTag reports the wire size tag of l's elements.
func (l List) SizeTag() sizeTag { return l.tag }

// itemSize returns the per-element byte footprint for non-bit,
// non-composite lists.
func (l List) itemSize() Size {
	if l.tag == sizeComposite {
		return l.elemSize.totalSize()
	}
	return l.tag.byteSize()
}

func normalizeIndex(i, length int32) (int32, error) {
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, wrapf(ErrIndexOutOfRange, "index %d, length %d", i, length)
	}
	return i, nil
}

// elementAddr returns the byte address of element i for a non-bit list.
func (l List) elementAddr(i int32) (Address, error) {
	i, err := normalizeIndex(i, l.length)
	if err != nil {
		return 0, err
	}
	addr, ok := l.off.element(i, l.itemSize())
	if !ok {
		return 0, wrapf(ErrOutOfBounds, "list element %d address overflow", i)
	}
	return addr, nil
}

// readListPointerBody constructs the List view a list pointer targets,
// given the already-resolved segment/address and decoded pointer.
func readListPointerBody(seg *Segment, ptrAddr Address, d decodedPointer, depthLimit int) (List, error) {
	addr, ok := d.Off.resolve(ptrAddr)
	if !ok {
		return List{}, wrapf(ErrMalformedPointer, "list pointer offset overflow")
	}
	if d.ListTag == sizeComposite {
		// d.ListCount is the *total word count* of the element block,
		// not the element count (spec.md §3 "List" pointer variant).
		// The real count and per-element shape live in the tag word
		// immediately preceding the elements.
		tagWord, err := seg.readRawPointer(addr)
		if err != nil {
			return List{}, err
		}
		td, err := decodePointer(tagWord)
		if err != nil {
			return List{}, err
		}
		if td.Kind != structPointer {
			return List{}, wrapf(ErrMalformedPointer, "composite list tag is not a struct shape")
		}
		count := int32(td.Off) // the tag word's offset field holds the element count
		elemsAddr, ok := addr.addSize(wordSize)
		if !ok {
			return List{}, wrapf(ErrOutOfBounds, "composite list overflow after tag word")
		}
		total, ok := td.StructSize.totalSize().times(count)
		if !ok {
			return List{}, wrapf(ErrOutOfBounds, "composite list size overflow")
		}
		if !seg.regionInBounds(elemsAddr, total) {
			return List{}, wrapf(ErrOutOfBounds, "composite list body out of bounds")
		}
		return List{seg: seg, off: elemsAddr, length: count, tag: sizeComposite, elemSize: td.StructSize, depthLimit: depthLimit}, nil
	}
	var bodySize Size
	if d.ListTag == sizeBit {
		bodySize = Size((d.ListCount + 7) / 8)
	} else {
		var ok bool
		bodySize, ok = d.ListTag.byteSize().times(d.ListCount)
		if !ok {
			return List{}, wrapf(ErrOutOfBounds, "list size overflow")
		}
	}
	if !seg.regionInBounds(addr, bodySize) {
		return List{}, wrapf(ErrOutOfBounds, "list body out of bounds")
	}
	return List{seg: seg, off: addr, length: d.ListCount, tag: d.ListTag, depthLimit: depthLimit}, nil
}

// --- scalar element access ---

func (l List) checkTag(want sizeTag) error {
	if l.tag != want {
		return wrapf(ErrTypeMismatch, "list has size tag %d, want %d", l.tag, want)
	}
	return nil
}

// Uint8At/Uint16At/... read a fixed-width scalar element. Callers (the
// generated accessors) are responsible for XOR-ing against the field's
// default, same as struct primitive slots.
func (l List) Uint8At(i int32) (uint8, error) {
	if err := l.checkTag(sizeByte); err != nil {
		return 0, err
	}
	addr, err := l.elementAddr(i)
	if err != nil {
		return 0, err
	}
	return l.seg.readUint8(addr)
}

func (l List) Uint16At(i int32) (uint16, error) {
	if err := l.checkTag(sizeTwoBytes); err != nil {
		return 0, err
	}
	addr, err := l.elementAddr(i)
	if err != nil {
		return 0, err
	}
	return l.seg.readUint16(addr)
}

func (l List) Uint32At(i int32) (uint32, error) {
	if err := l.checkTag(sizeFourBytes); err != nil {
		return 0, err
	}
	addr, err := l.elementAddr(i)
	if err != nil {
		return 0, err
	}
	return l.seg.readUint32(addr)
}

func (l List) Uint64At(i int32) (uint64, error) {
	if err := l.checkTag(sizeEightBytes); err != nil {
		return 0, err
	}
	addr, err := l.elementAddr(i)
	if err != nil {
		return 0, err
	}
	return l.seg.readUint64(addr)
}

// BitAt reads the i'th element of a BIT list (spec.md §9 Open Question:
// BIT lists, decided in favor of supporting them).
func (l List) BitAt(i int32) (bool, error) {
	if err := l.checkTag(sizeBit); err != nil {
		return false, err
	}
	i, err := normalizeIndex(i, l.length)
	if err != nil {
		return false, err
	}
	byteAddr, ok := l.off.addSize(Size(i / 8))
	if !ok {
		return false, wrapf(ErrOutOfBounds, "bit list index overflow")
	}
	b, err := l.seg.readUint8(byteAddr)
	if err != nil {
		return false, err
	}
	return b&(1<<uint(i%8)) != 0, nil
}

func (l List) SetBitAt(i int32, v bool) error {
	if err := l.checkTag(sizeBit); err != nil {
		return err
	}
	i, err := normalizeIndex(i, l.length)
	if err != nil {
		return err
	}
	byteAddr, ok := l.off.addSize(Size(i / 8))
	if !ok {
		return wrapf(ErrOutOfBounds, "bit list index overflow")
	}
	b, err := l.seg.readUint8(byteAddr)
	if err != nil {
		return err
	}
	mask := uint8(1 << uint(i%8))
	if v {
		b |= mask
	} else {
		b &^= mask
	}
	return l.seg.writeUint8(byteAddr, b)
}

func (l List) SetUint8At(i int32, v uint8) error {
	if err := l.checkTag(sizeByte); err != nil {
		return err
	}
	addr, err := l.elementAddr(i)
	if err != nil {
		return err
	}
	return l.seg.writeUint8(addr, v)
}

func (l List) SetUint16At(i int32, v uint16) error {
	if err := l.checkTag(sizeTwoBytes); err != nil {
		return err
	}
	addr, err := l.elementAddr(i)
	if err != nil {
		return err
	}
	return l.seg.writeUint16(addr, v)
}

func (l List) SetUint32At(i int32, v uint32) error {
	if err := l.checkTag(sizeFourBytes); err != nil {
		return err
	}
	addr, err := l.elementAddr(i)
	if err != nil {
		return err
	}
	return l.seg.writeUint32(addr, v)
}

func (l List) SetUint64At(i int32, v uint64) error {
	if err := l.checkTag(sizeEightBytes); err != nil {
		return err
	}
	addr, err := l.elementAddr(i)
	if err != nil {
		return err
	}
	return l.seg.writeUint64(addr, v)
}

// --- composite (struct) element access ---

// StructAt returns the i'th element of a composite list as a Struct.
func (l List) StructAt(i int32) (Struct, error) {
	if err := l.checkTag(sizeComposite); err != nil {
		return Struct{}, err
	}
	i, err := normalizeIndex(i, l.length)
	if err != nil {
		return Struct{}, err
	}
	addr, ok := l.off.element(i, l.elemSize.totalSize())
	if !ok {
		return Struct{}, wrapf(ErrOutOfBounds, "composite list element %d overflow", i)
	}
	return Struct{seg: l.seg, off: addr, size: l.elemSize, depthLimit: l.depthLimit}, nil
}

// --- pointer element access (List(Text), List(Data), List(AnyStruct), ...) ---

func (l List) PtrAt(i int32) (Ptr, error) {
	if err := l.checkTag(sizePointer); err != nil {
		return Ptr{}, err
	}
	addr, err := l.elementAddr(i)
	if err != nil {
		return Ptr{}, err
	}
	return readPtr(l.seg, addr, l.depthLimit)
}

func (l List) SetPtrAt(i int32, p Ptr) error {
	if err := l.checkTag(sizePointer); err != nil {
		return err
	}
	addr, err := l.elementAddr(i)
	if err != nil {
		return err
	}
	return writePtr(l.seg, addr, p)
}

// List(Text) and List(Data) are pointer lists of byte-lists at the wire
// level; there are no dedicated accessors for them. Each element is read
// with PtrAt and decoded with TextValue/DataValue on the Ptr's List.

// bodyEnd implements the "List body-end calculation" of spec.md §4.2.
// Equal does not call it: it compares scalar lists over the range
// scalarListEnd gives and pointer/composite lists element by element.
func (l List) bodyEnd() (Address, error) {
	switch {
	case l.tag == sizePointer:
		// Follow the last non-null pointer; end = its view's end.
		for i := l.length - 1; i >= 0; i-- {
			p, err := l.PtrAt(i)
			if err != nil {
				return 0, err
			}
			if !p.IsValid() {
				continue
			}
			switch p.kind {
			case ptrStruct:
				return p.s.off.addEnd(p.s.size.totalSize())
			case ptrList:
				return p.l.bodyEnd()
			}
		}
		return scalarListEnd(l)
	case l.tag == sizeComposite:
		if l.length == 0 {
			return l.off, nil
		}
		last, err := l.StructAt(l.length - 1)
		if err != nil {
			return 0, err
		}
		maxEnd, err := last.off.addEnd(last.size.totalSize())
		if err != nil {
			return 0, err
		}
		for i := uint16(0); i < last.size.PointerCount; i++ {
			p, err := last.Ptr(i)
			if err != nil {
				return 0, err
			}
			if !p.IsValid() {
				continue
			}
			var end Address
			switch p.kind {
			case ptrStruct:
				end, err = p.s.off.addEnd(p.s.size.totalSize())
			case ptrList:
				end, err = p.l.bodyEnd()
			}
			if err != nil {
				return 0, err
			}
			if end > maxEnd {
				maxEnd = end
			}
		}
		return maxEnd, nil
	default:
		return scalarListEnd(l)
	}
}

func scalarListEnd(l List) (Address, error) {
	if l.tag == sizeBit {
		return l.off.addEnd(Size((l.length + 7) / 8))
	}
	sz, ok := l.itemSize().times(l.length)
	if !ok {
		return 0, wrapf(ErrOutOfBounds, "list end overflow")
	}
	return l.off.addEnd(sz)
}

func (a Address) addEnd(sz Size) (Address, error) {
	end, ok := a.addSize(sz)
	if !ok {
		return 0, wrapf(ErrOutOfBounds, "address overflow computing list end")
	}
	return end, nil
}
