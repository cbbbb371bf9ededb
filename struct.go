package capnp

import "math"

// Struct is the Reader/Builder view of a Cap'n Proto struct: a triple of
// (buf, byte_offset, data_words/ptr_words) (spec.md §3 "Struct view"). The
// same type serves both roles — a Struct obtained from NewStruct is
// written into via the Set* methods, and one obtained from a Ptr is read
// via the matching Get methods. Nothing prevents calling Set on a reader
// view other than the caller's own discipline, matching the teacher
// package's single-type approach.
type Struct struct {
	seg        *Segment
	off        Address
	size       ObjectSize
	depthLimit int
}

// IsValid reports whether s refers to actual storage, as opposed to the
// zero Struct returned for an absent/default struct field.
func (s Struct) IsValid() bool { return s.seg != nil }

// Size returns s's data/pointer section word counts.
func (s Struct) Size() ObjectSize { return s.size }

// ToPtr wraps s as a Ptr.
func (s Struct) ToPtr() Ptr { return structPtr(s) }

// NewRootStruct allocates a struct of the given size in msg's first
// segment and sets it as the root (the first pointer word of segment 0),
// per spec.md §4.3's framing convention.
func NewRootStruct(msg *Message, sz ObjectSize) (Struct, error) {
	seg, err := msg.Segment(0)
	if err != nil {
		return Struct{}, err
	}
	// Reserve the root pointer word itself before allocating the
	// struct's storage, so offset math is relative to "the word
	// following the pointer" exactly as spec.md §3 requires.
	if len(seg.data) == 0 {
		if _, _, err := msg.alloc(seg, wordSize); err != nil {
			return Struct{}, err
		}
	}
	st, err := NewStruct(seg, sz)
	if err != nil {
		return Struct{}, err
	}
	if err := writePtr(seg, 0, st.ToPtr()); err != nil {
		return Struct{}, err
	}
	return st, nil
}

// RootStruct reads msg's root pointer as a struct of at least the given
// size (smaller stored structs are treated as if zero-extended, larger
// ones are simply narrowed to sz by the generated accessors).
func RootStruct(msg *Message, sz ObjectSize) (Struct, error) {
	seg, err := msg.Segment(0)
	if err != nil {
		return Struct{}, err
	}
	if !seg.regionInBounds(0, wordSize) {
		return NewStruct(seg, sz)
	}
	p, err := readPtr(seg, 0, defaultDepthLimit)
	if err != nil {
		return Struct{}, err
	}
	if !p.IsValid() {
		return NewStruct(seg, sz)
	}
	return p.Struct(), nil
}

// NewStruct allocates (data_words+ptrs_words)*8 zeroed bytes for a new
// struct in pref's message (spec.md §4.3 "Struct allocation").
func NewStruct(pref *Segment, sz ObjectSize) (Struct, error) {
	seg, addr, err := pref.msg.alloc(pref, sz.totalSize())
	if err != nil {
		return Struct{}, err
	}
	return Struct{seg: seg, off: addr, size: sz, depthLimit: defaultDepthLimit}, nil
}

func (s Struct) dataAddr(byteOffset Size) (Address, bool) {
	if byteOffset >= Size(s.size.DataWords)*wordSize {
		return 0, false
	}
	return s.off.addSize(byteOffset)
}

func (s Struct) ptrAddr(index uint16) (Address, bool) {
	if uint32(index) >= uint32(s.size.PointerCount) {
		return 0, false
	}
	base, ok := s.off.addSize(Size(s.size.DataWords) * wordSize)
	if !ok {
		return 0, false
	}
	return base.addSize(Size(index) * wordSize)
}

// --- primitive data-section accessors ---
//
// Per spec.md §4.2 "Primitive slot": read the little-endian primitive,
// XOR with the field's default (Cap'n Proto stores defaults pre-XORed).
// A field beyond the struct's stored data_words yields the zero value,
// which after XOR with the default correctly yields the default.

func (s Struct) Uint8(byteOffset Size, def uint8) uint8 {
	addr, ok := s.dataAddr(byteOffset)
	if !ok || !s.seg.regionInBounds(addr, 1) {
		return def ^ 0
	}
	v, _ := s.seg.readUint8(addr)
	return v ^ def
}

func (s Struct) Uint16(byteOffset Size, def uint16) uint16 {
	addr, ok := s.dataAddr(byteOffset)
	if !ok || !s.seg.regionInBounds(addr, 2) {
		return def
	}
	v, _ := s.seg.readUint16(addr)
	return v ^ def
}

func (s Struct) Uint32(byteOffset Size, def uint32) uint32 {
	addr, ok := s.dataAddr(byteOffset)
	if !ok || !s.seg.regionInBounds(addr, 4) {
		return def
	}
	v, _ := s.seg.readUint32(addr)
	return v ^ def
}

func (s Struct) Uint64(byteOffset Size, def uint64) uint64 {
	addr, ok := s.dataAddr(byteOffset)
	if !ok || !s.seg.regionInBounds(addr, 8) {
		return def
	}
	v, _ := s.seg.readUint64(addr)
	return v ^ def
}

func (s Struct) Int8(o Size, def int8) int8     { return int8(s.Uint8(o, uint8(def))) }
func (s Struct) Int16(o Size, def int16) int16  { return int16(s.Uint16(o, uint16(def))) }
func (s Struct) Int32(o Size, def int32) int32  { return int32(s.Uint32(o, uint32(def))) }
func (s Struct) Int64(o Size, def int64) int64  { return int64(s.Uint64(o, uint64(def))) }

func (s Struct) Float32(o Size, def float32) float32 {
	return math.Float32frombits(s.Uint32(o, math.Float32bits(def)))
}

func (s Struct) Float64(o Size, def float64) float64 {
	return math.Float64frombits(s.Uint64(o, math.Float64bits(def)))
}

// Bool reads a single bit within the data section, as Cap'n Proto packs
// booleans (spec.md §4.2 "Bits for booleans").
func (s Struct) Bool(bitOffset uint32, def bool) bool {
	byteOff := Size(bitOffset / 8)
	addr, ok := s.dataAddr(byteOff)
	if !ok || !s.seg.regionInBounds(addr, 1) {
		return def
	}
	v, _ := s.seg.readUint8(addr)
	bit := v&(1<<uint(bitOffset%8)) != 0
	return bit != def
}

// --- primitive data-section setters ---

func (s Struct) SetUint8(byteOffset Size, v, def uint8) error {
	addr, ok := s.dataAddr(byteOffset)
	if !ok || !s.seg.regionInBounds(addr, 1) {
		return wrapf(ErrOutOfBounds, "struct data offset %d out of range", byteOffset)
	}
	return s.seg.writeUint8(addr, v^def)
}

func (s Struct) SetUint16(byteOffset Size, v, def uint16) error {
	addr, ok := s.dataAddr(byteOffset)
	if !ok || !s.seg.regionInBounds(addr, 2) {
		return wrapf(ErrOutOfBounds, "struct data offset %d out of range", byteOffset)
	}
	return s.seg.writeUint16(addr, v^def)
}

func (s Struct) SetUint32(byteOffset Size, v, def uint32) error {
	addr, ok := s.dataAddr(byteOffset)
	if !ok || !s.seg.regionInBounds(addr, 4) {
		return wrapf(ErrOutOfBounds, "struct data offset %d out of range", byteOffset)
	}
	return s.seg.writeUint32(addr, v^def)
}

func (s Struct) SetUint64(byteOffset Size, v, def uint64) error {
	addr, ok := s.dataAddr(byteOffset)
	if !ok || !s.seg.regionInBounds(addr, 8) {
		return wrapf(ErrOutOfBounds, "struct data offset %d out of range", byteOffset)
	}
	return s.seg.writeUint64(addr, v^def)
}

func (s Struct) SetInt8(o Size, v, def int8) error   { return s.SetUint8(o, uint8(v), uint8(def)) }
func (s Struct) SetInt16(o Size, v, def int16) error { return s.SetUint16(o, uint16(v), uint16(def)) }
func (s Struct) SetInt32(o Size, v, def int32) error { return s.SetUint32(o, uint32(v), uint32(def)) }
func (s Struct) SetInt64(o Size, v, def int64) error { return s.SetUint64(o, uint64(v), uint64(def)) }

func (s Struct) SetFloat32(o Size, v, def float32) error {
	return s.SetUint32(o, math.Float32bits(v), math.Float32bits(def))
}

func (s Struct) SetFloat64(o Size, v, def float64) error {
	return s.SetUint64(o, math.Float64bits(v), math.Float64bits(def))
}

func (s Struct) SetBool(bitOffset uint32, v, def bool) error {
	byteOff := Size(bitOffset / 8)
	addr, ok := s.dataAddr(byteOff)
	if !ok || !s.seg.regionInBounds(addr, 1) {
		return wrapf(ErrOutOfBounds, "struct bit offset %d out of range", bitOffset)
	}
	cur, err := s.seg.readUint8(addr)
	if err != nil {
		return err
	}
	mask := uint8(1 << uint(bitOffset%8))
	stored := v != def // XOR semantics: store true when value differs from default
	if stored {
		cur |= mask
	} else {
		cur &^= mask
	}
	return s.seg.writeUint8(addr, cur)
}

// --- pointer-section accessors ---

// Ptr reads pointer slot index i, following far pointers transparently.
// A slot beyond the struct's pointer section, or an absent (null)
// pointer, yields the zero Ptr (spec.md §4.2 union access contract
// generalizes to every pointer slot: missing data is a default, not an
// error).
func (s Struct) Ptr(i uint16) (Ptr, error) {
	addr, ok := s.ptrAddr(i)
	if !ok {
		return Ptr{}, nil
	}
	return readPtr(s.seg, addr, s.depthLimit)
}

// HasPtr reports whether pointer slot i is non-null.
func (s Struct) HasPtr(i uint16) bool {
	addr, ok := s.ptrAddr(i)
	if !ok {
		return false
	}
	raw, err := s.seg.readRawPointer(addr)
	return err == nil && !raw.isNull()
}

// SetPtr writes p into pointer slot i (spec.md §4.3 "Writing a pointer
// slot"): same-segment targets within a 30-bit word delta get a direct
// pointer; anything else is relocated behind a far pointer.
func (s Struct) SetPtr(i uint16, p Ptr) error {
	addr, ok := s.ptrAddr(i)
	if !ok {
		return wrapf(ErrOutOfBounds, "pointer slot %d out of range (struct has %d)", i, s.size.PointerCount)
	}
	return writePtr(s.seg, addr, p)
}
