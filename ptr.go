package capnp

// ptrKind distinguishes the payload a Ptr carries. It mirrors the wire
// pointerKind but collapses struct/list-of-bytes special cases (Text,
// Data) into List, since they differ only in the generated accessor's
// interpretation (spec.md §4.2 "String"/"Data").
type ptrKind uint8

const (
	ptrNull ptrKind = iota
	ptrStruct
	ptrList
)

// Ptr is the tagged union a pointer slot resolves to: nothing, a Struct,
// or a List. Capabilities (the wire's "other pointer" kind) are out of
// scope per spec.md §1 Non-goals (RPC/capability layer); decodePointer
// reports them as ErrMalformedPointer since this core carries no cap
// table to resolve them against.
type Ptr struct {
	kind ptrKind
	s    Struct
	l    List
}

// IsValid reports whether p refers to something (a non-null pointer).
func (p Ptr) IsValid() bool { return p.kind != ptrNull }

// Struct returns p's struct view. It is the zero Struct if p is not a
// struct pointer.
func (p Ptr) Struct() Struct {
	if p.kind != ptrStruct {
		return Struct{}
	}
	return p.s
}

// List returns p's list view. It is the zero List if p is not a list
// pointer.
func (p Ptr) List() List {
	if p.kind != ptrList {
		return List{}
	}
	return p.l
}

func structPtr(s Struct) Ptr { return Ptr{kind: ptrStruct, s: s} }
func listPtr(l List) Ptr     { return Ptr{kind: ptrList, l: l} }

// readPtr reads and resolves the pointer word at addr in seg, following
// far pointers transparently (Testable property 5) and constructing the
// appropriate view. A null word yields the zero Ptr, never an error
// (spec.md §4.2 union/pointer-slot contract).
func readPtr(seg *Segment, addr Address, depthLimit int) (Ptr, error) {
	raw, err := seg.readRawPointer(addr)
	if err != nil {
		return Ptr{}, err
	}
	if raw.isNull() {
		return Ptr{}, nil
	}
	tseg, taddr, tval, err := seg.resolvePointer(addr, raw)
	if err != nil {
		return Ptr{}, err
	}
	if tval.isNull() {
		return Ptr{}, nil
	}
	if depthLimit <= 0 {
		return Ptr{}, wrapf(ErrMalformedPointer, "pointer depth limit exceeded")
	}
	d, err := decodePointer(tval)
	if err != nil {
		return Ptr{}, err
	}
	switch d.Kind {
	case structPointer:
		addr, ok := d.Off.resolve(taddr)
		if !ok {
			return Ptr{}, wrapf(ErrMalformedPointer, "struct pointer offset overflow")
		}
		if !tseg.regionInBounds(addr, d.StructSize.totalSize()) {
			return Ptr{}, wrapf(ErrOutOfBounds, "struct pointer target out of bounds")
		}
		return structPtr(Struct{seg: tseg, off: addr, size: d.StructSize, depthLimit: depthLimit - 1}), nil
	case listPointer:
		l, err := readListPointerBody(tseg, taddr, d, depthLimit-1)
		if err != nil {
			return Ptr{}, err
		}
		return listPtr(l), nil
	default:
		return Ptr{}, wrapf(ErrMalformedPointer, "unexpected pointer kind %d at content address", d.Kind)
	}
}

const defaultDepthLimit = 64
