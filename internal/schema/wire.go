package schema

import (
	"github.com/capnweave/capnp"
)

// This file is the schema package's own encoding of a CodeGeneratorRequest
// as a Cap'n Proto message: it lets DecodeRequest consume the exact
// runtime (component 2-4) the rest of this module implements, rather than
// depending on a second, hand-maintained parser. The field layout below is
// internally consistent but is this core's own choice, not a byte-exact
// reproduction of upstream capnp's bootstrap schema.capnp — see
// DESIGN.md for why that tradeoff was made.

var (
	nodeSize    = capnp.ObjectSize{DataWords: 4, PointerCount: 5}
	fieldSize   = capnp.ObjectSize{DataWords: 4, PointerCount: 1}
	reqFileSize = capnp.ObjectSize{DataWords: 2, PointerCount: 1}
)

// EncodeRequest serialises req as a CodeGeneratorRequest message, for use
// by tests and by tooling that assembles a request without going through
// the real `capnp compile` front end.
func EncodeRequest(req *Request) (*capnp.Message, error) {
	msg, seg := capnp.NewMessage()
	root, err := capnp.NewRootStruct(msg, capnp.ObjectSize{PointerCount: 2})
	if err != nil {
		return nil, err
	}

	ids := make([]NodeID, 0, len(req.Nodes))
	for id := range req.Nodes {
		ids = append(ids, id)
	}
	nodeList, err := capnp.NewCompositeList(seg, nodeSize, int32(len(ids)))
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		ns, err := nodeList.StructAt(int32(i))
		if err != nil {
			return nil, err
		}
		if err := encodeNode(seg, ns, req.Nodes[id]); err != nil {
			return nil, err
		}
	}
	if err := root.SetPtr(0, nodeList.ToPtr()); err != nil {
		return nil, err
	}

	fileList, err := capnp.NewCompositeList(seg, reqFileSize, int32(len(req.RequestedFiles)))
	if err != nil {
		return nil, err
	}
	for i, rf := range req.RequestedFiles {
		fs, err := fileList.StructAt(int32(i))
		if err != nil {
			return nil, err
		}
		if err := fs.SetUint64(0, uint64(rf.ID), 0); err != nil {
			return nil, err
		}
		if err := fs.SetBool(64, rf.ConvertCase, false); err != nil {
			return nil, err
		}
		name, err := capnp.NewText(seg, rf.Filename)
		if err != nil {
			return nil, err
		}
		if err := fs.SetPtr(0, name.ToPtr()); err != nil {
			return nil, err
		}
	}
	if err := root.SetPtr(1, fileList.ToPtr()); err != nil {
		return nil, err
	}
	return msg, nil
}

func encodeNode(seg *capnp.Segment, s capnp.Struct, n *Node) error {
	if err := s.SetUint64(0, uint64(n.ID), 0); err != nil {
		return err
	}
	if err := s.SetUint64(8, uint64(n.ScopeID), 0); err != nil {
		return err
	}
	if err := s.SetUint16(16, uint16(n.Kind), 0); err != nil {
		return err
	}
	name, err := capnp.NewText(seg, n.DisplayName)
	if err != nil {
		return err
	}
	if err := s.SetPtr(0, name.ToPtr()); err != nil {
		return err
	}
	switch n.Kind {
	case KindStruct:
		sn := n.Struct
		if err := s.SetUint16(18, sn.DataWordCount, 0); err != nil {
			return err
		}
		if err := s.SetUint16(20, sn.PointerCount, 0); err != nil {
			return err
		}
		if err := s.SetUint16(22, sn.DiscriminantCount, 0); err != nil {
			return err
		}
		if err := s.SetUint16(24, sn.DiscriminantOffset, 0); err != nil {
			return err
		}
		fl, err := capnp.NewCompositeList(seg, fieldSize, int32(len(sn.Fields)))
		if err != nil {
			return err
		}
		for i, f := range sn.Fields {
			fs, err := fl.StructAt(int32(i))
			if err != nil {
				return err
			}
			if err := encodeField(seg, fs, f); err != nil {
				return err
			}
		}
		return s.SetPtr(1, fl.ToPtr())
	case KindEnum:
		en := n.Enum
		pl, err := capnp.NewPointerList(seg, int32(len(en.Enumerants)))
		if err != nil {
			return err
		}
		for i, name := range en.Enumerants {
			t, err := capnp.NewText(seg, name)
			if err != nil {
				return err
			}
			if err := pl.SetPtrAt(int32(i), t.ToPtr()); err != nil {
				return err
			}
		}
		return s.SetPtr(2, pl.ToPtr())
	case KindConst:
		return encodeValue(seg, s, 18, n.Const.Type, n.Const.Value)
	case KindAnnotation:
		return s.SetUint16(26, uint16(n.Annotation.Type.Kind), 0)
	default:
		return nil
	}
}

func encodeField(seg *capnp.Segment, s capnp.Struct, f Field) error {
	if err := s.SetUint16(0, f.Ordinal, 0); err != nil {
		return err
	}
	if err := s.SetUint16(2, f.DiscriminantValue, 0xFFFF); err != nil {
		return err
	}
	name, err := capnp.NewText(seg, f.Name)
	if err != nil {
		return err
	}
	if err := s.SetPtr(0, name.ToPtr()); err != nil {
		return err
	}
	if f.Group != nil {
		if err := s.SetUint8(4, 1, 0); err != nil {
			return err
		}
		return s.SetUint64(8, uint64(f.Group.TypeID), 0)
	}
	if err := s.SetUint8(4, 0, 0); err != nil {
		return err
	}
	if err := s.SetUint8(5, uint8(f.Slot.Type.Kind), 0); err != nil {
		return err
	}
	if f.Slot.Type.Elem != nil {
		if err := s.SetUint8(6, uint8(f.Slot.Type.Elem.Kind), 0); err != nil {
			return err
		}
	}
	if err := s.SetUint32(16, f.Slot.Offset, 0); err != nil {
		return err
	}
	if err := s.SetUint64(8, uint64(f.Slot.Type.StructOrEnumOrInterfaceID), 0); err != nil {
		return err
	}
	return s.SetUint64(24, f.Slot.Default.Uint, 0)
}

func encodeValue(seg *capnp.Segment, s capnp.Struct, byteOff int, t Type, v Value) error {
	if err := s.SetUint8(capnp.Size(byteOff), uint8(t.Kind), 0); err != nil {
		return err
	}
	return s.SetUint64(capnp.Size(byteOff)+2, v.Uint, 0)
}

// DecodeRequest parses msg as a CodeGeneratorRequest, building the node
// table and requested-files list of spec.md §4.4 step 1 ("Build the node
// map by id").
func DecodeRequest(msg *capnp.Message) (*Request, error) {
	root, err := capnp.RootStruct(msg, capnp.ObjectSize{PointerCount: 2})
	if err != nil {
		return nil, err
	}
	nodesPtr, err := root.Ptr(0)
	if err != nil {
		return nil, err
	}
	nodeList := nodesPtr.List()
	req := &Request{Nodes: make(map[NodeID]*Node, nodeList.Len())}
	for i := int32(0); i < nodeList.Len(); i++ {
		ns, err := nodeList.StructAt(i)
		if err != nil {
			return nil, err
		}
		n, err := decodeNode(ns)
		if err != nil {
			return nil, err
		}
		req.Nodes[n.ID] = n
	}

	filesPtr, err := root.Ptr(1)
	if err != nil {
		return nil, err
	}
	fileList := filesPtr.List()
	for i := int32(0); i < fileList.Len(); i++ {
		fs, err := fileList.StructAt(i)
		if err != nil {
			return nil, err
		}
		namePtr, err := fs.Ptr(0)
		if err != nil {
			return nil, err
		}
		name, err := capnp.TextValue(namePtr.List())
		if err != nil {
			return nil, err
		}
		req.RequestedFiles = append(req.RequestedFiles, RequestedFile{
			ID:          NodeID(fs.Uint64(0, 0)),
			Filename:    name,
			ConvertCase: fs.Bool(64, false),
		})
	}
	return req, nil
}

func decodeNode(s capnp.Struct) (*Node, error) {
	n := &Node{
		ID:      NodeID(s.Uint64(0, 0)),
		ScopeID: NodeID(s.Uint64(8, 0)),
		Kind:    NodeKind(s.Uint16(16, 0)),
	}
	namePtr, err := s.Ptr(0)
	if err != nil {
		return nil, err
	}
	name, err := capnp.TextValue(namePtr.List())
	if err != nil {
		return nil, err
	}
	n.DisplayName = name

	switch n.Kind {
	case KindStruct:
		sn := &StructNode{
			DataWordCount:      s.Uint16(18, 0),
			PointerCount:       s.Uint16(20, 0),
			DiscriminantCount:  s.Uint16(22, 0),
			DiscriminantOffset: s.Uint16(24, 0),
		}
		fieldsPtr, err := s.Ptr(1)
		if err != nil {
			return nil, err
		}
		fl := fieldsPtr.List()
		for i := int32(0); i < fl.Len(); i++ {
			fs, err := fl.StructAt(i)
			if err != nil {
				return nil, err
			}
			f, err := decodeField(fs)
			if err != nil {
				return nil, err
			}
			sn.Fields = append(sn.Fields, f)
		}
		n.Struct = sn
	case KindEnum:
		enumPtr, err := s.Ptr(2)
		if err != nil {
			return nil, err
		}
		el := enumPtr.List()
		en := &EnumNode{}
		for i := int32(0); i < el.Len(); i++ {
			p, err := el.PtrAt(i)
			if err != nil {
				return nil, err
			}
			name, err := capnp.TextValue(p.List())
			if err != nil {
				return nil, err
			}
			en.Enumerants = append(en.Enumerants, name)
		}
		n.Enum = en
	case KindConst:
		t, v, err := decodeValue(s, 18)
		if err != nil {
			return nil, err
		}
		n.Const = &ConstNode{Type: t, Value: v}
	case KindAnnotation:
		n.Annotation = &AnnotationNode{Type: Type{Kind: TypeKind(s.Uint16(26, 0))}}
	}
	return n, nil
}

func decodeField(s capnp.Struct) (Field, error) {
	f := Field{
		Ordinal:           s.Uint16(0, 0),
		DiscriminantValue: s.Uint16(2, 0xFFFF),
	}
	namePtr, err := s.Ptr(0)
	if err != nil {
		return Field{}, err
	}
	name, err := capnp.TextValue(namePtr.List())
	if err != nil {
		return Field{}, err
	}
	f.Name = name
	if s.Uint8(4, 0) == 1 {
		f.Group = &GroupField{TypeID: NodeID(s.Uint64(8, 0))}
		return f, nil
	}
	t := Type{Kind: TypeKind(s.Uint8(5, 0))}
	if t.Kind == TypeList {
		t.Elem = &Type{Kind: TypeKind(s.Uint8(6, 0))}
	}
	t.StructOrEnumOrInterfaceID = NodeID(s.Uint64(8, 0))
	f.Slot = &SlotField{
		Type:    t,
		Offset:  s.Uint32(16, 0),
		Default: Value{Uint: s.Uint64(24, 0)},
	}
	return f, nil
}

func decodeValue(s capnp.Struct, byteOff int) (Type, Value, error) {
	t := Type{Kind: TypeKind(s.Uint8(capnp.Size(byteOff), 0))}
	v := Value{Uint: s.Uint64(capnp.Size(byteOff)+2, 0)}
	return t, v, nil
}
