// Package schema is the node graph data model of spec.md §3 "Schema node
// graph": an immutable table mapping 64-bit node ids to tagged nodes,
// plus the children-by-scope lookup the generator needs to reconstruct
// nesting. Per spec.md §9 "Dynamic accessor dispatch", nodes are
// represented as a tagged variant (NodeKind); consumers such as the
// generator dispatch on it with a switch rather than via open-class
// extension.
package schema

// NodeKind tags the variant a Node carries.
type NodeKind uint8

const (
	KindFile NodeKind = iota
	KindStruct
	KindEnum
	KindInterface
	KindConst
	KindAnnotation
)

func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindInterface:
		return "interface"
	case KindConst:
		return "const"
	case KindAnnotation:
		return "annotation"
	default:
		return "unknown"
	}
}

// NodeID is a node's 64-bit identity, stable across a compilation.
type NodeID uint64

// Node is one entry of the schema node graph: a file, struct, enum,
// interface, const, or annotation, plus the bookkeeping every kind
// shares (id, scope, display name).
type Node struct {
	ID          NodeID
	Kind        NodeKind
	DisplayName string
	ScopeID     NodeID // the parent node; 0 for top-level file nodes

	Struct     *StructNode     // set iff Kind == KindStruct
	Enum       *EnumNode       // set iff Kind == KindEnum
	Interface  *InterfaceNode  // set iff Kind == KindInterface
	Const      *ConstNode      // set iff Kind == KindConst
	Annotation *AnnotationNode // set iff Kind == KindAnnotation
}

// StructNode carries the layout facts the reader/builder runtime needs
// to generate accessors (spec.md §3 "Schema node graph": "Struct nodes
// carry data_word_count, pointer_count, discriminant_count,
// discriminant_offset, and an ordered field list").
type StructNode struct {
	DataWordCount      uint16
	PointerCount       uint16
	DiscriminantCount  uint16
	DiscriminantOffset uint16
	Fields             []Field
}

// EnumNode lists an enum's ordinal-ordered enumerant names.
type EnumNode struct {
	Enumerants []string
}

// InterfaceNode is carried through the node graph for completeness (a
// schema may reference interface types in field positions) but the RPC
// layer itself is out of scope (spec.md §1 Non-goals); the generator
// emits no method stubs for it.
type InterfaceNode struct {
	Methods []string
}

// ConstNode is a named constant value; the generator emits it as a Go
// package-level const declaration whatever its Type (no var form is
// emitted).
type ConstNode struct {
	Type  Type
	Value Value
}

// AnnotationNode describes an annotation definition. Annotation
// *applications* are not modeled (no behavior in this core depends on
// them); only the definition's existence matters for name resolution.
type AnnotationNode struct {
	Type Type
}

// Field is one member of a struct: either a Slot (a value stored inline
// in the data/pointer section) or a Group (a nested anonymous struct
// reached through a pointer to another struct node), per spec.md §3
// "Each field is either a slot ... or a group".
type Field struct {
	Name string
	// Ordinal is the field's declaration order. It is carried through
	// the wire encoding; the generator does not use it.
	Ordinal uint16

	Slot  *SlotField
	Group *GroupField

	// DiscriminantValue is the union tag this field is active under, or
	// 0xFFFF if the field does not belong to a union (spec.md §3
	// "Union / discriminant").
	DiscriminantValue uint16
}

// InUnion reports whether f belongs to its enclosing struct's union.
func (f Field) InUnion() bool { return f.DiscriminantValue != 0xFFFF }

// SlotField is a field stored directly in the struct's data or pointer
// section.
type SlotField struct {
	Type Type
	// Offset is the slot's position: a bit offset for Bool, a byte
	// offset (slot index * type size) for other data-section types, or
	// a pointer index for pointer-section types. Which it means is
	// determined by Type.Kind.
	Offset uint32
	// Default is the field's pre-XORed default for scalar types (spec.md
	// §4.2 "XOR with the field's default"), or the zero Value for pointer types
	// (materializing pointer defaults is the §9 Open Question, resolved
	// in favor of zero-filled defaults only — see SPEC_FULL.md §5).
	Default Value
}

// GroupField is a field that is itself a nested anonymous struct sharing
// its parent's storage, addressed via another struct node.
type GroupField struct {
	TypeID NodeID
}

// TypeKind enumerates the field/type categories the generator needs to
// choose an accessor for.
type TypeKind uint8

const (
	TypeVoid TypeKind = iota
	TypeBool
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeText
	TypeData
	TypeStruct
	TypeEnum
	TypeInterface
	TypeAnyPointer
	TypeList
)

// Type is a field or constant's declared type.
type Type struct {
	Kind TypeKind
	// StructOrEnumOrInterfaceID is set when Kind is TypeStruct, TypeEnum,
	// or TypeInterface: the id of the referenced node.
	StructOrEnumOrInterfaceID NodeID
	// Elem is set when Kind == TypeList: the element type.
	Elem *Type
}

// Value is a constant or default value; exactly one field is
// meaningful, selected by the associated Type's Kind.
type Value struct {
	Bool   bool
	Int    int64
	Uint   uint64
	Float  float64
	Text   string
	Data   []byte
}

// RequestedFile is one entry of a CodeGeneratorRequest's requested-files
// list: the root node to emit accessors for, plus per-file generator
// options (spec.md §4.4 "Names: ... an option (convert_case)").
type RequestedFile struct {
	ID          NodeID
	Filename    string
	ConvertCase bool
}

// Request is the fully decoded form of a CodeGeneratorRequest: a node
// table plus the list of files to emit (spec.md §4.4 "Input").
type Request struct {
	Nodes          map[NodeID]*Node
	RequestedFiles []RequestedFile
}

// ChildrenByScope groups every node in the table by its ScopeID, so the
// generator can reconstruct nesting without re-scanning the whole table
// per struct (spec.md §9 "Build children-by-scope as a separate
// lookup").
func (r *Request) ChildrenByScope() map[NodeID][]*Node {
	out := make(map[NodeID][]*Node, len(r.Nodes))
	for _, n := range r.Nodes {
		out[n.ScopeID] = append(out[n.ScopeID], n)
	}
	for _, kids := range out {
		sortNodesByID(kids)
	}
	return out
}

func sortNodesByID(nodes []*Node) {
	// Small-N insertion sort: struct member counts are tiny, and this
	// keeps the package free of a sort.Slice closure alloc per call.
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j-1].ID > nodes[j].ID; j-- {
			nodes[j-1], nodes[j] = nodes[j], nodes[j-1]
		}
	}
}

// Lookup resolves id in the node table, reporting an *Error (which
// unwraps to capnp.ErrSchema) if absent (spec.md §7 "SchemaError — missing node, unresolved scope id,
// unknown field kind").
func (r *Request) Lookup(id NodeID) (*Node, error) {
	n, ok := r.Nodes[id]
	if !ok {
		return nil, &Error{Op: "lookup", Detail: "unresolved node id"}
	}
	return n, nil
}
