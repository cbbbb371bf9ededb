package gen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capnweave/capnp/internal/schema"
)

// pRequest builds the CodeGeneratorRequest-shaped node table for scenario
// S1's `struct P { x @0 :Int64; y @1 :Int64; }`.
func pRequest() *schema.Request {
	return &schema.Request{
		Nodes: map[schema.NodeID]*schema.Node{
			1: {ID: 1, Kind: schema.KindFile, DisplayName: "p.capnp"},
			2: {
				ID: 2, Kind: schema.KindStruct, DisplayName: "P", ScopeID: 1,
				Struct: &schema.StructNode{
					DataWordCount: 2,
					Fields: []schema.Field{
						{Name: "x", DiscriminantValue: 0xFFFF, Slot: &schema.SlotField{Type: schema.Type{Kind: schema.TypeInt64}, Offset: 0}},
						{Name: "y", DiscriminantValue: 0xFFFF, Slot: &schema.SlotField{Type: schema.Type{Kind: schema.TypeInt64}, Offset: 8}},
					},
				},
			},
		},
		RequestedFiles: []schema.RequestedFile{
			{ID: 1, Filename: "p.capnp", ConvertCase: true},
		},
	}
}

func TestGenerateTwoFieldStruct(t *testing.T) {
	results, err := Generate(pRequest())
	require.NoError(t, err)
	require.Len(t, results, 1)
	src := results[0].Source

	assert.Contains(t, src, "type P struct{ s capnp.Struct }")
	assert.Contains(t, src, "func NewP(seg *capnp.Segment) (P, error)")
	assert.Contains(t, src, "func NewRootP(msg *capnp.Message) (P, error)")
	assert.Contains(t, src, "func (v P) X() int64 {")
	assert.Contains(t, src, "func (v P) SetX(x int64) error { return v.s.SetInt64(0, x, int64(0)) }")
	assert.Contains(t, src, "func (v P) Y() int64 {")
	assert.Contains(t, src, "func (v P) SetY(x int64) error { return v.s.SetInt64(8, x, int64(0)) }")
	assert.Equal(t, "p.capnp.go", results[0].Filename)
}

// shapeRequest builds `struct Shape { union { circle @0 :Void; square @1
// :Int64; } }` (scenario S2).
func shapeRequest() *schema.Request {
	return &schema.Request{
		Nodes: map[schema.NodeID]*schema.Node{
			1: {ID: 1, Kind: schema.KindFile, DisplayName: "shape.capnp"},
			2: {
				ID: 2, Kind: schema.KindStruct, DisplayName: "Shape", ScopeID: 1,
				Struct: &schema.StructNode{
					DataWordCount:      2,
					DiscriminantCount:  1,
					DiscriminantOffset: 0,
					Fields: []schema.Field{
						{Name: "circle", DiscriminantValue: 0, Slot: &schema.SlotField{Type: schema.Type{Kind: schema.TypeVoid}}},
						{Name: "square", DiscriminantValue: 1, Slot: &schema.SlotField{Type: schema.Type{Kind: schema.TypeInt64}, Offset: 8}},
					},
				},
			},
		},
		RequestedFiles: []schema.RequestedFile{
			{ID: 1, Filename: "shape.capnp", ConvertCase: true},
		},
	}
}

func TestGenerateUnion(t *testing.T) {
	results, err := Generate(shapeRequest())
	require.NoError(t, err)
	src := results[0].Source

	assert.Contains(t, src, "type Shape_Which uint16")
	assert.Contains(t, src, "Shape_Circle Shape_Which = 0")
	assert.Contains(t, src, "Shape_Square Shape_Which = 1")
	assert.Contains(t, src, "func (v Shape) Which() Shape_Which {")
	assert.Contains(t, src, "func NewShape_Square(seg *capnp.Segment, v int64) (Shape, error) {")
	assert.Contains(t, src, "if v.Which() != Shape_Square { return int64(0) }")
	assert.True(t, strings.Contains(src, "NewShape_Circle"))

	// The circle arm is Void: its constructor must stamp the discriminant
	// and return, never call a SetCircle method (emitVoidField emits no
	// setter, so such a call would not compile).
	circleIdx := strings.Index(src, "func NewShape_Circle")
	require.GreaterOrEqual(t, circleIdx, 0)
	nextFunc := strings.Index(src[circleIdx+1:], "\nfunc ")
	require.GreaterOrEqual(t, nextFunc, 0)
	circleBody := src[circleIdx : circleIdx+1+nextFunc]
	assert.NotContains(t, circleBody, "SetCircle")
}

func TestNameCollisionSuffix(t *testing.T) {
	nt := NewNameTable()
	a := nt.Resolve("scope", 1, "Foo")
	assert.Equal(t, "Foo", a)

	// A different node (id 2) with the same candidate name collides and
	// must be suffixed, not silently collapsed onto "Foo" (spec.md §4.4
	// "Collisions are resolved by appending a numeric suffix").
	b := nt.Resolve("scope", 2, "Foo")
	assert.Equal(t, "Foo2", b)

	// Re-resolving node 1 (e.g. on a later generation pass) must still
	// agree with its first answer.
	again := nt.Resolve("scope", 1, "Foo")
	assert.Equal(t, "Foo", again)
}

func TestToGoNameConvertCase(t *testing.T) {
	assert.Equal(t, "FooBar", ToGoName("fooBar", true))
	assert.Equal(t, "FooBar", ToGoName("fooBar", false))
	assert.Equal(t, "X", ToGoName("x", true))
}
