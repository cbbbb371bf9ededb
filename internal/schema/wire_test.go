package schema

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capnweave/capnp"
)

// schemaPretty formats Node/StructNode/EnumNode values for structural-diff
// test failures, mirroring zombiezen.com/go/capnproto2/pogs's own
// package-level pretty.Config.
var schemaPretty = &pretty.Config{
	Compact:        true,
	SkipZeroFields: true,
}

func sampleRequest() *Request {
	return &Request{
		Nodes: map[NodeID]*Node{
			1: {ID: 1, Kind: KindFile, DisplayName: "example.capnp"},
			2: {
				ID: 2, Kind: KindStruct, DisplayName: "P", ScopeID: 1,
				Struct: &StructNode{
					DataWordCount: 2,
					Fields: []Field{
						{Name: "x", Ordinal: 0, DiscriminantValue: 0xFFFF, Slot: &SlotField{Type: Type{Kind: TypeInt64}, Offset: 0}},
						{Name: "y", Ordinal: 1, DiscriminantValue: 0xFFFF, Slot: &SlotField{Type: Type{Kind: TypeInt64}, Offset: 8}},
					},
				},
			},
			3: {
				ID: 3, Kind: KindEnum, DisplayName: "Color", ScopeID: 1,
				Enum: &EnumNode{Enumerants: []string{"red", "green", "blue"}},
			},
		},
		RequestedFiles: []RequestedFile{
			{ID: 1, Filename: "example.capnp", ConvertCase: true},
		},
	}
}

// TestEncodeDecodeRequestRoundTrip exercises the schema wire encoding's own
// round trip through this module's runtime (components 2-4), per
// DESIGN.md's note that the schema package owns both ends of the wire.
func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	req := sampleRequest()
	msg, err := EncodeRequest(req)
	require.NoError(t, err)

	raw, err := capnp.Marshal(msg)
	require.NoError(t, err)

	rtMsg, err := capnp.Unmarshal(raw)
	require.NoError(t, err)

	got, err := DecodeRequest(rtMsg)
	require.NoError(t, err)

	require.Len(t, got.Nodes, 3)
	structNode := got.Nodes[2]
	require.NotNil(t, structNode)
	assert.Equal(t, "P", structNode.DisplayName)
	assert.EqualValues(t, 1, structNode.ScopeID)
	require.NotNil(t, structNode.Struct)
	assert.EqualValues(t, 2, structNode.Struct.DataWordCount)
	require.Len(t, structNode.Struct.Fields, 2)
	assert.Equal(t, "x", structNode.Struct.Fields[0].Name)
	assert.Equal(t, "y", structNode.Struct.Fields[1].Name)
	assert.Equal(t, TypeInt64, structNode.Struct.Fields[1].Slot.Type.Kind)
	assert.EqualValues(t, 8, structNode.Struct.Fields[1].Slot.Offset)

	enumNode := got.Nodes[3]
	require.NotNil(t, enumNode)
	require.NotNil(t, enumNode.Enum)
	assert.Equal(t, []string{"red", "green", "blue"}, enumNode.Enum.Enumerants)

	require.Len(t, got.RequestedFiles, 1)
	assert.Equal(t, "example.capnp", got.RequestedFiles[0].Filename)
	assert.True(t, got.RequestedFiles[0].ConvertCase)

	// The struct node's Fields must structurally round-trip field-for-field,
	// not merely agree on the two properties already spot-checked above.
	wantFields := req.Nodes[2].Struct.Fields
	if diff := schemaPretty.Compare(wantFields, structNode.Struct.Fields); diff != "" {
		t.Errorf("struct fields round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestChildrenByScope(t *testing.T) {
	req := sampleRequest()
	kids := req.ChildrenByScope()
	fileKids := kids[1]
	require.Len(t, fileKids, 2)
	assert.EqualValues(t, 2, fileKids[0].ID)
	assert.EqualValues(t, 3, fileKids[1].ID)
}

func TestLookupUnresolvedNode(t *testing.T) {
	req := sampleRequest()
	_, err := req.Lookup(999)
	require.Error(t, err)
	assert.ErrorIs(t, err, capnp.ErrSchema)
}
