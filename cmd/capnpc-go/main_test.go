package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capnweave/capnp"
	"github.com/capnweave/capnp/internal/schema"
)

// encodedPRequest builds the wire bytes for scenario S1's
// `struct P { x @0 :Int64; y @1 :Int64; }` CodeGeneratorRequest.
func encodedPRequest(t *testing.T) []byte {
	t.Helper()
	req := &schema.Request{
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
	msg, err := schema.EncodeRequest(req)
	require.NoError(t, err)
	raw, err := capnp.Marshal(msg)
	require.NoError(t, err)
	return raw
}

func TestRunWritesGeneratedFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	raw := encodedPRequest(t)
	logger := zerolog.New(discardWriter{}).Level(zerolog.Disabled)

	err = run(bytes.NewReader(raw), "", logger)
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dir, "p.capnp.go"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "type P struct{ s capnp.Struct }")
	assert.Contains(t, string(out), "package capnpgen")
}

func TestRunDumpRequestWritesRawBytes(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	raw := encodedPRequest(t)
	dumpPath := filepath.Join(dir, "dump.bin")
	logger := zerolog.New(discardWriter{}).Level(zerolog.Disabled)

	err = run(bytes.NewReader(raw), dumpPath, logger)
	require.NoError(t, err)

	dumped, err := os.ReadFile(dumpPath)
	require.NoError(t, err)
	assert.Equal(t, raw, dumped)
}

func TestRunMalformedRequestIsError(t *testing.T) {
	logger := zerolog.New(discardWriter{}).Level(zerolog.Disabled)
	err := run(bytes.NewReader([]byte("not a capnp message")), "", logger)
	require.Error(t, err)
}

// discardWriter drops everything written to it, so these tests don't
// spam test output with log lines.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
