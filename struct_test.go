package capnp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTwoFieldStructRoundTrip is scenario S1: struct P { x @0 :Int64;
// y @1 :Int64; }, built then read back byte-for-byte.
func TestTwoFieldStructRoundTrip(t *testing.T) {
	msg, seg := NewMessage()
	size := ObjectSize{DataWords: 2}
	st, err := NewRootStruct(msg, size)
	require.NoError(t, err)
	require.NoError(t, st.SetInt64(0, 1, 0))
	require.NoError(t, st.SetInt64(8, 2, 0))

	want := []byte{
		0x00, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, want, seg.Data())

	out, err := Marshal(msg)
	require.NoError(t, err)
	rt, err := Unmarshal(out)
	require.NoError(t, err)
	root, err := RootStruct(rt, size)
	require.NoError(t, err)
	assert.EqualValues(t, 1, root.Int64(0, 0))
	assert.EqualValues(t, 2, root.Int64(8, 0))
}

// TestDefaultInvariant checks Testable property 6: reading a zero-storage
// primitive slot yields the field's schema default.
func TestDefaultInvariant(t *testing.T) {
	msg, _ := NewMessage()
	st, err := NewRootStruct(msg, ObjectSize{DataWords: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 42, st.Int32(0, 42))
	assert.EqualValues(t, 0, st.Int32(0, 0))
}

// TestXORDefaultRoundTrip confirms a non-zero default round-trips through
// storage: the stored word is the value XORed with the default, and
// reading XORs it back.
func TestXORDefaultRoundTrip(t *testing.T) {
	msg, _ := NewMessage()
	st, err := NewRootStruct(msg, ObjectSize{DataWords: 1})
	require.NoError(t, err)
	require.NoError(t, st.SetUint32(0, 7, 42))
	assert.EqualValues(t, 7, st.Uint32(0, 42))
	require.NoError(t, st.SetUint32(0, 42, 42))
	assert.EqualValues(t, 42, st.Uint32(0, 42))
}

func TestBoolBitPacking(t *testing.T) {
	msg, _ := NewMessage()
	st, err := NewRootStruct(msg, ObjectSize{DataWords: 1})
	require.NoError(t, err)
	require.NoError(t, st.SetBool(0, true, false))
	require.NoError(t, st.SetBool(3, true, false))
	assert.True(t, st.Bool(0, false))
	assert.False(t, st.Bool(1, false))
	assert.True(t, st.Bool(3, false))
}

func TestPointerSlotOutOfRangeIsDefault(t *testing.T) {
	msg, _ := NewMessage()
	st, err := NewRootStruct(msg, ObjectSize{})
	require.NoError(t, err)
	p, err := st.Ptr(0)
	require.NoError(t, err)
	assert.False(t, p.IsValid())
}
