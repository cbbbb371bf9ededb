package capnp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPair(t *testing.T, x, y int64) Ptr {
	t.Helper()
	_, seg := NewMessage()
	st, err := NewStruct(seg, ObjectSize{DataWords: 2})
	require.NoError(t, err)
	require.NoError(t, st.SetInt64(0, x, 0))
	require.NoError(t, st.SetInt64(8, y, 0))
	return st.ToPtr()
}

// TestEqualReflexiveSymmetric checks Testable property 3's reflexivity
// and symmetry over struct content.
func TestEqualReflexiveSymmetric(t *testing.T) {
	a := buildPair(t, 1, 2)
	b := buildPair(t, 1, 2)
	c := buildPair(t, 1, 3)

	ok, err := Equal(a, a)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Equal(a, b)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = Equal(b, a)
	require.NoError(t, err)
	assert.True(t, ok, "equality must be symmetric")

	ok, err = Equal(a, c)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEqualNullPointers(t *testing.T) {
	ok, err := Equal(Ptr{}, Ptr{})
	require.NoError(t, err)
	assert.True(t, ok)

	a := buildPair(t, 0, 0)
	ok, err = Equal(a, Ptr{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEqualDifferentSizeZeroExtended(t *testing.T) {
	_, seg := NewMessage()
	small, err := NewStruct(seg, ObjectSize{DataWords: 1})
	require.NoError(t, err)
	require.NoError(t, small.SetInt64(0, 9, 0))

	big, err := NewStruct(seg, ObjectSize{DataWords: 2})
	require.NoError(t, err)
	require.NoError(t, big.SetInt64(0, 9, 0))
	// big's second word stays zero, matching small's implicit zero-extension.

	ok, err := Equal(small.ToPtr(), big.ToPtr())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, big.SetInt64(8, 1, 0))
	ok, err = Equal(small.ToPtr(), big.ToPtr())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListEqualityContentBased(t *testing.T) {
	_, seg1 := NewMessage()
	l1, err := NewScalarList(seg1, sizeFourBytes, 3)
	require.NoError(t, err)
	require.NoError(t, l1.SetUint32At(0, 1))
	require.NoError(t, l1.SetUint32At(1, 2))
	require.NoError(t, l1.SetUint32At(2, 3))

	_, seg2 := NewMessage()
	l2, err := NewScalarList(seg2, sizeFourBytes, 3)
	require.NoError(t, err)
	require.NoError(t, l2.SetUint32At(0, 1))
	require.NoError(t, l2.SetUint32At(1, 2))
	require.NoError(t, l2.SetUint32At(2, 3))

	ok, err := Equal(l1.ToPtr(), l2.ToPtr())
	require.NoError(t, err)
	assert.True(t, ok, "lists with identical content across different messages must be equal")

	require.NoError(t, l2.SetUint32At(2, 99))
	ok, err = Equal(l1.ToPtr(), l2.ToPtr())
	require.NoError(t, err)
	assert.False(t, ok)
}
