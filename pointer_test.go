package capnp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPointerRoundTrip exercises Testable property 1: encode(decode(w))
// == w for every well-formed pointer word.
func TestPointerRoundTrip(t *testing.T) {
	tests := []rawPointer{
		0,
		rawStructPointer(0, ObjectSize{DataWords: 2, PointerCount: 0}),
		rawStructPointer(5, ObjectSize{DataWords: 1, PointerCount: 3}),
		rawStructPointer(-1, ObjectSize{}),
		rawListPointer(0, sizeByte, 6),
		rawListPointer(-3, sizeTwoBytes, 1000),
		rawCompositeListPointer(2, 4),
		rawFarPointer(1, 800, false),
		rawFarPointer(7, 0, true),
	}
	for _, w := range tests {
		d, err := decodePointer(w)
		require.NoError(t, err)
		got := encodePointer(d)
		assert.Equal(t, w, got, "encode(decode(%#x))", uint64(w))
	}
}

func TestDecodeNullPointer(t *testing.T) {
	d, err := decodePointer(0)
	require.NoError(t, err)
	assert.Equal(t, decodedPointer{}, d)
}

func TestDecodeStructPointer(t *testing.T) {
	w := rawStructPointer(3, ObjectSize{DataWords: 2, PointerCount: 1})
	d, err := decodePointer(w)
	require.NoError(t, err)
	assert.Equal(t, structPointer, d.Kind)
	assert.EqualValues(t, 3, d.Off)
	assert.Equal(t, ObjectSize{DataWords: 2, PointerCount: 1}, d.StructSize)
}

func TestDecodeListPointer(t *testing.T) {
	w := rawListPointer(-2, sizeEightBytes, 40)
	d, err := decodePointer(w)
	require.NoError(t, err)
	assert.Equal(t, listPointer, d.Kind)
	assert.EqualValues(t, -2, d.Off)
	assert.Equal(t, sizeEightBytes, d.ListTag)
	assert.EqualValues(t, 40, d.ListCount)
}

func TestDecodeFarPointer(t *testing.T) {
	w := rawFarPointer(9, 808, true)
	d, err := decodePointer(w)
	require.NoError(t, err)
	assert.Equal(t, farPointer, d.Kind)
	assert.True(t, d.DoubleFar)
	assert.EqualValues(t, 808, d.LandingPad)
	assert.EqualValues(t, 9, d.SegmentID)
}

func TestUnknownPointerKindIsMalformed(t *testing.T) {
	// kind 3 ("other"/capability) with no capability table to resolve
	// it against is reported as ErrMalformedPointer (spec.md §4.1).
	_, err := decodePointer(rawPointer(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPointer)
}
