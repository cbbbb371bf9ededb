package capnp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTinyMessage builds a Message whose first segment has just enough
// room for a handful of words, so a later allocation is forced into a
// second segment and a far pointer is required to reach it.
func newTinyMessage(words int) (*Message, *Segment) {
	m := &Message{growthHint: defaultFirstSegmentWords * wordSize}
	first := &Segment{msg: m, id: 0, data: make([]byte, 0, words*8)}
	m.segments = append(m.segments, first)
	return m, first
}

// TestFarPointer is scenario S5: exhausting segment 0 forces the builder
// to emit a far pointer to reach the cross-segment struct; reading the
// field back must be indistinguishable from a same-segment read
// (Testable property 5).
func TestFarPointer(t *testing.T) {
	msg, seg0 := newTinyMessage(4) // room for the root pointer + a tiny struct, nothing more
	root, err := NewRootStruct(msg, ObjectSize{PointerCount: 1})
	require.NoError(t, err)

	// Fill the rest of segment 0's capacity so the next struct
	// allocation cannot fit and must land in a new segment.
	for hasCapacity(seg0.data, wordSize) {
		if _, _, err := msg.alloc(seg0, wordSize); err != nil {
			break
		}
	}

	child, err := NewStruct(seg0, ObjectSize{DataWords: 1})
	require.NoError(t, err)
	require.NoError(t, child.SetInt64(0, 99, 0))
	require.Greater(t, int(child.seg.ID()), 0, "child struct should have landed in a new segment")

	require.NoError(t, root.SetPtr(0, child.ToPtr()))

	raw, err := seg0.readRawPointer(root.off)
	require.NoError(t, err)
	d, err := decodePointer(raw)
	require.NoError(t, err)
	assert.Equal(t, farPointer, d.Kind, "cross-segment target must be addressed via a far pointer")

	p, err := root.Ptr(0)
	require.NoError(t, err)
	require.True(t, p.IsValid())
	assert.EqualValues(t, 99, p.Struct().Int64(0, 0))
}

// TestDoubleFarPointer forces the double-far path: both the target
// segment and the writing segment are full, so the landing pad itself
// must live in a third segment.
func TestDoubleFarPointer(t *testing.T) {
	msg, seg0 := newTinyMessage(4)
	root, err := NewRootStruct(msg, ObjectSize{PointerCount: 1})
	require.NoError(t, err)

	for hasCapacity(seg0.data, wordSize) {
		if _, _, err := msg.alloc(seg0, wordSize); err != nil {
			break
		}
	}

	// A second, also-tiny segment holds the target content and is then
	// filled completely so no landing pad can be placed there either.
	seg1 := &Segment{msg: msg, id: SegmentID(len(msg.segments)), data: make([]byte, 0, 8)}
	msg.segments = append(msg.segments, seg1)
	child, err := NewStruct(seg1, ObjectSize{DataWords: 1})
	require.NoError(t, err)
	require.NoError(t, child.SetInt64(0, 7, 0))
	for hasCapacity(seg1.data, wordSize) {
		if _, _, err := msg.alloc(seg1, wordSize); err != nil {
			break
		}
	}

	require.NoError(t, root.SetPtr(0, child.ToPtr()))

	raw, err := seg0.readRawPointer(root.off)
	require.NoError(t, err)
	d, err := decodePointer(raw)
	require.NoError(t, err)
	require.Equal(t, farPointer, d.Kind)
	assert.True(t, d.DoubleFar)

	p, err := root.Ptr(0)
	require.NoError(t, err)
	assert.EqualValues(t, 7, p.Struct().Int64(0, 0))
}
