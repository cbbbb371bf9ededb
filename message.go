package capnp

// defaultFirstSegmentWords is the growth hint for a new message's first
// segment (§4.3 Segment policy): 1024 words, doubled on overflow.
const defaultFirstSegmentWords = 1024

// Message is an ordered sequence of Segments (§3 "Segment"). A reader
// Message is built by Decode; a builder Message is built by NewMessage.
// Readers are immutable once constructed and may be shared across
// goroutines; builders are exclusively owned until serialised.
type Message struct {
	segments []*Segment

	// growthHint is the minimum size, in bytes, of the next segment
	// this message allocates. It doubles each time a segment is added
	// so that a long sequence of small allocations doesn't thrash.
	growthHint Size
}

// NewMessage creates an empty builder message with one segment whose
// first word is already reserved (and zeroed) for the root pointer, and
// returns it along with that first segment.
func NewMessage() (*Message, *Segment) {
	m := &Message{growthHint: defaultFirstSegmentWords * wordSize}
	first := &Segment{msg: m, id: 0, data: make([]byte, wordSize, m.growthHint)}
	m.segments = append(m.segments, first)
	return m, first
}

// NumSegments returns the number of segments in m.
func (m *Message) NumSegments() int64 { return int64(len(m.segments)) }

// Segment returns the segment with the given id.
func (m *Message) Segment(id SegmentID) (*Segment, error) {
	if int64(id) >= int64(len(m.segments)) {
		return nil, wrapf(ErrOutOfBounds, "segment %d does not exist (message has %d)", id, len(m.segments))
	}
	return m.segments[id], nil
}

// rootSegment returns segment 0, whose first word holds the message's
// root pointer (spec.md §4.2: the root is conventionally the first
// pointer in the first segment).
func (m *Message) rootSegment() (*Segment, error) {
	return m.Segment(0)
}

// alloc reserves sz zeroed, word-aligned bytes, preferring pref (often
// the segment a caller is currently writing into) if it has room.
// Otherwise it grows pref or creates a new segment, per the Segment
// policy in spec.md §4.3: "When a segment cannot satisfy an allocation,
// a new segment is created and a far pointer is emitted" — alloc itself
// only decides WHERE the bytes live; emitting the far pointer is the
// caller's (writePtr's) job.
func (m *Message) alloc(pref *Segment, sz Size) (*Segment, Address, error) {
	sz = sz.padToWord()
	if pref != nil && hasCapacity(pref.data, sz) {
		return growSegment(pref, sz)
	}
	// Try every existing segment before creating a new one, so readers
	// don't accumulate needless segments when a big block frees up
	// capacity elsewhere (mirrors the "try every segment" allocator
	// strategy common to Cap'n Proto builder arenas).
	for _, s := range m.segments {
		if hasCapacity(s.data, sz) {
			return growSegment(s, sz)
		}
	}
	want := sz
	if want < m.growthHint {
		want = m.growthHint
	}
	ns := &Segment{
		msg:  m,
		id:   SegmentID(len(m.segments)),
		data: make([]byte, 0, want),
	}
	m.segments = append(m.segments, ns)
	if m.growthHint < 1<<30 {
		m.growthHint *= 2
	}
	return growSegment(ns, sz)
}

func hasCapacity(data []byte, sz Size) bool {
	return Size(cap(data)-len(data)) >= sz
}

func growSegment(s *Segment, sz Size) (*Segment, Address, error) {
	addr := Address(len(s.data))
	end := int(addr) + int(sz)
	if end > cap(s.data) {
		return nil, 0, wrapf(ErrOutOfBounds, "segment %d: allocation of %d bytes exceeds reserved capacity", s.id, sz)
	}
	s.data = s.data[:end]
	return s, addr, nil
}
