package capnp

import (
	"encoding/binary"
	"io"
)

// maxStreamSegments bounds the segment count accepted from an untrusted
// stream, guarding against a hostile header claiming billions of
// segments before any data has been validated.
const maxStreamSegments = 1 << 16

// Marshal serialises msg into a single framed byte stream: a header of
// segment_count-1 (u32 LE) followed by segment_count u32 LE word-lengths,
// padded to 8-byte alignment, followed by each segment's bytes (spec.md
// §6 "Wire format" / §4.3 "Finalisation").
func Marshal(msg *Message) ([]byte, error) {
	n := len(msg.segments)
	if n == 0 {
		return nil, wrapf(ErrOutOfBounds, "message has no segments")
	}
	headerWords := (n + 2) / 2 // (count word + n length words), padded to a whole word
	header := make([]byte, headerWords*8)
	binary.LittleEndian.PutUint32(header[0:4], uint32(n-1))
	for i, s := range msg.segments {
		if len(s.data)%int(wordSize) != 0 {
			return nil, wrapf(ErrOutOfBounds, "segment %d length %d is not a whole word count", i, len(s.data))
		}
		binary.LittleEndian.PutUint32(header[4+4*i:8+4*i], uint32(len(s.data)/int(wordSize)))
	}
	total := len(header)
	for _, s := range msg.segments {
		total += len(s.data)
	}
	out := make([]byte, 0, total)
	out = append(out, header...)
	for _, s := range msg.segments {
		out = append(out, s.data...)
	}
	return out, nil
}

// WriteMessage writes Marshal(msg) to w.
func WriteMessage(w io.Writer, msg *Message) error {
	b, err := Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Unmarshal parses a single framed message out of b, per the wire format
// Marshal produces. It is the non-streaming counterpart to Decoder,
// useful when the whole message is already buffered.
func Unmarshal(b []byte) (*Message, error) {
	msg, rest, err := unmarshalOne(b)
	if err != nil {
		return nil, err
	}
	_ = rest
	return msg, nil
}

func unmarshalOne(b []byte) (msg *Message, rest []byte, err error) {
	if len(b) < 4 {
		if len(b) == 0 {
			return nil, nil, ErrEndOfStream
		}
		return nil, nil, wrapf(ErrOutOfBounds, "truncated stream header")
	}
	segCount := int(binary.LittleEndian.Uint32(b[0:4])) + 1
	if segCount <= 0 || segCount > maxStreamSegments {
		return nil, nil, wrapf(ErrMalformedPointer, "implausible segment count %d", segCount)
	}
	headerWords := (segCount + 2) / 2
	headerLen := headerWords * 8
	if len(b) < headerLen {
		return nil, nil, wrapf(ErrOutOfBounds, "truncated segment-length table")
	}
	lengths := make([]int, segCount)
	for i := 0; i < segCount; i++ {
		lengths[i] = int(binary.LittleEndian.Uint32(b[4+4*i : 8+4*i]))
	}
	off := headerLen
	m := &Message{growthHint: defaultFirstSegmentWords * wordSize}
	for i, words := range lengths {
		n := words * int(wordSize)
		if off+n > len(b) {
			return nil, nil, wrapf(ErrOutOfBounds, "truncated segment %d (want %d bytes)", i, n)
		}
		m.segments = append(m.segments, &Segment{msg: m, id: SegmentID(i), data: b[off : off+n]})
		off += n
	}
	return m, b[off:], nil
}

// Decoder reads a sequence of framed messages from an io.Reader, as
// produced by repeated Marshal/WriteMessage calls (spec.md S6 "Decode
// stream").
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder returns a Decoder reading framed messages from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads and returns the next framed message. It returns
// ErrEndOfStream (not a failure; equivalent to a clean io.EOF) when the
// stream ends exactly on a message boundary, and ErrOutOfBounds if the
// stream ends mid-message.
func (d *Decoder) Decode() (*Message, error) {
	header, err := d.readN(4)
	if err != nil {
		if err == io.EOF {
			return nil, ErrEndOfStream
		}
		return nil, wrapf(ErrOutOfBounds, "reading stream header: %v", err)
	}
	segCount := int(binary.LittleEndian.Uint32(header)) + 1
	if segCount <= 0 || segCount > maxStreamSegments {
		return nil, wrapf(ErrMalformedPointer, "implausible segment count %d", segCount)
	}
	headerWords := (segCount + 2) / 2 // matches Marshal: count word + segCount length words, padded to 8 bytes
	lenTableBytes := headerWords*8 - 4
	lenBytes, err := d.readN(lenTableBytes)
	if err != nil {
		return nil, wrapf(ErrOutOfBounds, "reading segment-length table: %v", err)
	}
	lengths := make([]int, segCount)
	for i := 0; i < segCount; i++ {
		lengths[i] = int(binary.LittleEndian.Uint32(lenBytes[4*i : 4*i+4]))
	}
	m := &Message{growthHint: defaultFirstSegmentWords * wordSize}
	for i, words := range lengths {
		n := words * int(wordSize)
		data, err := d.readN(n)
		if err != nil {
			return nil, wrapf(ErrOutOfBounds, "reading segment %d: %v", i, err)
		}
		m.segments = append(m.segments, &Segment{msg: m, id: SegmentID(i), data: data})
	}
	return m, nil
}

func (d *Decoder) readN(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(d.r, buf)
	if err == io.ErrUnexpectedEOF {
		err = io.ErrUnexpectedEOF
	}
	return buf, err
}
