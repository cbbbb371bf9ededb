package capnp

import "encoding/binary"

// SegmentID identifies a segment within a Message.
type SegmentID uint32

// Segment is a contiguous, word-aligned region of a Message's data. It is
// the Buffer component of spec.md §4: a byte slice with little-endian
// primitive read/write at arbitrary byte offsets.
type Segment struct {
	msg  *Message
	id   SegmentID
	data []byte
}

// Message returns the message that owns s.
func (s *Segment) Message() *Message { return s.msg }

// ID returns the segment's index within its message.
func (s *Segment) ID() SegmentID { return s.id }

// Data returns the raw bytes backing s. Callers must not retain it past
// the message's lifetime and must not mutate it for a reader-only segment.
func (s *Segment) Data() []byte { return s.data }

func (s *Segment) inBounds(addr Address) bool {
	return addr < Address(len(s.data))
}

func (s *Segment) regionInBounds(base Address, sz Size) bool {
	end, ok := base.addSize(sz)
	if !ok {
		return false
	}
	return end <= Address(len(s.data))
}

func (s *Segment) slice(base Address, sz Size) ([]byte, error) {
	if !s.regionInBounds(base, sz) {
		return nil, wrapf(ErrOutOfBounds, "segment %d: [%d, %d+%d)", s.id, base, base, sz)
	}
	return s.data[base : base+Address(sz)], nil
}

func (s *Segment) readUint8(addr Address) (uint8, error) {
	b, err := s.slice(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *Segment) readUint16(addr Address) (uint16, error) {
	b, err := s.slice(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *Segment) readUint32(addr Address) (uint32, error) {
	b, err := s.slice(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *Segment) readUint64(addr Address) (uint64, error) {
	b, err := s.slice(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (s *Segment) readRawPointer(addr Address) (rawPointer, error) {
	v, err := s.readUint64(addr)
	return rawPointer(v), err
}

func (s *Segment) writeUint8(addr Address, v uint8) error {
	b, err := s.slice(addr, 1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (s *Segment) writeUint16(addr Address, v uint16) error {
	b, err := s.slice(addr, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, v)
	return nil
}

func (s *Segment) writeUint32(addr Address, v uint32) error {
	b, err := s.slice(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

func (s *Segment) writeUint64(addr Address, v uint64) error {
	b, err := s.slice(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

func (s *Segment) writeRawPointer(addr Address, v rawPointer) error {
	return s.writeUint64(addr, uint64(v))
}

// resolvePointer follows a chain of far pointers (single or double hop)
// starting from the word at off in s, returning the segment, address, and
// raw pointer word the chain terminates at. Per spec.md §4.1 and
// Testable property 5, the result is indistinguishable from reading a
// direct pointer at that location.
func (s *Segment) resolvePointer(off Address, val rawPointer) (*Segment, Address, rawPointer, error) {
	d, err := decodePointer(val)
	if err != nil {
		return nil, 0, 0, err
	}
	switch d.Kind {
	case farPointer:
		target, err := s.msg.Segment(SegmentID(d.SegmentID))
		if err != nil {
			return nil, 0, 0, err
		}
		if d.DoubleFar {
			if !target.regionInBounds(d.LandingPad, wordSize*2) {
				return nil, 0, 0, wrapf(ErrMalformedPointer, "double-far landing pad out of bounds")
			}
			farWord, err := target.readRawPointer(d.LandingPad)
			if err != nil {
				return nil, 0, 0, err
			}
			tagWord, err := target.readRawPointer(d.LandingPad + Address(wordSize))
			if err != nil {
				return nil, 0, 0, err
			}
			farDecoded, err := decodePointer(farWord)
			if err != nil {
				return nil, 0, 0, err
			}
			if farDecoded.Kind != farPointer {
				return nil, 0, 0, wrapf(ErrMalformedPointer, "double-far tag is not itself far")
			}
			finalSeg, err := s.msg.Segment(SegmentID(farDecoded.SegmentID))
			if err != nil {
				return nil, 0, 0, err
			}
			// The tag word describes the content as if it sat at offset
			// -1 relative to itself; landing at address 0 recovers that.
			return finalSeg, 0, landingTag(tagWord, farDecoded.LandingPad), nil
		}
		if !target.regionInBounds(d.LandingPad, wordSize) {
			return nil, 0, 0, wrapf(ErrMalformedPointer, "far landing pad out of bounds")
		}
		next, err := target.readRawPointer(d.LandingPad)
		if err != nil {
			return nil, 0, 0, err
		}
		return target.resolvePointer(d.LandingPad, next)
	default:
		return s, off, val, nil
	}
}

// landingTag rewrites tagWord (a struct/list tag with a meaningless
// offset, describing the content at address contentAddr) into an
// equivalent pointer whose offset is relative to address 0, so that it
// can be read as if by resolvePointer's direct-pointer path.
func landingTag(tagWord rawPointer, contentAddr Address) rawPointer {
	d, err := decodePointer(tagWord)
	if err != nil {
		return tagWord
	}
	// The content sits at contentAddr; a pointer living at address 0
	// (i.e. -1 word before the content's base of "address 0 + 8") needs
	// offset such that resolve(0) == contentAddr. resolve(0) = 0+8+off*8.
	d.Off = offset(int64(contentAddr)/8 - 1)
	return encodePointer(d)
}
