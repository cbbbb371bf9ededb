package capnp

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Error taxonomy. Every decode/encode failure surfaced by this package is
// one of these sentinels (possibly wrapped with call-site context via
// github.com/pkg/errors, so errors.Is still matches).
var (
	// ErrMalformedPointer indicates a pointer word whose offset, kind, or
	// size tag is out of range for the segment it lives in.
	ErrMalformedPointer = errors.New("capnp: malformed pointer")

	// ErrOutOfBounds indicates a read or write beyond a segment's data.
	ErrOutOfBounds = errors.New("capnp: address out of bounds")

	// ErrTypeMismatch indicates the builder was asked to pack a value of
	// the wrong element type into a typed list or slot.
	ErrTypeMismatch = errors.New("capnp: type mismatch")

	// ErrUnionArmConflict indicates a union constructor received more
	// than one arm's worth of arguments, or none.
	ErrUnionArmConflict = errors.New("capnp: conflicting union arm")

	// ErrSchema indicates a missing node, unresolved scope id, or
	// unknown field kind while compiling a schema.
	ErrSchema = errors.New("capnp: schema error")

	// ErrEndOfStream indicates a framed reader reached a clean EOF
	// between messages. It is not a failure; callers should treat it
	// like io.EOF.
	ErrEndOfStream = errors.New("capnp: end of stream")

	// ErrIndexOutOfRange indicates an out-of-range list index.
	ErrIndexOutOfRange = errors.New("capnp: index out of range")
)

// wrapf annotates err with a formatted call-site message while preserving
// errors.Is/errors.As matching against the sentinels above.
func wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}
