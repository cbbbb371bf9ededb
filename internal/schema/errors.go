package schema

import (
	"fmt"

	"github.com/capnweave/capnp"
)

// Error is a schema-compilation failure: a missing node, an unresolved
// scope id, or an unknown field kind (spec.md §7 "SchemaError"). It
// unwraps to capnp.ErrSchema so callers can use errors.Is across the
// runtime/schema package boundary.
type Error struct {
	Op     string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("capnp: schema error: %s: %s", e.Op, e.Detail)
}

func (e *Error) Unwrap() error { return capnp.ErrSchema }
