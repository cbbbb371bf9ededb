// Package gen is the schema-to-accessor code generator of spec.md §4.4:
// "The generator is text-producing; it takes a sink that accepts lines
// and indented blocks." Modeled on capnpy's printer.py Printer class
// (push/pop indent, write/writeline), adapted to emit Go.
package gen

import (
	"fmt"
	"strings"
)

// Printer is an indenting text sink. Generated code calls Line/Block
// instead of building strings by hand, so indentation always matches
// brace nesting regardless of how many passes touch a given struct.
type Printer struct {
	b      strings.Builder
	indent int
}

// NewPrinter returns an empty Printer at indent level 0.
func NewPrinter() *Printer { return &Printer{} }

// Line writes one line at the current indent level, followed by a
// newline. No trailing newline is added if s already ends in one.
func (p *Printer) Line(s string) {
	p.b.WriteString(strings.Repeat("\t", p.indent))
	p.b.WriteString(s)
	p.b.WriteByte('\n')
}

// Linef is Line with fmt.Sprintf-style formatting.
func (p *Printer) Linef(format string, args ...interface{}) {
	p.Line(fmt.Sprintf(format, args...))
}

// Blank writes an empty line.
func (p *Printer) Blank() { p.b.WriteByte('\n') }

// Block writes header, increases the indent, runs body, decreases the
// indent, then writes "}" (capnpy's printer.py has an analogous
// `with printer.block(header):` context manager).
func (p *Printer) Block(header string, body func()) {
	p.Line(header)
	p.indent++
	body()
	p.indent--
	p.Line("}")
}

// String returns the accumulated text.
func (p *Printer) String() string { return p.b.String() }
