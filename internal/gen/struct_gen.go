package gen

import (
	"github.com/pkg/errors"

	"github.com/capnweave/capnp/internal/schema"
)

// emitDefinition emits per-struct: data/ptr word counts, the union tag
// enum (if any), one accessor per field, and constructors (spec.md
// §4.4 "Definition pass"). Enum definitions emit their enumerant
// constants and const nodes a Go constant. An interface node emits only
// a comment line (spec.md §1 Non-goals: the RPC/capability layer is out
// of scope, so interface method stubs are not generated); annotation and
// other node kinds emit nothing.
func (g *Generator) emitDefinition(p *Printer, n *schema.Node) error {
	switch n.Kind {
	case schema.KindStruct:
		return g.emitStructDefinition(p, n)
	case schema.KindEnum:
		g.emitEnumDefinition(p, n)
		return nil
	case schema.KindConst:
		return g.emitConstDefinition(p, n)
	case schema.KindInterface:
		// Out of scope per spec.md §1; record the node's existence as a
		// comment so generated output stays grep-able against the
		// schema, with no method stubs.
		p.Linef("// %s is an interface node; the RPC layer is out of scope.", n.DisplayName)
		return nil
	default:
		return nil
	}
}

func (g *Generator) emitEnumDefinition(p *Printer, n *schema.Node) {
	name := g.goName[n.ID]
	p.Line("const (")
	p.indent++
	for i, enumerant := range n.Enum.Enumerants {
		goEnumerant := ToGoName(enumerant, true)
		p.Linef("%s_%s %s = %d", name, goEnumerant, name, i)
	}
	p.indent--
	p.Line(")")
	p.Blank()
}

func (g *Generator) emitConstDefinition(p *Printer, n *schema.Node) error {
	name := g.goName[n.ID]
	goType, err := g.goTypeName(n.Const.Type)
	if err != nil {
		return errors.Wrapf(err, "const %s", n.DisplayName)
	}
	lit, err := constLiteral(n.Const.Type, n.Const.Value)
	if err != nil {
		return err
	}
	if n.Const.Type.Kind == schema.TypeFloat32 || n.Const.Type.Kind == schema.TypeFloat64 {
		g.usesMath = true
	}
	p.Linef("const %s %s = %s", name, goType, lit)
	return nil
}

func (g *Generator) emitStructDefinition(p *Printer, n *schema.Node) error {
	for _, child := range g.sortedChildren(n.ID) {
		if err := g.emitDefinition(p, child); err != nil {
			return err
		}
	}

	name := g.goName[n.ID]
	sn := n.Struct
	size := "capnp.ObjectSize{DataWords: " + itoa(int(sn.DataWordCount)) + ", PointerCount: " + itoa(int(sn.PointerCount)) + "}"

	p.Linef("func New%s(seg *capnp.Segment) (%s, error) {", name, name)
	p.Linef("\tst, err := capnp.NewStruct(seg, %s)", size)
	p.Linef("\tif err != nil {")
	p.Linef("\t\treturn %s{}, err", name)
	p.Linef("\t}")
	p.Linef("\treturn %s{s: st}, nil", name)
	p.Linef("}")
	p.Blank()

	p.Linef("func (v %s) ToStruct() capnp.Struct { return v.s }", name)
	p.Blank()

	if sn.DiscriminantCount > 0 {
		g.emitUnionTag(p, name, sn)
	}

	for _, f := range sn.Fields {
		if err := g.emitField(p, name, sn, f); err != nil {
			return errors.Wrapf(err, "struct %s field %s", n.DisplayName, f.Name)
		}
	}

	if sn.DiscriminantCount > 0 {
		if err := g.emitUnionConstructors(p, name, n); err != nil {
			return err
		}
	} else {
		g.emitPlainConstructor(p, name, sn)
	}
	return nil
}

// emitUnionTag emits the 16-bit discriminant enum and its reader,
// modeled on capnpy's struct_.py _emit_tag (spec.md §3 "Union /
// discriminant").
func (g *Generator) emitUnionTag(p *Printer, structName string, sn *schema.StructNode) {
	tagType := structName + "_Which"
	p.Linef("type %s uint16", tagType)
	p.Line("const (")
	p.indent++
	for _, f := range sn.Fields {
		if !f.InUnion() {
			continue
		}
		goField := ToGoName(f.Name, true)
		p.Linef("%s_%s %s = %d", structName, goField, tagType, f.DiscriminantValue)
	}
	p.indent--
	p.Line(")")
	p.Blank()
	p.Linef("func (v %s) Which() %s {", structName, tagType)
	p.Linef("\treturn %s(v.s.UnionTag(%d))", tagType, sn.DiscriminantOffset)
	p.Linef("}")
	p.Blank()
}

// emitPlainConstructor emits NewRoot<Name>, which allocates a non-union
// struct as the message root. It takes no field arguments; fields are
// written afterwards through the generated Set methods.
func (g *Generator) emitPlainConstructor(p *Printer, structName string, sn *schema.StructNode) {
	size := "capnp.ObjectSize{DataWords: " + itoa(int(sn.DataWordCount)) + ", PointerCount: " + itoa(int(sn.PointerCount)) + "}"
	p.Linef("func NewRoot%s(msg *capnp.Message) (%s, error) {", structName, structName)
	p.Linef("\tst, err := capnp.NewRootStruct(msg, %s)", size)
	p.Linef("\tif err != nil {")
	p.Linef("\t\treturn %s{}, err", structName)
	p.Linef("\t}")
	p.Linef("\treturn %s{s: st}, nil", structName)
	p.Linef("}")
	p.Blank()
}

// emitUnionConstructors emits one constructor per union arm, each of
// which stamps that arm's discriminant and sets only that arm, modeled on
// capnpy's _emit_ctors_union. No unified initialiser taking several arms
// is emitted, and the generated code does not call capnp.CheckUnionArm.
func (g *Generator) emitUnionConstructors(p *Printer, structName string, n *schema.Node) error {
	sn := n.Struct
	for _, f := range sn.Fields {
		if !f.InUnion() {
			continue
		}
		goField := ToGoName(f.Name, true)
		argType, err := g.fieldGoType(f)
		if err != nil {
			return err
		}
		p.Linef("// New%s_%s allocates a new %s with the %s union arm active.", structName, goField, structName, f.Name)
		p.Linef("func New%s_%s(seg *capnp.Segment, v %s) (%s, error) {", structName, goField, argType, structName)
		p.Linef("\tst, err := New%s(seg)", structName)
		p.Linef("\tif err != nil {")
		p.Linef("\t\treturn %s{}, err", structName)
		p.Linef("\t}")
		p.Linef("\tif err := st.s.SetUnionTag(%d, %d); err != nil {", sn.DiscriminantOffset, f.DiscriminantValue)
		p.Linef("\t\treturn %s{}, err", structName)
		p.Linef("\t}")
		setterBody, err := g.setterStatements(f, "st", "v")
		if err != nil {
			return err
		}
		for _, line := range setterBody {
			p.Linef("\t%s", line)
		}
		p.Linef("\treturn st, nil")
		p.Linef("}")
		p.Blank()
	}
	return nil
}
