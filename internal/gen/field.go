package gen

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/capnweave/capnp/internal/schema"
)

// emitField dispatches accessor emission per field kind (spec.md §4.4
// "Field emission is delegated per field kind"): a group shares its
// parent's storage and is exposed as a nested wrapper; a slot gets a
// Get/Set pair whose shape depends on its Type.Kind.
func (g *Generator) emitField(p *Printer, structName string, sn *schema.StructNode, f schema.Field) error {
	goField := ToGoName(f.Name, true)
	if f.Group != nil {
		groupType, err := g.typeName(f.Group.TypeID)
		if err != nil {
			return err
		}
		p.Linef("func (v %s) %s() %s { return %s{s: v.s} }", structName, goField, groupType, groupType)
		p.Blank()
		return nil
	}
	switch f.Slot.Type.Kind {
	case schema.TypeVoid:
		return g.emitVoidField(p, structName, goField)
	case schema.TypeBool:
		return g.emitBoolField(p, structName, goField, f)
	case schema.TypeInt8, schema.TypeInt16, schema.TypeInt32, schema.TypeInt64,
		schema.TypeUint8, schema.TypeUint16, schema.TypeUint32, schema.TypeUint64:
		return g.emitIntField(p, structName, goField, f)
	case schema.TypeFloat32, schema.TypeFloat64:
		return g.emitFloatField(p, structName, goField, f)
	case schema.TypeEnum:
		return g.emitEnumField(p, structName, goField, f)
	case schema.TypeText:
		return g.emitTextField(p, structName, goField, f)
	case schema.TypeData:
		return g.emitDataField(p, structName, goField, f)
	case schema.TypeStruct:
		return g.emitStructField(p, structName, goField, f)
	case schema.TypeList:
		return g.emitListField(p, structName, goField, f)
	case schema.TypeAnyPointer, schema.TypeInterface:
		return g.emitAnyPointerField(p, structName, goField, f)
	default:
		return errors.Errorf("unknown field kind %d", f.Slot.Type.Kind)
	}
}

func intAccessor(kind schema.TypeKind) (goType, method string) {
	switch kind {
	case schema.TypeInt8:
		return "int8", "Int8"
	case schema.TypeInt16:
		return "int16", "Int16"
	case schema.TypeInt32:
		return "int32", "Int32"
	case schema.TypeInt64:
		return "int64", "Int64"
	case schema.TypeUint8:
		return "uint8", "Uint8"
	case schema.TypeUint16:
		return "uint16", "Uint16"
	case schema.TypeUint32:
		return "uint32", "Uint32"
	default:
		return "uint64", "Uint64"
	}
}

// unionGuard returns the statement a union-member getter emits first,
// so access to an inactive arm returns the default rather than the
// (possibly stale) stored bits — spec.md §4.2 "mismatched access to an
// inactive arm returns the default value ... never an error" — or ""
// when f does not belong to a union.
func unionGuard(structName string, f schema.Field, zeroExpr string) string {
	if !f.InUnion() {
		return ""
	}
	goField := ToGoName(f.Name, true)
	return fmt.Sprintf("\tif v.Which() != %s_%s { return %s }", structName, goField, zeroExpr)
}

func (g *Generator) emitVoidField(p *Printer, structName, goField string) error {
	p.Linef("func (v %s) %s() struct{} { return struct{}{} }", structName, goField)
	p.Blank()
	return nil
}

func (g *Generator) emitBoolField(p *Printer, structName, goField string, f schema.Field) error {
	def := f.Slot.Default.Uint != 0
	p.Linef("func (v %s) %s() bool {", structName, goField)
	if guard := unionGuard(structName, f, fmt.Sprintf("%t", def)); guard != "" {
		p.Line(guard)
	}
	p.Linef("\treturn v.s.Bool(%d, %t)", f.Slot.Offset, def)
	p.Linef("}")
	p.Linef("func (v %s) Set%s(x bool) error { return v.s.SetBool(%d, x, %t) }", structName, goField, f.Slot.Offset, def)
	p.Blank()
	return nil
}

func (g *Generator) emitIntField(p *Printer, structName, goField string, f schema.Field) error {
	goType, method := intAccessor(f.Slot.Type.Kind)
	def := fmt.Sprintf("%s(%d)", goType, f.Slot.Default.Uint)
	p.Linef("func (v %s) %s() %s {", structName, goField, goType)
	if guard := unionGuard(structName, f, def); guard != "" {
		p.Line(guard)
	}
	p.Linef("\treturn v.s.%s(%d, %s)", method, f.Slot.Offset, def)
	p.Linef("}")
	p.Linef("func (v %s) Set%s(x %s) error { return v.s.Set%s(%d, x, %s) }", structName, goField, goType, method, f.Slot.Offset, def)
	p.Blank()
	return nil
}

func (g *Generator) emitFloatField(p *Printer, structName, goField string, f schema.Field) error {
	var goType, method, def string
	if f.Slot.Type.Kind == schema.TypeFloat32 {
		goType, method = "float32", "Float32"
		def = fmt.Sprintf("math.Float32frombits(%d)", uint32(f.Slot.Default.Uint))
	} else {
		goType, method = "float64", "Float64"
		def = fmt.Sprintf("math.Float64frombits(%d)", f.Slot.Default.Uint)
	}
	g.usesMath = true
	p.Linef("func (v %s) %s() %s {", structName, goField, goType)
	if guard := unionGuard(structName, f, def); guard != "" {
		p.Line(guard)
	}
	p.Linef("\treturn v.s.%s(%d, %s)", method, f.Slot.Offset, def)
	p.Linef("}")
	p.Linef("func (v %s) Set%s(x %s) error { return v.s.Set%s(%d, x, %s) }", structName, goField, goType, method, f.Slot.Offset, def)
	p.Blank()
	return nil
}

func (g *Generator) emitEnumField(p *Printer, structName, goField string, f schema.Field) error {
	enumType, err := g.typeName(f.Slot.Type.StructOrEnumOrInterfaceID)
	if err != nil {
		return err
	}
	def := f.Slot.Default.Uint
	p.Linef("func (v %s) %s() %s {", structName, goField, enumType)
	if guard := unionGuard(structName, f, fmt.Sprintf("%s(%d)", enumType, def)); guard != "" {
		p.Line(guard)
	}
	p.Linef("\treturn %s(v.s.Uint16(%d, %d))", enumType, f.Slot.Offset, def)
	p.Linef("}")
	p.Linef("func (v %s) Set%s(x %s) error { return v.s.SetUint16(%d, uint16(x), %d) }", structName, goField, enumType, f.Slot.Offset, def)
	p.Blank()
	return nil
}

func (g *Generator) emitTextField(p *Printer, structName, goField string, f schema.Field) error {
	p.Linef("func (v %s) %s() (string, error) {", structName, goField)
	if guard := unionGuard(structName, f, `"", nil`); guard != "" {
		p.Line(guard)
	}
	p.Linef("\tp, err := v.s.Ptr(%d)", f.Slot.Offset)
	p.Linef("\tif err != nil { return \"\", err }")
	p.Linef("\treturn capnp.TextValue(p.List())")
	p.Linef("}")
	p.Linef("func (v %s) Set%s(x string) error { return v.s.SetTextField(%d, x) }", structName, goField, f.Slot.Offset)
	p.Blank()
	return nil
}

func (g *Generator) emitDataField(p *Printer, structName, goField string, f schema.Field) error {
	p.Linef("func (v %s) %s() ([]byte, error) {", structName, goField)
	if guard := unionGuard(structName, f, "nil, nil"); guard != "" {
		p.Line(guard)
	}
	p.Linef("\tp, err := v.s.Ptr(%d)", f.Slot.Offset)
	p.Linef("\tif err != nil { return nil, err }")
	p.Linef("\treturn capnp.DataValue(p.List())")
	p.Linef("}")
	p.Linef("func (v %s) Set%s(x []byte) error { return v.s.SetDataField(%d, x) }", structName, goField, f.Slot.Offset)
	p.Blank()
	return nil
}

func (g *Generator) emitStructField(p *Printer, structName, goField string, f schema.Field) error {
	fieldType, err := g.typeName(f.Slot.Type.StructOrEnumOrInterfaceID)
	if err != nil {
		return err
	}
	p.Linef("func (v %s) %s() (%s, error) {", structName, goField, fieldType)
	if guard := unionGuard(structName, f, fmt.Sprintf("%s{}, nil", fieldType)); guard != "" {
		p.Line(guard)
	}
	p.Linef("\tp, err := v.s.Ptr(%d)", f.Slot.Offset)
	p.Linef("\tif err != nil { return %s{}, err }", fieldType)
	p.Linef("\treturn %s{s: p.Struct()}, nil", fieldType)
	p.Linef("}")
	p.Linef("func (v %s) Set%s(x %s) error { return v.s.SetPtr(%d, x.ToStruct().ToPtr()) }", structName, goField, fieldType, f.Slot.Offset)
	p.Blank()
	return nil
}

// emitListField emits a plain capnp.List accessor. This core's
// generator does not synthesize a typed element wrapper per list
// (spec.md's Size Budget scopes the generator to the accessor contract
// of §4.2, not a full per-element-type list API); callers index the
// returned capnp.List with the untyped StructAt/Uint32At/PtrAt family
// matching the element's Type.Elem.Kind, same as the runtime's own
// tests do.
func (g *Generator) emitListField(p *Printer, structName, goField string, f schema.Field) error {
	p.Linef("func (v %s) %s() (capnp.List, error) {", structName, goField)
	if guard := unionGuard(structName, f, "capnp.List{}, nil"); guard != "" {
		p.Line(guard)
	}
	p.Linef("\tp, err := v.s.Ptr(%d)", f.Slot.Offset)
	p.Linef("\tif err != nil { return capnp.List{}, err }")
	p.Linef("\treturn p.List(), nil")
	p.Linef("}")
	p.Linef("func (v %s) Set%s(x capnp.List) error { return v.s.SetPtr(%d, x.ToPtr()) }", structName, goField, f.Slot.Offset)
	p.Blank()
	return nil
}

func (g *Generator) emitAnyPointerField(p *Printer, structName, goField string, f schema.Field) error {
	p.Linef("func (v %s) %s() (capnp.Ptr, error) {", structName, goField)
	if guard := unionGuard(structName, f, "capnp.Ptr{}, nil"); guard != "" {
		p.Line(guard)
	}
	p.Linef("\treturn v.s.Ptr(%d)", f.Slot.Offset)
	p.Linef("}")
	p.Linef("func (v %s) Set%s(x capnp.Ptr) error { return v.s.SetPtr(%d, x) }", structName, goField, f.Slot.Offset)
	p.Blank()
	return nil
}

// fieldGoType returns the Go type a union-arm constructor argument
// should take for f (spec.md §4.3 "one constructor per union arm").
func (g *Generator) fieldGoType(f schema.Field) (string, error) {
	if f.Group != nil {
		return g.typeName(f.Group.TypeID)
	}
	return g.goTypeName(f.Slot.Type)
}

func (g *Generator) goTypeName(t schema.Type) (string, error) {
	switch t.Kind {
	case schema.TypeVoid:
		return "struct{}", nil
	case schema.TypeBool:
		return "bool", nil
	case schema.TypeInt8:
		return "int8", nil
	case schema.TypeInt16:
		return "int16", nil
	case schema.TypeInt32:
		return "int32", nil
	case schema.TypeInt64:
		return "int64", nil
	case schema.TypeUint8:
		return "uint8", nil
	case schema.TypeUint16:
		return "uint16", nil
	case schema.TypeUint32:
		return "uint32", nil
	case schema.TypeUint64:
		return "uint64", nil
	case schema.TypeFloat32:
		return "float32", nil
	case schema.TypeFloat64:
		return "float64", nil
	case schema.TypeText:
		return "string", nil
	case schema.TypeData:
		return "[]byte", nil
	case schema.TypeStruct, schema.TypeEnum:
		return g.typeName(t.StructOrEnumOrInterfaceID)
	case schema.TypeList:
		return "capnp.List", nil
	case schema.TypeAnyPointer, schema.TypeInterface:
		return "capnp.Ptr", nil
	default:
		return "", errors.Errorf("unknown type kind %d", t.Kind)
	}
}

// setterStatements returns the Go statement(s) that write v into f on
// struct variable stVar, used by the union constructors (which stamp
// every union-arm setter inline rather than calling the Set* method, so
// a single allocation produces a fully-initialized struct). A void arm
// has nothing to store beyond the discriminant the constructor already
// stamped, and emitVoidField emits no Set method to call.
func (g *Generator) setterStatements(f schema.Field, stVar, valVar string) ([]string, error) {
	if f.Group != nil {
		return nil, errors.Errorf("group union arms are not supported by this constructor helper")
	}
	if f.Slot.Type.Kind == schema.TypeVoid {
		return nil, nil
	}
	goField := ToGoName(f.Name, true)
	return []string{
		fmt.Sprintf("if err := %s.Set%s(%s); err != nil { return %s{}, err }", stVar, goField, valVar, stVar),
	}, nil
}

func constLiteral(t schema.Type, v schema.Value) (string, error) {
	switch t.Kind {
	case schema.TypeBool:
		return fmt.Sprintf("%t", v.Uint != 0), nil
	case schema.TypeText:
		return fmt.Sprintf("%q", v.Text), nil
	case schema.TypeFloat32:
		return fmt.Sprintf("math.Float32frombits(%d)", uint32(v.Uint)), nil
	case schema.TypeFloat64:
		return fmt.Sprintf("math.Float64frombits(%d)", v.Uint), nil
	default:
		return fmt.Sprintf("%d", v.Uint), nil
	}
}
