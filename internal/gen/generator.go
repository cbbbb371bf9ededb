// Package gen implements the schema compiler of spec.md §4.4: it walks a
// decoded CodeGeneratorRequest's node graph and emits generated Go
// accessor source for each requested file. Dispatch is by NodeKind/
// TypeKind switch rather than open-class extension, per spec.md §9
// "Dynamic accessor dispatch".
package gen

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/capnweave/capnp/internal/schema"
)

// Generator holds the state shared across every struct emitted for one
// requested file: the node table, the children-by-scope lookup (spec.md
// §9 "Build children-by-scope as a separate lookup"), and the NameTable
// that keeps identifier choices consistent across the declaration and
// definition passes.
type Generator struct {
	req      *schema.Request
	children map[schema.NodeID][]*schema.Node
	names    *NameTable
	// goName caches the resolved Go identifier for each struct/enum
	// node id, keyed once up front so field emission (which needs the
	// type name of a referenced struct) never re-derives it.
	goName map[schema.NodeID]string
	// usesMath is set whenever emission writes a math.Float32/64frombits
	// call, so generateFile only imports "math" in files that need it.
	usesMath bool
}

// Result is one generated Go source file, keyed by the requested file's
// basename (spec.md §6 "compile ... produce generated accessor source
// next to the input, same basename").
type Result struct {
	Filename string
	Source   string
}

// Generate compiles every file in req.RequestedFiles, returning one
// Result per file (spec.md §4.4 "Process").
func Generate(req *schema.Request) ([]Result, error) {
	g := &Generator{
		req:      req,
		children: req.ChildrenByScope(),
		names:    NewNameTable(),
		goName:   make(map[schema.NodeID]string),
	}
	var out []Result
	for _, rf := range req.RequestedFiles {
		fileNode, err := req.Lookup(rf.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "requested file %s", rf.Filename)
		}
		src, err := g.generateFile(fileNode, rf)
		if err != nil {
			return nil, errors.Wrapf(err, "generating %s", rf.Filename)
		}
		out = append(out, Result{Filename: outputName(rf.Filename), Source: src})
	}
	return out, nil
}

// outputName mirrors the `compile` verb's "same basename" contract
// (spec.md §6): a generated accessor file sits next to the schema file,
// suffixed the way capnpc-go suffixes its own output.
func outputName(schemaFilename string) string {
	return schemaFilename + ".go"
}

func (g *Generator) sortedChildren(scope schema.NodeID) []*schema.Node {
	kids := append([]*schema.Node(nil), g.children[scope]...)
	sort.Slice(kids, func(i, j int) bool { return kids[i].ID < kids[j].ID })
	return kids
}

// generateFile runs the two-pass emission spec.md §4.4 describes:
// forward-declare every struct (so recursive and sibling references
// resolve), then emit full definitions.
func (g *Generator) generateFile(file *schema.Node, rf schema.RequestedFile) (string, error) {
	body := NewPrinter()
	roots := g.sortedChildren(file.ID)

	// Pass 1: resolve every struct/enum's Go name up front, walking
	// depth-first so nested children are named before emission needs
	// them (spec.md §4.4 "Nested structs recurse first").
	if err := g.assignNames(roots, nil, rf.ConvertCase); err != nil {
		return "", err
	}

	// Declaration pass.
	for _, n := range roots {
		g.emitDeclaration(body, n)
	}
	body.Blank()

	// Definition pass.
	g.usesMath = false
	for _, n := range roots {
		if err := g.emitDefinition(body, n); err != nil {
			return "", err
		}
	}

	p := NewPrinter()
	p.Line("// Code generated by capnpc-go. DO NOT EDIT.")
	p.Linef("// source: %s", rf.Filename)
	p.Blank()
	p.Line("package capnpgen")
	p.Blank()
	if g.usesMath {
		p.Line("import (")
		p.Line("\t\"math\"")
		p.Blank()
		p.Line("\t\"github.com/capnweave/capnp\"")
		p.Line(")")
	} else {
		p.Line(`import "github.com/capnweave/capnp"`)
	}
	p.Blank()
	p.Line(body.String())
	return p.String(), nil
}

// assignNames walks the node tree depth-first, resolving each struct or
// enum's Go name against its parent scope's NameTable bucket and
// recording the full ancestor-prefixed identifier (spec.md §4.4 "Nested
// type names are prefixed by their ancestor chain").
func (g *Generator) assignNames(nodes []*schema.Node, ancestors []string, convertCase bool) error {
	for _, n := range nodes {
		switch n.Kind {
		case schema.KindStruct, schema.KindEnum:
			base := ToGoName(n.DisplayName, convertCase)
			scopeKey := IdentifierChain(ancestors)
			resolved := g.names.Resolve(scopeKey, uint64(n.ID), base)
			chain := append(append([]string(nil), ancestors...), resolved)
			g.goName[n.ID] = IdentifierChain(chain)
			if n.Kind == schema.KindStruct {
				if err := g.assignNames(g.sortedChildren(n.ID), chain, convertCase); err != nil {
					return err
				}
			}
		case schema.KindConst:
			base := ToGoName(n.DisplayName, convertCase)
			scopeKey := IdentifierChain(ancestors)
			g.goName[n.ID] = g.names.Resolve(scopeKey, uint64(n.ID), base)
		}
	}
	return nil
}

func (g *Generator) typeName(id schema.NodeID) (string, error) {
	name, ok := g.goName[id]
	if !ok {
		return "", &schema.Error{Op: "typeName", Detail: fmt.Sprintf("node %#x has no assigned name", id)}
	}
	return name, nil
}

// emitDeclaration forward-declares n (and, for structs, its nested
// children first) so sibling and recursive field references resolve
// regardless of declaration order (spec.md §4.4 "Declaration pass").
func (g *Generator) emitDeclaration(p *Printer, n *schema.Node) {
	switch n.Kind {
	case schema.KindStruct:
		for _, child := range g.sortedChildren(n.ID) {
			g.emitDeclaration(p, child)
		}
		name := g.goName[n.ID]
		p.Linef("type %s struct{ s capnp.Struct }", name)
	case schema.KindEnum:
		name := g.goName[n.ID]
		p.Linef("type %s uint16", name)
	}
}
