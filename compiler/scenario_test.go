package compiler

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/syntax"
)

const (
	refCallee = `{"kind": "Method", "name": "G", "access": "public", "static": true, "result": "void",
  "params": [{"name": "x", "type": "int", "ref": "ref"}],
  "body": {"stmts": [
    {"kind": "ExprStmt", "x": {"kind": "Assignment", "op": "=", "lhs": "x", "rhs": {"kind": "Binary", "op": "+", "x": "x", "y": 1}}}
  ]}}`

	refCaller = `{"kind": "Method", "name": "Main", "access": "public", "static": true, "result": "int",
  "body": {"stmts": [
    {"kind": "LocalDecl", "type": "int", "vars": [{"name": "y", "init": 5}]},
    {"kind": "ExprStmt", "x": {"kind": "Invocation", "fun": "G", "args": [{"ref": "ref", "value": "y"}]}},
    {"kind": "Return", "x": "y"}
  ]}}`

	refCallerTwice = `{"kind": "Method", "name": "Main", "access": "public", "static": true, "result": "int",
  "body": {"stmts": [
    {"kind": "LocalDecl", "type": "int", "vars": [{"name": "y", "init": 5}]},
    {"kind": "ExprStmt", "x": {"kind": "Invocation", "fun": "G", "args": [{"ref": "ref", "value": "y"}]}},
    {"kind": "ExprStmt", "x": {"kind": "Invocation", "fun": "G", "args": [{"ref": "ref", "value": "y"}]}},
    {"kind": "Return", "x": "y"}
  ]}}`

	refField = `{"kind": "Field", "access": "private", "static": true, "type": "int", "vars": [{"name": "n", "init": 1}]}`

	refReturning = `{"kind": "Method", "name": "H", "access": "public", "static": true, "result": "int",
  "params": [{"name": "x", "type": "int", "ref": "ref"}],
  "body": {"stmts": [
    {"kind": "ExprStmt", "x": {"kind": "Assignment", "op": "=", "lhs": "x", "rhs": {"kind": "Binary", "op": "+", "x": "x", "y": 1}}},
    {"kind": "Return", "x": {"kind": "Binary", "op": "+", "x": "x", "y": 10}}
  ]}}`

	refBump = `{"kind": "Method", "name": "Bump", "access": "public", "static": true, "result": "int",
  "body": {"stmts": [
    {"kind": "Return", "x": {"kind": "Invocation", "fun": "H", "args": [{"ref": "ref", "value": "n"}]}}
  ]}}`
)

// frame holds the variables of one activation. Closures share the frame
// they were created in.
type frame struct {
	vars   map[syntax.SymbolID]interface{}
	parent *frame
}

func newFrame(parent *frame) *frame {
	return &frame{vars: map[syntax.SymbolID]interface{}{}, parent: parent}
}

func (f *frame) lookup(sym syntax.SymbolID) (*frame, bool) {
	for ; f != nil; f = f.parent {
		if _, ok := f.vars[sym]; ok {
			return f, true
		}
	}
	return nil, false
}

type closure func(args []interface{}) interface{}

// interp evaluates the small subset of statements and expressions the
// by-reference rewrite produces. Ints, boxes and closures are its values.
type interp struct {
	t       *testing.T
	methods map[syntax.SymbolID]*syntax.MethodDecl
	fields  map[syntax.SymbolID]interface{}
}

func newInterp(t *testing.T, nodes []*DeclarationNode) *interp {
	in := &interp{t: t, methods: map[syntax.SymbolID]*syntax.MethodDecl{}, fields: map[syntax.SymbolID]interface{}{}}
	for _, n := range nodes {
		for _, m := range n.Members() {
			switch m := m.(type) {
			case *syntax.MethodDecl:
				in.methods[m.Sym] = m
			case *syntax.FieldDecl:
				for _, v := range m.Vars {
					in.fields[v.Sym] = in.eval(newFrame(nil), v.Init)
				}
			}
		}
	}
	return in
}

func (in *interp) call(name string, args ...interface{}) interface{} {
	for _, m := range in.methods {
		if m.Name == name {
			return in.invoke(m.Sym, args)
		}
	}
	in.t.Fatalf("no method %s", name)
	return nil
}

func (in *interp) invoke(sym syntax.SymbolID, args []interface{}) interface{} {
	m := in.methods[sym]
	require.NotNil(in.t, m, "unknown method symbol %d", sym)
	f := newFrame(nil)
	for i, p := range m.Params {
		f.vars[p.Sym] = args[i]
	}
	v, _ := in.exec(f, m.Body)
	return v
}

func (in *interp) exec(f *frame, s syntax.Stmt) (interface{}, bool) {
	switch s := s.(type) {
	case *syntax.Block:
		for _, st := range s.Stmts {
			if v, done := in.exec(f, st); done {
				return v, true
			}
		}
	case *syntax.ExprStmt:
		in.eval(f, s.X)
	case *syntax.LocalDecl:
		for _, v := range s.Vars {
			var val interface{} = 0
			if v.Init != nil {
				val = in.eval(f, v.Init)
			}
			f.vars[v.Sym] = val
		}
	case *syntax.Return:
		if s.X == nil {
			return nil, true
		}
		return in.eval(f, s.X), true
	default:
		in.t.Fatalf("cannot execute %s", s.Kind())
	}
	return nil, false
}

func (in *interp) eval(f *frame, x syntax.Expr) interface{} {
	switch x := x.(type) {
	case *syntax.Literal:
		n, err := strconv.Atoi(x.Value)
		require.NoError(in.t, err)
		return n
	case *syntax.Identifier:
		if owner, ok := f.lookup(x.Sym); ok {
			return owner.vars[x.Sym]
		}
		if v, ok := in.fields[x.Sym]; ok {
			return v
		}
		in.t.Fatalf("unbound identifier %s", x.Name)
	case *syntax.Paren:
		return in.eval(f, x.X)
	case *syntax.Cast:
		return in.eval(f, x.X)
	case *syntax.Binary:
		require.Equal(in.t, syntax.OpAdd, x.Op)
		return in.eval(f, x.X).(int) + in.eval(f, x.Y).(int)
	case *syntax.ElementAccess:
		return in.eval(f, x.X).([]interface{})[in.eval(f, x.Indices[0]).(int)]
	case *syntax.ArrayCreation:
		var box []interface{}
		for _, e := range x.Init.Elems {
			box = append(box, in.eval(f, e))
		}
		return box
	case *syntax.Assignment:
		require.Equal(in.t, syntax.OpAssign, x.Op)
		v := in.eval(f, x.Rhs)
		in.assign(f, x.Lhs, v)
		return v
	case *syntax.Lambda:
		return closure(func(args []interface{}) interface{} {
			inner := newFrame(f)
			for i, p := range x.Params {
				inner.vars[p.Sym] = args[i]
			}
			switch body := x.Body.(type) {
			case syntax.Stmt:
				v, _ := in.exec(inner, body)
				return v
			case syntax.Expr:
				return in.eval(inner, body)
			}
			return nil
		})
	case *syntax.Invocation:
		args := make([]interface{}, len(x.Args))
		for i, a := range x.Args {
			args[i] = in.eval(f, a.Value)
		}
		if x.ValueCall {
			return in.eval(f, x.Fun).(closure)(args)
		}
		switch fun := x.Fun.(type) {
		case *syntax.Identifier:
			return in.invoke(fun.Sym, args)
		case *syntax.MemberAccess:
			return in.invoke(fun.Sym, args)
		}
		in.t.Fatalf("cannot call %s", x.Fun.Kind())
	default:
		in.t.Fatalf("cannot evaluate %s", x.Kind())
	}
	return nil
}

func (in *interp) assign(f *frame, lhs syntax.Expr, v interface{}) {
	switch lhs := lhs.(type) {
	case *syntax.Identifier:
		if owner, ok := f.lookup(lhs.Sym); ok {
			owner.vars[lhs.Sym] = v
			return
		}
		if _, ok := in.fields[lhs.Sym]; ok {
			in.fields[lhs.Sym] = v
			return
		}
		in.t.Fatalf("assignment to unbound %s", lhs.Name)
	case *syntax.ElementAccess:
		box := in.eval(f, lhs.X).([]interface{})
		box[in.eval(f, lhs.Indices[0]).(int)] = v
	default:
		in.t.Fatalf("cannot assign to %s", lhs.Kind())
	}
}

// countNodes counts the nodes under n that match.
func countNodes(n syntax.Node, match func(syntax.Node) bool) int {
	count := 0
	syntax.Inspect(n, func(c syntax.Node) bool {
		if match(c) {
			count++
		}
		return true
	})
	return count
}

func localNamed(name string) func(syntax.Node) bool {
	return func(n syntax.Node) bool {
		d, ok := n.(*syntax.LocalDecl)
		return ok && len(d.Vars) == 1 && d.Vars[0].Name == name
	}
}

func TestRefArgumentRewriteKeepsSemantics(t *testing.T) {
	c := newConverter(t, program(class("Program", refCallee, refCaller)), ConverterOptions{})
	nodes, diags, err := c.Rewrite(target(t, "typescript"), "Demo.Program")
	require.NoError(t, err)
	require.False(t, diags.HasErrors())
	require.Len(t, nodes, 1)

	main := memberByName(nodes[0], "Main")
	require.NotNil(t, main)
	assert.Equal(t, 0, countNodes(main.Body, func(n syntax.Node) bool {
		inv, ok := n.(*syntax.Invocation)
		if !ok {
			return false
		}
		for _, a := range inv.Args {
			if a.Ref != syntax.RefNone {
				return true
			}
		}
		return false
	}), "no by-reference arguments survive")
	assert.Equal(t, 1, countNodes(main.Body, localNamed("__call0")))

	g := memberByName(nodes[0], "G")
	require.NotNil(t, g)
	assert.Equal(t, syntax.RefNone, g.Params[0].Ref)
	assert.Equal(t, "int[]", syntax.TypeString(g.Params[0].Type))

	assert.Equal(t, 6, newInterp(t, nodes).call("Main"))

	// The forest keeps the original declarations.
	orig := c.Forest().Lookup("Demo.Program")
	assert.Equal(t, syntax.RefInOut, memberByName(orig, "G").Params[0].Ref)
	call := memberByName(orig, "Main").Body.Stmts[1].(*syntax.ExprStmt).X.(*syntax.Invocation)
	assert.Equal(t, syntax.RefInOut, call.Args[0].Ref)
}

func TestRefArgumentBoxesLocalOnce(t *testing.T) {
	c := newConverter(t, program(class("Program", refCallee, refCallerTwice)), ConverterOptions{})
	nodes, _, err := c.Rewrite(target(t, "typescript"), "Demo.Program")
	require.NoError(t, err)

	main := memberByName(nodes[0], "Main")
	assert.Equal(t, 1, countNodes(main.Body, localNamed("y")))
	assert.Equal(t, 1, countNodes(main.Body, localNamed("__call0")))
	assert.Equal(t, 1, countNodes(main.Body, localNamed("__call1")))
	assert.Equal(t, 7, newInterp(t, nodes).call("Main"))
}

func TestRefFieldArgumentCopiesBackBeforeReturn(t *testing.T) {
	c := newConverter(t, program(class("Program", refField, refReturning, refBump)), ConverterOptions{})
	nodes, _, err := c.Rewrite(target(t, "java"), "Demo.Program")
	require.NoError(t, err)

	bump := memberByName(nodes[0], "Bump")
	assert.Equal(t, 1, countNodes(bump.Body, localNamed("__ref0")))
	assert.Equal(t, 1, countNodes(bump.Body, localNamed("__result0")))

	in := newInterp(t, nodes)
	assert.Equal(t, 12, in.call("Bump"))
	for sym, v := range in.fields {
		assert.Equal(t, 2, v, "field %d", sym)
	}
}

func TestRefArgumentEmission(t *testing.T) {
	doc := program(class("Program", refCallee, refCaller))
	tests := []struct {
		target string
		want   []string
	}{
		{"typescript", []string{"let y: number[] = [5];", "Program.g(y);", "__call0();", "x[0] = x[0] + 1;", "return y[0];"}},
		{"javascript", []string{"let y = [5];", "Program.g(y);", "__call0();"}},
		{"java", []string{"package demo;", "Integer[] y = new Integer[] {5};", "__call0.run();", "g(y);", "x[0] = x[0] + 1;"}},
		{"csharp", []string{"namespace Demo;", "G(ref y);", "ref int x"}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			text := artifactText(t, convert(t, doc, tt.target)["Demo.Program"])
			for _, want := range tt.want {
				assert.Contains(t, text, want)
			}
		})
	}
}

func TestGotoIsRejectedOnEveryTarget(t *testing.T) {
	withGoto := `{"kind": "Method", "name": "Loop", "access": "public", "result": "void",
  "body": {"stmts": [{"kind": "Goto", "label": "done"}]}}`
	doc := program(class("Program", withGoto), class("Other", methodF1))

	for _, name := range TargetNames() {
		t.Run(name, func(t *testing.T) {
			results := convert(t, doc, name)

			r := results["Demo.Program"]
			require.NotNil(t, r)
			assert.Equal(t, UnitRejected, r.Status)
			assert.Empty(t, r.Artifacts)
			errs := r.Diagnostics.ByCategory(StructuralRejection)
			require.Len(t, errs, 1)
			assert.Equal(t, "goto statement: Goto statements are not supported.", errs[0].Message)
			assert.Equal(t, "Use structured control flow instead.", errs[0].Hint)
			require.Error(t, r.Err)

			assert.Equal(t, UnitConverted, results["Demo.Other"].Status)
			assert.NotEmpty(t, results["Demo.Other"].Artifacts)
		})
	}
}
