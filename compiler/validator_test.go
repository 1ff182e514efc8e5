package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/errors"
	"codebinder/syntax"
)

// check validates doc for em and returns the result of Demo.Program.
func check(t *testing.T, doc string, em Emitter) *UnitResult {
	t.Helper()
	c := newConverter(t, doc, ConverterOptions{Units: []string{"Demo.Program"}})
	results, err := c.Check(context.Background(), em)
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0]
}

func method(body string) string {
	return `{"kind": "Method", "name": "Run", "access": "public", "result": "object", "body": {"stmts": [` + body + `]}}`
}

func TestYieldNeedsIterators(t *testing.T) {
	doc := program(class("Program", method(`{"kind": "Yield", "x": 1}`)))

	r := check(t, doc, target(t, "java"))
	assert.Equal(t, UnitRejected, r.Status)
	errs := r.Diagnostics.ByCategory(PolicyRejection)
	require.Len(t, errs, 1)
	assert.Equal(t, "yield statement requires capability Iterators", errs[0].Message)
	assert.Equal(t, "Enable Iterators in the java profile.", errs[0].Hint)
	assert.True(t, errors.Is(r.Err, errors.ErrUnitRejected))

	r = check(t, doc, target(t, "typescript"))
	assert.Equal(t, UnitConverted, r.Status)
	assert.False(t, r.Diagnostics.HasErrors())
}

func TestLambdaNeedsGarbageCollection(t *testing.T) {
	doc := program(class("Program", method(
		`{"kind": "LocalDecl", "vars": [{"name": "f", "init": {"kind": "Lambda", "body": 1}}]}`)))

	em, err := NewTarget("ts", TargetOptions{Disable: []Capability{GarbageCollection}})
	require.NoError(t, err)
	r := check(t, doc, em)
	assert.Equal(t, []string{"lambda requires capability GarbageCollection"}, messages(r.Diagnostics))

	em, err = NewTarget("ts", TargetOptions{Disable: []Capability{Delegates}})
	require.NoError(t, err)
	r = check(t, doc, em)
	assert.Equal(t, []string{"lambda requires capability Delegates"}, messages(r.Diagnostics))
}

func TestFinalizerOptIn(t *testing.T) {
	finalizer := `{"kind": "Finalizer", "body": {"stmts": []}}`

	r := check(t, program(class("Program", finalizer)), target(t, "typescript"))
	errs := r.Diagnostics.ByCategory(PolicyRejection)
	require.Len(t, errs, 1)
	assert.Equal(t, "finalizer of Demo.Program requires capability InstanceFinalizers", errs[0].Message)
	assert.Equal(t, "Implement IDisposable on Program to opt in.", errs[0].Hint)

	disposable := `{"kind": "TypeDecl", "name": "Program", "access": "public", "bases": ["IDisposable"], "members": [` + finalizer + `]}`
	r = check(t, program(disposable), target(t, "typescript"))
	assert.False(t, r.Diagnostics.HasErrors(), r.Diagnostics.Format())

	r = check(t, program(class("Program", finalizer)), target(t, "java"))
	assert.False(t, r.Diagnostics.HasErrors())
}

func TestLocalFunctionCycles(t *testing.T) {
	recursive := method(`{"kind": "LocalFunction", "name": "Loop", "result": "void", "body": {"stmts": [
  {"kind": "ExprStmt", "x": {"kind": "Invocation", "fun": "Loop"}}]}}`)
	mutual := method(`{"kind": "LocalFunction", "name": "Ping", "result": "void", "body": {"stmts": [
  {"kind": "ExprStmt", "x": {"kind": "Invocation", "fun": "Pong"}}]}},
{"kind": "LocalFunction", "name": "Pong", "result": "void", "body": {"stmts": [
  {"kind": "ExprStmt", "x": {"kind": "Invocation", "fun": "Ping"}}]}}`)

	r := check(t, program(class("Program", recursive)), target(t, "java"))
	assert.Equal(t, []string{"local function Loop is recursive"}, messages(r.Diagnostics))
	assert.Len(t, r.Diagnostics.ByCategory(StructuralRejection), 1)

	r = check(t, program(class("Program", mutual)), target(t, "java"))
	assert.Equal(t, []string{"local functions Ping, Pong call each other"}, messages(r.Diagnostics))

	// Targets with nested functions take both forms as they are.
	for _, doc := range []string{recursive, mutual} {
		r = check(t, program(class("Program", doc)), target(t, "typescript"))
		assert.False(t, r.Diagnostics.HasErrors())
	}
}

func TestLocalFunctionsAreHoistedIntoClosures(t *testing.T) {
	twice := `{"kind": "Method", "name": "Main", "access": "public", "static": true, "result": "int", "body": {"stmts": [
  {"kind": "LocalFunction", "name": "Twice", "result": "int", "params": [{"name": "a", "type": "int"}],
   "body": {"stmts": [{"kind": "Return", "x": {"kind": "Binary", "op": "+", "x": "a", "y": "a"}}]}},
  {"kind": "Return", "x": {"kind": "Invocation", "fun": "Twice", "args": [{"value": 21}]}}
]}}`
	c := newConverter(t, program(class("Program", twice)), ConverterOptions{})
	nodes, diags, err := c.Rewrite(target(t, "java"), "Demo.Program")
	require.NoError(t, err)
	require.False(t, diags.HasErrors())

	main := memberByName(nodes[0], "Main")
	assert.Zero(t, countNodes(main.Body, func(n syntax.Node) bool {
		_, ok := n.(*syntax.LocalFunction)
		return ok
	}))
	assert.Equal(t, 1, countNodes(main.Body, localNamed("Twice")))
	assert.Equal(t, 1, countNodes(main.Body, func(n syntax.Node) bool {
		inv, ok := n.(*syntax.Invocation)
		return ok && inv.ValueCall
	}))
	assert.Equal(t, 42, newInterp(t, nodes).call("Main"))

	// The rewritten nodes are numbered past the input.
	seen := map[syntax.NodeID]bool{}
	syntax.Inspect(main.Body, func(n syntax.Node) bool {
		assert.NotZero(t, n.ID(), "%s has no ID", n.Kind())
		assert.False(t, seen[n.ID()], "duplicate ID %d", n.ID())
		seen[n.ID()] = true
		return true
	})
}

func TestOverloadAmbiguityIsReported(t *testing.T) {
	r := check(t, program(class("Program", methodF1, methodF2Op)), target(t, "typescript"))
	errs := r.Diagnostics.ByCategory(Ambiguity)
	require.Len(t, errs, 1)
	assert.Equal(t, "Rename one of the overloads or change its parameter count.", errs[0].Hint)
	assert.Contains(t, errs[0].Message, "Demo.Program.f")
}

func TestPropertyCannotBePassedByReference(t *testing.T) {
	prop := `{"kind": "Property", "name": "Count", "access": "public", "static": true, "type": "int", "getter": {}, "setter": {}}`
	caller := `{"kind": "Method", "name": "Main", "access": "public", "static": true, "result": "void", "body": {"stmts": [
  {"kind": "ExprStmt", "x": {"kind": "Invocation", "fun": "G", "args": [{"ref": "ref", "value": "Count"}]}}]}}`

	r := check(t, program(class("Program", refCallee, prop, caller)), target(t, "typescript"))
	errs := r.Diagnostics.ByCategory(RewriteUnsupported)
	require.Len(t, errs, 1)
	assert.Equal(t, "property Count cannot be passed by reference", errs[0].Message)
	assert.Equal(t, "Copy the property into a local first.", errs[0].Hint)

	r = check(t, program(class("Program", refCallee, prop, caller)), target(t, "csharp"))
	assert.False(t, r.Diagnostics.HasErrors())
}

func TestDispatcherCoversEveryAcceptedKind(t *testing.T) {
	for _, k := range syntax.Kinds() {
		if !k.IsExpr() && !k.IsStmt() {
			continue
		}
		assert.NotEqual(t, Dispatchable(k), Rejected(k), "%s", k)
	}
}

func TestNodeStatus(t *testing.T) {
	files := decode(t, program(class("Program", refCallee, refCaller, method(`{"kind": "Goto", "label": "x"}`))))
	syntax.Number(files[0])
	symbols := syntax.Resolve(files)
	forest := BuildForest(symbols, files)
	em := target(t, "typescript")
	diags := &Diagnostics{}
	v := NewValidator(em, em.DefaultProfile(), symbols, forest, NewUnitBinder(em, symbols, forest), diags)
	v.Validate(forest.Lookup("Demo.Program"))

	run := memberByName(forest.Lookup("Demo.Program"), "Run")
	gotoStmt := run.Body.Stmts[0]
	assert.Equal(t, StatusRejected, v.Status(gotoStmt.ID()))

	pending := v.RequiresRewrite()
	assert.NotEmpty(t, pending)
	v.MarkRewritten()
	assert.Empty(t, v.RequiresRewrite())
	assert.Equal(t, StatusRewritten, v.Status(pending[0]))
}
