package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/errors"
)

func TestConvertOrdersResultsByUnit(t *testing.T) {
	doc := program(class("Zeta", methodF1), class("Alpha", methodF1), class("Mid", methodF1))
	c := newConverter(t, doc, ConverterOptions{Workers: 3})
	_, err := uuid.Parse(c.RunID())
	require.NoError(t, err)

	results, err := c.Convert(context.Background(), target(t, "typescript"))
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, want := range []string{"Demo.Alpha", "Demo.Mid", "Demo.Zeta"} {
		assert.Equal(t, want, results[i].Unit)
		assert.Equal(t, "typescript", results[i].Target)
		assert.Equal(t, UnitConverted, results[i].Status)
		require.Len(t, results[i].Artifacts, 1)
	}
	assert.Equal(t, "Alpha.ts", results[0].Artifacts[0].Name)
	assert.Contains(t, results[0].Artifacts[0].Text, "class Alpha")
}

func TestConvertSelectedUnits(t *testing.T) {
	doc := program(class("Alpha", methodF1), class("Beta", methodF1))
	c := newConverter(t, doc, ConverterOptions{Units: []string{"Demo.Beta"}})
	results, err := c.Convert(context.Background(), target(t, "java"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Demo.Beta", results[0].Unit)
	assert.Equal(t, "demo/Beta.java", results[0].Artifacts[0].Name)

	c = newConverter(t, doc, ConverterOptions{Units: []string{"Beta"}})
	_, err = c.Convert(context.Background(), target(t, "java"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestConvertCancelled(t *testing.T) {
	c := newConverter(t, program(class("Alpha", methodF1)), ConverterOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := c.Convert(ctx, target(t, "typescript"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, err.Error(), "conversion cancelled")
	assert.Empty(t, results)

	_, err = c.Check(ctx, target(t, "typescript"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConvertRejectionIsPerTarget(t *testing.T) {
	doc := program(class("Program", method(`{"kind": "Yield", "x": 1}`)))

	java := convert(t, doc, "java")["Demo.Program"]
	assert.Equal(t, UnitRejected, java.Status)
	assert.Empty(t, java.Artifacts)
	assert.True(t, errors.IsUnitRejected(java.Err))

	ts := convert(t, doc, "typescript")["Demo.Program"]
	assert.Contains(t, artifactText(t, ts), "yield 1;")
}

// panicky fails while emitting, like a dispatcher bug would.
type panicky struct {
	*JSEmitter
}

func (panicky) TypeDeclaration(*EmissionContext, *DeclarationNode) {
	panic("no emission routine for Widget")
}

func TestConvertRecoversInternalErrors(t *testing.T) {
	doc := program(class("Alpha", methodF1))
	c := newConverter(t, doc, ConverterOptions{})
	results, err := c.Convert(context.Background(), panicky{NewTypeScriptEmitter()})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, UnitFailed, r.Status)
	assert.Empty(t, r.Artifacts)
	errs := r.Diagnostics.ByCategory(InternalError)
	require.Len(t, errs, 1)
	assert.Equal(t, "no emission routine for Widget", errs[0].Message)
	assert.True(t, errors.HasAssertionFailure(r.Err))
}

func TestRewriteUnknownUnit(t *testing.T) {
	c := newConverter(t, program(class("Alpha", methodF1)), ConverterOptions{})
	_, _, err := c.Rewrite(target(t, "java"), "Demo.Nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	nodes, diags, err := c.Rewrite(target(t, "csharp"), "Demo.Alpha")
	require.NoError(t, err)
	assert.False(t, diags.HasErrors())
	require.Len(t, nodes, 1)
	assert.Same(t, c.Forest().Lookup("Demo.Alpha"), nodes[0], "nothing to rewrite keeps the node")
}

func TestNestedTypesFollowTargetLayout(t *testing.T) {
	nested := `{"kind": "TypeDecl", "name": "Outer", "access": "public", "members": [
  {"kind": "TypeDecl", "name": "Inner", "access": "public", "members": [` + methodF1 + `]}]}`
	doc := program(nested)

	java := artifactText(t, convert(t, doc, "java")["Demo.Outer"])
	assert.Contains(t, java, "class Inner")
	assert.Less(t, strings.Index(java, "class Outer"), strings.Index(java, "class Inner"))

	ts := convert(t, doc, "typescript")
	require.Len(t, ts, 1, "nested types belong to the unit of their root")
	assert.Contains(t, artifactText(t, ts["Demo.Outer"]), "Inner")
}

func TestArityDispatcherEmission(t *testing.T) {
	text := artifactText(t, convert(t, program(class("Program", methodF1, methodF2)), "typescript")["Demo.Program"])
	assert.Contains(t, text, "f(...args: any[]): any {")
	assert.Contains(t, text, "if (args.length === 1) ")
	assert.Contains(t, text, "if (args.length === 2) ")
}

func TestPreviewPrintsLoweredUnit(t *testing.T) {
	c := newConverter(t, program(class("Program", refCallee, refCaller)), ConverterOptions{})
	text, diags, err := c.Preview(target(t, "typescript"), target(t, "csharp"), "Demo.Program")
	require.NoError(t, err)
	assert.False(t, diags.HasErrors())
	assert.Contains(t, text, "class Program")
	assert.Contains(t, text, "__call0")
	assert.NotContains(t, text, "ref int x")

	_, _, err = c.Preview(target(t, "typescript"), target(t, "csharp"), "Demo.Missing")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
