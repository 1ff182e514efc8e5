package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/errors"
	"codebinder/syntax"
)

func TestDiagnosticsErr(t *testing.T) {
	d := &Diagnostics{}
	assert.NoError(t, d.Err("Demo.Program"))

	d.Warnf(nil, "struct %s becomes a reference type", "P")
	assert.NoError(t, d.Err("Demo.Program"))
	assert.False(t, d.HasErrors())

	d.Reject(PolicyRejection, nil, "Enable Iterators in the java profile.", "yield statement requires capability %s", Iterators)
	err := d.Err("Demo.Program")
	require.Error(t, err)
	assert.True(t, errors.IsUnitRejected(err))
	assert.Contains(t, err.Error(), "Demo.Program: 1 error(s)")
	assert.Contains(t, errors.GetAllHints(err), "Enable Iterators in the java profile.")
	assert.Equal(t, 2, d.Len())
	assert.Len(t, d.Errors(), 1)
}

func TestDiagnosticsSortAndFormat(t *testing.T) {
	d := &Diagnostics{}
	at := func(line, col int) syntax.Node {
		return &syntax.Goto{Base: syntax.Base{At: syntax.Pos{File: "A.cs", Line: line, Col: col}}}
	}
	d.Reject(StructuralRejection, at(9, 1), "", "second")
	d.Reject(Ambiguity, at(2, 5), "Rename one.", "first")
	d.Reject(InternalError, at(9, 1), "", "third")
	d.Sort()

	var got []string
	for _, e := range d.All() {
		got = append(got, e.Message)
	}
	assert.Equal(t, []string{"first", "second", "third"}, got)
	assert.Len(t, d.ByCategory(Ambiguity), 1)

	out := d.Format()
	assert.Contains(t, out, "error: A.cs:2:5: ambiguity: first (hint: Rename one.)\n")
	assert.Contains(t, out, "internal error: third")

	other := &Diagnostics{}
	other.Merge(d)
	other.Merge(nil)
	assert.Equal(t, 3, other.Len())
}

func TestCategoryNames(t *testing.T) {
	assert.Equal(t, "structural rejection", StructuralRejection.String())
	assert.Equal(t, "policy rejection", PolicyRejection.String())
	assert.Equal(t, "rewrite unsupported", RewriteUnsupported.String())
	assert.Equal(t, "warning", SeverityWarning.String())
}

func TestTopologicalSort(t *testing.T) {
	graph := map[string][]string{
		"app":  {"lib", "util"},
		"lib":  {"util"},
		"util": nil,
		"solo": nil,
	}
	got, err := TopologicalSort(graph, []string{"app", "solo", "lib", "util"})
	require.NoError(t, err)
	assert.Equal(t, []string{"util", "lib", "app", "solo"}, got)

	_, err = TopologicalSort(map[string][]string{"a": {"b"}, "b": {"a"}}, []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"a\"b\\c\n"`, quote("a\"b\\c\n", '"'))
	assert.Equal(t, `'it\'s'`, quote("it's", '\''))
	assert.Equal(t, `"\u0001"`, quote("\x01", '"'))
}
