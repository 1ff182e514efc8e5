package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/syntax"
)

// partial renders one fragment of the partial class Demo.P in its own file.
func partial(file string, bases []string, members ...string) string {
	list := "[]"
	if len(bases) > 0 {
		list = `["` + strings.Join(bases, `", "`) + `"]`
	}
	return fmt.Sprintf(`{"kind": "File", "name": %q, "decls": [{"kind": "Namespace", "name": "Demo", "decls": [
  {"kind": "TypeDecl", "name": "P", "access": "public", "partial": true, "bases": %s, "members": [%s]}]}]}`,
		file, list, strings.Join(members, ",\n"))
}

func files(parts ...string) string {
	return `{"files": [` + strings.Join(parts, ",\n") + `]}`
}

func plainMethod(name string) string {
	return fmt.Sprintf(`{"kind": "Method", "name": %q, "access": "public", "result": "void", "body": {"stmts": []}}`, name)
}

func memberNames(n *DeclarationNode) []string {
	var out []string
	for _, m := range n.Members() {
		if md, ok := m.(*syntax.MethodDecl); ok {
			out = append(out, md.Name)
		}
	}
	return out
}

func forestOf(t *testing.T, doc string) *Forest {
	t.Helper()
	fs := decode(t, doc)
	return BuildForest(syntax.Resolve(fs), fs)
}

func TestPartialFragmentsMerge(t *testing.T) {
	withBase := partial("P1.cs", []string{"IDisposable"}, plainMethod("A"))
	without := partial("P2.cs", nil, plainMethod("B"))

	tests := map[string]string{
		"base list first": files(withBase, without),
		"base list last":  files(without, withBase),
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			forest := forestOf(t, doc)
			require.Equal(t, 1, forest.Len())
			node := forest.Lookup("Demo.P")
			require.NotNil(t, node)
			require.Len(t, node.Fragments, 2)
			assert.True(t, node.Fragments[0].HasBaseList(), "the fragment with the base list is the head")
			assert.Equal(t, "P1.cs", node.Fragments[0].File)
			assert.Equal(t, 1, node.BaseLists)
			assert.ElementsMatch(t, []string{"A", "B"}, memberNames(node))
			require.Len(t, node.Bases(), 1)
			assert.Equal(t, "IDisposable", syntax.TypeString(node.Bases()[0]))
		})
	}
}

func TestPartialFragmentsWithoutBaseListKeepDiscoveryOrder(t *testing.T) {
	forest := forestOf(t, files(partial("P1.cs", nil, plainMethod("A")), partial("P2.cs", nil, plainMethod("B"))))
	node := forest.Lookup("Demo.P")
	require.NotNil(t, node)
	assert.Zero(t, node.BaseLists)
	assert.Equal(t, "P1.cs", node.Fragments[0].File)
	assert.Equal(t, []string{"A", "B"}, memberNames(node))
}

func TestPartialTypeWithTwoBaseListsIsRejected(t *testing.T) {
	doc := files(
		partial("P1.cs", []string{"IDisposable"}, plainMethod("A")),
		partial("P2.cs", []string{"IDisposable"}, plainMethod("B")),
	)
	forest := forestOf(t, doc)
	node := forest.Lookup("Demo.P")
	require.NotNil(t, node)
	assert.Equal(t, 2, node.BaseLists)
	assert.Equal(t, "P1.cs", node.Fragments[0].File, "the first base list stays the head")

	results := convert(t, doc, "java")
	r := results["Demo.P"]
	require.NotNil(t, r)
	assert.Equal(t, UnitRejected, r.Status)
	errs := r.Diagnostics.ByCategory(StructuralRejection)
	require.Len(t, errs, 1)
	assert.Equal(t, "partial type Demo.P declares base types in 2 fragments", errs[0].Message)
}

func TestPartialMethodStubIsNotBound(t *testing.T) {
	stub := `{"kind": "Method", "name": "Hook", "access": "private", "partial": true, "result": "void",
  "params": [{"name": "a", "type": "int"}]}`
	impl := `{"kind": "Method", "name": "Hook", "access": "private", "partial": true, "result": "void",
  "params": [{"name": "a", "type": "int"}], "body": {"stmts": []}}`
	doc := files(partial("P1.cs", nil, stub), partial("P2.cs", nil, impl))

	fs := decode(t, doc)
	symbols := syntax.Resolve(fs)
	forest := BuildForest(symbols, fs)
	node := forest.Lookup("Demo.P")
	require.NotNil(t, node)

	b := NewUnitBinder(target(t, "typescript"), symbols, forest)
	require.Empty(t, b.Bind(node))
	group := b.Group(node.ID, "hook")
	require.Len(t, group, 1)
	assert.NotNil(t, group[0].Node.(*syntax.MethodDecl).Body)
	assert.False(t, b.Overloaded(group[0]))

	text := artifactText(t, convert(t, doc, "typescript")["Demo.P"])
	assert.Equal(t, 1, strings.Count(text, "hook(a: number): void"))
}
