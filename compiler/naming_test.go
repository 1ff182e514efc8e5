package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/syntax"
)

func TestCasingApply(t *testing.T) {
	tests := []struct {
		casing Casing
		in     string
		want   string
	}{
		{Verbatim, "GetValue", "GetValue"},
		{LowerCamel, "GetValue", "getValue"},
		{LowerCamel, "IOStream", "ioStream"},
		{LowerCamel, "ID", "id"},
		{LowerCamel, "run", "run"},
		{PascalCase, "getValue", "GetValue"},
		{SnakeCase, "GetHTTPResponse", "get_http_response"},
		{SnakeCase, "already_snake", "already_snake"},
		{LowerCamel, "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.casing.Apply(tt.in), "%s(%q)", tt.casing, tt.in)
	}
}

func TestParseCasing(t *testing.T) {
	for _, c := range []Casing{Verbatim, LowerCamel, PascalCase, SnakeCase} {
		got, err := ParseCasing(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	got, err := ParseCasing("LOWERCAMEL")
	require.NoError(t, err)
	assert.Equal(t, LowerCamel, got)

	_, err = ParseCasing("kebab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown casing "kebab"`)
}

func TestReplacementTable(t *testing.T) {
	base := NewReplacementTable(map[string]string{
		"string.Length":         "length",
		"System.Console.Write":  "console.log({args})",
		"Demo.Program.Shutdown": "exit",
	})
	override := NewReplacementTable(map[string]string{"string.Length": "size()"})
	table := base.Merge(override)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 3, base.Len())
	assert.Equal(t, []string{"Demo.Program.Shutdown", "System.Console.Write", "string.Length"}, table.Keys())

	r, ok := table.Lookup("string", "Length")
	require.True(t, ok)
	assert.Equal(t, "size()", r.Text)
	assert.False(t, r.IsTemplate())
	assert.Equal(t, "size()", r.Expand("s", ""))

	r, ok = base.Lookup("string", "Length")
	require.True(t, ok)
	assert.Equal(t, "length", r.Text)

	// qualified name first, then the simple name
	_, ok = table.Lookup("System.Console", "Write")
	assert.True(t, ok)
	_, ok = table.Lookup("Other.Program", "Shutdown")
	assert.False(t, ok)
	_, ok = table.Lookup("", "Length")
	assert.False(t, ok)

	r, _ = table.Lookup("System.Console", "Write")
	assert.True(t, r.IsTemplate())
	assert.Equal(t, "console.log(a, b)", r.Expand("Console", "a, b"))
}

func TestNamingPolicyMemberName(t *testing.T) {
	doc := program(class("Program",
		`{"kind": "Method", "name": "Shutdown", "access": "public", "result": "void", "body": {"stmts": []}}`,
		`{"kind": "Method", "name": "GetValue", "access": "public", "result": "int", "body": {"stmts": [{"kind": "Return", "x": 1}]}}`,
		`{"kind": "Constructor", "access": "public", "body": {"stmts": []}}`,
		`{"kind": "Property", "name": "count", "access": "public", "type": "int", "getter": {}}`,
	))
	files := decode(t, doc)
	symbols := syntax.Resolve(files)
	forest := BuildForest(symbols, files)
	node := forest.Lookup("Demo.Program")
	require.NotNil(t, node)

	var shutdown, getValue, ctor, count syntax.SymbolID
	for _, m := range node.Members() {
		switch m := m.(type) {
		case *syntax.MethodDecl:
			if m.Name == "Shutdown" {
				shutdown = m.Sym
			} else {
				getValue = m.Sym
			}
		case *syntax.ConstructorDecl:
			ctor = m.Sym
		case *syntax.PropertyDecl:
			count = m.Sym
		}
	}

	policy := NamingPolicy{
		Methods:      SnakeCase,
		Properties:   PascalCase,
		Replacements: NewReplacementTable(map[string]string{"Demo.Program.Shutdown": "exit"}),
	}
	assert.Equal(t, "exit", policy.MemberName(symbols, shutdown))
	assert.Equal(t, "get_value", policy.MemberName(symbols, getValue))
	assert.Equal(t, "Program", policy.MemberName(symbols, ctor))
	assert.Equal(t, "Count", policy.MemberName(symbols, count))

	flat := NamingPolicy{QualifyMembers: true, Constructor: "new"}
	assert.Equal(t, "Program_GetValue", flat.MemberName(symbols, getValue))
	assert.Equal(t, "Program_new", flat.MemberName(symbols, ctor))
	assert.Equal(t, "", flat.MemberName(symbols, 0))
}
