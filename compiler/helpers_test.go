package compiler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"codebinder/logger"
	"codebinder/syntax"
)

// useTestLogger routes the global logger to t for the rest of the test.
func useTestLogger(t *testing.T) {
	t.Helper()
	saved := logger.Logger
	logger.Logger = zaptest.NewLogger(t).Sugar()
	t.Cleanup(func() { logger.Logger = saved })
}

// class renders a class declaration of namespace Demo.
func class(name string, members ...string) string {
	return fmt.Sprintf(`{"kind": "TypeDecl", "name": %q, "access": "public", "members": [%s]}`,
		name, strings.Join(members, ",\n"))
}

// program wraps type declarations into a single-file document.
func program(types ...string) string {
	return fmt.Sprintf(`{"files": [{"kind": "File", "name": "Program.cs", "decls": [
  {"kind": "Namespace", "name": "Demo", "decls": [%s]}]}]}`, strings.Join(types, ",\n"))
}

func decode(t *testing.T, doc string) []*syntax.File {
	t.Helper()
	d, err := syntax.DecodeBytes([]byte(doc))
	require.NoError(t, err)
	return d.Files
}

func newConverter(t *testing.T, doc string, opts ConverterOptions) *Converter {
	t.Helper()
	useTestLogger(t)
	return NewConverter(decode(t, doc), nil, opts)
}

func target(t *testing.T, name string) Emitter {
	t.Helper()
	em, err := NewTarget(name, TargetOptions{})
	require.NoError(t, err)
	return em
}

// convert runs one target over doc and returns the results keyed by unit.
func convert(t *testing.T, doc, targetName string) map[string]*UnitResult {
	t.Helper()
	c := newConverter(t, doc, ConverterOptions{Workers: 2})
	results, err := c.Convert(context.Background(), target(t, targetName))
	require.NoError(t, err)
	out := map[string]*UnitResult{}
	for _, r := range results {
		out[r.Unit] = r
	}
	return out
}

// artifactText joins the artifacts of a converted unit.
func artifactText(t *testing.T, r *UnitResult) string {
	t.Helper()
	require.NotNil(t, r)
	require.Equal(t, UnitConverted, r.Status, "diagnostics:\n%s", r.Diagnostics.Format())
	var sb strings.Builder
	for _, a := range r.Artifacts {
		sb.WriteString(a.Text)
	}
	return sb.String()
}

// messages lists the error messages of a result.
func messages(d *Diagnostics) []string {
	var out []string
	for _, e := range d.Errors() {
		out = append(out, e.Message)
	}
	return out
}

// memberByName finds a method declaration among the members of a node.
func memberByName(n *DeclarationNode, name string) *syntax.MethodDecl {
	for _, m := range n.Members() {
		if md, ok := m.(*syntax.MethodDecl); ok && md.Name == name {
			return md
		}
	}
	return nil
}
