package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeBuilderScopes(t *testing.T) {
	b := NewCodeBuilder("  ")
	outer := b.Append("class A ").Block()
	b.Append("x;").Line()
	inner := b.Block()
	assert.Equal(t, 2, b.Depth())
	inner.Close()
	inner.Close()
	outer.Close()

	assert.Equal(t, "class A {\n  x;\n  {\n  }\n}", b.String())
	assert.Equal(t, 0, b.Depth())
}

func TestCodeBuilderAppendIndentsEmbeddedLines(t *testing.T) {
	b := NewCodeBuilder("")
	s := b.Indent()
	b.Append("a\nb")
	s.Close()
	assert.Equal(t, "    a\n    b\n", b.String())
}

func TestCodeBuilderInlineScopes(t *testing.T) {
	b := NewCodeBuilder("\t")
	b.Append("f")
	p := b.Parens()
	b.List(3, ", ", func(i int) { b.Appendf("a%d", i) })
	p.Close()
	b.Space()
	br := b.Brackets()
	b.Append("0")
	br.Close()
	assert.Equal(t, "f(a0, a1, a2) [0]", b.String())

	b.EnsureLine().EnsureLine()
	b.AppendLine("end")
	assert.Equal(t, "f(a0, a1, a2) [0]\nend\n", b.String())
}

func TestCodeBuilderRunClosesOnPanic(t *testing.T) {
	b := NewCodeBuilder("  ")
	b.Append("f ").Block().Run(func() {
		b.Append("x;")
	})
	assert.Equal(t, "f {\n  x;\n}", b.String())
	assert.Equal(t, 0, b.Depth())

	assert.Panics(t, func() {
		b.Line().Block().Run(func() {
			b.Indent().Run(func() { panic("emit failed") })
		})
	})
	assert.Equal(t, 0, b.Depth(), "every scope is closed on the way out")
}
