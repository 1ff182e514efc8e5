package compiler

import (
	"fmt"
	"strings"
)

// CodeBuilder accumulates target text with scoped indentation. Opening a
// scope returns a Scope whose Close emits the matching closer and restores
// the indentation, so callers pair every open with a deferred Close.
type CodeBuilder struct {
	sb          strings.Builder
	indent      string
	depth       int
	atLineStart bool
}

func NewCodeBuilder(indent string) *CodeBuilder {
	if indent == "" {
		indent = "    "
	}
	return &CodeBuilder{indent: indent, atLineStart: true}
}

func (b *CodeBuilder) writeIndent() {
	if b.atLineStart {
		for i := 0; i < b.depth; i++ {
			b.sb.WriteString(b.indent)
		}
		b.atLineStart = false
	}
}

// Append writes s. Embedded newlines start indented lines.
func (b *CodeBuilder) Append(s string) *CodeBuilder {
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			break
		}
		if i > 0 {
			b.writeIndent()
			b.sb.WriteString(s[:i])
		}
		b.Line()
		s = s[i+1:]
	}
	if s != "" {
		b.writeIndent()
		b.sb.WriteString(s)
	}
	return b
}

func (b *CodeBuilder) Appendf(format string, args ...interface{}) *CodeBuilder {
	return b.Append(fmt.Sprintf(format, args...))
}

func (b *CodeBuilder) Space() *CodeBuilder { return b.Append(" ") }

// Line ends the current line.
func (b *CodeBuilder) Line() *CodeBuilder {
	b.sb.WriteByte('\n')
	b.atLineStart = true
	return b
}

// EnsureLine ends the current line unless it is empty.
func (b *CodeBuilder) EnsureLine() *CodeBuilder {
	if !b.atLineStart {
		b.Line()
	}
	return b
}

// AppendLine writes s on its own line.
func (b *CodeBuilder) AppendLine(s string) *CodeBuilder {
	return b.EnsureLine().Append(s).Line()
}

// List writes n items separated by sep.
func (b *CodeBuilder) List(n int, sep string, item func(i int)) *CodeBuilder {
	for i := 0; i < n; i++ {
		if i > 0 {
			b.Append(sep)
		}
		item(i)
	}
	return b
}

// Depth is the current indentation level.
func (b *CodeBuilder) Depth() int { return b.depth }

func (b *CodeBuilder) Len() int { return b.sb.Len() }

func (b *CodeBuilder) String() string { return b.sb.String() }

// Scope is an open indentation or bracket scope.
type Scope struct {
	b      *CodeBuilder
	closer string
	indent bool
	depth  int
	closed bool
}

// Close ends the scope. Closing twice is a no-op.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.indent {
		s.b.depth = s.depth
		s.b.EnsureLine()
	}
	if s.closer != "" {
		s.b.Append(s.closer)
	}
}

// Run calls fn inside the scope and closes it on every exit path.
func (s *Scope) Run(fn func()) {
	defer s.Close()
	fn()
}

// Indent increases the indentation until the scope closes.
func (b *CodeBuilder) Indent() *Scope {
	s := &Scope{b: b, indent: true, depth: b.depth}
	b.depth++
	return s
}

// Block opens a brace block on the current line.
func (b *CodeBuilder) Block() *Scope {
	return b.OpenBlock("{", "}")
}

// OpenBlock writes open, starts an indented line and closes with closer on
// its own line.
func (b *CodeBuilder) OpenBlock(open, closer string) *Scope {
	b.Append(open).Line()
	s := &Scope{b: b, closer: closer, indent: true, depth: b.depth}
	b.depth++
	return s
}

// Wrap opens an inline pair such as parentheses.
func (b *CodeBuilder) Wrap(open, closer string) *Scope {
	b.Append(open)
	return &Scope{b: b, closer: closer, depth: b.depth}
}

func (b *CodeBuilder) Parens() *Scope   { return b.Wrap("(", ")") }
func (b *CodeBuilder) Brackets() *Scope { return b.Wrap("[", "]") }
func (b *CodeBuilder) Angles() *Scope   { return b.Wrap("<", ">") }
