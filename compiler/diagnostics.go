package compiler

import (
	"fmt"
	"sort"
	"strings"

	"codebinder/errors"
	"codebinder/syntax"
)

// Category is the error taxonomy of a conversion.
type Category int

const (
	// StructuralRejection: the construct is never expressible in the target.
	StructuralRejection Category = iota
	// PolicyRejection: the construct needs a capability the profile lacks.
	PolicyRejection
	// Ambiguity: overloads cannot be told apart by argument count.
	Ambiguity
	// RewriteUnsupported: a by-reference argument has no box form.
	RewriteUnsupported
	// InternalError: a dispatch miss or rewrite inconsistency.
	InternalError
)

func (c Category) String() string {
	switch c {
	case StructuralRejection:
		return "structural rejection"
	case PolicyRejection:
		return "policy rejection"
	case Ambiguity:
		return "ambiguity"
	case RewriteUnsupported:
		return "rewrite unsupported"
	case InternalError:
		return "internal error"
	}
	return "unknown"
}

// Severity of a diagnostic
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one collected validation finding.
type Diagnostic struct {
	Category Category
	Severity Severity
	Node     syntax.NodeID
	Pos      syntax.Pos
	Message  string
	Hint     string
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s: %s", d.Pos, d.Category, d.Message)
	if d.Hint != "" {
		fmt.Fprintf(&sb, " (hint: %s)", d.Hint)
	}
	return sb.String()
}

// Diagnostics collects findings for one conversion unit.
type Diagnostics struct {
	items []Diagnostic
}

func (d *Diagnostics) Add(diag Diagnostic) {
	d.items = append(d.items, diag)
}

// Reject records an error for node n.
func (d *Diagnostics) Reject(cat Category, n syntax.Node, hint, format string, args ...interface{}) {
	diag := Diagnostic{
		Category: cat,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Hint:     hint,
	}
	if !syntax.IsNil(n) {
		diag.Node = n.ID()
		diag.Pos = n.Pos()
	}
	d.items = append(d.items, diag)
}

// Warnf records a warning for node n.
func (d *Diagnostics) Warnf(n syntax.Node, format string, args ...interface{}) {
	diag := Diagnostic{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
	if !syntax.IsNil(n) {
		diag.Node = n.ID()
		diag.Pos = n.Pos()
	}
	d.items = append(d.items, diag)
}

func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.items {
		if item.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-level diagnostics
func (d *Diagnostics) Errors() []Diagnostic {
	var out []Diagnostic
	for _, item := range d.items {
		if item.Severity == SeverityError {
			out = append(out, item)
		}
	}
	return out
}

// ByCategory returns the errors of one category.
func (d *Diagnostics) ByCategory(cat Category) []Diagnostic {
	var out []Diagnostic
	for _, item := range d.Errors() {
		if item.Category == cat {
			out = append(out, item)
		}
	}
	return out
}

func (d *Diagnostics) All() []Diagnostic { return d.items }

func (d *Diagnostics) Len() int { return len(d.items) }

// Merge appends the findings of other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other != nil {
		d.items = append(d.items, other.items...)
	}
}

// Sort orders findings by position, keeping discovery order for ties.
func (d *Diagnostics) Sort() {
	sort.SliceStable(d.items, func(i, j int) bool {
		a, b := d.items[i].Pos, d.items[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
}

// Format renders every finding on its own line.
func (d *Diagnostics) Format() string {
	var sb strings.Builder
	for _, item := range d.items {
		sb.WriteString(item.Severity.String())
		sb.WriteString(": ")
		sb.WriteString(item.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Err returns nil when there are no errors, otherwise an error marked with
// ErrUnitRejected that lists them.
func (d *Diagnostics) Err(unit string) error {
	errs := d.Errors()
	if len(errs) == 0 {
		return nil
	}
	err := errors.Wrapf(errors.ErrUnitRejected, "%s: %d error(s)", unit, len(errs))
	for _, e := range errs {
		err = errors.WithDetail(err, e.String())
		if e.Hint != "" {
			err = errors.WithHint(err, e.Hint)
		}
	}
	return err
}
