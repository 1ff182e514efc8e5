// syntax_checker.go rejects constructs that no target can express. The
// checks do not depend on the capability profile.
package compiler

import (
	"strings"

	"codebinder/syntax"
)

// rejection describes a categorically unsupported construct. The first line
// of description is the message, the rest is the hint.
type rejection struct {
	construct   string
	description string
}

var categoricalRejections = map[syntax.Kind]rejection{
	syntax.KindGoto: {"goto statement",
		"Goto statements are not supported.\n  Use structured control flow instead."},
	syntax.KindLabeled: {"labeled statement",
		"Labeled statements are not supported.\n  Use structured control flow instead."},
	syntax.KindFixed: {"fixed statement",
		"Fixed statements are not supported.\n  Pinned memory has no equivalent in the targets."},
	syntax.KindUnsafe: {"unsafe block",
		"Unsafe blocks are not supported.\n  Move pointer code behind a native interface."},
	syntax.KindCheckedBlock: {"checked block",
		"Checked and unchecked blocks are not supported.\n  Overflow checking differs between targets; remove the block."},
	syntax.KindCheckedExpr: {"checked expression",
		"Checked and unchecked expressions are not supported.\n  Overflow checking differs between targets; remove the operator."},
	syntax.KindQuery: {"query expression",
		"Query expressions are not supported.\n  Rewrite the query with loops or method calls."},
	syntax.KindPattern: {"pattern matching",
		"Pattern matching expressions are not supported.\n  Use is, as and explicit comparisons."},
	syntax.KindTuple: {"tuple expression",
		"Tuples are not supported.\n  Declare a class or struct for the values."},
	syntax.KindTupleType: {"tuple type",
		"Tuple types are not supported.\n  Declare a class or struct for the values."},
	syntax.KindPointerType: {"pointer type",
		"Pointer types are not supported.\n  Targets have no raw memory access."},
	syntax.KindAddressOf: {"address-of operator",
		"Taking addresses is not supported.\n  Targets have no raw memory access."},
	syntax.KindPointerDeref: {"pointer dereference",
		"Pointer dereference is not supported.\n  Targets have no raw memory access."},
	syntax.KindStackAlloc: {"stackalloc expression",
		"Stack allocation is not supported.\n  Allocate an array instead."},
	syntax.KindSizeOf: {"sizeof expression",
		"The sizeof operator is not supported.\n  Type sizes differ between targets."},
	syntax.KindAwait: {"await expression",
		"Asynchronous code is not supported.\n  Targets do not share an async model."},
	syntax.KindPreprocessor: {"preprocessor directive",
		"Preprocessor directives are not supported.\n  Resolve conditional code before conversion."},
}

var multiDimensional = rejection{"multi-dimensional array",
	"Multi-dimensional arrays are not supported.\n  Use jagged arrays (T[][]) instead."}

func (r rejection) message() string {
	msg, _, _ := strings.Cut(r.description, "\n")
	return r.construct + ": " + msg
}

func (r rejection) hint() string {
	_, hint, _ := strings.Cut(r.description, "\n")
	return strings.TrimSpace(hint)
}

// SyntaxChecker reports categorically unsupported constructs.
type SyntaxChecker struct {
	diags *Diagnostics
}

func NewSyntaxChecker(diags *Diagnostics) *SyntaxChecker {
	return &SyntaxChecker{diags: diags}
}

// Check reports n if it is categorically unsupported and tells whether it
// was rejected.
func (sc *SyntaxChecker) Check(n syntax.Node) bool {
	if r, ok := categoricalRejections[n.Kind()]; ok {
		sc.report(n, r)
		return true
	}
	switch n := n.(type) {
	case *syntax.ArrayType:
		if n.Rank > 1 {
			sc.report(n, multiDimensional)
			return true
		}
	case *syntax.ArrayCreation:
		if len(n.Sizes) > 1 {
			sc.report(n, multiDimensional)
			return true
		}
	case *syntax.ElementAccess:
		if len(n.Indices) > 1 {
			sc.report(n, multiDimensional)
			return true
		}
	}
	return false
}

func (sc *SyntaxChecker) report(n syntax.Node, r rejection) {
	sc.diags.Reject(StructuralRejection, n, r.hint(), "%s", r.message())
}

// Rejected reports whether kind is rejected on every target.
func Rejected(kind syntax.Kind) bool {
	_, ok := categoricalRejections[kind]
	return ok
}
