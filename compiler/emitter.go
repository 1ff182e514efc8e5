package compiler

import (
	"sort"

	"codebinder/syntax"
)

// AnnotationStyle places type annotations.
type AnnotationStyle int

const (
	// TypePrefix writes "int x".
	TypePrefix AnnotationStyle = iota
	// TypeSuffix writes "x: number".
	TypeSuffix
	// TypeNone writes no annotations.
	TypeNone
)

// OverloadStyle is how a target handles several methods of one name.
type OverloadStyle int

const (
	OverloadNative OverloadStyle = iota
	// OverloadArityDispatch emits one dispatcher per group that switches on
	// the argument count.
	OverloadArityDispatch
	// OverloadNone targets cannot overload at all.
	OverloadNone
)

func (s OverloadStyle) String() string {
	switch s {
	case OverloadNative:
		return "native"
	case OverloadArityDispatch:
		return "arity dispatch"
	}
	return "none"
}

// ForeachStyle selects the foreach loop spelling.
type ForeachStyle int

const (
	ForeachIn    ForeachStyle = iota // foreach (T x in xs)
	ForeachColon                     // for (T x : xs)
	ForeachOf                        // for (const x of xs)
)

// Style is the structural leaf data of a target.
type Style struct {
	Indent      string
	Annotations AnnotationStyle
	Overloads   OverloadStyle
	Foreach     ForeachStyle
	// ExplicitThis qualifies instance members with "this." and static
	// members with their type.
	ExplicitThis     bool
	LambdaArrow      string
	TemplateLiterals bool
	TypedCatch       bool
	// Bodies is false for stub targets that only declare members.
	Bodies               bool
	NativeLocalFunctions bool
	NullConditional      bool
	// RefArguments spells by-reference arguments with their direction.
	RefArguments bool
	// PropertyAccessors turns property reads and writes into get/set calls.
	PropertyAccessors bool
	// CaptureByValue targets need boxes for locals written after capture.
	CaptureByValue bool
	// NestedTypes emits nested types inside their parent.
	NestedTypes bool
	// ValueTypes targets copy structs on assignment.
	ValueTypes bool
	// PackageDirs places artifacts in one directory per namespace.
	PackageDirs bool
	// DefaultArgs targets accept default parameter values. Others get the
	// defaults filled in at call sites.
	DefaultArgs bool
	// InitializerOpen and InitializerClose bracket element lists.
	InitializerOpen  string
	InitializerClose string
	// Formats for typeof, is and as. %[1]s is the operand, %[2]s the type.
	// PrimitiveIsFormat, when set, tests keyword types.
	TypeOfFormat      string
	IsFormat          string
	PrimitiveIsFormat string
	AsFormat          string
	LockKeyword       string
	Using             UsingStyle
	// DefaultCatchType is caught by catch clauses without a type.
	DefaultCatchType string
}

// UsingStyle selects how using statements are spelled.
type UsingStyle int

const (
	UsingNative  UsingStyle = iota // using (r) body
	UsingTryWith                   // try (r) body
	UsingFinally                   // try body finally { r.dispose(); }
)

// Emitter is the per-target leaf behaviour driven by the dispatcher. The
// dispatcher owns the walk; an Emitter spells tokens, types and
// declarations. Implementations embed BaseEmitter and override what
// differs. Hooks always go through ctx.Emitter so overrides apply.
type Emitter interface {
	// Name is the registry name of the target.
	Name() string
	// Extension is the artifact file extension, dot included.
	Extension() string
	// DefaultProfile is the capability set the target supports.
	DefaultProfile() CapabilityProfile
	// Naming is the built-in naming policy, replacements included.
	Naming() NamingPolicy
	Style() *Style

	Token(t TokenType) string
	Literal(lit *syntax.Literal) string
	Operator(op syntax.Operator) string
	// TypeName spells a type reference.
	TypeName(ctx *EmissionContext, t syntax.TypeExpr) string
	// DefaultValue spells the zero value of t.
	DefaultValue(ctx *EmissionContext, t syntax.TypeExpr) string
	// BoxElement reports the element type of the box for a by-reference
	// value of type t, and whether reading it back needs a cast. ok is false
	// when t has no box form.
	BoxElement(symbols *syntax.SymbolTable, t syntax.TypeExpr) (elem syntax.TypeExpr, cast bool, ok bool)
	// ClosureSupported reports whether a closure of type t can be spelled.
	ClosureSupported(t *syntax.FuncType) bool
	// ValueInvoke is the member used to call a closure of type callee, or
	// "" when closures are called directly.
	ValueInvoke(ctx *EmissionContext, callee syntax.TypeExpr) string

	// Prologue and Epilogue frame every artifact.
	Prologue(ctx *EmissionContext, root *DeclarationNode) string
	Epilogue(ctx *EmissionContext, root *DeclarationNode) string
	// TypeDeclaration emits one type with its members.
	TypeDeclaration(ctx *EmissionContext, node *DeclarationNode)

	Field(ctx *EmissionContext, f *syntax.FieldDecl)
	Method(ctx *EmissionContext, m *syntax.MethodDecl, mb *MethodBinding)
	Constructor(ctx *EmissionContext, c *syntax.ConstructorDecl, mb *MethodBinding)
	Property(ctx *EmissionContext, p *syntax.PropertyDecl)
	Finalizer(ctx *EmissionContext, f *syntax.FinalizerDecl)

	Cast(ctx *EmissionContext, c *syntax.Cast)
	ArrayCreation(ctx *EmissionContext, a *syntax.ArrayCreation)
	Parameter(ctx *EmissionContext, p *syntax.Parameter)
}

// EmissionContext is the state of emitting one conversion unit.
type EmissionContext struct {
	Profile      CapabilityProfile
	Emitter      Emitter
	Style        *Style
	Forest       *Forest
	Decl         *DeclarationNode
	Symbols      *syntax.SymbolTable
	Binder       *Binder
	Replacements ReplacementTable
	Builder      *CodeBuilder

	// Root is the forest root of the unit.
	Root *DeclarationNode
	// Member is the method-like symbol whose body is being emitted.
	Member syntax.SymbolID

	rewritten map[DeclID]*DeclarationNode
	imports   map[string]struct{}
	deps      map[DeclID]struct{}
}

// Node returns the unit's view of a declaration, rewritten if it was.
func (c *EmissionContext) Node(id DeclID) *DeclarationNode {
	if n, ok := c.rewritten[id]; ok {
		return n
	}
	return c.Forest.Node(id)
}

// Sym looks up a symbol in the unit's table.
func (c *EmissionContext) Sym(id syntax.SymbolID) *syntax.Symbol {
	return c.Symbols.Lookup(id)
}

// Require records an import the artifact needs.
func (c *EmissionContext) Require(imp string) {
	if c.imports == nil {
		c.imports = map[string]struct{}{}
	}
	c.imports[imp] = struct{}{}
}

// Imports returns the recorded imports, sorted.
func (c *EmissionContext) Imports() []string {
	out := make([]string, 0, len(c.imports))
	for imp := range c.imports {
		out = append(out, imp)
	}
	sort.Strings(out)
	return out
}

// noteType records a reference to a program type. References to types of
// other units become dependencies of the artifact.
func (c *EmissionContext) noteType(sym *syntax.Symbol) {
	if sym == nil || c.Forest == nil || c.Root == nil {
		return
	}
	n := c.Forest.BySymbol(sym.ID)
	if n == nil {
		return
	}
	root := c.Forest.Root(n)
	if root.ID == c.Root.ID {
		return
	}
	if c.deps == nil {
		c.deps = map[DeclID]struct{}{}
	}
	c.deps[root.ID] = struct{}{}
}

// Dependencies returns the other units this artifact refers to, by name.
func (c *EmissionContext) Dependencies() []*DeclarationNode {
	out := make([]*DeclarationNode, 0, len(c.deps))
	for id := range c.deps {
		out = append(out, c.Forest.Node(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out
}

// enterDecl makes node current until the returned func runs.
func (c *EmissionContext) enterDecl(node *DeclarationNode) func() {
	prev := c.Decl
	c.Decl = node
	return func() { c.Decl = prev }
}

// enterMember makes sym the current member until the returned func runs.
func (c *EmissionContext) enterMember(sym syntax.SymbolID) func() {
	prev := c.Member
	c.Member = sym
	return func() { c.Member = prev }
}

// InStatic reports whether the current member is static.
func (c *EmissionContext) InStatic() bool {
	s := c.Sym(c.Member)
	return s != nil && s.Static
}
