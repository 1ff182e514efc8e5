package compiler

import (
	"strconv"
	"strings"
	"unicode"

	"codebinder/syntax"
)

// BaseEmitter holds the leaf data of a target and implements the Emitter
// hooks with C-family defaults. Declaration hooks do nothing; targets
// override them.
type BaseEmitter struct {
	name    string
	ext     string
	profile CapabilityProfile
	naming  NamingPolicy
	style   Style
	tokens  TokenTable
	// operators overrides operator spellings. An empty spelling means the
	// operator has no direct form.
	operators map[syntax.Operator]string
	// types spells keyword types.
	types map[string]string
	// zero spells the default value of keyword types.
	zero map[string]string
	// suffix is appended to numeric literals of a kind.
	suffix    map[syntax.LiteralKind]string
	charQuote byte
	access    map[syntax.Accessibility]string
}

func (e *BaseEmitter) Name() string                      { return e.name }
func (e *BaseEmitter) Extension() string                 { return e.ext }
func (e *BaseEmitter) DefaultProfile() CapabilityProfile { return e.profile }
func (e *BaseEmitter) Naming() NamingPolicy              { return e.naming }
func (e *BaseEmitter) Style() *Style                     { return &e.style }
func (e *BaseEmitter) Token(t TokenType) string          { return e.tokens[t] }

func (e *BaseEmitter) Literal(lit *syntax.Literal) string {
	switch lit.LitKind {
	case syntax.LitNull:
		return e.tokens[TokNull]
	case syntax.LitBool:
		if lit.Value == "true" {
			return e.tokens[TokTrue]
		}
		return e.tokens[TokFalse]
	case syntax.LitString:
		return quote(lit.Value, '"')
	case syntax.LitChar:
		q := e.charQuote
		if q == 0 {
			q = '\''
		}
		return quote(lit.Value, q)
	}
	return lit.Value + e.suffix[lit.LitKind]
}

func (e *BaseEmitter) Operator(op syntax.Operator) string {
	if s, ok := e.operators[op]; ok {
		return s
	}
	return op.String()
}

// accessWord spells an accessibility.
func (e *BaseEmitter) accessWord(a syntax.Accessibility) string {
	if s, ok := e.access[a]; ok {
		return s
	}
	return ""
}

func (e *BaseEmitter) TypeName(ctx *EmissionContext, t syntax.TypeExpr) string {
	switch t := t.(type) {
	case nil:
		return e.tokens[TokVoid]
	case *syntax.PredefinedType:
		if s, ok := e.types[t.Name]; ok {
			return s
		}
		return t.Name
	case *syntax.NamedType:
		return e.namedType(ctx, t)
	case *syntax.ArrayType:
		rank := max(t.Rank, 1)
		return ctx.Emitter.TypeName(ctx, t.Elem) + "[" + strings.Repeat(",", rank-1) + "]"
	case *syntax.NullableType:
		return ctx.Emitter.TypeName(ctx, t.Elem) + "?"
	case *syntax.PointerType:
		return ctx.Emitter.TypeName(ctx, t.Elem) + "*"
	case *syntax.FuncType:
		args := make([]string, 0, len(t.Params)+1)
		for _, p := range t.Params {
			args = append(args, ctx.Emitter.TypeName(ctx, p))
		}
		if syntax.IsVoid(t.Result) {
			if len(args) == 0 {
				return "Action"
			}
			return "Action<" + strings.Join(args, ", ") + ">"
		}
		args = append(args, ctx.Emitter.TypeName(ctx, t.Result))
		return "Func<" + strings.Join(args, ", ") + ">"
	case *syntax.TupleType:
		elems := make([]string, len(t.Elems))
		for i, el := range t.Elems {
			elems[i] = ctx.Emitter.TypeName(ctx, el)
		}
		return "(" + strings.Join(elems, ", ") + ")"
	}
	panic(&UnsupportedNodeError{Kind: t.Kind(), Pos: t.Pos()})
}

// namedType spells a named type with its arguments.
func (e *BaseEmitter) namedType(ctx *EmissionContext, t *syntax.NamedType) string {
	name := t.Name
	if s := ctx.Sym(t.Sym); s != nil && s.IsType() {
		name = typeRefName(ctx, s)
	}
	if len(t.Args) == 0 {
		return name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = ctx.Emitter.TypeName(ctx, a)
	}
	return name + "<" + strings.Join(args, ", ") + ">"
}

func (e *BaseEmitter) DefaultValue(ctx *EmissionContext, t syntax.TypeExpr) string {
	if p, ok := t.(*syntax.PredefinedType); ok {
		if z, ok := e.zero[p.Name]; ok {
			return z
		}
	}
	if nt, ok := t.(*syntax.NamedType); ok {
		if s := ctx.Sym(nt.Sym); s != nil && s.TypeKind == syntax.TypeEnum {
			if z, ok := e.zero["int"]; ok {
				return z
			}
		}
	}
	return e.tokens[TokNull]
}

func (e *BaseEmitter) BoxElement(_ *syntax.SymbolTable, t syntax.TypeExpr) (syntax.TypeExpr, bool, bool) {
	switch t.(type) {
	case nil, *syntax.PointerType:
		return nil, false, false
	}
	if syntax.IsVoid(t) {
		return nil, false, false
	}
	return t, false, true
}

func (e *BaseEmitter) ClosureSupported(*syntax.FuncType) bool { return true }

func (e *BaseEmitter) ValueInvoke(*EmissionContext, syntax.TypeExpr) string { return "" }

func (e *BaseEmitter) Prologue(*EmissionContext, *DeclarationNode) string { return "" }
func (e *BaseEmitter) Epilogue(*EmissionContext, *DeclarationNode) string { return "" }

func (e *BaseEmitter) TypeDeclaration(*EmissionContext, *DeclarationNode)                    {}
func (e *BaseEmitter) Field(*EmissionContext, *syntax.FieldDecl)                             {}
func (e *BaseEmitter) Method(*EmissionContext, *syntax.MethodDecl, *MethodBinding)           {}
func (e *BaseEmitter) Constructor(*EmissionContext, *syntax.ConstructorDecl, *MethodBinding) {}
func (e *BaseEmitter) Property(*EmissionContext, *syntax.PropertyDecl)                       {}
func (e *BaseEmitter) Finalizer(*EmissionContext, *syntax.FinalizerDecl)                     {}

// Cast writes "(T) x".
func (e *BaseEmitter) Cast(ctx *EmissionContext, c *syntax.Cast) {
	ctx.Builder.Append("(").Append(ctx.Emitter.TypeName(ctx, c.Type)).Append(") ")
	emitOperand(ctx, c.X)
}

// emitOperand writes x, parenthesized unless it is a primary expression.
func emitOperand(ctx *EmissionContext, x syntax.Expr) {
	switch x.(type) {
	case *syntax.Binary, *syntax.Conditional, *syntax.Assignment, *syntax.Lambda,
		*syntax.Cast, *syntax.AsType, *syntax.IsType, *syntax.Unary:
		ctx.Builder.Parens().Run(func() { EmitExpr(ctx, x) })
	default:
		EmitExpr(ctx, x)
	}
}

// ArrayCreation writes "new T[n]" or "new T[] { a, b }".
func (e *BaseEmitter) ArrayCreation(ctx *EmissionContext, a *syntax.ArrayCreation) {
	b := ctx.Builder
	elem, suffix := a.Elem, ""
	for {
		at, ok := elem.(*syntax.ArrayType)
		if !ok {
			break
		}
		suffix += "[]"
		elem = at.Elem
	}
	b.Append(e.tokens[TokNew]).Space().Append(ctx.Emitter.TypeName(ctx, elem))
	if len(a.Sizes) == 0 {
		b.Append("[]")
	}
	for _, size := range a.Sizes {
		b.Brackets().Run(func() { EmitExpr(ctx, size) })
	}
	b.Append(suffix)
	if a.Init != nil {
		b.Space()
		EmitExpr(ctx, a.Init)
	}
}

// Parameter writes "[ref ]T name[ = default]".
func (e *BaseEmitter) Parameter(ctx *EmissionContext, p *syntax.Parameter) {
	b := ctx.Builder
	if p.Ref != syntax.RefNone {
		b.Append(p.Ref.String()).Space()
	}
	if p.Variadic {
		b.Append("params ")
	}
	b.Append(ctx.Emitter.TypeName(ctx, p.Type)).Space().Append(p.Name)
	if p.Default != nil && ctx.Style.DefaultArgs {
		b.Append(" = ")
		EmitExpr(ctx, p.Default)
	}
}

// ---- declaration helpers shared by the targets ----

// typeBases splits the base list of a type into its base class and its
// interfaces. An unresolved leading base of a class is the base class
// unless its name follows the interface convention.
func typeBases(ctx *EmissionContext, node *DeclarationNode) (class syntax.TypeExpr, ifaces []syntax.TypeExpr) {
	for i, b := range node.Bases() {
		kind, known := baseKind(ctx, b)
		switch {
		case node.TypeKind != syntax.TypeClass:
			ifaces = append(ifaces, b)
		case known && kind == syntax.TypeClass:
			class = b
		case !known && i == 0 && !interfaceName(b):
			class = b
		default:
			ifaces = append(ifaces, b)
		}
	}
	return class, ifaces
}

func baseKind(ctx *EmissionContext, b syntax.TypeExpr) (syntax.TypeKind, bool) {
	if nt, ok := b.(*syntax.NamedType); ok {
		if s := ctx.Sym(nt.Sym); s != nil && s.IsType() {
			return s.TypeKind, true
		}
	}
	return syntax.TypeClass, false
}

// interfaceName reports whether a type is named like IFoo.
func interfaceName(t syntax.TypeExpr) bool {
	nt, ok := t.(*syntax.NamedType)
	if !ok {
		return false
	}
	name := nt.Name[strings.LastIndex(nt.Name, ".")+1:]
	return len(name) > 1 && name[0] == 'I' && unicode.IsUpper(rune(name[1]))
}

// enumMember is an enum constant with its spelled value.
type enumMember struct {
	Name  string
	Value string
}

// enumValues spells the value of each member of an enum: the declared one,
// or one more than the previous member.
func enumValues(ctx *EmissionContext, node *DeclarationNode) []enumMember {
	var out []enumMember
	next, known, prev := 0, true, ""
	for _, m := range node.Members() {
		em, ok := m.(*syntax.EnumMember)
		if !ok {
			continue
		}
		var value string
		switch {
		case em.Value != nil:
			value = renderExpr(ctx, em.Value)
			n, err := strconv.Atoi(value)
			known = err == nil
			next = n + 1
		case known:
			value = strconv.Itoa(next)
			next++
		default:
			value = "(" + prev + ") + 1"
		}
		prev = value
		out = append(out, enumMember{Name: em.Name, Value: value})
	}
	return out
}

// autoProperty reports whether p stores its value in a generated field.
func autoProperty(p *syntax.PropertyDecl) bool {
	if p.Abstract {
		return false
	}
	if p.Getter != nil && p.Getter.Body != nil || p.Setter != nil && p.Setter.Body != nil {
		return false
	}
	return p.Getter != nil || p.Setter != nil
}

// methodName is the declared name of a bound method or constructor.
func methodName(ctx *EmissionContext, sym syntax.SymbolID, mb *MethodBinding) string {
	if mb == nil {
		return ctx.Emitter.Naming().MemberName(ctx.Symbols, sym)
	}
	return callName(ctx, mb)
}

// inInterface reports whether the current declaration is an interface.
func inInterface(ctx *EmissionContext) bool {
	return ctx.Decl != nil && ctx.Decl.TypeKind == syntax.TypeInterface
}

// emitBodyWith writes a member body that starts with a generated statement,
// such as a call to the base constructor.
func emitBodyWith(ctx *EmissionContext, sym syntax.SymbolID, first func(), body *syntax.Block, last func()) {
	defer ctx.enterMember(sym)()
	b := ctx.Builder
	b.Space()
	scope := b.Block()
	defer scope.Close()
	if first != nil {
		first()
	}
	if body != nil {
		for _, st := range body.Stmts {
			EmitStmt(ctx, st)
		}
	}
	if last != nil {
		last()
	}
}

// emitCall writes "name(args)" followed by the statement terminator.
func emitCall(ctx *EmissionContext, name string, args []*syntax.Argument, callee syntax.SymbolID) {
	b := ctx.Builder
	b.EnsureLine().Append(name).Append("(")
	emitArgs(ctx, args, ctx.Sym(callee))
	b.Append(")")
	end(ctx)
}
