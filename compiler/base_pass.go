package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"codebinder/syntax"
)

// UnsupportedNodeError is the panic value of a dispatch miss. It means a
// node reached emission that validation should have rejected.
type UnsupportedNodeError struct {
	Kind syntax.Kind
	Pos  syntax.Pos
}

func (e *UnsupportedNodeError) Error() string {
	return fmt.Sprintf("%s: unsupported node kind %s", e.Pos, e.Kind)
}

type (
	exprHandler func(ctx *EmissionContext, e syntax.Expr)
	stmtHandler func(ctx *EmissionContext, s syntax.Stmt)
)

var (
	exprHandlers map[syntax.Kind]exprHandler
	stmtHandlers map[syntax.Kind]stmtHandler
)

func init() {
	exprHandlers = map[syntax.Kind]exprHandler{
		syntax.KindLiteral:            emitLiteral,
		syntax.KindIdentifier:         emitIdentifier,
		syntax.KindMemberAccess:       emitMemberAccess,
		syntax.KindInvocation:         emitInvocation,
		syntax.KindObjectCreation:     emitObjectCreation,
		syntax.KindArrayCreation:      emitArrayCreation,
		syntax.KindInitializer:        emitInitializer,
		syntax.KindElementAccess:      emitElementAccess,
		syntax.KindBinary:             emitBinary,
		syntax.KindUnary:              emitUnary,
		syntax.KindPostfix:            emitPostfix,
		syntax.KindAssignment:         emitAssignment,
		syntax.KindConditional:        emitConditional,
		syntax.KindParen:              emitParen,
		syntax.KindCast:               emitCast,
		syntax.KindThis:               emitThis,
		syntax.KindBaseAccess:         emitBaseAccess,
		syntax.KindTypeOf:             emitTypeOf,
		syntax.KindIsType:             emitIsType,
		syntax.KindAsType:             emitAsType,
		syntax.KindDefault:            emitDefault,
		syntax.KindLambda:             emitLambda,
		syntax.KindInterpolatedString: emitInterpolated,
		syntax.KindNameOf:             emitNameOf,
		syntax.KindConditionalAccess:  emitConditionalAccess,
	}
	stmtHandlers = map[syntax.Kind]stmtHandler{
		syntax.KindBlock:         emitBlockStmt,
		syntax.KindExprStmt:      emitExprStmt,
		syntax.KindLocalDecl:     emitLocalDeclStmt,
		syntax.KindIf:            emitIf,
		syntax.KindWhile:         emitWhile,
		syntax.KindDo:            emitDo,
		syntax.KindFor:           emitFor,
		syntax.KindForeach:       emitForeach,
		syntax.KindSwitch:        emitSwitch,
		syntax.KindBreak:         emitBreak,
		syntax.KindContinue:      emitContinue,
		syntax.KindReturn:        emitReturn,
		syntax.KindThrow:         emitThrow,
		syntax.KindTry:           emitTry,
		syntax.KindUsing:         emitUsing,
		syntax.KindLock:          emitLock,
		syntax.KindYield:         emitYield,
		syntax.KindLocalFunction: emitLocalFunction,
		syntax.KindEmpty:         emitEmpty,
	}
}

// Dispatchable reports whether the dispatcher has a handler for k.
func Dispatchable(k syntax.Kind) bool {
	if _, ok := exprHandlers[k]; ok {
		return true
	}
	_, ok := stmtHandlers[k]
	return ok
}

func unsupported(n syntax.Node) {
	panic(&UnsupportedNodeError{Kind: n.Kind(), Pos: n.Pos()})
}

// EmitExpr appends the target spelling of e.
func EmitExpr(ctx *EmissionContext, e syntax.Expr) *CodeBuilder {
	h, ok := exprHandlers[e.Kind()]
	if !ok {
		unsupported(e)
	}
	h(ctx, e)
	return ctx.Builder
}

// EmitStmt appends s starting on a fresh line. The cursor stays at the end
// of the statement's last line.
func EmitStmt(ctx *EmissionContext, s syntax.Stmt) *CodeBuilder {
	h, ok := stmtHandlers[s.Kind()]
	if !ok {
		unsupported(s)
	}
	ctx.Builder.EnsureLine()
	h(ctx, s)
	return ctx.Builder
}

// EmitType appends the target spelling of a type reference.
func EmitType(ctx *EmissionContext, t syntax.TypeExpr) *CodeBuilder {
	return ctx.Builder.Append(ctx.Emitter.TypeName(ctx, t))
}

// render captures the output of f as a string.
func render(ctx *EmissionContext, f func()) string {
	saved := ctx.Builder
	ctx.Builder = NewCodeBuilder(ctx.Style.Indent)
	defer func() { ctx.Builder = saved }()
	f()
	return ctx.Builder.String()
}

func renderExpr(ctx *EmissionContext, e syntax.Expr) string {
	return render(ctx, func() { EmitExpr(ctx, e) })
}

// ---- names ----

// typeRefName spells a reference to a program type.
func typeRefName(ctx *EmissionContext, sym *syntax.Symbol) string {
	ctx.noteType(sym)
	naming := ctx.Emitter.Naming()
	name := naming.TypeName(sym)
	if !ctx.Style.NestedTypes {
		return name
	}
	for c := ctx.Sym(sym.Container); c != nil && c.Kind == syntax.SymType; c = ctx.Sym(c.Container) {
		name = naming.TypeName(c) + "." + name
	}
	return name
}

// memberName is the emitted name of a member symbol.
func memberName(ctx *EmissionContext, sym *syntax.Symbol) string {
	switch sym.Kind {
	case syntax.SymMethod, syntax.SymConstructor:
		if mb, ok := ctx.Binder.Binding(sym.ID); ok {
			return callName(ctx, mb)
		}
		return ctx.Binder.NameOf(sym.ID)
	case syntax.SymProperty:
		if ctx.Style.PropertyAccessors {
			return "get" + PascalCase.Apply(sym.Name) + "()"
		}
		return ctx.Emitter.Naming().MemberName(ctx.Symbols, sym.ID)
	}
	return sym.Name
}

// callName is the name callers use for a binding. Members of overloaded
// groups on arity dispatch targets are called directly.
func callName(ctx *EmissionContext, mb *MethodBinding) string {
	if ctx.Style.Overloads == OverloadArityDispatch && ctx.Binder.Overloaded(mb) {
		return arityName(mb)
	}
	return mb.Name
}

func arityName(mb *MethodBinding) string {
	name := mb.Name
	if mb.Constructor {
		name = "$ctor"
	}
	return name + "$" + strconv.Itoa(mb.Min)
}

func setterName(sym *syntax.Symbol) string { return "set" + PascalCase.Apply(sym.Name) }

// implicitQualifier is the prefix of an unqualified member reference.
func implicitQualifier(ctx *EmissionContext, sym *syntax.Symbol) string {
	if !ctx.Style.ExplicitThis || !sym.Kind.IsMember() || sym.Kind == syntax.SymConstructor {
		return ""
	}
	owner := ctx.Symbols.DeclaringType(sym.ID)
	if owner == nil {
		return ""
	}
	if sym.Static || sym.Kind == syntax.SymEnumMember {
		return typeRefName(ctx, owner) + "."
	}
	return ctx.Emitter.Token(TokThis) + "."
}

func symbolOf(ctx *EmissionContext, e syntax.Expr) *syntax.Symbol {
	switch e := e.(type) {
	case *syntax.Identifier:
		return ctx.Sym(e.Sym)
	case *syntax.MemberAccess:
		return ctx.Sym(e.Sym)
	case *syntax.ConditionalAccess:
		return ctx.Sym(e.Sym)
	case *syntax.Paren:
		return symbolOf(ctx, e.X)
	}
	return nil
}

// denotesType reports whether e names a type rather than a value: a type
// symbol, or an unresolved dotted path such as a library class.
func denotesType(ctx *EmissionContext, e syntax.Expr) bool {
	switch e := e.(type) {
	case *syntax.Identifier:
		s := ctx.Sym(e.Sym)
		return s == nil || s.IsType()
	case *syntax.MemberAccess:
		if s := ctx.Sym(e.Sym); s != nil {
			return s.IsType()
		}
		return denotesType(ctx, e.X)
	}
	return false
}

// receiverType names the static type of a receiver for replacement lookups.
func receiverType(ctx *EmissionContext, e syntax.Expr) string {
	switch e := e.(type) {
	case *syntax.Literal:
		if e.LitKind == syntax.LitString {
			return "string"
		}
	case *syntax.This:
		if ctx.Decl != nil {
			return ctx.Decl.QualifiedName
		}
	case *syntax.Identifier, *syntax.MemberAccess:
		if s := symbolOf(ctx, e); s != nil {
			if s.IsType() {
				return s.Qualified
			}
			return staticTypeName(ctx, s.Type)
		}
		return pathText(e)
	case *syntax.Paren:
		return receiverType(ctx, e.X)
	}
	return ""
}

func staticTypeName(ctx *EmissionContext, t syntax.TypeExpr) string {
	switch t := t.(type) {
	case *syntax.PredefinedType:
		return t.Name
	case *syntax.NamedType:
		if s := ctx.Sym(t.Sym); s != nil {
			return s.Qualified
		}
		return t.Name
	case *syntax.NullableType:
		return staticTypeName(ctx, t.Elem)
	case *syntax.ArrayType:
		return "array"
	}
	return ""
}

func pathText(e syntax.Expr) string {
	switch e := e.(type) {
	case *syntax.Identifier:
		return e.Name
	case *syntax.MemberAccess:
		if x := pathText(e.X); x != "" {
			return x + "." + e.Name
		}
	}
	return ""
}

// ---- expressions ----

func emitLiteral(ctx *EmissionContext, e syntax.Expr) {
	ctx.Builder.Append(ctx.Emitter.Literal(e.(*syntax.Literal)))
}

func emitIdentifier(ctx *EmissionContext, e syntax.Expr) {
	id := e.(*syntax.Identifier)
	b := ctx.Builder
	sym := ctx.Sym(id.Sym)
	switch {
	case sym == nil:
		b.Append(id.Name)
	case sym.IsType():
		b.Append(typeRefName(ctx, sym))
	case sym.Kind.IsMember():
		b.Append(implicitQualifier(ctx, sym)).Append(memberName(ctx, sym))
	default:
		b.Append(sym.Name)
	}
}

func emitMemberAccess(ctx *EmissionContext, e syntax.Expr) {
	ma := e.(*syntax.MemberAccess)
	b := ctx.Builder
	if r, ok := ctx.Replacements.Lookup(receiverType(ctx, ma.X), ma.Name); ok {
		emitReplacement(ctx, r, ma.X, ma.Name, "")
		return
	}
	sym := ctx.Sym(ma.Sym)
	EmitExpr(ctx, ma.X)
	b.Append(".")
	switch {
	case sym == nil:
		b.Append(ma.Name)
	case sym.IsType():
		b.Append(ctx.Emitter.Naming().TypeName(sym))
	case sym.Kind.IsMember():
		b.Append(memberName(ctx, sym))
	default:
		b.Append(ma.Name)
	}
}

// emitReplacement spells a replaced member. Plain replacements of members
// reached through a type replace the whole access; on values they replace
// the member name.
func emitReplacement(ctx *EmissionContext, r Replacement, x syntax.Expr, name, args string) {
	if r.IsTemplate() {
		ctx.Builder.Append(r.Expand(renderExpr(ctx, x), args))
		return
	}
	if denotesType(ctx, x) {
		ctx.Builder.Append(r.Text)
		return
	}
	EmitExpr(ctx, x)
	ctx.Builder.Append(".").Append(r.Text)
}

func emitInvocation(ctx *EmissionContext, e syntax.Expr) {
	call := e.(*syntax.Invocation)
	b := ctx.Builder
	if ma, ok := call.Fun.(*syntax.MemberAccess); ok && !call.ValueCall {
		if r, ok := ctx.Replacements.Lookup(receiverType(ctx, ma.X), ma.Name); ok {
			if r.IsTemplate() {
				args := render(ctx, func() { emitArgs(ctx, call.Args, nil) })
				emitReplacement(ctx, r, ma.X, ma.Name, args)
				return
			}
			emitReplacement(ctx, r, ma.X, ma.Name, "")
			b.Append("(")
			emitArgs(ctx, call.Args, nil)
			b.Append(")")
			return
		}
	}
	sym := symbolOf(ctx, call.Fun)
	if call.ValueCall || sym == nil && !isPath(call.Fun) || sym != nil && sym.Kind.IsVariable() {
		EmitExpr(ctx, call.Fun)
		var callee syntax.TypeExpr
		if sym != nil {
			callee = sym.Type
		}
		if inv := ctx.Emitter.ValueInvoke(ctx, callee); inv != "" {
			b.Append(".").Append(inv)
		}
		b.Append("(")
		emitArgs(ctx, call.Args, nil)
		b.Append(")")
		return
	}
	EmitExpr(ctx, call.Fun)
	b.Append("(")
	emitArgs(ctx, call.Args, sym)
	b.Append(")")
}

func isPath(e syntax.Expr) bool {
	switch e.(type) {
	case *syntax.Identifier, *syntax.MemberAccess:
		return true
	}
	return false
}

// emitArgs writes call arguments. With a resolved callee, targets without
// default parameter values get the omitted defaults appended.
func emitArgs(ctx *EmissionContext, args []*syntax.Argument, callee *syntax.Symbol) {
	b := ctx.Builder
	b.List(len(args), ", ", func(i int) {
		a := args[i]
		if ctx.Style.RefArguments && a.Ref != syntax.RefNone {
			b.Append(a.Ref.String()).Space()
		}
		EmitExpr(ctx, a.Value)
	})
	if callee == nil || ctx.Style.DefaultArgs {
		return
	}
	params := ctx.Symbols.Params(callee.ID)
	decl := paramDecls(ctx, callee)
	for i := len(args); i < len(params) && i < len(decl); i++ {
		if decl[i].Default == nil {
			break
		}
		if i > 0 {
			b.Append(", ")
		}
		EmitExpr(ctx, decl[i].Default)
	}
}

// paramDecls finds the parameter declarations of a program method.
func paramDecls(ctx *EmissionContext, sym *syntax.Symbol) []*syntax.Parameter {
	owner := ctx.Symbols.DeclaringType(sym.ID)
	if owner == nil {
		return nil
	}
	node := ctx.Forest.BySymbol(owner.ID)
	if node == nil {
		return nil
	}
	for _, m := range ctx.Node(node.ID).Members() {
		switch m := m.(type) {
		case *syntax.MethodDecl:
			if m.Sym == sym.ID {
				return m.Params
			}
		case *syntax.ConstructorDecl:
			if m.Sym == sym.ID {
				return m.Params
			}
		}
	}
	return nil
}

func emitObjectCreation(ctx *EmissionContext, e syntax.Expr) {
	oc := e.(*syntax.ObjectCreation)
	b := ctx.Builder
	b.Append(ctx.Emitter.Token(TokNew)).Space()
	EmitType(ctx, oc.Type)
	ctor := ctx.Sym(oc.Ctor)
	if mb, ok := ctx.Binder.Binding(oc.Ctor); ok && ctx.Style.Overloads == OverloadArityDispatch && ctx.Binder.Overloaded(mb) {
		b.Append("().").Append(arityName(mb)).Append("(")
	} else {
		b.Append("(")
	}
	emitArgs(ctx, oc.Args, ctor)
	b.Append(")")
}

func emitArrayCreation(ctx *EmissionContext, e syntax.Expr) {
	ctx.Emitter.ArrayCreation(ctx, e.(*syntax.ArrayCreation))
}

func emitInitializer(ctx *EmissionContext, e syntax.Expr) {
	init := e.(*syntax.Initializer)
	b := ctx.Builder
	b.Append(ctx.Style.InitializerOpen)
	b.List(len(init.Elems), ", ", func(i int) { EmitExpr(ctx, init.Elems[i]) })
	b.Append(ctx.Style.InitializerClose)
}

func emitElementAccess(ctx *EmissionContext, e syntax.Expr) {
	ea := e.(*syntax.ElementAccess)
	EmitExpr(ctx, ea.X)
	for _, idx := range ea.Indices {
		ctx.Builder.Brackets().Run(func() { EmitExpr(ctx, idx) })
	}
}

func emitBinary(ctx *EmissionContext, e syntax.Expr) {
	bin := e.(*syntax.Binary)
	b := ctx.Builder
	op := ctx.Emitter.Operator(bin.Op)
	if op == "" && bin.Op == syntax.OpCoalesce {
		x := renderExpr(ctx, bin.X)
		b.Appendf("(%s != %s ? %s : ", x, ctx.Emitter.Token(TokNull), x)
		EmitExpr(ctx, bin.Y)
		b.Append(")")
		return
	}
	EmitExpr(ctx, bin.X)
	b.Append(" ").Append(op).Append(" ")
	EmitExpr(ctx, bin.Y)
}

func emitUnary(ctx *EmissionContext, e syntax.Expr) {
	u := e.(*syntax.Unary)
	if (u.Op == syntax.OpInc || u.Op == syntax.OpDec) && isAccessorProperty(ctx, u.X) {
		emitPropertyStep(ctx, u.X, u.Op)
		return
	}
	ctx.Builder.Append(ctx.Emitter.Operator(u.Op))
	EmitExpr(ctx, u.X)
}

func emitPostfix(ctx *EmissionContext, e syntax.Expr) {
	p := e.(*syntax.Postfix)
	if isAccessorProperty(ctx, p.X) {
		emitPropertyStep(ctx, p.X, p.Op)
		return
	}
	EmitExpr(ctx, p.X)
	ctx.Builder.Append(ctx.Emitter.Operator(p.Op))
}

// isAccessorProperty reports whether e is a property spelled through
// get/set calls.
func isAccessorProperty(ctx *EmissionContext, e syntax.Expr) bool {
	if !ctx.Style.PropertyAccessors {
		return false
	}
	s := symbolOf(ctx, e)
	return s != nil && s.Kind == syntax.SymProperty
}

// emitSetter writes "recv.setX(" and returns the getter spelling.
func emitSetter(ctx *EmissionContext, e syntax.Expr) string {
	sym := symbolOf(ctx, e)
	var recv string
	switch e := e.(type) {
	case *syntax.MemberAccess:
		recv = renderExpr(ctx, e.X) + "."
	default:
		recv = implicitQualifier(ctx, sym)
	}
	ctx.Builder.Append(recv).Append(setterName(sym)).Append("(")
	return recv + memberName(ctx, sym)
}

func emitPropertyStep(ctx *EmissionContext, x syntax.Expr, op syntax.Operator) {
	get := emitSetter(ctx, x)
	step := ctx.Emitter.Operator(syntax.OpAdd)
	if op == syntax.OpDec {
		step = ctx.Emitter.Operator(syntax.OpSub)
	}
	ctx.Builder.Appendf("%s %s 1)", get, step)
}

func emitAssignment(ctx *EmissionContext, e syntax.Expr) {
	a := e.(*syntax.Assignment)
	b := ctx.Builder
	if isAccessorProperty(ctx, a.Lhs) {
		get := emitSetter(ctx, a.Lhs)
		if a.Op.IsCompound() {
			b.Append(get).Append(" ").Append(ctx.Emitter.Operator(a.Op.Compound())).Append(" ")
		}
		EmitExpr(ctx, a.Rhs)
		b.Append(")")
		return
	}
	op := ctx.Emitter.Operator(a.Op)
	if op == "" && a.Op == syntax.OpCoalesceAssign {
		lhs := renderExpr(ctx, a.Lhs)
		b.Appendf("%s = (%s != %s ? %s : ", lhs, lhs, ctx.Emitter.Token(TokNull), lhs)
		EmitExpr(ctx, a.Rhs)
		b.Append(")")
		return
	}
	EmitExpr(ctx, a.Lhs)
	b.Append(" ").Append(op).Append(" ")
	EmitExpr(ctx, a.Rhs)
}

func emitConditional(ctx *EmissionContext, e syntax.Expr) {
	c := e.(*syntax.Conditional)
	EmitExpr(ctx, c.Cond)
	ctx.Builder.Append(" ? ")
	EmitExpr(ctx, c.Then)
	ctx.Builder.Append(" : ")
	EmitExpr(ctx, c.Else)
}

func emitParen(ctx *EmissionContext, e syntax.Expr) {
	s := ctx.Builder.Parens()
	defer s.Close()
	EmitExpr(ctx, e.(*syntax.Paren).X)
}

func emitCast(ctx *EmissionContext, e syntax.Expr) {
	ctx.Emitter.Cast(ctx, e.(*syntax.Cast))
}

func emitThis(ctx *EmissionContext, _ syntax.Expr) {
	ctx.Builder.Append(ctx.Emitter.Token(TokThis))
}

func emitBaseAccess(ctx *EmissionContext, _ syntax.Expr) {
	ctx.Builder.Append(ctx.Emitter.Token(TokBase))
}

func emitTypeOf(ctx *EmissionContext, e syntax.Expr) {
	t := e.(*syntax.TypeOf)
	ctx.Builder.Appendf(ctx.Style.TypeOfFormat, ctx.Emitter.TypeName(ctx, t.Type))
}

func emitIsType(ctx *EmissionContext, e syntax.Expr) {
	is := e.(*syntax.IsType)
	format := ctx.Style.IsFormat
	if _, prim := is.Type.(*syntax.PredefinedType); prim && ctx.Style.PrimitiveIsFormat != "" {
		format = ctx.Style.PrimitiveIsFormat
	}
	ctx.Builder.Appendf(format, renderExpr(ctx, is.X), ctx.Emitter.TypeName(ctx, is.Type))
}

func emitAsType(ctx *EmissionContext, e syntax.Expr) {
	as := e.(*syntax.AsType)
	ctx.Builder.Appendf(ctx.Style.AsFormat, renderExpr(ctx, as.X), ctx.Emitter.TypeName(ctx, as.Type))
}

func emitDefault(ctx *EmissionContext, e syntax.Expr) {
	ctx.Builder.Append(ctx.Emitter.DefaultValue(ctx, e.(*syntax.Default).Type))
}

func emitLambda(ctx *EmissionContext, e syntax.Expr) {
	l := e.(*syntax.Lambda)
	b := ctx.Builder
	b.Append("(")
	b.List(len(l.Params), ", ", func(i int) {
		p := l.Params[i]
		b.Append(p.Name)
		if ctx.Style.Annotations == TypeSuffix && p.Type != nil {
			b.Append(": ").Append(ctx.Emitter.TypeName(ctx, p.Type))
		}
	})
	b.Append(") ").Append(ctx.Style.LambdaArrow).Space()
	switch body := l.Body.(type) {
	case *syntax.Block:
		emitBlock(ctx, body)
	case syntax.Expr:
		EmitExpr(ctx, body)
	default:
		unsupported(l)
	}
}

func emitInterpolated(ctx *EmissionContext, e syntax.Expr) {
	s := e.(*syntax.InterpolatedString)
	b := ctx.Builder
	if ctx.Style.TemplateLiterals {
		b.Append("`")
		for _, part := range s.Parts {
			if lit, ok := part.(*syntax.Literal); ok && lit.LitKind == syntax.LitString {
				r := strings.NewReplacer("\\", "\\\\", "`", "\\`", "${", "\\${", "\n", "\\n")
				b.Append(r.Replace(lit.Value))
				continue
			}
			b.Append("${")
			EmitExpr(ctx, part)
			b.Append("}")
		}
		b.Append("`")
		return
	}
	if len(s.Parts) == 0 {
		b.Append(ctx.Emitter.Literal(&syntax.Literal{LitKind: syntax.LitString}))
		return
	}
	if lit, ok := s.Parts[0].(*syntax.Literal); !ok || lit.LitKind != syntax.LitString {
		b.Append(ctx.Emitter.Literal(&syntax.Literal{LitKind: syntax.LitString})).Append(" + ")
	}
	b.List(len(s.Parts), " + ", func(i int) {
		part := s.Parts[i]
		if lit, ok := part.(*syntax.Literal); ok && lit.LitKind == syntax.LitString {
			EmitExpr(ctx, part)
			return
		}
		b.Parens().Run(func() { EmitExpr(ctx, part) })
	})
}

func emitNameOf(ctx *EmissionContext, e syntax.Expr) {
	n := e.(*syntax.NameOf)
	name := pathText(n.X)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	ctx.Builder.Append(ctx.Emitter.Literal(&syntax.Literal{LitKind: syntax.LitString, Value: name}))
}

func emitConditionalAccess(ctx *EmissionContext, e syntax.Expr) {
	ca := e.(*syntax.ConditionalAccess)
	b := ctx.Builder
	name := ca.Name
	if sym := ctx.Sym(ca.Sym); sym != nil && sym.Kind.IsMember() {
		name = memberName(ctx, sym)
	}
	if ctx.Style.NullConditional {
		EmitExpr(ctx, ca.X)
		b.Append("?.").Append(name)
		return
	}
	x := renderExpr(ctx, ca.X)
	null := ctx.Emitter.Token(TokNull)
	b.Appendf("(%s == %s ? %s : %s.%s)", x, null, null, x, name)
}

// ---- statements ----

// emitBlock writes a brace block starting on the current line.
func emitBlock(ctx *EmissionContext, block *syntax.Block) {
	s := ctx.Builder.Block()
	defer s.Close()
	for _, st := range block.Stmts {
		EmitStmt(ctx, st)
	}
}

// emitEmbedded writes the body of a control statement. It reports whether
// the body was a block.
func emitEmbedded(ctx *EmissionContext, s syntax.Stmt) bool {
	if block, ok := s.(*syntax.Block); ok {
		ctx.Builder.Space()
		emitBlock(ctx, block)
		return true
	}
	ctx.Builder.Line()
	scope := ctx.Builder.Indent()
	defer scope.Close()
	EmitStmt(ctx, s)
	return false
}

func end(ctx *EmissionContext) {
	ctx.Builder.Append(ctx.Emitter.Token(TokStatementEnd))
}

func emitBlockStmt(ctx *EmissionContext, s syntax.Stmt) {
	emitBlock(ctx, s.(*syntax.Block))
}

func emitExprStmt(ctx *EmissionContext, s syntax.Stmt) {
	EmitExpr(ctx, s.(*syntax.ExprStmt).X)
	end(ctx)
}

func emitLocalDeclStmt(ctx *EmissionContext, s syntax.Stmt) {
	emitLocalDecl(ctx, s.(*syntax.LocalDecl))
	end(ctx)
}

// emitLocalDecl writes a declaration without the statement terminator.
func emitLocalDecl(ctx *EmissionContext, d *syntax.LocalDecl) {
	b := ctx.Builder
	em := ctx.Emitter
	switch ctx.Style.Annotations {
	case TypePrefix:
		if d.Const {
			b.Append(em.Token(TokConst)).Space()
		}
		if d.Type == nil {
			b.Append(em.Token(TokVar))
		} else {
			EmitType(ctx, d.Type)
		}
		b.Space()
	default:
		if d.Const {
			b.Append(em.Token(TokConst)).Space()
		} else {
			b.Append(em.Token(TokLet)).Space()
		}
	}
	b.List(len(d.Vars), ", ", func(i int) {
		v := d.Vars[i]
		b.Append(v.Name)
		if ctx.Style.Annotations == TypeSuffix && d.Type != nil {
			b.Append(": ")
			EmitType(ctx, d.Type)
		}
		if v.Init != nil {
			b.Append(" = ")
			EmitExpr(ctx, v.Init)
		}
	})
}

func emitIf(ctx *EmissionContext, s syntax.Stmt) {
	st := s.(*syntax.If)
	b := ctx.Builder
	b.Append("if (")
	EmitExpr(ctx, st.Cond)
	b.Append(")")
	block := emitEmbedded(ctx, st.Then)
	if st.Else == nil {
		return
	}
	if block {
		b.Append(" else")
	} else {
		b.EnsureLine().Append("else")
	}
	if elif, ok := st.Else.(*syntax.If); ok {
		b.Space()
		emitIf(ctx, elif)
		return
	}
	emitEmbedded(ctx, st.Else)
}

func emitWhile(ctx *EmissionContext, s syntax.Stmt) {
	st := s.(*syntax.While)
	ctx.Builder.Append("while (")
	EmitExpr(ctx, st.Cond)
	ctx.Builder.Append(")")
	emitEmbedded(ctx, st.Body)
}

func emitDo(ctx *EmissionContext, s syntax.Stmt) {
	st := s.(*syntax.Do)
	b := ctx.Builder
	b.Append("do")
	if emitEmbedded(ctx, st.Body) {
		b.Append(" ")
	} else {
		b.EnsureLine()
	}
	b.Append("while (")
	EmitExpr(ctx, st.Cond)
	b.Append(")")
	end(ctx)
}

func emitFor(ctx *EmissionContext, s syntax.Stmt) {
	st := s.(*syntax.For)
	b := ctx.Builder
	b.Append("for (")
	b.List(len(st.Init), ", ", func(i int) {
		switch init := st.Init[i].(type) {
		case *syntax.LocalDecl:
			emitLocalDecl(ctx, init)
		case *syntax.ExprStmt:
			EmitExpr(ctx, init.X)
		default:
			unsupported(init)
		}
	})
	b.Append("; ")
	if st.Cond != nil {
		EmitExpr(ctx, st.Cond)
	}
	b.Append("; ")
	b.List(len(st.Post), ", ", func(i int) { EmitExpr(ctx, st.Post[i]) })
	b.Append(")")
	emitEmbedded(ctx, st.Body)
}

func emitForeach(ctx *EmissionContext, s syntax.Stmt) {
	st := s.(*syntax.Foreach)
	b := ctx.Builder
	em := ctx.Emitter
	typ := em.Token(TokVar)
	if st.Type != nil {
		typ = em.TypeName(ctx, st.Type)
	}
	switch ctx.Style.Foreach {
	case ForeachIn:
		b.Appendf("foreach (%s %s in ", typ, st.Name)
	case ForeachColon:
		b.Appendf("for (%s %s : ", typ, st.Name)
	case ForeachOf:
		b.Appendf("for (%s %s of ", em.Token(TokConst), st.Name)
	}
	EmitExpr(ctx, st.X)
	b.Append(")")
	emitEmbedded(ctx, st.Body)
}

func emitSwitch(ctx *EmissionContext, s syntax.Stmt) {
	st := s.(*syntax.Switch)
	b := ctx.Builder
	b.Append("switch (")
	EmitExpr(ctx, st.Tag)
	b.Append(") ")
	scope := b.Block()
	defer scope.Close()
	for _, sec := range st.Sections {
		if len(sec.Labels) == 0 {
			b.AppendLine("default:")
		}
		for _, l := range sec.Labels {
			b.EnsureLine().Append("case ")
			EmitExpr(ctx, l)
			b.Append(":").Line()
		}
		b.Indent().Run(func() {
			for _, bs := range sec.Body {
				EmitStmt(ctx, bs)
			}
		})
	}
}

func emitBreak(ctx *EmissionContext, _ syntax.Stmt) {
	ctx.Builder.Append("break")
	end(ctx)
}

func emitContinue(ctx *EmissionContext, _ syntax.Stmt) {
	ctx.Builder.Append("continue")
	end(ctx)
}

func emitReturn(ctx *EmissionContext, s syntax.Stmt) {
	ctx.Builder.Append("return")
	if x := s.(*syntax.Return).X; x != nil {
		ctx.Builder.Space()
		EmitExpr(ctx, x)
	}
	end(ctx)
}

func emitThrow(ctx *EmissionContext, s syntax.Stmt) {
	ctx.Builder.Append(ctx.Emitter.Token(TokThrow))
	if x := s.(*syntax.Throw).X; x != nil {
		ctx.Builder.Space()
		EmitExpr(ctx, x)
	}
	end(ctx)
}

func emitTry(ctx *EmissionContext, s syntax.Stmt) {
	st := s.(*syntax.Try)
	b := ctx.Builder
	b.Append("try ")
	emitBlock(ctx, st.Body)
	if ctx.Style.TypedCatch {
		for _, c := range st.Catches {
			b.Append(" catch")
			typ := ctx.Style.DefaultCatchType
			if c.Type != nil {
				typ = ctx.Emitter.TypeName(ctx, c.Type)
			}
			name := c.Name
			if name == "" && typ != "" && ctx.Style.DefaultCatchType != "" {
				name = "__e"
			}
			if typ != "" {
				b.Appendf(" (%s", typ)
				if name != "" {
					b.Append(" ").Append(name)
				}
				b.Append(")")
			}
			b.Space()
			emitBlock(ctx, c.Body)
		}
	} else if len(st.Catches) > 0 {
		emitUntypedCatch(ctx, st.Catches)
	}
	if st.Finally != nil {
		b.Append(" finally ")
		emitBlock(ctx, st.Finally)
	}
}

// emitUntypedCatch folds typed catch clauses into one clause with an
// instanceof chain.
func emitUntypedCatch(ctx *EmissionContext, catches []*syntax.CatchClause) {
	b := ctx.Builder
	em := ctx.Emitter
	if len(catches) == 1 && catches[0].Type == nil {
		name := catches[0].Name
		if name == "" {
			name = "__e"
		}
		b.Appendf(" catch (%s) ", name)
		emitBlock(ctx, catches[0].Body)
		return
	}
	b.Append(" catch (__e) ")
	scope := b.Block()
	defer scope.Close()
	for i, c := range catches {
		if i > 0 {
			b.Append(" else ")
		}
		if c.Type != nil {
			b.Appendf("if (__e instanceof %s) ", em.TypeName(ctx, c.Type))
		}
		b.Block().Run(func() {
			if c.Name != "" {
				b.Appendf("%s %s = __e", em.Token(TokConst), c.Name)
				end(ctx)
			}
			for _, st := range c.Body.Stmts {
				EmitStmt(ctx, st)
			}
		})
		if c.Type == nil {
			return
		}
	}
	b.Append(" else ")
	b.Block().Run(func() {
		b.Append(em.Token(TokThrow)).Append(" __e")
		end(ctx)
	})
}

func emitUsing(ctx *EmissionContext, s syntax.Stmt) {
	st := s.(*syntax.Using)
	b := ctx.Builder
	resource := func() {
		if st.Decl != nil {
			emitLocalDecl(ctx, st.Decl)
			return
		}
		EmitExpr(ctx, st.X)
	}
	switch ctx.Style.Using {
	case UsingNative:
		b.Append("using (")
		resource()
		b.Append(")")
		emitEmbedded(ctx, st.Body)
	case UsingTryWith:
		b.Append("try (")
		if st.Decl != nil {
			emitLocalDecl(ctx, st.Decl)
		} else {
			b.Append(ctx.Emitter.Token(TokVar)).Append(" __r = ")
			EmitExpr(ctx, st.X)
		}
		b.Append(")")
		emitEmbedded(ctx, st.Body)
	case UsingFinally:
		outer := b.Block()
		defer outer.Close()
		names := []string{"__r"}
		if st.Decl != nil {
			emitLocalDecl(ctx, st.Decl)
			names = names[:0]
			for _, v := range st.Decl.Vars {
				names = append(names, v.Name)
			}
		} else {
			b.Appendf("%s __r = ", ctx.Emitter.Token(TokConst))
			EmitExpr(ctx, st.X)
		}
		end(ctx)
		b.Line().Append("try")
		emitEmbedded(ctx, st.Body)
		b.EnsureLine().Append("finally ")
		b.Block().Run(func() {
			for _, n := range names {
				b.EnsureLine().Appendf("%s.dispose()", n)
				end(ctx)
			}
		})
	}
}

func emitLock(ctx *EmissionContext, s syntax.Stmt) {
	st := s.(*syntax.Lock)
	if ctx.Style.LockKeyword == "" {
		if block, ok := st.Body.(*syntax.Block); ok {
			emitBlock(ctx, block)
			return
		}
		EmitStmt(ctx, st.Body)
		return
	}
	ctx.Builder.Append(ctx.Style.LockKeyword).Append(" (")
	EmitExpr(ctx, st.X)
	ctx.Builder.Append(")")
	emitEmbedded(ctx, st.Body)
}

func emitYield(ctx *EmissionContext, s syntax.Stmt) {
	y := s.(*syntax.Yield)
	if y.Break {
		ctx.Builder.Append(ctx.Emitter.Token(TokYieldBreak))
	} else {
		ctx.Builder.Append(ctx.Emitter.Token(TokYieldReturn)).Space()
		EmitExpr(ctx, y.X)
	}
	end(ctx)
}

func emitLocalFunction(ctx *EmissionContext, s syntax.Stmt) {
	lf := s.(*syntax.LocalFunction)
	if !ctx.Style.NativeLocalFunctions {
		unsupported(lf)
	}
	b := ctx.Builder
	switch ctx.Style.Annotations {
	case TypePrefix:
		b.Append(resultName(ctx, lf.Result)).Space().Append(lf.Name)
	default:
		b.Append("function")
		if containsYield(lf.Body) {
			b.Append("*")
		}
		b.Space().Append(lf.Name)
	}
	emitParams(ctx, lf.Params)
	if ctx.Style.Annotations == TypeSuffix {
		b.Append(": ").Append(resultName(ctx, lf.Result))
	}
	b.Space()
	emitBlock(ctx, lf.Body)
}

func emitEmpty(ctx *EmissionContext, _ syntax.Stmt) {
	end(ctx)
}

// ---- declaration helpers ----

func resultName(ctx *EmissionContext, t syntax.TypeExpr) string {
	if syntax.IsVoid(t) {
		return ctx.Emitter.Token(TokVoid)
	}
	return ctx.Emitter.TypeName(ctx, t)
}

// emitParams writes a parenthesized parameter list.
func emitParams(ctx *EmissionContext, params []*syntax.Parameter) {
	b := ctx.Builder
	b.Append("(")
	b.List(len(params), ", ", func(i int) { ctx.Emitter.Parameter(ctx, params[i]) })
	b.Append(")")
}

func typeParams(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return "<" + strings.Join(names, ", ") + ">"
}

// containsYield reports whether body yields, not counting nested closures.
func containsYield(body *syntax.Block) bool {
	if body == nil {
		return false
	}
	found := false
	syntax.Inspect(body, func(n syntax.Node) bool {
		switch n.(type) {
		case *syntax.Yield:
			found = true
		case *syntax.Lambda, *syntax.LocalFunction:
			return false
		}
		return !found
	})
	return found
}

// emitMethodBody writes the body of a member, or the terminator when it has
// none.
func emitMethodBody(ctx *EmissionContext, sym syntax.SymbolID, body *syntax.Block) {
	if body == nil || !ctx.Style.Bodies {
		end(ctx)
		return
	}
	defer ctx.enterMember(sym)()
	ctx.Builder.Space()
	emitBlock(ctx, body)
}

// emitMembers writes the members of node through the emitter hooks,
// followed by arity dispatchers and nested types.
func emitMembers(ctx *EmissionContext, node *DeclarationNode) {
	b := ctx.Builder
	em := ctx.Emitter
	first := true
	sep := func() {
		if !first {
			b.EnsureLine().Line()
		}
		first = false
	}
	for _, m := range node.Members() {
		switch m := m.(type) {
		case *syntax.FieldDecl:
			sep()
			em.Field(ctx, m)
		case *syntax.PropertyDecl:
			sep()
			em.Property(ctx, m)
		case *syntax.MethodDecl:
			if m.Partial && m.Body == nil {
				continue
			}
			mb, _ := ctx.Binder.Binding(m.Sym)
			sep()
			em.Method(ctx, m, mb)
		case *syntax.ConstructorDecl:
			mb, _ := ctx.Binder.Binding(m.Sym)
			sep()
			em.Constructor(ctx, m, mb)
		case *syntax.FinalizerDecl:
			sep()
			em.Finalizer(ctx, m)
		}
	}
	if ctx.Style.Overloads == OverloadArityDispatch {
		for _, name := range ctx.Binder.GroupNames(node.ID) {
			group := ctx.Binder.Group(node.ID, name)
			if !ctx.Binder.Overloaded(group[0]) {
				continue
			}
			if !group[0].Constructor {
				group = ctx.Binder.Dispatch(node.ID, name)
			}
			sep()
			emitArityDispatcher(ctx, group)
		}
	}
	if ctx.Style.NestedTypes {
		for _, c := range node.Children {
			sep()
			em.TypeDeclaration(ctx, ctx.Node(c))
		}
	}
}

// emitArityDispatcher writes the method that routes a call to the member
// of an overload group whose parameter count range admits it. Interfaces
// get its signature only.
func emitArityDispatcher(ctx *EmissionContext, group []*MethodBinding) {
	b := ctx.Builder
	head := group[0]
	name := head.Name
	if head.Constructor {
		name = "$ctor"
	}
	sym := ctx.Sym(head.Symbol)
	if sym != nil && sym.Static {
		b.Append(ctx.Emitter.Token(TokStatic)).Space()
	}
	b.Append(name).Append("(...args")
	if ctx.Style.Annotations == TypeSuffix {
		b.Append(": any[]): any")
	} else {
		b.Append(")")
	}
	if inInterface(ctx) {
		end(ctx)
		return
	}
	b.Space()
	scope := b.Block()
	defer scope.Close()
	recv := ctx.Emitter.Token(TokThis)
	for _, mb := range group {
		b.EnsureLine()
		if mb.Max == Unbounded {
			b.Appendf("if (args.length >= %d) ", mb.Min)
		} else if mb.Min == mb.Max {
			b.Appendf("if (args.length === %d) ", mb.Min)
		} else {
			b.Appendf("if (args.length >= %d && args.length <= %d) ", mb.Min, mb.Max)
		}
		b.Appendf("return %s.%s(...args)", recv, arityName(mb))
		end(ctx)
	}
	b.EnsureLine().Appendf("%s new Error(\"%s: no overload takes \" + args.length + \" arguments\")", ctx.Emitter.Token(TokThrow), name)
	end(ctx)
}

// modifiers joins non-empty words with single spaces and a trailing space.
func modifiers(words ...string) string {
	var out []string
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ") + " "
}

// orderByBase returns nodes with program base types first.
func orderByBase(ctx *EmissionContext, nodes []*DeclarationNode) []*DeclarationNode {
	graph := map[string][]string{}
	byName := map[string]*DeclarationNode{}
	var names []string
	for _, n := range nodes {
		byName[n.QualifiedName] = n
		names = append(names, n.QualifiedName)
	}
	for _, n := range nodes {
		deps := []string{}
		if s := ctx.Sym(n.Symbol); s != nil {
			for _, base := range s.Bases {
				if bs := ctx.Sym(base); bs != nil {
					if _, local := byName[bs.Qualified]; local {
						deps = append(deps, bs.Qualified)
					}
				}
			}
		}
		graph[n.QualifiedName] = deps
	}
	sorted, err := TopologicalSort(graph, names)
	if err != nil {
		return nodes
	}
	out := make([]*DeclarationNode, len(sorted))
	for i, name := range sorted {
		out[i] = byName[name]
	}
	return out
}
