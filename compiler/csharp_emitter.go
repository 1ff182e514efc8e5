package compiler

import (
	"fmt"
	"strings"

	"codebinder/syntax"
)

var csharpZeroValues = map[string]string{
	"sbyte": "0", "byte": "0", "short": "0", "ushort": "0", "int": "0",
	"uint": "0u", "long": "0L", "ulong": "0UL", "nint": "0", "nuint": "0",
	"char": `'\0'`, "bool": "false", "float": "0f", "double": "0d", "decimal": "0m",
}

// CSharpEmitter prints the source dialect. It shows the result of the
// rewrites and round-trips validated units.
type CSharpEmitter struct {
	BaseEmitter
}

func NewCSharpEmitter() *CSharpEmitter {
	return &CSharpEmitter{BaseEmitter{
		name: "csharp",
		ext:  ".cs",
		profile: NewProfile(PassByRef, Delegates, Iterators, GarbageCollection,
			InstanceFinalizers, ExplicitInterfaceImplementation),
		naming: NamingPolicy{Methods: Verbatim, Properties: Verbatim, Types: Verbatim},
		style: Style{
			Indent:               "    ",
			Annotations:          TypePrefix,
			Overloads:            OverloadNative,
			Foreach:              ForeachIn,
			LambdaArrow:          "=>",
			TypedCatch:           true,
			Bodies:               true,
			NativeLocalFunctions: true,
			NullConditional:      true,
			RefArguments:         true,
			NestedTypes:          true,
			ValueTypes:           true,
			DefaultArgs:          true,
			InitializerOpen:      "{ ",
			InitializerClose:     " }",
			TypeOfFormat:         "typeof(%s)",
			IsFormat:             "%[1]s is %[2]s",
			AsFormat:             "%[1]s as %[2]s",
			LockKeyword:          "lock",
			Using:                UsingNative,
		},
		tokens: csharpTokens,
		zero:   csharpZeroValues,
		suffix: map[syntax.LiteralKind]string{
			syntax.LitLong:    "L",
			syntax.LitUInt:    "u",
			syntax.LitULong:   "UL",
			syntax.LitFloat:   "f",
			syntax.LitDecimal: "m",
		},
		access: map[syntax.Accessibility]string{
			syntax.AccessPublic:            "public",
			syntax.AccessProtected:         "protected",
			syntax.AccessInternal:          "internal",
			syntax.AccessProtectedInternal: "protected internal",
			syntax.AccessPrivate:           "private",
		},
	}}
}

func (cs *CSharpEmitter) Prologue(ctx *EmissionContext, root *DeclarationNode) string {
	var sb strings.Builder
	for _, imp := range ctx.Imports() {
		fmt.Fprintf(&sb, "using %s;\n", imp)
	}
	if root.Namespace != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "namespace %s;\n\n", root.Namespace)
	}
	return sb.String()
}

func (cs *CSharpEmitter) TypeName(ctx *EmissionContext, t syntax.TypeExpr) string {
	if ft, ok := t.(*syntax.FuncType); ok {
		ctx.Require("System")
		return cs.BaseEmitter.TypeName(ctx, ft)
	}
	return cs.BaseEmitter.TypeName(ctx, t)
}

func (cs *CSharpEmitter) TypeDeclaration(ctx *EmissionContext, node *DeclarationNode) {
	defer ctx.enterDecl(node)()
	b := ctx.Builder
	head := node.Head()
	for _, a := range head.Attributes {
		b.AppendLine("[" + a + "]")
	}
	static, abstract, sealed := "", "", ""
	if head.Static {
		static = "static"
	}
	if head.Abstract {
		abstract = "abstract"
	}
	if head.Sealed {
		sealed = "sealed"
	}
	b.Append(modifiers(cs.accessWord(node.Access), static, abstract, sealed))
	if node.TypeKind == syntax.TypeDelegate {
		b.Append("delegate ").Append(resultName(ctx, head.Result)).Space().Append(node.Name).Append(typeParams(head.TypeParams))
		emitParams(ctx, head.Params)
		end(ctx)
		return
	}
	keyword := map[syntax.TypeKind]string{
		syntax.TypeClass:     "class",
		syntax.TypeStruct:    "struct",
		syntax.TypeInterface: "interface",
		syntax.TypeEnum:      "enum",
		syntax.TypeModule:    "class",
	}[node.TypeKind]
	b.Append(keyword).Space().Append(node.Name).Append(typeParams(head.TypeParams))
	if bases := node.Bases(); len(bases) > 0 {
		b.Append(" : ")
		b.List(len(bases), ", ", func(i int) { b.Append(cs.TypeName(ctx, bases[i])) })
	}
	b.Space()
	scope := b.Block()
	defer scope.Close()
	if node.TypeKind == syntax.TypeEnum {
		for _, m := range node.Members() {
			em, ok := m.(*syntax.EnumMember)
			if !ok {
				continue
			}
			b.EnsureLine().Append(em.Name)
			if em.Value != nil {
				b.Append(" = ")
				EmitExpr(ctx, em.Value)
			}
			b.Append(",")
		}
		return
	}
	emitMembers(ctx, node)
}

func (cs *CSharpEmitter) memberModifiers(ctx *EmissionContext, access syntax.Accessibility, words ...string) string {
	if inInterface(ctx) {
		return ""
	}
	return modifiers(append([]string{cs.accessWord(access)}, words...)...)
}

func (cs *CSharpEmitter) Field(ctx *EmissionContext, f *syntax.FieldDecl) {
	b := ctx.Builder
	var words []string
	switch {
	case f.Const:
		words = append(words, "const")
	case f.Static:
		words = append(words, "static")
	}
	if f.ReadOnly {
		words = append(words, "readonly")
	}
	b.Append(cs.memberModifiers(ctx, f.Access, words...)).Append(cs.TypeName(ctx, f.Type)).Space()
	b.List(len(f.Vars), ", ", func(i int) {
		v := f.Vars[i]
		b.Append(v.Name)
		if v.Init != nil {
			b.Append(" = ")
			EmitExpr(ctx, v.Init)
		}
	})
	end(ctx)
}

// dispatch words of a member
func inheritance(static, abstract, virtual, override bool) []string {
	var words []string
	if static {
		words = append(words, "static")
	}
	switch {
	case abstract:
		words = append(words, "abstract")
	case override:
		words = append(words, "override")
	case virtual:
		words = append(words, "virtual")
	}
	return words
}

func (cs *CSharpEmitter) Property(ctx *EmissionContext, p *syntax.PropertyDecl) {
	b := ctx.Builder
	b.Append(cs.memberModifiers(ctx, p.Access, inheritance(p.Static, p.Abstract, p.Virtual, p.Override)...))
	b.Append(cs.TypeName(ctx, p.Type)).Space().Append(p.Name).Space()
	accessor := func(a *syntax.Accessor, word string) {
		b.EnsureLine()
		if a.Access != syntax.AccessNone && a.Access != p.Access {
			b.Append(cs.accessWord(a.Access)).Space()
		}
		b.Append(word)
		emitMethodBody(ctx, p.Sym, a.Body)
	}
	if autoProperty(p) || inInterface(ctx) || p.Abstract {
		b.Append("{")
		if p.Getter != nil {
			b.Append(" get;")
		}
		if p.Setter != nil {
			b.Append(" set;")
		}
		b.Append(" }")
		if p.Init != nil {
			b.Append(" = ")
			EmitExpr(ctx, p.Init)
			end(ctx)
		}
		return
	}
	scope := b.Block()
	defer scope.Close()
	if p.Getter != nil {
		accessor(p.Getter, "get")
	}
	if p.Setter != nil {
		accessor(p.Setter, "set")
	}
}

func (cs *CSharpEmitter) Method(ctx *EmissionContext, m *syntax.MethodDecl, mb *MethodBinding) {
	b := ctx.Builder
	for _, a := range m.Attributes {
		b.AppendLine("[" + a + "]")
	}
	name := methodName(ctx, m.Sym, mb)
	if m.Explicit != nil {
		b.Append(cs.TypeName(ctx, m.Result)).Space().Append(cs.TypeName(ctx, m.Explicit)).Append(".").Append(name)
	} else {
		words := inheritance(m.Static, m.Abstract, m.Virtual, m.Override)
		if m.Partial {
			words = append(words, "partial")
		}
		b.Append(cs.memberModifiers(ctx, m.Access, words...))
		b.Append(resultName(ctx, m.Result)).Space().Append(name)
	}
	b.Append(typeParams(m.TypeParams))
	emitParams(ctx, m.Params)
	emitMethodBody(ctx, m.Sym, m.Body)
}

func (cs *CSharpEmitter) Constructor(ctx *EmissionContext, c *syntax.ConstructorDecl, mb *MethodBinding) {
	b := ctx.Builder
	for _, a := range c.Attributes {
		b.AppendLine("[" + a + "]")
	}
	if c.Static {
		b.Append("static ")
	} else {
		b.Append(modifiers(cs.accessWord(c.Access)))
	}
	b.Append(ctx.Decl.Name)
	emitParams(ctx, c.Params)
	if init := c.Initializer; init != nil {
		call := "base"
		if init.ThisCall {
			call = "this"
		}
		b.Append(" : ").Append(call).Append("(")
		emitArgs(ctx, init.Args, ctx.Sym(init.Ctor))
		b.Append(")")
	}
	emitMethodBody(ctx, c.Sym, c.Body)
}

func (cs *CSharpEmitter) Finalizer(ctx *EmissionContext, f *syntax.FinalizerDecl) {
	ctx.Builder.Append("~").Append(ctx.Decl.Name).Append("()")
	emitMethodBody(ctx, f.Sym, f.Body)
}
