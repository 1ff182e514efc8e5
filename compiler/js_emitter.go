package compiler

import (
	"fmt"
	"strings"

	"codebinder/syntax"
)

// TypeScript type mapping - every number is a double
var tsTypesMap = map[string]string{
	"sbyte":   "number",
	"byte":    "number",
	"short":   "number",
	"ushort":  "number",
	"int":     "number",
	"uint":    "number",
	"long":    "number",
	"ulong":   "number",
	"nint":    "number",
	"nuint":   "number",
	"float":   "number",
	"double":  "number",
	"decimal": "number",
	"char":    "string",
	"bool":    "boolean",
	"string":  "string",
	"object":  "any",
	"dynamic": "any",
	"void":    "void",
}

var jsZeroValues = map[string]string{
	"sbyte": "0", "byte": "0", "short": "0", "ushort": "0", "int": "0",
	"uint": "0", "long": "0", "ulong": "0", "nint": "0", "nuint": "0",
	"float": "0", "double": "0", "decimal": "0",
	"char": `"\0"`, "bool": "false",
}

// jsIntegerTypes truncate on conversion.
var jsIntegerTypes = map[string]bool{
	"sbyte": true, "byte": true, "short": true, "ushort": true, "int": true,
	"uint": true, "long": true, "ulong": true, "nint": true, "nuint": true,
}

var jsLibraryTypes = map[string]string{
	"List":        "Array",
	"IList":       "Array",
	"Dictionary":  "Map",
	"IDictionary": "Map",
	"HashSet":     "Set",
	"Exception":   "Error",
}

var jsReplacements = map[string]string{
	"Console.WriteLine": "console.log",
	"Console.Write":     "console.log",
	"Math.Max":          "Math.max",
	"Math.Min":          "Math.min",
	"Math.Abs":          "Math.abs",
	"Math.Sqrt":         "Math.sqrt",
	"string.Length":     "{x}.length",
	"string.ToUpper":    "{x}.toUpperCase()",
	"string.ToLower":    "{x}.toLowerCase()",
	"string.Substring":  "{x}.substring({args})",
	"string.Contains":   "{x}.includes({args})",
	"string.Equals":     "({x} === {args})",
	"array.Length":      "{x}.length",
	"List.Count":        "{x}.length",
	"List.Add":          "push",
	"List.Clear":        "{x}.length = 0",
	"object.ToString":   "toString",
}

// JSEmitter converts to TypeScript, or to JavaScript when typed is false.
// Overload groups are merged into one dispatcher per name.
type JSEmitter struct {
	BaseEmitter
	typed bool
}

func newJSEmitter(name, ext string, typed bool) *JSEmitter {
	annotations := TypeNone
	as := "%[1]s"
	profile := NewProfile(Delegates, Iterators, GarbageCollection)
	profile.FinalizerInterface = "IDisposable"
	if typed {
		annotations = TypeSuffix
		as = "(%[1]s as %[2]s)"
	}
	return &JSEmitter{
		typed: typed,
		BaseEmitter: BaseEmitter{
			name:    name,
			ext:     ext,
			profile: profile,
			naming: NamingPolicy{
				Methods:      LowerCamel,
				Properties:   LowerCamel,
				Types:        Verbatim,
				Replacements: NewReplacementTable(jsReplacements),
			},
			style: Style{
				Indent:               "  ",
				Annotations:          annotations,
				Overloads:            OverloadArityDispatch,
				Foreach:              ForeachOf,
				ExplicitThis:         true,
				LambdaArrow:          "=>",
				TemplateLiterals:     true,
				Bodies:               true,
				NativeLocalFunctions: true,
				NullConditional:      true,
				DefaultArgs:          true,
				InitializerOpen:      "[",
				InitializerClose:     "]",
				TypeOfFormat:         "%s",
				IsFormat:             "%[1]s instanceof %[2]s",
				PrimitiveIsFormat:    `typeof %[1]s === "%[2]s"`,
				AsFormat:             as,
				Using:                UsingFinally,
			},
			tokens: csharpTokens.with(map[TokenType]string{
				TokBase:        "super",
				TokVar:         "let",
				TokLet:         "let",
				TokConst:       "const",
				TokYieldReturn: "yield",
				TokYieldBreak:  "return",
				TokFinal:       "",
				TokOverride:    "",
				TokVirtual:     "",
			}),
			operators: map[syntax.Operator]string{
				syntax.OpEq: "===",
				syntax.OpNe: "!==",
			},
			types:     tsTypesMap,
			zero:      jsZeroValues,
			charQuote: '"',
			access: map[syntax.Accessibility]string{
				syntax.AccessProtected:         "protected",
				syntax.AccessProtectedInternal: "protected",
				syntax.AccessPrivate:           "private",
			},
		},
	}
}

func NewTypeScriptEmitter() *JSEmitter { return newJSEmitter("typescript", ".ts", true) }
func NewJavaScriptEmitter() *JSEmitter { return newJSEmitter("javascript", ".js", false) }

func (e *JSEmitter) TypeName(ctx *EmissionContext, t syntax.TypeExpr) string {
	switch t := t.(type) {
	case *syntax.NamedType:
		if ft, ok := delegateFuncType(t); ok {
			return e.TypeName(ctx, ft)
		}
		s := ctx.Sym(t.Sym)
		name := t.Name
		switch {
		case s != nil && s.IsType():
			name = typeRefName(ctx, s)
		case jsLibraryTypes[t.Name] != "":
			name = jsLibraryTypes[t.Name]
		}
		if len(t.Args) == 0 || !e.typed {
			return name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = e.TypeName(ctx, a)
		}
		if name == "Array" && len(args) == 1 {
			return args[0] + "[]"
		}
		return name + "<" + strings.Join(args, ", ") + ">"
	case *syntax.ArrayType:
		if !e.typed {
			return "Array"
		}
		return e.TypeName(ctx, t.Elem) + "[]"
	case *syntax.NullableType:
		return e.TypeName(ctx, t.Elem) + " | null"
	case *syntax.FuncType:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = fmt.Sprintf("a%d: %s", i, e.TypeName(ctx, p))
		}
		return "(" + strings.Join(params, ", ") + ") => " + resultName(ctx, t.Result)
	}
	return e.BaseEmitter.TypeName(ctx, t)
}

// annotation spells ": T" on the typed dialect.
func (e *JSEmitter) annotation(ctx *EmissionContext, t syntax.TypeExpr) string {
	if !e.typed || t == nil {
		return ""
	}
	return ": " + e.TypeName(ctx, t)
}

func (e *JSEmitter) Cast(ctx *EmissionContext, c *syntax.Cast) {
	b := ctx.Builder
	if p, ok := c.Type.(*syntax.PredefinedType); ok && jsIntegerTypes[p.Name] {
		b.Append("Math.trunc(")
		EmitExpr(ctx, c.X)
		b.Append(")")
		return
	}
	if !e.typed {
		EmitExpr(ctx, c.X)
		return
	}
	b.Parens().Run(func() {
		emitOperand(ctx, c.X)
		b.Append(" as ").Append(e.TypeName(ctx, c.Type))
	})
}

// ArrayCreation writes an array literal, or a filled array of a size.
func (e *JSEmitter) ArrayCreation(ctx *EmissionContext, a *syntax.ArrayCreation) {
	b := ctx.Builder
	if a.Init != nil || len(a.Sizes) == 0 {
		if a.Init == nil {
			b.Append("[]")
			return
		}
		EmitExpr(ctx, a.Init)
		return
	}
	b.Append("new Array(")
	EmitExpr(ctx, a.Sizes[0])
	b.Append(").fill(").Append(e.DefaultValue(ctx, a.Elem)).Append(")")
}

func (e *JSEmitter) Parameter(ctx *EmissionContext, p *syntax.Parameter) {
	b := ctx.Builder
	if p.Variadic {
		b.Append("...")
	}
	b.Append(p.Name)
	if e.typed {
		b.Append(e.annotation(ctx, p.Type))
	}
	if p.Default != nil {
		b.Append(" = ")
		EmitExpr(ctx, p.Default)
	}
}

func (e *JSEmitter) Prologue(ctx *EmissionContext, root *DeclarationNode) string {
	var sb strings.Builder
	for _, dep := range ctx.Dependencies() {
		fmt.Fprintf(&sb, "import { %s } from \"./%s\";\n", dep.Name, dep.Name)
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}

func (e *JSEmitter) export(node *DeclarationNode) string {
	if node.IsRoot() {
		return "export "
	}
	return ""
}

func (e *JSEmitter) TypeDeclaration(ctx *EmissionContext, node *DeclarationNode) {
	defer ctx.enterDecl(node)()
	b := ctx.Builder
	head := node.Head()
	tparams := ""
	if e.typed {
		tparams = typeParams(head.TypeParams)
	}
	switch node.TypeKind {
	case syntax.TypeEnum:
		values := enumValues(ctx, node)
		if e.typed {
			b.Append(e.export(node)).Append("enum ").Append(node.Name).Space()
			b.Block().Run(func() {
				for i, v := range values {
					b.EnsureLine().Appendf("%s = %s", v.Name, v.Value)
					if i < len(values)-1 {
						b.Append(",")
					}
				}
			})
			return
		}
		b.Append(e.export(node)).Appendf("const %s = Object.freeze(", node.Name)
		b.Block().Run(func() {
			for i, v := range values {
				b.EnsureLine().Appendf("%s: %s", v.Name, v.Value)
				if i < len(values)-1 {
					b.Append(",")
				}
			}
		})
		b.Append(");")
		return
	case syntax.TypeDelegate:
		if !e.typed {
			return
		}
		b.Append(e.export(node)).Append("type ").Append(node.Name).Append(tparams).Append(" = ")
		emitParams(ctx, head.Params)
		b.Append(" => ").Append(resultName(ctx, head.Result)).Append(";")
		return
	case syntax.TypeInterface:
		if !e.typed {
			return
		}
		b.Append(e.export(node)).Append("interface ").Append(node.Name).Append(tparams)
		_, ifaces := typeBases(ctx, node)
		e.baseList(ctx, " extends ", ifaces)
	default:
		abstract := ""
		if head.Abstract && e.typed {
			abstract = "abstract "
		}
		b.Append(e.export(node)).Append(abstract).Append("class ").Append(node.Name).Append(tparams)
		class, ifaces := typeBases(ctx, node)
		if class != nil {
			b.Append(" extends ").Append(e.TypeName(ctx, class))
		}
		if e.typed {
			e.baseList(ctx, " implements ", ifaces)
		}
	}
	b.Space()
	scope := b.Block()
	defer scope.Close()
	emitMembers(ctx, node)
}

func (e *JSEmitter) baseList(ctx *EmissionContext, keyword string, types []syntax.TypeExpr) {
	if len(types) == 0 {
		return
	}
	b := ctx.Builder
	b.Append(keyword)
	b.List(len(types), ", ", func(i int) { b.Append(e.TypeName(ctx, types[i])) })
}

func (e *JSEmitter) memberModifiers(access syntax.Accessibility, words ...string) string {
	if !e.typed {
		var kept []string
		for _, w := range words {
			if w == "static" {
				kept = append(kept, w)
			}
		}
		return modifiers(kept...)
	}
	return modifiers(append([]string{e.accessWord(access)}, words...)...)
}

func (e *JSEmitter) Field(ctx *EmissionContext, f *syntax.FieldDecl) {
	b := ctx.Builder
	static, readonly := "", ""
	if f.Static || f.Const {
		static = "static"
	}
	if f.Const || f.ReadOnly {
		readonly = "readonly"
	}
	for i, v := range f.Vars {
		if i > 0 {
			b.EnsureLine()
		}
		b.Append(e.memberModifiers(f.Access, static, readonly)).Append(v.Name).Append(e.annotation(ctx, f.Type))
		b.Append(" = ")
		if v.Init != nil {
			EmitExpr(ctx, v.Init)
		} else {
			b.Append(e.DefaultValue(ctx, f.Type))
		}
		end(ctx)
	}
}

func (e *JSEmitter) Property(ctx *EmissionContext, p *syntax.PropertyDecl) {
	b := ctx.Builder
	name := ctx.Emitter.Naming().MemberName(ctx.Symbols, p.Sym)
	static := ""
	if p.Static {
		static = "static"
	}
	if inInterface(ctx) {
		readonly := ""
		if p.Setter == nil {
			readonly = "readonly "
		}
		b.Append(readonly).Append(name).Append(e.annotation(ctx, p.Type))
		end(ctx)
		return
	}
	if autoProperty(p) {
		b.Append(e.memberModifiers(p.Access, static)).Append(name).Append(e.annotation(ctx, p.Type)).Append(" = ")
		if p.Init != nil {
			EmitExpr(ctx, p.Init)
		} else {
			b.Append(e.DefaultValue(ctx, p.Type))
		}
		end(ctx)
		return
	}
	abstract := ""
	if p.Abstract && e.typed {
		abstract = "abstract"
	}
	if p.Getter != nil {
		b.Append(e.memberModifiers(p.Access, static, abstract)).Append("get ").Append(name).Append("()").Append(e.annotation(ctx, p.Type))
		emitMethodBody(ctx, p.Sym, p.Getter.Body)
	}
	if p.Setter != nil {
		if p.Getter != nil {
			b.EnsureLine().Line()
		}
		b.Append(e.memberModifiers(p.Access, static, abstract)).Append("set ").Append(name).Append("(value").Append(e.annotation(ctx, p.Type)).Append(")")
		emitMethodBody(ctx, p.Sym, p.Setter.Body)
	}
}

func (e *JSEmitter) Method(ctx *EmissionContext, m *syntax.MethodDecl, mb *MethodBinding) {
	b := ctx.Builder
	static, abstract := "", ""
	if m.Static {
		static = "static"
	}
	if m.Abstract && e.typed && !inInterface(ctx) {
		abstract = "abstract"
	}
	if !inInterface(ctx) {
		b.Append(e.memberModifiers(m.Access, static, abstract))
	}
	if containsYield(m.Body) {
		b.Append("*")
	}
	b.Append(methodName(ctx, m.Sym, mb))
	if e.typed {
		b.Append(typeParams(m.TypeParams))
	}
	emitParams(ctx, m.Params)
	if e.typed {
		b.Append(": ").Append(e.resultType(ctx, m))
	}
	if m.Body == nil && !e.typed {
		// abstract members have no JavaScript spelling
		b.Space().Append("{}")
		return
	}
	emitMethodBody(ctx, m.Sym, m.Body)
}

func (e *JSEmitter) resultType(ctx *EmissionContext, m *syntax.MethodDecl) string {
	if containsYield(m.Body) {
		return "Generator<any>"
	}
	return resultName(ctx, m.Result)
}

// Constructor writes a native constructor, or a $ctor member returning
// this when the type has several constructors.
func (e *JSEmitter) Constructor(ctx *EmissionContext, c *syntax.ConstructorDecl, mb *MethodBinding) {
	b := ctx.Builder
	if c.Static {
		b.Append("static")
		emitBodyWith(ctx, c.Sym, nil, c.Body, nil)
		return
	}
	class, _ := typeBases(ctx, ctx.Decl)
	overloaded := mb != nil && ctx.Binder.Overloaded(mb)
	init := c.Initializer
	superCall := func(native bool) func() {
		return func() {
			switch {
			case init != nil && init.ThisCall:
				e.chain(ctx, "this", init)
			case init != nil:
				if native && !e.dispatched(ctx, init.Ctor) {
					emitCall(ctx, "super", init.Args, init.Ctor)
					return
				}
				if native {
					emitCall(ctx, "super", nil, 0)
				}
				e.chain(ctx, "super", init)
			case native && class != nil:
				emitCall(ctx, "super", nil, 0)
			}
		}
	}
	if !overloaded {
		b.Append(e.memberModifiers(c.Access)).Append("constructor")
		emitParams(ctx, c.Params)
		emitBodyWith(ctx, c.Sym, superCall(true), c.Body, nil)
		return
	}
	b.Append(arityName(mb))
	emitParams(ctx, c.Params)
	if e.typed {
		b.Append(": this")
	}
	emitBodyWith(ctx, c.Sym, superCall(false), c.Body, func() {
		b.EnsureLine().Append("return this")
		end(ctx)
	})
}

// dispatched reports whether a constructor is reached through $ctor.
func (e *JSEmitter) dispatched(ctx *EmissionContext, ctor syntax.SymbolID) bool {
	mb, ok := ctx.Binder.Binding(ctor)
	return ok && ctx.Binder.Overloaded(mb)
}

// chain calls another constructor of a $ctor group on recv.
func (e *JSEmitter) chain(ctx *EmissionContext, recv string, init *syntax.ConstructorInitializer) {
	mb, ok := ctx.Binder.Binding(init.Ctor)
	if !ok || !ctx.Binder.Overloaded(mb) {
		return
	}
	emitCall(ctx, recv+"."+arityName(mb), init.Args, init.Ctor)
}

// Finalizer becomes dispose(), called by using blocks.
func (e *JSEmitter) Finalizer(ctx *EmissionContext, f *syntax.FinalizerDecl) {
	b := ctx.Builder
	b.Append("dispose()")
	if e.typed {
		b.Append(": void")
	}
	emitBodyWith(ctx, f.Sym, nil, f.Body, nil)
}
