package compiler

import (
	"fmt"
	"sort"
	"strings"

	"codebinder/syntax"
)

// Java type mapping - note Java has no unsigned types
var javaTypesMap = map[string]string{
	"sbyte":   "byte",
	"byte":    "short", // No unsigned in Java, use wider signed
	"short":   "short",
	"ushort":  "int",
	"int":     "int",
	"uint":    "long",
	"long":    "long",
	"ulong":   "long", // would need BigInteger for full range
	"nint":    "long",
	"nuint":   "long",
	"char":    "char",
	"bool":    "boolean",
	"float":   "float",
	"double":  "double",
	"decimal": "double",
	"string":  "String",
	"object":  "Object",
	"dynamic": "Object",
	"void":    "void",
}

// javaBoxedTypes maps primitive types to their boxed versions for generics
var javaBoxedTypes = map[string]string{
	"byte":    "Byte",
	"short":   "Short",
	"int":     "Integer",
	"long":    "Long",
	"float":   "Float",
	"double":  "Double",
	"boolean": "Boolean",
	"char":    "Character",
	"void":    "Void",
}

var javaZeroValues = map[string]string{
	"sbyte": "0", "byte": "0", "short": "0", "ushort": "0", "int": "0",
	"uint": "0L", "long": "0L", "ulong": "0L", "nint": "0L", "nuint": "0L",
	"char": `'\0'`, "bool": "false", "float": "0.0f", "double": "0.0", "decimal": "0.0",
}

// javaLibraryType is the Java spelling of a well-known library type.
type javaLibraryType struct {
	name string
	imp  string
}

var javaLibraryTypes = map[string]javaLibraryType{
	"List":          {"ArrayList", "java.util.ArrayList"},
	"IList":         {"List", "java.util.List"},
	"Dictionary":    {"HashMap", "java.util.HashMap"},
	"IDictionary":   {"Map", "java.util.Map"},
	"HashSet":       {"HashSet", "java.util.HashSet"},
	"StringBuilder": {"StringBuilder", ""},
	"Exception":     {"RuntimeException", ""},
	"IDisposable":   {"AutoCloseable", ""},
}

// javaFunctionalTypes holds the java.util.function interface for a closure
// by parameter count, without and with a result.
var javaFunctionalTypes = [3][2]string{
	{"Runnable", "Supplier"},
	{"Consumer", "Function"},
	{"BiConsumer", "BiFunction"},
}

var javaFunctionalInvoke = map[string]string{
	"Runnable":   "run",
	"Supplier":   "get",
	"Consumer":   "accept",
	"Function":   "apply",
	"BiConsumer": "accept",
	"BiFunction": "apply",
}

var javaReplacements = map[string]string{
	"Console.WriteLine": "System.out.println",
	"Console.Write":     "System.out.print",
	"Math.Max":          "Math.max",
	"Math.Min":          "Math.min",
	"Math.Abs":          "Math.abs",
	"Math.Sqrt":         "Math.sqrt",
	"string.Length":     "{x}.length()",
	"string.ToUpper":    "{x}.toUpperCase()",
	"string.ToLower":    "{x}.toLowerCase()",
	"string.Substring":  "{x}.substring({args})",
	"string.Contains":   "{x}.contains({args})",
	"string.Equals":     "{x}.equals({args})",
	"array.Length":      "{x}.length",
	"List.Count":        "{x}.size()",
	"List.Add":          "add",
	"List.Clear":        "clear",
	"object.ToString":   "toString",
}

// JavaEmitter converts to Java source. Enums become classes of int
// constants and properties become get/set methods.
type JavaEmitter struct {
	BaseEmitter
}

func NewJavaEmitter() *JavaEmitter {
	return &JavaEmitter{BaseEmitter{
		name:    "java",
		ext:     ".java",
		profile: NewProfile(Delegates, GarbageCollection, InstanceFinalizers),
		naming: NamingPolicy{
			Methods:      LowerCamel,
			Properties:   PascalCase,
			Types:        Verbatim,
			Replacements: NewReplacementTable(javaReplacements),
		},
		style: Style{
			Indent:            "    ",
			Annotations:       TypePrefix,
			Overloads:         OverloadNative,
			Foreach:           ForeachColon,
			LambdaArrow:       "->",
			TypedCatch:        true,
			Bodies:            true,
			PropertyAccessors: true,
			CaptureByValue:    true,
			NestedTypes:       true,
			PackageDirs:       true,
			InitializerOpen:   "{",
			InitializerClose:  "}",
			TypeOfFormat:      "%s.class",
			IsFormat:          "%[1]s instanceof %[2]s",
			AsFormat:          "(%[1]s instanceof %[2]s ? (%[2]s) %[1]s : null)",
			LockKeyword:       "synchronized",
			Using:             UsingTryWith,
			DefaultCatchType:  "Exception",
		},
		tokens: csharpTokens.with(map[TokenType]string{
			TokBase:        "super",
			TokConst:       "final",
			TokFinal:       "final",
			TokYieldReturn: "",
			TokYieldBreak:  "",
			TokOverride:    "",
			TokVirtual:     "",
		}),
		operators: map[syntax.Operator]string{
			syntax.OpCoalesce:       "",
			syntax.OpCoalesceAssign: "",
		},
		types: javaTypesMap,
		zero:  javaZeroValues,
		suffix: map[syntax.LiteralKind]string{
			syntax.LitLong:  "L",
			syntax.LitUInt:  "L",
			syntax.LitULong: "L",
			syntax.LitFloat: "f",
		},
		access: map[syntax.Accessibility]string{
			syntax.AccessPublic:            "public",
			syntax.AccessProtected:         "protected",
			syntax.AccessProtectedInternal: "protected",
			syntax.AccessPrivate:           "private",
		},
	}}
}

func (je *JavaEmitter) TypeName(ctx *EmissionContext, t syntax.TypeExpr) string {
	switch t := t.(type) {
	case *syntax.NamedType:
		if ft, ok := delegateFuncType(t); ok {
			return je.funcType(ctx, ft)
		}
		s := ctx.Sym(t.Sym)
		if s != nil && s.IsType() && s.TypeKind == syntax.TypeEnum {
			ctx.noteType(s)
			return "int"
		}
		name := t.Name
		if s != nil && s.IsType() {
			name = typeRefName(ctx, s)
		} else if lib, ok := javaLibraryTypes[t.Name]; ok {
			name = lib.name
			if lib.imp != "" {
				ctx.Require(lib.imp)
			}
		}
		if len(t.Args) == 0 {
			return name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = je.boxedName(ctx, a)
		}
		return name + "<" + strings.Join(args, ", ") + ">"
	case *syntax.NullableType:
		return je.boxedName(ctx, t.Elem)
	case *syntax.FuncType:
		return je.funcType(ctx, t)
	}
	return je.BaseEmitter.TypeName(ctx, t)
}

// boxedName spells t where Java needs a reference type.
func (je *JavaEmitter) boxedName(ctx *EmissionContext, t syntax.TypeExpr) string {
	name := je.TypeName(ctx, t)
	if boxed, ok := javaBoxedTypes[name]; ok {
		return boxed
	}
	return name
}

// delegateFuncType reads the library delegates Action<...> and Func<...> as
// closure types.
func delegateFuncType(t *syntax.NamedType) (*syntax.FuncType, bool) {
	switch t.Name {
	case "Action", "System.Action":
		return &syntax.FuncType{Params: t.Args}, true
	case "Func", "System.Func":
		if len(t.Args) == 0 {
			return nil, false
		}
		n := len(t.Args) - 1
		return &syntax.FuncType{Params: t.Args[:n], Result: t.Args[n]}, true
	}
	return nil, false
}

func javaFunctional(ft *syntax.FuncType) (string, bool) {
	if len(ft.Params) >= len(javaFunctionalTypes) {
		return "", false
	}
	result := 0
	if !syntax.IsVoid(ft.Result) {
		result = 1
	}
	return javaFunctionalTypes[len(ft.Params)][result], true
}

func (je *JavaEmitter) funcType(ctx *EmissionContext, ft *syntax.FuncType) string {
	iface, ok := javaFunctional(ft)
	if !ok {
		unsupported(ft)
	}
	if iface == "Runnable" {
		return iface
	}
	ctx.Require("java.util.function." + iface)
	args := make([]string, 0, len(ft.Params)+1)
	for _, p := range ft.Params {
		args = append(args, je.boxedName(ctx, p))
	}
	if !syntax.IsVoid(ft.Result) {
		args = append(args, je.boxedName(ctx, ft.Result))
	}
	return iface + "<" + strings.Join(args, ", ") + ">"
}

func (je *JavaEmitter) ClosureSupported(ft *syntax.FuncType) bool {
	_, ok := javaFunctional(ft)
	return ok
}

func (je *JavaEmitter) ValueInvoke(ctx *EmissionContext, callee syntax.TypeExpr) string {
	switch t := callee.(type) {
	case *syntax.FuncType:
		iface, _ := javaFunctional(t)
		return javaFunctionalInvoke[iface]
	case *syntax.NamedType:
		if ft, ok := delegateFuncType(t); ok {
			iface, _ := javaFunctional(ft)
			return javaFunctionalInvoke[iface]
		}
		if s := ctx.Sym(t.Sym); s != nil && s.TypeKind == syntax.TypeDelegate {
			return "invoke"
		}
	}
	return ""
}

// BoxElement boxes primitives in their wrapper classes. Type parameters and
// generic types cannot be array elements, so they go in Object arrays and
// are cast back on unpack.
func (je *JavaEmitter) BoxElement(symbols *syntax.SymbolTable, t syntax.TypeExpr) (syntax.TypeExpr, bool, bool) {
	object := &syntax.NamedType{Name: "Object"}
	switch t := t.(type) {
	case *syntax.PredefinedType:
		if t.Name == "void" {
			return nil, false, false
		}
		if boxed, ok := javaBoxedTypes[javaTypesMap[t.Name]]; ok {
			return &syntax.NamedType{Name: boxed}, false, true
		}
		return t, false, true
	case *syntax.NullableType:
		return je.BoxElement(symbols, t.Elem)
	case *syntax.NamedType:
		if len(t.Args) > 0 {
			return object, true, true
		}
		if s := symbols.Lookup(t.Sym); s != nil && s.Kind == syntax.SymTypeParameter {
			return object, true, true
		}
		return t, false, true
	case *syntax.FuncType:
		return object, true, true
	}
	return je.BaseEmitter.BoxElement(symbols, t)
}

func (je *JavaEmitter) Prologue(ctx *EmissionContext, root *DeclarationNode) string {
	var sb strings.Builder
	if root.Namespace != "" {
		fmt.Fprintf(&sb, "package %s;\n\n", strings.ToLower(root.Namespace))
	}
	imports := ctx.Imports()
	for _, dep := range ctx.Dependencies() {
		if dep.Namespace != root.Namespace && dep.Namespace != "" {
			imports = append(imports, strings.ToLower(dep.Namespace)+"."+dep.Name)
		}
	}
	sort.Strings(imports)
	for i, imp := range imports {
		if i > 0 && imports[i-1] == imp {
			continue
		}
		fmt.Fprintf(&sb, "import %s;\n", imp)
	}
	if len(imports) > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}

func (je *JavaEmitter) TypeDeclaration(ctx *EmissionContext, node *DeclarationNode) {
	defer ctx.enterDecl(node)()
	b := ctx.Builder
	head := node.Head()
	nested := !node.IsRoot()
	static := ""
	if nested {
		static = "static"
	}
	switch node.TypeKind {
	case syntax.TypeEnum:
		b.Append(modifiers(je.accessWord(node.Access), static, "final")).Append("class ").Append(node.Name).Space()
		b.Block().Run(func() {
			for _, m := range enumValues(ctx, node) {
				b.EnsureLine().Appendf("public static final int %s = %s;", m.Name, m.Value)
			}
		})
		return
	case syntax.TypeDelegate:
		b.AppendLine("@FunctionalInterface")
		b.Append(modifiers(je.accessWord(node.Access))).Append("interface ").Append(node.Name).Append(typeParams(head.TypeParams)).Space()
		b.Block().Run(func() {
			b.Append(resultName(ctx, head.Result)).Append(" invoke")
			emitParams(ctx, head.Params)
			end(ctx)
		})
		return
	case syntax.TypeInterface:
		b.Append(modifiers(je.accessWord(node.Access))).Append("interface ").Append(node.Name).Append(typeParams(head.TypeParams))
		_, ifaces := typeBases(ctx, node)
		je.baseList(ctx, " extends ", ifaces)
	default:
		final := ""
		if head.Sealed || head.Static {
			final = "final"
		}
		abstract := ""
		if head.Abstract {
			abstract = "abstract"
		}
		b.Append(modifiers(je.accessWord(node.Access), static, abstract, final)).Append("class ").Append(node.Name).Append(typeParams(head.TypeParams))
		class, ifaces := typeBases(ctx, node)
		if class != nil {
			b.Append(" extends ").Append(je.TypeName(ctx, class))
		}
		je.baseList(ctx, " implements ", ifaces)
	}
	b.Space()
	scope := b.Block()
	defer scope.Close()
	emitMembers(ctx, node)
}

func (je *JavaEmitter) baseList(ctx *EmissionContext, keyword string, types []syntax.TypeExpr) {
	if len(types) == 0 {
		return
	}
	b := ctx.Builder
	b.Append(keyword)
	b.List(len(types), ", ", func(i int) { b.Append(je.TypeName(ctx, types[i])) })
}

func (je *JavaEmitter) memberModifiers(ctx *EmissionContext, access syntax.Accessibility, words ...string) string {
	if inInterface(ctx) {
		return modifiers(words...)
	}
	return modifiers(append([]string{je.accessWord(access)}, words...)...)
}

func (je *JavaEmitter) Field(ctx *EmissionContext, f *syntax.FieldDecl) {
	b := ctx.Builder
	static, final := "", ""
	if f.Static || f.Const {
		static = "static"
	}
	if f.Const || f.ReadOnly {
		final = "final"
	}
	b.Append(je.memberModifiers(ctx, f.Access, static, final)).Append(je.TypeName(ctx, f.Type)).Space()
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

func (je *JavaEmitter) Property(ctx *EmissionContext, p *syntax.PropertyDecl) {
	b := ctx.Builder
	typ := je.TypeName(ctx, p.Type)
	static := ""
	if p.Static {
		static = "static"
	}
	abstract := ""
	if p.Abstract && !inInterface(ctx) {
		abstract = "abstract"
	}
	getter := "get" + PascalCase.Apply(p.Name)
	field := lowerFirst(p.Name)
	if autoProperty(p) {
		b.Append(modifiers("private", static)).Append(typ).Space().Append(field)
		if p.Init != nil {
			b.Append(" = ")
			EmitExpr(ctx, p.Init)
		}
		end(ctx)
		b.Line()
	}
	accessor := func(a *syntax.Accessor, sig string, auto string) {
		access := p.Access
		if a.Access != syntax.AccessNone {
			access = a.Access
		}
		b.EnsureLine().Append(je.memberModifiers(ctx, access, static, abstract)).Append(sig)
		switch {
		case autoProperty(p):
			b.Space()
			b.Block().Run(func() {
				b.Append(auto)
				end(ctx)
			})
		case a.Body == nil || !ctx.Style.Bodies:
			end(ctx)
		default:
			emitMethodBody(ctx, p.Sym, a.Body)
		}
	}
	if p.Getter != nil {
		accessor(p.Getter, typ+" "+getter+"()", "return "+field)
	}
	if p.Setter != nil {
		if p.Getter != nil {
			b.EnsureLine().Line()
		}
		accessor(p.Setter, "void "+setterName(ctx.Sym(p.Sym))+"("+typ+" value)", field+" = value")
	}
}

func (je *JavaEmitter) Method(ctx *EmissionContext, m *syntax.MethodDecl, mb *MethodBinding) {
	b := ctx.Builder
	if m.Override {
		b.AppendLine("@Override")
	}
	static, abstract, def := "", "", ""
	if m.Static {
		static = "static"
	}
	switch {
	case inInterface(ctx) && m.Body != nil:
		def = "default"
	case m.Abstract && !inInterface(ctx):
		abstract = "abstract"
	}
	b.Append(je.memberModifiers(ctx, m.Access, def, static, abstract))
	if len(m.TypeParams) > 0 {
		b.Append(typeParams(m.TypeParams)).Space()
	}
	b.Append(resultName(ctx, m.Result)).Space().Append(methodName(ctx, m.Sym, mb))
	emitParams(ctx, m.Params)
	emitMethodBody(ctx, m.Sym, m.Body)
}

func (je *JavaEmitter) Constructor(ctx *EmissionContext, c *syntax.ConstructorDecl, mb *MethodBinding) {
	b := ctx.Builder
	if c.Static {
		b.Append("static")
		emitBodyWith(ctx, c.Sym, nil, c.Body, nil)
		return
	}
	b.Append(modifiers(je.accessWord(c.Access))).Append(ctx.Decl.Name)
	emitParams(ctx, c.Params)
	var first func()
	if init := c.Initializer; init != nil {
		call := "super"
		if init.ThisCall {
			call = "this"
		}
		first = func() { emitCall(ctx, call, init.Args, init.Ctor) }
	}
	emitBodyWith(ctx, c.Sym, first, c.Body, nil)
}

// Finalizer overrides Object.finalize, or implements close() when the
// profile routes finalizers through an interface.
func (je *JavaEmitter) Finalizer(ctx *EmissionContext, f *syntax.FinalizerDecl) {
	b := ctx.Builder
	if ctx.Profile.Has(InstanceFinalizers) {
		b.AppendLine("@Override")
		b.Append("protected void finalize() throws Throwable")
	} else {
		b.Append("public void close()")
	}
	emitBodyWith(ctx, f.Sym, nil, f.Body, nil)
}

func (je *JavaEmitter) Parameter(ctx *EmissionContext, p *syntax.Parameter) {
	b := ctx.Builder
	typ := p.Type
	if at, ok := typ.(*syntax.ArrayType); ok && p.Variadic {
		b.Append(je.TypeName(ctx, at.Elem)).Append("... ")
	} else {
		b.Append(je.TypeName(ctx, typ)).Space()
	}
	b.Append(p.Name)
}
