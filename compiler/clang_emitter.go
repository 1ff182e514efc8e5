package compiler

import (
	"fmt"
	"strings"

	"codebinder/syntax"
)

// C type mapping for interop headers
var clangTypesMap = map[string]string{
	"sbyte":   "int8_t",
	"byte":    "uint8_t",
	"short":   "int16_t",
	"ushort":  "uint16_t",
	"int":     "int32_t",
	"uint":    "uint32_t",
	"long":    "int64_t",
	"ulong":   "uint64_t",
	"nint":    "intptr_t",
	"nuint":   "uintptr_t",
	"char":    "uint16_t",
	"bool":    "bool",
	"float":   "float",
	"double":  "double",
	"decimal": "double",
	"string":  "const char*",
	"object":  "void*",
	"dynamic": "void*",
	"void":    "void",
}

// ClangEmitter writes C headers declaring flat functions for each public
// member: Type_Member(Type* self, ...). Types are opaque.
type ClangEmitter struct {
	BaseEmitter
}

func NewClangEmitter() *ClangEmitter {
	return &ClangEmitter{BaseEmitter{
		name:    "clang",
		ext:     ".h",
		profile: NewProfile(PassByRef, Delegates),
		naming: NamingPolicy{
			Methods:        Verbatim,
			Properties:     Verbatim,
			Types:          Verbatim,
			QualifyMembers: true,
			Constructor:    "new",
		},
		style: Style{
			Indent:      "    ",
			Annotations: TypePrefix,
			Overloads:   OverloadNone,
			ValueTypes:  true,
		},
		tokens: csharpTokens.with(map[TokenType]string{
			TokNull:  "NULL",
			TokConst: "const",
		}),
		types: clangTypesMap,
	}}
}

func (ce *ClangEmitter) TypeName(ctx *EmissionContext, t syntax.TypeExpr) string {
	switch t := t.(type) {
	case *syntax.PredefinedType:
		if strings.HasSuffix(clangTypesMap[t.Name], "_t") {
			ctx.Require("<stdint.h>")
		}
		if t.Name == "bool" {
			ctx.Require("<stdbool.h>")
		}
	case *syntax.NamedType:
		s := ctx.Sym(t.Sym)
		if s == nil || !s.IsType() {
			return "void*"
		}
		name := typeRefName(ctx, s)
		switch s.TypeKind {
		case syntax.TypeEnum, syntax.TypeDelegate:
			return name
		}
		return name + "*"
	case *syntax.ArrayType:
		return ce.TypeName(ctx, t.Elem) + "*"
	case *syntax.NullableType:
		return ce.TypeName(ctx, t.Elem) + "*"
	case *syntax.FuncType:
		return "void*"
	}
	return ce.BaseEmitter.TypeName(ctx, t)
}

// Parameter writes "T name", with by-reference parameters as pointers.
func (ce *ClangEmitter) Parameter(ctx *EmissionContext, p *syntax.Parameter) {
	b := ctx.Builder
	typ := ce.TypeName(ctx, p.Type)
	if p.Ref != syntax.RefNone {
		typ += "*"
	}
	if p.Ref == syntax.RefIn {
		typ = "const " + typ
	}
	b.Append(typ).Space().Append(p.Name)
}

func (ce *ClangEmitter) Prologue(ctx *EmissionContext, root *DeclarationNode) string {
	var sb strings.Builder
	sb.WriteString("#pragma once\n\n")
	imports := ctx.Imports()
	for _, imp := range imports {
		fmt.Fprintf(&sb, "#include %s\n", imp)
	}
	for _, dep := range ctx.Dependencies() {
		fmt.Fprintf(&sb, "#include \"%s.h\"\n", dep.Name)
	}
	if len(imports) > 0 || len(ctx.Dependencies()) > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}

func (ce *ClangEmitter) TypeDeclaration(ctx *EmissionContext, node *DeclarationNode) {
	defer ctx.enterDecl(node)()
	b := ctx.Builder
	head := node.Head()
	switch node.TypeKind {
	case syntax.TypeEnum:
		b.Append("typedef enum ")
		values := enumValues(ctx, node)
		b.Block().Run(func() {
			for i, v := range values {
				b.EnsureLine().Appendf("%s_%s = %s", node.Name, v.Name, v.Value)
				if i < len(values)-1 {
					b.Append(",")
				}
			}
		})
		b.Appendf(" %s;", node.Name).Line()
		return
	case syntax.TypeDelegate:
		b.Appendf("typedef %s (*%s)", resultName(ctx, head.Result), node.Name)
		emitParams(ctx, head.Params)
		b.Append(";").Line()
		return
	}
	b.Appendf("typedef struct %s %s;", node.Name, node.Name).Line()
	for _, m := range node.Members() {
		switch m := m.(type) {
		case *syntax.MethodDecl:
			if m.Access.IsExported() || inInterface(ctx) {
				mb, _ := ctx.Binder.Binding(m.Sym)
				ce.Method(ctx, m, mb)
			}
		case *syntax.ConstructorDecl:
			if !m.Static && m.Access.IsExported() {
				mb, _ := ctx.Binder.Binding(m.Sym)
				ce.Constructor(ctx, m, mb)
			}
		case *syntax.PropertyDecl:
			if m.Access.IsExported() || inInterface(ctx) {
				ce.Property(ctx, m)
			}
		case *syntax.FieldDecl:
			if m.Access.IsExported() {
				ce.Field(ctx, m)
			}
		case *syntax.FinalizerDecl:
			ce.Finalizer(ctx, m)
		}
	}
	if !ctx.Profile.Has(GarbageCollection) && node.TypeKind != syntax.TypeInterface && !head.Static {
		b.EnsureLine().Appendf("void %s_destroy(%s* self);", node.Name, node.Name).Line()
	}
}

// prototype writes "R Type_name(Type* self, params);".
func (ce *ClangEmitter) prototype(ctx *EmissionContext, result, name string, static bool, params []*syntax.Parameter) {
	b := ctx.Builder
	self := ctx.Decl.Name
	b.EnsureLine().Append(result).Space().Append(name).Append("(")
	n := len(params)
	if !static {
		b.Appendf("%s* self", self)
		if n > 0 {
			b.Append(", ")
		}
	}
	b.List(n, ", ", func(i int) { ctx.Emitter.Parameter(ctx, params[i]) })
	if static && n == 0 {
		b.Append("void")
	}
	b.Append(");").Line()
}

func (ce *ClangEmitter) Method(ctx *EmissionContext, m *syntax.MethodDecl, mb *MethodBinding) {
	ce.prototype(ctx, resultName(ctx, m.Result), methodName(ctx, m.Sym, mb), m.Static, m.Params)
}

func (ce *ClangEmitter) Constructor(ctx *EmissionContext, c *syntax.ConstructorDecl, mb *MethodBinding) {
	ce.prototype(ctx, ctx.Decl.Name+"*", methodName(ctx, c.Sym, mb), true, c.Params)
}

func (ce *ClangEmitter) Property(ctx *EmissionContext, p *syntax.PropertyDecl) {
	typ := ce.TypeName(ctx, p.Type)
	prefix := ctx.Decl.Name + "_"
	if p.Getter != nil {
		ce.prototype(ctx, typ, prefix+"get_"+p.Name, p.Static, nil)
	}
	if p.Setter != nil {
		ce.prototype(ctx, "void", prefix+"set_"+p.Name, p.Static,
			[]*syntax.Parameter{{Name: "value", Type: p.Type}})
	}
}

// Field exposes public fields through accessors, like properties.
func (ce *ClangEmitter) Field(ctx *EmissionContext, f *syntax.FieldDecl) {
	for _, v := range f.Vars {
		ce.Property(ctx, &syntax.PropertyDecl{
			Name:   v.Name,
			Static: f.Static || f.Const,
			Type:   f.Type,
			Getter: &syntax.Accessor{},
			Setter: setterFor(f),
		})
	}
}

func setterFor(f *syntax.FieldDecl) *syntax.Accessor {
	if f.Const || f.ReadOnly {
		return nil
	}
	return &syntax.Accessor{}
}

// Finalizer is folded into Type_destroy when the profile lacks garbage
// collection. With it, the finalizer gets its own entry point.
func (ce *ClangEmitter) Finalizer(ctx *EmissionContext, _ *syntax.FinalizerDecl) {
	if !ctx.Profile.Has(GarbageCollection) {
		return
	}
	ce.prototype(ctx, "void", ctx.Decl.Name+"_finalize", false, nil)
}
