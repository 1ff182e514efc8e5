package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/syntax"
)

const (
	methodF1   = `{"kind": "Method", "name": "F", "access": "public", "result": "void", "params": [{"name": "a", "type": "int"}], "body": {"stmts": []}}`
	methodF2   = `{"kind": "Method", "name": "F", "access": "public", "result": "void", "params": [{"name": "a", "type": "int"}, {"name": "b", "type": "int"}], "body": {"stmts": []}}`
	methodF2Op = `{"kind": "Method", "name": "F", "access": "public", "result": "void", "params": [{"name": "a", "type": "int"}, {"name": "b", "type": "int", "default": 0}], "body": {"stmts": []}}`
	methodFVar = `{"kind": "Method", "name": "F", "access": "public", "result": "void", "params": [{"name": "rest", "type": "int[]", "variadic": true}], "body": {"stmts": []}}`
)

func bindProgram(t *testing.T, em Emitter, doc string) (*Binder, *Forest, []error) {
	t.Helper()
	files := decode(t, doc)
	symbols := syntax.Resolve(files)
	forest := BuildForest(symbols, files)
	node := forest.Lookup("Demo.Program")
	require.NotNil(t, node)
	b := NewUnitBinder(em, symbols, forest)
	return b, forest, b.Bind(node)
}

func TestBinderRejectsOverlappingArity(t *testing.T) {
	_, _, errs := bindProgram(t, target(t, "typescript"), program(class("Program", methodF1, methodF2Op)))
	require.Len(t, errs, 1)

	var ae *AmbiguityError
	require.ErrorAs(t, errs[0], &ae)
	assert.Equal(t, "Demo.Program", ae.Type)
	assert.Equal(t, "f", ae.Name)
	assert.Equal(t, 1, ae.First.Min)
	assert.Equal(t, 1, ae.First.Max)
	assert.Equal(t, 1, ae.Second.Min)
	assert.Equal(t, 2, ae.Second.Max)
	assert.Contains(t, ae.Error(), "parameter counts [1,1] and [1,2] cannot be distinguished")
}

func TestBinderAcceptsDistinctArity(t *testing.T) {
	b, forest, errs := bindProgram(t, target(t, "typescript"), program(class("Program", methodF1, methodF2)))
	require.Empty(t, errs)

	node := forest.Lookup("Demo.Program")
	group := b.Group(node.ID, "f")
	require.Len(t, group, 2)
	assert.False(t, group[0].IsOverload)
	assert.True(t, group[1].IsOverload)
	assert.True(t, b.Overloaded(group[0]))
	assert.Equal(t, []string{"f"}, b.GroupNames(node.ID))
}

func TestBinderVariadicIsUnbounded(t *testing.T) {
	_, _, errs := bindProgram(t, target(t, "typescript"), program(class("Program", methodF2, methodFVar)))
	require.Len(t, errs, 1)

	var ae *AmbiguityError
	require.ErrorAs(t, errs[0], &ae)
	assert.Equal(t, Unbounded, ae.Second.Max)
	assert.Equal(t, 0, ae.Second.Min)
	assert.Contains(t, ae.Error(), "[0,∞)")
}

func TestBinderFlatTargetRejectsAnyOverload(t *testing.T) {
	_, _, errs := bindProgram(t, target(t, "clang"), program(class("Program", methodF1, methodF2)))
	require.Len(t, errs, 1)

	var ae *AmbiguityError
	require.ErrorAs(t, errs[0], &ae)
	assert.Equal(t, "the target has no overloading", ae.Reason)
}

func TestBinderNativeOverloadsAreNotChecked(t *testing.T) {
	for _, name := range []string{"csharp", "java"} {
		_, _, errs := bindProgram(t, target(t, name), program(class("Program", methodF1, methodF2Op)))
		assert.Empty(t, errs, name)
	}
}

const (
	ctorPlain     = `{"kind": "Constructor", "access": "public", "body": {"stmts": []}}`
	ctorWithArg   = `{"kind": "Constructor", "access": "public", "params": [{"name": "a", "type": "int"}], "body": {"stmts": []}}`
	ctorAnnotated = `{"kind": "Constructor", "access": "public", "attributes": ["OverloadedConstructor"], "params": [{"name": "a", "type": "int"}], "body": {"stmts": []}}`
)

func TestBinderSingleRegularConstructor(t *testing.T) {
	for _, name := range []string{"typescript", "javascript", "java", "csharp"} {
		t.Run(name, func(t *testing.T) {
			em := target(t, name)
			_, _, errs := bindProgram(t, em, program(class("Program", ctorPlain, ctorWithArg)))
			require.Len(t, errs, 1)
			var ae *AmbiguityError
			require.ErrorAs(t, errs[0], &ae)
			assert.Equal(t, "only one constructor may omit the OverloadedConstructor attribute", ae.Reason)
			assert.True(t, ae.Second.Constructor)

			_, _, errs = bindProgram(t, em, program(class("Program", ctorPlain, ctorAnnotated)))
			assert.Empty(t, errs)
		})
	}
}

func TestBinderConstructorPolicyOptions(t *testing.T) {
	off := false
	unchecked, err := NewTarget("typescript", TargetOptions{
		CheckOverloads: &off,
		Constructors:   &ConstructorPolicy{SingleRegular: true},
	})
	require.NoError(t, err)
	_, _, errs := bindProgram(t, unchecked, program(class("Program", ctorPlain, ctorWithArg)))
	assert.Empty(t, errs, "no constructor policy without overload checking")

	relaxed, err := NewTarget("java", TargetOptions{Constructors: &ConstructorPolicy{SingleRegular: false}})
	require.NoError(t, err)
	_, _, errs = bindProgram(t, relaxed, program(class("Program", ctorPlain, ctorWithArg)))
	assert.Empty(t, errs)

	renamed, err := NewTarget("typescript", TargetOptions{Constructors: &ConstructorPolicy{SingleRegular: true, Annotation: "Ctor"}})
	require.NoError(t, err)
	_, _, errs = bindProgram(t, renamed, program(class("Program", ctorPlain, ctorAnnotated)))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "only one constructor may omit the Ctor attribute")
}

func TestBinderBindsForeignTypesOnDemand(t *testing.T) {
	doc := program(
		class("Program", methodF1),
		class("Helper", `{"kind": "Method", "name": "Run", "access": "public", "static": true, "result": "void", "body": {"stmts": []}}`),
	)
	b, forest, errs := bindProgram(t, target(t, "typescript"), doc)
	require.Empty(t, errs)

	run := memberByName(forest.Lookup("Demo.Helper"), "Run")
	require.NotNil(t, run)
	mb, ok := b.Binding(run.Sym)
	require.True(t, ok)
	assert.Equal(t, "run", mb.Name)
	assert.Equal(t, "run", b.NameOf(run.Sym))
}

const hierarchyDoc = `{"files": [{"kind": "File", "name": "Program.cs", "decls": [
  {"kind": "Namespace", "name": "Demo", "decls": [
    {"kind": "TypeDecl", "name": "Base", "access": "public", "members": [
      {"kind": "Method", "name": "F", "access": "public", "virtual": true, "result": "int",
       "params": [{"name": "a", "type": "int"}], "body": {"stmts": [{"kind": "Return", "x": 1}]}},
      {"kind": "Method", "name": "F", "access": "public", "virtual": true, "result": "int",
       "params": [{"name": "a", "type": "int"}, {"name": "b", "type": "int"}], "body": {"stmts": [{"kind": "Return", "x": 2}]}}
    ]},
    {"kind": "TypeDecl", "name": "Derived", "access": "public", "bases": ["Base"], "members": [
      {"kind": "Method", "name": "F", "access": "public", "override": true, "result": "int",
       "params": [{"name": "a", "type": "int"}], "body": {"stmts": [{"kind": "Return", "x": 3}]}}
    ]},
    {"kind": "TypeDecl", "name": "User", "access": "public", "members": [
      {"kind": "Method", "name": "Call", "access": "public", "static": true, "result": "int",
       "params": [{"name": "b", "type": "Base"}],
       "body": {"stmts": [{"kind": "Return", "x": {"kind": "Invocation", "fun": "b.F", "args": [{"value": 7}]}}]}}
    ]}
  ]}
]}]}`

func TestBinderOverrideJoinsInheritedGroup(t *testing.T) {
	files := decode(t, hierarchyDoc)
	symbols := syntax.Resolve(files)
	forest := BuildForest(symbols, files)
	b := NewUnitBinder(target(t, "typescript"), symbols, forest)

	derived := forest.Lookup("Demo.Derived")
	require.Empty(t, b.Bind(derived))
	over, ok := b.Binding(memberByName(derived, "F").Sym)
	require.True(t, ok)
	require.NotNil(t, over.Overridden)
	assert.Equal(t, forest.Lookup("Demo.Base").ID, over.Overridden.Decl)
	assert.Equal(t, "f", over.Name)
	assert.True(t, b.Overloaded(over), "the override belongs to the inherited overload group")

	dispatch := b.Dispatch(derived.ID, "f")
	require.Len(t, dispatch, 2)
	assert.Same(t, over, dispatch[0])
	assert.Equal(t, 2, dispatch[1].Min)
	assert.Equal(t, forest.Lookup("Demo.Base").ID, dispatch[1].Decl)
}

func TestOverrideKeepsArityNameOnDispatchTargets(t *testing.T) {
	for _, name := range []string{"typescript", "javascript"} {
		t.Run(name, func(t *testing.T) {
			results := convert(t, hierarchyDoc, name)
			derived := artifactText(t, results["Demo.Derived"])
			user := artifactText(t, results["Demo.User"])

			assert.Contains(t, derived, "f$1(a")
			assert.NotContains(t, derived, " f(a")
			assert.Contains(t, derived, "f(...args")
			assert.Contains(t, derived, "if (args.length === 1) return this.f$1(...args)")
			assert.Contains(t, derived, "if (args.length === 2) return this.f$2(...args)")
			assert.Contains(t, user, "return b.f$1(7);")
		})
	}
}

func TestSingleArityHierarchyKeepsPlainNames(t *testing.T) {
	doc := program(
		class("Program", methodF1),
		`{"kind": "TypeDecl", "name": "Child", "access": "public", "bases": ["Program"], "members": [
  {"kind": "Method", "name": "F", "access": "public", "override": true, "result": "void", "params": [{"name": "a", "type": "int"}], "body": {"stmts": []}}]}`,
	)
	results := convert(t, doc, "typescript")
	child := artifactText(t, results["Demo.Child"])
	assert.Contains(t, child, "f(a: number): void")
	assert.NotContains(t, child, "...args")
}

func TestInterfaceDispatcherIsASignature(t *testing.T) {
	sig := `{"kind": "Method", "name": "F", "access": "public", "result": "void", "params": [{"name": "a", "type": "int"}]}`
	sig2 := `{"kind": "Method", "name": "F", "access": "public", "result": "void", "params": [{"name": "a", "type": "int"}, {"name": "b", "type": "int"}]}`
	shape := `{"kind": "TypeDecl", "name": "Shape", "access": "public", "typeKind": "interface", "members": [` + sig + `, ` + sig2 + `]}`
	impl := `{"kind": "TypeDecl", "name": "Program", "access": "public", "bases": ["Shape"], "members": [` + methodF1 + `, ` + methodF2 + `]}`

	results := convert(t, program(shape, impl), "typescript")
	iface := artifactText(t, results["Demo.Shape"])
	assert.Contains(t, iface, "f$1(a: number): void;")
	assert.Contains(t, iface, "f(...args: any[]): any;")
	assert.NotContains(t, iface, "args.length")

	impl = artifactText(t, results["Demo.Program"])
	assert.Contains(t, impl, "f$1(a: number): void")
	assert.Contains(t, impl, "if (args.length === 2) return this.f$2(...args)")
}
