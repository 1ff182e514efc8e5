package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/errors"
)

const counterDoc = `{
  "files": [{
    "kind": "File", "name": "Counter.cs",
    "decls": [{
      "kind": "Namespace", "name": "Demo",
      "decls": [{
        "kind": "TypeDecl", "name": "Counter", "access": "public", "pos": "Counter.cs:3:1",
        "members": [
          {"kind": "Field", "access": "private", "type": "int", "vars": [{"name": "count", "init": 0}]},
          {"kind": "Method", "name": "Add", "access": "public", "result": "void",
           "params": [{"name": "x", "type": "int", "ref": "ref"}],
           "body": {"stmts": [
             {"kind": "ExprStmt", "x": {"kind": "Assignment", "op": "+=", "lhs": "x", "rhs": "count"}}
           ]}},
          {"kind": "Method", "name": "Add", "access": "public", "result": "void",
           "params": [{"name": "x", "type": "int"}, {"name": "y", "type": "int"}],
           "body": {"stmts": []}},
          {"kind": "Method", "name": "Run", "access": "public", "result": "int",
           "body": {"stmts": [
             {"kind": "LocalDecl", "vars": [{"name": "y", "init": 5}]},
             {"kind": "ExprStmt", "x": {"kind": "Invocation", "fun": "Add", "args": [{"ref": "ref", "value": "y"}]}},
             {"kind": "ExprStmt", "x": {"kind": "Invocation", "fun": "this.Add", "args": [{"value": "y"}, {"value": 2}]}},
             {"kind": "Return", "x": "y"}
           ]}}
        ]
      }]
    }]
  }]
}`

func decodeCounter(t *testing.T) (*Document, *SymbolTable) {
	t.Helper()
	doc, err := DecodeBytes([]byte(counterDoc))
	require.NoError(t, err)
	require.Len(t, doc.Files, 1)
	return doc, Resolve(doc.Files)
}

func counterDecl(doc *Document) *TypeDecl {
	return doc.Files[0].Decls[0].(*Namespace).Decls[0].(*TypeDecl)
}

func TestDecodeShorthands(t *testing.T) {
	doc, _ := decodeCounter(t)
	td := counterDecl(doc)

	assert.Equal(t, Pos{File: "Counter.cs", Line: 3, Col: 1}, td.Pos())
	field := td.Members[0].(*FieldDecl)
	assert.Equal(t, "int", field.Type.(*PredefinedType).Name)
	lit := field.Vars[0].Init.(*Literal)
	assert.Equal(t, LitInt, lit.LitKind)

	add := td.Members[1].(*MethodDecl)
	assert.Equal(t, RefInOut, add.Params[0].Ref)
	asg := add.Body.Stmts[0].(*ExprStmt).X.(*Assignment)
	assert.Equal(t, OpAddAssign, asg.Op)
	assert.Equal(t, OpAdd, asg.Op.Compound())
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := DecodeBytes([]byte(`{"kind": "File", "decls": [{"kind": "Nope"}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.Contains(t, err.Error(), `unknown node kind "Nope"`)
}

func TestResolveBindsOverloadsByArgumentCount(t *testing.T) {
	doc, table := decodeCounter(t)
	td := counterDecl(doc)
	addRef := td.Members[1].(*MethodDecl)
	addTwo := td.Members[2].(*MethodDecl)
	run := td.Members[3].(*MethodDecl)

	typ := table.Lookup(td.Sym)
	require.NotNil(t, typ)
	assert.Equal(t, "Demo.Counter", typ.Qualified)

	first := run.Body.Stmts[1].(*ExprStmt).X.(*Invocation)
	assert.Equal(t, addRef.Sym, first.Fun.(*Identifier).Sym)
	second := run.Body.Stmts[2].(*ExprStmt).X.(*Invocation)
	assert.Equal(t, addTwo.Sym, second.Fun.(*MemberAccess).Sym)

	y := run.Body.Stmts[0].(*LocalDecl).Vars[0]
	ySym := table.Lookup(y.Sym)
	require.NotNil(t, ySym)
	assert.Equal(t, SymLocal, ySym.Kind)
	assert.Equal(t, run.Sym, ySym.Container)
	assert.Equal(t, "int", TypeString(ySym.Type))
	assert.Equal(t, y.Sym, first.Args[0].Value.(*Identifier).Sym)

	// "count" inside Add binds to the field
	rhs := addRef.Body.Stmts[0].(*ExprStmt).X.(*Assignment).Rhs.(*Identifier)
	assert.Equal(t, SymField, table.Lookup(rhs.Sym).Kind)

	params := table.Params(addRef.Sym)
	require.Len(t, params, 1)
	assert.Equal(t, RefInOut, params[0].Ref)
	assert.Equal(t, typ, table.DeclaringType(y.Sym))
}

func TestRewriteIsPersistent(t *testing.T) {
	doc, _ := decodeCounter(t)
	Number(doc.Files[0])
	td := counterDecl(doc)
	run := td.Members[3].(*MethodDecl)

	out := Rewrite(run, func(n Node) Node {
		if id, ok := n.(*Identifier); ok && id.Name == "y" {
			cp := *id
			cp.Name = "z"
			return &cp
		}
		return n
	}).(*MethodDecl)

	assert.NotSame(t, run, out)
	assert.Equal(t, run.ID(), out.ID())
	assert.Equal(t, "y", run.Body.Stmts[3].(*Return).X.(*Identifier).Name)
	assert.Equal(t, "z", out.Body.Stmts[3].(*Return).X.(*Identifier).Name)
	// untouched subtrees are shared
	assert.Same(t, run.Body.Stmts[0].(*LocalDecl).Vars[0].Init, out.Body.Stmts[0].(*LocalDecl).Vars[0].Init)
}

func TestRewriteDropsNilStatements(t *testing.T) {
	b := NewBlock(NewExprStmt(NewIdent("a", 0)), &Empty{}, NewReturn(nil))
	out := Rewrite(b, func(n Node) Node {
		if _, ok := n.(*Empty); ok {
			return nil
		}
		return n
	}).(*Block)
	assert.Len(t, out.Stmts, 2)
	assert.Len(t, b.Stmts, 3)
}

func TestNumberAndStamp(t *testing.T) {
	call := NewCall(NewIdent("f", 0), NewInt(1))
	max := Number(call)
	assert.Equal(t, NodeID(3), max)

	alloc := NewIDAllocator(max)
	wrapped := NewExprStmt(call)
	alloc.Stamp(wrapped, Pos{Line: 7, Col: 2})
	assert.Equal(t, NodeID(4), wrapped.ID())
	assert.Equal(t, 7, wrapped.Pos().Line)
	assert.Equal(t, NodeID(1), call.ID(), "existing nodes keep their IDs")
	assert.False(t, call.Pos().IsValid(), "existing nodes are not modified")

	call.Args = append(call.Args, &Argument{Value: NewInt(2)})
	alloc.Stamp(wrapped, Pos{Line: 8})
	assert.Equal(t, NodeID(5), call.Args[1].Value.ID(), "new nodes under existing ones are stamped")
}

func TestDetachCopiesWithoutIDs(t *testing.T) {
	typ := ParseType("Dictionary<string, int[]>")
	Number(typ)

	cp := Detach(typ)
	assert.NotSame(t, typ, cp)
	assert.Equal(t, TypeString(typ), TypeString(cp))
	Inspect(cp, func(n Node) bool {
		assert.Zero(t, n.ID(), "%s keeps an ID", n.Kind())
		return true
	})
	Inspect(typ, func(n Node) bool {
		assert.NotZero(t, n.ID(), "the original is not modified")
		return true
	})

	var none TypeExpr
	assert.Nil(t, Detach(none))
}

func TestParseType(t *testing.T) {
	tests := map[string]string{
		"int":                       "int",
		"List<string>":              "List<string>",
		"Dictionary<string, int[]>": "Dictionary<string, int[]>",
		"int[,]":                    "int[,]",
		"int?":                      "int?",
		"byte*":                     "byte*",
	}
	for in, want := range tests {
		assert.Equal(t, want, TypeString(ParseType(in)), in)
	}
	assert.Equal(t, 2, ParseType("int[,]").(*ArrayType).Rank)
}

func TestSymbolTableFork(t *testing.T) {
	table := NewSymbolTable()
	a := table.Add(&Symbol{Kind: SymType, Name: "A"})
	fork := table.Fork()
	b := fork.Add(&Symbol{Kind: SymLocal, Name: "b", Container: a})

	assert.Equal(t, "A", fork.Lookup(a).Name)
	assert.Equal(t, "b", fork.Lookup(b).Name)
	assert.Nil(t, table.Lookup(b))
	assert.Equal(t, 2, fork.Len())
}

func TestPosText(t *testing.T) {
	var p Pos
	require.NoError(t, p.UnmarshalText([]byte("dir/a.cs:4:9")))
	assert.Equal(t, Pos{File: "dir/a.cs", Line: 4, Col: 9}, p)
	require.NoError(t, p.UnmarshalText([]byte("12:3")))
	assert.Equal(t, Pos{Line: 12, Col: 3}, p)
	assert.Equal(t, "12:3", p.String())
}

func TestChildrenDocumentOrder(t *testing.T) {
	asg := NewAssign(NewIdent("a", 0), NewBinary(OpAdd, NewIdent("b", 0), NewInt(1)))
	kids := Children(asg)
	require.Len(t, kids, 2)
	assert.Equal(t, KindIdentifier, kids[0].Kind())
	assert.Equal(t, KindBinary, kids[1].Kind())

	for _, k := range Kinds() {
		n := New(k)
		require.NotNil(t, n, "kind %s has no node type", k)
		assert.Equal(t, k, n.Kind())
	}
}
