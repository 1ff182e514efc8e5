// Package syntax is the resolved syntax tree consumed by the compiler: typed
// nodes with stable identifiers, a symbol table, traversal and persistent
// rewriting, and a JSON interchange format.
package syntax

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeID identifies a node. IDs are stable across rewrites: a rewritten
// node keeps the ID of the node it replaces, synthesized nodes get fresh ones.
type NodeID int

// Pos is a source position.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		if p.File != "" {
			return p.File
		}
		return "-"
	}
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

func (p Pos) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText accepts "file:line:col", "line:col" or "file".
func (p *Pos) UnmarshalText(text []byte) error {
	parts := strings.Split(string(text), ":")
	*p = Pos{}
	nums := 0
	for i := len(parts) - 1; i >= 0 && nums < 2; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			break
		}
		if nums == 0 {
			p.Col = n
		} else {
			p.Line = n
		}
		nums++
	}
	if nums == 1 {
		p.Line, p.Col = p.Col, 0
	}
	p.File = strings.Join(parts[:len(parts)-nums], ":")
	return nil
}

// Base carries the identity and position shared by every node.
type Base struct {
	NodeID NodeID
	At     Pos
}

func (b *Base) ID() NodeID  { return b.NodeID }
func (b *Base) Pos() Pos    { return b.At }
func (b *Base) base() *Base { return b }

// Node is any syntax tree node.
type Node interface {
	ID() NodeID
	Pos() Pos
	Kind() Kind
	base() *Base
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// TypeExpr is a type reference.
type TypeExpr interface {
	Node
	typeNode()
}

// Decl is a declaration node.
type Decl interface {
	Node
	declNode()
}

// ---- expressions ----

type (
	Literal struct {
		Base
		LitKind LiteralKind
		Value   string // unquoted, unescaped, without suffix
	}

	Identifier struct {
		Base
		Name     string
		TypeArgs []TypeExpr
		Sym      SymbolID
	}

	MemberAccess struct {
		Base
		X    Expr
		Name string
		Sym  SymbolID
	}

	// Argument is one call argument.
	Argument struct {
		Ref   RefKind
		Name  string // named argument, empty when positional
		Value Expr
	}

	Invocation struct {
		Base
		Fun  Expr
		Args []*Argument
		// ValueCall marks a call through a closure or delegate value.
		ValueCall bool
	}

	ObjectCreation struct {
		Base
		Type TypeExpr
		Args []*Argument
		Ctor SymbolID
	}

	ArrayCreation struct {
		Base
		Elem  TypeExpr
		Sizes []Expr
		Init  *Initializer
	}

	Initializer struct {
		Base
		Elems []Expr
	}

	ElementAccess struct {
		Base
		X       Expr
		Indices []Expr
	}

	Binary struct {
		Base
		Op Operator
		X  Expr
		Y  Expr
	}

	Unary struct {
		Base
		Op Operator
		X  Expr
	}

	Postfix struct {
		Base
		Op Operator
		X  Expr
	}

	Assignment struct {
		Base
		Op  Operator
		Lhs Expr
		Rhs Expr
	}

	Conditional struct {
		Base
		Cond Expr
		Then Expr
		Else Expr
	}

	Paren struct {
		Base
		X Expr
	}

	Cast struct {
		Base
		Type TypeExpr
		X    Expr
	}

	This struct{ Base }

	BaseAccess struct{ Base }

	TypeOf struct {
		Base
		Type TypeExpr
	}

	IsType struct {
		Base
		X    Expr
		Type TypeExpr
	}

	AsType struct {
		Base
		X    Expr
		Type TypeExpr
	}

	Default struct {
		Base
		Type TypeExpr
	}

	// Lambda has either an expression or a block body.
	Lambda struct {
		Base
		Params []*Parameter
		Body   Node
	}

	// InterpolatedString alternates string literal parts and holes.
	InterpolatedString struct {
		Base
		Parts []Expr
	}

	NameOf struct {
		Base
		X Expr
	}

	ConditionalAccess struct {
		Base
		X    Expr
		Name string
		Sym  SymbolID
	}

	Query struct {
		Base
		Text string
	}

	Pattern struct {
		Base
		X    Expr
		Text string
	}

	Tuple struct {
		Base
		Elems []Expr
	}

	CheckedExpr struct {
		Base
		Unchecked bool
		X         Expr
	}

	AddressOf struct {
		Base
		X Expr
	}

	PointerDeref struct {
		Base
		X Expr
	}

	StackAlloc struct {
		Base
		Elem TypeExpr
		Size Expr
	}

	SizeOf struct {
		Base
		Type TypeExpr
	}

	Await struct {
		Base
		X Expr
	}
)

// ---- type references ----

type (
	// PredefinedType is a keyword type such as int, string or void.
	PredefinedType struct {
		Base
		Name string
	}

	NamedType struct {
		Base
		Name string // possibly dotted
		Args []TypeExpr
		Sym  SymbolID
	}

	ArrayType struct {
		Base
		Elem TypeExpr
		Rank int // 0 and 1 both mean a single dimension
	}

	NullableType struct {
		Base
		Elem TypeExpr
	}

	// FuncType is the type of a synthesized closure. A nil Result is void.
	FuncType struct {
		Base
		Params []TypeExpr
		Result TypeExpr
	}

	PointerType struct {
		Base
		Elem TypeExpr
	}

	TupleType struct {
		Base
		Elems []TypeExpr
	}
)

// ---- statements ----

type (
	Block struct {
		Base
		Stmts []Stmt
	}

	ExprStmt struct {
		Base
		X Expr
	}

	VarDeclarator struct {
		Name string
		Init Expr
		Sym  SymbolID
	}

	// LocalDecl declares locals. A nil Type stands for an inferred type.
	LocalDecl struct {
		Base
		Type  TypeExpr
		Const bool
		Vars  []*VarDeclarator
	}

	If struct {
		Base
		Cond Expr
		Then Stmt
		Else Stmt
	}

	While struct {
		Base
		Cond Expr
		Body Stmt
	}

	Do struct {
		Base
		Body Stmt
		Cond Expr
	}

	For struct {
		Base
		Init []Stmt
		Cond Expr
		Post []Expr
		Body Stmt
	}

	Foreach struct {
		Base
		Type TypeExpr
		Name string
		X    Expr
		Body Stmt
		Sym  SymbolID
	}

	// SwitchSection with no labels is the default section.
	SwitchSection struct {
		Labels []Expr
		Body   []Stmt
	}

	Switch struct {
		Base
		Tag      Expr
		Sections []*SwitchSection
	}

	Break struct{ Base }

	Continue struct{ Base }

	Return struct {
		Base
		X Expr
	}

	Throw struct {
		Base
		X Expr
	}

	CatchClause struct {
		Type TypeExpr
		Name string
		Body *Block
		Sym  SymbolID
	}

	Try struct {
		Base
		Body    *Block
		Catches []*CatchClause
		Finally *Block
	}

	Using struct {
		Base
		Decl *LocalDecl
		X    Expr
		Body Stmt
	}

	Lock struct {
		Base
		X    Expr
		Body Stmt
	}

	// Yield is "yield return X", or "yield break" when Break is set.
	Yield struct {
		Base
		Break bool
		X     Expr
	}

	LocalFunction struct {
		Base
		Name   string
		Params []*Parameter
		Result TypeExpr
		Body   *Block
		Sym    SymbolID
	}

	Empty struct{ Base }

	Goto struct {
		Base
		Label string
	}

	Labeled struct {
		Base
		Label string
		Stmt  Stmt
	}

	Fixed struct {
		Base
		Decl *LocalDecl
		Body Stmt
	}

	Unsafe struct {
		Base
		Body *Block
	}

	CheckedBlock struct {
		Base
		Unchecked bool
		Body      *Block
	}

	Preprocessor struct {
		Base
		Text string
	}
)

// ---- declarations ----

type (
	File struct {
		Base
		Name  string
		Decls []Decl
	}

	Namespace struct {
		Base
		Name  string
		Decls []Decl
	}

	Parameter struct {
		Name     string
		Type     TypeExpr
		Ref      RefKind
		Default  Expr
		Variadic bool
		Sym      SymbolID
	}

	// TypeDecl is one declaration fragment of a type. Partial types are
	// spread over several TypeDecls sharing a symbol. Delegates carry their
	// signature in Params and Result.
	TypeDecl struct {
		Base
		Name       string
		TypeKind   TypeKind
		Access     Accessibility
		Static     bool
		Abstract   bool
		Sealed     bool
		Partial    bool
		TypeParams []string
		Attributes []string
		Bases      []TypeExpr
		Params     []*Parameter
		Result     TypeExpr
		Members    []Decl
		Sym        SymbolID
	}

	MethodDecl struct {
		Base
		Name       string
		Access     Accessibility
		Static     bool
		Abstract   bool
		Virtual    bool
		Override   bool
		Partial    bool
		TypeParams []string
		Attributes []string
		Explicit   TypeExpr // interface of an explicit implementation
		Params     []*Parameter
		Result     TypeExpr
		Body       *Block
		Sym        SymbolID
	}

	// ConstructorInitializer is ": base(...)" or ": this(...)".
	ConstructorInitializer struct {
		ThisCall bool
		Args     []*Argument
		Ctor     SymbolID
	}

	ConstructorDecl struct {
		Base
		Access      Accessibility
		Static      bool
		Attributes  []string
		Params      []*Parameter
		Initializer *ConstructorInitializer
		Body        *Block
		Sym         SymbolID
	}

	FinalizerDecl struct {
		Base
		Body *Block
		Sym  SymbolID
	}

	FieldDecl struct {
		Base
		Access   Accessibility
		Static   bool
		Const    bool
		ReadOnly bool
		Type     TypeExpr
		Vars     []*VarDeclarator
	}

	// Accessor with a nil Body is automatically implemented.
	Accessor struct {
		Access Accessibility
		Body   *Block
	}

	PropertyDecl struct {
		Base
		Name     string
		Access   Accessibility
		Static   bool
		Abstract bool
		Virtual  bool
		Override bool
		Type     TypeExpr
		Getter   *Accessor
		Setter   *Accessor
		Init     Expr
		Sym      SymbolID
	}

	EnumMember struct {
		Base
		Name  string
		Value Expr
		Sym   SymbolID
	}
)

func (*Literal) Kind() Kind            { return KindLiteral }
func (*Identifier) Kind() Kind         { return KindIdentifier }
func (*MemberAccess) Kind() Kind       { return KindMemberAccess }
func (*Invocation) Kind() Kind         { return KindInvocation }
func (*ObjectCreation) Kind() Kind     { return KindObjectCreation }
func (*ArrayCreation) Kind() Kind      { return KindArrayCreation }
func (*Initializer) Kind() Kind        { return KindInitializer }
func (*ElementAccess) Kind() Kind      { return KindElementAccess }
func (*Binary) Kind() Kind             { return KindBinary }
func (*Unary) Kind() Kind              { return KindUnary }
func (*Postfix) Kind() Kind            { return KindPostfix }
func (*Assignment) Kind() Kind         { return KindAssignment }
func (*Conditional) Kind() Kind        { return KindConditional }
func (*Paren) Kind() Kind              { return KindParen }
func (*Cast) Kind() Kind               { return KindCast }
func (*This) Kind() Kind               { return KindThis }
func (*BaseAccess) Kind() Kind         { return KindBaseAccess }
func (*TypeOf) Kind() Kind             { return KindTypeOf }
func (*IsType) Kind() Kind             { return KindIsType }
func (*AsType) Kind() Kind             { return KindAsType }
func (*Default) Kind() Kind            { return KindDefault }
func (*Lambda) Kind() Kind             { return KindLambda }
func (*InterpolatedString) Kind() Kind { return KindInterpolatedString }
func (*NameOf) Kind() Kind             { return KindNameOf }
func (*ConditionalAccess) Kind() Kind  { return KindConditionalAccess }
func (*Query) Kind() Kind              { return KindQuery }
func (*Pattern) Kind() Kind            { return KindPattern }
func (*Tuple) Kind() Kind              { return KindTuple }
func (*CheckedExpr) Kind() Kind        { return KindCheckedExpr }
func (*AddressOf) Kind() Kind          { return KindAddressOf }
func (*PointerDeref) Kind() Kind       { return KindPointerDeref }
func (*StackAlloc) Kind() Kind         { return KindStackAlloc }
func (*SizeOf) Kind() Kind             { return KindSizeOf }
func (*Await) Kind() Kind              { return KindAwait }
func (*PredefinedType) Kind() Kind     { return KindPredefinedType }
func (*NamedType) Kind() Kind          { return KindNamedType }
func (*ArrayType) Kind() Kind          { return KindArrayType }
func (*NullableType) Kind() Kind       { return KindNullableType }
func (*FuncType) Kind() Kind           { return KindFuncType }
func (*PointerType) Kind() Kind        { return KindPointerType }
func (*TupleType) Kind() Kind          { return KindTupleType }
func (*Block) Kind() Kind              { return KindBlock }
func (*ExprStmt) Kind() Kind           { return KindExprStmt }
func (*LocalDecl) Kind() Kind          { return KindLocalDecl }
func (*If) Kind() Kind                 { return KindIf }
func (*While) Kind() Kind              { return KindWhile }
func (*Do) Kind() Kind                 { return KindDo }
func (*For) Kind() Kind                { return KindFor }
func (*Foreach) Kind() Kind            { return KindForeach }
func (*Switch) Kind() Kind             { return KindSwitch }
func (*Break) Kind() Kind              { return KindBreak }
func (*Continue) Kind() Kind           { return KindContinue }
func (*Return) Kind() Kind             { return KindReturn }
func (*Throw) Kind() Kind              { return KindThrow }
func (*Try) Kind() Kind                { return KindTry }
func (*Using) Kind() Kind              { return KindUsing }
func (*Lock) Kind() Kind               { return KindLock }
func (*Yield) Kind() Kind              { return KindYield }
func (*LocalFunction) Kind() Kind      { return KindLocalFunction }
func (*Empty) Kind() Kind              { return KindEmpty }
func (*Goto) Kind() Kind               { return KindGoto }
func (*Labeled) Kind() Kind            { return KindLabeled }
func (*Fixed) Kind() Kind              { return KindFixed }
func (*Unsafe) Kind() Kind             { return KindUnsafe }
func (*CheckedBlock) Kind() Kind       { return KindCheckedBlock }
func (*Preprocessor) Kind() Kind       { return KindPreprocessor }
func (*File) Kind() Kind               { return KindFile }
func (*Namespace) Kind() Kind          { return KindNamespace }
func (*TypeDecl) Kind() Kind           { return KindTypeDecl }
func (*MethodDecl) Kind() Kind         { return KindMethod }
func (*ConstructorDecl) Kind() Kind    { return KindConstructor }
func (*FinalizerDecl) Kind() Kind      { return KindFinalizer }
func (*FieldDecl) Kind() Kind          { return KindField }
func (*PropertyDecl) Kind() Kind       { return KindProperty }
func (*EnumMember) Kind() Kind         { return KindEnumMember }

func (*Literal) exprNode()            {}
func (*Identifier) exprNode()         {}
func (*MemberAccess) exprNode()       {}
func (*Invocation) exprNode()         {}
func (*ObjectCreation) exprNode()     {}
func (*ArrayCreation) exprNode()      {}
func (*Initializer) exprNode()        {}
func (*ElementAccess) exprNode()      {}
func (*Binary) exprNode()             {}
func (*Unary) exprNode()              {}
func (*Postfix) exprNode()            {}
func (*Assignment) exprNode()         {}
func (*Conditional) exprNode()        {}
func (*Paren) exprNode()              {}
func (*Cast) exprNode()               {}
func (*This) exprNode()               {}
func (*BaseAccess) exprNode()         {}
func (*TypeOf) exprNode()             {}
func (*IsType) exprNode()             {}
func (*AsType) exprNode()             {}
func (*Default) exprNode()            {}
func (*Lambda) exprNode()             {}
func (*InterpolatedString) exprNode() {}
func (*NameOf) exprNode()             {}
func (*ConditionalAccess) exprNode()  {}
func (*Query) exprNode()              {}
func (*Pattern) exprNode()            {}
func (*Tuple) exprNode()              {}
func (*CheckedExpr) exprNode()        {}
func (*AddressOf) exprNode()          {}
func (*PointerDeref) exprNode()       {}
func (*StackAlloc) exprNode()         {}
func (*SizeOf) exprNode()             {}
func (*Await) exprNode()              {}

func (*PredefinedType) typeNode() {}
func (*NamedType) typeNode()      {}
func (*ArrayType) typeNode()      {}
func (*NullableType) typeNode()   {}
func (*FuncType) typeNode()       {}
func (*PointerType) typeNode()    {}
func (*TupleType) typeNode()      {}

func (*Block) stmtNode()         {}
func (*ExprStmt) stmtNode()      {}
func (*LocalDecl) stmtNode()     {}
func (*If) stmtNode()            {}
func (*While) stmtNode()         {}
func (*Do) stmtNode()            {}
func (*For) stmtNode()           {}
func (*Foreach) stmtNode()       {}
func (*Switch) stmtNode()        {}
func (*Break) stmtNode()         {}
func (*Continue) stmtNode()      {}
func (*Return) stmtNode()        {}
func (*Throw) stmtNode()         {}
func (*Try) stmtNode()           {}
func (*Using) stmtNode()         {}
func (*Lock) stmtNode()          {}
func (*Yield) stmtNode()         {}
func (*LocalFunction) stmtNode() {}
func (*Empty) stmtNode()         {}
func (*Goto) stmtNode()          {}
func (*Labeled) stmtNode()       {}
func (*Fixed) stmtNode()         {}
func (*Unsafe) stmtNode()        {}
func (*CheckedBlock) stmtNode()  {}
func (*Preprocessor) stmtNode()  {}

func (*Namespace) declNode()       {}
func (*TypeDecl) declNode()        {}
func (*MethodDecl) declNode()      {}
func (*ConstructorDecl) declNode() {}
func (*FinalizerDecl) declNode()   {}
func (*FieldDecl) declNode()       {}
func (*PropertyDecl) declNode()    {}
func (*EnumMember) declNode()      {}

// prototypes lists one zero value per concrete node type.
func prototypes() []Node {
	return []Node{
		&Literal{}, &Identifier{}, &MemberAccess{}, &Invocation{}, &ObjectCreation{},
		&ArrayCreation{}, &Initializer{}, &ElementAccess{}, &Binary{}, &Unary{},
		&Postfix{}, &Assignment{}, &Conditional{}, &Paren{}, &Cast{}, &This{},
		&BaseAccess{}, &TypeOf{}, &IsType{}, &AsType{}, &Default{}, &Lambda{},
		&InterpolatedString{}, &NameOf{}, &ConditionalAccess{}, &Query{}, &Pattern{},
		&Tuple{}, &CheckedExpr{}, &AddressOf{}, &PointerDeref{}, &StackAlloc{},
		&SizeOf{}, &Await{},
		&PredefinedType{}, &NamedType{}, &ArrayType{}, &NullableType{}, &FuncType{},
		&PointerType{}, &TupleType{},
		&Block{}, &ExprStmt{}, &LocalDecl{}, &If{}, &While{}, &Do{}, &For{}, &Foreach{},
		&Switch{}, &Break{}, &Continue{}, &Return{}, &Throw{}, &Try{}, &Using{}, &Lock{},
		&Yield{}, &LocalFunction{}, &Empty{}, &Goto{}, &Labeled{}, &Fixed{}, &Unsafe{},
		&CheckedBlock{}, &Preprocessor{},
		&File{}, &Namespace{}, &TypeDecl{}, &MethodDecl{}, &ConstructorDecl{},
		&FinalizerDecl{}, &FieldDecl{}, &PropertyDecl{}, &EnumMember{},
	}
}

// New returns a zero node of the given kind, or nil for an invalid kind.
func New(k Kind) Node {
	for _, p := range prototypes() {
		if p.Kind() == k {
			return p
		}
	}
	return nil
}
