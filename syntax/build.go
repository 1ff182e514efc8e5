package syntax

import (
	"strconv"
	"strings"
)

// Constructors for synthesized nodes. Their IDs are zero until stamped by
// an IDAllocator or Number.

func NewIdent(name string, sym SymbolID) *Identifier {
	return &Identifier{Name: name, Sym: sym}
}

func NewMember(x Expr, name string, sym SymbolID) *MemberAccess {
	return &MemberAccess{X: x, Name: name, Sym: sym}
}

func NewCall(fun Expr, args ...Expr) *Invocation {
	inv := &Invocation{Fun: fun}
	for _, a := range args {
		inv.Args = append(inv.Args, &Argument{Value: a})
	}
	return inv
}

func NewIndex(x Expr, index Expr) *ElementAccess {
	return &ElementAccess{X: x, Indices: []Expr{index}}
}

func NewInt(v int) *Literal {
	return &Literal{LitKind: LitInt, Value: strconv.Itoa(v)}
}

func NewString(s string) *Literal {
	return &Literal{LitKind: LitString, Value: s}
}

func NewBool(b bool) *Literal {
	return &Literal{LitKind: LitBool, Value: strconv.FormatBool(b)}
}

func NewNull() *Literal {
	return &Literal{LitKind: LitNull, Value: "null"}
}

func NewAssign(lhs, rhs Expr) *Assignment {
	return &Assignment{Op: OpAssign, Lhs: lhs, Rhs: rhs}
}

func NewBinary(op Operator, x, y Expr) *Binary {
	return &Binary{Op: op, X: x, Y: y}
}

func NewExprStmt(x Expr) *ExprStmt {
	return &ExprStmt{X: x}
}

func NewLocal(name string, sym SymbolID, typ TypeExpr, init Expr) *LocalDecl {
	return &LocalDecl{Type: typ, Vars: []*VarDeclarator{{Name: name, Sym: sym, Init: init}}}
}

func NewReturn(x Expr) *Return {
	return &Return{X: x}
}

func NewBlock(stmts ...Stmt) *Block {
	return &Block{Stmts: stmts}
}

func NewPredefined(name string) *PredefinedType {
	return &PredefinedType{Name: name}
}

// NewArrayOf builds a single-element array holding init, the box form of a
// by-reference variable.
func NewArrayOf(elem TypeExpr, init Expr) *ArrayCreation {
	return &ArrayCreation{Elem: elem, Init: &Initializer{Elems: []Expr{init}}}
}

var predefinedTypes = map[string]bool{
	"bool": true, "byte": true, "sbyte": true, "short": true, "ushort": true,
	"int": true, "uint": true, "long": true, "ulong": true, "float": true,
	"double": true, "decimal": true, "char": true, "string": true, "object": true,
	"void": true, "nint": true, "nuint": true, "dynamic": true,
}

// IsPredefined reports whether name is a keyword type.
func IsPredefined(name string) bool { return predefinedTypes[name] }

// IsVoid reports whether t is absent or the void keyword type.
func IsVoid(t TypeExpr) bool {
	if IsNil(t) {
		return true
	}
	p, ok := t.(*PredefinedType)
	return ok && p.Name == "void"
}

// ParseType parses the textual form of a type reference: keyword and dotted
// names, generic arguments, array ranks, nullable and pointer suffixes.
func ParseType(s string) TypeExpr {
	p := &typeParser{s: strings.TrimSpace(s)}
	return p.parse()
}

type typeParser struct {
	s   string
	pos int
}

func (p *typeParser) parse() TypeExpr {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && (isIdentChar(p.s[p.pos]) || p.s[p.pos] == '.') {
		p.pos++
	}
	name := p.s[start:p.pos]
	var t TypeExpr
	if IsPredefined(name) {
		t = &PredefinedType{Name: name}
	} else {
		nt := &NamedType{Name: name}
		p.skipSpace()
		if p.peek() == '<' {
			p.pos++
			for {
				nt.Args = append(nt.Args, p.parse())
				p.skipSpace()
				if p.peek() == ',' {
					p.pos++
					continue
				}
				break
			}
			if p.peek() == '>' {
				p.pos++
			}
		}
		t = nt
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '?':
			p.pos++
			t = &NullableType{Elem: t}
		case '*':
			p.pos++
			t = &PointerType{Elem: t}
		case '[':
			rank := 1
			p.pos++
			for p.pos < len(p.s) && p.s[p.pos] != ']' {
				if p.s[p.pos] == ',' {
					rank++
				}
				p.pos++
			}
			p.pos++
			t = &ArrayType{Elem: t, Rank: rank}
		default:
			return t
		}
	}
}

func (p *typeParser) peek() byte {
	if p.pos < len(p.s) {
		return p.s[p.pos]
	}
	return 0
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// TypeString renders a type reference in source form.
func TypeString(t TypeExpr) string {
	switch t := t.(type) {
	case nil:
		return "void"
	case *PredefinedType:
		return t.Name
	case *NamedType:
		if len(t.Args) == 0 {
			return t.Name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = TypeString(a)
		}
		return t.Name + "<" + strings.Join(args, ", ") + ">"
	case *ArrayType:
		rank := t.Rank
		if rank < 1 {
			rank = 1
		}
		return TypeString(t.Elem) + "[" + strings.Repeat(",", rank-1) + "]"
	case *NullableType:
		return TypeString(t.Elem) + "?"
	case *PointerType:
		return TypeString(t.Elem) + "*"
	case *TupleType:
		elems := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = TypeString(e)
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case *FuncType:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = TypeString(p)
		}
		return "(" + strings.Join(params, ", ") + ") => " + TypeString(t.Result)
	}
	return "?"
}
