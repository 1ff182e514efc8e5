package syntax

import "fmt"

func parseEnum[T ~int](names []string, text []byte, what string) (T, error) {
	s := string(text)
	for i, name := range names {
		if name == s {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}

func enumName[T ~int](names []string, v T, what string) string {
	if int(v) >= 0 && int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", what, int(v))
}

// Operator is a unary, binary or assignment operator. Unary nodes reuse
// OpSub and OpAdd for negation and identity.
type Operator int

const (
	OpInvalid Operator = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpLogAnd
	OpLogOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpCoalesce
	OpNot
	OpComplement
	OpInc
	OpDec
	OpAssign
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpRemAssign
	OpAndAssign
	OpOrAssign
	OpXorAssign
	OpShlAssign
	OpShrAssign
	OpCoalesceAssign
	operatorCount
)

var operatorNames = []string{
	"", "+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>", "&&", "||",
	"==", "!=", "<", "<=", ">", ">=", "??", "!", "~", "++", "--",
	"=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>=", "??=",
}

func (op Operator) String() string { return enumName(operatorNames, op, "Operator") }

func (op *Operator) UnmarshalText(text []byte) (err error) {
	*op, err = parseEnum[Operator](operatorNames, text, "operator")
	return err
}

func (op Operator) MarshalText() ([]byte, error) { return []byte(op.String()), nil }

// Operators returns every valid operator.
func Operators() []Operator {
	ops := make([]Operator, 0, operatorCount-1)
	for op := OpAdd; op < operatorCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// IsCompound reports whether op is an assignment that also computes.
func (op Operator) IsCompound() bool { return op > OpAssign && op < operatorCount }

// Compound returns the binary operator behind a compound assignment.
func (op Operator) Compound() Operator {
	switch op {
	case OpAddAssign:
		return OpAdd
	case OpSubAssign:
		return OpSub
	case OpMulAssign:
		return OpMul
	case OpDivAssign:
		return OpDiv
	case OpRemAssign:
		return OpRem
	case OpAndAssign:
		return OpAnd
	case OpOrAssign:
		return OpOr
	case OpXorAssign:
		return OpXor
	case OpShlAssign:
		return OpShl
	case OpShrAssign:
		return OpShr
	case OpCoalesceAssign:
		return OpCoalesce
	}
	return OpInvalid
}

// RefKind is the by-reference direction of a parameter or argument.
type RefKind int

const (
	RefNone RefKind = iota
	RefIn
	RefOut
	RefInOut
)

var refKindNames = []string{"", "in", "out", "ref"}

func (r RefKind) String() string { return enumName(refKindNames, r, "RefKind") }

func (r *RefKind) UnmarshalText(text []byte) (err error) {
	*r, err = parseEnum[RefKind](refKindNames, text, "ref kind")
	return err
}

func (r RefKind) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Accessibility of a declaration. AccessNone means the source left it implicit.
type Accessibility int

const (
	AccessNone Accessibility = iota
	AccessPrivate
	AccessProtected
	AccessInternal
	AccessProtectedInternal
	AccessPublic
)

var accessNames = []string{"", "private", "protected", "internal", "protected internal", "public"}

func (a Accessibility) String() string { return enumName(accessNames, a, "Accessibility") }

func (a *Accessibility) UnmarshalText(text []byte) (err error) {
	*a, err = parseEnum[Accessibility](accessNames, text, "accessibility")
	return err
}

func (a Accessibility) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// IsExported reports whether the declaration is visible outside its assembly.
func (a Accessibility) IsExported() bool {
	return a == AccessPublic || a == AccessProtected || a == AccessProtectedInternal
}

// TypeKind distinguishes the flavours of type declarations.
type TypeKind int

const (
	TypeClass TypeKind = iota
	TypeStruct
	TypeInterface
	TypeEnum
	TypeDelegate
	TypeModule
)

var typeKindNames = []string{"class", "struct", "interface", "enum", "delegate", "module"}

func (k TypeKind) String() string { return enumName(typeKindNames, k, "TypeKind") }

func (k *TypeKind) UnmarshalText(text []byte) (err error) {
	*k, err = parseEnum[TypeKind](typeKindNames, text, "type kind")
	return err
}

func (k TypeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// LiteralKind is the lexical category of a literal.
type LiteralKind int

const (
	LitNull LiteralKind = iota
	LitBool
	LitInt
	LitLong
	LitUInt
	LitULong
	LitFloat
	LitDouble
	LitDecimal
	LitChar
	LitString
)

var literalKindNames = []string{"null", "bool", "int", "long", "uint", "ulong", "float", "double", "decimal", "char", "string"}

func (k LiteralKind) String() string { return enumName(literalKindNames, k, "LiteralKind") }

func (k *LiteralKind) UnmarshalText(text []byte) (err error) {
	*k, err = parseEnum[LiteralKind](literalKindNames, text, "literal kind")
	return err
}

func (k LiteralKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// SymbolKind classifies symbols.
type SymbolKind int

const (
	SymInvalid SymbolKind = iota
	SymNamespace
	SymType
	SymTypeParameter
	SymMethod
	SymConstructor
	SymFinalizer
	SymField
	SymProperty
	SymEnumMember
	SymParameter
	SymLocal
	SymLocalFunction
)

var symbolKindNames = []string{
	"invalid", "namespace", "type", "type parameter", "method", "constructor", "finalizer",
	"field", "property", "enum member", "parameter", "local", "local function",
}

func (k SymbolKind) String() string { return enumName(symbolKindNames, k, "SymbolKind") }

// IsVariable reports whether symbols of this kind hold a value.
func (k SymbolKind) IsVariable() bool {
	switch k {
	case SymField, SymProperty, SymParameter, SymLocal, SymEnumMember:
		return true
	}
	return false
}

// IsMember reports whether symbols of this kind are declared by a type.
func (k SymbolKind) IsMember() bool {
	switch k {
	case SymMethod, SymConstructor, SymFinalizer, SymField, SymProperty, SymEnumMember:
		return true
	}
	return false
}
