package syntax

import "fmt"

// Kind identifies the syntactic category of a node.
type Kind int

const (
	KindInvalid Kind = iota

	// Expressions
	KindLiteral
	KindIdentifier
	KindMemberAccess
	KindInvocation
	KindObjectCreation
	KindArrayCreation
	KindInitializer
	KindElementAccess
	KindBinary
	KindUnary
	KindPostfix
	KindAssignment
	KindConditional
	KindParen
	KindCast
	KindThis
	KindBaseAccess
	KindTypeOf
	KindIsType
	KindAsType
	KindDefault
	KindLambda
	KindInterpolatedString
	KindNameOf
	KindConditionalAccess
	KindQuery
	KindPattern
	KindTuple
	KindCheckedExpr
	KindAddressOf
	KindPointerDeref
	KindStackAlloc
	KindSizeOf
	KindAwait

	// Type references
	KindPredefinedType
	KindNamedType
	KindArrayType
	KindNullableType
	KindFuncType
	KindPointerType
	KindTupleType

	// Statements
	KindBlock
	KindExprStmt
	KindLocalDecl
	KindIf
	KindWhile
	KindDo
	KindFor
	KindForeach
	KindSwitch
	KindBreak
	KindContinue
	KindReturn
	KindThrow
	KindTry
	KindUsing
	KindLock
	KindYield
	KindLocalFunction
	KindEmpty
	KindGoto
	KindLabeled
	KindFixed
	KindUnsafe
	KindCheckedBlock
	KindPreprocessor

	// Declarations
	KindFile
	KindNamespace
	KindTypeDecl
	KindMethod
	KindConstructor
	KindFinalizer
	KindField
	KindProperty
	KindEnumMember

	kindCount
)

var kindNames = [...]string{
	KindInvalid:            "Invalid",
	KindLiteral:            "Literal",
	KindIdentifier:         "Identifier",
	KindMemberAccess:       "MemberAccess",
	KindInvocation:         "Invocation",
	KindObjectCreation:     "ObjectCreation",
	KindArrayCreation:      "ArrayCreation",
	KindInitializer:        "Initializer",
	KindElementAccess:      "ElementAccess",
	KindBinary:             "Binary",
	KindUnary:              "Unary",
	KindPostfix:            "Postfix",
	KindAssignment:         "Assignment",
	KindConditional:        "Conditional",
	KindParen:              "Paren",
	KindCast:               "Cast",
	KindThis:               "This",
	KindBaseAccess:         "BaseAccess",
	KindTypeOf:             "TypeOf",
	KindIsType:             "IsType",
	KindAsType:             "AsType",
	KindDefault:            "Default",
	KindLambda:             "Lambda",
	KindInterpolatedString: "InterpolatedString",
	KindNameOf:             "NameOf",
	KindConditionalAccess:  "ConditionalAccess",
	KindQuery:              "Query",
	KindPattern:            "Pattern",
	KindTuple:              "Tuple",
	KindCheckedExpr:        "CheckedExpr",
	KindAddressOf:          "AddressOf",
	KindPointerDeref:       "PointerDeref",
	KindStackAlloc:         "StackAlloc",
	KindSizeOf:             "SizeOf",
	KindAwait:              "Await",
	KindPredefinedType:     "PredefinedType",
	KindNamedType:          "NamedType",
	KindArrayType:          "ArrayType",
	KindNullableType:       "NullableType",
	KindFuncType:           "FuncType",
	KindPointerType:        "PointerType",
	KindTupleType:          "TupleType",
	KindBlock:              "Block",
	KindExprStmt:           "ExprStmt",
	KindLocalDecl:          "LocalDecl",
	KindIf:                 "If",
	KindWhile:              "While",
	KindDo:                 "Do",
	KindFor:                "For",
	KindForeach:            "Foreach",
	KindSwitch:             "Switch",
	KindBreak:              "Break",
	KindContinue:           "Continue",
	KindReturn:             "Return",
	KindThrow:              "Throw",
	KindTry:                "Try",
	KindUsing:              "Using",
	KindLock:               "Lock",
	KindYield:              "Yield",
	KindLocalFunction:      "LocalFunction",
	KindEmpty:              "Empty",
	KindGoto:               "Goto",
	KindLabeled:            "Labeled",
	KindFixed:              "Fixed",
	KindUnsafe:             "Unsafe",
	KindCheckedBlock:       "CheckedBlock",
	KindPreprocessor:       "Preprocessor",
	KindFile:               "File",
	KindNamespace:          "Namespace",
	KindTypeDecl:           "TypeDecl",
	KindMethod:             "Method",
	KindConstructor:        "Constructor",
	KindFinalizer:          "Finalizer",
	KindField:              "Field",
	KindProperty:           "Property",
	KindEnumMember:         "EnumMember",
}

func (k Kind) String() string {
	if k >= 0 && k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)
	for k := KindLiteral; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) IsExpr() bool { return k >= KindLiteral && k <= KindAwait }
func (k Kind) IsType() bool { return k >= KindPredefinedType && k <= KindTupleType }
func (k Kind) IsStmt() bool { return k >= KindBlock && k <= KindPreprocessor }
func (k Kind) IsDecl() bool { return k >= KindFile && k <= KindEnumMember }
