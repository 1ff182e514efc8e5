package compiler

// TokenType names a leaf token whose spelling differs between targets.
type TokenType int

const (
	TokTrue TokenType = iota
	TokFalse
	TokNull
	TokThis
	TokBase
	// TokVar declares a local with an inferred type.
	TokVar
	// TokLet declares a mutable local on targets without type prefixes.
	TokLet
	TokConst
	TokNew
	TokYieldReturn
	TokYieldBreak
	TokStatementEnd
	TokVoid
	TokThrow
	TokStatic
	TokAbstract
	TokFinal
	TokOverride
	TokVirtual
	tokenCount
)

var tokenNames = [tokenCount]string{
	"true", "false", "null", "this", "base", "var", "let", "const", "new",
	"yield return", "yield break", ";", "void", "throw", "static", "abstract",
	"final", "override", "virtual",
}

func (t TokenType) String() string {
	if t < 0 || t >= tokenCount {
		return "invalid"
	}
	return tokenNames[t]
}

// TokenTable spells every TokenType for one target. Empty entries mean the
// target has no such token.
type TokenTable [tokenCount]string

// csharpTokens is the source dialect spelling the other tables start from.
var csharpTokens = TokenTable{
	TokTrue:         "true",
	TokFalse:        "false",
	TokNull:         "null",
	TokThis:         "this",
	TokBase:         "base",
	TokVar:          "var",
	TokConst:        "const",
	TokNew:          "new",
	TokYieldReturn:  "yield return",
	TokYieldBreak:   "yield break",
	TokStatementEnd: ";",
	TokVoid:         "void",
	TokThrow:        "throw",
	TokStatic:       "static",
	TokAbstract:     "abstract",
	TokFinal:        "sealed",
	TokOverride:     "override",
	TokVirtual:      "virtual",
}

// with returns a copy of t with the given entries replaced.
func (t TokenTable) with(entries map[TokenType]string) TokenTable {
	for k, v := range entries {
		t[k] = v
	}
	return t
}
