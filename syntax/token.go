package syntax

import "fmt"

// Token represents a token read in by the scanner
type Token struct {
	Kind  int
	Value string

	// Line is line number starting at 1
	Line int

	// Col is the column of the first character of the token starting at 1
	Col int
}

// The various kinds of a tokens supported by the scanner
const (
	LPAREN = iota
	RPAREN

	// SYMBOL covers identifiers, operators and keywords: the reader does not
	// distinguish them
	SYMBOL

	INTLIT
	FLOATLIT
	STRINGLIT
	CHARLIT

	EOF
)

var tokenNames = map[int]string{
	LPAREN:    "`(`",
	RPAREN:    "`)`",
	SYMBOL:    "symbol",
	INTLIT:    "integer literal",
	FLOATLIT:  "float literal",
	STRINGLIT: "string literal",
	CHARLIT:   "char literal",
	EOF:       "end of file",
}

// TokenName returns a user facing name for a token kind
func TokenName(kind int) string {
	return tokenNames[kind]
}

// Position is a location in a source file
type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}

	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Error is a malformed token or form in a source file
type Error struct {
	Pos     Position
	Message string

	// Incomplete is set when the input ended inside a form or string
	Incomplete bool
}

func (e *Error) Error() string {
	return e.Pos.String() + ": " + e.Message
}
