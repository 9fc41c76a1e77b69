package syntax

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Scanner splits source text into tokens.  `;` starts a comment running to
// the end of the line.
type Scanner struct {
	file  string
	input []rune
	pos   int

	line int
	col  int
}

// NewScanner creates a scanner over src.  file is only used in positions.
func NewScanner(file, src string) *Scanner {
	return &Scanner{file: file, input: []rune(src), line: 1, col: 1}
}

// IsDelimiter tests if a rune ends a symbol or number
func IsDelimiter(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' || r == ';'
}

func (s *Scanner) peek() (rune, bool) {
	if s.pos >= len(s.input) {
		return 0, false
	}

	return s.input[s.pos], true
}

func (s *Scanner) readNext() (rune, bool) {
	r, ok := s.peek()
	if !ok {
		return 0, false
	}

	s.pos++
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}

	return r, true
}

func (s *Scanner) position(line, col int) Position {
	return Position{File: s.file, Line: line, Col: col}
}

func (s *Scanner) errorAt(line, col int, format string, args ...interface{}) error {
	return &Error{Pos: s.position(line, col), Message: fmt.Sprintf(format, args...)}
}

// skipWhitespace discards spaces and comments
func (s *Scanner) skipWhitespace() {
	for {
		r, ok := s.peek()
		switch {
		case !ok:
			return
		case r == ';':
			for r, ok := s.peek(); ok && r != '\n'; r, ok = s.peek() {
				s.readNext()
			}
		// BOM and other non-meaningful characters are ignored
		case unicode.IsSpace(r) || r == 65279:
			s.readNext()
		default:
			return
		}
	}
}

// ReadToken reads a single token from the stream.  At the end of the input it
// returns an EOF token.
func (s *Scanner) ReadToken() (*Token, error) {
	s.skipWhitespace()

	line, col := s.line, s.col
	r, ok := s.readNext()
	if !ok {
		return &Token{Kind: EOF, Line: line, Col: col}, nil
	}

	switch r {
	case '(':
		return &Token{Kind: LPAREN, Value: "(", Line: line, Col: col}, nil
	case ')':
		return &Token{Kind: RPAREN, Value: ")", Line: line, Col: col}, nil
	case '"':
		return s.readStringLiteral(line, col)
	case '#':
		if next, ok := s.peek(); ok && next == '\\' {
			s.readNext()
			return s.readCharLiteral(line, col)
		}
	}

	sb := strings.Builder{}
	sb.WriteRune(r)
	for next, ok := s.peek(); ok && !IsDelimiter(next); next, ok = s.peek() {
		s.readNext()
		sb.WriteRune(next)
	}

	text := sb.String()
	return &Token{Kind: classifyAtom(text), Value: text, Line: line, Col: col}, nil
}

// classifyAtom decides whether a run of non-delimiters is a number
func classifyAtom(text string) int {
	if _, err := strconv.ParseInt(text, 0, 64); err == nil {
		return INTLIT
	}

	if _, _, err := ParseFloat(text); err == nil {
		// `inf` and `nan` are symbols
		first := text[0]
		if first == '-' || first == '+' {
			if len(text) == 1 {
				return SYMBOL
			}
			first = text[1]
		}

		if first >= '0' && first <= '9' || first == '.' {
			return FLOATLIT
		}
	}

	return SYMBOL
}

// ParseFloat parses a float literal.  Literals are `float` unless suffixed
// with `d`; an `f` suffix is accepted for symmetry.
func ParseFloat(text string) (float64, bool, error) {
	double := false
	switch {
	case strings.HasSuffix(text, "d"):
		text, double = text[:len(text)-1], true
	case strings.HasSuffix(text, "f"):
		text = text[:len(text)-1]
	}

	x, err := strconv.ParseFloat(text, 64)
	return x, double, err
}

// readStringLiteral reads a string after its opening quote.  Escapes follow
// Go's rules.
func (s *Scanner) readStringLiteral(line, col int) (*Token, error) {
	sb := strings.Builder{}
	sb.WriteRune('"')

	for {
		r, ok := s.readNext()
		if !ok {
			err := s.errorAt(line, col, "unterminated string literal").(*Error)
			err.Incomplete = true
			return nil, err
		}

		if r == '\n' {
			sb.WriteString(`\n`)
			continue
		}

		sb.WriteRune(r)
		if r == '\\' {
			if esc, ok := s.readNext(); ok {
				sb.WriteRune(esc)
			}
			continue
		}

		if r == '"' {
			break
		}
	}

	value, err := strconv.Unquote(sb.String())
	if err != nil {
		return nil, s.errorAt(line, col, "malformed string literal %s", sb.String())
	}

	return &Token{Kind: STRINGLIT, Value: value, Line: line, Col: col}, nil
}

// readCharLiteral reads a `#\c` character literal after the `#\`.  Named
// characters `space`, `newline` and `tab` are accepted.
func (s *Scanner) readCharLiteral(line, col int) (*Token, error) {
	sb := strings.Builder{}
	if r, ok := s.readNext(); ok {
		sb.WriteRune(r)
	}

	for next, ok := s.peek(); ok && !IsDelimiter(next); next, ok = s.peek() {
		s.readNext()
		sb.WriteRune(next)
	}

	text := sb.String()
	switch text {
	case "space":
		text = " "
	case "newline":
		text = "\n"
	case "tab":
		text = "\t"
	}

	if len([]rune(text)) != 1 {
		return nil, s.errorAt(line, col, "malformed char literal `#\\%s`", text)
	}

	return &Token{Kind: CHARLIT, Value: text, Line: line, Col: col}, nil
}
