package syntax

// Parser reads the top level forms of a source file
type Parser struct {
	sc   *Scanner
	file string

	tok *Token
}

// NewParser creates a parser over src
func NewParser(file, src string) *Parser {
	return &Parser{sc: NewScanner(file, src), file: file}
}

// Parse reads source text into its top level forms
func Parse(file, src string) ([]ASTNode, error) {
	return NewParser(file, src).ParseAll()
}

func (p *Parser) next() error {
	tok, err := p.sc.ReadToken()
	if err != nil {
		return err
	}

	p.tok = tok
	return nil
}

func (p *Parser) position() Position {
	return Position{File: p.file, Line: p.tok.Line, Col: p.tok.Col}
}

// ParseAll reads every remaining form
func (p *Parser) ParseAll() ([]ASTNode, error) {
	if err := p.next(); err != nil {
		return nil, err
	}

	var forms []ASTNode
	for p.tok.Kind != EOF {
		form, err := p.parseForm()
		if err != nil {
			return nil, err
		}

		forms = append(forms, form)
	}

	return forms, nil
}

// parseForm reads one form starting at the current token and leaves the
// parser on the token after it
func (p *Parser) parseForm() (ASTNode, error) {
	switch p.tok.Kind {
	case LPAREN:
		list := &ASTList{Start: p.position()}
		if err := p.next(); err != nil {
			return nil, err
		}

		for p.tok.Kind != RPAREN {
			if p.tok.Kind == EOF {
				return nil, &Error{Pos: list.Start, Message: "unclosed `(`", Incomplete: true}
			}

			item, err := p.parseForm()
			if err != nil {
				return nil, err
			}
			list.Content = append(list.Content, item)
		}

		list.End = p.position()
		return list, p.next()
	case RPAREN:
		return nil, &Error{Pos: p.position(), Message: "unexpected `)`"}
	default:
		leaf := &ASTLeaf{Token: *p.tok, File: p.file}
		return leaf, p.next()
	}
}
