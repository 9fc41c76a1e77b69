package syntax

import (
	"strconv"
	"strings"
)

// ASTNode represents one form read from source: either a leaf or a list
type ASTNode interface {
	// Position is where the form starts
	Position() Position

	String() string
}

// ASTLeaf is simply a token in the AST (at the end of branch)
type ASTLeaf struct {
	Token
	File string
}

func (a *ASTLeaf) Position() Position {
	return Position{File: a.File, Line: a.Line, Col: a.Col}
}

// IsSymbol reports whether the leaf is the symbol name
func (a *ASTLeaf) IsSymbol(name string) bool {
	return a.Kind == SYMBOL && a.Value == name
}

func (a *ASTLeaf) String() string {
	switch a.Kind {
	case STRINGLIT:
		return strconv.Quote(a.Value)
	case CHARLIT:
		return `#\` + a.Value
	default:
		return a.Value
	}
}

// ASTList is a parenthesized list of forms
type ASTList struct {
	Content []ASTNode

	Start Position
	End   Position
}

func (a *ASTList) Position() Position {
	return a.Start
}

// Len returns the length of the list's content
func (a *ASTList) Len() int {
	return len(a.Content)
}

// Head returns the symbol the list starts with or "" if it does not start
// with a symbol
func (a *ASTList) Head() string {
	if len(a.Content) == 0 {
		return ""
	}

	if leaf, ok := a.Content[0].(*ASTLeaf); ok && leaf.Kind == SYMBOL {
		return leaf.Value
	}

	return ""
}

// LeafAt gets the specified element as a leaf, or nil if it is a list
func (a *ASTList) LeafAt(ndx int) *ASTLeaf {
	leaf, _ := a.Content[ndx].(*ASTLeaf)
	return leaf
}

// ListAt gets the specified element as a list, or nil if it is a leaf
func (a *ASTList) ListAt(ndx int) *ASTList {
	list, _ := a.Content[ndx].(*ASTList)
	return list
}

// SymbolAt returns the symbol at ndx and whether there is one
func (a *ASTList) SymbolAt(ndx int) (string, bool) {
	if ndx >= len(a.Content) {
		return "", false
	}

	if leaf := a.LeafAt(ndx); leaf != nil && leaf.Kind == SYMBOL {
		return leaf.Value, true
	}

	return "", false
}

func (a *ASTList) String() string {
	parts := make([]string, len(a.Content))
	for i, item := range a.Content {
		parts[i] = item.String()
	}

	return "(" + strings.Join(parts, " ") + ")"
}
