package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannerTokens(t *testing.T) {
	sc := NewScanner("t.mu", `(defun add ((a int) (b int 5)) int ; sum
  (+ a -2.5f "hi\n" #\x 0x10 int[]))`)

	var kinds []int
	var values []string
	for {
		tok, err := sc.ReadToken()
		require.NoError(t, err)
		if tok.Kind == EOF {
			break
		}
		kinds = append(kinds, tok.Kind)
		values = append(values, tok.Value)
	}

	assert.Equal(t, []string{
		"(", "defun", "add", "(", "(", "a", "int", ")", "(", "b", "int", "5", ")", ")", "int",
		"(", "+", "a", "-2.5f", "hi\n", "x", "0x10", "int[]", ")", ")",
	}, values)
	assert.Equal(t, INTLIT, kinds[11])
	assert.Equal(t, FLOATLIT, kinds[18])
	assert.Equal(t, STRINGLIT, kinds[19])
	assert.Equal(t, CHARLIT, kinds[20])
	assert.Equal(t, INTLIT, kinds[21])
	assert.Equal(t, SYMBOL, kinds[22])
}

func TestClassifyAtom(t *testing.T) {
	assert.Equal(t, INTLIT, classifyAtom("-12"))
	assert.Equal(t, FLOATLIT, classifyAtom("3.0"))
	assert.Equal(t, FLOATLIT, classifyAtom("1e3"))
	assert.Equal(t, SYMBOL, classifyAtom("-"))
	assert.Equal(t, SYMBOL, classifyAtom("inf"))
	assert.Equal(t, SYMBOL, classifyAtom("set!"))
	assert.Equal(t, SYMBOL, classifyAtom("and"))
	assert.Equal(t, FLOATLIT, classifyAtom("2.5d"))
}

func TestParseFloatSuffixes(t *testing.T) {
	x, double, err := ParseFloat("2.5d")
	require.NoError(t, err)
	assert.True(t, double)
	assert.Equal(t, 2.5, x)

	x, double, err = ParseFloat("0.5f")
	require.NoError(t, err)
	assert.False(t, double)
	assert.Equal(t, 0.5, x)

	_, _, err = ParseFloat("d")
	assert.Error(t, err)
}

func TestParsePositions(t *testing.T) {
	forms, err := Parse("review.mu", "(require math)\n\n(print (+ 1 2))")
	require.NoError(t, err)
	require.Len(t, forms, 2)

	first := forms[0].(*ASTList)
	assert.Equal(t, "require", first.Head())
	assert.Equal(t, Position{File: "review.mu", Line: 1, Col: 1}, first.Position())

	second := forms[1].(*ASTList)
	assert.Equal(t, 3, second.Position().Line)
	inner := second.ListAt(1)
	require.NotNil(t, inner)
	assert.Equal(t, Position{File: "review.mu", Line: 3, Col: 8}, inner.Position())
	assert.Equal(t, "(+ 1 2)", inner.String())

	name, ok := inner.SymbolAt(0)
	assert.True(t, ok)
	assert.Equal(t, "+", name)

	_, ok = inner.SymbolAt(1)
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("bad.mu", "(print 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.mu:1:1")

	_, err = Parse("bad.mu", "1)")
	assert.Error(t, err)

	_, err = Parse("bad.mu", `(print "open`)
	assert.Error(t, err)

	_, err = Parse("bad.mu", `#\toolong`)
	assert.Error(t, err)
}

func TestIncompleteInput(t *testing.T) {
	for _, src := range []string{"(defun f ()", `(print "open`} {
		_, err := Parse("console", src)

		var serr *Error
		require.ErrorAs(t, err, &serr, src)
		assert.True(t, serr.Incomplete, src)
	}

	_, err := Parse("console", "1)")
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.False(t, serr.Incomplete)
}
