package sem

import (
	"errors"
	"testing"

	"mu/gc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() *Context {
	return NewContext(gc.NewCollector(0), 0)
}

func nativeConst(v Value) NativeFunc {
	return func(ev Evaluator, args []Value) (Value, error) {
		return v, nil
	}
}

func TestBuiltinTypesInRoot(t *testing.T) {
	ctx := newTestContext()

	assert.Same(t, ctx.Int, ctx.FindType("int"))
	assert.Same(t, ctx.String, ctx.FindType("string"))
	assert.Equal(t, ProvenanceBuiltin, ctx.Root().Provenance())
	assert.Nil(t, ctx.FindType("review"))
}

func TestAddSymbolConflicts(t *testing.T) {
	ctx := newTestContext()

	media := NewModule("media")
	require.NoError(t, ctx.AddSymbol(nil, media))

	review := NewClass("Review")
	require.NoError(t, ctx.AddSymbol(media, review))

	err := ctx.AddSymbol(media, NewConstant("Review", IntValue(ctx.Int, 1)))
	assert.True(t, errors.Is(err, ErrSymbolConflict))

	score1, err := NewNativeFunction("score", ctx.Int, nativeConst(IntValue(ctx.Int, 1)), FnNone, Param("r", review))
	require.NoError(t, err)
	score2, err := NewNativeFunction("score", ctx.Int, nativeConst(IntValue(ctx.Int, 2)), FnNone, Param("r", ctx.Int))
	require.NoError(t, err)

	require.NoError(t, ctx.AddSymbol(media, score1))
	require.NoError(t, ctx.AddSymbol(media, score2))

	// a symbol can only be declared once
	assert.Error(t, ctx.AddSymbol(nil, score1))

	assert.Equal(t, "media.score", score1.QualifiedName())
	assert.Equal(t, "media.Review", review.QualifiedName())
}

func TestQualifiedLookup(t *testing.T) {
	ctx := newTestContext()

	media := NewModule("media")
	require.NoError(t, ctx.AddSymbol(nil, media))
	review := NewClass("Review")
	require.NoError(t, ctx.AddSymbol(media, review))

	rating := NewConstant("maxRating", IntValue(ctx.Int, 5))
	require.NoError(t, ctx.AddSymbol(media, rating))

	assert.Same(t, review, ctx.FindSymbolByQualifiedName("media.Review", false))
	assert.Same(t, rating, ctx.FindConstant("media.maxRating"))
	assert.Same(t, media, ctx.FindModule("media"))
	assert.Nil(t, ctx.FindSymbolByQualifiedName("media.Missing", false))
	assert.Nil(t, ctx.FindSymbolByQualifiedName("", false))

	fn, err := NewFunction("rate", ctx.Int, FnNone)
	require.NoError(t, err)
	require.NoError(t, ctx.AddSymbol(media, fn))

	// lookups from inside a function see the enclosing module and the root
	assert.Same(t, review, ctx.Lookup(fn, "Review", false))
	assert.Same(t, ctx.Int, ctx.Lookup(fn, "int", false))

	cl, ok := FindSymbolOfType[*Class](ctx, "media.Review")
	assert.True(t, ok)
	assert.Same(t, review, cl)

	_, ok = FindSymbolOfType[*Function](ctx, "media.Review")
	assert.False(t, ok)
}

func TestSearchableLookup(t *testing.T) {
	ctx := newTestContext()

	hidden := NewModule("hidden")
	hidden.SetSearchable(false)
	require.NoError(t, ctx.AddSymbol(nil, hidden))

	secret := NewConstant("secret", IntValue(ctx.Int, 42))
	require.NoError(t, ctx.AddSymbol(hidden, secret))

	assert.Same(t, secret, ctx.FindSymbolByQualifiedName("hidden.secret", false))
	assert.Nil(t, ctx.FindSymbolByQualifiedName("hidden.secret", true))
	assert.Nil(t, ctx.FindSymbolByQualifiedName("hidden", true))
}

func TestOverloadsNewestFirst(t *testing.T) {
	ctx := newTestContext()

	first, err := NewNativeFunction("describe", ctx.String, nil, FnNone, Param("x", ctx.Int))
	require.NoError(t, err)
	require.NoError(t, ctx.AddSymbol(nil, first))

	// warm the cache so the next insertion has to invalidate it
	assert.Len(t, ctx.LookupAll(nil, "describe", false), 1)

	second, err := NewNativeFunction("describe", ctx.String, nil, FnNone, Param("x", ctx.Double))
	require.NoError(t, err)
	require.NoError(t, ctx.AddSymbol(nil, second))

	all := ctx.LookupAll(nil, "describe", false)
	require.Len(t, all, 2)
	assert.Same(t, second, all[0])
	assert.Same(t, first, all[1])
}

func TestFindFunctionsShadowsOuterSignatures(t *testing.T) {
	ctx := newTestContext()

	outer, err := NewNativeFunction("show", ctx.Void, nil, FnNone, Param("x", ctx.Int))
	require.NoError(t, err)
	require.NoError(t, ctx.AddSymbol(nil, outer))

	media := NewModule("media")
	require.NoError(t, ctx.AddSymbol(nil, media))

	inner, err := NewNativeFunction("show", ctx.Void, nil, FnNone, Param("x", ctx.Int))
	require.NoError(t, err)
	require.NoError(t, ctx.AddSymbol(media, inner))

	other, err := NewNativeFunction("show", ctx.Void, nil, FnNone, Param("x", ctx.String))
	require.NoError(t, err)
	require.NoError(t, ctx.AddSymbol(nil, other))

	fns := ctx.FindFunctions(media, "show")
	require.Len(t, fns, 2)
	assert.Same(t, inner, fns[0])
	assert.Same(t, other, fns[1])
}

func TestFindTypeComposite(t *testing.T) {
	ctx := newTestContext()

	ref := ctx.FindType("int&")
	require.NotNil(t, ref)
	assert.Same(t, ctx.ReferenceTypeOf(ctx.Int), ref)

	dyn := ctx.FindType("string[]")
	require.IsType(t, &DynamicArrayType{}, dyn)
	assert.Equal(t, 1, dyn.(ArrayType).Rank())
	assert.Same(t, dyn, ctx.FindType("string[]"))

	fixed := ctx.FindType("double[2,3]")
	require.IsType(t, &FixedArrayType{}, fixed)
	assert.Equal(t, []int{2, 3}, fixed.(ArrayType).Dimensions())
	assert.Equal(t, 6, fixed.(*FixedArrayType).Len())

	fn := ctx.FindType("(int;string,double[])")
	require.IsType(t, &FunctionType{}, fn)
	ft := fn.(*FunctionType)
	assert.Same(t, ctx.Int, ft.ReturnType())
	assert.Equal(t, []Type{ctx.String, ctx.FindType("double[]")}, ft.ArgTypes())

	assert.Nil(t, ctx.FindType("int[2,]"))
	assert.Nil(t, ctx.FindType("nothing[]"))
}

func TestArrayOfRejectsMixedDimensions(t *testing.T) {
	ctx := newTestContext()

	_, err := ctx.ArrayOf(ctx.Int, []int{3, 0})
	assert.ErrorIs(t, err, ErrMixedArrayDimensions)

	at, err := ctx.ArrayOf(ctx.Int, []int{0, 0})
	require.NoError(t, err)
	assert.Equal(t, "int[,]", at.Name())
	assert.True(t, at.IsAtomic())

	at, err = ctx.ArrayOf(ctx.String, []int{4})
	require.NoError(t, err)
	assert.False(t, at.IsAtomic())
}

func TestDiscardModule(t *testing.T) {
	ctx := newTestContext()

	broken := NewModule("geo")
	require.NoError(t, ctx.AddSymbol(nil, broken))
	require.NoError(t, ctx.AddSymbol(broken, NewClass("Point")))
	require.NotNil(t, ctx.FindType("geo.Point"))

	assert.True(t, ctx.DiscardModule(broken))
	assert.False(t, ctx.DiscardModule(broken))
	assert.Nil(t, ctx.FindModule("geo"))
	assert.Nil(t, ctx.FindType("geo.Point"))

	fresh := NewModule("geo")
	require.NoError(t, ctx.AddSymbol(nil, fresh))
	assert.Same(t, fresh, ctx.FindModule("geo"))
}
