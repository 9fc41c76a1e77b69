package sem

import (
	"errors"
	"testing"

	"mu/gc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassAtomicity(t *testing.T) {
	ctx := newTestContext()

	point := NewClass("Point")
	_, err := point.AddMember("x", ctx.Int)
	require.NoError(t, err)
	_, err = point.AddMember("y", ctx.Double)
	require.NoError(t, err)
	assert.True(t, point.IsAtomic())

	label := NewClass("Label", point)
	assert.True(t, label.IsAtomic())
	_, err = label.AddMember("text", ctx.String)
	require.NoError(t, err)
	assert.False(t, label.IsAtomic())

	_, err = point.AddMember("x", ctx.Int)
	assert.Error(t, err)
}

func TestClassFreeze(t *testing.T) {
	ctx := newTestContext()

	base := NewClass("Media")
	_, err := base.AddMember("title", ctx.String)
	require.NoError(t, err)

	movie := NewClass("Movie", base)
	runtime, err := movie.AddMember("minutes", ctx.Int)
	require.NoError(t, err)

	require.NoError(t, movie.Freeze())
	assert.True(t, base.IsFrozen())
	assert.True(t, movie.IsFrozen())

	require.Len(t, movie.Fields(), 2)
	assert.Equal(t, "title", movie.Fields()[0].Name())
	assert.Equal(t, 1, runtime.Index())
	assert.Same(t, runtime, movie.Field("minutes"))

	_, err = movie.AddMember("rating", ctx.Int)
	assert.True(t, errors.Is(err, ErrFrozen))

	d, ok := movie.InheritanceDepth(base)
	assert.True(t, ok)
	assert.Equal(t, 1, d)
	assert.True(t, movie.IsA(base))
	assert.False(t, base.IsA(movie))
}

func TestNewObjectUsesAtomicAllocation(t *testing.T) {
	collector := gc.NewCollector(0)
	ctx := NewContext(collector, 0)
	stat := collector.PushStat()

	point := NewClass("Point")
	_, err := point.AddMember("x", ctx.Int)
	require.NoError(t, err)

	named := NewClass("Named")
	_, err = named.AddMember("name", ctx.String)
	require.NoError(t, err)

	p, err := ctx.NewObject(point)
	require.NoError(t, err)
	assert.True(t, p.Block().Atomic())
	assert.Equal(t, int64(0), p.Fields[0].Int())

	n, err := ctx.NewObject(named)
	require.NoError(t, err)
	assert.False(t, n.Block().Atomic())
	assert.Equal(t, "", n.Fields[0].Str())

	assert.Equal(t, 1, stat.Counts()["allocate-atomic"])
	assert.Equal(t, 1, stat.Counts()["allocate"])

	// both classes were frozen by their first instantiation
	assert.True(t, point.IsFrozen())
	assert.True(t, named.IsFrozen())
}

func TestObjectsReachableThroughFieldsSurvive(t *testing.T) {
	collector := gc.NewCollector(0)
	ctx := NewContext(collector, 0)

	node := NewClass("Node")
	_, err := node.AddMember("next", node)
	require.NoError(t, err)

	head, err := ctx.NewObject(node)
	require.NoError(t, err)
	tail, err := ctx.NewObject(node)
	require.NoError(t, err)
	lost, err := ctx.NewObject(node)
	require.NoError(t, err)

	head.Fields[0] = PointerValue(node, tail)
	collector.AddRoot(head.Block())

	assert.Equal(t, 1, collector.Collect())
	assert.False(t, tail.Block().Released())
	assert.True(t, lost.Block().Released())
}

func TestVariantGetWrongTag(t *testing.T) {
	ctx := newTestContext()

	rating := NewVariantType("Rating")
	stars, err := rating.AddTag("Stars", ctx.Int)
	require.NoError(t, err)
	unrated, err := rating.AddTag("Unrated", nil)
	require.NoError(t, err)
	require.NoError(t, ctx.AddSymbol(nil, rating))
	require.NoError(t, ctx.AddVariantConstructors(rating))
	assert.True(t, rating.IsAtomic())

	v, err := ctx.NewVariant(stars, IntValue(ctx.Int, 4))
	require.NoError(t, err)
	assert.Same(t, rating, v.Type())
	assert.Equal(t, "Stars(4)", v.String())

	inst := v.Pointer().(*VariantInstance)
	payload, err := inst.Get(stars)
	require.NoError(t, err)
	assert.Equal(t, int64(4), payload.Int())

	_, err = inst.Get(unrated)
	assert.ErrorIs(t, err, ErrBadCast)

	_, err = ctx.NewVariant(stars, PointerValue(ctx.String, "four"))
	assert.ErrorIs(t, err, ErrBadCast)

	ctors := ctx.Constructors(stars)
	require.Len(t, ctors, 1)
	assert.True(t, ctors[0].IsGenerated())
	assert.Same(t, stars, ctx.FindType("Rating.Stars"))
}

func TestDefaultConstructor(t *testing.T) {
	ctx := newTestContext()

	review := NewClass("Review")
	_, err := review.AddMember("title", ctx.String)
	require.NoError(t, err)
	_, err = review.AddMember("stars", ctx.Int)
	require.NoError(t, err)
	require.NoError(t, ctx.AddSymbol(nil, review))

	ctor, err := ctx.AddDefaultConstructor(review)
	require.NoError(t, err)
	assert.Equal(t, 0, ctor.MinimumArgs())
	assert.Equal(t, 2, ctor.MaximumArgs())
	assert.Same(t, review, ctor.ReturnType())
	assert.Equal(t, []*Function{ctor}, ctx.Constructors(review))
}

func TestValueFormatting(t *testing.T) {
	ctx := newTestContext()

	assert.Equal(t, "42", IntValue(ctx.Int, 42).String())
	assert.Equal(t, "true", BoolValue(ctx.Bool, true).String())
	assert.Equal(t, "x", IntValue(ctx.Char, 'x').String())
	assert.Equal(t, "1.5", FloatValue(ctx.Double, 1.5).String())
	assert.Equal(t, "hi", PointerValue(ctx.String, "hi").String())
	assert.Equal(t, "(no value)", NoValue.String())

	assert.Panics(t, func() { IntValue(ctx.String, 1) })

	assert.True(t, PointerValue(ctx.String, "a").Equal(PointerValue(ctx.String, "a")))
	assert.False(t, IntValue(ctx.Int, 1).Equal(IntValue(ctx.Int64, 1)))
}
