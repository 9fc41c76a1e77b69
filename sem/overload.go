package sem

import (
	"fmt"
	"strings"
)

// Conversion costs used to rank overload candidates.  Lower is better.
const (
	costExact    = 0
	costUpcast   = 1
	costPattern  = 5
	costCast     = 10
	costLossy    = 100
	maxCastChain = 3
)

// Resolution is the outcome of overload resolution: the chosen function and
// the cast chain converting each argument to its parameter type.
type Resolution struct {
	Function    *Function
	Conversions [][]*Function
	Cost        int
}

// resolveKey identifies a cached resolution
type resolveKey struct {
	candidates string
	args       string
	gen        uint64
}

func makeResolveKey(candidates []*Function, argTypes []Type, gen uint64) resolveKey {
	cs := make([]string, len(candidates))
	for i, f := range candidates {
		cs[i] = fmt.Sprintf("%p", f)
	}

	as := make([]string, len(argTypes))
	for i, t := range argTypes {
		as[i] = fmt.Sprintf("%p", t)
	}

	return resolveKey{candidates: strings.Join(cs, ","), args: strings.Join(as, ","), gen: gen}
}

// ResolveCall finds the functions named name visible from the scope of from
// and resolves a call with the given argument types
func (c *Context) ResolveCall(from Symbol, name string, argTypes []Type) (*Resolution, error) {
	candidates := c.FindFunctions(from, name)
	if len(candidates) == 0 {
		return nil, NewException(ExceptionNoMatchingOverload, "no function named `%s`", name)
	}

	return c.Resolve(candidates, argTypes)
}

// Resolve picks the unique best candidate for a call with argument types
// argTypes.  Candidates are expected most recent first: a candidate with the
// same signature as an earlier one is a shadowed redefinition and is ignored.
// Equal best costs are reported as an ambiguous overload.
func (c *Context) Resolve(candidates []*Function, argTypes []Type) (*Resolution, error) {
	if len(candidates) == 0 {
		return nil, NewException(ExceptionNoMatchingOverload, "no candidate functions")
	}

	key := makeResolveKey(candidates, argTypes, c.Generation())
	if r, ok := c.resolutions.Get(key); ok {
		return r, nil
	}

	var (
		seen    []*Function
		best    []*Resolution
		countOK bool
	)

	for _, f := range candidates {
		if shadowed(seen, f) {
			continue
		}
		seen = append(seen, f)

		n := len(argTypes)
		if n < f.minArgs || n > f.maxArgs {
			continue
		}
		countOK = true

		r, ok := c.rank(f, argTypes)
		if !ok {
			continue
		}

		switch {
		case len(best) == 0 || r.Cost < best[0].Cost:
			best = []*Resolution{r}
		case r.Cost == best[0].Cost:
			best = append(best, r)
		}
	}

	name := candidates[0].QualifiedName()
	switch {
	case !countOK:
		return nil, NewException(ExceptionWrongArgCount, "no overload of `%s` takes %d arguments", name, len(argTypes))
	case len(best) == 0:
		return nil, NewException(ExceptionNoMatchingOverload, "no overload of `%s` matches %s", name, describeArgs(argTypes))
	case len(best) > 1:
		sigs := make([]string, len(best))
		for i, r := range best {
			sigs[i] = r.Function.Signature()
		}
		return nil, NewException(ExceptionAmbiguousOverload, "call to `%s` with %s is ambiguous between %s",
			name, describeArgs(argTypes), strings.Join(sigs, " and "))
	}

	c.resolutions.Add(key, best[0])
	return best[0], nil
}

// rank computes the cost of calling f with the given argument types
func (c *Context) rank(f *Function, argTypes []Type) (*Resolution, bool) {
	r := &Resolution{Function: f, Conversions: make([][]*Function, len(argTypes))}

	for i, at := range argTypes {
		pt := f.ArgType(i)
		if i == 0 && f.Has(FnMemberOperator) && at != pt {
			return nil, false
		}

		cost, chain, ok := c.ConversionCost(at, pt)
		if !ok {
			return nil, false
		}

		r.Cost += cost
		r.Conversions[i] = chain
	}

	return r, true
}

// ConversionCost returns the cost of passing a value of type from where to is
// expected, and the cast functions to apply in order
func (c *Context) ConversionCost(from, to Type) (int, []*Function, bool) {
	if from == nil || to == nil {
		return 0, nil, false
	}

	if from == to {
		return costExact, nil, true
	}

	if pt, ok := to.(*PatternType); ok {
		return costPattern, nil, pt.Matches(from)
	}

	switch ft := from.(type) {
	case *Class:
		if d, ok := ft.InheritanceDepth(to); ok {
			return costUpcast * d, nil, true
		}
	case *VariantTagType:
		if Type(ft.variant) == to {
			return costUpcast, nil, true
		}
	}

	return c.castChain(from, to)
}

// castChain searches the cast graph for the cheapest chain of at most
// maxCastChain casts from one type to another
func (c *Context) castChain(from, to Type) (int, []*Function, bool) {
	type step struct {
		t     Type
		cost  int
		chain []*Function
	}

	bestCost := -1
	var bestChain []*Function

	frontier := []step{{t: from}}
	visited := map[Type]int{from: 0}
	for depth := 0; depth < maxCastChain && len(frontier) > 0; depth++ {
		var next []step
		for _, s := range frontier {
			for _, f := range c.CastsFrom(s.t) {
				if f.minArgs > 1 {
					continue
				}

				cost := s.cost + costCast
				if f.IsLossy() {
					cost = s.cost + costLossy
				}

				chain := append(append([]*Function(nil), s.chain...), f)
				target := f.returnType
				if target == to {
					if bestCost < 0 || cost < bestCost {
						bestCost, bestChain = cost, chain
					}
					continue
				}

				if prev, ok := visited[target]; ok && prev <= cost {
					continue
				}
				visited[target] = cost
				next = append(next, step{t: target, cost: cost, chain: chain})
			}
		}
		frontier = next
	}

	return bestCost, bestChain, bestCost >= 0
}

// Convert applies the resolution's casts to already evaluated arguments and
// fills in defaults
func (r *Resolution) Convert(ev Evaluator, args []Value) ([]Value, error) {
	out := args
	copied := false
	for i, chain := range r.Conversions {
		if len(chain) == 0 || i >= len(args) {
			continue
		}

		if !copied {
			out = append([]Value(nil), args...)
			copied = true
		}

		v := out[i]
		for _, cast := range chain {
			var err error
			if v, err = ev.Call(cast, []Value{v}); err != nil {
				return nil, err
			}
		}
		out[i] = v
	}

	return r.Function.FillDefaults(out)
}

func describeArgs(types []Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = typeName(t)
	}

	return "(" + strings.Join(names, ", ") + ")"
}
