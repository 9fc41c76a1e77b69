package sem

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"mu/common"
	"mu/gc"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of entries kept in each lookup cache
const DefaultCacheSize = 1024

// ErrSymbolConflict is returned when a symbol cannot share its name with the
// symbols already declared in a scope
var ErrSymbolConflict = errors.New("symbol conflict")

// nameKey identifies a cached qualified name lookup
type nameKey struct {
	from       Symbol
	name       string
	searchable bool
}

// Context owns the symbol table and type system of one runtime.  Symbol
// insertion is serialized behind a lock; lookups take the read side.
type Context struct {
	m *sync.RWMutex

	root *Module
	gc   *gc.Collector

	// generation is bumped by every insertion and keys the caches
	generation uint64

	names       *lru.Cache[nameKey, []Symbol]
	resolutions *lru.Cache[resolveKey, *Resolution]

	casts       map[Type][]*Function
	refTypes    map[Type]*ReferenceType
	fixedArrays map[string]*FixedArrayType
	dynArrays   map[string]*DynamicArrayType
	funcTypes   map[string]*FunctionType

	// Builtin types, declared in the root scope by NewContext
	Void, Bool, Byte, Char, Short, Int, Int64, Float, Double, String *PrimitiveType

	// Pattern types accepted by builtin generic functions
	Any, AnyArray, AnyDynamicArray *PatternType
}

// NewContext creates a context allocating objects through collector.  A cache
// size of zero or less selects DefaultCacheSize.
func NewContext(collector *gc.Collector, cacheSize int) *Context {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	names, _ := lru.New[nameKey, []Symbol](cacheSize)
	resolutions, _ := lru.New[resolveKey, *Resolution](cacheSize)

	c := &Context{
		m:           &sync.RWMutex{},
		root:        NewModule(""),
		gc:          collector,
		names:       names,
		resolutions: resolutions,
		casts:       make(map[Type][]*Function),
		refTypes:    make(map[Type]*ReferenceType),
		fixedArrays: make(map[string]*FixedArrayType),
		dynArrays:   make(map[string]*DynamicArrayType),
		funcTypes:   make(map[string]*FunctionType),
	}
	c.root.provenance = ProvenanceBuiltin

	c.Void = NewPrimitiveType("void", RepVoid)
	c.Bool = NewPrimitiveType("bool", RepBool)
	c.Byte = NewPrimitiveType("byte", RepByte)
	c.Char = NewPrimitiveType("char", RepChar)
	c.Short = NewPrimitiveType("short", RepShort)
	c.Int = NewPrimitiveType("int", RepInt)
	c.Int64 = NewPrimitiveType("int64", RepInt64)
	c.Float = NewPrimitiveType("float", RepFloat)
	c.Double = NewPrimitiveType("double", RepDouble)
	c.String = NewPrimitiveType("string", RepPointer)

	c.Any = NewPatternType("?", func(t Type) bool { return true })
	c.AnyArray = NewPatternType("?array", func(t Type) bool {
		_, ok := t.(ArrayType)
		return ok
	})
	c.AnyDynamicArray = NewPatternType("?dynamic_array", func(t Type) bool {
		_, ok := t.(*DynamicArrayType)
		return ok
	})

	for _, t := range []Type{
		c.Void, c.Bool, c.Byte, c.Char, c.Short, c.Int, c.Int64, c.Float, c.Double, c.String,
		c.Any, c.AnyArray, c.AnyDynamicArray,
	} {
		// the root scope is empty so these cannot conflict
		_ = c.AddSymbol(nil, t)
	}

	return c
}

// Root returns the root module holding every top level symbol
func (c *Context) Root() *Module {
	return c.root
}

// GC returns the collector objects are allocated through
func (c *Context) GC() *gc.Collector {
	return c.gc
}

// Generation returns a counter that changes whenever a symbol is added
func (c *Context) Generation() uint64 {
	c.m.RLock()
	defer c.m.RUnlock()

	return c.generation
}

// -----------------------------------------------------------------------------

// AddSymbol declares sym inside owner (the root module if owner is nil).
// Functions may share a name with other functions; any other sharing of a name
// is a conflict.
func (c *Context) AddSymbol(owner Symbol, sym Symbol) error {
	if owner == nil {
		owner = c.root
	}

	c.m.Lock()
	defer c.m.Unlock()

	sb := sym.base()
	if sb.owner != nil {
		return fmt.Errorf("`%s` is already declared in `%s`", sym.Name(), sb.owner.QualifiedName())
	}

	scope := owner.Scope()
	for _, existing := range scope.entries[sym.Name()] {
		if existing.Kind() != KindFunction || sym.Kind() != KindFunction {
			return fmt.Errorf("%w: cannot declare %s `%s` in `%s`: a %s with that name exists",
				ErrSymbolConflict, sym.Kind(), sym.Name(), displayName(owner), existing.Kind())
		}
	}

	sb.owner = owner
	scope.insert(sym)

	if f, ok := sym.(*Function); ok && f.IsCast() && len(f.params) > 0 {
		from := f.params[0].typ
		c.casts[from] = append(c.casts[from], f)
	}

	c.generation++
	c.names.Purge()
	c.resolutions.Purge()
	return nil
}

// DiscardModule removes a module whose load failed from the root scope so
// that the name can be loaded again from another file.  Symbols declared in
// the module become unreachable.
func (c *Context) DiscardModule(m *Module) bool {
	c.m.Lock()
	defer c.m.Unlock()

	if m.owner != Symbol(c.root) || !c.root.Scope().remove(m) {
		return false
	}

	m.owner = nil
	c.generation++
	c.names.Purge()
	c.resolutions.Purge()
	return true
}

func displayName(s Symbol) string {
	if s.Name() == "" {
		return "<root>"
	}

	return s.QualifiedName()
}

// CastsFrom returns the cast functions accepting a value of type t
func (c *Context) CastsFrom(t Type) []*Function {
	c.m.RLock()
	defer c.m.RUnlock()

	return append([]*Function(nil), c.casts[t]...)
}

// -----------------------------------------------------------------------------

// FindSymbolByQualifiedName resolves a dotted name from the root scope.  It
// returns nil if nothing matches.
func (c *Context) FindSymbolByQualifiedName(name string, searchableOnly bool) Symbol {
	return c.Lookup(nil, name, searchableOnly)
}

// Lookup resolves a dotted name starting from the scope of from.  The first
// component is searched in from and then each enclosing scope; the remaining
// components descend into the symbols found.  The most recently declared
// symbol wins.
func (c *Context) Lookup(from Symbol, name string, searchableOnly bool) Symbol {
	if all := c.LookupAll(from, name, searchableOnly); len(all) > 0 {
		return all[0]
	}

	return nil
}

// LookupAll is like Lookup but returns every symbol sharing the final name,
// most recently declared first
func (c *Context) LookupAll(from Symbol, name string, searchableOnly bool) []Symbol {
	if from == nil {
		from = c.root
	}

	key := nameKey{from: from, name: name, searchable: searchableOnly}
	if cached, ok := c.names.Get(key); ok {
		return cached
	}

	c.m.RLock()
	found := c.lookupAll(from, name, searchableOnly)
	gen := c.generation
	c.m.RUnlock()

	if len(found) > 0 {
		c.m.RLock()
		// a concurrent insertion may have purged the cache since the lookup
		if gen == c.generation {
			c.names.Add(key, found)
		}
		c.m.RUnlock()
	}

	return found
}

// lookupAll performs an uncached lookup; assumes the read lock is held
func (c *Context) lookupAll(from Symbol, name string, searchableOnly bool) []Symbol {
	parts := common.SplitQualifiedName(name)
	if len(parts) == 0 {
		return nil
	}

	var found []Symbol
	reachedRoot := false
	for s := from; s != nil && len(found) == 0; s = s.Owner() {
		found = s.base().peekScope().Overloads(parts[0])
		reachedRoot = reachedRoot || s == Symbol(c.root)
	}

	if len(found) == 0 && !reachedRoot {
		found = c.root.peekScope().Overloads(parts[0])
	}

	for _, part := range parts[1:] {
		if len(found) == 0 {
			return nil
		}

		head := found[0]
		if searchableOnly && !head.Searchable() {
			return nil
		}

		found = head.base().peekScope().Overloads(part)
	}

	if searchableOnly {
		visible := found[:0:0]
		for _, s := range found {
			if s.Searchable() {
				visible = append(visible, s)
			}
		}
		found = visible
	}

	return found
}

// FindSymbolOfType resolves a qualified name from the root scope and returns
// the first symbol in overload order whose dynamic kind is T
func FindSymbolOfType[T Symbol](c *Context, name string) (T, bool) {
	return LookupSymbolOfType[T](c, nil, name)
}

// LookupSymbolOfType is FindSymbolOfType starting from the scope of from
func LookupSymbolOfType[T Symbol](c *Context, from Symbol, name string) (T, bool) {
	for _, s := range c.LookupAll(from, name, false) {
		if t, ok := s.(T); ok {
			return t, true
		}
	}

	var zero T
	return zero, false
}

// FindModule finds a loaded module by qualified name
func (c *Context) FindModule(name string) *Module {
	m, _ := FindSymbolOfType[*Module](c, name)
	return m
}

// FindConstant finds a constant by qualified name
func (c *Context) FindConstant(name string) *Constant {
	k, _ := FindSymbolOfType[*Constant](c, name)
	return k
}

// FindFunctions collects the functions callable as name from the scope of
// from.  Functions in inner scopes come first and shadow outer functions with
// the same signature.
func (c *Context) FindFunctions(from Symbol, name string) []*Function {
	if from == nil {
		from = c.root
	}

	parts := common.SplitQualifiedName(name)
	if len(parts) > 1 {
		var out []*Function
		for _, s := range c.LookupAll(from, name, false) {
			if f, ok := s.(*Function); ok {
				out = append(out, f)
			}
		}
		return out
	}

	c.m.RLock()
	defer c.m.RUnlock()

	var out []*Function
	visit := func(s Symbol) {
		for _, sym := range s.base().peekScope().Overloads(name) {
			f, ok := sym.(*Function)
			if !ok || shadowed(out, f) {
				continue
			}
			out = append(out, f)
		}
	}

	reachedRoot := false
	for s := from; s != nil; s = s.Owner() {
		visit(s)
		reachedRoot = reachedRoot || s == Symbol(c.root)
	}

	if !reachedRoot {
		visit(c.root)
	}

	return out
}

// shadowed reports whether an already collected function has f's signature
func shadowed(fns []*Function, f *Function) bool {
	for _, g := range fns {
		if g.Matches(f) {
			return true
		}
	}

	return false
}

// -----------------------------------------------------------------------------

// FindType resolves a type name from the root scope.  Besides declared names
// it accepts composite names: `T&`, `T[]`, `T[,]`, `T[3]`, `T[2,2]` and
// `(R;A,B)`.
func (c *Context) FindType(name string) Type {
	return c.LookupType(nil, name)
}

// LookupType resolves a type name from the scope of from
func (c *Context) LookupType(from Symbol, name string) Type {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	switch {
	case name[0] == '(' && name[len(name)-1] == ')':
		return c.lookupFunctionType(from, name[1:len(name)-1])
	case strings.HasSuffix(name, "&"):
		if target := c.LookupType(from, name[:len(name)-1]); target != nil {
			return c.ReferenceTypeOf(target)
		}
		return nil
	case strings.HasSuffix(name, "]"):
		open := strings.LastIndexByte(name, '[')
		if open <= 0 {
			return nil
		}

		elem := c.LookupType(from, name[:open])
		if elem == nil {
			return nil
		}

		dims, ok := parseDims(name[open+1 : len(name)-1])
		if !ok {
			return nil
		}

		t, err := c.ArrayOf(elem, dims)
		if err != nil {
			return nil
		}
		return t
	}

	t, _ := LookupSymbolOfType[Type](c, from, name)
	return t
}

// parseDims parses the inside of an array suffix.  Dynamic dimensions are
// returned as zeros.
func parseDims(inner string) ([]int, bool) {
	parts := strings.Split(inner, ",")
	dims := make([]int, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, false
		}
		dims[i] = n
	}

	return dims, true
}

// lookupFunctionType parses `R;A,B` (without the parentheses)
func (c *Context) lookupFunctionType(from Symbol, inner string) Type {
	parts := splitTopLevel(inner, ';')
	if len(parts) != 2 {
		return nil
	}

	ret := c.LookupType(from, parts[0])
	if ret == nil {
		return nil
	}

	var args []Type
	if strings.TrimSpace(parts[1]) != "" {
		for _, a := range splitTopLevel(parts[1], ',') {
			t := c.LookupType(from, a)
			if t == nil {
				return nil
			}
			args = append(args, t)
		}
	}

	return c.FunctionTypeOf(ret, args)
}

// splitTopLevel splits s on sep ignoring separators nested in brackets
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}

	return append(parts, s[start:])
}

// ReferenceTypeOf returns the interned reference type to t
func (c *Context) ReferenceTypeOf(t Type) *ReferenceType {
	c.m.Lock()
	defer c.m.Unlock()

	if rt, ok := c.refTypes[t]; ok {
		return rt
	}

	rt := &ReferenceType{
		typeBase: typeBase{symbolBase: symbolBase{name: t.QualifiedName() + "&"}, rep: RepPointer, frozen: true},
		target:   t,
	}
	c.refTypes[t] = rt
	return rt
}

// ArrayOf returns the interned array type of elem with the given dimensions.
// A zero dimension is dynamic.  Mixing fixed and dynamic dimensions is an
// error.
func (c *Context) ArrayOf(elem Type, dims []int) (ArrayType, error) {
	if len(dims) == 0 {
		return nil, errors.New("array type needs at least one dimension")
	}

	dynamic := 0
	for _, d := range dims {
		if d == 0 {
			dynamic++
		} else if d < 0 {
			return nil, fmt.Errorf("invalid array dimension %d", d)
		}
	}

	switch dynamic {
	case len(dims):
		return c.DynamicArrayOf(elem, len(dims)), nil
	case 0:
		return c.FixedArrayOf(elem, dims), nil
	default:
		return nil, ErrMixedArrayDimensions
	}
}

// FixedArrayOf returns the interned fixed array type
func (c *Context) FixedArrayOf(elem Type, dims []int) *FixedArrayType {
	at := newFixedArrayType(elem, dims)

	c.m.Lock()
	defer c.m.Unlock()

	if existing, ok := c.fixedArrays[at.name]; ok && existing.elem == elem {
		return existing
	}

	c.fixedArrays[at.name] = at
	return at
}

// DynamicArrayOf returns the interned dynamic array type
func (c *Context) DynamicArrayOf(elem Type, rank int) *DynamicArrayType {
	if rank < 1 {
		rank = 1
	}
	at := newDynamicArrayType(elem, rank)

	c.m.Lock()
	defer c.m.Unlock()

	if existing, ok := c.dynArrays[at.name]; ok && existing.elem == elem {
		return existing
	}

	c.dynArrays[at.name] = at
	return at
}

// FunctionTypeOf returns the interned function type
func (c *Context) FunctionTypeOf(ret Type, args []Type) *FunctionType {
	name := signatureName(ret, args, true)

	c.m.Lock()
	defer c.m.Unlock()

	if ft, ok := c.funcTypes[name]; ok {
		return ft
	}

	ft := &FunctionType{
		typeBase:   typeBase{symbolBase: symbolBase{name: name}, rep: RepPointer, frozen: true},
		returnType: ret,
		argTypes:   append([]Type(nil), args...),
	}
	c.funcTypes[name] = ft
	return ft
}

// FunctionType returns the type of f as a first class value
func (c *Context) FunctionType(f *Function) *FunctionType {
	return c.FunctionTypeOf(f.returnType, f.ArgTypes())
}
