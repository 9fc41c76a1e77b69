package sem

import (
	"fmt"
	"strings"

	"mu/gc"
)

// MemberVariable is a field declared by a class
type MemberVariable struct {
	symbolBase

	typ   Type
	index int
}

func (mv *MemberVariable) Kind() SymbolKind { return KindMemberVariable }

// Type returns the member's type
func (mv *MemberVariable) Type() Type {
	return mv.typ
}

// Index returns the member's field index in instances of the owning class.
// Only valid once the class is frozen.
func (mv *MemberVariable) Index() int {
	return mv.index
}

// Class is a nominal type with members and any number of super classes
type Class struct {
	typeBase

	supers     []*Class
	interfaces []*Interface
	members    []*MemberVariable
	fields     []*MemberVariable
}

// NewClass creates an open class deriving from supers
func NewClass(name string, supers ...*Class) *Class {
	c := &Class{
		typeBase: typeBase{symbolBase: symbolBase{name: name}, rep: RepPointer},
		supers:   supers,
	}

	c.computeAtomicity()
	return c
}

// Supers returns the direct super classes
func (c *Class) Supers() []*Class {
	return c.supers
}

// Members returns the members declared directly by this class
func (c *Class) Members() []*MemberVariable {
	return c.members
}

// Fields returns the instance layout: inherited fields first, in super class
// order, followed by the class's own members.  Only valid once frozen.
func (c *Class) Fields() []*MemberVariable {
	return c.fields
}

// Interfaces returns the interfaces the class declares it implements
func (c *Class) Interfaces() []*Interface {
	return c.interfaces
}

// AddMember declares a new member.  Members cannot be added once the class is
// frozen.
func (c *Class) AddMember(name string, t Type) (*MemberVariable, error) {
	if c.frozen {
		return nil, fmt.Errorf("cannot add member `%s` to class `%s`: %w", name, c.QualifiedName(), ErrFrozen)
	}

	if c.Scope().Has(name) {
		return nil, fmt.Errorf("class `%s` already has a member named `%s`", c.QualifiedName(), name)
	}

	mv := &MemberVariable{symbolBase: symbolBase{name: name, owner: c}, typ: t}
	c.members = append(c.members, mv)
	c.Scope().insert(mv)

	c.computeAtomicity()
	return mv, nil
}

// Implement declares that the class implements iface
func (c *Class) Implement(iface *Interface) error {
	if c.frozen {
		return fmt.Errorf("cannot add interface to class `%s`: %w", c.QualifiedName(), ErrFrozen)
	}

	c.interfaces = append(c.interfaces, iface)
	return nil
}

// computeAtomicity recomputes the class's atomicity from its supers and
// members.  Called on every change while the class is open.
func (c *Class) computeAtomicity() {
	atomic := true
	for _, s := range c.supers {
		atomic = atomic && s.IsAtomic()
	}

	for _, m := range c.members {
		atomic = atomic && !holdsReferences(m.typ)
	}

	c.atomic = atomic
}

// Freeze finalizes the class.  Super classes are frozen first, then the field
// layout and atomicity are computed.  Freezing twice is a no-op.
func (c *Class) Freeze() error {
	if c.frozen {
		return nil
	}

	for _, s := range c.supers {
		if err := s.Freeze(); err != nil {
			return err
		}
	}

	c.computeAtomicity()

	c.fields = c.fields[:0]
	for _, s := range c.supers {
		c.fields = append(c.fields, s.fields...)
	}

	for _, m := range c.members {
		m.index = len(c.fields)
		c.fields = append(c.fields, m)
	}

	c.frozen = true
	return nil
}

// Field finds a field by name, searching inherited fields too.  Returns nil if
// the class has no such field.
func (c *Class) Field(name string) *MemberVariable {
	for i := len(c.fields) - 1; i >= 0; i-- {
		if c.fields[i].name == name {
			return c.fields[i]
		}
	}

	for _, m := range c.members {
		if m.name == name {
			return m
		}
	}

	return nil
}

// IsA reports whether c is other, inherits from other or implements it
func (c *Class) IsA(other Type) bool {
	_, ok := c.InheritanceDepth(other)
	return ok
}

// InheritanceDepth returns the number of inheritance steps from c to other
func (c *Class) InheritanceDepth(other Type) (int, bool) {
	if Type(c) == other {
		return 0, true
	}

	if iface, ok := other.(*Interface); ok {
		for _, i := range c.interfaces {
			if i == iface && iface.SatisfiedBy(c) {
				return 1, true
			}
		}
	}

	best, found := 0, false
	for _, s := range c.supers {
		if d, ok := s.InheritanceDepth(other); ok && (!found || d+1 < best) {
			best, found = d+1, true
		}
	}

	return best, found
}

func (c *Class) Format(v Value) string {
	obj, ok := v.Pointer().(*Object)
	if !ok || obj == nil {
		return "nil"
	}

	sb := strings.Builder{}
	sb.WriteString(c.name)
	sb.WriteRune('{')
	for i, f := range c.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.name)
		sb.WriteString(": ")
		sb.WriteString(obj.Fields[i].String())
	}
	sb.WriteRune('}')

	return sb.String()
}

// -----------------------------------------------------------------------------

// Interface is a nominal type naming the functions an implementing class must
// provide in its scope
type Interface struct {
	typeBase

	required []string
}

// NewInterface creates a frozen interface requiring the given function names
func NewInterface(name string, required ...string) *Interface {
	return &Interface{
		typeBase: typeBase{symbolBase: symbolBase{name: name}, rep: RepPointer, frozen: true},
		required: required,
	}
}

// Required returns the function names the interface requires
func (i *Interface) Required() []string {
	return i.required
}

// SatisfiedBy reports whether the class (or a super class) declares every
// required function
func (i *Interface) SatisfiedBy(c *Class) bool {
	for _, name := range i.required {
		if !classDeclaresFunction(c, name) {
			return false
		}
	}

	return true
}

func classDeclaresFunction(c *Class, name string) bool {
	for _, s := range c.Scope().Overloads(name) {
		if s.Kind() == KindFunction {
			return true
		}
	}

	for _, s := range c.supers {
		if classDeclaresFunction(s, name) {
			return true
		}
	}

	return false
}

func (i *Interface) IsA(other Type) bool {
	return Type(i) == other
}

func (i *Interface) Format(v Value) string {
	if obj, ok := v.Pointer().(*Object); ok && obj != nil {
		return obj.class.Format(PointerValue(obj.class, obj))
	}

	return "nil"
}

// -----------------------------------------------------------------------------

// Object is an instance of a class stored in a collector block
type Object struct {
	block *gc.Block
	class *Class

	// Fields holds the instance data in the class's field layout order
	Fields []Value
}

// Block returns the collector block holding the object
func (o *Object) Block() *gc.Block {
	if o == nil {
		return nil
	}

	return o.block
}

// Class returns the object's class
func (o *Object) Class() *Class {
	return o.class
}

// Trace visits the blocks referenced by the object's fields
func (o *Object) Trace(visit func(*gc.Block)) {
	TraceValues(o.Fields, visit)
}
