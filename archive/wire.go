package archive

import (
	"fmt"
	"math"

	"mu/sem"

	"google.golang.org/protobuf/encoding/protowire"
)

// Archive records are encoded as protobuf wire format messages.  Field
// numbers of each message are listed with its encoder.

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// -----------------------------------------------------------------------------

// marshalArchive encodes the payload of an archive:
//
//	1 module  2 source  3 requires  4 decls  5 init  6 init positions
func marshalArchive(a *Archive) []byte {
	var b []byte
	b = appendString(b, 1, a.Module)
	b = appendString(b, 2, a.Source)
	for _, r := range a.Requires {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, r)
	}

	for _, d := range a.Decls {
		b = appendMessage(b, 4, marshalDecl(d))
	}

	for _, d := range a.Init {
		b = appendMessage(b, 5, marshalDecl(d))
	}

	// positions are written even when zero so they pair up with init records
	for _, at := range a.InitAt {
		b = protowire.AppendTag(b, 6, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(at))
	}

	return b
}

// marshalDecl encodes a declaration:
//
//	1 kind  2 name  3 owner  4 returns  5 attrs  6 params  7 body
//	8 stack size  9 supers  10 fields  11 required  12 value
func marshalDecl(d *Decl) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(d.Kind))
	b = appendString(b, 2, d.Name)
	b = appendString(b, 3, d.Owner)
	b = appendString(b, 4, d.Returns)
	b = appendVarint(b, 5, d.Attrs)

	for _, p := range d.Params {
		b = appendMessage(b, 6, marshalField(p))
	}

	if d.Body != nil {
		b = appendMessage(b, 7, marshalNode(d.Body))
	}
	b = appendVarint(b, 8, uint64(d.StackSize))

	for _, s := range d.Supers {
		b = protowire.AppendTag(b, 9, protowire.BytesType)
		b = protowire.AppendString(b, s)
	}

	for _, f := range d.Fields {
		b = appendMessage(b, 10, marshalField(f))
	}

	for _, r := range d.Required {
		b = protowire.AppendTag(b, 11, protowire.BytesType)
		b = protowire.AppendString(b, r)
	}

	if d.Value != nil {
		b = appendMessage(b, 12, marshalValue(d.Value))
	}

	return b
}

// marshalField encodes a field: 1 name  2 type  3 default
func marshalField(f *Field) []byte {
	var b []byte
	b = appendString(b, 1, f.Name)
	b = appendString(b, 2, f.Type)
	if f.Default != nil {
		b = appendMessage(b, 3, marshalValue(f.Default))
	}

	return b
}

// marshalNode encodes a node:
//
//	1 kind  2 symbol  3 signature  4 member  5 type  6 slot  7 args  8 data
func marshalNode(n *NodeRecord) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(n.Kind))
	b = appendString(b, 2, n.Symbol)
	b = appendString(b, 3, n.Signature)
	b = appendString(b, 4, n.Member)
	b = appendString(b, 5, n.Type)
	b = appendVarint(b, 6, uint64(n.Slot))

	for _, a := range n.Args {
		b = appendMessage(b, 7, marshalNode(a))
	}

	if n.Data != nil {
		b = appendMessage(b, 8, marshalValue(n.Data))
	}

	return b
}

// marshalValue encodes a value: 1 kind  2 type  3 int  4 float  5 string
func marshalValue(v *ValueRecord) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(v.Kind))
	b = appendString(b, 2, v.Type)
	b = appendVarint(b, 3, protowire.EncodeZigZag(v.Int))

	if v.Float != 0 {
		b = protowire.AppendTag(b, 4, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.Float))
	}

	return appendString(b, 5, v.Str)
}

// -----------------------------------------------------------------------------

// decoder reads the fields of one message.  The first error is sticky and
// ends iteration.
type decoder struct {
	b   []byte
	err error
}

// next reads the tag of the next field
func (d *decoder) next() (protowire.Number, protowire.Type, bool) {
	if d.err != nil || len(d.b) == 0 {
		return 0, 0, false
	}

	num, typ, n := protowire.ConsumeTag(d.b)
	if !d.consume(n) {
		return 0, 0, false
	}

	return num, typ, true
}

func (d *decoder) consume(n int) bool {
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return false
	}

	d.b = d.b[n:]
	return true
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
}

func (d *decoder) expect(got, want protowire.Type) bool {
	if got != want {
		d.fail(fmt.Errorf("unexpected wire type %d", got))
		return false
	}

	return true
}

func (d *decoder) varint(typ protowire.Type) uint64 {
	if !d.expect(typ, protowire.VarintType) {
		return 0
	}

	v, n := protowire.ConsumeVarint(d.b)
	d.consume(n)
	return v
}

func (d *decoder) fixed64(typ protowire.Type) uint64 {
	if !d.expect(typ, protowire.Fixed64Type) {
		return 0
	}

	v, n := protowire.ConsumeFixed64(d.b)
	d.consume(n)
	return v
}

func (d *decoder) bytes(typ protowire.Type) []byte {
	if !d.expect(typ, protowire.BytesType) {
		return nil
	}

	v, n := protowire.ConsumeBytes(d.b)
	d.consume(n)
	return v
}

func (d *decoder) str(typ protowire.Type) string {
	return string(d.bytes(typ))
}

func (d *decoder) skip(num protowire.Number, typ protowire.Type) {
	d.consume(protowire.ConsumeFieldValue(num, typ, d.b))
}

// nested decodes an embedded message with decode, recording its error
func nested[T any](d *decoder, typ protowire.Type, decode func([]byte) (T, error)) T {
	var zero T
	b := d.bytes(typ)
	if d.err != nil {
		return zero
	}

	v, err := decode(b)
	if err != nil {
		d.err = err
		return zero
	}

	return v
}

// -----------------------------------------------------------------------------

func unmarshalArchive(b []byte) (*Archive, error) {
	a := &Archive{}
	d := &decoder{b: b}
	for num, typ, ok := d.next(); ok; num, typ, ok = d.next() {
		switch num {
		case 1:
			a.Module = d.str(typ)
		case 2:
			a.Source = d.str(typ)
		case 3:
			a.Requires = append(a.Requires, d.str(typ))
		case 4:
			a.Decls = append(a.Decls, nested(d, typ, unmarshalDecl))
		case 5:
			a.Init = append(a.Init, nested(d, typ, unmarshalDecl))
		case 6:
			a.InitAt = append(a.InitAt, int(d.varint(typ)))
		default:
			d.skip(num, typ)
		}
	}

	return a, d.err
}

func unmarshalDecl(b []byte) (*Decl, error) {
	decl := &Decl{}
	d := &decoder{b: b}
	for num, typ, ok := d.next(); ok; num, typ, ok = d.next() {
		switch num {
		case 1:
			decl.Kind = DeclKind(d.varint(typ))
		case 2:
			decl.Name = d.str(typ)
		case 3:
			decl.Owner = d.str(typ)
		case 4:
			decl.Returns = d.str(typ)
		case 5:
			decl.Attrs = d.varint(typ)
		case 6:
			decl.Params = append(decl.Params, nested(d, typ, unmarshalField))
		case 7:
			decl.Body = nested(d, typ, unmarshalNode)
		case 8:
			decl.StackSize = int(d.varint(typ))
		case 9:
			decl.Supers = append(decl.Supers, d.str(typ))
		case 10:
			decl.Fields = append(decl.Fields, nested(d, typ, unmarshalField))
		case 11:
			decl.Required = append(decl.Required, d.str(typ))
		case 12:
			decl.Value = nested(d, typ, unmarshalValue)
		default:
			d.skip(num, typ)
		}
	}

	return decl, d.err
}

func unmarshalField(b []byte) (*Field, error) {
	f := &Field{}
	d := &decoder{b: b}
	for num, typ, ok := d.next(); ok; num, typ, ok = d.next() {
		switch num {
		case 1:
			f.Name = d.str(typ)
		case 2:
			f.Type = d.str(typ)
		case 3:
			f.Default = nested(d, typ, unmarshalValue)
		default:
			d.skip(num, typ)
		}
	}

	return f, d.err
}

func unmarshalNode(b []byte) (*NodeRecord, error) {
	n := &NodeRecord{}
	d := &decoder{b: b}
	for num, typ, ok := d.next(); ok; num, typ, ok = d.next() {
		switch num {
		case 1:
			n.Kind = sem.NodeKind(d.varint(typ))
		case 2:
			n.Symbol = d.str(typ)
		case 3:
			n.Signature = d.str(typ)
		case 4:
			n.Member = d.str(typ)
		case 5:
			n.Type = d.str(typ)
		case 6:
			n.Slot = int(d.varint(typ))
		case 7:
			n.Args = append(n.Args, nested(d, typ, unmarshalNode))
		case 8:
			n.Data = nested(d, typ, unmarshalValue)
		default:
			d.skip(num, typ)
		}
	}

	return n, d.err
}

func unmarshalValue(b []byte) (*ValueRecord, error) {
	v := &ValueRecord{}
	d := &decoder{b: b}
	for num, typ, ok := d.next(); ok; num, typ, ok = d.next() {
		switch num {
		case 1:
			v.Kind = ValueKind(d.varint(typ))
		case 2:
			v.Type = d.str(typ)
		case 3:
			v.Int = protowire.DecodeZigZag(d.varint(typ))
		case 4:
			v.Float = math.Float64frombits(d.fixed64(typ))
		case 5:
			v.Str = d.str(typ)
		default:
			d.skip(num, typ)
		}
	}

	return v, d.err
}
