package object

import (
	"strings"

	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// property is one entry of a MaterObject's ordered property bag.
type property struct {
	key atom.Atom
	val value.Value
}

// MaterObject is the dynamic property bag from spec §3.3: an ordered map
// of Atom to Value, optionally array-typed via isArray, in which case a
// dense element vector is used alongside (or instead of) named
// properties. Arrays and plain objects share this one Go type, matching
// the source's single MaterObject class with an _isArray flag.
type MaterObject struct {
	base
	atoms *atom.Table

	properties []property
	array      []value.Value
	isArray    bool
}

// NewMaterObject creates an empty object (or, if isArray, an empty array)
// whose atom names resolve through atoms (needed for TypeName/ToString).
func NewMaterObject(atoms *atom.Table, isArray bool) *MaterObject {
	return &MaterObject{atoms: atoms, isArray: isArray}
}

func (o *MaterObject) TypeName() string {
	if o.isArray {
		return "Array"
	}
	return "Object"
}

func (o *MaterObject) ToString(typeOnly bool) string {
	if typeOnly {
		return o.TypeName()
	}
	if o.isArray {
		parts := make([]string, len(o.array))
		for i, v := range o.array {
			parts[i] = stringifyElement(v)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	var b strings.Builder
	b.WriteString(o.TypeName())
	b.WriteString(" { ")
	for _, p := range o.properties {
		b.WriteString(o.atoms.String(p.key))
		b.WriteString(": ")
		b.WriteString(stringifyElement(p.val))
		b.WriteString(" ")
	}
	b.WriteString("}")
	return b.String()
}

func stringifyElement(v value.Value) string {
	switch v.Kind() {
	case value.KindInteger:
		return "<int>"
	case value.KindFloat:
		return "<float>"
	case value.KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	default:
		return "<value>"
	}
}

// GCMark marks proto, every property value, and every array element, per
// spec §4.2's MaterObject::gcMark rule.
func (o *MaterObject) GCMark(mark func(value.Value)) {
	if o.proto != nil {
		o.proto.GCMark(mark)
	}
	for _, p := range o.properties {
		mark(p.val)
	}
	for _, v := range o.array {
		mark(v)
	}
}

// Property looks up prop in the bag, falling through to the proto chain
// on miss, and returning None if nowhere found. An array's `length` is
// special-cased to the live element count rather than stored as an
// ordinary property, per spec §8's array boundary behavior.
func (o *MaterObject) Property(prop atom.Atom) value.Value {
	if o.isArray && prop == atom.Length {
		return value.Int(int32(len(o.array)))
	}
	for _, p := range o.properties {
		if p.key == prop {
			return p.val
		}
	}
	if o.proto != nil {
		return o.proto.Property(prop)
	}
	return value.None
}

// SetProperty sets or creates prop according to kind. Assigning an array's
// `length` resizes the element vector: growing pads with None, shrinking
// truncates (spec §8: "assigning a.length=n resizes").
func (o *MaterObject) SetProperty(prop atom.Atom, v value.Value, kind SetPropertyType) bool {
	if o.isArray && prop == atom.Length {
		n := int(v.AsInt())
		if n < 0 {
			n = 0
		}
		switch {
		case n < len(o.array):
			o.array = o.array[:n]
		case n > len(o.array):
			for len(o.array) < n {
				o.array = append(o.array, value.None)
			}
		}
		return true
	}
	for i := range o.properties {
		if o.properties[i].key == prop {
			o.properties[i].val = v
			return true
		}
	}
	if kind == SetPropertyNeverAdd {
		return false
	}
	o.properties = append(o.properties, property{key: prop, val: v})
	return true
}

// Element indexes the array store when elt is an Integer in range;
// otherwise it falls back to property lookup via the id conversion the
// source performs (elt.toIdValue).
func (o *MaterObject) Element(eu CallContext, elt value.Value) value.Value {
	if o.isArray && elt.Kind() == value.KindInteger {
		i := int(elt.AsInt())
		if i < 0 || i >= len(o.array) {
			return value.None
		}
		return o.array[i]
	}
	return o.Property(elt.AsAtom())
}

// SetElement writes an array slot (appending if append is set and elt is
// out of range or the array is being grown), or falls back to a named
// property assignment.
func (o *MaterObject) SetElement(eu CallContext, elt value.Value, v value.Value, append_ bool) bool {
	if o.isArray && elt.Kind() == value.KindInteger {
		i := int(elt.AsInt())
		if append_ || i == len(o.array) {
			o.array = append(o.array, v)
			return true
		}
		if i < 0 || i >= len(o.array) {
			return false
		}
		o.array[i] = v
		return true
	}
	kind := SetPropertyAddIfNeeded
	if append_ {
		kind = SetPropertyAlwaysAdd
	}
	return o.SetProperty(elt.AsAtom(), v, kind)
}

// Call reports Unimplemented: a plain MaterObject is not invocable
// (Function/Closure override this).
func (o *MaterObject) Call(eu CallContext, this value.Value, nparams int32, ctor bool) (value.CallReturnValue, error) {
	return Unimplemented()
}

// CallProperty reports Unimplemented: the execution unit resolves
// CALLPROP's callee via ordinary property lookup (the same path LOADPROP
// uses) and dispatches it itself, so a plain MaterObject never needs to
// service a property call on its own behalf. This hook exists for
// exotic Object implementations (native objects) that want custom
// call-by-property behavior instead.
func (o *MaterObject) CallProperty(eu CallContext, prop atom.Atom, nparams int32) (value.CallReturnValue, error) {
	return Unimplemented()
}

// PushBack appends to the array store (the `push_back` built-in method).
func (o *MaterObject) PushBack(v value.Value) {
	o.array = append(o.array, v)
	o.isArray = true
}

// Len returns the array length, or the property count for a non-array.
func (o *MaterObject) Len() int {
	if o.isArray {
		return len(o.array)
	}
	return len(o.properties)
}

// IsArray reports the array/object mode flag.
func (o *MaterObject) IsArray() bool { return o.isArray }

// At returns the i-th array element (caller must check bounds via Len).
func (o *MaterObject) At(i int) value.Value { return o.array[i] }

// NumProperties returns the property-bag entry count (spec's
// numProperties/propertyKeyforIndex enumeration pair).
func (o *MaterObject) NumProperties() int { return len(o.properties) }

// PropertyKeyForIndex returns the i-th property's key atom.
func (o *MaterObject) PropertyKeyForIndex(i int) atom.Atom {
	if i < 0 || i >= len(o.properties) {
		return atom.NoAtom
	}
	return o.properties[i].key
}
