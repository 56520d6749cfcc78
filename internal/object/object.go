// Package object implements the heap object model from spec §3.3: a
// virtual-dispatch Object interface over MaterObject (the dynamic
// property bag / array dual-mode type), Function, Program, and
// Closure+UpValue, modelled per spec §9's "trait object" guidance since
// the set of Object implementations is open to host extensions.
package object

import (
	"fmt"

	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// SetPropertyType controls whether setProperty may create a new key.
type SetPropertyType uint8

const (
	SetPropertyAddIfNeeded SetPropertyType = iota
	SetPropertyAlwaysAdd
	SetPropertyNeverAdd
)

// Object is the operation set every heap-resident scripted value
// implements: toString/gcMark/property/setProperty/element/setElement/
// call/callProperty. The Callable-only accessors (code/localCount/
// constants/formalParamCount/upvalues/name) are methods of the concrete
// Function and Closure types, not part of this interface.
type Object interface {
	TypeName() string
	ToString(typeOnly bool) string
	GCMark(mark func(value.Value))

	Property(prop atom.Atom) value.Value
	SetProperty(prop atom.Atom, v value.Value, kind SetPropertyType) bool
	Element(eu CallContext, elt value.Value) value.Value
	SetElement(eu CallContext, elt value.Value, v value.Value, append bool) bool

	Call(eu CallContext, this value.Value, nparams int32, ctor bool) (value.CallReturnValue, error)
	CallProperty(eu CallContext, prop atom.Atom, nparams int32) (value.CallReturnValue, error)

	Proto() Object
	SetProto(Object)
}

// CallContext is the minimal surface Object methods need from the
// execution unit driving them (stack access, atom/literal lookup); the VM
// implements it. Kept here rather than imported from internal/vm to avoid
// a cycle, matching the source's forward-declared ExecutionUnit*.
type CallContext interface {
	Arg(nparams int32, index int32) value.Value
	AtomName(a atom.Atom) string
	RaiseError(err value.NativeError, format string, args ...interface{}) error
}

// base provides the shared proto-chain plumbing every Object embeds,
// mirroring the source's Object base class fields (_proto, _marked and
// friends — the mark bit itself lives in the heap block header, not here).
type base struct {
	proto Object
}

func (b *base) Proto() Object     { return b.proto }
func (b *base) SetProto(o Object) { b.proto = o }

// Unimplemented is the default Call/CallProperty result for Object kinds
// that don't support invocation, matching the source's
// CallReturnValue::Error::Unimplemented default.
func Unimplemented() (value.CallReturnValue, error) {
	return value.CallReturnValue{Kind: value.CallReturnError, N: int32(value.ErrUnimplemented)}, fmt.Errorf("object: call unimplemented")
}
