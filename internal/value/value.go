// Package value implements the tagged polymorphic Value cell from spec §3.
//
// Per spec §9 this is deliberately an explicit (tag, payload) struct rather
// than a NaN-boxed float, so the representation is correct and obvious on
// any host width; the 128-bit-on-64-bit-hosts sizing note in §3 is a
// footprint observation about the source's C++ layout, not a requirement
// this Go port needs to reproduce bit-for-bit.
package value

import (
	"math"

	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/heap"
	"github.com/cmarrin/m8rscript-sub000/internal/literal"
)

// Kind discriminates the Value union.
type Kind uint8

const (
	KindNone Kind = iota
	KindNull
	KindBool
	KindInteger
	KindFloat
	KindString
	KindStringLiteral
	KindID
	KindObject
	KindNativeObject
	KindNativeFunction
	KindStaticObject
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindStringLiteral:
		return "StringLiteral"
	case KindID:
		return "Id"
	case KindObject:
		return "Object"
	case KindNativeObject:
		return "NativeObject"
	case KindNativeFunction:
		return "NativeFunction"
	case KindStaticObject:
		return "StaticObject"
	default:
		return "Unknown"
	}
}

// NativeFunc is the native function ABI from spec §6.2, bound at the Value
// level so a NativeFunction Value can be called directly.
type NativeFunc func(ctx NativeContext, this Value, nparams int32) (CallReturnValue, error)

// NativeContext is the minimal surface a NativeFunc needs from its caller
// (the VM), kept here rather than importing internal/vm to avoid a cycle:
// VM implements this interface.
type NativeContext interface {
	StackTop(offsetFromTop int) Value
	PushReturn(Value)
}

// CallReturnValue mirrors spec §6.4's unified VM<->native ABI, modelled as
// a small struct instead of a single encoded int32 — the encoding exists
// in the source to fit one register; in Go there is no reason to pack it,
// so the tag is explicit and the magnitude lives in a named field.
type CallReturnValue struct {
	Kind CallReturnKind
	// N holds: milliseconds for MsDelay, return count for ReturnCount,
	// the NativeError code for Error. Unused for the other kinds.
	N int32
}

// CallReturnKind enumerates the kinds from spec §6.4.
type CallReturnKind uint8

const (
	CallReturnCount CallReturnKind = iota
	CallReturnFunctionStart
	CallReturnFinished
	CallReturnTerminated
	CallReturnWaitForEvent
	CallReturnYield
	CallReturnMsDelay
	CallReturnError
)

// NativeError enumerates the error codes from spec §6.4.
type NativeError int32

const (
	ErrWrongNumberOfParams NativeError = iota
	ErrConstructorOnly
	ErrUnimplemented
	ErrOutOfRange
	ErrMissingThis
	ErrInternalError
	ErrPropertyDoesNotExist
	ErrBadFormatString
	ErrUnknownFormatSpecifier
	ErrCannotConvertStringToNumber
	ErrCannotCreateArgumentsArray
	ErrCannotCall
	ErrInvalidArgumentValue
	ErrSyntaxErrors
	ErrImportTimeout
	ErrDelayNotAllowedInImport
	ErrEventNotAllowedInImport
	ErrError
)

// Value is the tagged polymorphic cell from spec §3.
type Value struct {
	kind Kind
	i    int32
	f    float32
	b    bool
	// handle is used by KindString/KindObject/KindNativeObject (an owning
	// heap.Mad handle). KindStaticObject does not use it: its non-owning
	// pointer is stored in static below, since it isn't heap-managed.
	handle  heap.Mad
	id      atom.Atom
	lit     literal.ID
	native  NativeFunc
	static  interface{} // StaticObject payload: non-owning, never GC'd
}

// None is the zero Value (uninitialized per spec §3).
var None = Value{kind: KindNone}

// Null is the Value representing the `null` literal.
var Null = Value{kind: KindNull}

// Undefined is an alias for None used at call sites that match the
// source language's "Undefined" result (spec §8 boundary behaviors).
var Undefined = None

func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int(i int32) Value       { return Value{kind: KindInteger, i: i} }
func Float(f float32) Value   { return Value{kind: KindFloat, f: f} }
func ID(a atom.Atom) Value    { return Value{kind: KindID, id: a} }
func StringLit(id literal.ID) Value {
	return Value{kind: KindStringLiteral, lit: id}
}
func HeapString(h heap.Mad) Value { return Value{kind: KindString, handle: h} }
func Object(h heap.Mad) Value     { return Value{kind: KindObject, handle: h} }
func NativeObject(h heap.Mad) Value {
	return Value{kind: KindNativeObject, handle: h}
}
func NativeFunction(f NativeFunc) Value {
	return Value{kind: KindNativeFunction, native: f}
}
func StaticObject(p interface{}) Value {
	return Value{kind: KindStaticObject, static: p}
}

func (v Value) Kind() Kind             { return v.kind }
func (v Value) IsNone() bool           { return v.kind == KindNone }
func (v Value) IsNull() bool           { return v.kind == KindNull }
func (v Value) AsBool() bool           { return v.b }
func (v Value) AsInt() int32           { return v.i }
func (v Value) AsFloat() float32       { return v.f }
func (v Value) AsAtom() atom.Atom      { return v.id }
func (v Value) AsLiteral() literal.ID  { return v.lit }
func (v Value) AsHandle() heap.Mad     { return v.handle }
func (v Value) AsNativeFunc() NativeFunc { return v.native }
func (v Value) AsStatic() interface{}  { return v.static }

// IsNumber reports whether v holds an Integer or Float.
func (v Value) IsNumber() bool { return v.kind == KindInteger || v.kind == KindFloat }

// ToFloat32 widens an Integer or Float Value to float32; callers must
// check IsNumber first.
func (v Value) ToFloat32() float32 {
	if v.kind == KindInteger {
		return float32(v.i)
	}
	return v.f
}

// Equal implements spec §3's bitwise equality on the discriminated union:
// two Values are equal iff their kind and payload match.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone, KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(float64(v.f)) && math.IsNaN(float64(o.f)))
	case KindStringLiteral:
		return v.lit == o.lit
	case KindID:
		return v.id == o.id
	case KindString, KindObject, KindNativeObject:
		return v.handle == o.handle
	case KindStaticObject:
		return v.static == o.static
	case KindNativeFunction:
		return false // function identity isn't comparable in Go
	default:
		return false
	}
}
