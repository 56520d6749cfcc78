package vm

import (
	"math"
	"strconv"

	"github.com/cmarrin/m8rscript-sub000/internal/opcode"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// toBool implements the truthiness rule the branch/logical opcodes share:
// None/Null/false/zero/empty-string are falsy, everything else truthy.
func (vm *VM) toBool(v value.Value) bool {
	switch v.Kind() {
	case value.KindNone, value.KindNull:
		return false
	case value.KindBool:
		return v.AsBool()
	case value.KindInteger:
		return v.AsInt() != 0
	case value.KindFloat:
		return v.AsFloat() != 0
	case value.KindString, value.KindStringLiteral:
		return vm.toString(v) != ""
	default:
		return true
	}
}

// toString renders v for string concatenation (ADD) and property-key
// coercion, resolving both heap-backed and literal-table strings through
// this VM's tables.
func (vm *VM) toString(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		return vm.store.String(v.AsHandle())
	case value.KindStringLiteral:
		return vm.literals.String(v.AsLiteral())
	case value.KindInteger:
		return strconv.FormatInt(int64(v.AsInt()), 10)
	case value.KindFloat:
		return strconv.FormatFloat(float64(v.AsFloat()), 'g', -1, 32)
	case value.KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case value.KindNull:
		return "null"
	case value.KindNone:
		return "undefined"
	default:
		if o := vm.objectOf(v); o != nil {
			return o.ToString(false)
		}
		return ""
	}
}

func (vm *VM) isStringKind(v value.Value) bool {
	return v.Kind() == value.KindString || v.Kind() == value.KindStringLiteral
}

func (vm *VM) stepNumeric(v value.Value, delta int32) value.Value {
	if v.Kind() == value.KindInteger {
		return value.Int(v.AsInt() + delta)
	}
	return value.Float(v.ToFloat32() + float32(delta))
}

// binaryOp implements the RRR arithmetic/logic/comparison opcodes. ADD
// overloads string concatenation per spec §4.6; the rest are pure
// numeric/bitwise/boolean ops on the operands coerced to the shared
// numeric or boolean domain.
func (vm *VM) binaryOp(op opcode.Op, l, r value.Value) value.Value {
	switch op {
	case opcode.ADD:
		return vm.add(l, r)
	case opcode.SUB, opcode.MUL, opcode.DIV, opcode.MOD:
		return numericBinary(op, l, r)
	case opcode.EQ:
		return value.Bool(vm.valuesEqual(l, r))
	case opcode.NE:
		return value.Bool(!vm.valuesEqual(l, r))
	case opcode.LT, opcode.LE, opcode.GT, opcode.GE:
		return vm.compare(op, l, r)
	case opcode.OR:
		return value.Int(l.AsInt() | r.AsInt())
	case opcode.AND:
		return value.Int(l.AsInt() & r.AsInt())
	case opcode.XOR:
		return value.Int(l.AsInt() ^ r.AsInt())
	case opcode.SHL:
		return value.Int(l.AsInt() << uint32(r.AsInt()))
	case opcode.SHR:
		return value.Int(int32(uint32(l.AsInt()) >> uint32(r.AsInt())))
	case opcode.SAR:
		return value.Int(l.AsInt() >> uint32(r.AsInt()))
	case opcode.LOR:
		return value.Bool(vm.toBool(l) || vm.toBool(r))
	case opcode.LAND:
		return value.Bool(vm.toBool(l) && vm.toBool(r))
	}
	return value.None
}

// add implements ADD's dual role: numeric addition, or string
// concatenation once either operand is a string (matching the source's
// implicit-to-string-on-concat behavior).
func (vm *VM) add(l, r value.Value) value.Value {
	if vm.isStringKind(l) || vm.isStringKind(r) {
		return vm.newString(vm.toString(l) + vm.toString(r))
	}
	if l.Kind() == value.KindInteger && r.Kind() == value.KindInteger {
		return value.Int(l.AsInt() + r.AsInt())
	}
	return value.Float(l.ToFloat32() + r.ToFloat32())
}

func numericBinary(op opcode.Op, l, r value.Value) value.Value {
	if l.Kind() == value.KindInteger && r.Kind() == value.KindInteger {
		li, ri := l.AsInt(), r.AsInt()
		switch op {
		case opcode.SUB:
			return value.Int(li - ri)
		case opcode.MUL:
			return value.Int(li * ri)
		case opcode.DIV:
			if ri == 0 {
				return value.Float(float32(li) / float32(ri))
			}
			return value.Int(li / ri)
		case opcode.MOD:
			if ri == 0 {
				return value.Int(0)
			}
			return value.Int(li % ri)
		}
	}
	lf, rf := l.ToFloat32(), r.ToFloat32()
	switch op {
	case opcode.SUB:
		return value.Float(lf - rf)
	case opcode.MUL:
		return value.Float(lf * rf)
	case opcode.DIV:
		return value.Float(lf / rf)
	case opcode.MOD:
		return value.Float(float32(math.Mod(float64(lf), float64(rf))))
	}
	return value.None
}

// valuesEqual implements EQ/NE: numeric operands compare across
// Integer/Float, strings compare by content, everything else defers to
// Value.Equal's same-kind/same-payload rule.
func (vm *VM) valuesEqual(l, r value.Value) bool {
	if l.IsNumber() && r.IsNumber() {
		return l.ToFloat32() == r.ToFloat32()
	}
	if vm.isStringKind(l) && vm.isStringKind(r) {
		return vm.toString(l) == vm.toString(r)
	}
	return l.Equal(r)
}

// compare implements LT/LE/GT/GE: numeric operands compare numerically,
// strings lexically, anything else is never ordered (false).
func (vm *VM) compare(op opcode.Op, l, r value.Value) value.Value {
	var less, equal bool
	switch {
	case l.IsNumber() && r.IsNumber():
		lf, rf := l.ToFloat32(), r.ToFloat32()
		less, equal = lf < rf, lf == rf
	case vm.isStringKind(l) && vm.isStringKind(r):
		ls, rs := vm.toString(l), vm.toString(r)
		less, equal = ls < rs, ls == rs
	default:
		return value.Bool(false)
	}
	switch op {
	case opcode.LT:
		return value.Bool(less)
	case opcode.LE:
		return value.Bool(less || equal)
	case opcode.GT:
		return value.Bool(!less && !equal)
	case opcode.GE:
		return value.Bool(!less)
	}
	return value.Bool(false)
}
