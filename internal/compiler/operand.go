package compiler

import (
	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/opcode"
)

// operandKind names what an operand on the parse stack currently holds,
// per spec §4.5's parse-stack kinds (Local, Register, Constant, RefK,
// PropRef, EltRef, This, UpValue).
type operandKind uint8

const (
	kindRegister operandKind = iota // already in a real register (local or temp)
	kindConstant                    // a constants-table index
	kindRefK                        // global lookup by name constant, not yet loaded
	kindPropRef                      // obj.prop, not yet dereferenced
	kindEltRef                       // obj[elt], not yet dereferenced
	kindThis
	kindUpValue
)

// operand is one entry of the compiler's expression evaluation stack.
type operand struct {
	kind operandKind

	reg      int        // kindRegister, kindPropRef/kindEltRef base object register
	constIdx int         // kindConstant, kindRefK (name constant index)
	upIndex  int         // kindUpValue
	key      *operand    // kindPropRef/kindEltRef: the property/element key, already baked or constant
	nameAtom atom.Atom   // kindRefK: the name, for diagnostics
}

// regOrConst renders o as a 9-bit register-or-constant operand (spec
// §4.6's B/C slot encoding), baking it into a register first if needed.
func (c *Compiler) regOrConst(o operand) uint16 {
	switch o.kind {
	case kindConstant:
		return uint16(256 + o.constIdx)
	case kindRegister:
		return uint16(o.reg)
	default:
		r := c.bake(o)
		return uint16(r)
	}
}

// bake realizes o in a real register, emitting whatever load instruction
// is needed, and returns that register number.
func (c *Compiler) bake(o operand) int {
	switch o.kind {
	case kindRegister:
		return o.reg
	case kindThis:
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.LOADTHIS, uint8(dst), 0, 0))
		return dst
	case kindConstant:
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.MOVE, uint8(dst), uint16(256+o.constIdx), 0))
		return dst
	case kindRefK:
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.LOADREFK, uint8(dst), uint16(256+o.constIdx), 0))
		return dst
	case kindUpValue:
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.LOADUP, uint8(dst), uint16(o.upIndex), 0))
		return dst
	case kindPropRef:
		keyOperand := c.regOrConst(*o.key)
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.LOADPROP, uint8(dst), uint16(o.reg), keyOperand))
		return dst
	case kindEltRef:
		keyOperand := c.regOrConst(*o.key)
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.LOADELT, uint8(dst), uint16(o.reg), keyOperand))
		return dst
	}
	return 0
}

// store emits the instruction(s) needed to assign src into the
// assignable operand dst (a Local/Register, RefK, PropRef, EltRef, or
// UpValue — This is not assignable).
func (c *Compiler) store(dst operand, src operand) {
	srcOperand := c.regOrConst(src)
	switch dst.kind {
	case kindRegister:
		c.emit(opcode.EncodeRRR(opcode.MOVE, uint8(dst.reg), srcOperand, 0))
	case kindRefK:
		c.emit(opcode.EncodeRRR(opcode.STOREFK, 0, uint16(256+dst.constIdx), srcOperand))
	case kindUpValue:
		c.emit(opcode.EncodeRRR(opcode.STOREUP, 0, uint16(dst.upIndex), srcOperand))
	case kindPropRef:
		keyOperand := c.regOrConst(*dst.key)
		c.emit(opcode.EncodeRRR(opcode.STOPROP, uint8(dst.reg), keyOperand, srcOperand))
	case kindEltRef:
		keyOperand := c.regOrConst(*dst.key)
		c.emit(opcode.EncodeRRR(opcode.STOELT, uint8(dst.reg), keyOperand, srcOperand))
	}
}

func registerOperand(reg int) operand { return operand{kind: kindRegister, reg: reg} }
func thisOperand() operand            { return operand{kind: kindThis} }
func constantOperand(idx int) operand { return operand{kind: kindConstant, constIdx: idx} }
