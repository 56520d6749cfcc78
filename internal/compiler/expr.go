package compiler

import (
	"strconv"

	"github.com/cmarrin/m8rscript-sub000/internal/opcode"
	"github.com/cmarrin/m8rscript-sub000/internal/token"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// precedence levels, low to high, for the Pratt/precedence-climbing
// expression parser of spec §4.5.
const (
	precNone = iota
	precAssign
	precLogicalOr
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precCall
)

var binaryPrec = map[token.Type]int{
	token.OROR:       precLogicalOr,
	token.ANDAND:     precLogicalAnd,
	token.PIPE:       precBitOr,
	token.CARET:      precBitXor,
	token.AMP:        precBitAnd,
	token.EQ:         precEquality,
	token.NEQ:        precEquality,
	token.LT:         precRelational,
	token.GT:         precRelational,
	token.LTE:        precRelational,
	token.GTE:        precRelational,
	token.LSHIFT:     precShift,
	token.RSHIFT:     precShift,
	token.RSHIFTFILL: precShift,
	token.PLUS:       precAdditive,
	token.MINUS:      precAdditive,
	token.STAR:       precMultiplicative,
	token.SLASH:      precMultiplicative,
	token.PERCENT:    precMultiplicative,
}

var binaryOp = map[token.Type]opcode.Op{
	token.OROR:       opcode.LOR,
	token.ANDAND:     opcode.LAND,
	token.PIPE:       opcode.OR,
	token.CARET:      opcode.XOR,
	token.AMP:        opcode.AND,
	token.EQ:         opcode.EQ,
	token.NEQ:        opcode.NE,
	token.LT:         opcode.LT,
	token.GT:         opcode.GT,
	token.LTE:        opcode.LE,
	token.GTE:        opcode.GE,
	token.LSHIFT:     opcode.SHL,
	token.RSHIFT:     opcode.SHR,
	token.RSHIFTFILL: opcode.SAR,
	token.PLUS:       opcode.ADD,
	token.MINUS:      opcode.SUB,
	token.STAR:       opcode.MUL,
	token.SLASH:      opcode.DIV,
	token.PERCENT:    opcode.MOD,
}

var compoundAssignOp = map[token.Type]opcode.Op{
	token.PLUSEQ:    opcode.ADD,
	token.MINUSEQ:   opcode.SUB,
	token.STAREQ:    opcode.MUL,
	token.SLASHEQ:   opcode.DIV,
	token.PERCENTEQ: opcode.MOD,
	token.AMPEQ:     opcode.AND,
	token.PIPEEQ:    opcode.OR,
	token.CARETEQ:   opcode.XOR,
	token.LSHIFTEQ:  opcode.SHL,
	token.RSHIFTEQ:  opcode.SHR,
}

// expression parses a full assignment-level expression.
func (c *Compiler) expression() operand {
	return c.assignment()
}

func (c *Compiler) assignment() operand {
	lhs := c.binary(precLogicalOr)

	switch c.peek().Type {
	case token.ASSIGN:
		c.advance()
		rhs := c.assignment()
		c.store(lhs, rhs)
		return rhs
	case token.PLUSEQ, token.MINUSEQ, token.STAREQ, token.SLASHEQ, token.PERCENTEQ,
		token.AMPEQ, token.PIPEEQ, token.CARETEQ, token.LSHIFTEQ, token.RSHIFTEQ:
		op := compoundAssignOp[c.peek().Type]
		c.advance()
		rhs := c.assignment()
		result := c.emitBinary(op, lhs, rhs)
		c.store(lhs, result)
		return result
	}
	return lhs
}

// binary implements precedence climbing starting at minPrec.
func (c *Compiler) binary(minPrec int) operand {
	lhs := c.unary()
	for {
		prec, ok := binaryPrec[c.peek().Type]
		if !ok || prec < minPrec {
			return lhs
		}
		opTok := c.advance().Type
		rhs := c.binary(prec + 1)
		lhs = c.emitBinary(binaryOp[opTok], lhs, rhs)
	}
}

func (c *Compiler) emitBinary(op opcode.Op, lhs, rhs operand) operand {
	a := c.regOrConst(lhs)
	b := c.regOrConst(rhs)
	dst := c.allocTemp()
	c.emit(opcode.EncodeRRR(op, uint8(dst), a, b))
	return registerOperand(dst)
}

func (c *Compiler) unary() operand {
	switch c.peek().Type {
	case token.MINUS:
		c.advance()
		v := c.unary()
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.UMINUS, uint8(dst), c.regOrConst(v), 0))
		return registerOperand(dst)
	case token.BANG:
		c.advance()
		v := c.unary()
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.UNOT, uint8(dst), c.regOrConst(v), 0))
		return registerOperand(dst)
	case token.TILDE:
		c.advance()
		v := c.unary()
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.UNEG, uint8(dst), c.regOrConst(v), 0))
		return registerOperand(dst)
	case token.INC:
		c.advance()
		v := c.unary()
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.PREINC, uint8(dst), c.regOrConst(v), 0))
		c.store(v, registerOperand(dst))
		return registerOperand(dst)
	case token.DEC:
		c.advance()
		v := c.unary()
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.PREDEC, uint8(dst), c.regOrConst(v), 0))
		c.store(v, registerOperand(dst))
		return registerOperand(dst)
	}
	return c.postfix()
}

func (c *Compiler) postfix() operand {
	operandVal := c.callOrMember()
	switch c.peek().Type {
	case token.INC:
		c.advance()
		// Postfix must yield the pre-increment value, so the old value is
		// captured into its own register before the increment is computed
		// and written back — unlike PREINC, where the expression's value
		// and the stored value are the same register.
		old := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.MOVE, uint8(old), c.regOrConst(operandVal), 0))
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.POSTINC, uint8(dst), uint16(old), 0))
		c.store(operandVal, registerOperand(dst))
		return registerOperand(old)
	case token.DEC:
		c.advance()
		old := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.MOVE, uint8(old), c.regOrConst(operandVal), 0))
		dst := c.allocTemp()
		c.emit(opcode.EncodeRRR(opcode.POSTDEC, uint8(dst), uint16(old), 0))
		c.store(operandVal, registerOperand(dst))
		return registerOperand(old)
	}
	return operandVal
}

// callOrMember parses primary followed by any chain of `.name`, `[expr]`,
// and `(args)` suffixes.
func (c *Compiler) callOrMember() operand {
	op := c.primary()
	for {
		switch c.peek().Type {
		case token.DOT:
			c.advance()
			nameTok := c.expect(token.IDENT)
			nameAtom := c.atomize(nameTok.Text)
			keyConst := constantOperand(c.addConstant(value.ID(nameAtom)))
			op = operand{kind: kindPropRef, reg: c.bake(op), key: &keyConst}
		case token.LBRACKET:
			c.advance()
			elt := c.expression()
			c.expect(token.RBRACKET)
			op = operand{kind: kindEltRef, reg: c.bake(op), key: &elt}
		case token.LPAREN:
			op = c.finishCall(op)
		default:
			return op
		}
	}
}

// finishCall parses `(arg, arg, ...)` and emits CALL or CALLPROP,
// returning the single-register call result per spec §4.6/§4.7.
func (c *Compiler) finishCall(callee operand) operand {
	c.advance() // consume '('

	// thisReg defaults to the reserved "this not bound" sentinel: constant
	// slot 0, which every Function reserves as the value.None sentinel
	// (spec §3.3) and which therefore never legitimately names a callee's
	// `this`. The VM reads this exact encoding as "fall back to the
	// caller's current this" per spec §4.6's CALL semantics.
	thisReg := uint16(256)
	var rcall uint16
	isMethod := callee.kind == kindPropRef
	if isMethod {
		thisReg = uint16(callee.reg)
		rcall = c.regOrConst(*callee.key)
	} else {
		rcall = uint16(c.bake(callee))
	}

	nparams := 0
	if c.peek().Type != token.RPAREN {
		for {
			arg := c.expression()
			argReg := c.bake(arg)
			c.emit(opcode.EncodeRRR(opcode.PUSH, uint8(argReg), 0, 0))
			nparams++
			if c.peek().Type != token.COMMA {
				break
			}
			c.advance()
		}
	}
	c.expect(token.RPAREN)

	if isMethod {
		c.emit(opcode.EncodeCALL(opcode.CALLPROP, rcall, thisReg, uint8(nparams)))
	} else {
		c.emit(opcode.EncodeCALL(opcode.CALL, rcall, thisReg, uint8(nparams)))
	}
	// CALL/CALLPROP leave their single return value on the evaluation
	// stack (spec §4.7's Return rule); POP it into a fresh register so
	// the call's result is usable as an ordinary operand.
	dst := c.allocTemp()
	c.emit(opcode.EncodeRRR(opcode.POP, uint8(dst), 0, 0))
	return registerOperand(dst)
}

func (c *Compiler) primary() operand {
	tok := c.peek()
	switch tok.Type {
	case token.INTEGER:
		c.advance()
		n, _ := strconv.ParseInt(stripHexPrefixAware(tok.Text), 0, 64)
		return constantOperand(c.addConstant(value.Int(int32(n))))
	case token.FLOAT:
		c.advance()
		f, _ := strconv.ParseFloat(tok.Text, 32)
		return constantOperand(c.addConstant(value.Float(float32(f))))
	case token.STRING:
		c.advance()
		id := c.literals.Add(tok.Text)
		return constantOperand(c.addConstant(value.StringLit(id)))
	case token.TRUE:
		c.advance()
		return constantOperand(c.addConstant(value.Bool(true)))
	case token.FALSE:
		c.advance()
		return constantOperand(c.addConstant(value.Bool(false)))
	case token.NULL:
		c.advance()
		return constantOperand(c.addConstant(value.Null))
	case token.UNDEFINED:
		c.advance()
		return constantOperand(c.addConstant(value.None))
	case token.THIS:
		c.advance()
		return thisOperand()
	case token.IDENT:
		c.advance()
		return c.resolveIdent(c.atomize(tok.Text))
	case token.LPAREN:
		c.advance()
		v := c.expression()
		c.expect(token.RPAREN)
		return v
	case token.LBRACKET:
		return c.arrayLiteral()
	case token.LBRACE:
		return c.objectLiteral()
	case token.FUNCTION:
		return c.functionExpression()
	case token.NEW:
		return c.newExpression()
	}
	c.errorf("unexpected token %v in expression", tok.Type)
	c.advance()
	return constantOperand(c.addConstant(value.None))
}

func stripHexPrefixAware(s string) string { return s }

// arrayLiteral parses `[e1, e2, ...]`, emitting LOADLITA followed by one
// APPENDELT per element.
func (c *Compiler) arrayLiteral() operand {
	c.advance() // '['
	dst := c.allocTemp()
	c.emit(opcode.EncodeRRR(opcode.LOADLITA, uint8(dst), 0, 0))
	if c.peek().Type != token.RBRACKET {
		for {
			elt := c.expression()
			c.emit(opcode.EncodeRRR(opcode.APPENDELT, uint8(dst), c.regOrConst(elt), 0))
			if c.peek().Type != token.COMMA {
				break
			}
			c.advance()
		}
	}
	c.expect(token.RBRACKET)
	return registerOperand(dst)
}

// objectLiteral parses `{ key: value, ... }`, emitting LOADLITO followed
// by one APPENDPROP per entry.
func (c *Compiler) objectLiteral() operand {
	c.advance() // '{'
	dst := c.allocTemp()
	c.emit(opcode.EncodeRRR(opcode.LOADLITO, uint8(dst), 0, 0))
	if c.peek().Type != token.RBRACE {
		for {
			keyTok := c.advance()
			keyAtom := c.atomize(keyTok.Text)
			c.expect(token.COLON)
			val := c.expression()
			keyConst := c.addConstant(value.ID(keyAtom))
			c.emit(opcode.EncodeRRR(opcode.APPENDPROP, uint8(dst), uint16(256+keyConst), c.regOrConst(val)))
			if c.peek().Type != token.COMMA {
				break
			}
			c.advance()
		}
	}
	c.expect(token.RBRACE)
	return registerOperand(dst)
}

// newExpression parses `new Callee(args)`, emitting a NEW instruction per
// spec §4.6: the newly created object is always the result regardless of
// the constructor's return value (§9's open-question resolution).
func (c *Compiler) newExpression() operand {
	c.advance() // 'new'
	callee := c.callOrMemberNoCall()

	rcall := uint16(c.bake(callee))
	nparams := 0
	if c.peek().Type == token.LPAREN {
		c.advance()
		if c.peek().Type != token.RPAREN {
			for {
				arg := c.expression()
				argReg := c.bake(arg)
				c.emit(opcode.EncodeRRR(opcode.PUSH, uint8(argReg), 0, 0))
				nparams++
				if c.peek().Type != token.COMMA {
					break
				}
				c.advance()
			}
		}
		c.expect(token.RPAREN)
	}
	c.emit(opcode.EncodeCALL(opcode.NEW, rcall, 0, uint8(nparams)))
	dst := c.allocTemp()
	c.emit(opcode.EncodeRRR(opcode.POP, uint8(dst), 0, 0))
	return registerOperand(dst)
}

// callOrMemberNoCall parses a primary plus `.`/`[]` suffixes but stops
// before consuming a call's `(...)`, since `new` binds its own arg list.
func (c *Compiler) callOrMemberNoCall() operand {
	op := c.primary()
	for {
		switch c.peek().Type {
		case token.DOT:
			c.advance()
			nameTok := c.expect(token.IDENT)
			nameAtom := c.atomize(nameTok.Text)
			keyConst := constantOperand(c.addConstant(value.ID(nameAtom)))
			op = operand{kind: kindPropRef, reg: c.bake(op), key: &keyConst}
		case token.LBRACKET:
			c.advance()
			elt := c.expression()
			c.expect(token.RBRACKET)
			op = operand{kind: kindEltRef, reg: c.bake(op), key: &elt}
		default:
			return op
		}
	}
}
