package compiler

import (
	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/object"
	"github.com/cmarrin/m8rscript-sub000/internal/opcode"
	"github.com/cmarrin/m8rscript-sub000/internal/token"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// statement parses and emits one statement of spec §4.5's statement set:
// {block, if, while, do, for, for-in, switch, break, continue, return,
// var, function, class, expression-statement}.
func (c *Compiler) statement() {
	switch c.peek().Type {
	case token.LBRACE:
		c.block()
	case token.VAR:
		c.varStatement()
	case token.IF:
		c.ifStatement()
	case token.WHILE:
		c.whileStatement()
	case token.DO:
		c.doStatement()
	case token.FOR:
		c.forStatement()
	case token.SWITCH:
		c.switchStatement()
	case token.BREAK:
		c.advance()
		c.consumeSemicolon()
		c.emitBreak()
	case token.CONTINUE:
		c.advance()
		c.consumeSemicolon()
		c.emitContinue()
	case token.RETURN:
		c.returnStatement()
	case token.FUNCTION:
		c.functionDeclaration()
	case token.CLASS:
		c.classDeclaration()
	case token.SEMICOLON:
		c.advance()
	default:
		c.expressionStatement()
	}
}

// statementTopLevel parses one statement and then reclaims every
// temporary register it used: no statement hands a live value to its
// sibling statement, so the LIFO temp counter can simply be rewound
// (spec §4.5's temporaries are a per-function budget counted down from
// 255, and an unfreed statement-scoped temp is pure waste).
func (c *Compiler) statementTopLevel() {
	saved := c.scope.tempNext
	c.statement()
	c.scope.tempNext = saved
}

func (c *Compiler) consumeSemicolon() {
	if c.peek().Type == token.SEMICOLON {
		c.advance()
	}
}

func (c *Compiler) block() {
	c.expect(token.LBRACE)
	c.enterBlock()
	for c.peek().Type != token.RBRACE && c.peek().Type != token.EOF {
		c.statementTopLevel()
	}
	c.exitBlock()
	c.expect(token.RBRACE)
}

// varStatement parses `var name [= expr] (, name [= expr])* ;`.
func (c *Compiler) varStatement() {
	c.advance() // 'var'
	for {
		nameTok := c.expect(token.IDENT)
		nameAtom := c.atomize(nameTok.Text)
		reg := c.pushLocal(nameAtom)
		if c.peek().Type == token.ASSIGN {
			c.advance()
			val := c.expression()
			c.store(registerOperand(reg), val)
		}
		if c.peek().Type != token.COMMA {
			break
		}
		c.advance()
	}
	c.consumeSemicolon()
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consumeSemicolon()
}

func (c *Compiler) returnStatement() {
	c.advance()
	n := 0
	if c.peek().Type != token.SEMICOLON && c.peek().Type != token.RBRACE && c.peek().Type != token.EOF {
		v := c.expression()
		r := c.bake(v)
		c.emit(opcode.EncodeRRR(opcode.PUSH, uint8(r), 0, 0))
		n = 1
	}
	c.consumeSemicolon()
	c.emit(opcode.EncodeRN(opcode.RET, uint16(n), 0))
}

// ifStatement parses `if (cond) stmt [else stmt]`.
func (c *Compiler) ifStatement() {
	c.advance()
	c.expect(token.LPAREN)
	cond := c.expression()
	c.expect(token.RPAREN)

	condReg := c.bake(cond)
	jfAddr := c.emit(opcode.EncodeRN(opcode.JF, uint16(condReg), 0))
	c.statementTopLevel()

	if c.peek().Type == token.ELSE {
		jmpAddr := c.emit(opcode.EncodeRN(opcode.JMP, 0, 0))
		c.patchJump(jfAddr)
		c.advance()
		c.statementTopLevel()
		c.patchJump(jmpAddr)
	} else {
		c.patchJump(jfAddr)
	}
}

// patchJump rewrites the immediate field of the RN-encoded jump at addr so
// it targets the current emission point (spec §4.5's matchJump).
func (c *Compiler) patchJump(addr int) {
	code := c.scope.fn.Code()
	instr := opcode.ReadInstruction(code, addr)
	op, n, _ := opcode.DecodeRN(instr)
	offset := len(code) - addr
	newInstr := opcode.EncodeRN(op, n, uint32(offset)&0x1FFFF)
	code[addr] = byte(newInstr)
	code[addr+1] = byte(newInstr >> 8)
	code[addr+2] = byte(newInstr >> 16)
	code[addr+3] = byte(newInstr >> 24)
}

func (c *Compiler) emitJumpTo(target int) {
	addr := len(c.scope.fn.Code())
	offset := target - addr
	c.emit(opcode.EncodeRN(opcode.JMP, 0, uint32(int32(offset))&0x1FFFF))
}

func (c *Compiler) pushLoop() {
	c.scope.breakLabels = append(c.scope.breakLabels, nil)
	c.scope.continueLabels = append(c.scope.continueLabels, nil)
}

func (c *Compiler) popLoop() (breaks []*label, continues []*label) {
	n := len(c.scope.breakLabels)
	breaks = c.scope.breakLabels[n-1]
	continues = c.scope.continueLabels[n-1]
	c.scope.breakLabels = c.scope.breakLabels[:n-1]
	c.scope.continueLabels = c.scope.continueLabels[:n-1]
	return
}

func (c *Compiler) emitBreak() {
	n := len(c.scope.breakLabels)
	if n == 0 {
		c.errorf("break outside loop")
		return
	}
	addr := c.emit(opcode.EncodeRN(opcode.JMP, 0, 0))
	c.scope.breakLabels[n-1] = append(c.scope.breakLabels[n-1], &label{patchAddr: addr})
}

func (c *Compiler) emitContinue() {
	n := len(c.scope.continueLabels)
	if n == 0 {
		c.errorf("continue outside loop")
		return
	}
	addr := c.emit(opcode.EncodeRN(opcode.JMP, 0, 0))
	c.scope.continueLabels[n-1] = append(c.scope.continueLabels[n-1], &label{patchAddr: addr})
}

func (c *Compiler) patchLabels(labels []*label, target int) {
	for _, l := range labels {
		code := c.scope.fn.Code()
		instr := opcode.ReadInstruction(code, l.patchAddr)
		op, n, _ := opcode.DecodeRN(instr)
		offset := target - l.patchAddr
		newInstr := opcode.EncodeRN(op, n, uint32(int32(offset))&0x1FFFF)
		code[l.patchAddr] = byte(newInstr)
		code[l.patchAddr+1] = byte(newInstr >> 8)
		code[l.patchAddr+2] = byte(newInstr >> 16)
		code[l.patchAddr+3] = byte(newInstr >> 24)
	}
}

// whileStatement parses `while (cond) body`.
func (c *Compiler) whileStatement() {
	c.advance()
	c.expect(token.LPAREN)
	condAddr := len(c.scope.fn.Code())
	cond := c.expression()
	c.expect(token.RPAREN)
	condReg := c.bake(cond)
	exitAddr := c.emit(opcode.EncodeRN(opcode.JF, uint16(condReg), 0))

	c.pushLoop()
	c.statementTopLevel()
	breaks, continues := c.popLoop()

	c.patchLabels(continues, condAddr)
	c.emitJumpTo(condAddr)
	c.patchJump(exitAddr)
	c.patchLabels(breaks, len(c.scope.fn.Code()))
}

// doStatement parses `do body while (cond) ;`.
func (c *Compiler) doStatement() {
	c.advance()
	bodyAddr := len(c.scope.fn.Code())

	c.pushLoop()
	c.statementTopLevel()
	breaks, continues := c.popLoop()

	c.expect(token.WHILE)
	c.expect(token.LPAREN)
	condTargetAddr := len(c.scope.fn.Code())
	c.patchLabels(continues, condTargetAddr)
	cond := c.expression()
	c.expect(token.RPAREN)
	c.consumeSemicolon()
	condReg := c.bake(cond)
	jtAddr := c.emit(opcode.EncodeRN(opcode.JT, uint16(condReg), 0))
	c.patchLabels([]*label{{patchAddr: jtAddr}}, bodyAddr)

	c.patchLabels(breaks, len(c.scope.fn.Code()))
}

// forStatement parses the three-clause `for (init; cond; update) body` and
// `for (var name in expr) body`, spec §4.5's for and for-in members of the
// statement set.
func (c *Compiler) forStatement() {
	c.advance()
	c.expect(token.LPAREN)
	c.enterBlock()

	if c.peek().Type == token.VAR {
		c.advance()
		nameTok := c.expect(token.IDENT)
		nameAtom := c.atomize(nameTok.Text)
		if c.peek().Type == token.IN {
			c.advance()
			reg := c.pushLocal(nameAtom)
			c.forInStatement(reg)
			c.exitBlock()
			return
		}
		reg := c.pushLocal(nameAtom)
		if c.peek().Type == token.ASSIGN {
			c.advance()
			val := c.expression()
			c.store(registerOperand(reg), val)
		}
		for c.peek().Type == token.COMMA {
			c.advance()
			nt := c.expect(token.IDENT)
			na := c.atomize(nt.Text)
			r := c.pushLocal(na)
			if c.peek().Type == token.ASSIGN {
				c.advance()
				v := c.expression()
				c.store(registerOperand(r), v)
			}
		}
		c.consumeSemicolon()
	} else if c.peek().Type != token.SEMICOLON {
		c.expressionStatement()
	} else {
		c.advance()
	}

	condAddr := len(c.scope.fn.Code())
	var exitAddr int
	hasCond := c.peek().Type != token.SEMICOLON
	if hasCond {
		cond := c.expression()
		condReg := c.bake(cond)
		exitAddr = c.emit(opcode.EncodeRN(opcode.JF, uint16(condReg), 0))
	}
	c.expect(token.SEMICOLON)

	// Defer the update clause: parse it now (so parse errors surface in
	// source order) into a side buffer, then splice its bytes in after
	// the body.
	updateCode := c.captureDeferred(func() {
		if c.peek().Type != token.RPAREN {
			c.expression()
		}
	})
	c.expect(token.RPAREN)

	c.pushLoop()
	c.statementTopLevel()
	breaks, continues := c.popLoop()

	continueAddr := len(c.scope.fn.Code())
	c.scope.fn.SetCode(append(c.scope.fn.Code(), updateCode...))
	c.patchLabels(continues, continueAddr)

	c.emitJumpTo(condAddr)
	if hasCond {
		c.patchJump(exitAddr)
	}
	c.patchLabels(breaks, len(c.scope.fn.Code()))
	c.exitBlock()
}

// forInStatement implements `for (var name in expr) body` as a walk over
// the index range [0, expr.length): name is bound to the successive index
// each iteration. LOADELT addresses an array element by that index
// directly; a plain object's "length" is its own property count, so the
// same loop shape covers both, though enumerating a plain object's own
// keys by name needs the Iterator protocol objects from spec §9 layered
// on top - this primitive form only hands the body a numeric index.
func (c *Compiler) forInStatement(nameReg int) {
	iterable := c.expression()
	c.expect(token.RPAREN)
	iterReg := c.bake(iterable)

	lenConstIdx := c.addConstant(value.ID(atom.Length))
	c.emit(opcode.EncodeRRR(opcode.LOADPROP, uint8(nameReg), uint16(iterReg), uint16(256+lenConstIdx)))
	lenReg := c.allocTemp()
	c.emit(opcode.EncodeRRR(opcode.MOVE, uint8(lenReg), uint16(nameReg), 0))

	zeroConst := c.addConstant(value.Int(0))
	c.emit(opcode.EncodeRRR(opcode.MOVE, uint8(nameReg), uint16(256+zeroConst), 0))

	condAddr := len(c.scope.fn.Code())
	condReg := c.allocTemp()
	c.emit(opcode.EncodeRRR(opcode.LT, uint8(condReg), uint16(nameReg), uint16(lenReg)))
	exitAddr := c.emit(opcode.EncodeRN(opcode.JF, uint16(condReg), 0))
	c.freeTemp(condReg)

	c.pushLoop()
	c.statementTopLevel()
	breaks, continues := c.popLoop()

	continueAddr := len(c.scope.fn.Code())
	c.patchLabels(continues, continueAddr)
	oneConst := c.addConstant(value.Int(1))
	c.emit(opcode.EncodeRRR(opcode.ADD, uint8(nameReg), uint16(nameReg), uint16(256+oneConst)))
	c.emitJumpTo(condAddr)

	c.patchJump(exitAddr)
	c.patchLabels(breaks, len(c.scope.fn.Code()))
	c.freeTemp(lenReg)
}

// pushSwitchBreak opens a break target for a switch body without opening a
// continue target: breakLabels and continueLabels don't need to stay
// parallel in length (only pushLoop/popLoop, used by real loops, push and
// pop both together), so a continue inside a switch body still falls
// through untouched to whatever loop lexically encloses the switch.
func (c *Compiler) pushSwitchBreak() {
	c.scope.breakLabels = append(c.scope.breakLabels, nil)
}

func (c *Compiler) popSwitchBreak() []*label {
	n := len(c.scope.breakLabels)
	breaks := c.scope.breakLabels[n-1]
	c.scope.breakLabels = c.scope.breakLabels[:n-1]
	return breaks
}

// switchStatement parses `switch (expr) { case c1: stmts ... [default: stmts] }`.
// Spec §4.6's opcode set has no dedicated SWITCH instruction, so this lowers
// to a sequence of EQ/JT tests against the subject followed by an
// unconditional JMP to the default (or past the switch if there is none),
// with every case body captured via the deferred-code-block mechanism and
// spliced in source order after the full test header so that a case body
// falls through into the next one exactly as it would in the emitted byte
// stream.
func (c *Compiler) switchStatement() {
	c.advance()
	c.expect(token.LPAREN)
	subject := c.expression()
	c.expect(token.RPAREN)
	subjectReg := c.bake(subject)

	c.expect(token.LBRACE)
	c.enterBlock()
	c.pushSwitchBreak()

	type switchCase struct {
		jtAddr    int  // address of the JT testing this case (-1 for default)
		isDefault bool
		body      []byte
		breaks    []*label // breaks recorded in body, at body-relative addresses
	}
	var cases []switchCase
	var defaultIdx = -1

	for c.peek().Type != token.RBRACE && c.peek().Type != token.EOF {
		switch c.peek().Type {
		case token.CASE:
			c.advance()
			caseVal := c.expression()
			c.expect(token.COLON)
			labelReg := c.bake(caseVal)
			eqReg := c.allocTemp()
			c.emit(opcode.EncodeRRR(opcode.EQ, uint8(eqReg), uint16(subjectReg), uint16(labelReg)))
			jtAddr := c.emit(opcode.EncodeRN(opcode.JT, uint16(eqReg), 0))
			c.freeTemp(eqReg)

			nb := len(c.scope.breakLabels[len(c.scope.breakLabels)-1])
			body := c.captureDeferred(func() {
				for c.peek().Type != token.CASE && c.peek().Type != token.DEFAULT &&
					c.peek().Type != token.RBRACE && c.peek().Type != token.EOF {
					c.statementTopLevel()
				}
			})
			cases = append(cases, switchCase{jtAddr: jtAddr, body: body, breaks: c.scope.breakLabels[len(c.scope.breakLabels)-1][nb:]})
		case token.DEFAULT:
			c.advance()
			c.expect(token.COLON)
			nb := len(c.scope.breakLabels[len(c.scope.breakLabels)-1])
			body := c.captureDeferred(func() {
				for c.peek().Type != token.CASE && c.peek().Type != token.DEFAULT &&
					c.peek().Type != token.RBRACE && c.peek().Type != token.EOF {
					c.statementTopLevel()
				}
			})
			defaultIdx = len(cases)
			cases = append(cases, switchCase{isDefault: true, body: body, breaks: c.scope.breakLabels[len(c.scope.breakLabels)-1][nb:]})
		default:
			c.errorf("expected case or default in switch body")
			c.advance()
		}
	}
	c.expect(token.RBRACE)

	fallthroughAddr := c.emit(opcode.EncodeRN(opcode.JMP, 0, 0))

	bodyStart := make([]int, len(cases))
	for i, cs := range cases {
		bodyStart[i] = len(c.scope.fn.Code())
		c.scope.fn.SetCode(append(c.scope.fn.Code(), cs.body...))
		for _, l := range cs.breaks {
			l.patchAddr += bodyStart[i]
		}
	}
	switchEnd := len(c.scope.fn.Code())

	for i, cs := range cases {
		if cs.isDefault {
			continue
		}
		c.patchLabels([]*label{{patchAddr: cs.jtAddr}}, bodyStart[i])
	}
	if defaultIdx >= 0 {
		c.patchLabels([]*label{{patchAddr: fallthroughAddr}}, bodyStart[defaultIdx])
	} else {
		c.patchLabels([]*label{{patchAddr: fallthroughAddr}}, switchEnd)
	}

	breaks := c.popSwitchBreak()
	c.patchLabels(breaks, len(c.scope.fn.Code()))
	c.exitBlock()
}

// captureDeferred runs fn with code emission redirected to a side buffer,
// returning the bytes it produced (spec §4.5's "Deferred code block").
func (c *Compiler) captureDeferred(fn func()) []byte {
	mainCode := c.scope.fn.Code()
	c.scope.fn.SetCode(nil)
	fn()
	deferred := c.scope.fn.Code()
	c.scope.fn.SetCode(mainCode)
	return deferred
}

// functionDeclaration parses `function name(params) { body }` and binds
// name to the resulting closure/constant in the enclosing scope.
func (c *Compiler) functionDeclaration() {
	c.advance()
	nameTok := c.expect(token.IDENT)
	nameAtom := c.atomize(nameTok.Text)
	reg := c.pushLocal(nameAtom)
	fnOperand := c.parseFunctionBody(nameAtom)
	c.store(registerOperand(reg), fnOperand)
}

func (c *Compiler) functionExpression() operand {
	c.advance()
	name := atom.NoAtom
	if c.peek().Type == token.IDENT {
		name = c.atomize(c.advance().Text)
	}
	return c.parseFunctionBody(name)
}

// parseFunctionBodyRaw parses `(params) { body }` as a nested Function,
// compiling it in its own funcScope chained to the current one (for
// upvalue resolution), and returns the finished Function without touching
// the enclosing function's constants or registers.
func (c *Compiler) parseFunctionBodyRaw(name atom.Atom) *object.Function {
	fn := object.NewFunction(c.scope.fn)
	fn.SetName(name)

	parent := c.scope
	c.scope = &funcScope{fn: fn, parent: parent, tempNext: maxTempRegister}

	c.expect(token.LPAREN)
	nparams := 0
	for c.peek().Type != token.RPAREN && c.peek().Type != token.EOF {
		paramTok := c.expect(token.IDENT)
		c.pushLocal(c.atomize(paramTok.Text))
		nparams++
		if c.peek().Type != token.COMMA {
			break
		}
		c.advance()
	}
	c.expect(token.RPAREN)
	fn.SetFormalParamCount(nparams)

	c.expect(token.LBRACE)
	c.enterBlock()
	for c.peek().Type != token.RBRACE && c.peek().Type != token.EOF {
		c.statementTopLevel()
	}
	c.exitBlock()
	c.expect(token.RBRACE)

	c.emit(opcode.EncodeRN(opcode.END, 0, 0))
	c.reconcileRegisters(c.scope)

	c.scope = parent
	return fn
}

// parseFunctionBody parses `(params) { body }`, compiling it as a nested
// Function pushed as a constant in the enclosing function. If the nested
// function ended up capturing any upvalues (per spec §4.5's "Closures"
// subsection), a CLOSURE instruction wraps the constant to bind them at
// the definition site; otherwise the bare constant load is the result.
func (c *Compiler) parseFunctionBody(name atom.Atom) operand {
	fn := c.parseFunctionBodyRaw(name)
	constIdx := c.addConstant(value.StaticObject(fn))
	if len(fn.UpValueDescs()) == 0 {
		return constantOperand(constIdx)
	}
	dst := c.allocTemp()
	c.emit(opcode.EncodeRRR(opcode.CLOSURE, uint8(dst), uint16(256+constIdx), 0))
	return registerOperand(dst)
}

// classDeclaration parses `class Name { [constructor(params) {...}] method(params) {...} ... }`.
// A class compiles to a MaterObject whose properties are its methods
// (Function constants), with `constructor` special-cased as the call
// target `new` invokes (spec §4.5's "class" subsection).
func (c *Compiler) classDeclaration() {
	c.advance()
	nameTok := c.expect(token.IDENT)
	nameAtom := c.atomize(nameTok.Text)
	reg := c.pushLocal(nameAtom)

	cls := object.NewMaterObject(c.atoms, false)
	c.expect(token.LBRACE)
	for c.peek().Type != token.RBRACE && c.peek().Type != token.EOF {
		if c.peek().Type == token.SEMICOLON {
			c.advance()
			continue
		}
		methodTok := c.expect(token.IDENT)
		methodName := c.atomize(methodTok.Text)
		fn := c.parseFunctionBodyRaw(methodName)
		cls.SetProperty(methodName, value.StaticObject(fn), object.SetPropertyAlwaysAdd)
	}
	c.expect(token.RBRACE)

	constIdx := c.addConstant(value.StaticObject(cls))
	c.store(registerOperand(reg), constantOperand(constIdx))
}
