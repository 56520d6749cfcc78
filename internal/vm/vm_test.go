package vm

import (
	"testing"

	"github.com/cmarrin/m8rscript-sub000/internal/object"
	"github.com/cmarrin/m8rscript-sub000/internal/opcode"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// newTestProgram builds a Program whose top-level code is whatever the
// caller appends to it via emit; each test sizes the frame with
// fn.NoteRegister.
func newTestProgram() *object.Program {
	return object.NewProgram()
}

func emit(fn *object.Function, instr uint32) {
	fn.SetCode(opcode.AppendInstruction(fn.Code(), instr))
}

// runTop executes prog's top-level code and returns the VM for inspection.
func runTop(t *testing.T, prog *object.Program) *VM {
	t.Helper()
	v := New(prog, Options{})
	cr, err := v.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if cr.Kind != value.CallReturnFinished {
		t.Fatalf("Execute finished with kind %v, want CallReturnFinished", cr.Kind)
	}
	return v
}

// pushTop returns the value left on the evaluation stack by a PUSH just
// before the top-level END, since END never consumes the stack itself.
func pushTop(v *VM) value.Value {
	return v.stack[len(v.stack)-1]
}

func TestArithmeticAddMul(t *testing.T) {
	prog := newTestProgram()
	fn := &prog.Function

	// r0 = 2, r1 = 3, r2 = 1, r2 = r2 + (r0 * r1); push r2; end.
	c1 := fn.AddConstant(value.Int(2))
	c2 := fn.AddConstant(value.Int(3))
	c3 := fn.AddConstant(value.Int(1))
	fn.NoteRegister(2)

	emit(fn, opcode.EncodeRRR(opcode.MOVE, 0, uint16(256+c1), 0))
	emit(fn, opcode.EncodeRRR(opcode.MOVE, 1, uint16(256+c2), 0))
	emit(fn, opcode.EncodeRRR(opcode.MOVE, 2, uint16(256+c3), 0))
	emit(fn, opcode.EncodeRRR(opcode.MUL, 0, 0, 1))      // r0 = r0 * r1 = 6
	emit(fn, opcode.EncodeRRR(opcode.ADD, 2, 2, 0))       // r2 = r2 + r0 = 7
	emit(fn, opcode.EncodeRRR(opcode.PUSH, 2, 0, 0))
	emit(fn, opcode.EncodeRN(opcode.END, 0, 0))

	v := runTop(t, prog)
	got := pushTop(v)
	if got.Kind() != value.KindInteger || got.AsInt() != 7 {
		t.Fatalf("result = %v, want integer 7", got)
	}
}

func TestComparisonLessThan(t *testing.T) {
	prog := newTestProgram()
	fn := &prog.Function

	c1 := fn.AddConstant(value.Int(5))
	c2 := fn.AddConstant(value.Int(10))
	fn.NoteRegister(2)

	emit(fn, opcode.EncodeRRR(opcode.MOVE, 0, uint16(256+c1), 0))
	emit(fn, opcode.EncodeRRR(opcode.MOVE, 1, uint16(256+c2), 0))
	emit(fn, opcode.EncodeRRR(opcode.LT, 2, 0, 1)) // r2 = r0 < r1 = true
	emit(fn, opcode.EncodeRRR(opcode.PUSH, 2, 0, 0))
	emit(fn, opcode.EncodeRN(opcode.END, 0, 0))

	v := runTop(t, prog)
	got := pushTop(v)
	if got.Kind() != value.KindBool || !got.AsBool() {
		t.Fatalf("result = %v, want true", got)
	}
}

func TestJumpSkipsInstruction(t *testing.T) {
	prog := newTestProgram()
	fn := &prog.Function
	fn.NoteRegister(0)

	c1 := fn.AddConstant(value.Int(1))
	c2 := fn.AddConstant(value.Int(2))

	// r0 = 1; jmp +8 (skip the next MOVE); r0 = 2; push r0; end.
	emit(fn, opcode.EncodeRRR(opcode.MOVE, 0, uint16(256+c1), 0))
	jmpAddr := len(fn.Code())
	emit(fn, opcode.EncodeRN(opcode.JMP, 0, 0)) // patched below
	emit(fn, opcode.EncodeRRR(opcode.MOVE, 0, uint16(256+c2), 0))
	pushAddr := len(fn.Code())
	emit(fn, opcode.EncodeRRR(opcode.PUSH, 0, 0, 0))
	emit(fn, opcode.EncodeRN(opcode.END, 0, 0))

	// Patch the JMP to land on the PUSH, skipping the second MOVE.
	disp := uint32(pushAddr-jmpAddr) & 0x1FFFF
	code := fn.Code()
	patched := opcode.EncodeRN(opcode.JMP, 0, disp)
	code[jmpAddr] = byte(patched)
	code[jmpAddr+1] = byte(patched >> 8)
	code[jmpAddr+2] = byte(patched >> 16)
	code[jmpAddr+3] = byte(patched >> 24)
	fn.SetCode(code)

	v := runTop(t, prog)
	got := pushTop(v)
	if got.AsInt() != 1 {
		t.Fatalf("result = %d, want 1 (the jump should have skipped the second MOVE)", got.AsInt())
	}
}

func TestTerminationStopsExecution(t *testing.T) {
	prog := newTestProgram()
	fn := &prog.Function
	emit(fn, opcode.EncodeRN(opcode.END, 0, 0))

	v := New(prog, Options{})
	v.RequestTermination()
	cr, err := v.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if cr.Kind != value.CallReturnTerminated {
		t.Fatalf("cr.Kind = %v, want CallReturnTerminated", cr.Kind)
	}
	if !v.Terminated() {
		t.Fatal("Terminated() should report true after RequestTermination")
	}
}

func TestPropertyMissingIsRuntimeError(t *testing.T) {
	prog := newTestProgram()
	fn := &prog.Function
	fn.NoteRegister(1)

	nameAtom, err := prog.Atoms.Atomize("missing")
	if err != nil {
		t.Fatal(err)
	}
	c1 := fn.AddConstant(value.ID(nameAtom))

	// r0 = None (not an object); LOADPROP r1 = r0.missing -> runtime error,
	// counted but not fatal on its own (the budget is maxRuntimeErrors).
	emit(fn, opcode.EncodeRRR(opcode.LOADPROP, 1, 0, uint16(256+c1)))
	emit(fn, opcode.EncodeRN(opcode.END, 0, 0))

	v := New(prog, Options{})
	cr, execErr := v.Execute()
	if execErr != nil {
		t.Fatalf("Execute: %v", execErr)
	}
	if cr.Kind != value.CallReturnFinished {
		t.Fatalf("cr.Kind = %v, want CallReturnFinished (one runtime error shouldn't halt the program)", cr.Kind)
	}
	if v.errorCount != 1 {
		t.Fatalf("errorCount = %d, want 1", v.errorCount)
	}
	if v.Terminated() {
		t.Fatal("a single runtime error should not request termination")
	}
}
