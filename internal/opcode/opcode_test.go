package opcode

import "testing"

func TestRRRRoundTrip(t *testing.T) {
	instr := EncodeRRR(ADD, 3, 260, 10)
	op, a, b, c := DecodeRRR(instr)
	if op != ADD || a != 3 || b != 260 || c != 10 {
		t.Fatalf("round trip mismatch: op=%v a=%d b=%d c=%d", op, a, b, c)
	}
	if !IsConstant(b) || ConstantIndex(b) != 4 {
		t.Fatalf("expected b=260 to resolve to constant index 4, IsConstant=%v idx=%d", IsConstant(b), ConstantIndex(b))
	}
	if IsConstant(c) {
		t.Fatal("c=10 should be a register operand, not a constant")
	}
}

func TestRNRoundTripSignedImmediate(t *testing.T) {
	disp := int32(-5)
	instr := EncodeRN(JMP, 0, uint32(disp)&0x1FFFF)
	op, _, imm := DecodeRN(instr)
	if op != JMP {
		t.Fatalf("op = %v, want JMP", op)
	}
	if got := ImmSigned(imm); got != -5 {
		t.Fatalf("ImmSigned = %d, want -5", got)
	}
}

func TestCALLRoundTrip(t *testing.T) {
	instr := EncodeCALL(CALL, 5, 6, 2)
	op, rcall, rthis, nparams := DecodeCALL(instr)
	if op != CALL || rcall != 5 || rthis != 6 || nparams != 2 {
		t.Fatalf("round trip mismatch: op=%v rcall=%d rthis=%d nparams=%d", op, rcall, rthis, nparams)
	}
}

func TestAppendAndReadInstruction(t *testing.T) {
	var code []byte
	code = AppendInstruction(code, EncodeRRR(MOVE, 1, 2, 0))
	code = AppendInstruction(code, EncodeCALL(CALL, 1, 0, 3))
	if len(code) != 8 {
		t.Fatalf("expected 8 bytes for two instructions, got %d", len(code))
	}
	instr0 := ReadInstruction(code, 0)
	op, a, b, _ := DecodeRRR(instr0)
	if op != MOVE || a != 1 || b != 2 {
		t.Fatalf("first instruction decode mismatch: op=%v a=%d b=%d", op, a, b)
	}
}

func TestDisassembleDoesNotPanic(t *testing.T) {
	var code []byte
	code = AppendInstruction(code, EncodeRRR(ADD, 0, 1, 2))
	code = AppendInstruction(code, EncodeRN(RET, 0, 1))
	out := Disassemble(code)
	if out == "" {
		t.Fatal("expected non-empty disassembly")
	}
}

func TestOpStringKnownAndUnknown(t *testing.T) {
	if ADD.String() != "ADD" {
		t.Fatalf("ADD.String() = %q", ADD.String())
	}
	if Op(255).String() == "ADD" {
		t.Fatal("out-of-range op should not alias a known name")
	}
}
