package main

import (
	"strings"
	"testing"

	"github.com/cmarrin/m8rscript-sub000/internal/compiler"
	"github.com/cmarrin/m8rscript-sub000/internal/config"
	"github.com/cmarrin/m8rscript-sub000/internal/object"
	"github.com/cmarrin/m8rscript-sub000/internal/opcode"
)

func TestRunValidScript(t *testing.T) {
	if err := run(config.Default(), "var x = 1 + 2;", false); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunBadSyntax(t *testing.T) {
	if err := run(config.Default(), "{{{", false); err == nil {
		t.Fatal("run should reject unparseable source")
	}
}

func TestDisassembleOutput(t *testing.T) {
	prog := object.NewProgram()
	if err := compiler.Compile("var x = 1;", prog); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out := opcode.Disassemble(prog.Code())
	if !strings.Contains(out, "END") {
		t.Fatalf("disassembly should include the trailing END instruction, got %q", out)
	}
}
