package diag

import (
	"os"
	"strings"
	"testing"
)

func TestFormatCompileError(t *testing.T) {
	s := FormatCompileError(12, "unexpected token")
	if !strings.Contains(s, "line 12") || !strings.Contains(s, "unexpected token") {
		t.Fatalf("FormatCompileError output missing expected fields: %q", s)
	}
}

func TestFormatRuntimeErrorNoStack(t *testing.T) {
	s := FormatRuntimeError(7, "undefined property", "")
	if !strings.Contains(s, "line 7") || !strings.Contains(s, "undefined property") {
		t.Fatalf("FormatRuntimeError output missing expected fields: %q", s)
	}
	if strings.Count(s, "\n") != 0 {
		t.Fatalf("FormatRuntimeError with no stack snapshot should be one line, got %q", s)
	}
}

func TestFormatRuntimeErrorWithStack(t *testing.T) {
	s := FormatRuntimeError(7, "undefined property", "at foo (line 7)\nat main (line 20)")
	if !strings.Contains(s, "at foo") {
		t.Fatalf("FormatRuntimeError should append the stack snapshot, got %q", s)
	}
}

func TestWriterNonTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "diag")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := Writer(f)
	if w == nil {
		t.Fatal("Writer should never return nil")
	}
}
