package token

import "testing"

func TestTypeString(t *testing.T) {
	cases := []struct {
		typ  Type
		want string
	}{
		{PLUS, "+"},
		{VAR, "var"},
		{EOF, "EOF"},
		{RSHIFTFILL, ">>>"},
	}
	for _, c := range cases {
		if got := c.typ.String(); got != c.want {
			t.Fatalf("%v.String() = %q, want %q", c.typ, got, c.want)
		}
	}
}

func TestTypeStringUnknown(t *testing.T) {
	got := Type(10000).String()
	if got != "token(10000)" {
		t.Fatalf("String() of out-of-range Type = %q", got)
	}
}

func TestIsKeyword(t *testing.T) {
	if !VAR.IsKeyword() {
		t.Fatal("VAR should be a keyword")
	}
	if !UNDEFINED.IsKeyword() {
		t.Fatal("UNDEFINED should be a keyword")
	}
	if IDENT.IsKeyword() {
		t.Fatal("IDENT should not be a keyword")
	}
	if PLUS.IsKeyword() {
		t.Fatal("PLUS should not be a keyword")
	}
}

func TestLookupIdent(t *testing.T) {
	if LookupIdent("function") != FUNCTION {
		t.Fatal("LookupIdent should recognize 'function'")
	}
	if LookupIdent("constructor") != CONSTRUCTOR {
		t.Fatal("LookupIdent should recognize 'constructor'")
	}
	if LookupIdent("notakeyword") != IDENT {
		t.Fatal("LookupIdent should fall back to IDENT for non-keywords")
	}
}

func TestPositionString(t *testing.T) {
	p := Position{Line: 3, Column: 7}
	if p.String() != "3:7" {
		t.Fatalf("Position.String() = %q, want %q", p.String(), "3:7")
	}
}
