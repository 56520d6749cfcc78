package lexer

import (
	"testing"

	"github.com/cmarrin/m8rscript-sub000/internal/token"
)

func collect(src string) []token.Token {
	l := New(src)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks
}

func TestKeywordsAndIdent(t *testing.T) {
	toks := collect("var x = function")
	want := []token.Type{token.VAR, token.IDENT, token.ASSIGN, token.FUNCTION, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Fatalf("token %d = %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	toks := collect("42 3.14 1e10 0xFF")
	wantTypes := []token.Type{token.INTEGER, token.FLOAT, token.FLOAT, token.INTEGER}
	for i, w := range wantTypes {
		if toks[i].Type != w {
			t.Fatalf("token %d type = %v, want %v", i, toks[i].Type, w)
		}
	}
	if toks[0].Text != "42" || toks[3].Text != "0xFF" {
		t.Fatalf("unexpected literal text: %q / %q", toks[0].Text, toks[3].Text)
	}
}

func TestStringEscapes(t *testing.T) {
	toks := collect(`"a\nb" 'c\td'`)
	if toks[0].Text != "a\nb" {
		t.Fatalf("escape decode failed: %q", toks[0].Text)
	}
	if toks[1].Text != "c\td" {
		t.Fatalf("escape decode failed: %q", toks[1].Text)
	}
}

func TestUnterminatedString(t *testing.T) {
	toks := collect(`"abc`)
	if toks[0].Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL for unterminated string, got %v", toks[0].Type)
	}
}

func TestCommentsSkipped(t *testing.T) {
	toks := collect("var /* c */ x // trailing\n= 1")
	want := []token.Type{token.VAR, token.IDENT, token.ASSIGN, token.INTEGER, token.EOF}
	for i, w := range want {
		if toks[i].Type != w {
			t.Fatalf("token %d = %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestMultiCharOperators(t *testing.T) {
	toks := collect("== != <= >= && || ++ -- << >> >>>")
	want := []token.Type{
		token.EQ, token.NEQ, token.LTE, token.GTE, token.ANDAND, token.OROR,
		token.INC, token.DEC, token.LSHIFT, token.RSHIFT, token.RSHIFTFILL, token.EOF,
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Fatalf("token %d = %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestGetTokenLookaheadDoesNotConsume(t *testing.T) {
	l := New("var x")
	first := l.GetToken()
	second := l.GetToken()
	if first.Type != second.Type || first.Text != second.Text {
		t.Fatal("GetToken should be idempotent without RetireToken")
	}
	l.RetireToken()
	next := l.Next()
	if next.Type != token.IDENT {
		t.Fatalf("expected IDENT after retiring VAR, got %v", next.Type)
	}
}
