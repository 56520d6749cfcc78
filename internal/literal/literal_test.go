package literal

import "testing"

func TestRoundTrip(t *testing.T) {
	var tbl Table
	id := tbl.Add("hello")
	if got := tbl.String(id); got != "hello" {
		t.Fatalf("String(id) = %q, want hello", got)
	}
}

func TestAddIdempotent(t *testing.T) {
	var tbl Table
	id1 := tbl.Add("hello")
	id2 := tbl.Add("world")
	id3 := tbl.Add("hello")
	if id1 != id3 {
		t.Fatalf("Add not idempotent: %d != %d", id1, id3)
	}
	if id1 == id2 {
		t.Fatal("distinct strings collided")
	}
	if tbl.String(id2) != "world" {
		t.Fatalf("String(id2) = %q", tbl.String(id2))
	}
}

func TestPrefixDoesNotFalseMatch(t *testing.T) {
	var tbl Table
	idShort := tbl.Add("he")
	idLong := tbl.Add("hello")
	if idShort == idLong {
		t.Fatal("prefix collision")
	}
	if tbl.String(idShort) != "he" || tbl.String(idLong) != "hello" {
		t.Fatalf("got %q / %q", tbl.String(idShort), tbl.String(idLong))
	}
	// Re-adding "he" must still resolve to the original record, not to a
	// byte range landing inside "hello".
	again := tbl.Add("he")
	if again != idShort {
		t.Fatalf("Add(\"he\") = %d, want %d", again, idShort)
	}
}

func TestUnknownID(t *testing.T) {
	var tbl Table
	if s := tbl.String(NoID); s != "" {
		t.Fatalf("String(NoID) = %q", s)
	}
	if s := tbl.String(ID(9999)); s != "" {
		t.Fatalf("String(out of range) = %q", s)
	}
}
