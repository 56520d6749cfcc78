package atom

import "testing"

func TestSharedTableConsistency(t *testing.T) {
	if len(sharedNames) != NSharedAtoms {
		t.Fatalf("NSharedAtoms = %d, want %d", NSharedAtoms, len(sharedNames))
	}
	if int(Count) != NSharedAtoms-1 {
		t.Fatalf("Count constant = %d, want %d", Count, NSharedAtoms-1)
	}
}

func TestAtomizeRoundTrip(t *testing.T) {
	var tbl Table
	a1, err := tbl.Atomize("frobnicate")
	if err != nil {
		t.Fatal(err)
	}
	a2, err := tbl.Atomize("other")
	if err != nil {
		t.Fatal(err)
	}
	a3, err := tbl.Atomize("frobnicate")
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a3 {
		t.Fatalf("atomize not idempotent: %d != %d", a1, a3)
	}
	if a1 == a2 {
		t.Fatalf("distinct strings got same atom")
	}
	if tbl.String(a1) != "frobnicate" {
		t.Fatalf("String(a1) = %q", tbl.String(a1))
	}
	if tbl.String(a2) != "other" {
		t.Fatalf("String(a2) = %q", tbl.String(a2))
	}
}

func TestAtomizeSharedName(t *testing.T) {
	var tbl Table
	a, err := tbl.Atomize("length")
	if err != nil {
		t.Fatal(err)
	}
	if a != Length {
		t.Fatalf("atomize(\"length\") = %d, want shared id %d", a, Length)
	}
	if !tbl.IsShared(a) {
		t.Fatal("expected shared atom")
	}
	if tbl.Len() != 0 {
		t.Fatalf("shared name should not grow user table, Len() = %d", tbl.Len())
	}
}

func TestAtomizeTooLong(t *testing.T) {
	var tbl Table
	long := make([]byte, MaxUserAtomLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := tbl.Atomize(string(long)); err == nil {
		t.Fatal("expected error for over-length identifier")
	}
}

func TestStringUnknownAtom(t *testing.T) {
	var tbl Table
	if s := tbl.String(Atom(9999)); s != "" {
		t.Fatalf("String(unknown) = %q, want empty", s)
	}
	if s := tbl.String(NoAtom); s != "" {
		t.Fatalf("String(NoAtom) = %q, want empty", s)
	}
}
