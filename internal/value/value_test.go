package value

import "testing"

func TestEqualByKind(t *testing.T) {
	if !None.Equal(Value{}) {
		t.Fatal("zero Value should equal None")
	}
	if !Int(5).Equal(Int(5)) {
		t.Fatal("equal ints should compare equal")
	}
	if Int(5).Equal(Int(6)) {
		t.Fatal("distinct ints compared equal")
	}
	if Int(5).Equal(Float(5)) {
		t.Fatal("Integer and Float with same magnitude must not compare equal")
	}
	if !Bool(true).Equal(Bool(true)) {
		t.Fatal("equal bools should compare equal")
	}
	if Bool(true).Equal(Bool(false)) {
		t.Fatal("distinct bools compared equal")
	}
}

func TestEqualNaN(t *testing.T) {
	nan := Float(float32(nanValue()))
	if !nan.Equal(nan) {
		t.Fatal("NaN should compare equal to itself under Value.Equal")
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestIsNumber(t *testing.T) {
	if !Int(1).IsNumber() || !Float(1).IsNumber() {
		t.Fatal("Integer and Float must report IsNumber")
	}
	if Bool(true).IsNumber() {
		t.Fatal("Bool must not report IsNumber")
	}
}

func TestKindString(t *testing.T) {
	if Kind(255).String() != "Unknown" {
		t.Fatalf("unexpected Kind.String() for out-of-range kind")
	}
	if KindInteger.String() != "Integer" {
		t.Fatalf("KindInteger.String() = %q", KindInteger.String())
	}
}
