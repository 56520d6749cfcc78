package object

import (
	"testing"

	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

func TestMaterObjectPropertyRoundTrip(t *testing.T) {
	atoms := &atom.Table{}
	a, _ := atoms.Atomize("x")
	o := NewMaterObject(atoms, false)

	if !o.SetProperty(a, value.Int(42), SetPropertyAddIfNeeded) {
		t.Fatal("SetProperty should succeed with AddIfNeeded")
	}
	got := o.Property(a)
	if got.Kind() != value.KindInteger || got.AsInt() != 42 {
		t.Fatalf("Property(x) = %v, want Integer(42)", got)
	}
}

func TestMaterObjectProtoFallthrough(t *testing.T) {
	atoms := &atom.Table{}
	a, _ := atoms.Atomize("y")
	proto := NewMaterObject(atoms, false)
	proto.SetProperty(a, value.Int(7), SetPropertyAddIfNeeded)

	child := NewMaterObject(atoms, false)
	child.SetProto(proto)

	got := child.Property(a)
	if got.Kind() != value.KindInteger || got.AsInt() != 7 {
		t.Fatalf("proto fallthrough failed: got %v", got)
	}
}

func TestMaterObjectArrayMode(t *testing.T) {
	atoms := &atom.Table{}
	arr := NewMaterObject(atoms, true)
	arr.PushBack(value.Int(1))
	arr.PushBack(value.Int(2))
	if arr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", arr.Len())
	}
	if got := arr.Element(nil, value.Int(1)); got.AsInt() != 2 {
		t.Fatalf("Element(1) = %v, want 2", got)
	}
	if got := arr.Element(nil, value.Int(5)); got.Kind() != value.KindNone {
		t.Fatalf("out-of-range element should be None, got %v", got)
	}
}

func TestUpValueOpenClose(t *testing.T) {
	u := NewOpenUpValue(3)
	if u.IsClosed() {
		t.Fatal("freshly created upvalue should be open")
	}
	u.Close(value.Int(99))
	if !u.IsClosed() {
		t.Fatal("Close should mark the upvalue closed")
	}
	if got := u.Load(value.None); got.AsInt() != 99 {
		t.Fatalf("Load() after close = %v, want 99", got)
	}
}

func TestOpenUpValueListDedupAndClose(t *testing.T) {
	var list OpenUpValueList
	u1 := NewOpenUpValue(5)
	list.Add(u1)

	if found := list.FindOpen(5); found != u1 {
		t.Fatal("FindOpen should return the existing open upvalue for the same stack index")
	}
	if found := list.FindOpen(6); found != nil {
		t.Fatal("FindOpen should return nil for an unused stack index")
	}

	list.CloseFrom(5, func(idx int32) value.Value { return value.Int(idx * 10) })
	if !u1.IsClosed() {
		t.Fatal("CloseFrom should close upvalues at or above frameBase")
	}
	if got := u1.Load(value.None); got.AsInt() != 50 {
		t.Fatalf("closed upvalue value = %v, want 50", got)
	}
	if list.FindOpen(5) != nil {
		t.Fatal("closed upvalue should be unlinked from the open list")
	}
}

func TestFunctionConstantsAndRegisters(t *testing.T) {
	f := NewFunction(nil)
	if len(f.Constants()) != 1 {
		t.Fatalf("expected reserved sentinel constant, got %d entries", len(f.Constants()))
	}
	idx := f.AddConstant(value.Int(5))
	if idx != 1 {
		t.Fatalf("AddConstant index = %d, want 1", idx)
	}
	f.NoteRegister(10)
	f.NoteRegister(4)
	if f.MaxRegister() != 10 {
		t.Fatalf("MaxRegister() = %d, want 10", f.MaxRegister())
	}
}

func TestClosureGCMarkReachesUpvaluesAndThis(t *testing.T) {
	fn := NewFunction(nil)
	u := NewOpenUpValue(0)
	u.Close(value.Int(3))
	c := NewClosure(fn, []*UpValue{u}, value.Int(1))

	var marked []value.Value
	c.GCMark(func(v value.Value) { marked = append(marked, v) })
	if len(marked) < 2 {
		t.Fatalf("expected at least this+upvalue marked, got %d", len(marked))
	}
}
