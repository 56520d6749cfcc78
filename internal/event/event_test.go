package event

import (
	"testing"

	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

func TestFIFOOrder(t *testing.T) {
	q := New()
	q.Post(value.Int(1), value.None, nil)
	q.Post(value.Int(2), value.None, nil)
	q.Post(value.Int(3), value.None, nil)

	for _, want := range []int32{1, 2, 3} {
		fn, _, _, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop: queue empty, want %d", want)
		}
		if got := fn.AsInt(); got != want {
			t.Fatalf("Pop fn = %d, want %d", got, want)
		}
	}
	if _, _, _, ok := q.Pop(); ok {
		t.Fatal("Pop on drained queue returned ok=true")
	}
}

func TestEmptyAndLen(t *testing.T) {
	q := New()
	if !q.Empty() {
		t.Fatal("new queue should be empty")
	}
	q.Post(value.None, value.None, []value.Value{value.Int(7)})
	if q.Empty() {
		t.Fatal("queue with one event reported empty")
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
	q.Pop()
	if !q.Empty() {
		t.Fatal("queue should be empty after draining its only event")
	}
}

func TestArgsPreserved(t *testing.T) {
	q := New()
	args := []value.Value{value.Int(10), value.Int(20)}
	q.Post(value.None, value.Int(99), args)

	_, this, gotArgs, ok := q.Pop()
	if !ok {
		t.Fatal("Pop: expected an event")
	}
	if this.AsInt() != 99 {
		t.Fatalf("this = %d, want 99", this.AsInt())
	}
	if len(gotArgs) != 2 || gotArgs[0].AsInt() != 10 || gotArgs[1].AsInt() != 20 {
		t.Fatalf("args = %v, want [10 20]", gotArgs)
	}
}
