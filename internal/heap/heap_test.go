package heap

import "testing"

func TestBlockSizeSelection(t *testing.T) {
	h, err := New(1024)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	if h.BlockSize() != blockSize4 {
		t.Fatalf("small heap should pick the smallest block size, got %d", h.BlockSize())
	}
}

func TestAllocFreeRoundTrip(t *testing.T) {
	h, err := New(4096)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	a := h.Alloc(32, TypeObject)
	if a == NoMad {
		t.Fatal("expected successful allocation")
	}
	b := h.Bytes(a)
	for i := range b {
		b[i] = byte(i)
	}
	blocks, allocs := h.Counts(TypeObject)
	if blocks == 0 || allocs != 1 {
		t.Fatalf("counts not updated: blocks=%d allocs=%d", blocks, allocs)
	}

	h.Free(a)
	blocks, allocs = h.Counts(TypeObject)
	if blocks != 0 || allocs != 0 {
		t.Fatalf("counts not cleared after free: blocks=%d allocs=%d", blocks, allocs)
	}
}

func TestAllocExhaustion(t *testing.T) {
	h, err := New(64)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	var handles []Mad
	for {
		m := h.Alloc(4, TypeString)
		if m == NoMad {
			break
		}
		handles = append(handles, m)
	}
	if len(handles) == 0 {
		t.Fatal("expected at least one successful allocation before exhaustion")
	}
}

func TestFreeCoalescesNeighbors(t *testing.T) {
	h, err := New(1024)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	a := h.Alloc(16, TypeObject)
	b := h.Alloc(16, TypeObject)
	c := h.Alloc(16, TypeObject)
	if a == NoMad || b == NoMad || c == NoMad {
		t.Fatal("expected three successful allocations")
	}

	h.Free(a)
	h.Free(c)
	h.Free(b)

	// After freeing all three adjacent blocks, a single large allocation
	// spanning their combined size should succeed, proving they coalesced
	// into one free run rather than staying fragmented.
	big := h.Alloc(3*16-1, TypeObject)
	if big == NoMad {
		t.Fatal("expected coalesced free blocks to satisfy a larger allocation")
	}
}

func TestMarkSweepViaGC(t *testing.T) {
	h, err := New(4096)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	keep := h.Alloc(16, TypeObject)
	drop := h.Alloc(16, TypeObject)

	g := NewGC(h)
	g.MarkRoots = func(mark MarkFunc) {
		mark(keep, TypeObject)
	}

	g.Collect(true)

	if h.IsFree(keep) {
		t.Fatal("reachable object was swept")
	}
	if !h.IsFree(drop) {
		t.Fatal("unreachable object survived sweep")
	}
}

func TestGCTickResumable(t *testing.T) {
	h, err := New(4096)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	obj := h.Alloc(16, TypeObject)
	g := NewGC(h)
	g.MarkRoots = func(mark MarkFunc) { mark(obj, TypeObject) }

	steps := 0
	for g.Tick(true) {
		steps++
		if steps > 10 {
			t.Fatal("GC did not terminate within expected phase count")
		}
	}
	if h.IsFree(obj) {
		t.Fatal("reachable object swept during resumable tick collection")
	}
}

func TestShouldRunThresholds(t *testing.T) {
	h, err := New(4096)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	g := NewGC(h)
	if g.ShouldRun() {
		t.Fatal("fresh GC with no allocations should not want to run")
	}
	g.callsSinceLastGC = maxCallsSinceLastGC
	if !g.ShouldRun() {
		t.Fatal("call-count threshold should trigger ShouldRun")
	}
}
