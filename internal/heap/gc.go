package heap

// GCState names one step of the resumable mark-sweep state machine from
// spec §4.2, ported from the engine's newer components/m8rscript/GC.h
// (the normative version per the source's own note that an older,
// simpler templated GC exists alongside it).
type GCState uint8

const (
	StateClearMarkedObj GCState = iota
	StateClearMarkedStr
	StateMarkActive
	StateMarkStatic
	StateSweepObj
	StateSweepStr
	stateIdle
)

// Thresholds mirror GC.h's MaxGCObjectDiff / MaxGCStringDiff / MaxCountSinceLastGC.
const (
	maxObjectDiff      = 10
	maxStringDiff      = 10
	maxCallsSinceLastGC = 20
)

// MarkFunc is invoked by the GC for each handle it needs marked; callers
// supply one that knows how to interpret the bytes at a handle (the heap
// package itself stays ignorant of object layout to avoid importing the
// object package, which in turn depends on heap for allocation).
type MarkFunc func(h Mad, mt MemoryType)

// GC drives the mark-sweep state machine over a Heap. The object and
// string stores it sweeps are the Heap's own block headers, discriminated
// by MemoryType (TypeString vs. everything else that carries TypeObject).
type GC struct {
	heap *Heap

	state            GCState
	prevObjects      uint32
	prevStrings      uint32
	callsSinceLastGC uint32
	inGC             bool

	// MarkRoots marks every handle directly reachable from a root (VM
	// stacks, call records, the event queue, current function/this).
	// Supplied by the engine, which owns the execution units.
	MarkRoots func(mark MarkFunc)
	// MarkStaticRoots marks every registered static object (ObjectFactory
	// prototypes and similar ROM-resident roots).
	MarkStaticRoots func(mark MarkFunc)
	// MarkObject recurses into one already-marked object's own
	// references (a MaterObject's properties and elements, a Function's
	// constants, a Closure's upvalues) via mark.
	MarkObject func(h Mad, mt MemoryType, mark MarkFunc)
	// Destroy runs an object's destructor before its blocks are freed
	// (releasing any owned native object held in a property Value).
	Destroy func(h Mad, mt MemoryType)
}

// NewGC creates a GC bound to heap h. MarkRoots, MarkStaticRoots,
// MarkObject, and Destroy are optional; a phase whose hook is nil skips
// that hook.
func NewGC(h *Heap) *GC {
	return &GC{heap: h, state: stateIdle}
}

// NoteAllocation increments the call counter that feeds the
// callsSinceLastGC trigger; Engine.Run calls it once per scheduler
// iteration (spec's Heartbeat-style tick cadence, not only at allocation
// time).
func (g *GC) NoteAllocation() {
	g.callsSinceLastGC++
}

// ShouldRun reports whether the lazy trigger conditions from spec §4.2
// are met: the blocks held by object or by string allocations changed by
// at least maxObjectDiff / maxStringDiff since the last collection, or
// enough calls have elapsed. It compares block counts (the first result
// of Heap.Counts), not the number of objects or strings.
func (g *GC) ShouldRun() bool {
	objBlocks, _ := g.heap.Counts(TypeObject)
	strBlocks, _ := g.heap.Counts(TypeString)
	if diff(objBlocks, g.prevObjects) >= maxObjectDiff {
		return true
	}
	if diff(strBlocks, g.prevStrings) >= maxStringDiff {
		return true
	}
	return g.callsSinceLastGC >= maxCallsSinceLastGC
}

func diff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// Collect runs every phase of the state machine to completion in a
// single call (a "stop the world" collection), honoring force to bypass
// ShouldRun. Recursive invocation while already in GC is a no-op.
func (g *GC) Collect(force bool) {
	if g.inGC {
		return
	}
	if !force && !g.ShouldRun() {
		return
	}
	g.inGC = true
	g.state = StateClearMarkedObj
	for g.state != stateIdle {
		g.step()
	}
	g.inGC = false

	objBlocks, _ := g.heap.Counts(TypeObject)
	strBlocks, _ := g.heap.Counts(TypeString)
	g.prevObjects = objBlocks
	g.prevStrings = strBlocks
	g.callsSinceLastGC = 0
}

// Tick advances the state machine by exactly one phase, letting a long
// collection spread across scheduler ticks as spec §4.2 allows. Returns
// true while the collection is still in progress after the phase just
// run, and false once that phase completed it or when no collection was
// started.
func (g *GC) Tick(force bool) bool {
	if g.state == stateIdle {
		if g.inGC {
			return false
		}
		if !force && !g.ShouldRun() {
			return false
		}
		g.state = StateClearMarkedObj
		g.inGC = true
	}
	g.step()
	if g.state == stateIdle {
		objBlocks, _ := g.heap.Counts(TypeObject)
		strBlocks, _ := g.heap.Counts(TypeString)
		g.prevObjects = objBlocks
		g.prevStrings = strBlocks
		g.callsSinceLastGC = 0
		g.inGC = false
		return false
	}
	return true
}

func (g *GC) step() {
	switch g.state {
	case StateClearMarkedObj:
		g.heap.Walk(func(h Mad, mt MemoryType, marked bool) {
			if mt != TypeString {
				g.heap.Unmark(h)
			}
		})
		g.state = StateClearMarkedStr
	case StateClearMarkedStr:
		g.heap.Walk(func(h Mad, mt MemoryType, marked bool) {
			if mt == TypeString {
				g.heap.Unmark(h)
			}
		})
		g.state = StateMarkActive
	case StateMarkActive:
		if g.MarkRoots != nil {
			g.MarkRoots(g.mark)
		}
		g.state = StateMarkStatic
	case StateMarkStatic:
		if g.MarkStaticRoots != nil {
			g.MarkStaticRoots(g.mark)
		}
		g.state = StateSweepObj
	case StateSweepObj:
		g.sweep(func(mt MemoryType) bool { return mt != TypeString })
		g.state = StateSweepStr
	case StateSweepStr:
		g.sweep(func(mt MemoryType) bool { return mt == TypeString })
		g.state = stateIdle
	}
}

// mark marks handle h and, if this is the first time it's been marked in
// this pass, recurses into its own references via MarkObject.
func (g *GC) mark(h Mad, mt MemoryType) {
	if h == NoMad || g.heap.Marked(h) {
		return
	}
	g.heap.Mark(h)
	if g.MarkObject != nil {
		g.MarkObject(h, mt, g.mark)
	}
}

func (g *GC) sweep(include func(MemoryType) bool) {
	var dead []Mad
	var deadTypes []MemoryType
	g.heap.Walk(func(h Mad, mt MemoryType, marked bool) {
		if include(mt) && !marked {
			dead = append(dead, h)
			deadTypes = append(deadTypes, mt)
		}
	})
	for i, h := range dead {
		if g.Destroy != nil {
			g.Destroy(h, deadTypes[i])
		}
		g.heap.Free(h)
	}
}

// State returns the current phase, mainly for tests and diagnostics.
func (g *GC) State() GCState { return g.state }

// InProgress reports whether a collection is mid-flight (relevant for
// Tick-driven resumable collection).
func (g *GC) InProgress() bool { return g.inGC }
