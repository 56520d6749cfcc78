package object

import (
	"github.com/cmarrin/m8rscript-sub000/internal/heap"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// Store binds heap.Mad handles — the budget-accounted, mark-swept
// allocation unit from spec §4.1 — to the live values they name: an
// Object for every KindObject/KindNativeObject handle, text for every
// KindString handle. heap itself stays ignorant of object layout (that
// package's own design goal); Store is the one piece that bridges a
// handle back to the Go value it names, and is wired to a heap.GC's
// MarkObject/Destroy hooks so collection reaches script-visible state.
//
// Object payloads are ordinary Go values (MaterObject, Closure, ...)
// living under Go's own GC; the heap.Alloc call behind NewObject is
// accounting only, sized to whatever the caller considers the object's
// budget cost. String payloads are real bytes copied into the heap
// arena, since spec §4.1's block arena is exactly where the source
// stores string data.
type Store struct {
	heap    *heap.Heap
	objects map[heap.Mad]Object
	strLen  map[heap.Mad]int
}

// NewStore creates a Store backed by h.
func NewStore(h *heap.Heap) *Store {
	return &Store{
		heap:    h,
		objects: make(map[heap.Mad]Object),
		strLen:  make(map[heap.Mad]int),
	}
}

// NewObject allocates size bytes of heap budget for o and registers it
// under the returned handle. Returns heap.NoMad on exhaustion.
func (s *Store) NewObject(o Object, size int) heap.Mad {
	h := s.heap.Alloc(size, heap.TypeObject)
	if h == heap.NoMad {
		return heap.NoMad
	}
	s.objects[h] = o
	return h
}

// Object resolves a KindObject/KindNativeObject handle back to its Object,
// or nil if h names no live registration.
func (s *Store) Object(h heap.Mad) Object { return s.objects[h] }

// NewString copies str into the heap arena and registers its length,
// returning its handle. Returns heap.NoMad on exhaustion.
func (s *Store) NewString(str string) heap.Mad {
	h := s.heap.Alloc(len(str), heap.TypeString)
	if h == heap.NoMad {
		return heap.NoMad
	}
	copy(s.heap.Bytes(h), str)
	s.strLen[h] = len(str)
	return h
}

// String resolves a KindString handle back to its text.
func (s *Store) String(h heap.Mad) string {
	n, ok := s.strLen[h]
	if !ok {
		return ""
	}
	return string(s.heap.Bytes(h)[:n])
}

// MarkObject implements heap.GC's MarkObject hook: it recurses into one
// already-marked object's own references via its GCMark method,
// translating each referenced Value into the (handle, MemoryType) pair
// the GC's mark function expects.
func (s *Store) MarkObject(h heap.Mad, mt heap.MemoryType, mark heap.MarkFunc) {
	if mt != heap.TypeObject {
		return
	}
	o, ok := s.objects[h]
	if !ok {
		return
	}
	o.GCMark(func(v value.Value) {
		switch v.Kind() {
		case value.KindObject, value.KindNativeObject:
			mark(v.AsHandle(), heap.TypeObject)
		case value.KindString:
			mark(v.AsHandle(), heap.TypeString)
		}
	})
}

// Destroy implements heap.GC's Destroy hook: it drops a swept handle's
// registration so its Go value (and, for strings, its length record)
// becomes collectible by Go's own GC in turn.
func (s *Store) Destroy(h heap.Mad, mt heap.MemoryType) {
	switch mt {
	case heap.TypeObject:
		delete(s.objects, h)
	case heap.TypeString:
		delete(s.strLen, h)
	}
}
