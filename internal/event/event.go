// Package event implements spec §4.9's event queue: a FIFO of pending
// callback invocations posted by the host (I/O completion, GPIO change,
// a completed network read) for the VM to dispatch on its own schedule.
// Grounded on `original_source/src/ExecutionUnit.cpp`'s `fireEvent`/
// `receivedData`/`runNextEvent`: events are `(func, this, args...)`
// tuples appended under a lock and popped from the front, oldest first.
package event

import (
	"sync"

	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// entry is one queued callback invocation.
type entry struct {
	fn   value.Value
	this value.Value
	args []value.Value
}

// Queue is a thread-safe FIFO of pending events. The zero value is ready
// to use. Posting happens from host callbacks (possibly off the VM's own
// goroutine); popping happens only from the VM's dispatch loop.
type Queue struct {
	mu    sync.Mutex
	items []entry
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Post appends an event, to be dispatched the next time the VM checks
// for pending events (fireEvent's contract: the call is queued, not run
// synchronously, regardless of what goroutine Post runs on).
func (q *Queue) Post(fn value.Value, this value.Value, args []value.Value) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, entry{fn: fn, this: this, args: args})
}

// Pop removes and returns the oldest pending event, implementing
// vm.EventSource. ok is false when the queue is empty.
func (q *Queue) Pop() (fn value.Value, this value.Value, args []value.Value, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return value.None, value.None, nil, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e.fn, e.this, e.args, true
}

// Empty reports whether the queue currently has no pending events.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len reports the number of pending events, mainly for diagnostics and
// tests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
