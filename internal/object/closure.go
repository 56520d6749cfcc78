package object

import (
	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// UpValue is a captured outer-scope variable cell, per spec §3.3 and the
// source's Closure.h. While open (closed=false) it holds a stack index
// as a plain int32 field, and all reads and writes go through the owning
// stack. Closing copies the stack slot's
// current contents into own directly and flips closed to true.
type UpValue struct {
	closed bool
	own    value.Value // valid only once closed
	stackIndex int32    // valid only while open
	marked bool
	next   *UpValue // engine-global open-upvalue list link
}

// NewOpenUpValue creates an upvalue referring to stackIndex on the VM's
// evaluation stack.
func NewOpenUpValue(stackIndex int32) *UpValue {
	return &UpValue{stackIndex: stackIndex}
}

// IsClosed reports whether the upvalue has been detached from the stack.
func (u *UpValue) IsClosed() bool { return u.closed }

// StackIndex returns the stack slot an open upvalue refers to; only valid
// while IsClosed() is false.
func (u *UpValue) StackIndex() int32 { return u.stackIndex }

// Close converts an open upvalue to closed by copying stackValue (the
// current contents of stack[stackIndex]) into its own storage.
func (u *UpValue) Close(stackValue value.Value) {
	if u.closed {
		return
	}
	u.own = stackValue
	u.closed = true
}

// Load returns the upvalue's current value; for an open upvalue the
// caller must have already resolved stack[StackIndex()] and pass it here,
// matching the source's loadUpValue indirection through the execution
// unit's stack.
func (u *UpValue) Load(stackSlot value.Value) value.Value {
	if u.closed {
		return u.own
	}
	return stackSlot
}

// Store sets a closed upvalue's value and returns true; for an open
// upvalue it stores nothing and returns false, and the caller writes v
// into stack[StackIndex()] itself.
func (u *UpValue) Store(v value.Value) (closedNow bool) {
	if u.closed {
		u.own = v
		return true
	}
	return false
}

func (u *UpValue) gcMark(mark func(value.Value)) {
	if u.marked {
		return
	}
	u.marked = true
	if u.closed {
		mark(u.own)
	}
}

// Closure is a Function plus a vector of upvalue cells and a captured
// `this` value (spec §3.3).
type Closure struct {
	base
	fn        *Function
	upvalues  []*UpValue
	thisValue value.Value
}

// NewClosure binds fn with upvalues opened/resolved at creation time and
// the given captured this.
func NewClosure(fn *Function, upvalues []*UpValue, this value.Value) *Closure {
	return &Closure{fn: fn, upvalues: upvalues, thisValue: this}
}

func (c *Closure) TypeName() string     { return "Closure" }
func (c *Closure) ToString(bool) string { return "closure" }

// GCMark marks the underlying function, the captured this, and every
// upvalue (both the cell and, if closed, its owned storage), per spec
// §4.2's Closure::gcMark rule.
func (c *Closure) GCMark(mark func(value.Value)) {
	c.fn.GCMark(mark)
	mark(c.thisValue)
	for _, u := range c.upvalues {
		u.gcMark(mark)
	}
}

func (c *Closure) Property(prop atom.Atom) value.Value { return value.None }
func (c *Closure) SetProperty(atom.Atom, value.Value, SetPropertyType) bool {
	return false
}
func (c *Closure) Element(CallContext, value.Value) value.Value { return value.None }
func (c *Closure) SetElement(CallContext, value.Value, value.Value, bool) bool {
	return false
}

func (c *Closure) Call(eu CallContext, this value.Value, nparams int32, ctor bool) (value.CallReturnValue, error) {
	return value.CallReturnValue{Kind: value.CallReturnFunctionStart}, nil
}
func (c *Closure) CallProperty(CallContext, atom.Atom, int32) (value.CallReturnValue, error) {
	return Unimplemented()
}

// Func returns the closure's underlying compiled function.
func (c *Closure) Func() *Function { return c.fn }

// This returns the captured this value.
func (c *Closure) This() value.Value { return c.thisValue }

// UpValueAt returns the i-th upvalue cell.
func (c *Closure) UpValueAt(i int) *UpValue { return c.upvalues[i] }

// NumUpValues returns the upvalue count.
func (c *Closure) NumUpValues() int { return len(c.upvalues) }

// OpenUpValueList is the engine-global singly linked list of currently
// open upvalues, threaded through UpValue.next for O(open-count) closing
// on function return (spec §3.3's Closure lifecycle note).
type OpenUpValueList struct {
	head *UpValue
}

// Add links u at the head of the list.
func (l *OpenUpValueList) Add(u *UpValue) {
	u.next = l.head
	l.head = u
}

// CloseFrom closes and unlinks every open upvalue whose stack index is
// >= frameBase, copying resolve(idx) into each before flipping it closed.
func (l *OpenUpValueList) CloseFrom(frameBase int32, resolve func(stackIndex int32) value.Value) {
	var prev *UpValue
	cur := l.head
	for cur != nil {
		next := cur.next
		if !cur.closed && cur.stackIndex >= frameBase {
			cur.Close(resolve(cur.stackIndex))
			if prev == nil {
				l.head = next
			} else {
				prev.next = next
			}
		} else {
			prev = cur
		}
		cur = next
	}
}

// FindOpen returns an already-open upvalue referring to stackIndex, for
// dedup when creating a new closure (spec §3.3's "Opening" invariant), or
// nil if none exists yet.
func (l *OpenUpValueList) FindOpen(stackIndex int32) *UpValue {
	for cur := l.head; cur != nil; cur = cur.next {
		if !cur.closed && cur.stackIndex == stackIndex {
			return cur
		}
	}
	return nil
}
