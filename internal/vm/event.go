package vm

import (
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// EventSource is the VM's view of the event queue (spec §4.9): Pop
// removes and returns the oldest pending event tuple, reporting ok=false
// when the queue is empty. internal/event implements this.
type EventSource interface {
	Pop() (fn value.Value, this value.Value, args []value.Value, ok bool)
}

// drainOneEvent implements spec §4.7's dispatch-loop step 2. A pending
// event's callback is not run to completion here — it only gets its call
// frame set up, exactly like an ordinary CALL, and then this turn ends:
// the callback's bytecode runs on the VM's next scheduled turn, the same
// way any other call would. The caller (Execute) notices vm.pendingYield
// and returns Yield to the scheduler without decoding another
// instruction. A native target has no bytecode frame to resume into, so
// it runs synchronously here and is simply not given anywhere to put a
// result — there's no CALL site waiting on one.
func (vm *VM) drainOneEvent() error {
	if vm.events == nil {
		return nil
	}
	fn, this, args, ok := vm.events.Pop()
	if !ok {
		return nil
	}
	target, ok := vm.resolveCallable(fn)
	if !ok {
		return nil
	}

	for _, a := range args {
		vm.stack = append(vm.stack, a)
	}
	nparams := int32(len(args))

	switch {
	case target.fn != nil:
		vm.executingEvent = true
		vm.pushFrame(target.fn, target.closure, this, nparams, vm.lineno, false)
	case target.nativeFn != nil:
		if err := vm.callNative(target.nativeFn, this, nparams); err != nil {
			return err
		}
		vm.stack = vm.stack[:len(vm.stack)-1] // no CALL site to hand the result to
	case target.obj != nil:
		cr, err := target.obj.Call(vm, this, nparams, false)
		if err != nil {
			return err
		}
		if err := vm.finishObjectCall(cr, nparams); err != nil {
			return err
		}
		vm.stack = vm.stack[:len(vm.stack)-1]
	default:
		vm.stack = vm.stack[:len(vm.stack)-int(nparams)]
		return nil
	}

	latched := value.CallReturnValue{Kind: value.CallReturnYield}
	vm.pendingYield = &latched
	return nil
}
