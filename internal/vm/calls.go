package vm

import (
	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/object"
	"github.com/cmarrin/m8rscript-sub000/internal/opcode"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// thisNotBound is the compiler's sentinel for CALL's rthis operand when
// the call has no explicit receiver (constant slot 0, always value.None —
// see compiler/expr.go's finishCall). Register 0 is a legitimate real
// register, so the zero value can't double as "no receiver".
const thisNotBound = uint16(256)

// callTarget is what resolveCallable found: exactly one of its fields is
// set.
type callTarget struct {
	nativeFn value.NativeFunc
	fn       *object.Function
	closure  *object.Closure
	obj      object.Object
}

// resolveCallable maps a callee Value to something dispatchable, per spec
// §4.6's CALL/CALLPROP/NEW: a NativeFunction Value calls directly; a
// Function or Closure drives a new call frame; anything else implementing
// Object falls back to its own Call/CallProperty (an extension hook for
// exotic native objects).
func (vm *VM) resolveCallable(v value.Value) (callTarget, bool) {
	switch v.Kind() {
	case value.KindNativeFunction:
		return callTarget{nativeFn: v.AsNativeFunc()}, true
	case value.KindStaticObject:
		switch s := v.AsStatic().(type) {
		case *object.Function:
			return callTarget{fn: s}, true
		case object.Object:
			return callTarget{obj: s}, true
		}
	case value.KindObject, value.KindNativeObject:
		o := vm.store.Object(v.AsHandle())
		if o == nil {
			return callTarget{}, false
		}
		switch s := o.(type) {
		case *object.Closure:
			return callTarget{closure: s, fn: s.Func()}, true
		case *object.Function:
			return callTarget{fn: s}, true
		default:
			return callTarget{obj: o}, true
		}
	}
	return callTarget{}, false
}

// objectOf resolves a Value to the Object it names, for property/element
// access (LOADPROP/STOPROP/LOADELT/STOELT/CALLPROP's receiver lookup).
func (vm *VM) objectOf(v value.Value) object.Object {
	switch v.Kind() {
	case value.KindObject, value.KindNativeObject:
		return vm.store.Object(v.AsHandle())
	case value.KindStaticObject:
		if o, ok := v.AsStatic().(object.Object); ok {
			return o
		}
	}
	return nil
}

// execCallInstr handles the three CALL-shaped opcodes: CALLPROP resolves
// its callee via the same property-lookup path LOADPROP uses (rather than
// routing through Object.CallProperty, which would otherwise need an
// object to construct a Value referring to itself); CALL treats
// thisNotBound as "keep the caller's current this" (an unbound method
// reference, e.g. a bare function call); NEW dispatches through doNew.
func (vm *VM) execCallInstr(op opcode.Op, instr uint32) error {
	_, rcallOperand, rthisOperand, nparams := opcode.DecodeCALL(instr)
	n := int32(nparams)

	switch op {
	case opcode.NEW:
		return vm.doNew(vm.operandValue(rcallOperand), n)

	case opcode.CALLPROP:
		thisVal := vm.operandValue(rthisOperand)
		key := vm.operandValue(rcallOperand)
		obj := vm.objectOf(thisVal)
		if obj == nil {
			return vm.runtimeErrorf(value.ErrPropertyDoesNotExist, "Can't read property")
		}
		return vm.doCall(obj.Property(key.AsAtom()), thisVal, n)

	default: // CALL
		calleeVal := vm.operandValue(rcallOperand)
		thisVal := vm.this
		if rthisOperand != thisNotBound {
			thisVal = vm.operandValue(rthisOperand)
		}
		return vm.doCall(calleeVal, thisVal, n)
	}
}

// doCall dispatches an ordinary (non-constructor) call.
func (vm *VM) doCall(calleeVal value.Value, thisVal value.Value, nparams int32) error {
	target, ok := vm.resolveCallable(calleeVal)
	if !ok {
		return vm.runtimeErrorf(value.ErrCannotCall, "value is not callable")
	}
	switch {
	case target.fn != nil:
		vm.pushFrame(target.fn, target.closure, thisVal, nparams, vm.lineno, false)
		return nil
	case target.nativeFn != nil:
		return vm.callNative(target.nativeFn, thisVal, nparams)
	case target.obj != nil:
		cr, err := target.obj.Call(vm, thisVal, nparams, false)
		if err != nil {
			return err
		}
		return vm.finishObjectCall(cr, nparams)
	}
	return vm.runtimeErrorf(value.ErrCannotCall, "value is not callable")
}

// doNew dispatches NEW: a fresh object is allocated up front (with its
// proto taken from the constructor's "prototype" property if present) and
// is always what lands on the stack for the CALL-site's POP, regardless
// of what the constructor body itself returns — that override happens in
// doReturn via the frame's isCtor flag for Function/Closure constructors;
// the native and exotic-object cases aren't routed through doReturn, so
// this applies the same override inline.
func (vm *VM) doNew(calleeVal value.Value, nparams int32) error {
	target, ok := vm.resolveCallable(calleeVal)
	if !ok {
		return vm.runtimeErrorf(value.ErrCannotCall, "value is not a constructor")
	}

	newObj := object.NewMaterObject(vm.atoms, false)
	if ctorObj := vm.objectOf(calleeVal); ctorObj != nil {
		if proto := ctorObj.Property(atom.Prototype); proto.Kind() != value.KindNone {
			if p := vm.objectOf(proto); p != nil {
				newObj.SetProto(p)
			}
		}
	}
	h := vm.store.NewObject(newObj, materObjectBudget)
	thisVal := value.Object(h)

	switch {
	case target.fn != nil:
		vm.pushFrame(target.fn, target.closure, thisVal, nparams, vm.lineno, true)
		return nil
	case target.nativeFn != nil:
		if err := vm.callNative(target.nativeFn, thisVal, nparams); err != nil {
			return err
		}
		vm.stack[len(vm.stack)-1] = thisVal
		return nil
	case target.obj != nil:
		cr, err := target.obj.Call(vm, thisVal, nparams, true)
		if err != nil {
			return err
		}
		if err := vm.finishObjectCall(cr, nparams); err != nil {
			return err
		}
		vm.stack[len(vm.stack)-1] = thisVal
		return nil
	}
	return vm.runtimeErrorf(value.ErrCannotCall, "value is not a constructor")
}

// finishObjectCall drops the nparams call arguments an Object.Call
// consumed and leaves exactly one result value for the site's POP.
func (vm *VM) finishObjectCall(cr value.CallReturnValue, nparams int32) error {
	n := len(vm.stack) - int(nparams)
	if n < 0 {
		n = 0
	}
	vm.stack = vm.stack[:n]
	if cr.Kind == value.CallReturnError {
		return vm.runtimeErrorf(value.NativeError(cr.N), "call error")
	}
	vm.stack = append(vm.stack, value.None)
	return nil
}

// callNative invokes a NativeFunc with its nparams arguments still sitting
// on the stack (per spec §6.2, natives read them via NativeContext.
// StackTop), then pops them and leaves exactly one result value for the
// call-site's POP — the result the native pushed via PushReturn, or
// Undefined if it pushed none. A yield-worthy CallReturnValue (MsDelay,
// Yield, WaitForEvent) is latched for Execute to bubble up once the
// current instruction (and its paired POP) has run.
func (vm *VM) callNative(fn value.NativeFunc, this value.Value, nparams int32) error {
	base := len(vm.stack) - int(nparams)
	if base < 0 {
		base = 0
	}

	cr, err := fn(vm, this, nparams)
	if err != nil {
		return err
	}

	// fn may have called ctx.PushReturn once, leaving one extra value past
	// its nparams args; anything else left on the stack is its own
	// business (scratch space it already cleaned up, normally), so only
	// the single trailing value (if any) survives the truncation below.
	result := value.None
	if len(vm.stack) > base+int(nparams) {
		result = vm.stack[len(vm.stack)-1]
	}
	vm.stack = append(vm.stack[:base], result)

	switch cr.Kind {
	case value.CallReturnError:
		return vm.runtimeErrorf(value.NativeError(cr.N), "native call error")
	case value.CallReturnMsDelay, value.CallReturnYield, value.CallReturnWaitForEvent, value.CallReturnTerminated:
		latched := cr
		vm.pendingYield = &latched
	}
	return nil
}

// makeClosure implements CLOSURE dst, K[src]: resolve each of the nested
// function's upvalue descriptors against the current frame, opening a new
// cell over a local register on first reference (deduped via
// openUpValues.FindOpen) or sharing the enclosing closure's own cell for
// a captured-through-another-level upvalue.
func (vm *VM) makeClosure(constIdx int) value.Value {
	consts := vm.fn.Constants()
	if constIdx < 0 || constIdx >= len(consts) {
		return value.None
	}
	nested, ok := consts[constIdx].AsStatic().(*object.Function)
	if !ok {
		return value.None
	}

	descs := nested.UpValueDescs()
	upvalues := make([]*object.UpValue, len(descs))
	for i, desc := range descs {
		if desc.IsLocal {
			stackIdx := vm.frameBase + int32(desc.Index)
			if uv := vm.openUpValues.FindOpen(stackIdx); uv != nil {
				upvalues[i] = uv
			} else {
				uv := object.NewOpenUpValue(stackIdx)
				vm.openUpValues.Add(uv)
				upvalues[i] = uv
			}
		} else if vm.closure != nil {
			upvalues[i] = vm.closure.UpValueAt(desc.Index)
		}
	}
	clos := object.NewClosure(nested, upvalues, vm.this)
	return value.Object(vm.store.NewObject(clos, closureBudget))
}
