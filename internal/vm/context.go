package vm

import (
	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// StackTop implements value.NativeContext (spec §6.2): a native function
// reads its nparams arguments off the top of the stack before they're
// popped by callNative, offsetFromTop 0 being the very top.
func (vm *VM) StackTop(offsetFromTop int) value.Value {
	idx := len(vm.stack) - 1 - offsetFromTop
	if idx < 0 || idx >= len(vm.stack) {
		return value.None
	}
	return vm.stack[idx]
}

// PushReturn implements value.NativeContext: a native function supplies
// its result this way rather than a Go return value, matching the
// source's single VM<->native ABI used for both directions.
func (vm *VM) PushReturn(v value.Value) {
	vm.stack = append(vm.stack, v)
}

// Arg implements object.CallContext: an Object method (Element/SetElement
// and friends) reading one of the current frame's actual parameters,
// which always occupy registers [0, nparams) regardless of how many
// formal parameters the function declared.
func (vm *VM) Arg(nparams int32, index int32) value.Value {
	if index < 0 || index >= nparams {
		return value.None
	}
	return vm.reg(uint16(index))
}

// AtomName implements object.CallContext.
func (vm *VM) AtomName(a atom.Atom) string { return vm.atoms.String(a) }

// ToString exposes the VM's string-coercion rules to native functions
// registered outside this package (e.g. internal/engine's import()),
// which otherwise have no way to turn a String/StringLiteral/number
// Value into a Go string.
func (vm *VM) ToString(v value.Value) string { return vm.toString(v) }

// ArgN reads the i'th actual argument a native function was called
// with, index 0 being the first argument in source order. Native
// functions only ever see their own args via NativeContext.StackTop,
// which is topmost-first (the last argument pushed); this flips that
// around to source order, which reads more naturally at native call
// sites.
func (vm *VM) ArgN(nparams int32, i int32) value.Value {
	return vm.StackTop(int(nparams - 1 - i))
}

// RaiseError implements object.CallContext.
func (vm *VM) RaiseError(code value.NativeError, format string, args ...interface{}) error {
	return vm.runtimeErrorf(code, format, args...)
}
