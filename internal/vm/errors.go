package vm

import (
	"fmt"
	"runtime/debug"

	"github.com/cmarrin/m8rscript-sub000/internal/diag"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// RuntimeError is a script-facing runtime fault (spec §4.7's "Termination
// and errors"): counted against the 30-error forced-termination budget,
// as opposed to an internal VM fault (a malformed program) which aborts
// Execute immediately.
type RuntimeError struct {
	Code    value.NativeError
	Message string
	Line    int32
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// runtimeErrorf renders, logs, and counts one runtime error, arming
// forced termination once errorCount passes maxRuntimeErrors.
func (vm *VM) runtimeErrorf(code value.NativeError, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	var snap string
	if vm.debug {
		snap = string(debug.Stack())
	}
	fmt.Fprintln(vm.stderr, diag.FormatRuntimeError(vm.lineno, msg, snap))

	vm.errorCount++
	if vm.errorCount > maxRuntimeErrors {
		vm.terminated = true
	}
	return &RuntimeError{Code: code, Message: msg, Line: vm.lineno}
}
