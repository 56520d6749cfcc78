package vm

import (
	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/compiler"
	"github.com/cmarrin/m8rscript-sub000/internal/object"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// Import implements spec §4.4's import(stream) built-in: compile stream
// as a nested unit sharing this VM's atom and literal tables, then
// harvest every named function out of the unit's own constants table —
// one property per named nested function — into a fresh MaterObject and
// return that as the result. The nested unit's top-level statements are
// never executed: import() only parses and gathers declarations. Wiring
// this onto a script-visible "import" identifier is the host's job
// (internal/engine registers it as a native function), not the VM's.
func (vm *VM) Import(src string) (value.Value, error) {
	prog := &object.Program{
		Function: *object.NewFunction(nil),
		Atoms:    vm.atoms,
		Literals: vm.literals,
		Global:   object.NewMaterObject(vm.atoms, false),
	}
	if err := compiler.Compile(src, prog); err != nil {
		return value.None, err
	}

	result := object.NewMaterObject(vm.atoms, false)
	for _, cst := range prog.Constants() {
		if cst.Kind() != value.KindStaticObject {
			continue
		}
		fn, ok := cst.AsStatic().(*object.Function)
		if !ok || fn.Name() == atom.NoAtom {
			continue
		}
		result.SetProperty(fn.Name(), cst, object.SetPropertyAlwaysAdd)
	}
	return value.Object(vm.store.NewObject(result, materObjectBudget)), nil
}
