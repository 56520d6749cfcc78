package object

import (
	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/literal"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// UpValueDesc describes, at compile time, where a Closure's upvalue cell
// should come from when the closure is created: either the creating
// function's own local/temp register (isLocal) or one of its own
// upvalues at Index.
type UpValueDesc struct {
	IsLocal bool
	Index   int
	Name    atom.Atom
}

// Function is compiled code: the constants vector (slot 0 reserved as an
// error sentinel per spec §3.3), the upvalue descriptor table, formal
// parameter count, local count, the temp-register high-water mark, an
// optional parent (for nested function parsing), and the bytecode itself.
type Function struct {
	base

	constants    []value.Value
	upvalueDescs []UpValueDesc
	formalParams int
	localCount   int
	maxRegister  int
	parent       *Function
	code         []byte
	fname        atom.Atom
}

// NewFunction creates an empty function; slot 0 of constants is reserved
// as the error-sentinel Value per spec §3.3.
func NewFunction(parent *Function) *Function {
	return &Function{
		constants: []value.Value{value.None},
		parent:    parent,
	}
}

func (f *Function) TypeName() string      { return "Function" }
func (f *Function) ToString(bool) string  { return "function" }
func (f *Function) GCMark(mark func(value.Value)) {
	if f.proto != nil {
		f.proto.GCMark(mark)
	}
	for _, c := range f.constants {
		mark(c)
	}
}

func (f *Function) Property(prop atom.Atom) value.Value { return value.None }
func (f *Function) SetProperty(atom.Atom, value.Value, SetPropertyType) bool {
	return false
}
func (f *Function) Element(CallContext, value.Value) value.Value { return value.None }
func (f *Function) SetElement(CallContext, value.Value, value.Value, bool) bool {
	return false
}

func (f *Function) Call(eu CallContext, this value.Value, nparams int32, ctor bool) (value.CallReturnValue, error) {
	return value.CallReturnValue{Kind: value.CallReturnFunctionStart}, nil
}
func (f *Function) CallProperty(CallContext, atom.Atom, int32) (value.CallReturnValue, error) {
	return Unimplemented()
}

// Code returns the function's bytecode.
func (f *Function) Code() []byte { return f.code }

// SetCode replaces the function's bytecode (the compiler calls it as it
// emits each instruction, and once more after its end-of-function
// register pass).
func (f *Function) SetCode(code []byte) { f.code = code }

// AddConstant appends v to the constants table and returns its index.
func (f *Function) AddConstant(v value.Value) int {
	f.constants = append(f.constants, v)
	return len(f.constants) - 1
}

// Constants returns the constants vector.
func (f *Function) Constants() []value.Value { return f.constants }

// LocalCount returns the number of local (non-temporary) registers.
func (f *Function) LocalCount() int { return f.localCount }

// SetLocalCount records the final local-register count.
func (f *Function) SetLocalCount(n int) { f.localCount = n }

// FormalParamCount returns the declared parameter count.
func (f *Function) FormalParamCount() int { return f.formalParams }

// SetFormalParamCount records the declared parameter count.
func (f *Function) SetFormalParamCount(n int) { f.formalParams = n }

// MaxRegister returns the temp-register high-water mark reached during
// codegen (used to size the evaluation frame).
func (f *Function) MaxRegister() int { return f.maxRegister }

// NoteRegister records use of register r, growing the high-water mark.
func (f *Function) NoteRegister(r int) {
	if r > f.maxRegister {
		f.maxRegister = r
	}
}

// Parent returns the lexically enclosing function, or nil at top level.
func (f *Function) Parent() *Function { return f.parent }

// AddUpValueDesc appends an upvalue descriptor and returns its index; a
// descriptor with the same IsLocal and Index as an existing one is not
// appended again, and the existing one's index is returned.
func (f *Function) AddUpValueDesc(d UpValueDesc) int {
	for i, existing := range f.upvalueDescs {
		if existing.IsLocal == d.IsLocal && existing.Index == d.Index {
			return i
		}
	}
	f.upvalueDescs = append(f.upvalueDescs, d)
	return len(f.upvalueDescs) - 1
}

// UpValueDescs returns the upvalue descriptor table.
func (f *Function) UpValueDescs() []UpValueDesc { return f.upvalueDescs }

// Name returns the function's declared name atom, or NoAtom for an
// anonymous function expression.
func (f *Function) Name() atom.Atom { return f.fname }

// SetName records the function's declared name.
func (f *Function) SetName(a atom.Atom) { f.fname = a }

// Program is a Function that also owns the atom and literal tables and
// the global object — the root of a compiled unit (spec §3.3).
type Program struct {
	Function
	Atoms    *atom.Table
	Literals *literal.Table
	Global   *MaterObject
}

// NewProgram creates an empty program with fresh atom table, literal
// table, and global object.
func NewProgram() *Program {
	atoms := &atom.Table{}
	p := &Program{
		Function: *NewFunction(nil),
		Atoms:    atoms,
		Literals: &literal.Table{},
		Global:   NewMaterObject(atoms, false),
	}
	return p
}

func (p *Program) TypeName() string { return "Program" }
