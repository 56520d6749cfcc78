package compiler

import (
	"github.com/cmarrin/m8rscript-sub000/internal/atom"
	"github.com/cmarrin/m8rscript-sub000/internal/object"
	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// resolveIdent implements spec §4.5's three-step identifier resolution:
// a local in the immediate function, an upvalue reached by walking
// enclosing functions, or a global reference by name constant.
func (c *Compiler) resolveIdent(name atom.Atom) operand {
	// `arguments` always resolves through the global RefK path so no
	// enclosing local or upvalue of that name can shadow it: the VM's
	// LOADREFK recognizes atom.Arguments specially and synthesizes the
	// current frame's argument array rather than touching the global
	// object (spec §8's "extra args accessible via arguments").
	if name == atom.Arguments {
		constIdx := c.addConstant(value.ID(name))
		return operand{kind: kindRefK, constIdx: constIdx, nameAtom: name}
	}
	if reg, ok := findLocal(c.scope, name); ok {
		return registerOperand(reg)
	}
	if idx, ok := resolveUpvalue(c.scope, name); ok {
		return operand{kind: kindUpValue, upIndex: idx}
	}
	constIdx := c.addConstant(value.ID(name))
	return operand{kind: kindRefK, constIdx: constIdx, nameAtom: name}
}

func findLocal(s *funcScope, name atom.Atom) (int, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].name == name {
			return s.locals[i].reg, true
		}
	}
	return 0, false
}

// resolveUpvalue walks the function chain outward looking for a local
// matching name, registering an upvalue descriptor in every enclosing
// function between the definition site and the current scope (spec
// §4.5's "Identifier resolution" step 2).
func resolveUpvalue(s *funcScope, name atom.Atom) (int, bool) {
	if s.parent == nil {
		return 0, false
	}
	if reg, ok := findLocal(s.parent, name); ok {
		idx := s.fn.AddUpValueDesc(object.UpValueDesc{IsLocal: true, Index: reg, Name: name})
		return idx, true
	}
	if parentIdx, ok := resolveUpvalue(s.parent, name); ok {
		idx := s.fn.AddUpValueDesc(object.UpValueDesc{IsLocal: false, Index: parentIdx, Name: name})
		return idx, true
	}
	return 0, false
}
