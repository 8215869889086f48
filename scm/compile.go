/*
Copyright (C) 2024  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package scm

// bodyCompiler turns a rule body expression into bytecode, assigning
// each distinct variable a binding slot in first-occurrence order. It
// only recognizes a strict subset of bodies -- constants, variables,
// and calls to declarations that name a bytecode Opcode (the
// arithmetic/comparison/logic grounded functions in builtins.go) -- so
// compilation is a pure best-effort fast path, never a requirement for
// correctness: applyRules falls back to the tree-walking evaluator for
// anything compile rejects.
type bodyCompiler struct {
	instrs    []Instr
	consts    []Value
	slots     map[string]int
	slotNames []string
}

func (c *bodyCompiler) slotFor(name string) int32 {
	if idx, ok := c.slots[name]; ok {
		return int32(idx)
	}
	idx := len(c.slotNames)
	c.slots[name] = idx
	c.slotNames = append(c.slotNames, name)
	return int32(idx)
}

func (c *bodyCompiler) emitConst(v Value) {
	idx := int32(len(c.consts))
	c.consts = append(c.consts, v)
	c.instrs = append(c.instrs, Instr{Op: OpPushConst, A: idx})
}

// compile emits v and reports whether v was entirely within the
// compilable subset.
func (c *bodyCompiler) compile(env *Env, v Value) bool {
	switch v.Tag() {
	case TagVar:
		name, _ := v.VarInfo()
		if name == "_" {
			return false
		}
		c.instrs = append(c.instrs, Instr{Op: OpLoadBinding, A: c.slotFor(name)})
		return true
	case TagLong, TagFloat, TagString, TagBool, TagNil, TagUnit:
		c.emitConst(v)
		return true
	case TagSExpr:
		items := v.SExpr()
		if len(items) != 3 {
			return false
		}
		head := items[0]
		if head.Tag() != TagAtom {
			return false
		}
		decl, ok := env.Grounded[head.AtomID()]
		if !ok || !decl.HasOpcode || decl.MinParameter != 2 || decl.MaxParameter != 2 {
			return false
		}
		if !c.compile(env, items[1]) {
			return false
		}
		if !c.compile(env, items[2]) {
			return false
		}
		c.instrs = append(c.instrs, Instr{Op: decl.Opcode})
		return true
	}
	return false
}

// compileRuleBody attempts to turn body into a Chunk runnable by
// Env.Executor, plus the ordered list of variable names its
// OpLoadBinding slots refer to. It returns ok=false for anything
// outside the grounded-arithmetic subset (nested rule calls, grounded
// functions with no Opcode, ternary+ calls, wildcards) -- those bodies
// keep evaluating through the ordinary tree walk in applyRules.
func compileRuleBody(env *Env, body Value) (*Chunk, []string, bool) {
	c := &bodyCompiler{slots: make(map[string]int)}
	if !c.compile(env, body) {
		return nil, nil, false
	}
	c.instrs = append(c.instrs, Instr{Op: OpReturn})
	return NewChunk(c.instrs, c.consts, nil), c.slotNames, true
}
