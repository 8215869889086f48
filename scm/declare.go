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

// DeclarationParameter documents one grounded-function parameter for
// `help`-style introspection; it has no effect on dispatch.
type DeclarationParameter struct {
	Name string
	Type string // any | long | float | string | bool | sexpr
	Desc string
}

// GroundedFn is a host primitive: Cartesian-expanded, already-evaluated
// arguments in, a result sequence out. A grounded function that cannot
// satisfy its type preconditions on some tuple should append a symbolic
// fallback (the original call re-wrapped) rather than erroring -- see
// §4.3 point 3 and §7's type-error policy.
type GroundedFn func(env *Env, call Value, args []Value) []Value

// Declaration describes one grounded function entry: its arity
// contract, a human-readable signature for tooling, and optional
// JITEmit and IsPure metadata. Neither JITEmit nor IsPure is read by
// the evaluator or the JIT: Stage 1 picks its inlined arithmetic by
// opcode (jitEmitterFor), not from this field.
type Declaration struct {
	Name         string
	Desc         string
	MinParameter int
	MaxParameter int // -1 = unbounded
	Params       []DeclarationParameter
	ReturnType   string
	Fn           GroundedFn
	IsPure       bool
	IsVariadic   bool
	JITEmit      JITEmitter // nil if this op has no Stage-1/2 fast path
	// Opcode/HasOpcode name the bytecode opcode that implements this
	// declaration's semantics on the VM/JIT tiers. compileRuleBody only
	// compiles calls to declarations with HasOpcode set; evalApplication
	// always calls Fn directly.
	Opcode    Opcode
	HasOpcode bool
}

// Declare registers def into env's grounded-function table, keyed by
// its interned symbol id.
func Declare(env *Env, def *Declaration) {
	id := env.Intern(def.Name)
	env.Grounded[id] = def
}

func Help(env *Env, name string) (*Declaration, bool) {
	id, ok := env.Symbols.Lookup(name)
	if !ok {
		return nil, false
	}
	d, ok := env.Grounded[id]
	return d, ok
}
