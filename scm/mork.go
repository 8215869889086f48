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

func init() {
	specialForms["exec"] = formExec
	specialForms["coalg"] = formCoalg
	specialForms["lookup"] = formLookup
	specialForms["rulify"] = formRulify
}

// isConjunction reports whether v is a uniform conjunction `(, e1 ... en)`.
func isConjunction(v Value, env *Env) bool {
	if v.Tag() != TagSExpr {
		return false
	}
	head := v.Head()
	return head.Tag() == TagAtom && env.Resolve(head.AtomID()) == ","
}

// conjItems returns the members of a conjunction; a bare, non-conjunction
// expression is treated as the one-element conjunction containing itself,
// so callers never have to special-case the unwrapped form.
func conjItems(v Value, env *Env) []Value {
	if isConjunction(v, env) {
		return v.SExpr()[1:]
	}
	return []Value{v}
}

func mergeBindings(a, b Bindings) (Bindings, bool) {
	out := a.clone()
	for k, v := range b {
		if existing, ok := out[k]; ok {
			if !Equal(existing, v) {
				return nil, false
			}
			continue
		}
		out[k] = v
	}
	return out, true
}

// threadGoals implements the antecedent-threading rule shared by exec
// and lookup: for each goal left to right, query the space and merge
// bindings, Cartesian over nondeterminism. An empty goal list fires
// once with the empty binding set (§4.4, boundary behavior "empty
// antecedent fires exactly once").
func threadGoals(env *Env, goals []Value) []Bindings {
	frontier := []Bindings{{}}
	for _, goal := range goals {
		var next []Bindings
		for _, b := range frontier {
			applied := b.Apply(goal)
			for _, sol := range env.Space.Query(applied) {
				merged, ok := mergeBindings(b, sol)
				if ok {
					next = append(next, merged)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			return nil
		}
	}
	return frontier
}

// formExec implements `exec priority antecedent consequent` (§4.4).
func formExec(ectx *EvalContext, args []Value) []Value {
	if len(args) != 3 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	env := ectx.Env
	goals := conjItems(args[1], env)
	solutions := threadGoals(env, goals)

	consequent := args[2]
	if consequent.Tag() == TagSExpr {
		head := consequent.Head()
		if head.Tag() == TagAtom && env.Resolve(head.AtomID()) == "O" {
			ops := consequent.SExpr()[1:]
			var out []Value
			for _, b := range solutions {
				for _, op := range ops {
					applyExecOp(env, b, op)
				}
				out = append(out, Nil)
			}
			return out
		}
	}

	results := conjItems(consequent, env)
	var out []Value
	for _, b := range solutions {
		for _, r := range results {
			out = append(out, b.Apply(r))
		}
	}
	return out
}

func applyExecOp(env *Env, b Bindings, op Value) {
	if op.Tag() != TagSExpr || op.Arity() != 2 {
		return
	}
	head := op.Head()
	if head.Tag() != TagAtom {
		return
	}
	fact := b.Apply(op.SExpr()[1])
	if !fact.IsGround() {
		return
	}
	switch env.Resolve(head.AtomID()) {
	case "+":
		env.AddToSpace(fact)
	case "-":
		env.RemoveFromSpace(fact)
	}
}

// formCoalg implements `coalg pattern templates`. Zero templates
// (`(,)`) produces zero outputs (§4.4 boundary behavior).
func formCoalg(ectx *EvalContext, args []Value) []Value {
	if len(args) != 2 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	env := ectx.Env
	input := eval(child(ectx), args[0])
	templates := conjItems(args[1], env)
	var out []Value
	for _, v := range input {
		b, ok := Match(args[0], v, Bindings{})
		if !ok {
			continue
		}
		for _, t := range templates {
			out = append(out, b.Apply(t))
		}
	}
	return out
}

// formLookup implements `lookup pattern success-goals failure-goals`.
func formLookup(ectx *EvalContext, args []Value) []Value {
	if len(args) != 3 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	env := ectx.Env
	solutions := env.Space.Query(args[0])
	if len(solutions) == 0 {
		var out []Value
		for _, g := range conjItems(args[2], env) {
			out = append(out, eval(child(ectx), g)...)
		}
		return out
	}
	var out []Value
	for _, b := range solutions {
		for _, g := range conjItems(args[1], env) {
			out = append(out, eval(child(ectx), b.Apply(g))...)
		}
	}
	return out
}

// formRulify implements `rulify name (, p0) (, t0...) antecedent
// consequent`: builds a rule over `(name ...)` facts whose arity is
// taken structurally from the template conjunction, and inserts it
// into the rule index.
func formRulify(ectx *EvalContext, args []Value) []Value {
	if len(args) != 5 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	env := ectx.Env
	if args[0].Tag() != TagAtom {
		return []Value{NewError("type-error", args[0])}
	}
	params := conjItems(args[1], env)
	templates := conjItems(args[2], env)
	antecedent := args[3]
	consequent := args[4]

	lhsItems := append([]Value{args[0]}, params...)
	lhs := NewSExpr(lhsItems)

	var rhs Value
	if len(templates) == 1 {
		rhs = NewSExpr([]Value{NewAtom(env.Intern("exec")), NewLong(0), antecedent, consequent})
	} else {
		rhs = NewSExpr([]Value{NewAtom(env.Intern("exec")), NewLong(0), antecedent, NewSExpr(append([]Value{NewAtom(env.Intern(","))}, templates...))})
	}
	env.AddRule(lhs, rhs)
	return []Value{Nil}
}
