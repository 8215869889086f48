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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecThreadsAntecedentAndAppliesConsequent(t *testing.T) {
	env := NewEnv(DefaultConfig())
	parent := sym(env, "parent")
	a, b, c := sym(env, "a"), sym(env, "b"), sym(env, "c")
	env.AddToSpace(call(parent, a, b))
	env.AddToSpace(call(parent, b, c))

	x, y, z := NewVar("x", VarPlain), NewVar("y", VarPlain), NewVar("z", VarPlain)
	antecedent := call(sym(env, ","), call(parent, x, y), call(parent, y, z))
	consequent := call(sym(env, "grandparent"), x, z)

	expr := call(sym(env, "exec"), NewLong(0), antecedent, consequent)
	result := Eval(env, expr)
	assert.True(t, EqualSeq(result, []Value{call(sym(env, "grandparent"), a, c)}))
}

func TestExecEmptyAntecedentFiresOnce(t *testing.T) {
	env := NewEnv(DefaultConfig())
	expr := call(sym(env, "exec"), NewLong(0), call(sym(env, ",")), NewLong(1))
	result := Eval(env, expr)
	assert.True(t, EqualSeq(result, []Value{NewLong(1)}))
}

func TestExecWithOperationsMutatesSpace(t *testing.T) {
	env := NewEnv(DefaultConfig())
	fact := sym(env, "seen")
	expr := call(sym(env, "exec"), NewLong(0), call(sym(env, ",")),
		call(sym(env, "O"), call(sym(env, "+"), call(fact, NewLong(1)))))
	Eval(env, expr)
	assert.True(t, env.Space.HasFactExpr(call(fact, NewLong(1))))
}

func TestCoalgAppliesEachTemplatePerMatchedValue(t *testing.T) {
	env := NewEnv(DefaultConfig())
	// A fully ground pattern matches its own evaluated form exactly once
	// (no rule rewrites (wrap 5) into anything else), so each template
	// fires once, in order.
	pattern := call(sym(env, "wrap"), NewLong(5))
	ta, tb := sym(env, "ta"), sym(env, "tb")
	templates := call(sym(env, ","), ta, tb)

	expr := call(sym(env, "coalg"), pattern, templates)
	result := Eval(env, expr)
	assert.True(t, EqualSeq(result, []Value{ta, tb}))
}

func TestLookupFallsBackWhenNoSolutions(t *testing.T) {
	env := NewEnv(DefaultConfig())
	pattern := call(sym(env, "missing"), NewVar("x", VarPlain))
	expr := call(sym(env, "lookup"), pattern, NewLong(1), NewLong(2))
	result := Eval(env, expr)
	assert.True(t, EqualSeq(result, []Value{NewLong(2)}))
}

func TestLookupUsesSuccessBranchPerSolution(t *testing.T) {
	env := NewEnv(DefaultConfig())
	known := sym(env, "known")
	env.AddToSpace(call(known, NewLong(1)))
	env.AddToSpace(call(known, NewLong(2)))

	x := NewVar("x", VarPlain)
	expr := call(sym(env, "lookup"), call(known, x), x, NewLong(-1))
	result := Eval(env, expr)
	assert.ElementsMatch(t, []Value{NewLong(1), NewLong(2)}, result)
}

func TestRulifyRegistersQueryableRule(t *testing.T) {
	env := NewEnv(DefaultConfig())
	parent := sym(env, "parent")
	a, b, c := sym(env, "a"), sym(env, "b"), sym(env, "c")
	env.AddToSpace(call(parent, a, b))
	env.AddToSpace(call(parent, b, c))

	x, y, z := NewVar("x", VarPlain), NewVar("y", VarPlain), NewVar("z", VarPlain)
	rulify := call(sym(env, "rulify"), sym(env, "grandparent"),
		call(sym(env, ","), x, z),
		call(sym(env, ","), x, z),
		call(sym(env, ","), call(parent, x, y), call(parent, y, z)),
		call(sym(env, ","), x, z))
	Eval(env, rulify)

	result := Eval(env, call(sym(env, "grandparent"), a, c))
	// params/templates here are the two-element conjunction (, $x $z), so
	// the generated rule's consequent yields its items flatly rather than
	// as one (a c) tuple (see formRulify's len(templates)==1 special case).
	assert.ElementsMatch(t, []Value{a, c}, result)
}
