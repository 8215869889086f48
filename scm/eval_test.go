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

func sym(env *Env, name string) Value { return NewAtom(env.Intern(name)) }
func call(items ...Value) Value       { return NewSExpr(items) }

func TestEvalArithmeticAndDouble(t *testing.T) {
	env := NewEnv(DefaultConfig())
	// (= (double $x) (* $x 2))
	doubleSym := sym(env, "double")
	x := NewVar("x", VarPlain)
	env.AddRule(call(doubleSym, x), call(sym(env, "*"), x, NewLong(2)))

	result := Eval(env, call(doubleSym, NewLong(21)))
	assert.True(t, EqualSeq(result, []Value{NewLong(42)}))
}

func TestEvalFibonacciViaRules(t *testing.T) {
	env := NewEnv(DefaultConfig())
	fib := sym(env, "fib")
	n := NewVar("n", VarPlain)
	// (= (fib 0) 0)
	env.AddRule(call(fib, NewLong(0)), NewLong(0))
	// (= (fib 1) 1)
	env.AddRule(call(fib, NewLong(1)), NewLong(1))
	// (= (fib $n) (+ (fib (- $n 1)) (fib (- $n 2))))
	env.AddRule(call(fib, n), call(sym(env, "+"),
		call(fib, call(sym(env, "-"), n, NewLong(1))),
		call(fib, call(sym(env, "-"), n, NewLong(2)))))

	result := Eval(env, call(fib, NewLong(10)))
	assert.True(t, EqualSeq(result, []Value{NewLong(55)}))
}

func TestEvalNondeterministicColorCartesianOrder(t *testing.T) {
	env := NewEnv(DefaultConfig())
	color := sym(env, "color")
	env.AddRule(call(color), sym(env, "red"))
	env.AddRule(call(color), sym(env, "green"))
	env.AddRule(call(color), sym(env, "blue"))

	result := Eval(env, call(color))
	expected := []Value{sym(env, "red"), sym(env, "green"), sym(env, "blue")}
	assert.True(t, EqualSeq(result, expected), "nondeterministic branches must preserve rule insertion order")
}

func TestEvalIfOnlyEvaluatesChosenBranch(t *testing.T) {
	env := NewEnv(DefaultConfig())
	// A rule that would only fire if evaluated -- if `if` evaluated both
	// branches this call would appear in the rule index hit count, which
	// we can observe indirectly by it never producing its Error sentinel.
	boom := sym(env, "boom")
	env.AddRule(call(boom), NewError("should-not-evaluate", Nil))

	expr := call(sym(env, "if"), True, NewLong(1), call(boom))
	result := Eval(env, expr)
	assert.True(t, EqualSeq(result, []Value{NewLong(1)}))

	expr2 := call(sym(env, "if"), False, call(boom), NewLong(2))
	result2 := Eval(env, expr2)
	assert.True(t, EqualSeq(result2, []Value{NewLong(2)}))
}

func TestEvalCatchAbsorbsOnlyErrors(t *testing.T) {
	env := NewEnv(DefaultConfig())
	expr := call(sym(env, "catch"), call(sym(env, "error"), NewString("boom"), Nil), NewLong(7))
	result := Eval(env, expr)
	assert.True(t, EqualSeq(result, []Value{NewLong(7)}))

	expr2 := call(sym(env, "catch"), NewLong(1), NewLong(7))
	result2 := Eval(env, expr2)
	assert.True(t, EqualSeq(result2, []Value{NewLong(1)}), "catch must not touch a non-error result")
}

func TestEvalGetTypeOfScalarsAndAssertion(t *testing.T) {
	env := NewEnv(DefaultConfig())
	assert.True(t, Equal(Eval(env, call(sym(env, "get-type"), NewLong(5)))[0], sym(env, "Number")))
	assert.True(t, Equal(Eval(env, call(sym(env, "get-type"), NewBool(true)))[0], sym(env, "Bool")))

	myAtom := sym(env, "Frog")
	Eval(env, call(sym(env, ":"), myAtom, sym(env, "Animal")))
	assert.True(t, Equal(Eval(env, call(sym(env, "get-type"), myAtom))[0], sym(env, "Animal")))
}

func TestEvalMatchAgainstSpaceNeighbors(t *testing.T) {
	env := NewEnv(DefaultConfig())
	edge := sym(env, "edge")
	a, b, c := sym(env, "a"), sym(env, "b"), sym(env, "c")
	env.AddToSpace(call(edge, a, b))
	env.AddToSpace(call(edge, a, c))

	who := NewVar("who", VarPlain)
	expr := call(sym(env, "match"), sym(env, "self"), call(edge, a, who), who)
	result := Eval(env, expr)
	assert.ElementsMatch(t, []Value{b, c}, result)
}

func TestApplyGroundedFallsBackSymbolicallyOnTypeMismatch(t *testing.T) {
	env := NewEnv(DefaultConfig())
	expr := call(sym(env, "+"), NewString("x"), NewLong(1))
	result := Eval(env, expr)
	assert.Len(t, result, 1)
	assert.True(t, result[0].IsSExpr())
}
