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
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeclareBuiltins registers every grounded function (§4.3 point 3) into
// env's table. Some arithmetic/comparison ops carry a JITEmit value,
// which nothing reads; Stage 1 inlines ops by opcode (jitEmitterFor).
func DeclareBuiltins(env *Env) {
	declareArith(env)
	declareCompare(env)
	declareLogic(env)
	declareStrings(env)
	declareUnify(env)
}

// numericBinary builds a grounded binary op over Long/Float operands.
// On a type mismatch it falls back to the symbolic, unevaluated call
// (§4.3 point 3 / §7 type-error policy) instead of erroring.
func numericBinary(name string, longOp func(a, b int64) (Value, bool), floatOp func(a, b float64) float64, emit JITEmitter, op Opcode) *Declaration {
	return &Declaration{
		Name: name, MinParameter: 2, MaxParameter: 2, IsPure: true,
		ReturnType: "Number", JITEmit: emit, Opcode: op, HasOpcode: true,
		Fn: func(env *Env, call Value, args []Value) []Value {
			a, b := args[0], args[1]
			if a.Tag() == TagLong && b.Tag() == TagLong {
				v, ok := longOp(a.Long(), b.Long())
				if !ok {
					return []Value{NewError("divide-by-zero", call)}
				}
				return []Value{v}
			}
			if isNumeric(a) && isNumeric(b) {
				return []Value{NewFloat(floatOp(asFloat(a), asFloat(b)))}
			}
			return []Value{call}
		},
	}
}

func isNumeric(v Value) bool { return v.Tag() == TagLong || v.Tag() == TagFloat }
func asFloat(v Value) float64 {
	if v.Tag() == TagLong {
		return float64(v.Long())
	}
	return v.Float()
}

func declareArith(env *Env) {
	Declare(env, numericBinary("+",
		func(a, b int64) (Value, bool) { return NewLong(a + b), true },
		func(a, b float64) float64 { return a + b }, jitEmitAdd, OpAdd))
	Declare(env, numericBinary("-",
		func(a, b int64) (Value, bool) { return NewLong(a - b), true },
		func(a, b float64) float64 { return a - b }, jitEmitSub, OpSub))
	Declare(env, numericBinary("*",
		func(a, b int64) (Value, bool) { return NewLong(a * b), true },
		func(a, b float64) float64 { return a * b }, jitEmitMul, OpMul))
	Declare(env, numericBinary("/",
		func(a, b int64) (Value, bool) {
			if b == 0 {
				return Nil, false
			}
			return NewLong(a / b), true
		},
		func(a, b float64) float64 { return a / b }, jitEmitDiv, OpDiv))
	Declare(env, numericBinary("%",
		func(a, b int64) (Value, bool) {
			if b == 0 {
				return Nil, false
			}
			return NewLong(a % b), true
		},
		func(a, b float64) float64 {
			return float64(int64(a) % int64(b))
		}, jitEmitMod, OpMod))
}

func comparisonBinary(name string, cmp func(a, b float64) bool, emit JITEmitter, op Opcode) *Declaration {
	return &Declaration{
		Name: name, MinParameter: 2, MaxParameter: 2, IsPure: true,
		ReturnType: "Bool", JITEmit: emit, Opcode: op, HasOpcode: true,
		Fn: func(env *Env, call Value, args []Value) []Value {
			a, b := args[0], args[1]
			if isNumeric(a) && isNumeric(b) {
				return []Value{NewBool(cmp(asFloat(a), asFloat(b)))}
			}
			return []Value{call}
		},
	}
}

func declareCompare(env *Env) {
	Declare(env, comparisonBinary("<", func(a, b float64) bool { return a < b }, jitEmitLt, OpLt))
	Declare(env, comparisonBinary("<=", func(a, b float64) bool { return a <= b }, jitEmitLe, OpLe))
	Declare(env, comparisonBinary(">", func(a, b float64) bool { return a > b }, jitEmitGt, OpGt))
	Declare(env, comparisonBinary(">=", func(a, b float64) bool { return a >= b }, jitEmitGe, OpGe))
	Declare(env, &Declaration{
		Name: "==", MinParameter: 2, MaxParameter: 2, IsPure: true, ReturnType: "Bool",
		Opcode: OpEq, HasOpcode: true,
		Fn: func(env *Env, call Value, args []Value) []Value {
			return []Value{NewBool(Equal(args[0], args[1]))}
		},
	})
	Declare(env, &Declaration{
		Name: "!=", MinParameter: 2, MaxParameter: 2, IsPure: true, ReturnType: "Bool",
		Opcode: OpNe, HasOpcode: true,
		Fn: func(env *Env, call Value, args []Value) []Value {
			return []Value{NewBool(!Equal(args[0], args[1]))}
		},
	})
}

func declareLogic(env *Env) {
	Declare(env, &Declaration{
		Name: "and", MinParameter: 2, MaxParameter: 2, IsPure: true, ReturnType: "Bool",
		Opcode: OpAnd, HasOpcode: true,
		Fn: func(env *Env, call Value, args []Value) []Value {
			if args[0].Tag() != TagBool || args[1].Tag() != TagBool {
				return []Value{call}
			}
			return []Value{NewBool(args[0].Bool() && args[1].Bool())}
		},
	})
	Declare(env, &Declaration{
		Name: "or", MinParameter: 2, MaxParameter: 2, IsPure: true, ReturnType: "Bool",
		Opcode: OpOr, HasOpcode: true,
		Fn: func(env *Env, call Value, args []Value) []Value {
			if args[0].Tag() != TagBool || args[1].Tag() != TagBool {
				return []Value{call}
			}
			return []Value{NewBool(args[0].Bool() || args[1].Bool())}
		},
	})
	Declare(env, &Declaration{
		Name: "not", MinParameter: 1, MaxParameter: 1, IsPure: true, ReturnType: "Bool",
		Fn: func(env *Env, call Value, args []Value) []Value {
			if args[0].Tag() != TagBool {
				return []Value{call}
			}
			return []Value{NewBool(!args[0].Bool())}
		},
	})
}

// declareStrings wires golang.org/x/text/cases for unicode-aware
// case folding instead of hand-rolling ASCII-only upper/lower.
func declareStrings(env *Env) {
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)
	Declare(env, &Declaration{
		Name: "string-upper", MinParameter: 1, MaxParameter: 1, IsPure: true, ReturnType: "String",
		Fn: func(env *Env, call Value, args []Value) []Value {
			if args[0].Tag() != TagString {
				return []Value{call}
			}
			return []Value{NewString(upper.String(args[0].String_()))}
		},
	})
	Declare(env, &Declaration{
		Name: "string-lower", MinParameter: 1, MaxParameter: 1, IsPure: true, ReturnType: "String",
		Fn: func(env *Env, call Value, args []Value) []Value {
			if args[0].Tag() != TagString {
				return []Value{call}
			}
			return []Value{NewString(lower.String(args[0].String_()))}
		},
	})
	Declare(env, &Declaration{
		Name: "string-concat", MinParameter: 2, MaxParameter: 2, IsPure: true, ReturnType: "String",
		Fn: func(env *Env, call Value, args []Value) []Value {
			if args[0].Tag() != TagString || args[1].Tag() != TagString {
				return []Value{call}
			}
			return []Value{NewString(args[0].String_() + args[1].String_())}
		},
	})
}

// declareUnify exposes the matcher as a grounded function with
// success/failure branches, per the example list in §4.3 point 3.
func declareUnify(env *Env) {
	Declare(env, &Declaration{
		Name: "unify", MinParameter: 4, MaxParameter: 4,
		Fn: func(env *Env, call Value, args []Value) []Value {
			pattern, value, onSuccess, onFail := args[0], args[1], args[2], args[3]
			if b, ok := Match(pattern, value, Bindings{}); ok {
				return []Value{b.Apply(onSuccess)}
			}
			return []Value{onFail}
		},
	})
}
