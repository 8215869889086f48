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

// seqItems views v as a list: an SExpr yields its elements, Nil yields
// none, anything else is a single-element list -- the same leniency
// this codebase's list primitives have always shown callers.
func seqItems(v Value) []Value {
	switch v.Tag() {
	case TagNil:
		return nil
	case TagSExpr:
		return v.SExpr()
	default:
		return []Value{v}
	}
}

// cartesianArgs evaluates exprs and returns every combination, the same
// Cartesian expansion evalApplication performs for ordinary calls.
func cartesianArgs(ectx *EvalContext, exprs []Value) [][]Value {
	seqs := make([][]Value, len(exprs))
	for i, e := range exprs {
		seqs[i] = eval(child(ectx), e)
	}
	return cartesian(seqs)
}

func formConsAtom(ectx *EvalContext, args []Value) []Value {
	if len(args) != 2 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	var out []Value
	for _, t := range cartesianArgs(ectx, args) {
		head, tail := t[0], t[1]
		items := append([]Value{head}, seqItems(tail)...)
		out = append(out, NewSExpr(items))
	}
	return out
}

func formDeconsAtom(ectx *EvalContext, args []Value) []Value {
	if len(args) != 1 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	var out []Value
	for _, v := range eval(child(ectx), args[0]) {
		items := seqItems(v)
		if len(items) == 0 {
			out = append(out, NewError("empty-list", v))
			continue
		}
		out = append(out, NewSExpr([]Value{items[0], NewSExpr(items[1:])}))
	}
	return out
}

func formCarAtom(ectx *EvalContext, args []Value) []Value {
	if len(args) != 1 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	var out []Value
	for _, v := range eval(child(ectx), args[0]) {
		items := seqItems(v)
		if len(items) == 0 {
			out = append(out, NewError("empty-list", v))
			continue
		}
		out = append(out, items[0])
	}
	return out
}

func formCdrAtom(ectx *EvalContext, args []Value) []Value {
	if len(args) != 1 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	var out []Value
	for _, v := range eval(child(ectx), args[0]) {
		items := seqItems(v)
		if len(items) == 0 {
			out = append(out, NewError("empty-list", v))
			continue
		}
		out = append(out, NewSExpr(items[1:]))
	}
	return out
}

// formMapAtom applies fn (a callable atom/expression head) to every
// element of seq, by constructing (fn item) and evaluating it.
func formMapAtom(ectx *EvalContext, args []Value) []Value {
	if len(args) != 2 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	var out []Value
	for _, seqV := range eval(child(ectx), args[0]) {
		items := seqItems(seqV)
		mapped := make([]Value, 0, len(items))
		for _, it := range items {
			call := NewSExpr([]Value{args[1], it})
			mapped = append(mapped, eval(child(ectx), call)...)
		}
		out = append(out, NewSExpr(mapped))
	}
	return out
}

// formFoldlAtom threads an accumulator left-to-right through seq via
// (fn acc item), starting from init.
func formFoldlAtom(ectx *EvalContext, args []Value) []Value {
	if len(args) != 3 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	seqV := eval(child(ectx), args[0])
	inits := eval(child(ectx), args[1])
	var out []Value
	for _, s := range seqV {
		items := seqItems(s)
		for _, acc := range inits {
			cur := acc
			for _, it := range items {
				call := NewSExpr([]Value{args[2], cur, it})
				results := eval(child(ectx), call)
				if len(results) == 0 {
					cur = Nil
					break
				}
				cur = results[0]
			}
			out = append(out, cur)
		}
	}
	return out
}
