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

// specialFormFn receives the *unevaluated* operand expressions; the
// head is already consumed by the dispatcher in eval.go.
type specialFormFn func(ectx *EvalContext, args []Value) []Value

var specialForms map[string]specialFormFn

func init() {
	specialForms = map[string]specialFormFn{
		"quote":             formQuote,
		"eval":              formEval,
		"if":                formIf,
		"catch":             formCatch,
		"is-error":          formIsError,
		"error":             formError,
		"let":               formLet,
		":":                 formTypeAssert,
		"get-type":          formGetType,
		"check-type":        formCheckType,
		"=":                 formDefine,
		"match":             formMatch,
		"add-to-space":      formAddToSpace,
		"remove-from-space": formRemoveFromSpace,
		"foldl-atom":        formFoldlAtom,
		"map-atom":          formMapAtom,
		"cons-atom":         formConsAtom,
		"decons-atom":       formDeconsAtom,
		"car-atom":          formCarAtom,
		"cdr-atom":          formCdrAtom,
	}
}

func formQuote(ectx *EvalContext, args []Value) []Value {
	if len(args) != 1 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	return []Value{args[0]}
}

func formEval(ectx *EvalContext, args []Value) []Value {
	if len(args) != 1 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	var out []Value
	for _, v := range eval(child(ectx), args[0]) {
		out = append(out, eval(child(ectx), v)...)
	}
	return out
}

// formIf implements §4.3's laziness contract: only the chosen branch is
// ever evaluated, and an Error in the condition propagates without
// touching either branch.
func formIf(ectx *EvalContext, args []Value) []Value {
	if len(args) != 3 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	cond := eval(child(ectx), args[0])
	if e, ok := firstError(cond); ok {
		return []Value{e}
	}
	if condTrue(cond) {
		return eval(child(ectx), args[1])
	}
	return eval(child(ectx), args[2])
}

func condTrue(cond []Value) bool {
	if len(cond) == 0 {
		return false
	}
	for _, v := range cond {
		if v.IsError() || v.IsNil() {
			return false
		}
	}
	return true
}

// formCatch absorbs exactly errors (§8 property 4).
func formCatch(ectx *EvalContext, args []Value) []Value {
	if len(args) != 2 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	result := eval(child(ectx), args[0])
	if _, ok := firstError(result); ok {
		return eval(child(ectx), args[1])
	}
	return result
}

func formIsError(ectx *EvalContext, args []Value) []Value {
	if len(args) != 1 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	result := eval(child(ectx), args[0])
	_, ok := firstError(result)
	return []Value{NewBool(ok)}
}

// formError constructs Error(msg, detail); detail is never evaluated
// (§4.3 reduction prevention).
func formError(ectx *EvalContext, args []Value) []Value {
	if len(args) != 2 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	msg := eval(child(ectx), args[0])
	if len(msg) == 0 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	kind := msg[0].String_()
	if msg[0].Tag() != TagString {
		kind = Sprint(msg[0])
	}
	return []Value{NewError(kind, args[1])}
}

// formLet evaluates value-expr to a sequence, binds var to each member
// in turn, evaluates body, and concatenates.
func formLet(ectx *EvalContext, args []Value) []Value {
	if len(args) != 3 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	name, _ := args[0].VarInfo()
	values := eval(child(ectx), args[1])
	var out []Value
	for _, v := range values {
		b := Bindings{name: v}
		out = append(out, eval(child(ectx), b.Apply(args[2]))...)
	}
	return out
}

func formTypeAssert(ectx *EvalContext, args []Value) []Value {
	if len(args) != 2 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	if args[0].Tag() != TagAtom {
		return []Value{NewError("type-error", args[0])}
	}
	ectx.Env.Types.Set(args[0].AtomID(), NewType(args[1]))
	return []Value{Nil}
}

// formGetType implements §4.3's inference table. The open question of
// mixed arrow/non-arrow assertions for one symbol is resolved here by
// simply returning whichever assertion was set most recently -- Types
// only ever stores one Type per symbol, so "pick one and document it"
// resolves to "last write wins" (see DESIGN.md).
func formGetType(ectx *EvalContext, args []Value) []Value {
	if len(args) != 1 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	v := args[0]
	switch v.Tag() {
	case TagLong, TagFloat:
		return []Value{NewAtom(ectx.Env.Intern("Number"))}
	case TagBool:
		return []Value{NewAtom(ectx.Env.Intern("Bool"))}
	case TagString:
		return []Value{NewAtom(ectx.Env.Intern("String"))}
	case TagAtom:
		if t, ok := ectx.Env.Types.Get(v.AtomID()); ok {
			return []Value{t.TypeBoxed()}
		}
		return []Value{NewAtom(ectx.Env.Intern("Undefined"))}
	case TagSExpr:
		head := v.Head()
		if head.Tag() == TagAtom {
			if t, ok := ectx.Env.Types.Get(head.AtomID()); ok {
				boxed := t.TypeBoxed()
				if boxed.Tag() == TagSExpr {
					items := boxed.SExpr()
					if len(items) >= 1 && items[0].Tag() == TagAtom && ectx.Env.Resolve(items[0].AtomID()) == "->" {
						return []Value{items[len(items)-1]}
					}
				}
			}
		}
	}
	return []Value{NewAtom(ectx.Env.Intern("Undefined"))}
}

func formCheckType(ectx *EvalContext, args []Value) []Value {
	if len(args) != 2 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	vs := eval(child(ectx), args[0])
	var out []Value
	for _, v := range vs {
		out = append(out, NewBool(CheckType(v, args[1])))
	}
	return out
}

func formDefine(ectx *EvalContext, args []Value) []Value {
	if len(args) != 2 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	ectx.Env.AddRule(args[0], args[1])
	return []Value{Nil}
}

// formMatch implements `match <space> <pattern> <template>`. "& self"
// denotes the current environment's space.
func formMatch(ectx *EvalContext, args []Value) []Value {
	if len(args) != 3 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	var out []Value
	for _, b := range ectx.Env.Space.Query(args[1]) {
		out = append(out, b.Apply(args[2]))
	}
	return out
}

func formAddToSpace(ectx *EvalContext, args []Value) []Value {
	if len(args) != 1 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	for _, v := range eval(child(ectx), args[0]) {
		if v.IsGround() {
			ectx.Env.AddToSpace(v)
		}
	}
	return []Value{Nil}
}

func formRemoveFromSpace(ectx *EvalContext, args []Value) []Value {
	if len(args) != 1 {
		return []Value{NewError("arity", NewSExpr(args))}
	}
	for _, v := range eval(child(ectx), args[0]) {
		if v.IsGround() {
			ectx.Env.RemoveFromSpace(v)
		}
	}
	return []Value{Nil}
}
