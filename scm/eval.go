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
	"context"
	"sync/atomic"

	"github.com/jtolds/gls"
)

// glsMgr wraps each top-level Eval in a goroutine-local scope holding a
// constant "depth" value of 0. Nothing in the package reads that value:
// the live recursion depth is EvalContext.Depth, and the concurrency
// count is the concurrentEvals atomic below.
var glsMgr = gls.NewContextManager()

// EvalContext threads the recursion-depth guard and an optional
// cancellation/deadline token through a single evaluation (§4.3, §5).
// It is never shared across top-level eval() entries.
type EvalContext struct {
	Env   *Env
	Depth int
	Ctx   context.Context
}

func NewEvalContext(env *Env) *EvalContext {
	return &EvalContext{Env: env, Ctx: context.Background()}
}

// Eval is the top-level entry point: increments CONCURRENT_EVALS for
// the scheduler's sequential-mode detection (§4.8), runs the recursive
// evaluator, then decrements.
func Eval(env *Env, v Value) []Value {
	concurrentEvals.Add(1)
	defer concurrentEvals.Add(-1)
	ectx := NewEvalContext(env)
	var out []Value
	glsMgr.SetValues(gls.Values{"depth": 0}, func() {
		out = eval(ectx, v)
	})
	return out
}

func eval(ectx *EvalContext, v Value) []Value {
	if ectx.Depth > ectx.Env.Config.DepthLimit {
		return []Value{NewError("recursion-limit", v)}
	}
	select {
	case <-ectx.Ctx.Done():
		return []Value{NewError("cancelled", v)}
	default:
	}

	switch v.Tag() {
	case TagNil, TagUnit, TagBool, TagLong, TagFloat, TagString, TagVar, TagType, TagError:
		return []Value{v}
	case TagAtom:
		return []Value{v}
	case TagSExpr:
		return evalSExpr(ectx, v)
	}
	return []Value{v}
}

func child(ectx *EvalContext) *EvalContext {
	return &EvalContext{Env: ectx.Env, Depth: ectx.Depth + 1, Ctx: ectx.Ctx}
}

func evalSExpr(ectx *EvalContext, expr Value) []Value {
	items := expr.SExpr()
	if len(items) == 0 {
		return []Value{expr}
	}
	head := items[0]
	if head.Tag() == TagAtom {
		name := ectx.Env.Resolve(head.AtomID())
		if fn, ok := specialForms[name]; ok {
			return fn(ectx, items[1:])
		}
	}
	return evalApplication(ectx, expr, head, items[1:])
}

// evalApplication implements §4.3 points 1/3/4: evaluate operands with
// Cartesian-product expansion, short-circuit on Error, then dispatch to
// a grounded function or the rule index.
func evalApplication(ectx *EvalContext, expr Value, head Value, argExprs []Value) []Value {
	operandSeqs := make([][]Value, len(argExprs))
	for i, a := range argExprs {
		operandSeqs[i] = eval(child(ectx), a)
	}
	tuples := cartesian(operandSeqs)

	var headID uint32
	headIsAtom := head.Tag() == TagAtom
	if headIsAtom {
		headID = head.AtomID()
	}

	var out []Value
	for _, tuple := range tuples {
		if errv, ok := firstError(tuple); ok {
			out = append(out, errv)
			continue
		}
		call := NewSExpr(append([]Value{head}, tuple...))
		if headIsAtom {
			if decl, ok := ectx.Env.Grounded[headID]; ok {
				out = append(out, applyGrounded(ectx, decl, call, tuple)...)
				continue
			}
			rules := ectx.Env.Rules.RulesFor(headID, len(tuple)+1)
			if len(rules) > 0 {
				out = append(out, applyRules(ectx, rules, call)...)
				continue
			}
		}
		out = append(out, call)
	}
	return out
}

func applyGrounded(ectx *EvalContext, decl *Declaration, call Value, args []Value) []Value {
	if len(args) < decl.MinParameter || (decl.MaxParameter >= 0 && len(args) > decl.MaxParameter) {
		return []Value{call}
	}
	return decl.Fn(ectx.Env, call, args)
}

// applyRules implements §4.3 point 4: for each rule in insertion order,
// attempt match(lhs, evaluated-expr, {}); for each success, evaluate
// the substituted rhs, concatenating all resulting sequences. A rule
// whose body compiled to bytecode (compileRuleBody, via Env.AddRule)
// runs through Env.Executor instead of the tree walk, as long as every
// slot its bytecode references actually got bound by the match.
func applyRules(ectx *EvalContext, rules []Rule, call Value) []Value {
	var out []Value
	for _, r := range rules {
		b, ok := Match(r.Pattern, call, Bindings{})
		if !ok {
			continue
		}
		if res, ok := runCompiledRuleBody(ectx, r, b); ok {
			out = append(out, res...)
			continue
		}
		out = append(out, eval(child(ectx), b.Apply(r.Body))...)
	}
	return out
}

// runCompiledRuleBody executes r's precompiled body chunk with b's
// bindings laid out in CompiledSlots order. It reports ok=false (no
// compiled chunk, or a body variable the match left unbound) so the
// caller falls back to the tree-walking evaluator.
func runCompiledRuleBody(ectx *EvalContext, r Rule, b Bindings) ([]Value, bool) {
	if r.CompiledBody == nil {
		return nil, false
	}
	bindings := make([]Value, len(r.CompiledSlots))
	for i, name := range r.CompiledSlots {
		v, ok := b[name]
		if !ok {
			return nil, false
		}
		bindings[i] = v
	}
	return ectx.Env.Executor.Run(ectx.Env, r.CompiledBody, bindings), true
}

// cartesian expands operand result sequences into S1 x S2 x ... x Sn,
// concatenated in left-to-right order with no deduplication (§4.3).
func cartesian(seqs [][]Value) [][]Value {
	if len(seqs) == 0 {
		return [][]Value{{}}
	}
	rest := cartesian(seqs[1:])
	out := make([][]Value, 0, len(seqs[0])*len(rest))
	for _, v := range seqs[0] {
		for _, r := range rest {
			tuple := make([]Value, 0, len(r)+1)
			tuple = append(tuple, v)
			tuple = append(tuple, r...)
			out = append(out, tuple)
		}
	}
	return out
}

func firstError(vs []Value) (Value, bool) {
	for _, v := range vs {
		if v.IsError() {
			return v, true
		}
	}
	return Nil, false
}

// concurrentEvals is the process-wide sequential-mode detector the
// priority scheduler consults (§4.8); it is one of the two globally
// permitted atomics (the other being the priority pool's queue handle).
var concurrentEvals atomic.Int64

// ConcurrentEvals exposes the live count for the scheduler package-level
// sequential-mode check.
func ConcurrentEvals() int64 { return concurrentEvals.Load() }
