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

// JITEmitter is a grounded binary op's Stage-1/2 fast path (§4.6): given
// two already-unboxed operands it either produces the unboxed result or
// reports that this operand combination is outside what it can handle,
// in which case the caller falls back to the grounded Fn/VM path. This
// implementation has no machine-code backend (see DESIGN.md); "emission"
// and "execution" are the same step, so a JITEmitter is simply the
// inlinable operation itself rather than a code generator that is later
// invoked.
type JITEmitter func(a, b JitValue) (JitValue, bool)

func jitEmitAdd(a, b JitValue) (JitValue, bool) { return jitArith(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y }) }
func jitEmitSub(a, b JitValue) (JitValue, bool) { return jitArith(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y }) }
func jitEmitMul(a, b JitValue) (JitValue, bool) { return jitArith(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y }) }

// jitEmitDiv/jitEmitMod bail out on integer division by zero rather
// than panicking, matching vmBinary's own OpDiv/OpMod bailout.
func jitEmitDiv(a, b JitValue) (JitValue, bool) {
	if a.IsLong() && b.IsLong() {
		if b.AsLong() == 0 {
			return 0, false
		}
		return JitFromLong(a.AsLong() / b.AsLong()), true
	}
	x, okx := jitAsFloat(a)
	y, oky := jitAsFloat(b)
	if !okx || !oky {
		return 0, false
	}
	return JitFromFloat(x / y), true
}

func jitAsFloat(v JitValue) (float64, bool) {
	switch {
	case v.IsFloat():
		return v.AsFloat(), true
	case v.IsLong():
		return float64(v.AsLong()), true
	}
	return 0, false
}

func jitEmitMod(a, b JitValue) (JitValue, bool) {
	if !a.IsLong() || !b.IsLong() || b.AsLong() == 0 {
		return 0, false
	}
	return JitFromLong(a.AsLong() % b.AsLong()), true
}

func jitArith(a, b JitValue, longOp func(int64, int64) int64, floatOp func(float64, float64) float64) (JitValue, bool) {
	if a.IsLong() && b.IsLong() {
		return JitFromLong(longOp(a.AsLong(), b.AsLong())), true
	}
	if a.IsFloat() && b.IsFloat() {
		return JitFromFloat(floatOp(a.AsFloat(), b.AsFloat())), true
	}
	if a.IsLong() && b.IsFloat() {
		return JitFromFloat(floatOp(float64(a.AsLong()), b.AsFloat())), true
	}
	if a.IsFloat() && b.IsLong() {
		return JitFromFloat(floatOp(a.AsFloat(), float64(b.AsLong()))), true
	}
	return 0, false
}

func jitEmitLt(a, b JitValue) (JitValue, bool) { return jitCompare(a, b, func(c int) bool { return c < 0 }) }
func jitEmitLe(a, b JitValue) (JitValue, bool) { return jitCompare(a, b, func(c int) bool { return c <= 0 }) }
func jitEmitGt(a, b JitValue) (JitValue, bool) { return jitCompare(a, b, func(c int) bool { return c > 0 }) }
func jitEmitGe(a, b JitValue) (JitValue, bool) { return jitCompare(a, b, func(c int) bool { return c >= 0 }) }

func jitCompare(a, b JitValue, pred func(int) bool) (JitValue, bool) {
	var x, y float64
	switch {
	case a.IsLong() && b.IsLong():
		al, bl := a.AsLong(), b.AsLong()
		switch {
		case al < bl:
			return JitFromBool(pred(-1)), true
		case al > bl:
			return JitFromBool(pred(1)), true
		default:
			return JitFromBool(pred(0)), true
		}
	case a.IsFloat():
		x = a.AsFloat()
	case a.IsLong():
		x = float64(a.AsLong())
	default:
		return 0, false
	}
	switch {
	case b.IsFloat():
		y = b.AsFloat()
	case b.IsLong():
		y = float64(b.AsLong())
	default:
		return 0, false
	}
	switch {
	case x < y:
		return JitFromBool(pred(-1)), true
	case x > y:
		return JitFromBool(pred(1)), true
	default:
		return JitFromBool(pred(0)), true
	}
}

// jitStep is one compiled Stage-1 instruction: given the context's
// stack it performs the instruction's effect and returns the next ip,
// or bails out.
type jitStep func(ctx *JITContext, ip int) (nextIP int, ok bool)

// compileStage1 walks a chunk once and builds a jitStep per instruction
// when every instruction in the chunk is on the IsJITSimple allowlist;
// it reports ok=false for a chunk with any non-simple opcode, which
// includes every nondeterminism opcode (§4.6).
func compileStage1(chunk *Chunk) ([]jitStep, bool) {
	steps := make([]jitStep, len(chunk.Instructions))
	for i, in := range chunk.Instructions {
		if !in.Op.IsJITSimple() {
			return nil, false
		}
		steps[i] = compileStep(chunk, in)
		if steps[i] == nil {
			return nil, false
		}
	}
	return steps, true
}

func compileStep(chunk *Chunk, in Instr) jitStep {
	switch in.Op {
	case OpPushConst:
		v, ok := ValueToJit(chunk.Constants[in.A])
		return func(ctx *JITContext, ip int) (int, bool) {
			if !ok {
				return 0, false
			}
			ctx.Stack = append(ctx.Stack, v)
			return ip + 1, true
		}
	case OpPushLongSmall:
		v := JitFromLong(int64(in.A))
		return func(ctx *JITContext, ip int) (int, bool) {
			ctx.Stack = append(ctx.Stack, v)
			return ip + 1, true
		}
	case OpPop:
		return func(ctx *JITContext, ip int) (int, bool) {
			if len(ctx.Stack) == 0 {
				return 0, false
			}
			ctx.Stack = ctx.Stack[:len(ctx.Stack)-1]
			return ip + 1, true
		}
	case OpDup:
		return func(ctx *JITContext, ip int) (int, bool) {
			if len(ctx.Stack) == 0 {
				return 0, false
			}
			ctx.Stack = append(ctx.Stack, ctx.Stack[len(ctx.Stack)-1])
			return ip + 1, true
		}
	case OpSwap:
		return func(ctx *JITContext, ip int) (int, bool) {
			n := len(ctx.Stack)
			if n < 2 {
				return 0, false
			}
			ctx.Stack[n-1], ctx.Stack[n-2] = ctx.Stack[n-2], ctx.Stack[n-1]
			return ip + 1, true
		}
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpLt, OpLe, OpGt, OpGe, OpEq, OpNe, OpAnd, OpOr:
		emit := jitEmitterFor(in.Op)
		return func(ctx *JITContext, ip int) (int, bool) {
			n := len(ctx.Stack)
			if n < 2 {
				return 0, false
			}
			a, b := ctx.Stack[n-2], ctx.Stack[n-1]
			r, ok := emit(a, b)
			if !ok {
				return 0, false
			}
			ctx.Stack = append(ctx.Stack[:n-2], r)
			return ip + 1, true
		}
	case OpNot:
		return func(ctx *JITContext, ip int) (int, bool) {
			n := len(ctx.Stack)
			if n < 1 || !ctx.Stack[n-1].IsBool() {
				return 0, false
			}
			ctx.Stack[n-1] = JitFromBool(!ctx.Stack[n-1].AsBool())
			return ip + 1, true
		}
	case OpJump:
		return func(ctx *JITContext, ip int) (int, bool) { return ip + 1 + int(in.A), true }
	case OpBranchFalse:
		return func(ctx *JITContext, ip int) (int, bool) {
			n := len(ctx.Stack)
			if n < 1 || !ctx.Stack[n-1].IsBool() {
				return 0, false
			}
			taken := ctx.Stack[n-1].AsBool()
			ctx.Stack = ctx.Stack[:n-1]
			if !taken {
				return ip + 1 + int(in.A), true
			}
			return ip + 1, true
		}
	case OpReturn:
		return func(ctx *JITContext, ip int) (int, bool) { return ip, true }
	case OpLoadBinding:
		idx := int(in.A)
		return func(ctx *JITContext, ip int) (int, bool) {
			if idx >= len(ctx.Bindings) {
				return 0, false
			}
			ctx.Stack = append(ctx.Stack, ctx.Bindings[idx])
			return ip + 1, true
		}
	case OpStoreBinding:
		idx := int(in.A)
		return func(ctx *JITContext, ip int) (int, bool) {
			n := len(ctx.Stack)
			if n < 1 {
				return 0, false
			}
			for len(ctx.Bindings) <= idx {
				ctx.Bindings = append(ctx.Bindings, JitNil)
			}
			ctx.Bindings[idx] = ctx.Stack[n-1]
			ctx.Stack = ctx.Stack[:n-1]
			return ip + 1, true
		}
	case OpHasBinding:
		idx := int(in.A)
		return func(ctx *JITContext, ip int) (int, bool) {
			has := idx < len(ctx.Bindings) && !ctx.Bindings[idx].IsNil()
			ctx.Stack = append(ctx.Stack, JitFromBool(has))
			return ip + 1, true
		}
	}
	return nil
}

func jitEmitterFor(op Opcode) JITEmitter {
	switch op {
	case OpAdd:
		return jitEmitAdd
	case OpSub:
		return jitEmitSub
	case OpMul:
		return jitEmitMul
	case OpDiv:
		return jitEmitDiv
	case OpMod:
		return jitEmitMod
	case OpLt:
		return jitEmitLt
	case OpLe:
		return jitEmitLe
	case OpGt:
		return jitEmitGt
	case OpGe:
		return jitEmitGe
	case OpEq:
		return func(a, b JitValue) (JitValue, bool) { return JitFromBool(a == b), true }
	case OpNe:
		return func(a, b JitValue) (JitValue, bool) { return JitFromBool(a != b), true }
	case OpAnd:
		return func(a, b JitValue) (JitValue, bool) {
			if !a.IsBool() || !b.IsBool() {
				return 0, false
			}
			return JitFromBool(a.AsBool() && b.AsBool()), true
		}
	case OpOr:
		return func(a, b JitValue) (JitValue, bool) {
			if !a.IsBool() || !b.IsBool() {
				return 0, false
			}
			return JitFromBool(a.AsBool() || b.AsBool()), true
		}
	}
	return nil
}

// runStage1 drives a compiled step list to completion or bailout,
// mirroring the VM's own run loop but over JitValue words.
func runStage1(steps []jitStep, ctx *JITContext) (Value, bool) {
	ip := 0
	for ip < len(steps) {
		next, ok := steps[ip](ctx, ip)
		if !ok {
			ctx.bail(ip, BailoutUnsupportedOperation)
			return Nil, false
		}
		if next == ip {
			// OpReturn: ip unchanged signals completion.
			break
		}
		ip = next
	}
	if len(ctx.Stack) == 0 {
		return Nil, false
	}
	return JitToValue(ctx.Stack[len(ctx.Stack)-1]), true
}

// tryCompileAndRun is the Hot->Compiling->Jitted path (§3, §4.6): on
// the winning CAS it compiles Stage 1 once and caches the closure list
// on the profile; every later call reuses it until the chunk falls out
// of the executor's cache.
func tryCompileAndRun(profile *JitProfile, chunk *Chunk, bindings []JitValue) (Value, bool) {
	if chunk.HasNondeterminism {
		return Nil, false
	}
	native := profile.Native()
	if native == nil {
		if !profile.TryEnterCompiling() {
			return Nil, false
		}
		steps, ok := compileStage1(chunk)
		if !ok {
			profile.FinishCompiling(false, nil)
			return Nil, false
		}
		compiled := &jitCompiled{codeBytes: len(steps) * 32}
		compiled.run = func(ctx *JITContext) []Value {
			v, ok := runStage1(steps, ctx)
			if !ok {
				return nil
			}
			return []Value{v}
		}
		profile.FinishCompiling(true, compiled)
		native = compiled
	}
	ctx := &JITContext{Bindings: bindings}
	results := native.run(ctx)
	if ctx.Bailout || results == nil {
		return Nil, false
	}
	return results[0], true
}
