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

// vmChoicePoint is the VM-level (non-JIT) choice point: a saved stack
// prefix, resume ip, and the list of alternative jump targets still to
// try (§4.5).
type vmChoicePoint struct {
	savedStack []Value
	resumeIP   int
	alts       []int32
	nextAlt    int
}

// VM is the stack-based bytecode interpreter (§4.5). It is the tier
// every chunk starts in and the tier every JIT bailout resumes in.
type VM struct {
	env     *Env
	chunk   *Chunk
	stack   []Value
	choice  []vmChoicePoint
	results []Value
	bindings []Value // flat binding-frame array, indexed by LoadBinding/StoreBinding
}

func NewVM(env *Env, chunk *Chunk) *VM {
	return &VM{env: env, chunk: chunk}
}

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }
func (vm *VM) pop() Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

// Run executes the chunk from ip=0 and returns every collected result
// (§4.5/§4.7 `run_with_backtracking`).
func (vm *VM) Run() []Value {
	return vm.run(0)
}

// ResumeFromBailout restores the VM stack and continues execution from
// ip -- the mandatory JIT-to-VM handoff entry point (§4.5, §4.6).
func (vm *VM) ResumeFromBailout(ip int, stackValues []Value) []Value {
	vm.stack = append([]Value{}, stackValues...)
	return vm.run(ip)
}

func (vm *VM) run(startIP int) []Value {
	ip := startIP
	for {
		if ip >= len(vm.chunk.Instructions) {
			return vm.results
		}
		in := vm.chunk.Instructions[ip]
		next := ip + 1
		switch in.Op {
		case OpPushConst:
			vm.push(vm.chunk.Constants[in.A])
		case OpPushLongSmall:
			vm.push(NewLong(int64(in.A)))
		case OpPop:
			vm.pop()
		case OpDup:
			v := vm.stack[len(vm.stack)-1]
			vm.push(v)
		case OpSwap:
			n := len(vm.stack)
			vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]
		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpLt, OpLe, OpGt, OpGe, OpEq, OpNe, OpAnd, OpOr:
			b := vm.pop()
			a := vm.pop()
			v, bailout, reason := vmBinary(in.Op, a, b)
			if bailout {
				return vm.bailReason(ip, reason)
			}
			vm.push(v)
		case OpNot:
			a := vm.pop()
			if a.Tag() != TagBool {
				return vm.bail(ip)
			}
			vm.push(NewBool(!a.Bool()))
		case OpJump:
			next = ip + 1 + int(in.A)
		case OpBranchFalse:
			v := vm.pop()
			if !condTrue([]Value{v}) {
				next = ip + 1 + int(in.A)
			}
		case OpReturn:
			if len(vm.stack) > 0 {
				vm.results = append(vm.results, vm.pop())
			}
			return vm.results
		case OpLoadBinding:
			vm.push(vm.bindings[in.A])
		case OpStoreBinding:
			v := vm.pop()
			vm.ensureBindingSlot(int(in.A))
			vm.bindings[in.A] = v
		case OpHasBinding:
			has := int(in.A) < len(vm.bindings) && !vm.bindings[in.A].IsNil()
			vm.push(NewBool(has))
		case OpFork:
			alts := make([]int32, in.A)
			// alternative targets were appended as successive constant
			// indices starting at B; decode them back into absolute ips.
			for i := range alts {
				alts[i] = int32(vm.chunk.Constants[int(in.B)+i].Long())
			}
			cp := vmChoicePoint{
				savedStack: append([]Value{}, vm.stack...),
				resumeIP:   next,
				alts:       alts,
			}
			vm.choice = append(vm.choice, cp)
			if len(alts) > 0 {
				next = int(alts[0])
				vm.choice[len(vm.choice)-1].nextAlt = 1
			}
		case OpYield:
			if len(vm.stack) > 0 {
				vm.results = append(vm.results, vm.stack[len(vm.stack)-1])
			}
			bip, ok := vm.backtrack()
			if !ok {
				return vm.results
			}
			next = bip
		case OpFail:
			bip, ok := vm.backtrack()
			if !ok {
				return vm.results
			}
			next = bip
		case OpCollect, OpCollectN:
			return vm.results
		case OpCut:
			if len(vm.choice) > 0 {
				vm.choice = vm.choice[:len(vm.choice)-1]
			}
		default:
			return vm.bail(ip)
		}
		ip = next
	}
}

func (vm *VM) ensureBindingSlot(idx int) {
	for len(vm.bindings) <= idx {
		vm.bindings = append(vm.bindings, Nil)
	}
}

// backtrack pops the most recent choice point and either advances it to
// its next alternative (returning the resume ip) or discards it and
// tries the one below.
func (vm *VM) backtrack() (int, bool) {
	for len(vm.choice) > 0 {
		cp := &vm.choice[len(vm.choice)-1]
		vm.stack = append([]Value{}, cp.savedStack...)
		if cp.nextAlt < len(cp.alts) {
			ip := int(cp.alts[cp.nextAlt])
			cp.nextAlt++
			if cp.nextAlt >= len(cp.alts) {
				vm.choice = vm.choice[:len(vm.choice)-1]
			}
			return ip, true
		}
		vm.choice = vm.choice[:len(vm.choice)-1]
	}
	return 0, false
}

// bail is the VM's own analogue of a JIT bailout reason: an opcode it
// cannot execute (e.g. a malformed program) stops the run rather than
// panicking the host.
func (vm *VM) bail(ip int) []Value {
	return vm.bailReason(ip, "unsupported-opcode")
}

// bailReason stops the run with an Error tagged reason, carrying the
// offending opcode as the error's payload so tier-transparent error
// kinds (§8 property 6, e.g. divide-by-zero) survive a VM bailout the
// same way they would from the tree-walking grounded path.
func (vm *VM) bailReason(ip int, reason string) []Value {
	vm.results = append(vm.results, NewError(reason, NewLong(int64(vm.chunk.Instructions[ip].Op))))
	return vm.results
}

// vmBinary executes one binary opcode. The returned bool is whether the
// VM must bail out of bytecode execution entirely; the string names the
// Error kind to bail out with ("unsupported-opcode" for a genuine type
// mismatch, "divide-by-zero" for integer / or % by a zero divisor, kept
// distinct so this tier's errors match the grounded tree-walking "/" and
// "%" path in builtins.go).
func vmBinary(op Opcode, a, b Value) (Value, bool, string) {
	switch op {
	case OpAnd:
		if a.Tag() != TagBool || b.Tag() != TagBool {
			return Nil, true, "unsupported-opcode"
		}
		return NewBool(a.Bool() && b.Bool()), false, ""
	case OpOr:
		if a.Tag() != TagBool || b.Tag() != TagBool {
			return Nil, true, "unsupported-opcode"
		}
		return NewBool(a.Bool() || b.Bool()), false, ""
	case OpEq:
		return NewBool(Equal(a, b)), false, ""
	case OpNe:
		return NewBool(!Equal(a, b)), false, ""
	}
	if !isNumeric(a) || !isNumeric(b) {
		return Nil, true, "unsupported-opcode"
	}
	if a.Tag() == TagLong && b.Tag() == TagLong {
		x, y := a.Long(), b.Long()
		switch op {
		case OpAdd:
			return NewLong(x + y), false, ""
		case OpSub:
			return NewLong(x - y), false, ""
		case OpMul:
			return NewLong(x * y), false, ""
		case OpDiv:
			if y == 0 {
				return Nil, true, "divide-by-zero"
			}
			return NewLong(x / y), false, ""
		case OpMod:
			if y == 0 {
				return Nil, true, "divide-by-zero"
			}
			return NewLong(x % y), false, ""
		case OpLt:
			return NewBool(x < y), false, ""
		case OpLe:
			return NewBool(x <= y), false, ""
		case OpGt:
			return NewBool(x > y), false, ""
		case OpGe:
			return NewBool(x >= y), false, ""
		}
	}
	x, y := asFloat(a), asFloat(b)
	switch op {
	case OpAdd:
		return NewFloat(x + y), false, ""
	case OpSub:
		return NewFloat(x - y), false, ""
	case OpMul:
		return NewFloat(x * y), false, ""
	case OpDiv:
		return NewFloat(x / y), false, ""
	case OpLt:
		return NewBool(x < y), false, ""
	case OpLe:
		return NewBool(x <= y), false, ""
	case OpGt:
		return NewBool(x > y), false, ""
	case OpGe:
		return NewBool(x >= y), false, ""
	}
	return Nil, true, "unsupported-opcode"
}
