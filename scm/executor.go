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
	"bytes"
	"container/list"
	"sync"
)

// executorCacheEntry pairs a chunk's id with its JIT profile; it is the
// element type of the executor's LRU list.
type executorCacheEntry struct {
	chunkID uint64
	profile *JitProfile
}

// Executor is the hybrid tiered-execution front door (§4.7): every
// chunk starts on the VM; once its JitProfile crosses the Hot
// threshold a Stage-1 compile is attempted, cached by ChunkID, and
// reused until evicted by the entry/code-size caps.
type Executor struct {
	env *Env
	cfg *Config

	mu         sync.Mutex
	profiles   map[uint64]*JitProfile
	lru        *list.List
	lruIndex   map[uint64]*list.Element
	codeBytes  int64
}

func (ex *Executor) log() Logger {
	if ex.env != nil && ex.env.Logger != nil {
		return ex.env.Logger
	}
	return NewNopLogger()
}

func NewExecutor(env *Env, cfg *Config) *Executor {
	return &Executor{
		env:      env,
		cfg:      cfg,
		profiles: make(map[uint64]*JitProfile),
		lru:      list.New(),
		lruIndex: make(map[uint64]*list.Element),
	}
}

func (ex *Executor) profileFor(chunk *Chunk) *JitProfile {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	p, ok := ex.profiles[chunk.ChunkID]
	if !ok {
		p = NewJitProfile()
		ex.profiles[chunk.ChunkID] = p
		ex.evictLocked()
	}
	if el, ok := ex.lruIndex[chunk.ChunkID]; ok {
		ex.lru.MoveToFront(el)
	} else {
		ex.lruIndex[chunk.ChunkID] = ex.lru.PushFront(&executorCacheEntry{chunkID: chunk.ChunkID, profile: p})
	}
	return p
}

// evictLocked drops the least-recently-used compiled chunk once the
// entry count or cumulative code-byte budget is exceeded (§6
// cache_max_entries / cache_max_code_bytes).
func (ex *Executor) evictLocked() {
	for len(ex.profiles) > ex.cfg.CacheMaxEntries || ex.codeBytes > ex.cfg.CacheMaxCodeBytes {
		back := ex.lru.Back()
		if back == nil {
			return
		}
		entry := back.Value.(*executorCacheEntry)
		if native := entry.profile.Native(); native != nil {
			ex.codeBytes -= int64(native.codeBytes)
		}
		ex.lru.Remove(back)
		delete(ex.lruIndex, entry.chunkID)
		delete(ex.profiles, entry.chunkID)
	}
}

// Run executes chunk and returns every result the VM or JIT tier
// collects, exactly `run_with_backtracking`'s contract (§4.5, §4.7):
// nondeterministic chunks, or chunks whose Stage-1 attempt bails out,
// always fall through to (or resume in) the VM.
func (ex *Executor) Run(env *Env, chunk *Chunk, bindings []Value) []Value {
	if env.Trace != nil {
		var out []Value
		env.Trace.Duration("executor.run", "exec", func() { out = ex.run(env, chunk, bindings) })
		return out
	}
	return ex.run(env, chunk, bindings)
}

func (ex *Executor) run(env *Env, chunk *Chunk, bindings []Value) []Value {
	if !ex.cfg.JitEnabled || chunk.HasNondeterminism {
		vm := NewVM(env, chunk)
		vm.bindings = append([]Value{}, bindings...)
		return vm.Run()
	}

	profile := ex.profileFor(chunk)
	state := profile.RecordExecution(ex.cfg)
	if state == JitJitted || profile.Native() != nil {
		jitBindings := make([]JitValue, len(bindings))
		ok := true
		for i, b := range bindings {
			jitBindings[i], ok = ValueToJit(b)
			if !ok {
				break
			}
		}
		if ok {
			if v, ran := tryCompileAndRun(profile, chunk, jitBindings); ran {
				return []Value{v}
			}
		}
		// Bailout: resume in the VM from the top, mirroring
		// ResumeFromBailout's contract since Stage 1 here has no
		// partial-ip checkpoint to hand back (whole-chunk compile).
	} else if state == JitHot {
		if profile.TryEnterCompiling() {
			// Stage-1 compilation runs on the scheduler's worker pool
			// (§4.8 PriorityBackgroundCompile) rather than inline on this
			// call's goroutine -- this invocation still falls through to
			// the VM below and picks up the compiled chunk on some later
			// call once FinishCompiling lands.
			ex.env.Scheduler.Submit(PriorityBackgroundCompile, func() {
				ex.compileStage1InBackground(chunk, profile)
			})
		}
	}

	vm := NewVM(env, chunk)
	vm.bindings = append([]Value{}, bindings...)
	return vm.Run()
}

// compileStage1InBackground does the actual Stage-1 compile work
// submitted to the scheduler above; split out so Submit's closure stays
// small and this is independently testable.
func (ex *Executor) compileStage1InBackground(chunk *Chunk, profile *JitProfile) {
	steps, ok := compileStage1(chunk)
	if ok {
		compiled := &jitCompiled{codeBytes: len(steps) * 32}
		compiled.run = func(ctx *JITContext) []Value {
			v, ok := runStage1(steps, ctx)
			if !ok {
				return nil
			}
			return []Value{v}
		}
		ex.mu.Lock()
		ex.codeBytes += int64(compiled.codeBytes)
		ex.evictLocked()
		ex.mu.Unlock()
		profile.FinishCompiling(true, compiled)
		ex.log().Infof("chunk %x promoted to jit (%d instructions)", chunk.ChunkID, len(steps))
		ex.logCacheFootprint(chunk)
	} else {
		profile.FinishCompiling(false, nil)
		ex.log().Warnf("chunk %x hot but not jit-simple, staying on vm", chunk.ChunkID)
	}
}

// logCacheFootprint records, at Info level, how big chunk's on-disk
// representation would be if it were ever persisted to an out-of-process
// JIT cache -- Config.ChunkCompression (§6) picks between the plain and
// LZ4-framed encodings, the same choice a chunk-cache writer would make
// before spilling a large promoted chunk's constant pool to disk.
func (ex *Executor) logCacheFootprint(chunk *Chunk) {
	var buf bytes.Buffer
	var err error
	if ex.cfg.ChunkCompression {
		err = chunk.EncodeCompressed(&buf)
	} else {
		err = chunk.Encode(&buf)
	}
	if err != nil {
		ex.log().Warnf("chunk %x: cache encode failed: %v", chunk.ChunkID, err)
		return
	}
	ex.log().Infof("chunk %x: cache footprint %d bytes (compressed=%v)", chunk.ChunkID, buf.Len(), ex.cfg.ChunkCompression)
}

// RunWithBacktracking is an alias kept for callers that want the name
// used in §4.7's contract table; its semantics are identical to Run.
func (ex *Executor) RunWithBacktracking(env *Env, chunk *Chunk, bindings []Value) []Value {
	return ex.Run(env, chunk, bindings)
}
