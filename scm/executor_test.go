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
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type nopCloserBuf struct{ *bytes.Buffer }

func (nopCloserBuf) Close() error { return nil }

func TestExecutorEmitsTraceEventsWhenTracingEnabled(t *testing.T) {
	env := NewEnv(DefaultConfig())
	var buf bytes.Buffer
	env.Trace = NewTrace(io.WriteCloser(nopCloserBuf{&buf}))

	chunk := simpleAddChunk()
	result := env.Executor.Run(env, chunk, nil)
	assert.True(t, EqualSeq(result, []Value{NewLong(5)}))
	env.Trace.Close()

	var events []map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &events))
	assert.Len(t, events, 2) // begin + end
	assert.Equal(t, "executor.run", events[0]["name"])
}

func TestExecutorRunsOnVMBelowHotThreshold(t *testing.T) {
	env := NewEnv(DefaultConfig())
	chunk := simpleAddChunk()
	result := env.Executor.Run(env, chunk, nil)
	assert.True(t, EqualSeq(result, []Value{NewLong(5)}))
}

func TestExecutorPromotesToJitAfterHotThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmThreshold = 1
	cfg.HotThreshold = 2
	env := NewEnv(cfg)
	chunk := simpleAddChunk()

	var last []Value
	for i := 0; i < 5; i++ {
		last = env.Executor.Run(env, chunk, nil)
	}
	assert.True(t, EqualSeq(last, []Value{NewLong(5)}))

	// Compilation runs on the scheduler in the background, so the profile
	// reaches Jitted shortly after the run that crossed the Hot threshold.
	profile := env.Executor.profileFor(chunk)
	assert.Eventually(t, func() bool { return profile.State() == JitJitted }, time.Second, time.Millisecond)
}

func TestExecutorNeverJitsNondeterministicChunks(t *testing.T) {
	env := NewEnv(DefaultConfig())
	chunk := NewChunk([]Instr{
		{Op: OpFork, A: 1, B: 1},
		{Op: OpPushConst, A: 0},
		{Op: OpYield},
	}, []Value{NewLong(1), NewLong(1)}, nil)

	for i := 0; i < 10; i++ {
		env.Executor.Run(env, chunk, nil)
	}
	profile := env.Executor.profileFor(chunk)
	assert.NotEqual(t, JitJitted, profile.State())
}

func TestExecutorEvictsUnderEntryCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheMaxEntries = 1
	env := NewEnv(cfg)

	c1 := NewChunk([]Instr{{Op: OpPushLongSmall, A: 1}, {Op: OpReturn}}, nil, nil)
	c2 := NewChunk([]Instr{{Op: OpPushLongSmall, A: 2}, {Op: OpReturn}}, nil, nil)

	env.Executor.profileFor(c1)
	env.Executor.profileFor(c2)
	env.Executor.mu.Lock()
	n := len(env.Executor.profiles)
	env.Executor.mu.Unlock()
	assert.Equal(t, 1, n)
}
