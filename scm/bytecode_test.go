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
	"testing"

	"github.com/stretchr/testify/assert"
)

func simpleAddChunk() *Chunk {
	return NewChunk(
		[]Instr{
			{Op: OpPushLongSmall, A: 2},
			{Op: OpPushLongSmall, A: 3},
			{Op: OpAdd},
			{Op: OpReturn},
		},
		nil,
		[]LineEntry{{Offset: 0, Line: 1, Col: 1}},
	)
}

func TestChunkEncodeDecodeRoundTrip(t *testing.T) {
	c := simpleAddChunk()
	var buf bytes.Buffer
	assert.NoError(t, c.Encode(&buf))

	decoded, err := DecodeChunk(&buf)
	assert.NoError(t, err)
	assert.Equal(t, c.Instructions, decoded.Instructions)
	assert.Equal(t, c.HasNondeterminism, decoded.HasNondeterminism)
	assert.Equal(t, c.ChunkID, decoded.ChunkID)
}

func TestChunkEncodeCompressedRoundTrip(t *testing.T) {
	c := NewChunk(
		[]Instr{{Op: OpPushConst, A: 0}, {Op: OpReturn}},
		[]Value{NewString("a moderately long constant to give lz4 something to compress")},
		nil,
	)
	var plain, compressed bytes.Buffer
	assert.NoError(t, c.Encode(&plain))
	assert.NoError(t, c.EncodeCompressed(&compressed))

	decodedPlain, err := DecodeChunkAuto(bytes.NewReader(plain.Bytes()))
	assert.NoError(t, err)
	assert.Equal(t, c.ChunkID, decodedPlain.ChunkID)

	decodedCompressed, err := DecodeChunkAuto(bytes.NewReader(compressed.Bytes()))
	assert.NoError(t, err)
	assert.Equal(t, c.ChunkID, decodedCompressed.ChunkID)
	assert.Equal(t, c.Constants, decodedCompressed.Constants)
}

func TestChunkIDIsStableAndContentSensitive(t *testing.T) {
	c1 := simpleAddChunk()
	c2 := simpleAddChunk()
	assert.Equal(t, c1.ChunkID, c2.ChunkID)

	c3 := NewChunk([]Instr{
		{Op: OpPushLongSmall, A: 2},
		{Op: OpPushLongSmall, A: 4},
		{Op: OpAdd},
		{Op: OpReturn},
	}, nil, nil)
	assert.NotEqual(t, c1.ChunkID, c3.ChunkID)
}

func TestHasNondeterminismSetAtEmission(t *testing.T) {
	det := simpleAddChunk()
	assert.False(t, det.HasNondeterminism)

	nondet := NewChunk([]Instr{
		{Op: OpFork, A: 0, B: 0},
		{Op: OpReturn},
	}, nil, nil)
	assert.True(t, nondet.HasNondeterminism)
}

func TestIsJITSimpleAllowlist(t *testing.T) {
	assert.True(t, OpAdd.IsJITSimple())
	assert.True(t, OpLoadBinding.IsJITSimple())
	assert.False(t, OpFork.IsJITSimple())
	assert.False(t, OpSpaceQuery.IsJITSimple())
}

func TestVMRunsSimpleArithmeticChunk(t *testing.T) {
	env := NewEnv(DefaultConfig())
	vm := NewVM(env, simpleAddChunk())
	result := vm.Run()
	assert.True(t, EqualSeq(result, []Value{NewLong(5)}))
}

func TestVMForkYieldCollectsAllAlternatives(t *testing.T) {
	chunk := NewChunk([]Instr{
		{Op: OpFork, A: 2, B: 2}, // two alternatives, constants start at index 2
		{Op: OpPushConst, A: 0},
		{Op: OpYield},
		{Op: OpPushConst, A: 1},
		{Op: OpYield},
	}, []Value{NewLong(10), NewLong(20), NewLong(1), NewLong(3)}, nil)
	env := NewEnv(DefaultConfig())
	vm := NewVM(env, chunk)
	result := vm.Run()
	assert.True(t, EqualSeq(result, []Value{NewLong(10), NewLong(20)}))
}

func TestVMResumeFromBailoutContinuesExecution(t *testing.T) {
	chunk := simpleAddChunk()
	env := NewEnv(DefaultConfig())
	vm := NewVM(env, chunk)
	result := vm.ResumeFromBailout(2, []Value{NewLong(2), NewLong(3)})
	assert.True(t, EqualSeq(result, []Value{NewLong(5)}))
}
