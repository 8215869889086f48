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
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Opcode is the bytecode VM's instruction tag (§4.5). Numeric values
// are this implementation's own encoding; the spec leaves the exact
// encoding open.
type Opcode uint8

const (
	OpPushConst Opcode = iota // u16 constant index
	OpPushLongSmall           // i8 immediate
	OpPop
	OpDup
	OpSwap

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
	OpNot

	OpJump       // i16 relative offset
	OpBranchFalse // i16 relative offset
	OpReturn
	OpCall    // u16 constant index (name), arity follows as u8
	OpCallN   // like OpCall, with a dynamic arg count already on the stack
	OpTailCall
	OpTailCallN

	OpLoadBinding  // u32 index
	OpStoreBinding // u32 index
	OpHasBinding   // u32 index
	OpPushBindingFrame
	OpPopBindingFrame
	OpClearBindings

	OpMatch
	OpMatchBind

	OpSpaceAdd
	OpSpaceRemove
	OpSpaceQuery

	// Nondeterminism opcodes. Any chunk that emits one of these has
	// has_nondeterminism set at emission time and is never JITed.
	OpFork // A = count, B = index of the first of `count` consecutive constants holding target ips
	OpFail
	OpCut
	OpCollect
	OpCollectN // u16
	OpYield
	OpBeginNondet
	OpEndNondet
	OpAmb
	OpGuard
	OpBacktrack
	OpCommit
)

// IsNondeterministic reports whether op is one of the nondeterminism
// opcodes that forces has_nondeterminism (§4.5).
func (op Opcode) IsNondeterministic() bool {
	return op >= OpFork && op <= OpCommit
}

// IsJITSimple reports whether op is in Stage 1's emission allowlist:
// arithmetic, comparisons, logic, stack ops, and binding load/store
// (§4.6 Stage 1).
func (op Opcode) IsJITSimple() bool {
	switch op {
	case OpPushConst, OpPushLongSmall, OpPop, OpDup, OpSwap,
		OpAdd, OpSub, OpMul, OpDiv, OpMod,
		OpLt, OpLe, OpGt, OpGe, OpEq, OpNe, OpAnd, OpOr, OpNot,
		OpLoadBinding, OpStoreBinding, OpHasBinding,
		OpJump, OpBranchFalse, OpReturn:
		return true
	}
	return false
}

// Instr is one decoded instruction: an opcode plus up to two operands.
type Instr struct {
	Op   Opcode
	A, B int32
}

// LineEntry maps an instruction offset to a source position.
type LineEntry struct {
	Offset uint32
	Line   uint32
	Col    uint32
}

// Chunk is the immutable bytecode unit (§3, §4.5). ChunkID is a stable
// content hash over the instruction stream and canonical constant pool,
// computed once at construction.
type Chunk struct {
	Instructions     []Instr
	Constants        []Value
	Lines            []LineEntry
	HasNondeterminism bool
	ChunkID          uint64
}

// NewChunk builds a Chunk and computes its content hash. has_nondeterminism
// is derived here from the instruction stream, matching the emission-time
// invariant: it is a property of what was emitted, not of a later scan.
func NewChunk(instrs []Instr, consts []Value, lines []LineEntry) *Chunk {
	c := &Chunk{Instructions: instrs, Constants: consts, Lines: lines}
	for _, in := range instrs {
		if in.Op.IsNondeterministic() {
			c.HasNondeterminism = true
			break
		}
	}
	c.ChunkID = c.computeHash()
	return c
}

func (c *Chunk) computeHash() uint64 {
	h := fnv.New64a()
	for _, in := range c.Instructions {
		binary.Write(h, binary.LittleEndian, in.Op)
		binary.Write(h, binary.LittleEndian, in.A)
		binary.Write(h, binary.LittleEndian, in.B)
	}
	for _, k := range c.Constants {
		h.Write(EncodePath(k))
	}
	return h.Sum64()
}

const chunkMagic = "MTTC"
const chunkVersion byte = 1

// Encode writes the logical binary layout from §6: magic+version,
// instructions, constants, line map, flags byte.
func (c *Chunk) Encode(w io.Writer) error {
	if _, err := w.Write([]byte(chunkMagic)); err != nil {
		return err
	}
	if _, err := w.Write([]byte{chunkVersion}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.Instructions))); err != nil {
		return err
	}
	for _, in := range c.Instructions {
		if err := binary.Write(w, binary.LittleEndian, in.Op); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, in.A); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, in.B); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.Constants))); err != nil {
		return err
	}
	for _, k := range c.Constants {
		path := EncodePath(k)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(path))); err != nil {
			return err
		}
		if _, err := w.Write(path); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.Lines))); err != nil {
		return err
	}
	for _, l := range c.Lines {
		if err := binary.Write(w, binary.LittleEndian, l); err != nil {
			return err
		}
	}
	var flags byte
	if c.HasNondeterminism {
		flags |= 1
	}
	_, err := w.Write([]byte{flags})
	return err
}

// EncodeCompressed wraps Encode's logical layout in an LZ4 frame (§6's
// optional chunk-compression knob, Config.ChunkCompression): a leading
// uncompressed byte distinguishes this form from plain Encode output so
// DecodeChunkAuto can dispatch without guessing, then the usual
// magic/instructions/constants/lines/flags stream is LZ4-compressed
// behind it. Large constant pools (string-heavy rule bodies, bulk
// literal tables) are the case this earns its keep over plain Encode.
func (c *Chunk) EncodeCompressed(w io.Writer) error {
	if _, err := w.Write([]byte{1}); err != nil {
		return err
	}
	zw := lz4.NewWriter(w)
	if err := c.Encode(zw); err != nil {
		return err
	}
	return zw.Close()
}

// DecodeChunkAuto reads whichever of Encode/EncodeCompressed's forms r
// holds, inspecting the leading dispatch byte EncodeCompressed writes.
func DecodeChunkAuto(r io.Reader) (*Chunk, error) {
	var tag byte
	if err := binReadByte(r, &tag); err != nil {
		return nil, err
	}
	if tag == 1 {
		return DecodeChunk(lz4.NewReader(r))
	}
	return DecodeChunk(io.MultiReader(bytes.NewReader([]byte{tag}), r))
}

// DecodeChunk is Encode's total inverse.
func DecodeChunk(r io.Reader) (*Chunk, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, err
	}
	if string(magic) != chunkMagic {
		return nil, fmt.Errorf("bytecode: bad magic %q", magic)
	}
	var version byte
	if err := binReadByte(r, &version); err != nil {
		return nil, err
	}
	var nInstr uint32
	if err := binary.Read(r, binary.LittleEndian, &nInstr); err != nil {
		return nil, err
	}
	instrs := make([]Instr, nInstr)
	for i := range instrs {
		if err := binary.Read(r, binary.LittleEndian, &instrs[i].Op); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &instrs[i].A); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &instrs[i].B); err != nil {
			return nil, err
		}
	}
	var nConst uint32
	if err := binary.Read(r, binary.LittleEndian, &nConst); err != nil {
		return nil, err
	}
	consts := make([]Value, nConst)
	for i := range consts {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		v, _, err := DecodePath(buf)
		if err != nil {
			return nil, err
		}
		consts[i] = v
	}
	var nLines uint32
	if err := binary.Read(r, binary.LittleEndian, &nLines); err != nil {
		return nil, err
	}
	lines := make([]LineEntry, nLines)
	for i := range lines {
		if err := binary.Read(r, binary.LittleEndian, &lines[i]); err != nil {
			return nil, err
		}
	}
	var flags byte
	if err := binReadByte(r, &flags); err != nil {
		return nil, err
	}
	c := &Chunk{Instructions: instrs, Constants: consts, Lines: lines, HasNondeterminism: flags&1 != 0}
	c.ChunkID = c.computeHash()
	return c, nil
}

func binReadByte(r io.Reader, out *byte) error {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	*out = buf[0]
	return nil
}
