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
	"encoding/binary"
	"fmt"
	"math"
)

// Path encoding tags (§4.1, §6). Every Value serializes to a
// deterministic byte path; decoding must round-trip any encoded path.
const (
	pathSExpr    byte = 0x02 // + 1 arity byte, then `arity` child paths
	pathBoolF    byte = 0x03
	pathBoolT    byte = 0x04
	pathNil      byte = 0x05
	pathUnit     byte = 0x06
	pathAtomBase byte = 0x40 // 0x40..0x7E: inline atom id 0..62
	pathAtomExt  byte = 0x7F // + varint atom id
	pathLong     byte = 0x80 // + 8 bytes, two's complement big-endian
	pathFloat    byte = 0x81 // + 8 bytes IEEE 754
	pathString   byte = 0x82 // + varint length + utf8 bytes
	pathError    byte = 0x83 // + kind string path + detail path
	pathType     byte = 0x84 // + boxed path
	pathVar      byte = 0x85 // + kind byte + name string path (never stored in the space; facts must be ground)
)

const atomInlineMax = pathAtomExt - pathAtomBase // 63 inline slots, ids 0..62

// EncodePath serializes v into the trie's byte path encoding.
func EncodePath(v Value) []byte {
	var buf []byte
	return appendPath(buf, v)
}

func appendPath(buf []byte, v Value) []byte {
	switch v.Tag() {
	case TagNil:
		return append(buf, pathNil)
	case TagUnit:
		return append(buf, pathUnit)
	case TagBool:
		if v.Bool() {
			return append(buf, pathBoolT)
		}
		return append(buf, pathBoolF)
	case TagLong:
		buf = append(buf, pathLong)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], v.num)
		return append(buf, tmp[:]...)
	case TagFloat:
		buf = append(buf, pathFloat)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v.Float()))
		return append(buf, tmp[:]...)
	case TagAtom:
		id := uint64(v.AtomID())
		if id < uint64(atomInlineMax) {
			return append(buf, pathAtomBase+byte(id))
		}
		buf = append(buf, pathAtomExt)
		return appendVarint(buf, id)
	case TagString:
		buf = append(buf, pathString)
		s := v.String_()
		buf = appendVarint(buf, uint64(len(s)))
		return append(buf, s...)
	case TagSExpr:
		items := v.SExpr()
		buf = append(buf, pathSExpr, byte(len(items)))
		for _, it := range items {
			buf = appendPath(buf, it)
		}
		return buf
	case TagError:
		buf = append(buf, pathError)
		buf = appendPath(buf, NewString(v.ErrorKind()))
		return appendPath(buf, v.ErrorDetail())
	case TagType:
		buf = append(buf, pathType)
		return appendPath(buf, v.TypeBoxed())
	case TagVar:
		name, kind := v.VarInfo()
		buf = append(buf, pathVar, byte(kind))
		return appendPath(buf, NewString(name))
	}
	panic(fmt.Sprintf("path encoding: unhandled tag %d", v.Tag()))
}

func appendVarint(buf []byte, x uint64) []byte {
	for x >= 0x80 {
		buf = append(buf, byte(x)|0x80)
		x >>= 7
	}
	return append(buf, byte(x))
}

func readVarint(b []byte) (uint64, int) {
	var x uint64
	var shift uint
	for i, c := range b {
		x |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return x, i + 1
		}
		shift += 7
	}
	return x, len(b)
}

// DecodePath deserializes a byte path back into a Value, returning the
// number of bytes consumed. It is the total inverse of EncodePath.
func DecodePath(b []byte) (Value, int, error) {
	if len(b) == 0 {
		return Nil, 0, fmt.Errorf("path: empty input")
	}
	tag := b[0]
	switch {
	case tag == pathNil:
		return Nil, 1, nil
	case tag == pathUnit:
		return Unit, 1, nil
	case tag == pathBoolF:
		return False, 1, nil
	case tag == pathBoolT:
		return True, 1, nil
	case tag == pathLong:
		if len(b) < 9 {
			return Nil, 0, fmt.Errorf("path: truncated long")
		}
		return NewLong(int64(binary.BigEndian.Uint64(b[1:9]))), 9, nil
	case tag == pathFloat:
		if len(b) < 9 {
			return Nil, 0, fmt.Errorf("path: truncated float")
		}
		return NewFloat(math.Float64frombits(binary.BigEndian.Uint64(b[1:9]))), 9, nil
	case tag == pathString:
		n, adv := readVarint(b[1:])
		start := 1 + adv
		end := start + int(n)
		if end > len(b) {
			return Nil, 0, fmt.Errorf("path: truncated string")
		}
		return NewString(string(b[start:end])), end, nil
	case tag == pathAtomExt:
		id, adv := readVarint(b[1:])
		return NewAtom(uint32(id)), 1 + adv, nil
	case tag >= pathAtomBase && tag < pathAtomExt:
		return NewAtom(uint32(tag - pathAtomBase)), 1, nil
	case tag == pathSExpr:
		if len(b) < 2 {
			return Nil, 0, fmt.Errorf("path: truncated sexpr header")
		}
		arity := int(b[1])
		pos := 2
		items := make([]Value, arity)
		for i := 0; i < arity; i++ {
			v, adv, err := DecodePath(b[pos:])
			if err != nil {
				return Nil, 0, err
			}
			items[i] = v
			pos += adv
		}
		return NewSExpr(items), pos, nil
	case tag == pathError:
		kindV, adv, err := DecodePath(b[1:])
		if err != nil {
			return Nil, 0, err
		}
		pos := 1 + adv
		detail, adv2, err := DecodePath(b[pos:])
		if err != nil {
			return Nil, 0, err
		}
		return NewError(kindV.String_(), detail), pos + adv2, nil
	case tag == pathType:
		boxed, adv, err := DecodePath(b[1:])
		if err != nil {
			return Nil, 0, err
		}
		return NewType(boxed), 1 + adv, nil
	case tag == pathVar:
		if len(b) < 2 {
			return Nil, 0, fmt.Errorf("path: truncated var")
		}
		kind := VarKind(b[1])
		nameV, adv, err := DecodePath(b[2:])
		if err != nil {
			return Nil, 0, err
		}
		return NewVar(nameV.String_(), kind), 2 + adv, nil
	}
	return Nil, 0, fmt.Errorf("path: unknown tag byte 0x%02x", tag)
}
