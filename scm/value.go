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
	"math"
)

// Tag identifies which variant of the Value sum type a Value holds.
type Tag uint8

const (
	TagNil Tag = iota
	TagUnit
	TagBool
	TagLong
	TagFloat
	TagAtom
	TagVar
	TagString
	TagSExpr
	TagError
	TagType
)

// VarKind distinguishes the three variable sigils the matcher recognizes.
type VarKind uint8

const (
	VarPlain VarKind = iota // $x
	VarAmp                  // &x (space reference)
	VarTick                 // 'x (quoted/template variable)
)

// errorBox is the heap payload of an Error value: a human-readable kind
// string plus an unevaluated detail value.
type errorBox struct {
	Kind   string
	Detail Value
}

// varBox is the heap payload of a Var value.
type varBox struct {
	Name string
	Kind VarKind
}

// Value is the evaluator's sum type. Scalar variants pack their payload
// into num; heap-shaped variants (String, SExpr, Error, Type, Var) carry
// a pointer in data. Splitting scalar from heap payload this way keeps
// the overwhelmingly common Long/Bool/Atom cases allocation-free, the
// same discipline the high-level term type in this codebase has always
// followed -- just expressed with a checked interface{} slot instead of
// an unsafe pointer, since nothing past this layer needs the bit-level
// packing (that's what JitValue is for).
type Value struct {
	tag Tag
	num uint64
	data interface{}
}

var (
	Nil  = Value{tag: TagNil}
	Unit = Value{tag: TagUnit}
	True  = Value{tag: TagBool, num: 1}
	False = Value{tag: TagBool, num: 0}
)

func NewLong(i int64) Value    { return Value{tag: TagLong, num: uint64(i)} }
func NewFloat(f float64) Value { return Value{tag: TagFloat, num: math.Float64bits(f)} }
func NewBool(b bool) Value {
	if b {
		return True
	}
	return False
}
func NewAtom(symbolID uint32) Value { return Value{tag: TagAtom, num: uint64(symbolID)} }
func NewVar(name string, kind VarKind) Value {
	return Value{tag: TagVar, data: &varBox{Name: name, Kind: kind}}
}
func NewString(s string) Value { return Value{tag: TagString, data: s} }
func NewSExpr(items []Value) Value {
	return Value{tag: TagSExpr, num: uint64(len(items)), data: items}
}
func NewError(kind string, detail Value) Value {
	return Value{tag: TagError, data: &errorBox{Kind: kind, Detail: detail}}
}
func NewType(boxed Value) Value {
	b := boxed
	return Value{tag: TagType, data: &b}
}

func (v Value) Tag() Tag { return v.tag }
func (v Value) IsNil() bool    { return v.tag == TagNil }
func (v Value) IsUnit() bool   { return v.tag == TagUnit }
func (v Value) IsError() bool  { return v.tag == TagError }
func (v Value) IsAtom() bool   { return v.tag == TagAtom }
func (v Value) IsVar() bool    { return v.tag == TagVar }
func (v Value) IsSExpr() bool  { return v.tag == TagSExpr }

func (v Value) Long() int64    { return int64(v.num) }
func (v Value) Float() float64 { return math.Float64frombits(v.num) }
func (v Value) Bool() bool     { return v.num != 0 }
func (v Value) AtomID() uint32 { return uint32(v.num) }
func (v Value) String_() string {
	s, _ := v.data.(string)
	return s
}
func (v Value) SExpr() []Value {
	items, _ := v.data.([]Value)
	return items
}
func (v Value) VarInfo() (string, VarKind) {
	b := v.data.(*varBox)
	return b.Name, b.Kind
}
func (v Value) ErrorKind() string {
	return v.data.(*errorBox).Kind
}
func (v Value) ErrorDetail() Value {
	return v.data.(*errorBox).Detail
}
func (v Value) TypeBoxed() Value {
	return *v.data.(*Value)
}

// Head returns the first element of an SExpr, or Nil for anything else.
func (v Value) Head() Value {
	if v.tag != TagSExpr {
		return Nil
	}
	items := v.SExpr()
	if len(items) == 0 {
		return Nil
	}
	return items[0]
}

// Arity returns len(SExpr) for an SExpr, or 0 otherwise.
func (v Value) Arity() int {
	if v.tag != TagSExpr {
		return 0
	}
	return len(v.SExpr())
}

// IsGround reports whether v contains no Var node anywhere in its
// recursive structure. Facts stored in the space must be ground
// (invariant i, §4.1).
func (v Value) IsGround() bool {
	switch v.tag {
	case TagVar:
		return false
	case TagSExpr:
		for _, c := range v.SExpr() {
			if !c.IsGround() {
				return false
			}
		}
	}
	return true
}

// Equal is the sum type's structural equality. Sequence order is
// significant; Nil and an empty SExpr are distinct.
func Equal(a, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case TagNil, TagUnit:
		return true
	case TagBool, TagLong, TagAtom:
		return a.num == b.num
	case TagFloat:
		return a.Float() == b.Float()
	case TagString:
		return a.String_() == b.String_()
	case TagVar:
		an, ak := a.VarInfo()
		bn, bk := b.VarInfo()
		return an == bn && ak == bk
	case TagSExpr:
		as, bs := a.SExpr(), b.SExpr()
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !Equal(as[i], bs[i]) {
				return false
			}
		}
		return true
	case TagError:
		return a.ErrorKind() == b.ErrorKind() && Equal(a.ErrorDetail(), b.ErrorDetail())
	case TagType:
		return Equal(a.TypeBoxed(), b.TypeBoxed())
	}
	return false
}

// EqualSeq compares two result sequences for exact sequence equality
// (order matters, duplicates matter -- see §8 property 3/end-to-end #3).
func EqualSeq(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
