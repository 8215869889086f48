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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualDistinguishesNilAndEmptySExpr(t *testing.T) {
	assert.False(t, Equal(Nil, NewSExpr(nil)))
	assert.True(t, Equal(NewSExpr(nil), NewSExpr(nil)))
}

func TestEqualSequenceOrderMatters(t *testing.T) {
	a := []Value{NewLong(1), NewLong(2)}
	b := []Value{NewLong(2), NewLong(1)}
	assert.False(t, EqualSeq(a, b))
	assert.True(t, EqualSeq(a, a))
}

func TestIsGround(t *testing.T) {
	v := NewVar("x", VarPlain)
	assert.False(t, v.IsGround())
	expr := NewSExpr([]Value{NewAtom(1), v})
	assert.False(t, expr.IsGround())
	ground := NewSExpr([]Value{NewAtom(1), NewLong(2)})
	assert.True(t, ground.IsGround())
}

func TestHeadAndArity(t *testing.T) {
	expr := NewSExpr([]Value{NewAtom(7), NewLong(1), NewLong(2)})
	assert.Equal(t, uint32(7), expr.Head().AtomID())
	assert.Equal(t, 3, expr.Arity())
	assert.True(t, Nil.Head().IsNil())
	assert.Equal(t, 0, Nil.Arity())
}

func TestErrorValueEquality(t *testing.T) {
	a := NewError("oops", NewLong(1))
	b := NewError("oops", NewLong(1))
	c := NewError("oops", NewLong(2))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}
