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

func TestMatchWildcardDoesNotBind(t *testing.T) {
	pattern := NewVar("_", VarPlain)
	b, ok := Match(pattern, NewLong(42), Bindings{})
	assert.True(t, ok)
	assert.Empty(t, b)
}

func TestMatchBindsFirstOccurrence(t *testing.T) {
	pattern := NewVar("x", VarPlain)
	b, ok := Match(pattern, NewLong(5), Bindings{})
	assert.True(t, ok)
	assert.True(t, Equal(b["x"], NewLong(5)))
}

func TestMatchRepeatedVariableMustAgree(t *testing.T) {
	pattern := NewSExpr([]Value{NewVar("x", VarPlain), NewVar("x", VarPlain)})
	ok1, matched1 := Match(pattern, NewSExpr([]Value{NewLong(3), NewLong(3)}), Bindings{})
	assert.True(t, matched1)
	assert.True(t, Equal(ok1["x"], NewLong(3)))

	_, matched2 := Match(pattern, NewSExpr([]Value{NewLong(3), NewLong(4)}), Bindings{})
	assert.False(t, matched2)
}

func TestMatchStructuralMismatch(t *testing.T) {
	pattern := NewSExpr([]Value{NewAtom(1), NewVar("x", VarPlain)})
	_, ok := Match(pattern, NewSExpr([]Value{NewAtom(2), NewLong(1)}), Bindings{})
	assert.False(t, ok)

	_, ok2 := Match(pattern, NewSExpr([]Value{NewAtom(1), NewLong(1), NewLong(2)}), Bindings{})
	assert.False(t, ok2)
}

func TestBindingsApplySubstitutesBoundVarsOnly(t *testing.T) {
	b := Bindings{"x": NewLong(9)}
	pattern := NewSExpr([]Value{NewVar("x", VarPlain), NewVar("y", VarPlain)})
	out := b.Apply(pattern)
	items := out.SExpr()
	assert.True(t, Equal(items[0], NewLong(9)))
	assert.True(t, items[1].IsVar())
}

func TestCheckTypeVarLeafMatchesAnything(t *testing.T) {
	typ := NewSExpr([]Value{NewAtom(1), NewVar("_", VarPlain)})
	value := NewSExpr([]Value{NewAtom(1), NewLong(100)})
	assert.True(t, CheckType(value, typ))
}
