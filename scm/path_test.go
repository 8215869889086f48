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

func roundTrip(t *testing.T, v Value) {
	t.Helper()
	path := EncodePath(v)
	decoded, n, err := DecodePath(path)
	assert.NoError(t, err)
	assert.Equal(t, len(path), n)
	assert.True(t, Equal(v, decoded), "round trip mismatch for %+v", v)
}

func TestPathRoundTripScalars(t *testing.T) {
	roundTrip(t, Nil)
	roundTrip(t, Unit)
	roundTrip(t, True)
	roundTrip(t, False)
	roundTrip(t, NewLong(-12345))
	roundTrip(t, NewFloat(3.14159))
	roundTrip(t, NewAtom(5))
	roundTrip(t, NewAtom(200)) // beyond inline range, exercises pathAtomExt
	roundTrip(t, NewString("hello, mork"))
}

func TestPathRoundTripNested(t *testing.T) {
	expr := NewSExpr([]Value{
		NewAtom(1),
		NewSExpr([]Value{NewLong(1), NewLong(2)}),
		NewString("leaf"),
	})
	roundTrip(t, expr)
}

func TestPathRoundTripErrorAndType(t *testing.T) {
	roundTrip(t, NewError("divide-by-zero", NewSExpr([]Value{NewLong(1), NewLong(0)})))
	roundTrip(t, NewType(NewSExpr([]Value{NewAtom(1), NewAtom(2)})))
	roundTrip(t, NewVar("x", VarAmp))
}

func TestPathDistinctValuesProduceDistinctPaths(t *testing.T) {
	p1 := EncodePath(NewLong(1))
	p2 := EncodePath(NewLong(2))
	assert.NotEqual(t, p1, p2)
}

func TestPathAtomInlineBoundary(t *testing.T) {
	// ids below atomInlineMax encode to a single byte; at/above need the
	// extended form. Both must still round-trip identically.
	inline := EncodePath(NewAtom(uint32(atomInlineMax) - 1))
	assert.Len(t, inline, 1)
	extended := EncodePath(NewAtom(uint32(atomInlineMax)))
	assert.Greater(t, len(extended), 1)
}
