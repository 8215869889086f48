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

func TestSprintScalarsAndSExpr(t *testing.T) {
	assert.Equal(t, "()", Sprint(Nil))
	assert.Equal(t, "42", Sprint(NewLong(42)))
	assert.Equal(t, "True", Sprint(True))
	assert.Equal(t, `"hi"`, Sprint(NewString("hi")))

	expr := NewSExpr([]Value{NewLong(1), NewLong(2)})
	assert.Equal(t, "(1 2)", Sprint(expr))
}

func TestSprintEnvResolvesAtomNames(t *testing.T) {
	env := NewEnv(DefaultConfig())
	id := env.Intern("likes")
	assert.Equal(t, "likes", SprintEnv(env, NewAtom(id)))
	assert.Contains(t, Sprint(NewAtom(id)), "#<atom:")
}

func TestSprintVarSigils(t *testing.T) {
	assert.Equal(t, "$x", Sprint(NewVar("x", VarPlain)))
	assert.Equal(t, "&s", Sprint(NewVar("s", VarAmp)))
	assert.Equal(t, "'t", Sprint(NewVar("t", VarTick)))
}
