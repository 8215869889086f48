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

func TestSpaceInsertAndQuery(t *testing.T) {
	env := NewEnv(DefaultConfig())
	likes := env.Intern("likes")
	alice := env.Intern("alice")
	bob := env.Intern("bob")

	env.AddToSpace(NewSExpr([]Value{NewAtom(likes), NewAtom(alice), NewAtom(bob)}))

	pattern := NewSExpr([]Value{NewAtom(likes), NewAtom(alice), NewVar("who", VarPlain)})
	results := env.Space.Query(pattern)
	assert.Len(t, results, 1)
	assert.True(t, Equal(results[0]["who"], NewAtom(bob)))
}

func TestSpaceRemoveDropsOneOccurrenceAtATime(t *testing.T) {
	env := NewEnv(DefaultConfig())
	fact := NewSExpr([]Value{NewAtom(env.Intern("f")), NewLong(1)})
	env.AddToSpace(fact)
	env.AddToSpace(fact) // duplicate insert bumps multiplicity, not query count

	assert.Len(t, env.Space.Query(fact), 1)

	env.RemoveFromSpace(fact)
	assert.Len(t, env.Space.Query(fact), 1, "one occurrence should remain")

	env.RemoveFromSpace(fact)
	assert.Len(t, env.Space.Query(fact), 0)
}

func TestHasFactExprRequiresGround(t *testing.T) {
	env := NewEnv(DefaultConfig())
	fact := NewSExpr([]Value{NewAtom(env.Intern("g")), NewLong(1)})
	env.AddToSpace(fact)

	assert.True(t, env.Space.HasFactExpr(fact))

	nonGround := NewSExpr([]Value{NewAtom(env.Intern("g")), NewVar("x", VarPlain)})
	assert.False(t, env.Space.HasFactExpr(nonGround))
}

func TestHasFactAtom(t *testing.T) {
	env := NewEnv(DefaultConfig())
	dog := env.Intern("dog")
	env.AddToSpace(NewSExpr([]Value{NewAtom(env.Intern("is-a")), NewAtom(dog), NewAtom(env.Intern("animal"))}))

	assert.True(t, env.Space.HasFactAtom(NewAtom(dog)))
	assert.False(t, env.Space.HasFactAtom(NewAtom(env.Intern("cat"))))
}

func TestRuleIndexOrderingAndWildcard(t *testing.T) {
	ri := NewRuleIndex()
	head := uint32(1)
	r1 := Rule{Pattern: NewSExpr([]Value{NewAtom(head), NewLong(1)}), Body: NewLong(100)}
	r2 := Rule{Pattern: NewSExpr([]Value{NewAtom(head), NewLong(1)}), Body: NewLong(200)}
	ri.AddRule(r1)
	ri.AddRule(r2)

	got := ri.RulesFor(head, 2)
	assert.Len(t, got, 2)
	assert.True(t, Equal(got[0].Body, NewLong(100)))
	assert.True(t, Equal(got[1].Body, NewLong(200)))

	wild := Rule{Pattern: NewSExpr([]Value{NewVar("h", VarPlain), NewLong(1)}), Body: NewLong(999)}
	ri.AddRule(wild)
	got2 := ri.RulesFor(head, 2)
	assert.Len(t, got2, 3)
	assert.True(t, Equal(got2[2].Body, NewLong(999)))
}
