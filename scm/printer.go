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
	"strconv"
	"strings"
)

// Sprint renders v the way the REPL/host would print a result (§7
// "user-visible failure" uses "the normal value formatter"). Symbol
// names here are rendered as bare ids ("#<atom:id>") when no *Env is
// available to resolve them; SprintEnv resolves properly.
func Sprint(v Value) string {
	var b strings.Builder
	writeValue(&b, v, nil)
	return b.String()
}

func SprintEnv(env *Env, v Value) string {
	var b strings.Builder
	writeValue(&b, v, env)
	return b.String()
}

func writeValue(b *strings.Builder, v Value, env *Env) {
	switch v.Tag() {
	case TagNil:
		b.WriteString("()")
	case TagUnit:
		b.WriteString("Unit")
	case TagBool:
		if v.Bool() {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case TagLong:
		b.WriteString(strconv.FormatInt(v.Long(), 10))
	case TagFloat:
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case TagString:
		b.WriteByte('"')
		b.WriteString(v.String_())
		b.WriteByte('"')
	case TagAtom:
		if env != nil {
			b.WriteString(env.Resolve(v.AtomID()))
		} else {
			b.WriteString("#<atom:")
			b.WriteString(strconv.FormatUint(uint64(v.AtomID()), 10))
			b.WriteByte('>')
		}
	case TagVar:
		name, kind := v.VarInfo()
		switch kind {
		case VarAmp:
			b.WriteByte('&')
		case VarTick:
			b.WriteByte('\'')
		default:
			b.WriteByte('$')
		}
		b.WriteString(name)
	case TagSExpr:
		b.WriteByte('(')
		for i, it := range v.SExpr() {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeValue(b, it, env)
		}
		b.WriteByte(')')
	case TagError:
		b.WriteString("(error ")
		b.WriteString(v.ErrorKind())
		b.WriteByte(' ')
		writeValue(b, v.ErrorDetail(), env)
		b.WriteByte(')')
	case TagType:
		writeValue(b, v.TypeBoxed(), env)
	}
}
