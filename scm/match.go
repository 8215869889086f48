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

// Bindings maps variable names to the Value they were matched against.
// Patterns typically carry a handful of distinct variables, the range
// where a linear scan over name/value pairs would outperform hashing;
// we use a plain map here for clarity and accept the constant-factor
// cost, since every pattern in practice is small enough not to matter.
type Bindings map[string]Value

func (b Bindings) clone() Bindings {
	c := make(Bindings, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// Apply substitutes every bound Var in pattern with its binding,
// leaving unbound variables (and anything that isn't a Var) untouched.
func (b Bindings) Apply(pattern Value) Value {
	switch pattern.Tag() {
	case TagVar:
		name, _ := pattern.VarInfo()
		if name == "_" {
			return pattern
		}
		if v, ok := b[name]; ok {
			return v
		}
		return pattern
	case TagSExpr:
		items := pattern.SExpr()
		out := make([]Value, len(items))
		for i, it := range items {
			out[i] = b.Apply(it)
		}
		return NewSExpr(out)
	default:
		return pattern
	}
}

// Match is the one-way pattern matcher (§4.2). Only pattern may contain
// variables; value is assumed ground. The wildcard "_" matches anything
// without binding. A variable's second occurrence must equal its first
// binding structurally. Matching proceeds left-to-right across SExpr
// children and threads bindings forward; a mismatch at any child aborts
// the whole match.
func Match(pattern, value Value, bindings Bindings) (Bindings, bool) {
	if pattern.Tag() == TagVar {
		name, _ := pattern.VarInfo()
		if name == "_" {
			return bindings, true
		}
		if existing, ok := bindings[name]; ok {
			if Equal(existing, value) {
				return bindings, true
			}
			return nil, false
		}
		out := bindings.clone()
		out[name] = value
		return out, true
	}

	if pattern.Tag() != value.Tag() {
		return nil, false
	}

	switch pattern.Tag() {
	case TagNil, TagUnit:
		return bindings, true
	case TagBool, TagLong, TagAtom:
		if pattern.num_() == value.num_() {
			return bindings, true
		}
		return nil, false
	case TagFloat:
		if pattern.Float() == value.Float() {
			return bindings, true
		}
		return nil, false
	case TagString:
		if pattern.String_() == value.String_() {
			return bindings, true
		}
		return nil, false
	case TagSExpr:
		ps, vs := pattern.SExpr(), value.SExpr()
		if len(ps) != len(vs) {
			return nil, false
		}
		cur := bindings
		for i := range ps {
			next, ok := Match(ps[i], vs[i], cur)
			if !ok {
				return nil, false
			}
			cur = next
		}
		return cur, true
	case TagError:
		next, ok := Match(NewString(pattern.ErrorKind()), NewString(value.ErrorKind()), bindings)
		if !ok {
			return nil, false
		}
		return Match(pattern.ErrorDetail(), value.ErrorDetail(), next)
	case TagType:
		return Match(pattern.TypeBoxed(), value.TypeBoxed(), bindings)
	}
	return nil, false
}

// num_ exposes the scalar payload for tags whose equality is a raw
// uint64 compare (Bool/Long/Atom); kept unexported since comparing raw
// payloads across mismatched tags is meaningless.
func (v Value) num_() uint64 { return v.num }

// CheckType implements `check-type`: a structural match where any Var
// leaf in typ matches anything (§4.3).
func CheckType(value, typ Value) bool {
	_, ok := Match(typ, value, Bindings{})
	return ok
}
