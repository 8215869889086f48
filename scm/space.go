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
	"sync"

	"github.com/google/btree"
)

// ReaderPreferringLock offers concurrent reads and exclusive writes via
// a release-closure interface: call GetRead/GetExclusive, do the work,
// then call the returned closure. Writers are rare in this workload
// (fact/rule mutation), reads are the common case (rule lookup, match
// queries), which is exactly the RWMutex access pattern, just wrapped
// so callers can't forget to unlock.
type ReaderPreferringLock struct {
	mu sync.RWMutex
}

func (l *ReaderPreferringLock) GetRead() func() {
	l.mu.RLock()
	return l.mu.RUnlock
}

func (l *ReaderPreferringLock) GetExclusive() func() {
	l.mu.Lock()
	return l.mu.Unlock
}

// trieChild is one outgoing edge of a trie node, keyed by the next path
// byte. Nodes with many children keep them in a btree instead of a
// linear slice so wide fan-out (e.g. many distinct atoms at the same
// depth) stays O(log n) rather than O(n).
type trieChild struct {
	b    byte
	node *trieNode
}

func trieChildLess(a, b trieChild) bool { return a.b < b.b }

type trieNode struct {
	children     *btree.BTreeG[trieChild]
	terminal     bool
	multiplicity uint32
}

func newTrieNode() *trieNode {
	return &trieNode{children: btree.NewG(32, trieChildLess)}
}

func (n *trieNode) child(b byte, create bool) *trieNode {
	if got, ok := n.children.Get(trieChild{b: b}); ok {
		return got.node
	}
	if !create {
		return nil
	}
	child := newTrieNode()
	n.children.ReplaceOrInsert(trieChild{b: b, node: child})
	return child
}

// Space is the byte-addressed trie knowledge store (§4.1). Facts are
// ground SExprs encoded via EncodePath. Bulk insertion must stay
// sequential -- a work-stealing pool over many concurrent inserts has,
// in this codebase's experience, corrupted allocator metadata under
// heavy simultaneous allocation; only read-heavy queries are meant to
// run in parallel (§5).
type Space struct {
	lock ReaderPreferringLock
	root *trieNode

	multiMu        sync.Mutex
	multiplicities map[string]uint32
}

func NewSpace() *Space {
	return &Space{
		root:           newTrieNode(),
		multiplicities: make(map[string]uint32),
	}
}

// Insert adds a fact's encoded path to the trie. Idempotent: inserting
// the same fact twice bumps its multiplicity count but does not change
// query results (§4.1 failure semantics).
func (s *Space) Insert(path []byte) {
	release := s.lock.GetExclusive()
	defer release()
	n := s.root
	for _, b := range path {
		n = n.child(b, true)
	}
	n.terminal = true
	n.multiplicity++

	s.multiMu.Lock()
	s.multiplicities[string(path)]++
	s.multiMu.Unlock()
}

// Remove deletes one occurrence of a fact. The node structure above the
// fact is left intact (other facts may share the prefix); only the
// terminal marker and multiplicity are cleared once they reach zero.
func (s *Space) Remove(path []byte) {
	release := s.lock.GetExclusive()
	defer release()
	n := s.root
	for _, b := range path {
		n = n.child(b, false)
		if n == nil {
			return
		}
	}
	if n.multiplicity > 0 {
		n.multiplicity--
	}
	if n.multiplicity == 0 {
		n.terminal = false
	}

	s.multiMu.Lock()
	if c := s.multiplicities[string(path)]; c > 0 {
		if c == 1 {
			delete(s.multiplicities, string(path))
		} else {
			s.multiplicities[string(path)] = c - 1
		}
	}
	s.multiMu.Unlock()
}

// ContainsPrefix reports whether any stored fact's path begins with prefix.
func (s *Space) ContainsPrefix(prefix []byte) bool {
	release := s.lock.GetRead()
	defer release()
	n := s.descend(prefix)
	return n != nil
}

func (s *Space) descend(prefix []byte) *trieNode {
	n := s.root
	for _, b := range prefix {
		n = n.child(b, false)
		if n == nil {
			return nil
		}
	}
	return n
}

// collectPaths appends every terminal path beneath n (inclusive) to out,
// each prefixed with the path taken to reach n from the call site.
func collectPaths(n *trieNode, prefix []byte, out *[][]byte) {
	if n.terminal {
		cp := make([]byte, len(prefix))
		copy(cp, prefix)
		*out = append(*out, cp)
	}
	n.children.Ascend(func(c trieChild) bool {
		collectPaths(c.node, append(prefix, c.b), out)
		return true
	})
}

// IterAll returns the decoded Value of every stored fact, in trie
// (i.e. byte-path lexicographic) order.
func (s *Space) IterAll() []Value {
	release := s.lock.GetRead()
	defer release()
	var paths [][]byte
	collectPaths(s.root, nil, &paths)
	out := make([]Value, 0, len(paths))
	for _, p := range paths {
		v, _, err := DecodePath(p)
		if err == nil {
			out = append(out, v)
		}
	}
	return out
}

// DescendToPrefix returns every fact whose path begins with prefix,
// decoded, in trie order -- the cursor-like enumeration §4.1 calls for,
// collapsed into a single lazy-looking slice since nothing in this
// core needs incremental cursor resumption across calls.
func (s *Space) DescendToPrefix(prefix []byte) []Value {
	release := s.lock.GetRead()
	defer release()
	n := s.descend(prefix)
	if n == nil {
		return nil
	}
	var paths [][]byte
	collectPaths(n, prefix, &paths)
	out := make([]Value, 0, len(paths))
	for _, p := range paths {
		v, _, err := DecodePath(p)
		if err == nil {
			out = append(out, v)
		}
	}
	return out
}

// HasFactAtom reports whether atom appears as an Atom node anywhere
// inside any stored fact (§4.1, §8 property 10).
func (s *Space) HasFactAtom(atom Value) bool {
	for _, fact := range s.IterAll() {
		if containsAtom(fact, atom) {
			return true
		}
	}
	return false
}

func containsAtom(v, atom Value) bool {
	if v.Tag() == TagAtom && Equal(v, atom) {
		return true
	}
	if v.Tag() == TagSExpr {
		for _, c := range v.SExpr() {
			if containsAtom(c, atom) {
				return true
			}
		}
	}
	return false
}

// HasFactExpr reports exact structural presence of a ground expression.
// Per the open question in design notes, non-ground expr is defined to
// never match: require ground, return false otherwise.
func (s *Space) HasFactExpr(expr Value) bool {
	if !expr.IsGround() {
		return false
	}
	path := EncodePath(expr)
	release := s.lock.GetRead()
	defer release()
	n := s.descend(path)
	return n != nil && n.terminal
}

// Query returns the lazy sequence (materialized here as a slice) of
// binding environments under which pattern one-way-matches some stored
// fact (§4.1). Facts binding the same variable inconsistently within a
// single match are rejected by Match itself.
func (s *Space) Query(pattern Value) []Bindings {
	var out []Bindings
	for _, fact := range s.IterAll() {
		if b, ok := Match(pattern, fact, Bindings{}); ok {
			out = append(out, b)
		}
	}
	return out
}

// Rule is a (pattern, body) pair registered under its pattern's head
// symbol and arity (§3). CompiledBody/CompiledSlots are populated by
// Env.AddRule for bodies within the grounded-arithmetic subset
// compileRuleBody recognizes, letting applyRules dispatch through
// Env.Executor (VM/JIT tiers) instead of always tree-walking.
type Rule struct {
	Pattern       Value
	Body          Value
	CompiledBody  *Chunk
	CompiledSlots []string
}

type ruleKey struct {
	head  uint32
	arity int
}

// RuleIndex maps (head_symbol_id, arity) to an ordered list of Rule;
// insertion order is preserved and is the only tie-break for
// nondeterministic rule order (§3).
type RuleIndex struct {
	mu       sync.Mutex
	byKey    map[ruleKey][]Rule
	wildcard []Rule
}

func NewRuleIndex() *RuleIndex {
	return &RuleIndex{byKey: make(map[ruleKey][]Rule)}
}

// AddRule registers r. Wildcard-headed rules (head is a Var, matching
// any symbol) live in a separate list consulted after indexed rules.
func (ri *RuleIndex) AddRule(r Rule) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	head := r.Pattern.Head()
	if head.Tag() != TagAtom {
		ri.wildcard = append(ri.wildcard, r)
		return
	}
	k := ruleKey{head: head.AtomID(), arity: r.Pattern.Arity()}
	ri.byKey[k] = append(ri.byKey[k], r)
}

// RulesFor returns rule_index[(head,arity)] ++ wildcard_rules (§4.1).
func (ri *RuleIndex) RulesFor(head uint32, arity int) []Rule {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	k := ruleKey{head: head, arity: arity}
	out := make([]Rule, 0, len(ri.byKey[k])+len(ri.wildcard))
	out = append(out, ri.byKey[k]...)
	out = append(out, ri.wildcard...)
	return out
}

// TypeIndex maps a symbol to its declared Type(...) value (§3). Set
// overwrites any earlier entry; nothing removes or invalidates entries
// when rules or facts change.
type TypeIndex struct {
	mu    sync.Mutex
	types map[uint32]Value
}

func NewTypeIndex() *TypeIndex {
	return &TypeIndex{types: make(map[uint32]Value)}
}

func (ti *TypeIndex) Set(symbol uint32, typ Value) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.types[symbol] = typ
}

func (ti *TypeIndex) Get(symbol uint32) (Value, bool) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	v, ok := ti.types[symbol]
	return v, ok
}
