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

	"github.com/launix-de/NonLockingReadMap"
)

// symEntry is the item type stored in the forward (string -> id) map.
// It satisfies NonLockingReadMap.KeyGetter[string].
type symEntry struct {
	name string
	id   uint32
}

func (e symEntry) GetKey() string    { return e.name }
func (e symEntry) ComputeSize() uint { return uint(16 + len(e.name)) }

// SymbolTable is a bidirectional, interning map from atom strings to
// dense integer IDs. Reads (intern-hit, resolve) vastly outnumber writes
// (first-seen intern) over the lifetime of an Environment, so the
// forward direction is backed by a lock-free read-optimized map; the
// reverse direction is a plain mutex-guarded slice, since growing it is
// already serialized by the forward map's own write path.
type SymbolTable struct {
	forward NonLockingReadMap.NonLockingReadMap[symEntry, string]
	mu      sync.Mutex
	reverse []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		forward: NonLockingReadMap.New[symEntry, string](),
	}
}

// Intern returns the stable ID for s, allocating a new one on first
// sight. IDs are never reused or renumbered (§3 Symbol table).
func (t *SymbolTable) Intern(s string) uint32 {
	if e := t.forward.Get(s); e != nil {
		return e.id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	// re-check under the mutex: another writer may have interned s
	// between our lock-free Get miss and acquiring the lock.
	if e := t.forward.Get(s); e != nil {
		return e.id
	}
	id := uint32(len(t.reverse))
	t.reverse = append(t.reverse, s)
	entry := symEntry{name: s, id: id}
	t.forward.Set(&entry)
	return id
}

// Resolve returns the string for a previously interned id. The bool is
// false if id was never assigned by this table.
func (t *SymbolTable) Resolve(id uint32) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= len(t.reverse) {
		return "", false
	}
	return t.reverse[id], true
}

// Lookup returns the id for s without interning it, and whether s was
// already known.
func (t *SymbolTable) Lookup(s string) (uint32, bool) {
	if e := t.forward.Get(s); e != nil {
		return e.id, true
	}
	return 0, false
}

func (t *SymbolTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.reverse)
}
