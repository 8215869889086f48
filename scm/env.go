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
	"container/list"
	"sync"

	"github.com/dc0d/onexit"
)

// patternCache is a small bounded LRU mapping a pattern Value to its
// already-computed path bytes, avoiding re-encoding hot patterns on
// every match/query call.
type patternCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[string]*list.Element
}

type patternCacheEntry struct {
	key  string
	path []byte
}

func newPatternCache(capacity int) *patternCache {
	return &patternCache{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[string]*list.Element),
	}
}

func (c *patternCache) get(v Value) ([]byte, bool) {
	key := string(EncodePath(v))
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*patternCacheEntry).path, true
	}
	return nil, false
}

func (c *patternCache) put(v Value, path []byte) {
	key := string(EncodePath(v))
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*patternCacheEntry).path = path
		return
	}
	el := c.ll.PushFront(&patternCacheEntry{key: key, path: path})
	c.index[key] = el
	for c.ll.Len() > c.capacity {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.ll.Remove(back)
		delete(c.index, back.Value.(*patternCacheEntry).key)
	}
}

// Env is the shared, thread-safe handle described in §3: space, rule
// index, type index, symbol table, and the bounded pattern cache. It is
// reference-counted by ordinary Go garbage collection (no manual
// refcount is needed in a GC'd host language); callers share *Env
// freely across goroutines.
type Env struct {
	Space     *Space
	Rules     *RuleIndex
	Types     *TypeIndex
	Symbols   *SymbolTable
	Grounded  map[uint32]*Declaration
	cache     *patternCache
	Config    *Config
	Logger    Logger
	Scheduler *Scheduler
	Executor  *Executor
	Trace     *Tracefile // nil unless the caller opted into profiling
}

func NewEnv(cfg *Config) *Env {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	env := &Env{
		Space:    NewSpace(),
		Rules:    NewRuleIndex(),
		Types:    NewTypeIndex(),
		Symbols:  NewSymbolTable(),
		Grounded: make(map[uint32]*Declaration),
		cache:    newPatternCache(cfg.PatternCacheEntries),
		Config:   cfg,
		Logger:   cfg.Logger,
	}
	env.Scheduler = NewScheduler(cfg)
	env.Executor = NewExecutor(env, cfg)
	DeclareBuiltins(env)
	// Mirrors storage.InitSettings's onexit.Register(func(){ scm.SetTrace(false) })
	// call in the teacher: make sure the scheduler's worker pool and any
	// open trace file get torn down if the host process exits without an
	// explicit env.Close.
	onexit.Register(func() {
		env.Scheduler.Close()
		if env.Trace != nil {
			env.Trace.Close()
		}
	})
	return env
}

// Intern/Resolve expose the symbol table through the environment, the
// path every evaluator call site actually uses.
func (e *Env) Intern(s string) uint32 { return e.Symbols.Intern(s) }
func (e *Env) Resolve(id uint32) string {
	s, _ := e.Symbols.Resolve(id)
	return s
}

func (e *Env) AtomPath(v Value) []byte {
	if p, ok := e.cache.get(v); ok {
		return p
	}
	p := EncodePath(v)
	e.cache.put(v, p)
	return p
}

// AddRule registers a rule, the `=` special form's effect (§4.3); it
// returns nothing, and the form itself yields Nil. It eagerly tries to compile body into a Chunk so
// later applications of this rule can run through Env.Executor's
// VM/JIT tiers rather than the tree-walking evaluator; bodies outside
// the compilable subset simply carry a nil CompiledBody.
func (e *Env) AddRule(pattern, body Value) {
	r := Rule{Pattern: pattern, Body: body}
	r.CompiledBody, r.CompiledSlots, _ = compileRuleBody(e, body)
	e.Rules.AddRule(r)
}

// AddToSpace inserts a ground fact, idempotently (§4.1).
func (e *Env) AddToSpace(v Value) {
	e.Space.Insert(e.AtomPath(v))
}

func (e *Env) RemoveFromSpace(v Value) {
	e.Space.Remove(e.AtomPath(v))
}
