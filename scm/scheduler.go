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
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Priority bands (§4.8).
const (
	PriorityInteractive      = 0
	PriorityNormal           = 5
	PriorityBackgroundCompile = 10
	PriorityLow              = 20
	PriorityBatch            = 50
)

// schedTask is one unit of scheduled work: a thunk plus the bookkeeping
// the priority queue and the P² estimator need.
type schedTask struct {
	id       uuid.UUID // correlates this task's submit/complete log lines across a trace
	priority int
	band     int // original band, for feeding runtime back into the right quantile
	seq      uint64 // submission order, breaks priority ties FIFO
	run      func()
	index    int // heap.Interface housekeeping
}

type taskHeap []*schedTask

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *taskHeap) Push(x any) {
	t := x.(*schedTask)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// p2Quantile is the Jain/Chlamtac P² streaming quantile estimator
// (§4.8): five markers give a running estimate of a quantile without
// retaining the sample.
type p2Quantile struct {
	p          float64
	n          int
	q          [5]float64
	nPos       [5]float64
	np         [5]float64
	dn         [5]float64
	initialized bool
	buf        []float64
}

func newP2Quantile(p float64) *p2Quantile {
	return &p2Quantile{p: p}
}

func (e *p2Quantile) Add(x float64) {
	if !e.initialized {
		e.buf = append(e.buf, x)
		if len(e.buf) < 5 {
			return
		}
		sortFloat5(e.buf)
		for i := 0; i < 5; i++ {
			e.q[i] = e.buf[i]
			e.nPos[i] = float64(i + 1)
		}
		e.np[0], e.np[1], e.np[2], e.np[3], e.np[4] = 1, 1+2*e.p, 1+4*e.p, 3+2*e.p, 5
		e.dn[0], e.dn[1], e.dn[2], e.dn[3], e.dn[4] = 0, e.p/2, e.p, (1+e.p)/2, 1
		e.initialized = true
		e.n = 5
		return
	}
	e.n++
	k := 0
	switch {
	case x < e.q[0]:
		e.q[0] = x
		k = 0
	case x >= e.q[4]:
		e.q[4] = x
		k = 3
	default:
		for i := 0; i < 4; i++ {
			if x < e.q[i+1] {
				k = i
				break
			}
		}
	}
	for i := k + 1; i < 5; i++ {
		e.nPos[i]++
	}
	for i := 0; i < 5; i++ {
		e.np[i] += e.dn[i]
	}
	for i := 1; i < 4; i++ {
		d := e.np[i] - e.nPos[i]
		if (d >= 1 && e.nPos[i+1]-e.nPos[i] > 1) || (d <= -1 && e.nPos[i-1]-e.nPos[i] < -1) {
			sign := 1.0
			if d < 0 {
				sign = -1.0
			}
			qNew := e.parabolic(i, sign)
			if e.q[i-1] < qNew && qNew < e.q[i+1] {
				e.q[i] = qNew
			} else {
				e.q[i] = e.linear(i, sign)
			}
			e.nPos[i] += sign
		}
	}
}

func (e *p2Quantile) parabolic(i int, d float64) float64 {
	return e.q[i] + d/(e.nPos[i+1]-e.nPos[i-1])*(
		(e.nPos[i]-e.nPos[i-1]+d)*(e.q[i+1]-e.q[i])/(e.nPos[i+1]-e.nPos[i])+
			(e.nPos[i+1]-e.nPos[i]-d)*(e.q[i]-e.q[i-1])/(e.nPos[i]-e.nPos[i-1]))
}

func (e *p2Quantile) linear(i int, d float64) float64 {
	return e.q[i] + d*(e.q[i+int(d)]-e.q[i])/(e.nPos[i+int(d)]-e.nPos[i])
}

// Value returns the current quantile estimate, falling back to the
// median of whatever partial sample has been seen before the fifth
// observation arrives.
func (e *p2Quantile) Value() float64 {
	if !e.initialized {
		if len(e.buf) == 0 {
			return 0
		}
		sortFloat5(e.buf)
		return e.buf[len(e.buf)/2]
	}
	return e.q[2]
}

func sortFloat5(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// Scheduler implements §4.8: MaxBlockingThreads worker goroutines drain
// one priority min-heap, ordered by effective priority and then by
// submission sequence. Submit adds a per-band decay term derived from a
// P² runtime-quantile estimate; Run uses that decayed priority only when
// ConcurrentEvals() > 1 and submits at the raw band otherwise.
type Scheduler struct {
	cfg  *Config
	sem  *semaphore.Weighted
	sf   singleflight.Group

	mu      sync.Mutex
	heap    taskHeap
	seq     uint64
	runtime map[int]*p2Quantile // band -> observed runtime quantile
	notify  chan struct{}
	closed  bool
}

func NewScheduler(cfg *Config) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxBlockingThreads)),
		runtime: make(map[int]*p2Quantile),
		notify:  make(chan struct{}, 1),
	}
	for _, band := range []int{PriorityInteractive, PriorityNormal, PriorityBackgroundCompile, PriorityLow, PriorityBatch} {
		s.runtime[band] = newP2Quantile(0.5)
	}
	for i := 0; i < cfg.MaxBlockingThreads; i++ {
		go s.worker()
	}
	return s
}

// effectivePriority adds to the static band the band's observed median
// runtime times PriorityDecayRate times PriorityRuntimeWeight, so a band
// whose tasks run long sorts later in the heap (§4.8's decay term). No
// task-age term is applied.
func (s *Scheduler) effectivePriority(band int) int {
	s.mu.Lock()
	q := s.runtime[band]
	decay := q.Value() * s.cfg.PriorityDecayRate * s.cfg.PriorityRuntimeWeight
	s.mu.Unlock()
	return band + int(decay)
}

// Submit enqueues fn at the given priority band and returns
// immediately; fn's wall-clock duration feeds back into that band's
// P² estimator once it completes.
func (s *Scheduler) Submit(priority int, fn func()) {
	s.submitRaw(s.effectivePriority(priority), priority, fn)
}

func (s *Scheduler) submitRaw(effective, band int, fn func()) {
	t := &schedTask{id: uuid.New(), priority: effective, band: band, run: fn}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	t.seq = s.seq
	s.seq++
	heap.Push(&s.heap, t)
	s.mu.Unlock()
	s.log().Infof("scheduler: task %s submitted (band=%d priority=%d)", t.id, band, effective)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Scheduler) log() Logger {
	if s.cfg != nil && s.cfg.Logger != nil {
		return s.cfg.Logger
	}
	return NewNopLogger()
}

// Run always executes fn on the shared worker pool rather than the
// caller's own goroutine (§4.8: a background task is still spawned on
// the pool under sequential load, only the *dispatch* mechanism
// changes). Under concurrent load (ConcurrentEvals() > 1) it dispatches
// through the decayed priority heap so interactive work can cut ahead
// of backlogged bands; under sequential load it skips that decay
// computation and submits at the raw band, which is equivalent to a
// plain FIFO pool since there is essentially never more than one
// competing task to order against.
func (s *Scheduler) Run(ctx context.Context, priority int, fn func() []Value) []Value {
	done := make(chan []Value, 1)
	if ConcurrentEvals() > 1 {
		s.Submit(priority, func() { done <- fn() })
	} else {
		s.submitRaw(priority, priority, func() { done <- fn() })
	}
	select {
	case v := <-done:
		return v
	case <-ctx.Done():
		return []Value{NewError("cancelled", Nil)}
	}
}

// Deduplicate collapses concurrent identical compilation/lookup work
// (e.g. two goroutines JIT-compiling the same ChunkID at once) into a
// single execution via singleflight, the §4.8 "avoid redundant work
// under contention" note.
func (s *Scheduler) Deduplicate(key string, fn func() (any, error)) (any, error, bool) {
	return s.sf.Do(key, fn)
}

func (s *Scheduler) worker() {
	for {
		s.mu.Lock()
		for len(s.heap) == 0 && !s.closed {
			s.mu.Unlock()
			<-s.notify
			s.mu.Lock()
		}
		if s.closed && len(s.heap) == 0 {
			s.mu.Unlock()
			return
		}
		t := heap.Pop(&s.heap).(*schedTask)
		s.mu.Unlock()
		start := time.Now()
		t.run()
		elapsed := time.Since(start).Seconds()
		s.log().Infof("scheduler: task %s completed in %.6fs", t.id, elapsed)
		s.mu.Lock()
		if q, ok := s.runtime[t.band]; ok {
			q.Add(elapsed)
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	close(s.notify)
}
