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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger is the ambient logging sink threaded through the environment.
// The core is a library, not a CLI: it never decides where logs go,
// only that they exist (§1 lists logging as an external collaborator).
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type textLogger struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTextLogger() Logger { return &textLogger{out: os.Stderr} }

func (l *textLogger) Infof(format string, args ...interface{}) {
	l.write("INFO", format, args...)
}
func (l *textLogger) Warnf(format string, args ...interface{}) {
	l.write("WARN", format, args...)
}
func (l *textLogger) write(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] %s %s\n", level, time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
}

// NopLogger discards everything; useful for tests and benchmarks where
// the trace file would otherwise be the dominant cost.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{}) {}

func NewNopLogger() Logger { return nopLogger{} }

// Tracefile is a Chrome-trace-format JSON event stream, used to profile
// tier promotions, scheduler dispatch, and JIT compiles without pulling
// in a full tracing library -- the same minimal event format this
// codebase has always emitted so the output opens directly in a
// browser's trace viewer.
type Tracefile struct {
	isFirst bool
	file    io.WriteCloser
	m       sync.Mutex
	start   time.Time
}

func NewTrace(file io.WriteCloser) *Tracefile {
	file.Write([]byte("["))
	return &Tracefile{file: file, isFirst: true, start: time.Now()}
}

func (t *Tracefile) Close() {
	t.file.Write([]byte("]"))
	t.file.Close()
}

// Duration wraps f with a begin/end pair under name/cat.
func (t *Tracefile) Duration(name string, cat string, f func()) {
	t.eventHalf(name, cat, "B")
	defer t.eventHalf(name, cat, "E")
	f()
}

func (t *Tracefile) eventHalf(name, cat, typ string) {
	ts := time.Since(t.start).Microseconds()
	t.eventFull(name, cat, typ, ts)
}

func (t *Tracefile) eventFull(name, cat, typ string, ts int64) {
	t.m.Lock()
	defer t.m.Unlock()
	if t.isFirst {
		t.isFirst = false
	} else {
		t.file.Write([]byte(",\n"))
	}
	entry := map[string]interface{}{
		"name": name, "cat": cat, "ph": typ, "ts": ts, "pid": 0, "tid": 0, "s": "g",
	}
	b, _ := json.Marshal(entry)
	t.file.Write(b)
}
