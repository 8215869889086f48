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
	"fmt"
	"runtime"

	units "github.com/docker/go-units"
)

// Config centralizes every knob recognized by the core (§6). Replacing
// the process-wide globals the original JIT experiments leaned on, a
// single struct is threaded into the hybrid executor and the scheduler
// (design note "global mutable state -> threaded configuration").
type Config struct {
	MaxBlockingThreads int
	BatchSizeHint      int
	JitEnabled         bool
	WarmThreshold      uint32
	HotThreshold       uint32
	VeryHotThreshold   uint32
	CacheMaxEntries    int
	CacheMaxCodeBytes  int64
	PriorityRuntimeWeight float64
	PriorityDecayRate     float64
	PatternCacheEntries   int
	DepthLimit            int
	ChunkCompression      bool
	Logger                Logger
}

// DefaultConfig mirrors the defaults named in §6.
func DefaultConfig() *Config {
	return &Config{
		MaxBlockingThreads:   runtime.NumCPU(),
		BatchSizeHint:        8,
		JitEnabled:           true,
		WarmThreshold:        10,
		HotThreshold:         100,
		VeryHotThreshold:     500,
		CacheMaxEntries:      4096,
		CacheMaxCodeBytes:    64 << 20,
		PriorityRuntimeWeight: 1.0,
		PriorityDecayRate:     0.1,
		PatternCacheEntries:   4096,
		DepthLimit:            10000,
		Logger:                NewTextLogger(),
	}
}

// SetCacheMaxCodeBytes parses a human string ("64MB", "512KiB", ...)
// via go-units, matching how this codebase has always accepted
// human-readable size knobs rather than raw byte counts.
func (c *Config) SetCacheMaxCodeBytes(human string) error {
	n, err := units.RAMInBytes(human)
	if err != nil {
		return fmt.Errorf("cache_max_code_bytes: %w", err)
	}
	c.CacheMaxCodeBytes = n
	return nil
}

// Change applies a single named knob, string-keyed the way
// ChangeSettings has always dispatched configuration here.
func (c *Config) Change(key string, value string) error {
	switch key {
	case "max_blocking_threads":
		return scanInt(value, &c.MaxBlockingThreads)
	case "batch_size_hint":
		return scanInt(value, &c.BatchSizeHint)
	case "jit_enabled":
		c.JitEnabled = value == "true" || value == "1"
		return nil
	case "cache_max_entries":
		return scanInt(value, &c.CacheMaxEntries)
	case "cache_max_code_bytes":
		return c.SetCacheMaxCodeBytes(value)
	case "priority_runtime_weight":
		return scanFloat(value, &c.PriorityRuntimeWeight)
	case "priority_decay_rate":
		return scanFloat(value, &c.PriorityDecayRate)
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
}

func scanInt(s string, out *int) error {
	_, err := fmt.Sscanf(s, "%d", out)
	return err
}

func scanFloat(s string, out *float64) error {
	_, err := fmt.Sscanf(s, "%g", out)
	return err
}
