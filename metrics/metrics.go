// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics records timers, histograms and counters for grammar
// compilation.
package metrics

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	go_metrics "github.com/rcrowley/go-metrics"
)

// Well-known metric names.
const (
	GrammarLoad     = "grammar_load"
	GrammarCheck    = "grammar_check"
	CodegenProcs    = "codegen_procedures"
	CodegenRuleSize = "codegen_rule_nodes"
	ParseInput      = "parse_input"
)

// StageTimer returns the timer name for a compile stage.
func StageTimer(stage string) string {
	return "compile_stage_" + stage
}

// Metrics is a collection of named timers, histograms and counters.
type Metrics interface {
	Timer(name string) Timer
	Histogram(name string) Histogram
	Counter(name string) Counter
	// All returns the current value of every metric keyed by
	// <kind>_<name>; timers are suffixed with _ns.
	All() map[string]any
}

// Timer accumulates elapsed time over any number of Start/Stop pairs.
type Timer interface {
	Start()
	// Stop returns the nanoseconds since the matching Start.
	Stop() int64
}

// Histogram records int64 samples.
type Histogram interface {
	Update(int64)
}

// Counter is a monotonic counter.
type Counter interface {
	Incr()
	Add(n uint64)
	Value() any
}

type valuer interface {
	value() any
}

type collection struct {
	mtx     sync.Mutex
	entries map[string]valuer
}

// New returns a new Metrics object.
func New() Metrics {
	return &collection{entries: map[string]valuer{}}
}

// NoOp returns a Metrics implementation that records nothing.
func NoOp() Metrics {
	return noOp{}
}

// Keys returns the keys of m.All() in sorted order.
func Keys(m Metrics) []string {
	return slices.Sorted(maps.Keys(m.All()))
}

func get[T valuer](c *collection, key string, create func() T) T {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if v, ok := c.entries[key].(T); ok {
		return v
	}
	v := create()
	c.entries[key] = v
	return v
}

func (c *collection) Timer(name string) Timer {
	return get(c, "timer_"+name+"_ns", func() *timer { return &timer{} })
}

func (c *collection) Histogram(name string) Histogram {
	return get(c, "histogram_"+name, func() *histogram {
		return &histogram{h: go_metrics.NewHistogram(go_metrics.NewExpDecaySample(1028, 0.015))}
	})
}

func (c *collection) Counter(name string) Counter {
	return get(c, "counter_"+name, func() *counter { return &counter{} })
}

func (c *collection) All() map[string]any {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	out := make(map[string]any, len(c.entries))
	for k, v := range c.entries {
		out[k] = v.value()
	}
	return out
}

type timer struct {
	mtx   sync.Mutex
	start time.Time
	total int64
}

func (t *timer) Start() {
	t.mtx.Lock()
	t.start = time.Now()
	t.mtx.Unlock()
}

func (t *timer) Stop() int64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.start.IsZero() {
		return 0
	}
	delta := time.Since(t.start).Nanoseconds()
	t.total += delta
	t.start = time.Time{}
	return delta
}

func (t *timer) value() any {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.total
}

type histogram struct {
	h go_metrics.Histogram
}

func (h *histogram) Update(v int64) { h.h.Update(v) }

func (h *histogram) value() any {
	snap := h.h.Snapshot()
	p := snap.Percentiles([]float64{0.5, 0.9, 0.99})
	return map[string]any{
		"count":  snap.Count(),
		"min":    snap.Min(),
		"max":    snap.Max(),
		"mean":   snap.Mean(),
		"median": p[0],
		"90%":    p[1],
		"99%":    p[2],
	}
}

type counter struct {
	n atomic.Uint64
}

func (c *counter) Incr()        { c.n.Add(1) }
func (c *counter) Add(n uint64) { c.n.Add(n) }
func (c *counter) Value() any   { return c.n.Load() }
func (c *counter) value() any   { return c.Value() }

type noOp struct{}

func (noOp) Timer(string) Timer         { return noOp{} }
func (noOp) Histogram(string) Histogram { return noOp{} }
func (noOp) Counter(string) Counter     { return noOp{} }
func (noOp) All() map[string]any        { return nil }
func (noOp) Start()                     {}
func (noOp) Stop() int64                { return 0 }
func (noOp) Update(int64)               {}
func (noOp) Incr()                      {}
func (noOp) Add(uint64)                 {}
func (noOp) Value() any                 { return uint64(0) }
