// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package metrics is a minimal counter/gauge registry grounded on
// go-ethereum's own metrics package (itself a fork of rcrowley/go-metrics):
// components register named Counters and Gauges against a shared Registry
// and the embedding binary's monitoring exporter reads them back, without
// this package ever making a network call of its own.
package metrics

import "sync"

// Counter is a monotonically adjustable count (spec ambient-stack
// observability for e.g. "blocks imported", "transactions executed").
type Counter interface {
	Inc(int64)
	Dec(int64)
	Count() int64
	Clear()
}

type counter struct {
	mu sync.Mutex
	n  int64
}

// NewCounter builds a standalone, unregistered Counter.
func NewCounter() Counter { return &counter{} }

func (c *counter) Inc(delta int64) {
	c.mu.Lock()
	c.n += delta
	c.mu.Unlock()
}

func (c *counter) Dec(delta int64) { c.Inc(-delta) }

func (c *counter) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *counter) Clear() {
	c.mu.Lock()
	c.n = 0
	c.mu.Unlock()
}

// Gauge holds an instantaneous value (e.g. "pending transaction pool size").
type Gauge interface {
	Update(int64)
	Value() int64
}

type gauge struct {
	mu sync.Mutex
	v  int64
}

// NewGauge builds a standalone, unregistered Gauge.
func NewGauge() Gauge { return &gauge{} }

func (g *gauge) Update(v int64) {
	g.mu.Lock()
	g.v = v
	g.mu.Unlock()
}

func (g *gauge) Value() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.v
}

// Registry is a named collection of metrics, mirroring go-ethereum's
// metrics.Registry: components fetch-or-create their metric by name so two
// call sites that care about the same counter share it.
type Registry interface {
	GetOrRegister(name string, metric interface{}) interface{}
	Each(func(name string, metric interface{}))
	Unregister(name string)
}

type registry struct {
	mu      sync.Mutex
	metrics map[string]interface{}
}

// NewRegistry builds an empty Registry.
func NewRegistry() Registry {
	return &registry{metrics: make(map[string]interface{})}
}

func (r *registry) GetOrRegister(name string, metric interface{}) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.metrics[name]; ok {
		return existing
	}
	r.metrics[name] = metric
	return metric
}

func (r *registry) Each(f func(name string, metric interface{})) {
	r.mu.Lock()
	snapshot := make(map[string]interface{}, len(r.metrics))
	for k, v := range r.metrics {
		snapshot[k] = v
	}
	r.mu.Unlock()
	for k, v := range snapshot {
		f(k, v)
	}
}

func (r *registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.metrics, name)
	r.mu.Unlock()
}

// DefaultRegistry is the process-wide registry components register against
// unless a caller supplies its own (e.g. per-test isolation), matching
// go-ethereum's metrics.DefaultRegistry convention.
var DefaultRegistry = NewRegistry()

// NewRegisteredCounter fetches (or creates and registers) a Counter under
// name in r, or DefaultRegistry if r is nil.
func NewRegisteredCounter(name string, r Registry) Counter {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewCounter()).(Counter)
}

// NewRegisteredGauge fetches (or creates and registers) a Gauge under name.
func NewRegisteredGauge(name string, r Registry) Gauge {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewGauge()).(Gauge)
}
