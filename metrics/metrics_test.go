// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package metrics

import "testing"

func TestCounterIncDec(t *testing.T) {
	c := NewCounter()
	c.Inc(5)
	c.Inc(3)
	c.Dec(2)
	if got := c.Count(); got != 6 {
		t.Fatalf("count = %d, want 6", got)
	}
	c.Clear()
	if got := c.Count(); got != 0 {
		t.Fatalf("count after clear = %d, want 0", got)
	}
}

func TestGaugeUpdate(t *testing.T) {
	g := NewGauge()
	g.Update(42)
	if got := g.Value(); got != 42 {
		t.Fatalf("value = %d, want 42", got)
	}
	g.Update(-1)
	if got := g.Value(); got != -1 {
		t.Fatalf("value = %d, want -1", got)
	}
}

func TestRegistryGetOrRegisterSharesInstance(t *testing.T) {
	r := NewRegistry()
	c1 := NewRegisteredCounter("blocks/imported", r)
	c1.Inc(1)
	c2 := NewRegisteredCounter("blocks/imported", r)
	if c2.Count() != 1 {
		t.Fatalf("expected shared counter, got fresh one with count %d", c2.Count())
	}
}

func TestRegistryEachAndUnregister(t *testing.T) {
	r := NewRegistry()
	NewRegisteredCounter("a", r)
	NewRegisteredGauge("b", r)

	seen := map[string]bool{}
	r.Each(func(name string, _ interface{}) { seen[name] = true })
	if !seen["a"] || !seen["b"] {
		t.Fatalf("Each missed registered metrics: %v", seen)
	}

	r.Unregister("a")
	seen = map[string]bool{}
	r.Each(func(name string, _ interface{}) { seen[name] = true })
	if seen["a"] {
		t.Fatalf("unregistered metric still present")
	}
}
