// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package prque

import (
	"math/rand"
	"testing"
)

func TestPrquePopOrder(t *testing.T) {
	q := New()
	priorities := []int64{3, 1, 4, 1, 5, 9, 2, 6}
	for _, p := range priorities {
		q.Push(p, p)
	}
	var prev int64 = 1 << 62
	for !q.Empty() {
		v, p := q.Pop()
		if p != v.(int64) {
			t.Fatalf("value/priority mismatch: %v vs %v", v, p)
		}
		if p > prev {
			t.Fatalf("popped %d after %d, not descending", p, prev)
		}
		prev = p
	}
}

func TestPrqueRandom(t *testing.T) {
	q := New()
	n := 1000
	for i := 0; i < n; i++ {
		q.Push(i, rand.Int63())
	}
	if q.Size() != n {
		t.Fatalf("size = %d, want %d", q.Size(), n)
	}
	var prev int64 = 1<<63 - 1
	for !q.Empty() {
		_, p := q.Pop()
		if p > prev {
			t.Fatalf("not in descending priority order")
		}
		prev = p
	}
}

func TestPrquePeekDoesNotRemove(t *testing.T) {
	q := New()
	q.Push("a", 1)
	q.Push("b", 2)
	v, p := q.Peek()
	if v != "b" || p != 2 {
		t.Fatalf("peek = (%v, %d), want (b, 2)", v, p)
	}
	if q.Size() != 2 {
		t.Fatalf("peek must not remove: size = %d", q.Size())
	}
}

func TestPrqueReset(t *testing.T) {
	q := New()
	q.Push(1, 1)
	q.Push(2, 2)
	q.Reset()
	if !q.Empty() {
		t.Fatalf("expected empty after reset")
	}
}
