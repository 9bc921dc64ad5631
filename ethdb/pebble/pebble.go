// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package pebble adapts github.com/cockroachdb/pebble to ethdb.KeyValueStore,
// mirroring go-ethereum's ethdb/pebble backend (the teacher's go.mod carries
// the same dependency for its default production database).
package pebble

import (
	"github.com/cockroachdb/pebble"

	"github.com/coreeth-io/coreeth/ethdb"
)

// Database wraps a *pebble.DB.
type Database struct {
	db *pebble.DB
}

// Open opens (or creates) a Pebble database at path.
func Open(path string) (*Database, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Has(key []byte) (bool, error) {
	v, closer, err := d.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	_ = v
	return true, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	v, closer, err := d.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ethdb.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (d *Database) Put(key, value []byte) error {
	return d.db.Set(key, value, pebble.Sync)
}

func (d *Database) Delete(key []byte) error {
	return d.db.Delete(key, pebble.Sync)
}

func (d *Database) Stat() (string, error) { return "", nil }

func (d *Database) Compact(start, limit []byte) error {
	return d.db.Compact(start, limit, true)
}

func (d *Database) Close() error { return d.db.Close() }

func (d *Database) NewBatch() ethdb.Batch { return &batch{db: d.db, b: d.db.NewBatch()} }

func (d *Database) NewIterator(prefix, start []byte) ethdb.Iterator {
	lower := append(append([]byte{}, prefix...), start...)
	upper := upperBound(prefix)
	it, _ := d.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	it.First()
	return &iterator{it: it, first: true}
}

func upperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	limit := append([]byte{}, prefix...)
	for i := len(limit) - 1; i >= 0; i-- {
		if limit[i] < 0xff {
			limit[i]++
			return limit[:i+1]
		}
	}
	return nil
}

type batch struct {
	db   *pebble.DB
	b    *pebble.Batch
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.size += len(key) + len(value)
	return b.b.Set(key, value, nil)
}

func (b *batch) Delete(key []byte) error {
	b.size += len(key)
	return b.b.Delete(key, nil)
}

func (b *batch) ValueSize() int { return b.size }
func (b *batch) Write() error   { return b.b.Commit(pebble.Sync) }
func (b *batch) Reset()         { b.b.Reset(); b.size = 0 }

type iterator struct {
	it    *pebble.Iterator
	first bool
	err   error
}

func (it *iterator) Next() bool {
	if it.first {
		it.first = false
		return it.it.Valid()
	}
	return it.it.Next()
}

func (it *iterator) Error() error   { return it.err }
func (it *iterator) Key() []byte    { return it.it.Key() }
func (it *iterator) Value() []byte  { return it.it.Value() }
func (it *iterator) Release()       { it.it.Close() }
