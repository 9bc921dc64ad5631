// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package memorydb implements an in-memory ethdb.KeyValueStore, used by unit
// tests and the pending-block builder's scratch state; it exercises exactly
// the same interface the Pebble/LevelDB backends do so callers never special
// case it.
package memorydb

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/coreeth-io/coreeth/ethdb"
)

var errMemorydbClosed = errors.New("memorydb: closed")

// Database is a go-map backed ethdb.KeyValueStore.
type Database struct {
	lock sync.RWMutex
	db   map[string][]byte
}

// New creates an empty in-memory database.
func New() *Database {
	return &Database{db: make(map[string][]byte)}
}

func (d *Database) Has(key []byte) (bool, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	if d.db == nil {
		return false, errMemorydbClosed
	}
	_, ok := d.db[string(key)]
	return ok, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	if d.db == nil {
		return nil, errMemorydbClosed
	}
	if v, ok := d.db[string(key)]; ok {
		cp := make([]byte, len(v))
		copy(cp, v)
		return cp, nil
	}
	return nil, ethdb.ErrNotFound
}

func (d *Database) Put(key, value []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.db == nil {
		return errMemorydbClosed
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	d.db[string(key)] = cp
	return nil
}

func (d *Database) Delete(key []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.db == nil {
		return errMemorydbClosed
	}
	delete(d.db, string(key))
	return nil
}

func (d *Database) Stat() (string, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return "", nil
}

func (d *Database) Compact(start, limit []byte) error { return nil }

func (d *Database) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.db = nil
	return nil
}

func (d *Database) NewBatch() ethdb.Batch { return &batch{db: d} }

func (d *Database) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	d.lock.RLock()
	defer d.lock.RUnlock()

	var keys []string
	for k := range d.db {
		if strings.HasPrefix(k, string(prefix)) && k >= string(prefix)+string(start) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &iterator{db: d, keys: keys, idx: -1}
}

type keyvalue struct {
	key    []byte
	value  []byte
	delete bool
}

type batch struct {
	db     *Database
	writes []keyvalue
	size   int
}

func (b *batch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyvalue{append([]byte{}, key...), append([]byte{}, value...), false})
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyvalue{append([]byte{}, key...), nil, true})
	b.size += len(key)
	return nil
}

func (b *batch) ValueSize() int { return b.size }

func (b *batch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()
	if b.db.db == nil {
		return errMemorydbClosed
	}
	for _, kv := range b.writes {
		if kv.delete {
			delete(b.db.db, string(kv.key))
			continue
		}
		b.db.db[string(kv.key)] = kv.value
	}
	return nil
}

func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

type iterator struct {
	db   *Database
	keys []string
	idx  int
}

func (it *iterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

func (it *iterator) Error() error { return nil }

func (it *iterator) Key() []byte {
	if it.idx < 0 || it.idx >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.idx])
}

func (it *iterator) Value() []byte {
	if it.idx < 0 || it.idx >= len(it.keys) {
		return nil
	}
	it.db.lock.RLock()
	defer it.db.lock.RUnlock()
	return it.db.db[it.keys[it.idx]]
}

func (it *iterator) Release() {}
