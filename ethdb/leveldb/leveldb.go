// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package leveldb adapts github.com/syndtr/goleveldb to ethdb.KeyValueStore,
// the second of the two production backends the teacher's go.mod carries
// (Pebble is the default; LevelDB remains for compatibility/import tooling).
package leveldb

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/coreeth-io/coreeth/ethdb"
)

// Database wraps a *leveldb.DB.
type Database struct {
	db *leveldb.DB
}

// Open opens (or creates) a LevelDB database at path.
func Open(path string) (*Database, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Has(key []byte) (bool, error) { return d.db.Has(key, nil) }

func (d *Database) Get(key []byte) ([]byte, error) {
	v, err := d.db.Get(key, nil)
	if err == errors.ErrNotFound {
		return nil, ethdb.ErrNotFound
	}
	return v, err
}

func (d *Database) Put(key, value []byte) error { return d.db.Put(key, value, nil) }
func (d *Database) Delete(key []byte) error      { return d.db.Delete(key, nil) }
func (d *Database) Stat() (string, error)        { return "", nil }

func (d *Database) Compact(start, limit []byte) error {
	return d.db.CompactRange(util.Range{Start: start, Limit: limit})
}

func (d *Database) Close() error { return d.db.Close() }

func (d *Database) NewBatch() ethdb.Batch { return &batch{db: d.db, b: new(leveldb.Batch)} }

func (d *Database) NewIterator(prefix, start []byte) ethdb.Iterator {
	rng := util.BytesPrefix(prefix)
	if len(start) > 0 {
		rng.Start = append(append([]byte{}, prefix...), start...)
	}
	return &iterator{it: d.db.NewIterator(rng, nil)}
}

type batch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	b.size += len(key)
	return nil
}

func (b *batch) ValueSize() int { return b.size }
func (b *batch) Write() error   { return b.db.Write(b.b, nil) }
func (b *batch) Reset()         { b.b.Reset(); b.size = 0 }

type iterator struct {
	it interface {
		Next() bool
		Key() []byte
		Value() []byte
		Error() error
		Release()
	}
}

func (it *iterator) Next() bool     { return it.it.Next() }
func (it *iterator) Error() error   { return it.it.Error() }
func (it *iterator) Key() []byte    { return it.it.Key() }
func (it *iterator) Value() []byte  { return it.it.Value() }
func (it *iterator) Release()       { it.it.Release() }
