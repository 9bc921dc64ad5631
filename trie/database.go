// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package trie

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/ethdb"
)

// Database is the HashDB abstraction of spec §4.2: a mapping from 32-byte
// content hashes to byte blobs with reference counting. Insertions
// increment a node's count, removals decrement it; the encoded counts are
// flushed through the KV batch alongside the node payloads so a restart
// recovers exact liveness.
type Database struct {
	diskdb ethdb.KeyValueStore

	lock  sync.RWMutex
	dirty map[common.Hash]*cachedNode
}

type cachedNode struct {
	blob []byte
	refs int32
}

// NewDatabase wraps a KV store as a trie node database.
func NewDatabase(diskdb ethdb.KeyValueStore) *Database {
	return &Database{diskdb: diskdb, dirty: make(map[common.Hash]*cachedNode)}
}

// trieNodeKey is the on-disk key for a node blob: a short prefix plus the
// hash, keeping trie nodes in their own keyspace within the shared KV store.
func trieNodeKey(h common.Hash) []byte {
	return append([]byte("n"), h[:]...)
}

func refCountKey(h common.Hash) []byte {
	return append([]byte("r"), h[:]...)
}

// insert increments the reference count of h, inserting blob if new.
func (db *Database) insert(h common.Hash, blob []byte) {
	db.lock.Lock()
	defer db.lock.Unlock()
	if n, ok := db.dirty[h]; ok {
		n.refs++
		return
	}
	db.dirty[h] = &cachedNode{blob: common.CopyBytes(blob), refs: 1}
}

// remove decrements the reference count of h.
func (db *Database) remove(h common.Hash) {
	db.lock.Lock()
	defer db.lock.Unlock()
	if n, ok := db.dirty[h]; ok {
		n.refs--
		return
	}
	db.dirty[h] = &cachedNode{refs: -1}
}

// node resolves a hash to its encoded blob, consulting the dirty overlay
// before falling back to the backing KV store.
func (db *Database) node(h common.Hash) ([]byte, error) {
	db.lock.RLock()
	if n, ok := db.dirty[h]; ok && n.blob != nil {
		db.lock.RUnlock()
		return n.blob, nil
	}
	db.lock.RUnlock()

	blob, err := db.diskdb.Get(trieNodeKey(h))
	if err != nil {
		return nil, fmt.Errorf("trie: %w: %s", ErrIncompleteDatabase, h.Hex())
	}
	return blob, nil
}

// Contains reports whether the database has a (possibly committed) node for
// the given state root, the check the state overlay uses to validate a root
// on construction (spec §3 "Lifecycle").
func (db *Database) Contains(h common.Hash) bool {
	if h == EmptyRootHash {
		return true
	}
	if _, err := db.node(h); err != nil {
		return false
	}
	return true
}

// Commit flushes every dirty node with a positive reference count into a
// single atomic batch, and purges entries whose count dropped to zero.
func (db *Database) Commit() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	batch := db.diskdb.NewBatch()
	for h, n := range db.dirty {
		existing, err := db.readRefCount(h)
		if err != nil {
			existing = 0
		}
		total := existing + n.refs
		if total <= 0 {
			batch.Delete(trieNodeKey(h))
			batch.Delete(refCountKey(h))
			continue
		}
		if n.blob != nil {
			batch.Put(trieNodeKey(h), n.blob)
		}
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(total))
		batch.Put(refCountKey(h), buf[:])
	}
	db.dirty = make(map[common.Hash]*cachedNode)
	return batch.Write()
}

func (db *Database) readRefCount(h common.Hash) (int32, error) {
	b, err := db.diskdb.Get(refCountKey(h))
	if err != nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("trie: corrupt refcount for %s", h.Hex())
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// DiskDB exposes the underlying KV store, used by the account trie to open a
// per-account storage trie sharing the same node database.
func (db *Database) DiskDB() ethdb.KeyValueStore { return db.diskdb }
