// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package state implements the state overlay (component D) and the
// per-account record (component C) it manages: a live, checkpointable cache
// of accounts sitting in front of the account trie and each account's
// storage trie.
package state

import (
	"fmt"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/crypto"
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/ethdb/memorydb"
	"github.com/coreeth-io/coreeth/trie"
)

// codeCacheBytes sizes the shared clean-code cache (spec §4.3 "global
// shared cache"); bytecode is immutable once deployed so this cache never
// needs invalidation, only eviction.
const codeCacheBytes = 32 * 1024 * 1024

// Database wraps the trie database with the account/storage trie-opening
// and contract-code-loading operations the state overlay needs, and owns
// the process-wide clean-code cache.
type Database interface {
	OpenTrie(root common.Hash) (*trie.Trie, error)
	OpenStorageTrie(addrHash common.Hash, root common.Hash) (*trie.Trie, error)
	CopyTrie(t *trie.Trie) *trie.Trie
	ContractCode(addrHash, codeHash common.Hash) ([]byte, error)
	WriteContractCode(addrHash, codeHash common.Hash, code []byte)
	TrieDB() *trie.Database
}

type cachingDB struct {
	triedb    *trie.Database
	codeCache *fastcache.Cache
}

// NewDatabase wraps disk as a state Database, backed by a fresh trie node
// store and a process-wide clean-code cache.
func NewDatabase(disk ethdb.KeyValueStore) Database {
	return &cachingDB{
		triedb:    trie.NewDatabase(disk),
		codeCache: fastcache.New(codeCacheBytes),
	}
}

// NewDatabaseForTesting returns an ephemeral, memory-backed Database.
func NewDatabaseForTesting() Database {
	return NewDatabase(memorydb.New())
}

func (db *cachingDB) OpenTrie(root common.Hash) (*trie.Trie, error) {
	return trie.New(root, db.triedb)
}

func (db *cachingDB) OpenStorageTrie(addrHash common.Hash, root common.Hash) (*trie.Trie, error) {
	return trie.New(root, db.triedb)
}

// CopyTrie returns an independent trie sharing the same backing database,
// used when a pending revive/prefetch trie must diverge from the live one.
func (db *cachingDB) CopyTrie(t *trie.Trie) *trie.Trie {
	cpy, err := trie.New(t.Hash(), db.triedb)
	if err != nil {
		// The source trie's root must already be resolvable since t itself
		// was opened against the same database.
		panic(fmt.Sprintf("state: copy trie: %v", err))
	}
	return cpy
}

func (db *cachingDB) ContractCode(addrHash, codeHash common.Hash) ([]byte, error) {
	if codeHash == types.EmptyCodeHash {
		return nil, nil
	}
	if code := db.codeCache.Get(nil, codeHash[:]); len(code) > 0 {
		return code, nil
	}
	code, err := db.triedb.DiskDB().Get(codeKey(codeHash))
	if err != nil {
		return nil, fmt.Errorf("state: code %s (account %s) not found: %w", codeHash.Hex(), addrHash.Hex(), err)
	}
	db.codeCache.Set(codeHash[:], code)
	return code, nil
}

func (db *cachingDB) WriteContractCode(addrHash, codeHash common.Hash, code []byte) {
	if codeHash == types.EmptyCodeHash {
		return
	}
	db.codeCache.Set(codeHash[:], code)
	if err := db.triedb.DiskDB().Put(codeKey(codeHash), code); err != nil {
		panic(fmt.Sprintf("state: write code %s: %v", codeHash.Hex(), err))
	}
}

func (db *cachingDB) TrieDB() *trie.Database { return db.triedb }

func codeKey(codeHash common.Hash) []byte {
	return append([]byte("c"), codeHash[:]...)
}

// addressHash is a convenience used when opening an account's storage trie
// or addressing its code.
func addressHash(addr common.Address) common.Hash {
	return crypto.Keccak256Hash(addr[:])
}
