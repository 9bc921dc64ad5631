// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package bloombits implements the hierarchical log-bloom index of spec
// §4.6/§9 (component G): level 0 holds the OR of the blooms of each run of
// 16 (params.ElementsPerIndex) consecutive blocks, and level k holds the OR
// of the 16 level-(k-1) groups beneath it, so a logs query can discard a
// run of 16^(k+1) blocks with a single bloom test instead of scanning every
// block's receipts. The index has no per-block level.
package bloombits

import (
	"encoding/binary"

	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/params"
)

var groupPrefix = []byte("B")

// groupSize returns the number of blocks one group at level covers:
// ElementsPerIndex^(level+1) (level 0 covers 16 blocks, level 1 covers 256,
// and so on for params.LogBloomLevels levels).
func groupSize(level int) uint64 {
	size := uint64(1)
	for i := 0; i <= level; i++ {
		size *= params.ElementsPerIndex
	}
	return size
}

func groupKey(level int, index uint64) []byte {
	key := make([]byte, len(groupPrefix)+1+8)
	n := copy(key, groupPrefix)
	key[n] = byte(level)
	binary.BigEndian.PutUint64(key[n+1:], index)
	return key
}

// ReadGroup returns the aggregate bloom stored for (level, index), or the
// zero bloom if nothing has been indexed there yet.
func ReadGroup(db ethdb.KeyValueReader, level int, index uint64) types.Bloom {
	data, _ := db.Get(groupKey(level, index))
	if len(data) == 0 {
		return types.Bloom{}
	}
	return types.BytesToBloom(data)
}

func writeGroup(db ethdb.KeyValueWriter, level int, index uint64, bloom types.Bloom) {
	db.Put(groupKey(level, index), bloom[:])
}

// AddBloom folds one block's log bloom into every level of the hierarchy
// (spec §4.6 "Insertion ... writes bloom group deltas").
func AddBloom(db ethdb.Database, number uint64, bloom types.Bloom) {
	if bloom == (types.Bloom{}) {
		return
	}
	for level := 0; level < params.LogBloomLevels; level++ {
		index := number / groupSize(level)
		existing := ReadGroup(db, level, index)
		writeGroup(db, level, index, types.OrBloom(existing, bloom))
	}
}
