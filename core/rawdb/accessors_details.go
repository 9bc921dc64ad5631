// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package rawdb

import (
	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/rlp"
)

var blockDetailsPrefix = []byte("d") // blockDetailsPrefix + hash -> BlockDetails

func blockDetailsKey(hash common.Hash) []byte {
	return append(append([]byte{}, blockDetailsPrefix...), hash.Bytes()...)
}

// ReadBlockDetails returns the parent/children/total-difficulty record the
// tree-route algorithm walks (spec §3 "BlockDetails", §4.6).
func ReadBlockDetails(db ethdb.KeyValueReader, hash common.Hash) *types.BlockDetails {
	data, _ := db.Get(blockDetailsKey(hash))
	if len(data) == 0 {
		return nil
	}
	details := new(types.BlockDetails)
	if err := rlp.DecodeBytes(data, details); err != nil {
		return nil
	}
	return details
}

func WriteBlockDetails(db ethdb.KeyValueWriter, hash common.Hash, details *types.BlockDetails) {
	enc, err := rlp.EncodeToBytes(details)
	if err != nil {
		return
	}
	db.Put(blockDetailsKey(hash), enc)
}

func DeleteBlockDetails(db ethdb.KeyValueWriter, hash common.Hash) {
	db.Delete(blockDetailsKey(hash))
}
