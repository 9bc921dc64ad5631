// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package rawdb

import (
	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/rlp"
)

// epochPendingPrefix/epochConfirmedPrefix implement the two epoch-transition
// columns of spec §4.6/§6: a transition is first staged keyed by the hash of
// the block that signalled it (the block may yet be retracted by a reorg
// before it is ever confirmed canonical), then, once that block is
// confirmed part of the canonical chain, promoted to a second record keyed
// by epoch number (spec §6 "EPOCH_KEY_PREFIX∥num -> EpochTransitions").
var (
	epochPendingPrefix   = []byte("e") // epochPendingPrefix + block hash -> EpochTransition
	epochConfirmedPrefix = []byte("E") // epochConfirmedPrefix + epoch number -> EpochTransition
)

func epochPendingKey(hash common.Hash) []byte {
	return append(append([]byte{}, epochPendingPrefix...), hash.Bytes()...)
}

func epochConfirmedKey(epochNumber uint64) []byte {
	return append(append([]byte{}, epochConfirmedPrefix...), encodeBlockNumber(epochNumber)...)
}

// WritePendingEpochTransition stages a transition signalled by the block at
// hash (spec §4.7 step 6, before the block has been confirmed canonical).
func WritePendingEpochTransition(db ethdb.KeyValueWriter, hash common.Hash, t *types.EpochTransition) {
	enc, err := rlp.EncodeToBytes(t)
	if err != nil {
		return
	}
	db.Put(epochPendingKey(hash), enc)
}

// ReadPendingEpochTransition returns the staged transition for hash, or nil.
func ReadPendingEpochTransition(db ethdb.KeyValueReader, hash common.Hash) *types.EpochTransition {
	data, _ := db.Get(epochPendingKey(hash))
	if len(data) == 0 {
		return nil
	}
	t := new(types.EpochTransition)
	if err := rlp.DecodeBytes(data, t); err != nil {
		return nil
	}
	return t
}

// DeletePendingEpochTransition removes a staged transition, used when the
// block that signalled it is retracted by a reorg without ever confirming.
func DeletePendingEpochTransition(db ethdb.KeyValueWriter, hash common.Hash) {
	db.Delete(epochPendingKey(hash))
}

// ConfirmEpochTransition promotes a transition to the confirmed,
// epoch-number-keyed column once its block is canonical (spec §4.6
// "confirmed transitions keyed by epoch number"). epochNumber is the
// transition block's own number: canonical-chain iteration later filters
// candidates to the one whose block_number -> block_hash mapping still
// matches (spec §4.6 "Epoch transitions").
func ConfirmEpochTransition(db ethdb.KeyValueWriter, epochNumber uint64, t *types.EpochTransition) {
	enc, err := rlp.EncodeToBytes(t)
	if err != nil {
		return
	}
	db.Put(epochConfirmedKey(epochNumber), enc)
}

// ReadConfirmedEpochTransition returns the confirmed transition for
// epochNumber, or nil if that block number never signalled one.
func ReadConfirmedEpochTransition(db ethdb.KeyValueReader, epochNumber uint64) *types.EpochTransition {
	data, _ := db.Get(epochConfirmedKey(epochNumber))
	if len(data) == 0 {
		return nil
	}
	t := new(types.EpochTransition)
	if err := rlp.DecodeBytes(data, t); err != nil {
		return nil
	}
	return t
}
