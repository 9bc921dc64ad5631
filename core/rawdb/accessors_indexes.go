// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package rawdb

import (
	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/rlp"
)

// ReadTxLookupEntry returns the block hash a transaction was included in,
// the cheap half of the TransactionAddress index (spec §3
// "TransactionAddress"); the index within the block is recovered by
// ReadTransactionAddress.
func ReadTxLookupEntry(db ethdb.KeyValueReader, txHash common.Hash) *common.Hash {
	data, _ := db.Get(txLookupKey(txHash))
	if len(data) == 0 {
		return nil
	}
	var addr types.TransactionAddress
	if err := rlp.DecodeBytes(data, &addr); err != nil {
		return nil
	}
	return &addr.BlockHash
}

// ReadTransactionAddress returns the full TransactionAddress record.
func ReadTransactionAddress(db ethdb.KeyValueReader, txHash common.Hash) *types.TransactionAddress {
	data, _ := db.Get(txLookupKey(txHash))
	if len(data) == 0 {
		return nil
	}
	var addr types.TransactionAddress
	if err := rlp.DecodeBytes(data, &addr); err != nil {
		return nil
	}
	return &addr
}

// WriteTxLookupEntries indexes every transaction in block by hash, so a bare
// transaction hash can later be resolved to its block and position.
func WriteTxLookupEntries(db ethdb.KeyValueWriter, blockHash common.Hash, txs types.Transactions) {
	for i, tx := range txs {
		entry := types.TransactionAddress{BlockHash: blockHash, Index: uint64(i)}
		enc, err := rlp.EncodeToBytes(&entry)
		if err != nil {
			continue
		}
		db.Put(txLookupKey(tx.Hash()), enc)
	}
}

// DeleteTxLookupEntry removes one transaction's lookup entry, used when a
// reorg retracts the block that contained it (spec §4.6 "retracting old
// addresses").
func DeleteTxLookupEntry(db ethdb.KeyValueWriter, txHash common.Hash) {
	db.Delete(txLookupKey(txHash))
}

// DeleteTxLookupEntries removes every lookup entry for txs, the bulk form
// used when retracting a whole block's worth of transactions.
func DeleteTxLookupEntries(db ethdb.KeyValueWriter, txs types.Transactions) {
	for _, tx := range txs {
		DeleteTxLookupEntry(db, tx.Hash())
	}
}
