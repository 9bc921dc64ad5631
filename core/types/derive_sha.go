// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package types

import (
	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/ethdb/memorydb"
	"github.com/coreeth-io/coreeth/rlp"
	"github.com/coreeth-io/coreeth/trie"
)

// DerivableList is anything DeriveSha can hash into a root: a list whose
// RLP-encoded elements are keyed by their position (spec §6 "RLP encoding is
// the serialization convention throughout").
type DerivableList interface {
	Len() int
	EncodeIndex(i int) []byte
}

func (txs Transactions) Len() int { return len(txs) }

// EncodeIndex returns the RLP encoding of the i'th transaction.
func (txs Transactions) EncodeIndex(i int) []byte {
	enc, err := rlp.EncodeToBytes(txs[i])
	if err != nil {
		panic(err)
	}
	return enc
}

func (rs Receipts) Len() int { return len(rs) }

// EncodeIndex returns the consensus-encoding of the i'th receipt.
func (rs Receipts) EncodeIndex(i int) []byte {
	enc, err := rlp.EncodeToBytes(rs[i])
	if err != nil {
		panic(err)
	}
	return enc
}

// DeriveSha computes the root of a Merkle-Patricia trie keyed by RLP-encoded
// index over list, the same derivation go-ethereum uses for a block's
// transactions_root and receipts_root. It builds the trie over a
// throwaway, in-memory node store: the resulting root is the only output
// callers need, so nothing here is ever committed to the real chain
// database.
func DeriveSha(list DerivableList) common.Hash {
	db := trie.NewDatabase(memorydb.New())
	t := trie.NewEmpty(db)
	for i := 0; i < list.Len(); i++ {
		key, err := rlp.EncodeToBytes(uint(i))
		if err != nil {
			panic(err)
		}
		if err := t.Insert(key, list.EncodeIndex(i)); err != nil {
			panic(err)
		}
	}
	return t.Hash()
}
