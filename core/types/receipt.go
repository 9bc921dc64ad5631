// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package types

import (
	"github.com/coreeth-io/coreeth/common"
)

// ReceiptOutcome distinguishes the pre/post EIP-658 receipt "outcome" field
// (spec §3 "Receipt"): either the intermediate state root (pre-Byzantium) or
// a single success/failure status byte.
type ReceiptOutcome uint8

const (
	OutcomeUnknown ReceiptOutcome = iota
	OutcomeStateRoot
	OutcomeStatusCode
)

// ReceiptStatus values for OutcomeStatusCode receipts.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt is the per-transaction execution record (spec §3/§6).
type Receipt struct {
	Outcome         ReceiptOutcome
	PostState       common.Hash // valid when Outcome == OutcomeStateRoot
	Status          uint64      // valid when Outcome == OutcomeStatusCode
	CumulativeGasUsed uint64
	Logs            []*Log
	Bloom           Bloom

	// Non-consensus bookkeeping filled in by the chain index (spec §4.6).
	TxHash          common.Hash
	ContractAddress common.Address
	GasUsed         uint64
	BlockHash       common.Hash
	BlockNumber     uint64
	TransactionIndex uint
}

// NewReceipt builds a receipt with its outcome and cumulative gas; the
// caller fills in Logs and Bloom.
func NewReceipt(postState []byte, failed bool, cumulativeGasUsed uint64) *Receipt {
	r := &Receipt{CumulativeGasUsed: cumulativeGasUsed}
	if len(postState) == 0 {
		r.Outcome = OutcomeStatusCode
		if failed {
			r.Status = ReceiptStatusFailed
		} else {
			r.Status = ReceiptStatusSuccessful
		}
	} else {
		r.Outcome = OutcomeStateRoot
		r.PostState = common.BytesToHash(postState)
	}
	return r
}

// Failed reports whether the receipt records a failed execution.
func (r *Receipt) Failed() bool {
	return r.Outcome == OutcomeStatusCode && r.Status == ReceiptStatusFailed
}

// Receipts is a list of receipts belonging to one block.
type Receipts []*Receipt

// Bloom ORs together every receipt's bloom, which must equal the block
// header's LogBloom field (spec §8 "Receipt bloom consistency").
func (r Receipts) Bloom() Bloom {
	logs := make([]*Log, 0)
	blooms := make([]Bloom, 0, len(r))
	for _, receipt := range r {
		blooms = append(blooms, receipt.Bloom)
		_ = logs
	}
	return OrBloom(blooms...)
}

// DeriveFields fills in the non-consensus bookkeeping fields (block hash,
// number, tx index, cumulative positions within the block) once a receipt
// list has been assembled for a specific block, mirroring go-ethereum's
// Receipts.DeriveFields used by both import and the RPC layer (out of scope
// here, but the same derivation feeds the transaction-address index, §4.6).
func (r Receipts) DeriveFields(blockHash common.Hash, blockNumber uint64, txs []*Transaction) error {
	logIndex := uint(0)
	for i, receipt := range r {
		receipt.TxHash = txs[i].Hash()
		receipt.BlockHash = blockHash
		receipt.BlockNumber = blockNumber
		receipt.TransactionIndex = uint(i)
		if txs[i].To == nil {
			receipt.ContractAddress = CreateAddressFor(txs[i])
		}
		for _, l := range receipt.Logs {
			l.BlockNumber = blockNumber
			l.TxHash = receipt.TxHash
			l.TxIndex = uint(i)
			l.BlockHash = blockHash
			l.Index = logIndex
			logIndex++
		}
	}
	return nil
}
