// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package types

import (
	"io"
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/crypto"
	"github.com/coreeth-io/coreeth/rlp"
)

// TxAction distinguishes a message-call from a contract-creation
// transaction (spec §3 "tx.action").
type TxAction uint8

const (
	ActionCall TxAction = iota
	ActionCreate
)

// Transaction is a signed request to mutate world state (spec §3/§6).
type Transaction struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *common.Address // nil means ActionCreate
	Value    *uint256.Int
	Data     []byte

	V, R, S *uint256.Int

	hash atomic.Value
	from atomic.Value
}

// Action reports whether this is a Call or a Create transaction.
func (tx *Transaction) Action() TxAction {
	if tx.To == nil {
		return ActionCreate
	}
	return ActionCall
}

// ToAddr returns the recipient, or nil for contract creation; kept distinct
// from the exported field name to mirror go-ethereum's Transaction.To()
// accessor convention while still allowing direct field RLP encoding.
func (tx *Transaction) ToAddr() *common.Address { return tx.To }

// rlpTx is the wire/storage encoding shape of a Transaction.
type rlpTx struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       []byte
	Value    *uint256.Int
	Data     []byte
	V, R, S  *uint256.Int
}

func (tx *Transaction) EncodeRLP(w io.Writer) error {
	var to []byte
	if tx.To != nil {
		to = tx.To.Bytes()
	}
	enc, err := rlp.EncodeToBytes(&rlpTx{tx.Nonce, tx.GasPrice, tx.Gas, to, tx.Value, tx.Data, tx.V, tx.R, tx.S})
	if err != nil {
		return err
	}
	_, err = w.Write(enc)
	return err
}

// DecodeRLP reconstructs a Transaction from its wire encoding.
func (tx *Transaction) DecodeRLP(s *rlp.Stream) error {
	var dec rlpTx
	if err := s.Decode(&dec); err != nil {
		return err
	}
	tx.Nonce = dec.Nonce
	tx.GasPrice = dec.GasPrice
	tx.Gas = dec.Gas
	tx.Value = dec.Value
	tx.Data = dec.Data
	tx.V, tx.R, tx.S = dec.V, dec.R, dec.S
	if len(dec.To) > 0 {
		addr := common.BytesToAddress(dec.To)
		tx.To = &addr
	} else {
		tx.To = nil
	}
	return nil
}

// Hash returns (and caches) the transaction's keccak hash over its RLP
// encoding, the identifier used by the tx-location index (spec §3/§4.6).
func (tx *Transaction) Hash() common.Hash {
	if v := tx.hash.Load(); v != nil {
		return v.(common.Hash)
	}
	enc, _ := rlp.EncodeToBytes(tx)
	h := crypto.Keccak256Hash(enc)
	tx.hash.Store(h)
	return h
}

// SigningHash is the hash signed by the sender, excluding V/R/S themselves.
func (tx *Transaction) SigningHash() common.Hash {
	var to []byte
	if tx.To != nil {
		to = tx.To.Bytes()
	}
	enc, _ := rlp.EncodeToBytes(&rlpTx{tx.Nonce, tx.GasPrice, tx.Gas, to, tx.Value, tx.Data, nil, nil, nil})
	return crypto.Keccak256Hash(enc)
}

// CachedSender returns the sender address cached by a prior SetCachedSender
// call, or the zero address and false if none has been cached yet.
func (tx *Transaction) CachedSender() (common.Address, bool) {
	if v := tx.from.Load(); v != nil {
		return v.(common.Address), true
	}
	return common.Address{}, false
}

// SetCachedSender caches the sender address recovered by the executive's
// signature-recovery step (spec §4.5 step 1), so that e.g. receipt
// derivation for contract-creation transactions doesn't re-run ecrecover.
func (tx *Transaction) SetCachedSender(addr common.Address) { tx.from.Store(addr) }

// CreateAddressFor computes the contract address a Create transaction from
// sender tx.from() at its current nonce would deploy to (spec §4.5 step 4).
func CreateAddressFor(tx *Transaction) common.Address {
	from, ok := tx.CachedSender()
	if !ok {
		return common.Address{}
	}
	return crypto.CreateAddress(from, tx.Nonce)
}

// Transactions is a list of transactions belonging to one block.
type Transactions []*Transaction
