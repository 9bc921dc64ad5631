// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package types

import (
	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/crypto"
)

// EmptyCodeHash is keccak(nil), the code hash of every externally-owned
// account (spec §3 "Account invariants").
var EmptyCodeHash = crypto.Keccak256Hash(nil)

// EmptyRootHash is the root of an empty Merkle-Patricia trie, both the
// storage root of a fresh account and the world-state root of an empty
// genesis (spec §8 scenario 6).
var EmptyRootHash = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// StateAccount is the RLP-persisted account record (spec §3 "Account"):
// balance, nonce, code hash and the root of the account's own storage trie.
// Lazily-loaded code/storage live on the owning stateObject, not here.
type StateAccount struct {
	Nonce    uint64
	Balance  *uint256.Int
	Root     common.Hash // storage trie root
	CodeHash []byte
}

// NewEmptyStateAccount returns the account record for an address that has
// never been touched: zero balance/nonce, no code, empty storage root.
func NewEmptyStateAccount() *StateAccount {
	return &StateAccount{
		Balance:  new(uint256.Int),
		Root:     EmptyRootHash,
		CodeHash: EmptyCodeHash.Bytes(),
	}
}

// Copy returns a deep copy of the account record.
func (a *StateAccount) Copy() *StateAccount {
	cpy := *a
	cpy.Balance = new(uint256.Int).Set(a.Balance)
	cpy.CodeHash = common.CopyBytes(a.CodeHash)
	return &cpy
}

// Empty reports whether the account satisfies spec §3's "Empty" predicate:
// zero balance, zero nonce, and no code.
func (a *StateAccount) Empty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && common.BytesToHash(a.CodeHash) == EmptyCodeHash
}
