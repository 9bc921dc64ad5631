// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package state

import (
	"bytes"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/crypto"
	"github.com/coreeth-io/coreeth/rlp"
	"github.com/coreeth-io/coreeth/trie"
)

// Storage is an account's in-memory key/value cache, overlaying its
// storage trie.
type Storage map[common.Hash]common.Hash

// Copy returns an independent copy of s, used when snapshotting a
// stateObject for the checkpoint stack.
func (s Storage) Copy() Storage {
	cpy := make(Storage, len(s))
	for k, v := range s {
		cpy[k] = v
	}
	return cpy
}

// stateObject is the live, mutable view of a single account (component C):
// its account record plus whatever code and storage entries have been
// read or written while it sits in the overlay.
type stateObject struct {
	db       *StateDB
	address  common.Address
	addrHash common.Hash
	data     types.StateAccount

	trie *trie.Trie // storage trie, opened lazily on first access
	code []byte

	// originBalance is the balance this account had when it was first
	// loaded into the overlay (or zero, for one created from scratch),
	// used by kill_garbage's dust heuristic (spec §4.3 "below min_balance
	// and below its original balance").
	originBalance *uint256.Int

	originStorage Storage // committed values already read, deduped against rewrites
	dirtyStorage  Storage // values written since the account was last committed

	dirtyCode bool

	// selfDestructed marks an account that called SELFDESTRUCT in the
	// current transaction; it stays readable until the substate merges it
	// into the overlay's pending-deletion set (spec §4.3/§4.4).
	selfDestructed bool

	// newContract marks an account created (via CREATE/CREATE2) within the
	// current transaction, so EIP-684's "create into existing account"
	// check and the trap/resume executive can tell new from pre-existing.
	newContract bool
}

func newObject(db *StateDB, address common.Address, acct *types.StateAccount) *stateObject {
	if acct == nil {
		acct = types.NewEmptyStateAccount()
	}
	return &stateObject{
		db:            db,
		address:       address,
		addrHash:      crypto.Keccak256Hash(address[:]),
		data:          *acct,
		originBalance: new(uint256.Int).Set(acct.Balance),
		originStorage: make(Storage),
		dirtyStorage:  make(Storage),
	}
}

// empty reports whether the account is "null" under EIP-161: zero nonce,
// zero balance, and the empty code hash.
func (s *stateObject) empty() bool {
	return s.data.Nonce == 0 && s.data.Balance.IsZero() && bytes.Equal(s.data.CodeHash, types.EmptyCodeHash.Bytes())
}

// deepCopy returns an independent clone used to snapshot this object into
// the checkpoint stack before its first mutation at a given depth.
func (s *stateObject) deepCopy(db *StateDB) *stateObject {
	cpy := &stateObject{
		db:             db,
		address:        s.address,
		addrHash:       s.addrHash,
		data:           *s.data.Copy(),
		trie:           s.trie,
		code:           s.code,
		originBalance:  s.originBalance,
		originStorage:  s.originStorage.Copy(),
		dirtyStorage:   s.dirtyStorage.Copy(),
		dirtyCode:      s.dirtyCode,
		selfDestructed: s.selfDestructed,
		newContract:    s.newContract,
	}
	return cpy
}

// mergeFromSnapshot restores this object's mutable fields from prior (a
// checkpoint pre-image) while preserving committed-value reads cached in
// originStorage since the checkpoint was taken — those remain correct
// regardless of which writes on top of them get unwound.
func (s *stateObject) mergeFromSnapshot(prior *stateObject) {
	s.data = *prior.data.Copy()
	s.code = prior.code
	s.dirtyCode = prior.dirtyCode
	s.dirtyStorage = prior.dirtyStorage.Copy()
	s.selfDestructed = prior.selfDestructed
	s.newContract = prior.newContract
	for k, v := range prior.originStorage {
		if _, ok := s.originStorage[k]; !ok {
			s.originStorage[k] = v
		}
	}
}

func (s *stateObject) getTrie() (*trie.Trie, error) {
	if s.trie == nil {
		tr, err := s.db.db.OpenStorageTrie(s.addrHash, s.data.Root)
		if err != nil {
			return nil, err
		}
		s.trie = tr
	}
	return s.trie, nil
}

// GetState returns the current value of key, preferring an uncommitted
// write over the trie-backed committed value.
func (s *stateObject) GetState(key common.Hash) common.Hash {
	if v, dirty := s.dirtyStorage[key]; dirty {
		return v
	}
	return s.GetCommittedState(key)
}

// GetCommittedState returns the trie-backed value of key, ignoring any
// uncommitted write, caching the trie read so repeat lookups are free.
func (s *stateObject) GetCommittedState(key common.Hash) common.Hash {
	if v, cached := s.originStorage[key]; cached {
		return v
	}
	tr, err := s.getTrie()
	if err != nil {
		s.db.setError(fmt.Errorf("state: open storage trie for %s: %w", s.address.Hex(), err))
		return common.Hash{}
	}
	enc, err := tr.Get(key[:])
	if err != nil {
		s.db.setError(fmt.Errorf("state: read storage %s/%s: %w", s.address.Hex(), key.Hex(), err))
		return common.Hash{}
	}
	var value common.Hash
	if len(enc) > 0 {
		content, _, err := rlp.SplitString(enc)
		if err != nil {
			s.db.setError(fmt.Errorf("state: decode storage %s/%s: %w", s.address.Hex(), key.Hex(), err))
			return common.Hash{}
		}
		value = common.BytesToHash(content)
	}
	s.originStorage[key] = value
	return value
}

// SetState records a new value for key. The checkpoint pre-image is the
// caller's (StateDB's) responsibility, mirroring the "note pre-mutation
// image once per checkpoint depth" rule rather than a per-field journal.
func (s *stateObject) SetState(key, value common.Hash) {
	s.dirtyStorage[key] = value
}

func (s *stateObject) Code() []byte {
	if s.code != nil {
		return s.code
	}
	if bytes.Equal(s.CodeHash(), types.EmptyCodeHash.Bytes()) {
		return nil
	}
	code, err := s.db.db.ContractCode(s.addrHash, common.BytesToHash(s.data.CodeHash))
	if err != nil {
		s.db.setError(fmt.Errorf("state: load code for %s: %w", s.address.Hex(), err))
	}
	s.code = code
	return code
}

func (s *stateObject) CodeSize() int { return len(s.Code()) }

func (s *stateObject) SetCode(codeHash common.Hash, code []byte) {
	s.code = code
	s.data.CodeHash = codeHash[:]
	s.dirtyCode = true
}

func (s *stateObject) CodeHash() []byte { return s.data.CodeHash }

func (s *stateObject) Balance() *uint256.Int { return s.data.Balance }

func (s *stateObject) SetBalance(amount *uint256.Int) {
	s.data.Balance = new(uint256.Int).Set(amount)
}

func (s *stateObject) AddBalance(amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	s.SetBalance(new(uint256.Int).Add(s.Balance(), amount))
}

func (s *stateObject) SubBalance(amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	s.SetBalance(new(uint256.Int).Sub(s.Balance(), amount))
}

func (s *stateObject) Nonce() uint64 { return s.data.Nonce }

func (s *stateObject) SetNonce(nonce uint64) { s.data.Nonce = nonce }

// updateTrie writes every dirty storage entry into the account's storage
// trie, folding dirtyStorage into originStorage, and returns the trie so
// the caller can commit it. A no-op when nothing was written.
func (s *stateObject) updateTrie() (*trie.Trie, error) {
	if len(s.dirtyStorage) == 0 {
		return s.trie, nil
	}
	tr, err := s.getTrie()
	if err != nil {
		return nil, err
	}
	for key, value := range s.dirtyStorage {
		if value == (common.Hash{}) {
			if err := tr.Delete(key[:]); err != nil {
				return nil, err
			}
		} else {
			enc, _ := rlpEncodeStorageValue(value)
			if err := tr.Insert(key[:], enc); err != nil {
				return nil, err
			}
		}
		s.originStorage[key] = value
	}
	s.dirtyStorage = make(Storage)
	return tr, nil
}

// updateRoot recomputes data.Root from the storage trie without persisting
// anything (spec §4.3 "IntermediateRoot must not write to disk").
func (s *stateObject) updateRoot() error {
	tr, err := s.updateTrie()
	if err != nil {
		return err
	}
	if tr == nil {
		return nil
	}
	s.data.Root = tr.Hash()
	return nil
}

// commitStorage commits the storage trie to the backing node database and
// returns the new storage root.
func (s *stateObject) commitStorage() (common.Hash, error) {
	if s.trie == nil {
		return s.data.Root, nil
	}
	root, err := s.trie.Commit()
	if err != nil {
		return common.Hash{}, err
	}
	s.data.Root = root
	return root, nil
}

// commitCode flushes freshly set bytecode to the database.
func (s *stateObject) commitCode() {
	if !s.dirtyCode {
		return
	}
	s.db.db.WriteContractCode(s.addrHash, common.BytesToHash(s.data.CodeHash), s.code)
	s.dirtyCode = false
}

// rlpEncodeStorageValue trims leading zero bytes the way go-ethereum's
// storage trie does, so single-byte values don't waste 31 zero bytes, then
// RLP-encodes the trimmed string (spec §4.1 commit_storage: "inserts
// (keccak(k), rlp(v))") so the stored blob is the canonical RLP string
// every other Ethereum client writes, not a raw byte slice.
func rlpEncodeStorageValue(v common.Hash) ([]byte, error) {
	trimmed := common.TrimLeftZeroes(v[:])
	return rlp.EncodeToBytes(trimmed)
}
