// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package state

import (
	"bytes"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/rlp"
	"github.com/coreeth-io/coreeth/trie"
)

// StateDB is the state overlay (component D): a checkpointable cache of
// accounts sitting in front of the account trie, with a per-transaction
// substate (component E) tracking touched/self-destructed addresses,
// emitted logs and the gas refund counter.
type StateDB struct {
	db           Database
	trie         *trie.Trie
	originalRoot common.Hash

	stateObjects map[common.Address]*stateObject
	journal      *journal

	// substate: everything the current transaction has touched, merged
	// into the block-level accounting at the end of each transaction
	// (spec §4.4).
	touched   mapset.Set[common.Address]
	destructs mapset.Set[common.Address]
	logs      []*types.Log
	refund    uint64

	thash   common.Hash
	txIndex int

	err error
}

// New opens the overlay rooted at root, backed by db.
func New(root common.Hash, db Database) (*StateDB, error) {
	tr, err := db.OpenTrie(root)
	if err != nil {
		return nil, fmt.Errorf("state: open account trie %s: %w", root.Hex(), err)
	}
	return &StateDB{
		db:           db,
		trie:         tr,
		originalRoot: root,
		stateObjects: make(map[common.Address]*stateObject),
		journal:      newJournal(),
		touched:      mapset.NewThreadUnsafeSet[common.Address](),
		destructs:    mapset.NewThreadUnsafeSet[common.Address](),
	}, nil
}

func (s *StateDB) setError(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Error returns the first error encountered by an accessor, matching
// go-ethereum's "errors are sticky, checked once at the end" convention so
// hot accessor paths don't need individual error returns.
func (s *StateDB) Error() error { return s.err }

// SetTxContext sets the identity of the transaction about to be executed,
// used to tag logs with their originating transaction.
func (s *StateDB) SetTxContext(hash common.Hash, index int) {
	s.thash = hash
	s.txIndex = index
}

// ---- object cache ----

func (s *StateDB) getStateObject(addr common.Address) *stateObject {
	if obj, ok := s.stateObjects[addr]; ok {
		return obj
	}
	enc, err := s.trie.Get(addr[:])
	if err != nil {
		s.setError(fmt.Errorf("state: read account %s: %w", addr.Hex(), err))
		return nil
	}
	if len(enc) == 0 {
		return nil
	}
	var acct types.StateAccount
	if err := decodeAccount(enc, &acct); err != nil {
		s.setError(fmt.Errorf("state: decode account %s: %w", addr.Hex(), err))
		return nil
	}
	obj := newObject(s, addr, &acct)
	s.stateObjects[addr] = obj
	return obj
}

// noteMutation must be called before the first field mutation of addr
// within the current checkpoint scope; it both records the substate touch
// and captures the checkpoint pre-image.
func (s *StateDB) noteMutation(addr common.Address) {
	s.touched.Add(addr)
	s.journal.noteForRevert(addr, s.stateObjects[addr], s)
}

func (s *StateDB) getOrNewStateObject(addr common.Address) *stateObject {
	obj := s.getStateObject(addr)
	if obj != nil {
		return obj
	}
	return s.createObject(addr)
}

// createObject installs a fresh, empty account at addr, overwriting
// whatever (if anything) was cached there.
func (s *StateDB) createObject(addr common.Address) *stateObject {
	s.journal.noteForRevert(addr, s.stateObjects[addr], s)
	obj := newObject(s, addr, nil)
	obj.newContract = true
	s.stateObjects[addr] = obj
	s.touched.Add(addr)
	return obj
}

// CreateAccount is called by CREATE/CREATE2 (component F) to materialize
// the new contract's account before its init code runs. Per EIP-684, the
// caller is responsible for rejecting creation into an address that
// already has code or a non-zero nonce before calling this.
func (s *StateDB) CreateAccount(addr common.Address) {
	prev := s.getStateObject(addr)
	obj := s.createObject(addr)
	if prev != nil {
		// A balance can already exist at this address (e.g. pre-funded
		// before deployment); the new account keeps it.
		obj.SetBalance(prev.Balance())
	}
}

// ---- accessors ----

func (s *StateDB) Exist(addr common.Address) bool {
	return s.getStateObject(addr) != nil
}

// Empty reports whether addr is absent or satisfies EIP-161 emptiness.
func (s *StateDB) Empty(addr common.Address) bool {
	obj := s.getStateObject(addr)
	return obj == nil || obj.empty()
}

func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.Balance()
	}
	return new(uint256.Int)
}

func (s *StateDB) GetNonce(addr common.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.Nonce()
	}
	return 0
}

func (s *StateDB) GetCode(addr common.Address) []byte {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.Code()
	}
	return nil
}

func (s *StateDB) GetCodeSize(addr common.Address) int {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.CodeSize()
	}
	return 0
}

func (s *StateDB) GetCodeHash(addr common.Address) common.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return common.BytesToHash(obj.CodeHash())
	}
	return common.Hash{}
}

func (s *StateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.GetState(key)
	}
	return common.Hash{}
}

func (s *StateDB) GetCommittedState(addr common.Address, key common.Hash) common.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.GetCommittedState(key)
	}
	return common.Hash{}
}

// ---- mutators ----

// AddBalance always materializes addr, even for a zero-value add: it is
// the ForceCreate case of cleanup_mode (spec §4.3). Callers that must honor
// EIP-158's other two policies use AddBalanceCleanup instead.
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		s.noteMutation(addr) // still a touch: EIP-161 dust-cleanup relevance
		s.getOrNewStateObject(addr)
		return
	}
	s.noteMutation(addr)
	s.getOrNewStateObject(addr).AddBalance(amount)
}

// CleanupMode controls whether a zero-value AddBalance materializes an
// account, the policy spec §4.3 calls cleanup_mode (EIP-158).
type CleanupMode int

const (
	// ForceCreate always creates the account, even for a zero-value add;
	// plain AddBalance behaves this way unconditionally.
	ForceCreate CleanupMode = iota
	// NoEmpty makes a zero-value add a true no-op: no touch, no create.
	NoEmpty
	// TrackTouched makes a zero-value add a no-op against the overlay
	// itself, but inserts addr into touched iff addr currently exists;
	// kill_garbage later sweeps anything left empty in that set.
	TrackTouched
)

// AddBalanceCleanup applies amount under the given cleanup_mode (spec §4.3
// "Empty-account rules"), the EIP-158 policy distinguishing a value-bearing
// CALL (which must always materialize its recipient) from a zero-value one
// (which must not conjure an account that didn't already exist).
func (s *StateDB) AddBalanceCleanup(addr common.Address, amount *uint256.Int, mode CleanupMode, touched mapset.Set[common.Address]) {
	if !amount.IsZero() {
		s.AddBalance(addr, amount)
		return
	}
	switch mode {
	case NoEmpty:
		return
	case TrackTouched:
		if touched != nil && s.Exist(addr) {
			touched.Add(addr)
		}
	default:
		s.AddBalance(addr, amount)
	}
}

func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	s.noteMutation(addr)
	s.getOrNewStateObject(addr).SubBalance(amount)
}

func (s *StateDB) SetBalance(addr common.Address, amount *uint256.Int) {
	s.noteMutation(addr)
	s.getOrNewStateObject(addr).SetBalance(amount)
}

func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	s.noteMutation(addr)
	s.getOrNewStateObject(addr).SetNonce(nonce)
}

func (s *StateDB) SetCode(addr common.Address, code []byte) {
	s.noteMutation(addr)
	codeHash := types.EmptyCodeHash
	if len(code) > 0 {
		codeHash = codeHashOf(code)
	}
	s.getOrNewStateObject(addr).SetCode(codeHash, code)
}

func (s *StateDB) SetState(addr common.Address, key, value common.Hash) {
	s.noteMutation(addr)
	s.getOrNewStateObject(addr).SetState(key, value)
}

// SelfDestruct marks addr as self-destructed (spec §4.4): it remains fully
// readable for the rest of the current transaction and is only actually
// removed from the overlay once the substate is merged (Finalise).
func (s *StateDB) SelfDestruct(addr common.Address) *uint256.Int {
	obj := s.getStateObject(addr)
	if obj == nil {
		return new(uint256.Int)
	}
	s.noteMutation(addr)
	balance := new(uint256.Int).Set(obj.Balance())
	s.destructs.Add(addr)
	obj.selfDestructed = true
	obj.SetBalance(new(uint256.Int))
	return balance
}

func (s *StateDB) HasSelfDestructed(addr common.Address) bool {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.selfDestructed
	}
	return false
}

// ---- refund / logs (substate, component E) ----

func (s *StateDB) AddRefund(gas uint64) { s.refund += gas }

func (s *StateDB) SubRefund(gas uint64) {
	if gas > s.refund {
		panic(fmt.Sprintf("state: refund counter underflow: %d < %d", s.refund, gas))
	}
	s.refund -= gas
}

func (s *StateDB) GetRefund() uint64 { return s.refund }

func (s *StateDB) AddLog(log *types.Log) {
	log.TxHash = s.thash
	log.TxIndex = uint(s.txIndex)
	log.Index = uint(len(s.logs))
	s.logs = append(s.logs, log)
}

func (s *StateDB) Logs() []*types.Log { return s.logs }

// ---- checkpoint stack (spec §4.3) ----

// Checkpoint opens a new recoverable checkpoint and returns its id, which
// CheckpointStorageAt uses to recover a storage slot's value as of exactly
// this point (spec §4.3 "checkpoint_storage_at").
func (s *StateDB) Checkpoint() int {
	s.journal.push()
	return s.journal.depth()
}

// DiscardCheckpoint merges the most recent checkpoint into its parent,
// called when a call frame completes successfully and its changes should
// become part of the enclosing scope.
func (s *StateDB) DiscardCheckpoint() { s.journal.discard() }

// RevertToCheckpoint undoes every change recorded since the most recent
// checkpoint, called when a call frame reverts.
func (s *StateDB) RevertToCheckpoint() { s.journal.revert(s) }

// CheckpointDepth reports how many checkpoints are currently open, mostly
// useful for assertions in tests and the executive's own bookkeeping.
func (s *StateDB) CheckpointDepth() int { return s.journal.depth() }

// CheckpointStorageAt returns the value addr's storage slot key had at the
// exact moment checkpoint id (as returned by Checkpoint) was taken (spec
// §4.3: the EIP-1283/2200 gas model's "original value" lookup). It is the
// earliest pre-mutation snapshot recorded for addr among checkpoints opened
// at or after id, which captures the state right before addr's first
// mutation following that checkpoint; if addr was never touched since, its
// current live value is exactly the value at checkpoint time.
func (s *StateDB) CheckpointStorageAt(id int, addr common.Address, key common.Hash) common.Hash {
	if snap, ok := s.journal.snapshotSince(id, addr); ok {
		if !snap.exists {
			return common.Hash{}
		}
		return snap.object.GetState(key)
	}
	return s.GetState(addr, key)
}

// ---- substate merge / finalisation ----

// Finalise merges the current transaction's substate into the overlay:
// self-destructed accounts are deleted, then kill_garbage sweeps the
// touched set (post-EIP-161, when deleteEmptyObjects is set). Suicided
// accounts are deleted before the EIP-161 sweep runs, so a
// touched-but-not-suicided empty account and a suicided account are both
// gone by the time IntermediateRoot walks the trie (the Open Question
// decision recorded in DESIGN.md).
func (s *StateDB) Finalise(deleteEmptyObjects bool) {
	for _, addr := range s.destructs.ToSlice() {
		delete(s.stateObjects, addr)
		if err := s.trie.Delete(addr[:]); err != nil {
			s.setError(fmt.Errorf("state: delete self-destructed account %s: %w", addr.Hex(), err))
		}
	}
	s.destructs.Clear()

	s.KillGarbage(s.touched, deleteEmptyObjects, nil, true)
	s.touched.Clear()
}

// KillGarbage implements EIP-158/161 dust-account clearing (spec §4.3
// kill_garbage). Every address in touched is deleted if it is empty (when
// removeEmptyTouched is set) or, when minBalance is non-nil, if its balance
// is below both minBalance and its balance when first loaded into the
// overlay (the dust heuristic); killContracts=false exempts any address
// carrying code from either check.
func (s *StateDB) KillGarbage(touched mapset.Set[common.Address], removeEmptyTouched bool, minBalance *uint256.Int, killContracts bool) {
	for _, addr := range touched.ToSlice() {
		obj, ok := s.stateObjects[addr]
		if !ok {
			continue
		}
		if !killContracts && !bytes.Equal(obj.CodeHash(), types.EmptyCodeHash.Bytes()) {
			continue
		}

		dust := minBalance != nil && obj.Balance().Lt(minBalance) && obj.Balance().Lt(obj.originBalance)
		if !(removeEmptyTouched && obj.empty()) && !dust {
			continue
		}

		delete(s.stateObjects, addr)
		if err := s.trie.Delete(addr[:]); err != nil {
			s.setError(fmt.Errorf("state: kill garbage account %s: %w", addr.Hex(), err))
		}
	}
}

// IntermediateRoot finalises the substate and returns the account trie
// root without writing anything to the backing database (spec §4.3: used
// between transactions within a block, before the block is committed).
func (s *StateDB) IntermediateRoot(deleteEmptyObjects bool) common.Hash {
	s.Finalise(deleteEmptyObjects)

	addrs := make([]common.Address, 0, len(s.stateObjects))
	for addr := range s.stateObjects {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Hex() < addrs[j].Hex() })

	for _, addr := range addrs {
		obj := s.stateObjects[addr]
		if err := obj.updateRoot(); err != nil {
			s.setError(fmt.Errorf("state: update storage root %s: %w", addr.Hex(), err))
			continue
		}
		enc, err := encodeAccount(&obj.data)
		if err != nil {
			s.setError(fmt.Errorf("state: encode account %s: %w", addr.Hex(), err))
			continue
		}
		if err := s.trie.Insert(addr[:], enc); err != nil {
			s.setError(fmt.Errorf("state: write account %s: %w", addr.Hex(), err))
		}
	}
	return s.trie.Hash()
}

// Commit finalises the substate, writes every dirty storage trie, account
// trie entry and contract code to the backing database, and returns the
// new world-state root. The overlay is left usable for the next block,
// rooted at the returned hash.
func (s *StateDB) Commit(deleteEmptyObjects bool) (common.Hash, error) {
	root := s.IntermediateRoot(deleteEmptyObjects)
	if s.err != nil {
		return common.Hash{}, s.err
	}
	for _, obj := range s.stateObjects {
		obj.commitCode()
		if _, err := obj.commitStorage(); err != nil {
			return common.Hash{}, fmt.Errorf("state: commit storage for %s: %w", obj.address.Hex(), err)
		}
	}
	if _, err := s.trie.Commit(); err != nil {
		return common.Hash{}, fmt.Errorf("state: commit account trie: %w", err)
	}
	if err := s.db.TrieDB().Commit(); err != nil {
		return common.Hash{}, fmt.Errorf("state: flush trie database: %w", err)
	}
	s.originalRoot = root
	return root, nil
}

// ---- light-client proofs (spec §4.3 "prove_account"/"prove_storage", §8
// "Proof soundness") ----

// ProveAccount returns a self-contained Merkle proof of addr against the
// account trie's current root, together with addr's RLP-encoded account
// record (nil if no such account exists). A verifier recovers the same
// bytes (or absence) via trie.VerifyProof(root, addrKey, proof).
func (s *StateDB) ProveAccount(addr common.Address) (proof map[common.Hash][]byte, account []byte, err error) {
	s.trie.StartProof()
	enc, err := s.trie.Get(addr[:])
	proof = s.trie.ExtractProof()
	if err != nil {
		return nil, nil, fmt.Errorf("state: prove account %s: %w", addr.Hex(), err)
	}
	return proof, enc, nil
}

// ProveStorage returns a self-contained proof of key within addr's storage
// trie, merged with the account proof needed to recover that trie's root
// from the world-state root, plus key's current value. A verifier runs
// trie.VerifyProof(stateRoot, addrKey, proof) to recover addr's account,
// reads its Root field, then runs trie.VerifyProof(account.Root, storageKey,
// proof) to recover the same value (spec §8 "Proof soundness": tampering
// with any byte of the proof must yield ErrBadProof).
func (s *StateDB) ProveStorage(addr common.Address, key common.Hash) (proof map[common.Hash][]byte, value common.Hash, err error) {
	accountProof, enc, err := s.ProveAccount(addr)
	if err != nil {
		return nil, common.Hash{}, err
	}
	if len(enc) == 0 {
		return accountProof, common.Hash{}, nil
	}
	var acct types.StateAccount
	if err := decodeAccount(enc, &acct); err != nil {
		return nil, common.Hash{}, fmt.Errorf("state: prove storage %s: decode account: %w", addr.Hex(), err)
	}

	storageTrie, err := s.db.OpenStorageTrie(addressHash(addr), acct.Root)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("state: prove storage %s: open storage trie: %w", addr.Hex(), err)
	}
	storageTrie.StartProof()
	storageEnc, err := storageTrie.Get(key[:])
	storageProof := storageTrie.ExtractProof()
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("state: prove storage %s/%s: %w", addr.Hex(), key.Hex(), err)
	}

	proof = accountProof
	for hash, blob := range storageProof {
		proof[hash] = blob
	}

	if len(storageEnc) > 0 {
		content, _, err := rlp.SplitString(storageEnc)
		if err != nil {
			return nil, common.Hash{}, fmt.Errorf("state: prove storage %s/%s: decode value: %w", addr.Hex(), key.Hex(), err)
		}
		value = common.BytesToHash(content)
	}
	return proof, value, nil
}

// Copy returns an independent StateDB sharing the same backing database but
// with its own object cache and checkpoint stack, used by the pending-block
// builder (component I) to speculate without disturbing the canonical
// overlay.
func (s *StateDB) Copy() *StateDB {
	cpy := &StateDB{
		db:           s.db,
		trie:         s.db.CopyTrie(s.trie),
		originalRoot: s.originalRoot,
		stateObjects: make(map[common.Address]*stateObject, len(s.stateObjects)),
		journal:      newJournal(),
		touched:      mapset.NewThreadUnsafeSet[common.Address](),
		destructs:    mapset.NewThreadUnsafeSet[common.Address](),
	}
	for addr, obj := range s.stateObjects {
		cpy.stateObjects[addr] = obj.deepCopy(cpy)
	}
	return cpy
}
