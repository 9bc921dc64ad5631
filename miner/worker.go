// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package miner builds speculative blocks the node would seal next
// (component I, spec §4.8): given the current chain head, a priority queue
// of verified transactions, and authoring parameters, it packs transactions
// up to the block gas limit and exposes the result as a small work package.
package miner

import (
	"errors"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/common/prque"
	"github.com/coreeth-io/coreeth/consensus"
	"github.com/coreeth-io/coreeth/core"
	"github.com/coreeth-io/coreeth/core/state"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/core/vm"
	"github.com/coreeth-io/coreeth/event"
	"github.com/coreeth-io/coreeth/log"
	"github.com/coreeth-io/coreeth/params"
)

// pendingResult caches the most recently built speculative block (spec
// §4.8 "cache in a small work-queue keyed by bare-hash").
type pendingResult struct {
	block    *types.Block
	state    *state.StateDB
	receipts types.Receipts
}

// Work is the small package spec §4.8 exposes to whatever seals the next
// block: enough to identify and order the candidate without handing over
// the full state.
type Work struct {
	Hash       common.Hash
	Number     uint64
	Timestamp  uint64
	Difficulty *big.Int
}

// Miner builds a pending block on top of the current chain head from a
// priority queue of transactions ordered by gas price, rebuilding it
// whenever new transactions arrive or the head changes (spec §4.8).
type Miner struct {
	chain   *core.BlockChain
	engine  consensus.Engine
	factory vm.Factory
	config  Config

	queueMu   sync.Mutex
	queue     *prque.Prque
	queued    map[common.Hash]struct{}
	penalized map[common.Address]struct{}

	mu      sync.Mutex
	pending *pendingResult

	newHeadCh  chan *types.Block
	newHeadSub event.Subscription
	exitCh     chan struct{}

	log log.Logger
}

// New builds a Miner bound to chain and immediately opens a pending block
// on the current head; it keeps rebuilding on every subsequent head change
// until Close is called.
func New(chain *core.BlockChain, factory vm.Factory, config Config) *Miner {
	m := &Miner{
		chain:     chain,
		engine:    chain.Engine(),
		factory:   factory,
		config:    config,
		queue:     prque.New(),
		queued:    make(map[common.Hash]struct{}),
		penalized: make(map[common.Address]struct{}),
		newHeadCh: make(chan *types.Block, 16),
		exitCh:    make(chan struct{}),
		log:       log.New("pkg", "miner"),
	}
	m.newHeadSub = chain.SubscribeNewHead(m.newHeadCh)
	go m.loop()
	m.rebuild()
	return m
}

// Close stops the refresh loop and unsubscribes from new-head notifications.
func (m *Miner) Close() {
	close(m.exitCh)
	m.newHeadSub.Unsubscribe()
}

func (m *Miner) loop() {
	for {
		select {
		case <-m.newHeadCh:
			m.rebuild()
		case <-m.exitCh:
			return
		}
	}
}

// SubmitTransaction adds tx to the builder's priority queue, keyed by gas
// price (spec §4.8 "a priority queue of verified transactions"), and
// rebuilds the pending block to include it if it fits.
func (m *Miner) SubmitTransaction(tx *types.Transaction) error {
	hash := tx.Hash()

	m.queueMu.Lock()
	if _, ok := m.queued[hash]; ok {
		m.queueMu.Unlock()
		return ErrAlreadyImported
	}
	m.queued[hash] = struct{}{}
	m.queue.Push(tx, m.priorityFor(tx))
	m.queueMu.Unlock()

	m.rebuild()
	return nil
}

// priorityFor orders the queue by gas price, depriorizing known-slow
// senders so well-behaved transactions are tried first in future rounds
// (spec §4.8 "penalize senders ... simple senders penalization").
func (m *Miner) priorityFor(tx *types.Transaction) int64 {
	p := gasPricePriority(tx.GasPrice)
	if sender, ok := tx.CachedSender(); ok {
		if _, penalized := m.penalized[sender]; penalized {
			p /= 2
		}
	}
	return p
}

func gasPricePriority(price *uint256.Int) int64 {
	if price == nil || !price.IsUint64() {
		return math.MaxInt64
	}
	v := price.Uint64()
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// rebuild opens a fresh block on the current head and packs it with
// transactions popped from the queue in priority order, the core algorithm
// of spec §4.8, grounded on
// original_source/ethcore/src/miner/miner.rs's prepare_block.
func (m *Miner) rebuild() {
	current := m.chain.CurrentBlock()
	if current == nil {
		return
	}
	parent := current.Header()

	header := &types.Header{
		ParentHash: current.Hash(),
		Author:     m.config.Author,
		Number:     parent.Number + 1,
		GasLimit:   m.config.gasLimit(parent.GasLimit),
		Timestamp:  nextTimestamp(parent.Timestamp),
		ExtraData:  m.config.ExtraData,
	}
	if _, err := m.engine.GenerateSeal(header, parent); err != nil {
		m.log.Warn("failed to open pending block", "number", header.Number, "err", err)
		return
	}

	statedb, err := m.chain.StateAt(parent.StateRoot)
	if err != nil {
		m.log.Warn("failed to open pending state", "number", header.Number, "err", err)
		return
	}

	schedule := m.engine.Schedule(header.Number)
	blockCtx := vm.BlockContext{
		Coinbase:    header.Author,
		GasLimit:    header.GasLimit,
		BlockNumber: header.Number,
		Time:        header.Timestamp,
		Difficulty:  header.Difficulty,
		GetHash:     core.GetHashFn(header, m.ancestorHash),
	}
	ex := vm.NewExecutive(statedb, blockCtx, vm.TxContext{}, schedule, vm.Config{Factory: m.factory})

	m.queueMu.Lock()
	var popped []*types.Transaction
	for !m.queue.Empty() {
		v, _ := m.queue.Pop()
		popped = append(popped, v.(*types.Transaction))
	}
	m.queueMu.Unlock()

	var (
		txs               types.Transactions
		receipts          types.Receipts
		cumulativeGasUsed uint64
		skipped           int
		requeue           []*types.Transaction
		drop              []common.Hash
		penalize          = make(map[common.Address]struct{})
	)

packLoop:
	for i, tx := range popped {
		if tx.Gas > header.GasLimit {
			// Can never fit even in an empty block of this size; keep it
			// queued in case a future block raises the gas limit.
			requeue = append(requeue, tx)
			continue
		}

		statedb.SetTxContext(tx.Hash(), len(txs))

		start := time.Now()
		executed := ex.Transact(tx, cumulativeGasUsed)
		elapsed := time.Since(start)

		if sender, ok := tx.CachedSender(); ok {
			if m.config.SlowTxThreshold > 0 && elapsed > m.config.SlowTxThreshold {
				penalize[sender] = struct{}{}
			} else {
				delete(m.penalized, sender)
			}
		}

		if executed.Exception == nil {
			cumulativeGasUsed = executed.CumulativeGasUsed
			receipt := types.NewReceipt(nil, false, cumulativeGasUsed)
			receipt.Logs = executed.Logs
			receipt.Bloom = types.CreateBloom(receipt.Logs)
			receipt.GasUsed = executed.GasUsed
			txs = append(txs, tx)
			receipts = append(receipts, receipt)
			continue
		}

		switch classify(executed.Exception) {
		case outcomeGasLimitSkip:
			skipped++
			requeue = append(requeue, tx)
			if skipped > params.MaxSkippedTransactions {
				m.log.Debug("reached skipped transaction threshold, assuming block full", "number", header.Number)
				requeue = append(requeue, popped[i+1:]...)
				break packLoop
			}
		case outcomeRetryLater, outcomeNotAllowed:
			requeue = append(requeue, tx)
		case outcomeInvalid:
			drop = append(drop, tx.Hash())
		}
	}

	m.queueMu.Lock()
	for _, hash := range drop {
		delete(m.queued, hash)
	}
	for _, tx := range requeue {
		m.queue.Push(tx, m.priorityFor(tx))
	}
	for addr := range penalize {
		m.penalized[addr] = struct{}{}
	}
	m.queueMu.Unlock()

	m.engine.OnCloseBlock(header, statedb)

	header.GasUsed = cumulativeGasUsed
	header.TransactionsRoot = types.DeriveSha(txs)
	header.ReceiptsRoot = types.DeriveSha(receipts)
	header.LogBloom = receipts.Bloom()
	header.StateRoot = statedb.IntermediateRoot(schedule.EIP158)

	block := types.NewBlock(header, &types.Body{Transactions: txs})

	m.mu.Lock()
	m.pending = &pendingResult{block: block, state: statedb, receipts: receipts}
	m.mu.Unlock()

	m.log.Debug("built pending block", "number", header.Number, "txs", len(txs), "skipped", skipped)
}

// ancestorHash resolves BLOCKHASH(n) for the pending block by consulting
// the already-committed chain; the pending block itself is never a valid
// BLOCKHASH argument since it hasn't been assigned a final hash yet.
func (m *Miner) ancestorHash(number uint64) (common.Hash, bool) {
	h := m.chain.GetHeaderByNumber(number)
	if h == nil {
		return common.Hash{}, false
	}
	return h.Hash(), true
}

// nextTimestamp picks a block timestamp strictly after parent's, falling
// back to parent+1 when the wall clock hasn't advanced, matching
// go-ethereum's miner convention for the same edge case.
func nextTimestamp(parent uint64) uint64 {
	now := uint64(time.Now().Unix())
	if now <= parent {
		return parent + 1
	}
	return now
}

// classify maps an ExecutionError onto the packing-loop dispatch of spec
// §4.8, grounded on miner.rs's match over Error::Execution variants.
func classify(err error) execOutcome {
	var ee *vm.ExecutionError
	if errors.As(err, &ee) {
		switch ee.Kind {
		case vm.ErrKindBlockGasLimitReached:
			return outcomeGasLimitSkip
		case vm.ErrKindInvalidNonce:
			return outcomeRetryLater
		}
	}
	return outcomeInvalid
}

// Pending returns the most recently built speculative block along with the
// state overlay and receipts it produced, or nils if none has been built
// yet.
func (m *Miner) Pending() (*types.Block, *state.StateDB, types.Receipts) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return nil, nil, nil
	}
	return m.pending.block, m.pending.state, m.pending.receipts
}

// PendingBlock returns just the speculative block, or nil if none has been
// built yet.
func (m *Miner) PendingBlock() *types.Block {
	block, _, _ := m.Pending()
	return block
}

// Work returns the current work package (spec §4.8 "expose (hash, number,
// timestamp, difficulty) as the current work package").
func (m *Miner) Work() (Work, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Work{}, false
	}
	h := m.pending.block.Header()
	difficulty := new(big.Int)
	if h.Difficulty != nil {
		difficulty.Set(h.Difficulty)
	}
	return Work{
		Hash:       m.pending.block.Hash(),
		Number:     h.Number,
		Timestamp:  h.Timestamp,
		Difficulty: difficulty,
	}, true
}
