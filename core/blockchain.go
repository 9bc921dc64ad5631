// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package core implements the block-chain index and import pipeline
// (components G and H): canonical/branch bookkeeping, the tree-route
// algorithm used for reorgs, and the verify->enact->commit->reorg->prune
// sequence that turns a verified block into committed state and indices.
package core

import (
	"fmt"
	"math/big"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/consensus"
	"github.com/coreeth-io/coreeth/core/bloombits"
	"github.com/coreeth-io/coreeth/core/rawdb"
	"github.com/coreeth-io/coreeth/core/state"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/core/vm"
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/event"
	"github.com/coreeth-io/coreeth/log"
	"github.com/coreeth-io/coreeth/metrics"
	"github.com/coreeth-io/coreeth/params"
)

var (
	blocksImportedCounter = metrics.NewRegisteredCounter("chain/blocks/imported", nil)
	blocksRejectedCounter = metrics.NewRegisteredCounter("chain/blocks/rejected", nil)
	headBlockGauge        = metrics.NewRegisteredGauge("chain/head/number", nil)
)

// badBlockCacheSize bounds the bad-block quarantine (spec §4.7 step 7 "the
// block is quarantined in a bounded bad-block LRU").
const badBlockCacheSize = 64

// BlockChain is the chain index plus import pipeline bound to a single KV
// store (spec §4.6/§4.7). A single importLock serializes commits; the lock
// ordering contract of spec §5 collapses here to one mutex since this
// implementation keeps no separate pending_* staging maps — insertion
// writes the block, its receipts, total difficulty and details in one
// batch, and the canonical-hash and head updates in a second batch that is
// written only after the reorg route has been applied.
type BlockChain struct {
	db         ethdb.Database
	stateCache state.Database
	config     *params.ChainConfig
	engine     consensus.Engine
	processor  *StateProcessor

	importLock sync.Mutex

	mu           sync.RWMutex
	currentBlock *types.Block
	currentTd    *big.Int

	badBlocks   *lru.Cache
	newHeadFeed event.FeedOf[*types.Block]
	log         log.Logger
}

// NewBlockChain opens (or initializes, if empty) a chain index over db,
// rooted at genesis if the database has no existing head.
func NewBlockChain(db ethdb.Database, config *params.ChainConfig, engine consensus.Engine, factory vm.Factory, genesis *types.Block) (*BlockChain, error) {
	bad, err := lru.New(badBlockCacheSize)
	if err != nil {
		return nil, err
	}
	bc := &BlockChain{
		db:         db,
		stateCache: state.NewDatabase(db),
		config:     config,
		engine:     engine,
		processor:  NewStateProcessor(config, engine, factory),
		badBlocks:  bad,
		log:        log.New("pkg", "core"),
	}

	head := rawdb.ReadHeadBlockHash(db)
	if head == (common.Hash{}) {
		if err := bc.writeGenesis(genesis); err != nil {
			return nil, err
		}
		bc.currentBlock = genesis
		bc.currentTd = new(big.Int).Set(genesis.Difficulty())
		bc.log.Info("initialized chain with genesis", "hash", genesis.Hash(), "number", genesis.NumberU64())
		headBlockGauge.Update(int64(genesis.NumberU64()))
		return bc, nil
	}

	number := rawdb.ReadHeaderNumber(db, head)
	if number == nil {
		return nil, fmt.Errorf("core: head %s has no number index", head.Hex())
	}
	block := rawdb.ReadBlock(db, head, *number)
	if block == nil {
		return nil, fmt.Errorf("core: head block %s missing from database", head.Hex())
	}
	td := rawdb.ReadTd(db, head, *number)
	if td == nil {
		return nil, fmt.Errorf("core: head block %s missing total difficulty", head.Hex())
	}
	bc.currentBlock, bc.currentTd = block, td
	return bc, nil
}

func (bc *BlockChain) writeGenesis(genesis *types.Block) error {
	batch := bc.db.NewBatch()
	rawdb.WriteBlock(batch, genesis)
	rawdb.WriteCanonicalHash(batch, genesis.Hash(), genesis.NumberU64())
	rawdb.WriteTd(batch, genesis.Hash(), genesis.NumberU64(), genesis.Difficulty())
	rawdb.WriteHeadBlockHash(batch, genesis.Hash())
	rawdb.WriteHeadHeaderHash(batch, genesis.Hash())
	rawdb.WriteFirstBlockNumber(batch, genesis.NumberU64())
	rawdb.WriteBlockDetails(batch, genesis.Hash(), &types.BlockDetails{
		Number:          genesis.NumberU64(),
		TotalDifficulty: genesis.Difficulty(),
	})
	return batch.Write()
}

// CurrentBlock returns the canonical head.
func (bc *BlockChain) CurrentBlock() *types.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.currentBlock
}

// GetTd returns the canonical head's total difficulty.
func (bc *BlockChain) GetTd() *big.Int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return new(big.Int).Set(bc.currentTd)
}

// GetHeader looks up a header by hash and number.
func (bc *BlockChain) GetHeader(hash common.Hash, number uint64) *types.Header {
	return rawdb.ReadHeader(bc.db, hash, number)
}

// GetHeaderByNumber resolves the canonical header at number.
func (bc *BlockChain) GetHeaderByNumber(number uint64) *types.Header {
	hash := rawdb.ReadCanonicalHash(bc.db, number)
	if hash == (common.Hash{}) {
		return nil
	}
	return rawdb.ReadHeader(bc.db, hash, number)
}

// GetBlock looks up a full block by hash and number.
func (bc *BlockChain) GetBlock(hash common.Hash, number uint64) *types.Block {
	return rawdb.ReadBlock(bc.db, hash, number)
}

// HasBlock reports whether hash/number is present in the index.
func (bc *BlockChain) HasBlock(hash common.Hash, number uint64) bool {
	return rawdb.ReadHeader(bc.db, hash, number) != nil
}

// GetTdByHash returns the total difficulty recorded for hash, or nil.
func (bc *BlockChain) GetTdByHash(hash common.Hash, number uint64) *big.Int {
	return rawdb.ReadTd(bc.db, hash, number)
}

// StateAt opens the account-state overlay rooted at root, sharing this
// chain's global clean-cache (spec §4.3 "global shared cache"). The pending
// block builder uses this to start enacting transactions on top of the
// current head without holding the chain's own import lock.
func (bc *BlockChain) StateAt(root common.Hash) (*state.StateDB, error) {
	return state.New(root, bc.stateCache)
}

// Engine returns the consensus engine this chain verifies against, the same
// engine a pending-block builder must consult for its gas schedule and
// block-reward hook.
func (bc *BlockChain) Engine() consensus.Engine { return bc.engine }

// Config returns the chain's fork configuration.
func (bc *BlockChain) Config() *params.ChainConfig { return bc.config }

// SubscribeNewHead registers ch to receive the new canonical head every
// time writeBlock moves it, the signal a pending-block builder uses to
// discard a stale work package and start packing a fresh one (spec §4.8
// "refresh on new best").
func (bc *BlockChain) SubscribeNewHead(ch chan<- *types.Block) event.Subscription {
	return bc.newHeadFeed.Subscribe(ch)
}

// TreeRoute computes the path between from and to through their common
// ancestor (spec §4.6 "Tree route algorithm"): walk the deeper side up to
// equal height, then walk both in lockstep until they meet.
func (bc *BlockChain) TreeRoute(from, to common.Hash) (*types.TreeRoute, error) {
	fromDetails := rawdb.ReadBlockDetails(bc.db, from)
	toDetails := rawdb.ReadBlockDetails(bc.db, to)
	if fromDetails == nil || toDetails == nil {
		return nil, fmt.Errorf("core: tree route: unknown endpoint")
	}

	var fromBranch, toBranch []common.Hash
	fromHash, fromNum := from, fromDetails.Number
	toHash, toNum := to, toDetails.Number

	for fromNum > toNum {
		fromBranch = append(fromBranch, fromHash)
		d := rawdb.ReadBlockDetails(bc.db, fromHash)
		if d == nil {
			return nil, fmt.Errorf("core: tree route: missing parent (pruned history)")
		}
		fromHash, fromNum = d.Parent, d.Number-1
	}
	for toNum > fromNum {
		toBranch = append(toBranch, toHash)
		d := rawdb.ReadBlockDetails(bc.db, toHash)
		if d == nil {
			return nil, fmt.Errorf("core: tree route: missing parent (pruned history)")
		}
		toHash, toNum = d.Parent, d.Number-1
	}

	for fromHash != toHash {
		fromBranch = append(fromBranch, fromHash)
		toBranch = append(toBranch, toHash)
		fd := rawdb.ReadBlockDetails(bc.db, fromHash)
		td := rawdb.ReadBlockDetails(bc.db, toHash)
		if fd == nil || td == nil {
			return nil, fmt.Errorf("core: tree route: missing parent (pruned history)")
		}
		fromHash = fd.Parent
		toHash = td.Parent
	}

	blocks := make([]common.Hash, 0, len(fromBranch)+len(toBranch))
	blocks = append(blocks, fromBranch...)
	for i := len(toBranch) - 1; i >= 0; i-- {
		blocks = append(blocks, toBranch[i])
	}
	return &types.TreeRoute{Blocks: blocks, Ancestor: fromHash, Index: len(fromBranch)}, nil
}

// InsertChain runs the import pipeline (spec §4.7) over blocks in order,
// returning a BlockInfo (spec §3 "the lightweight summary the chain index
// returns for a block once inserted") for every block successfully
// inserted before the first rejection.
func (bc *BlockChain) InsertChain(blocks []*types.Block) ([]*types.BlockInfo, error) {
	bc.importLock.Lock()
	defer bc.importLock.Unlock()

	infos := make([]*types.BlockInfo, 0, len(blocks))
	for _, block := range blocks {
		info, err := bc.insertBlock(block)
		if err != nil {
			bc.badBlocks.Add(block.Hash(), block)
			blocksRejectedCounter.Inc(1)
			bc.log.Warn("rejected block", "number", block.NumberU64(), "hash", block.Hash(), "err", err)
			return infos, err
		}
		blocksImportedCounter.Inc(1)
		infos = append(infos, info)
	}
	return infos, nil
}

func (bc *BlockChain) insertBlock(block *types.Block) (*types.BlockInfo, error) {
	header := block.Header()

	if _, bad := bc.badBlocks.Get(header.ParentHash); bad {
		return nil, newBlockErr(ErrKindUnknownParent, "parent %s is a known-bad block", header.ParentHash.Hex())
	}

	parentNumber := header.Number - 1
	parent := rawdb.ReadHeader(bc.db, header.ParentHash, parentNumber)
	if parent == nil {
		return nil, newBlockErr(ErrKindUnknownParent, "parent %s not found", header.ParentHash.Hex())
	}

	// Step 2: verify block family and external seal.
	if err := bc.engine.VerifyBlockBasic(header); err != nil {
		return nil, newBlockErr(ErrKindInvalidSeal, "%v", err)
	}
	if err := bc.engine.VerifyBlockFamily(header, parent); err != nil {
		return nil, newBlockErr(ErrKindDifficultyOutOfBounds, "%v", err)
	}
	if err := bc.engine.VerifyBlockExternal(header); err != nil {
		return nil, newBlockErr(ErrKindInvalidSeal, "%v", err)
	}

	// Step 3: reconstruct parent state.
	statedb, err := state.New(parent.StateRoot, bc.stateCache)
	if err != nil {
		return nil, newBlockErr(ErrKindInvalidStateRoot, "parent state %s unavailable: %v", parent.StateRoot.Hex(), err)
	}

	// Step 4: re-execute every transaction.
	receipts, gasUsed, err := bc.processor.Process(block, statedb)
	if err != nil {
		return nil, err
	}

	// Step 5: final verification against the header's declared values.
	if gasUsed != header.GasUsed {
		return nil, newBlockErr(ErrKindInvalidGasUsed, "have %d, want %d", gasUsed, header.GasUsed)
	}
	if err := receipts.DeriveFields(header.Hash(), header.Number, block.Transactions()); err != nil {
		return nil, newBlockErr(ErrKindInvalidReceiptsRoot, "%v", err)
	}
	if bloom := receipts.Bloom(); bloom != header.LogBloom {
		return nil, newBlockErr(ErrKindInvalidReceiptsRoot, "log bloom mismatch")
	}
	if err := bc.engine.VerifyBlockFinal(header, receipts); err != nil {
		return nil, newBlockErr(ErrKindInvalidReceiptsRoot, "%v", err)
	}
	root, err := statedb.Commit(bc.config.IsEIP158(header.Number))
	if err != nil {
		return nil, newBlockErr(ErrKindInvalidStateRoot, "commit failed: %v", err)
	}
	if root != header.StateRoot {
		return nil, newBlockErr(ErrKindInvalidStateRoot, "have %s, want %s", root.Hex(), header.StateRoot.Hex())
	}

	// Step 6: epoch-transition detection (spec §4.6 "Epoch transitions",
	// §4.7 step 6 "detect epoch-end signal"). A block that signals a
	// transition gets a pending record keyed by its own hash; once that
	// same block number is confirmed canonical (writeBlock, below) the
	// pending record is promoted to a confirmed one keyed by epoch number.
	if bc.engine.SignalsEpochEnd(header) {
		rawdb.WritePendingEpochTransition(bc.db, header.Hash(), &types.EpochTransition{
			BlockHash:   header.Hash(),
			BlockNumber: header.Number,
		})
	}

	// Step 7: write under the import lock (already held by InsertChain) —
	// block data, indices, and the reorg decision.
	location, err := bc.writeBlock(block, receipts)
	if err != nil {
		return nil, err
	}
	return &types.BlockInfo{Hash: block.Hash(), Number: block.NumberU64(), TotalDifficulty: location.totalDifficulty, Location: location.BlockLocation}, nil
}

// insertLocation bundles the BlockLocation spec §3 describes with the total
// difficulty insertBlock needs to fill in BlockInfo, without making
// BlockLocation itself carry a field no caller outside this package wants.
type insertLocation struct {
	types.BlockLocation
	totalDifficulty *big.Int
}

// writeBlock commits one verified, re-executed block: it always writes the
// block/receipts/bloom-index for later retrieval, and additionally moves
// the canonical head (reorging away a competing branch if necessary) when
// the engine's fork-choice prefers it (spec §4.6 "Insertion").
func (bc *BlockChain) writeBlock(block *types.Block, receipts types.Receipts) (insertLocation, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	header := block.Header()
	parentDetails := rawdb.ReadBlockDetails(bc.db, header.ParentHash)
	if parentDetails == nil {
		return insertLocation{}, newBlockErr(ErrKindUnknownParent, "parent details missing for %s", header.ParentHash.Hex())
	}
	td := new(big.Int).Add(parentDetails.TotalDifficulty, header.Difficulty)

	batch := bc.db.NewBatch()
	rawdb.WriteBlock(batch, block)
	rawdb.WriteReceipts(batch, block.Hash(), block.NumberU64(), receipts)
	rawdb.WriteTd(batch, block.Hash(), block.NumberU64(), td)
	rawdb.WriteBlockDetails(batch, block.Hash(), &types.BlockDetails{
		Number: block.NumberU64(), TotalDifficulty: td, Parent: header.ParentHash,
	})
	parentDetails.Children = append(parentDetails.Children, block.Hash())
	rawdb.WriteBlockDetails(batch, header.ParentHash, parentDetails)
	bloombits.AddBloom(bc.db, block.NumberU64(), header.LogBloom)

	// The block, its details and its parent's children list are flushed
	// before routing: routeFor and applyRoute read them back from bc.db.
	if err := batch.Write(); err != nil {
		return insertLocation{}, fmt.Errorf("core: flush batch: %w", err)
	}
	batch.Reset()

	choice := consensus.ForkChoiceOld
	if bc.currentBlock == nil {
		choice = consensus.ForkChoiceNew
	} else {
		choice = bc.engine.ForkChoice(header, bc.currentBlock.Header(), td, bc.currentTd)
	}

	loc := insertLocation{totalDifficulty: td}
	if choice != consensus.ForkChoiceNew {
		loc.Kind = types.LocationBranch
		if err := batch.Write(); err != nil {
			return insertLocation{}, fmt.Errorf("core: flush batch: %w", err)
		}
		return loc, nil
	}

	route, err := bc.routeFor(block.Hash())
	if err != nil {
		return insertLocation{}, fmt.Errorf("core: reorg route: %w", err)
	}
	if err := bc.applyRoute(batch, route); err != nil {
		return insertLocation{}, fmt.Errorf("core: reorg apply: %w", err)
	}
	rawdb.WriteTxLookupEntries(batch, block.Hash(), block.Transactions())
	rawdb.WriteHeadBlockHash(batch, block.Hash())
	rawdb.WriteHeadHeaderHash(batch, block.Hash())
	bc.resolveEpochTransitions(batch, route)

	if len(route.Retracted()) > 0 {
		loc.Kind = types.LocationBranchBecomingCanon
		loc.Ancestor = route.Ancestor
		loc.Enacted = route.Enacted()
		loc.Retracted = route.Retracted()
	} else {
		loc.Kind = types.LocationCanon
		loc.Enacted = route.Enacted()
	}

	if err := batch.Write(); err != nil {
		return insertLocation{}, fmt.Errorf("core: flush batch: %w", err)
	}

	reorg := bc.currentBlock != nil && bc.currentBlock.Hash() != header.ParentHash
	bc.currentBlock, bc.currentTd = block, td
	headBlockGauge.Update(int64(block.NumberU64()))
	if reorg {
		bc.log.Warn("chain reorg", "number", block.NumberU64(), "hash", block.Hash(), "parent", header.ParentHash)
	}
	bc.log.Debug("new head", "number", block.NumberU64(), "hash", block.Hash(), "td", td)
	bc.newHeadFeed.Send(block)
	return loc, nil
}

// routeFor computes the TreeRoute from the current head to newHead, or a
// trivial one-block route if there is no current head yet.
func (bc *BlockChain) routeFor(newHead common.Hash) (*types.TreeRoute, error) {
	if bc.currentBlock == nil {
		return &types.TreeRoute{Blocks: []common.Hash{newHead}, Ancestor: newHead, Index: 0}, nil
	}
	return bc.TreeRoute(bc.currentBlock.Hash(), newHead)
}

// applyRoute retracts route's old canonical blocks and enacts its new ones:
// transaction lookups are removed for retracted blocks and written for
// enacted ones, and the number->hash mapping is rewritten to match the new
// canonical chain (spec §4.6 "retracting old addresses and adding new
// ones on a reorg").
func (bc *BlockChain) applyRoute(batch ethdb.Batch, route *types.TreeRoute) error {
	for _, hash := range route.Retracted() {
		number := rawdb.ReadHeaderNumber(bc.db, hash)
		if number == nil {
			return fmt.Errorf("retracted block %s missing number index", hash.Hex())
		}
		if body := rawdb.ReadBody(bc.db, hash, *number); body != nil {
			rawdb.DeleteTxLookupEntries(batch, body.Transactions)
		}
		rawdb.DeleteCanonicalHash(batch, *number)
	}
	for _, hash := range route.Enacted() {
		number := rawdb.ReadHeaderNumber(bc.db, hash)
		if number == nil {
			return fmt.Errorf("enacted block %s missing number index", hash.Hex())
		}
		rawdb.WriteCanonicalHash(batch, hash, *number)
		if body := rawdb.ReadBody(bc.db, hash, *number); body != nil {
			rawdb.WriteTxLookupEntries(batch, hash, body.Transactions)
		}
	}
	return nil
}

// resolveEpochTransitions promotes the pending epoch-transition record of
// every newly enacted block the engine still confirms as a checkpoint to
// the confirmed, epoch-number-keyed column, and discards the pending
// record of every retracted block (spec §4.6 "Epoch transitions", GLOSSARY
// "canonical-chain iteration filters candidates to the one whose
// block_number -> block_hash mapping matches"). A retracted block's pending
// transition is simply dropped rather than re-checked against the engine:
// it lost its place on the canonical chain, so it can never be confirmed.
func (bc *BlockChain) resolveEpochTransitions(batch ethdb.Batch, route *types.TreeRoute) {
	for _, hash := range route.Retracted() {
		rawdb.DeletePendingEpochTransition(batch, hash)
	}
	for _, hash := range route.Enacted() {
		number := rawdb.ReadHeaderNumber(bc.db, hash)
		if number == nil {
			continue
		}
		header := rawdb.ReadHeader(bc.db, hash, *number)
		if header == nil || !bc.engine.IsEpochEnd(header) {
			continue
		}
		pending := rawdb.ReadPendingEpochTransition(bc.db, hash)
		if pending == nil {
			pending = &types.EpochTransition{BlockHash: hash, BlockNumber: *number}
		}
		rawdb.ConfirmEpochTransition(batch, *number, pending)
		rawdb.DeletePendingEpochTransition(batch, hash)
	}
}
