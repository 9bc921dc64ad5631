// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package core

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/consensus"
	"github.com/coreeth-io/coreeth/core/state"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/ethdb/memorydb"
	"github.com/coreeth-io/coreeth/params"
)

// testEngine is the minimal consensus.Engine a tree-route/reorg test needs:
// it accepts every header that has the right parent and number, picks forks
// by total difficulty alone, and credits a fixed reward to the author on
// every block close.
type testEngine struct {
	config *params.ChainConfig
}

func (e *testEngine) VerifyBlockBasic(header *types.Header) error { return nil }

func (e *testEngine) VerifyBlockFamily(header, parent *types.Header) error {
	if header.Number != parent.Number+1 {
		return errBadNumber
	}
	return nil
}

func (e *testEngine) VerifyBlockExternal(header *types.Header) error { return nil }

func (e *testEngine) VerifyBlockFinal(header *types.Header, receipts types.Receipts) error {
	return nil
}

func (e *testEngine) GenerateSeal(header, parent *types.Header) (consensus.Seal, error) {
	return consensus.Seal{}, nil
}

func (e *testEngine) OnCloseBlock(header *types.Header, state consensus.StateDB) {
	state.AddBalance(header.Author, uint256.NewInt(testBlockReward))
}

func (e *testEngine) SignalsEpochEnd(header *types.Header) bool { return false }
func (e *testEngine) IsEpochEnd(header *types.Header) bool      { return false }

func (e *testEngine) ForkChoice(newHeader, currentHeader *types.Header, newTd, currentTd *big.Int) consensus.ForkChoiceResult {
	if newTd.Cmp(currentTd) > 0 {
		return consensus.ForkChoiceNew
	}
	return consensus.ForkChoiceOld
}

func (e *testEngine) MaximumUncleCount(number uint64) int { return 2 }

func (e *testEngine) Schedule(number uint64) params.Schedule { return e.config.ScheduleForBlock(number) }

const testBlockReward = 2_000_000_000_000_000_000

type errString string

func (e errString) Error() string { return string(e) }

const errBadNumber = errString("core: test engine: non-consecutive block number")

// newGenesisBlock seeds an empty world state and wraps it in block zero,
// the same shape cmd/coreeth's Genesis.ToBlock produces for an alloc-less
// chain.
func newGenesisBlock(t *testing.T, db ethdb.Database) *types.Block {
	t.Helper()
	sdb, err := state.New(common.Hash{}, state.NewDatabase(db))
	require.NoError(t, err)
	root, err := sdb.Commit(false)
	require.NoError(t, err)

	header := &types.Header{
		StateRoot:        root,
		TransactionsRoot: types.DeriveSha(types.Transactions{}),
		ReceiptsRoot:     types.DeriveSha(types.Receipts{}),
		Difficulty:       big.NewInt(1),
		Number:           0,
		GasLimit:         8_000_000,
	}
	return types.NewBlock(header, &types.Body{})
}

// buildBlock assembles a header-only child of parent (no transactions, so
// it never needs a real VM factory or a signed transaction) with a
// correctly rooted state: it opens parent's state, applies the engine's
// block-reward hook the same way StateProcessor.Process would, and commits.
func buildBlock(t *testing.T, bc *BlockChain, parent *types.Block, author common.Address, difficulty int64, timestamp uint64) *types.Block {
	t.Helper()
	sdb, err := bc.StateAt(parent.Header().StateRoot)
	require.NoError(t, err)

	header := &types.Header{
		ParentHash:       parent.Hash(),
		Author:           author,
		Difficulty:       big.NewInt(difficulty),
		Number:           parent.NumberU64() + 1,
		GasLimit:         parent.GasLimit(),
		Timestamp:        timestamp,
		TransactionsRoot: types.DeriveSha(types.Transactions{}),
		ReceiptsRoot:     types.DeriveSha(types.Receipts{}),
	}
	bc.Engine().OnCloseBlock(header, sdb)

	root, err := sdb.Commit(bc.Config().IsEIP158(header.Number))
	require.NoError(t, err)
	header.StateRoot = root

	return types.NewBlock(header, &types.Body{})
}

func newTestChain(t *testing.T) (*BlockChain, *types.Block) {
	t.Helper()
	db := memorydb.New()
	genesis := newGenesisBlock(t, db)
	bc, err := NewBlockChain(db, &params.ChainConfig{}, &testEngine{config: &params.ChainConfig{}}, nil, genesis)
	require.NoError(t, err)
	return bc, genesis
}

func TestInsertChainExtendsCanonicalHead(t *testing.T) {
	bc, genesis := newTestChain(t)
	author := common.HexToAddress("0x1000000000000000000000000000000000000001")

	b1 := buildBlock(t, bc, genesis, author, 100, 1)
	infos, err := bc.InsertChain([]*types.Block{b1})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, types.LocationCanon, infos[0].Location.Kind)
	require.Equal(t, b1.Hash(), bc.CurrentBlock().Hash())
	require.Equal(t, big.NewInt(101), bc.GetTd(), "genesis difficulty (1) plus b1's (100)")
}

func TestInsertChainRejectsUnknownParent(t *testing.T) {
	bc, genesis := newTestChain(t)
	author := common.HexToAddress("0x1000000000000000000000000000000000000001")

	orphan := buildBlock(t, bc, genesis, author, 100, 1)
	// Detach it from genesis by pointing at an unseen parent hash.
	header := *orphan.Header()
	header.ParentHash = common.HexToHash("0xdead")
	detached := types.NewBlock(&header, &types.Body{})

	_, err := bc.InsertChain([]*types.Block{detached})
	require.Error(t, err)
}

// TestInsertChainReorgsToHeavierBranch builds two competing children of
// genesis (b1a, then b1b with equal difficulty so it stays a side branch),
// then extends b1b with b2 so its branch carries strictly more total
// difficulty, which must trigger a reorg onto b1b/b2 (spec §4.6 "Insertion",
// the tree-route algorithm driving BlockLocation.Kind).
func TestInsertChainReorgsToHeavierBranch(t *testing.T) {
	bc, genesis := newTestChain(t)
	author := common.HexToAddress("0x1000000000000000000000000000000000000001")

	b1a := buildBlock(t, bc, genesis, author, 100, 1)
	infos, err := bc.InsertChain([]*types.Block{b1a})
	require.NoError(t, err)
	require.Equal(t, types.LocationCanon, infos[0].Location.Kind)
	require.Equal(t, b1a.Hash(), bc.CurrentBlock().Hash())

	b1b := buildBlock(t, bc, genesis, author, 100, 2)
	infos, err = bc.InsertChain([]*types.Block{b1b})
	require.NoError(t, err)
	require.Equal(t, types.LocationBranch, infos[0].Location.Kind)
	require.Equal(t, b1a.Hash(), bc.CurrentBlock().Hash(), "equal-TD sibling must not move the head")

	b2 := buildBlock(t, bc, bc.GetBlock(b1b.Hash(), b1b.NumberU64()), author, 100, 3)
	infos, err = bc.InsertChain([]*types.Block{b2})
	require.NoError(t, err)
	require.Len(t, infos, 1)

	loc := infos[0].Location
	require.Equal(t, types.LocationBranchBecomingCanon, loc.Kind)
	require.Equal(t, genesis.Hash(), loc.Ancestor)
	require.Equal(t, []common.Hash{b1a.Hash()}, loc.Retracted)
	require.Equal(t, []common.Hash{b1b.Hash(), b2.Hash()}, loc.Enacted)

	require.Equal(t, b2.Hash(), bc.CurrentBlock().Hash())
	require.Equal(t, big.NewInt(201), bc.GetTd(), "genesis (1) + b1b (100) + b2 (100)")

	route, err := bc.TreeRoute(b1a.Hash(), b2.Hash())
	require.NoError(t, err)
	require.Equal(t, genesis.Hash(), route.Ancestor)
	require.Equal(t, []common.Hash{b1a.Hash()}, route.Retracted())
	require.Equal(t, []common.Hash{b1b.Hash(), b2.Hash()}, route.Enacted())
}
