// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package miner

import (
	"math/big"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/consensus"
	"github.com/coreeth-io/coreeth/core"
	"github.com/coreeth-io/coreeth/core/state"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb/memorydb"
	"github.com/coreeth-io/coreeth/params"
)

// testEngine is a minimal consensus.Engine like core/blockchain_test.go's:
// accepts any header with the right number and never rejects a seal. Unlike
// core's, its OnCloseBlock does nothing (no block reward is credited).
type testEngine struct {
	config *params.ChainConfig
}

func (e *testEngine) VerifyBlockBasic(header *types.Header) error  { return nil }
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
func (e *testEngine) OnCloseBlock(header *types.Header, state consensus.StateDB) {}
func (e *testEngine) SignalsEpochEnd(header *types.Header) bool                  { return false }
func (e *testEngine) IsEpochEnd(header *types.Header) bool                       { return false }
func (e *testEngine) ForkChoice(newHeader, currentHeader *types.Header, newTd, currentTd *big.Int) consensus.ForkChoiceResult {
	if newTd.Cmp(currentTd) > 0 {
		return consensus.ForkChoiceNew
	}
	return consensus.ForkChoiceOld
}
func (e *testEngine) MaximumUncleCount(number uint64) int { return 2 }
func (e *testEngine) Schedule(number uint64) params.Schedule {
	return e.config.ScheduleForBlock(number)
}

type errString string

func (e errString) Error() string { return string(e) }

const errBadNumber = errString("miner: test engine: non-consecutive block number")

// newTestChain opens an empty-alloc genesis and a single-block chain on a
// memory-backed store, mirroring core/blockchain_test.go's fixture.
func newTestChain(t *testing.T) (*core.BlockChain, common.Address) {
	t.Helper()
	db := memorydb.New()
	sdb, err := state.New(common.Hash{}, state.NewDatabase(db))
	require.NoError(t, err)

	sender := common.HexToAddress("0x1000000000000000000000000000000000000001")
	sdb.SetBalance(sender, uint256.NewInt(1_000_000_000_000_000_000))

	root, err := sdb.Commit(false)
	require.NoError(t, err)

	genesis := types.NewBlock(&types.Header{
		StateRoot:        root,
		TransactionsRoot: types.DeriveSha(types.Transactions{}),
		ReceiptsRoot:     types.DeriveSha(types.Receipts{}),
		Difficulty:       big.NewInt(1),
		Number:           0,
		GasLimit:         8_000_000,
	}, &types.Body{})

	config := &params.ChainConfig{}
	bc, err := core.NewBlockChain(db, config, &testEngine{config: config}, nil, genesis)
	require.NoError(t, err)
	return bc, sender
}

// signedTransfer builds a plain-value-transfer transaction and pre-caches
// its sender, the same shortcut core/blockchain_test.go's header-only
// blocks use to avoid a real ECDSA signature: recoverSender returns the
// cached address without ever consulting V/R/S.
func signedTransfer(from, to common.Address, nonce uint64, gas uint64, gasPrice uint64, value uint64) *types.Transaction {
	tx := &types.Transaction{
		Nonce:    nonce,
		GasPrice: uint256.NewInt(gasPrice),
		Gas:      gas,
		To:       &to,
		Value:    uint256.NewInt(value),
		V:        uint256.NewInt(0),
		R:        uint256.NewInt(0),
		S:        uint256.NewInt(0),
	}
	tx.SetCachedSender(from)
	return tx
}

func TestMinerRebuildsPendingBlockOnSubmit(t *testing.T) {
	bc, sender := newTestChain(t)
	to := common.HexToAddress("0x2000000000000000000000000000000000000002")

	m := New(bc, nil, Config{Author: common.HexToAddress("0x3"), GasFloor: 8_000_000, GasCeil: 8_000_000})
	defer m.Close()

	_, ok := m.Work()
	require.True(t, ok, "New must open a pending block on the current head immediately")

	tx := signedTransfer(sender, to, 0, 21000, 1, 100)
	require.NoError(t, m.SubmitTransaction(tx))

	require.Eventually(t, func() bool {
		block := m.PendingBlock()
		return block != nil && len(block.Body().Transactions) == 1
	}, time.Second, time.Millisecond, "pending block must include the submitted transaction")

	block, pending, receipts := m.Pending()
	require.Equal(t, tx.Hash(), block.Body().Transactions[0].Hash())
	require.Len(t, receipts, 1)
	require.Equal(t, uint64(21000), receipts[0].GasUsed)
	require.Equal(t, uint256.NewInt(100), pending.GetBalance(to))
}

func TestMinerSubmitTransactionRejectsDuplicate(t *testing.T) {
	bc, sender := newTestChain(t)
	to := common.HexToAddress("0x2000000000000000000000000000000000000002")
	m := New(bc, nil, Config{GasCeil: 8_000_000})
	defer m.Close()

	tx := signedTransfer(sender, to, 0, 21000, 1, 1)
	require.NoError(t, m.SubmitTransaction(tx))
	require.ErrorIs(t, m.SubmitTransaction(tx), ErrAlreadyImported)
}

func TestMinerRequeuesTransactionTooLargeForBlock(t *testing.T) {
	bc, sender := newTestChain(t)
	to := common.HexToAddress("0x2000000000000000000000000000000000000002")
	m := New(bc, nil, Config{GasFloor: 1_000_000, GasCeil: 1_000_000})
	defer m.Close()

	huge := signedTransfer(sender, to, 0, 2_000_000, 1, 1)
	require.NoError(t, m.SubmitTransaction(huge))

	// rebuild runs synchronously inside SubmitTransaction before it
	// returns, so the pending block is already settled here.
	block := m.PendingBlock()
	require.NotNil(t, block)
	require.Empty(t, block.Body().Transactions, "a transaction whose gas exceeds the block's own limit can never fit")
}

func TestGasPricePriorityOrdersByPrice(t *testing.T) {
	cheap := signedTransfer(common.Address{}, common.Address{}, 0, 21000, 1, 0)
	pricey := signedTransfer(common.Address{}, common.Address{}, 0, 21000, 100, 0)
	require.Less(t, gasPricePriority(cheap.GasPrice), gasPricePriority(pricey.GasPrice))
}
