// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
)

func newTestStateDB(t *testing.T) *StateDB {
	t.Helper()
	sdb, err := New(types.EmptyRootHash, NewDatabaseForTesting())
	require.NoError(t, err)
	return sdb
}

func TestAccountLifecycle(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0100000000000000000000000000000000000001")

	require.False(t, sdb.Exist(addr))

	sdb.CreateAccount(addr)
	sdb.SetBalance(addr, uint256.NewInt(100))
	sdb.SetNonce(addr, 1)
	sdb.SetCode(addr, []byte{0x60, 0x00})

	require.True(t, sdb.Exist(addr))
	require.False(t, sdb.Empty(addr))
	require.Equal(t, uint256.NewInt(100), sdb.GetBalance(addr))
	require.Equal(t, uint64(1), sdb.GetNonce(addr))
	require.Equal(t, []byte{0x60, 0x00}, sdb.GetCode(addr))
	require.NoError(t, sdb.Error())
}

func TestEmptyAccountSweptOnFinalise(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0200000000000000000000000000000000000002")

	sdb.AddBalance(addr, new(uint256.Int)) // touches but never funds
	require.True(t, sdb.Empty(addr))

	sdb.Finalise(true)
	require.False(t, sdb.Exist(addr))
}

func TestTouchedNonEmptyAccountSurvivesFinalise(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0300000000000000000000000000000000000003")

	sdb.AddBalance(addr, uint256.NewInt(1))
	sdb.Finalise(true)
	require.True(t, sdb.Exist(addr))
	require.Equal(t, uint256.NewInt(1), sdb.GetBalance(addr))
}

func TestCheckpointRevertRestoresBalance(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0400000000000000000000000000000000000004")
	sdb.SetBalance(addr, uint256.NewInt(10))

	sdb.Checkpoint()
	sdb.SetBalance(addr, uint256.NewInt(999))
	require.Equal(t, uint256.NewInt(999), sdb.GetBalance(addr))

	sdb.RevertToCheckpoint()
	require.Equal(t, uint256.NewInt(10), sdb.GetBalance(addr))
}

func TestCheckpointRevertRemovesNewAccount(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0500000000000000000000000000000000000005")

	sdb.Checkpoint()
	sdb.CreateAccount(addr)
	sdb.SetBalance(addr, uint256.NewInt(5))
	require.True(t, sdb.Exist(addr))

	sdb.RevertToCheckpoint()
	require.False(t, sdb.Exist(addr))
}

func TestNestedCheckpointDiscardKeepsOutermostPreImage(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0600000000000000000000000000000000000006")
	sdb.SetBalance(addr, uint256.NewInt(1))

	sdb.Checkpoint() // outer
	sdb.SetBalance(addr, uint256.NewInt(2))

	sdb.Checkpoint() // inner
	sdb.SetBalance(addr, uint256.NewInt(3))
	sdb.DiscardCheckpoint() // inner succeeds, merges into outer

	require.Equal(t, uint256.NewInt(3), sdb.GetBalance(addr))
	require.Equal(t, 1, sdb.CheckpointDepth())

	sdb.RevertToCheckpoint() // outer fails
	require.Equal(t, uint256.NewInt(1), sdb.GetBalance(addr))
}

func TestStorageRoundTripThroughCheckpoint(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0700000000000000000000000000000000000007")
	key := common.HexToHash("0x01")

	sdb.SetState(addr, key, common.HexToHash("0xaa"))
	sdb.Checkpoint()
	sdb.SetState(addr, key, common.HexToHash("0xbb"))
	require.Equal(t, common.HexToHash("0xbb"), sdb.GetState(addr, key))

	sdb.RevertToCheckpoint()
	require.Equal(t, common.HexToHash("0xaa"), sdb.GetState(addr, key))
}

func TestSelfDestructZeroesBalanceAndIsRemovedOnFinalise(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0800000000000000000000000000000000000008")
	sdb.SetBalance(addr, uint256.NewInt(42))

	got := sdb.SelfDestruct(addr)
	require.Equal(t, uint256.NewInt(42), got)
	require.True(t, sdb.HasSelfDestructed(addr))
	require.True(t, sdb.Exist(addr)) // still readable until Finalise

	sdb.Finalise(true)
	require.False(t, sdb.Exist(addr))
}

func TestRefundCounter(t *testing.T) {
	sdb := newTestStateDB(t)
	sdb.AddRefund(100)
	sdb.AddRefund(50)
	sdb.SubRefund(30)
	require.Equal(t, uint64(120), sdb.GetRefund())
}

func TestAddLogStampsTxContext(t *testing.T) {
	sdb := newTestStateDB(t)
	sdb.SetTxContext(common.HexToHash("0xcafe"), 3)
	sdb.AddLog(&types.Log{Address: common.HexToAddress("0x09")})
	sdb.AddLog(&types.Log{Address: common.HexToAddress("0x0a")})

	logs := sdb.Logs()
	require.Len(t, logs, 2)
	require.Equal(t, common.HexToHash("0xcafe"), logs[0].TxHash)
	require.Equal(t, uint(3), logs[0].TxIndex)
	require.Equal(t, uint(0), logs[0].Index)
	require.Equal(t, uint(1), logs[1].Index)
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	db := NewDatabaseForTesting()
	sdb, err := New(types.EmptyRootHash, db)
	require.NoError(t, err)

	addr := common.HexToAddress("0x0b00000000000000000000000000000000000b")
	sdb.SetBalance(addr, uint256.NewInt(777))
	sdb.SetNonce(addr, 9)
	key := common.HexToHash("0x01")
	sdb.SetState(addr, key, common.HexToHash("0x02"))

	root, err := sdb.Commit(true)
	require.NoError(t, err)
	require.NotEqual(t, types.EmptyRootHash, root)

	reopened, err := New(root, db)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(777), reopened.GetBalance(addr))
	require.Equal(t, uint64(9), reopened.GetNonce(addr))
	require.Equal(t, common.HexToHash("0x02"), reopened.GetState(addr, key))
}

func TestGenesisRootOfEmptyWorldState(t *testing.T) {
	sdb := newTestStateDB(t)
	root := sdb.IntermediateRoot(true)
	require.Equal(t, types.EmptyRootHash, root)
}
