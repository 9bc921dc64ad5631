// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package main

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/state"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb/memorydb"
)

func TestLoadGenesis(t *testing.T) {
	g, err := LoadGenesis("testdata/genesis.toml")
	require.NoError(t, err)
	require.NotNil(t, g.Config)
	require.Equal(t, uint64(8000000), g.GasLimit)
	require.Len(t, g.Alloc, 2)

	acct := g.Alloc["0x1000000000000000000000000000000000000002"]
	require.NotNil(t, acct)
	require.Equal(t, uint64(4), acct.Nonce)
}

func TestGenesisToBlockSeedsAllocAndRootsEmptyLists(t *testing.T) {
	g, err := LoadGenesis("testdata/genesis.toml")
	require.NoError(t, err)

	db := memorydb.New()
	block, err := g.ToBlock(db)
	require.NoError(t, err)

	require.Equal(t, uint64(0), block.NumberU64())
	require.Equal(t, types.DeriveSha(types.Transactions{}), block.Header().TransactionsRoot)
	require.Equal(t, types.DeriveSha(types.Receipts{}), block.Header().ReceiptsRoot)
	require.NotEqual(t, types.EmptyRootHash, block.Header().StateRoot)

	sdb, err := state.New(block.Header().StateRoot, state.NewDatabase(db))
	require.NoError(t, err)

	addr := common.HexToAddress("0x1000000000000000000000000000000000000001")
	want, _ := uint256.FromBig(g.Alloc["0x1000000000000000000000000000000000000001"].Balance)
	require.Equal(t, want, sdb.GetBalance(addr))
}

func TestLoadGenesisRejectsMissingFile(t *testing.T) {
	_, err := LoadGenesis("testdata/does-not-exist.toml")
	require.Error(t, err)
}
