// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
)

func TestContractCodeRoundTrip(t *testing.T) {
	db := NewDatabaseForTesting()
	addrHash := common.HexToHash("0x01")
	code := []byte{0x60, 0x00, 0x60, 0x00}
	codeHash := common.HexToHash("0x02")

	db.WriteContractCode(addrHash, codeHash, code)
	got, err := db.ContractCode(addrHash, codeHash)
	require.NoError(t, err)
	require.Equal(t, code, got)
}

func TestEmptyCodeHashNeverHitsDisk(t *testing.T) {
	db := NewDatabaseForTesting()
	got, err := db.ContractCode(common.HexToHash("0x01"), types.EmptyCodeHash)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestOpenTrieOfEmptyRoot(t *testing.T) {
	db := NewDatabaseForTesting()
	tr, err := db.OpenTrie(types.EmptyRootHash)
	require.NoError(t, err)
	require.Equal(t, types.EmptyRootHash, tr.Hash())
}
