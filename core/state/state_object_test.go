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

func TestNewObjectIsEmpty(t *testing.T) {
	sdb := newTestStateDB(t)
	obj := newObject(sdb, common.HexToAddress("0x01"), nil)
	require.True(t, obj.empty())
	require.Equal(t, types.EmptyRootHash, obj.data.Root)
}

func TestSetCodeMarksNonEmpty(t *testing.T) {
	sdb := newTestStateDB(t)
	obj := newObject(sdb, common.HexToAddress("0x02"), nil)
	obj.SetCode(codeHashOf([]byte{0x60}), []byte{0x60})
	require.False(t, obj.empty())
	require.Equal(t, []byte{0x60}, obj.Code())
}

func TestDeepCopyIsIndependent(t *testing.T) {
	sdb := newTestStateDB(t)
	obj := newObject(sdb, common.HexToAddress("0x03"), nil)
	obj.SetBalance(uint256.NewInt(5))
	obj.dirtyStorage[common.HexToHash("0x01")] = common.HexToHash("0xaa")

	cpy := obj.deepCopy(sdb)
	cpy.SetBalance(uint256.NewInt(9))
	cpy.dirtyStorage[common.HexToHash("0x01")] = common.HexToHash("0xbb")

	require.Equal(t, uint256.NewInt(5), obj.Balance())
	require.Equal(t, common.HexToHash("0xaa"), obj.dirtyStorage[common.HexToHash("0x01")])
}

func TestMergeFromSnapshotKeepsNewerCommittedReads(t *testing.T) {
	sdb := newTestStateDB(t)
	obj := newObject(sdb, common.HexToAddress("0x04"), nil)
	obj.SetBalance(uint256.NewInt(1))
	prior := obj.deepCopy(sdb)

	obj.SetBalance(uint256.NewInt(2))
	// Simulate a committed-value read cached after the checkpoint.
	obj.originStorage[common.HexToHash("0x05")] = common.HexToHash("0x06")

	obj.mergeFromSnapshot(prior)
	require.Equal(t, uint256.NewInt(1), obj.Balance())
	require.Equal(t, common.HexToHash("0x06"), obj.originStorage[common.HexToHash("0x05")])
}
