// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/rlp"
	"github.com/coreeth-io/coreeth/trie"
)

func TestProveStorageRoundTrip(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0c00000000000000000000000000000000000c")
	key := common.HexToHash("0x2a")
	value := common.HexToHash("0x2a2a")

	sdb.SetBalance(addr, uint256.NewInt(7))
	sdb.SetState(addr, key, value)
	root := sdb.IntermediateRoot(true)

	proof, got, err := sdb.ProveStorage(addr, key)
	require.NoError(t, err)
	require.Equal(t, value, got)
	require.NotEmpty(t, proof)

	accountEnc, err := trie.VerifyProof(root, addr[:], proof)
	require.NoError(t, err)
	require.NotEmpty(t, accountEnc)

	var acct types.StateAccount
	require.NoError(t, decodeAccount(accountEnc, &acct))

	storageEnc, err := trie.VerifyProof(acct.Root, key[:], proof)
	require.NoError(t, err)
	content, _, err := rlp.SplitString(storageEnc)
	require.NoError(t, err)
	require.Equal(t, value, common.BytesToHash(content))
}

func TestProveAccountMissingAccountReturnsNoAccount(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0e00000000000000000000000000000000000e")

	proof, enc, err := sdb.ProveAccount(addr)
	require.NoError(t, err)
	require.Empty(t, enc)
	require.NotNil(t, proof)
}

func TestProveStorageRejectsMissingProofNode(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x0d00000000000000000000000000000000000d")
	key := common.HexToHash("0x2b")

	sdb.SetBalance(addr, uint256.NewInt(3))
	sdb.SetState(addr, key, common.HexToHash("0x99"))
	root := sdb.IntermediateRoot(true)

	proof, _, err := sdb.ProveStorage(addr, key)
	require.NoError(t, err)
	require.NotEmpty(t, proof)

	// the account trie's root node is always resolved first; dropping it
	// from the proof must fail the walk closed rather than silently
	// returning no account (spec §8 "Proof soundness").
	delete(proof, root)

	_, err = trie.VerifyProof(root, addr[:], proof)
	require.ErrorIs(t, err, trie.ErrBadProof)
}
