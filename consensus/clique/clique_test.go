// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package clique

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/consensus"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/params"
)

var (
	signerA = common.HexToAddress("0x1000000000000000000000000000000000000001")
	signerB = common.HexToAddress("0x1000000000000000000000000000000000000002")
)

func newTestEngine(epoch uint64) *Engine {
	return New(&params.ChainConfig{}, []common.Address{signerA, signerB}, 15, epoch)
}

func sealedHeader(number uint64, signer common.Address, diff *big.Int) *types.Header {
	return &types.Header{
		Number:     number,
		Difficulty: diff,
		ExtraData:  append([]byte{0x01, 0x02}, signer.Bytes()...),
	}
}

func TestInTurnRotatesRoundRobin(t *testing.T) {
	e := newTestEngine(0)
	// two signers, so number%2 picks the in-turn signer.
	require.True(t, e.inTurn(0, signerA))
	require.False(t, e.inTurn(0, signerB))
	require.True(t, e.inTurn(1, signerB))
	require.False(t, e.inTurn(1, signerA))
	require.True(t, e.inTurn(2, signerA))
}

func TestInTurnWithNoSignersNeverMatches(t *testing.T) {
	e := New(&params.ChainConfig{}, nil, 15, 0)
	require.False(t, e.inTurn(0, signerA))
}

func TestVerifyBlockBasicRejectsBadDifficultyOrShortExtraData(t *testing.T) {
	e := newTestEngine(0)

	require.NoError(t, e.VerifyBlockBasic(sealedHeader(1, signerB, diffInTurn)))

	bad := sealedHeader(1, signerB, big.NewInt(3))
	require.ErrorIs(t, e.VerifyBlockBasic(bad), errInvalidDifficulty)

	short := &types.Header{Number: 1, Difficulty: diffInTurn, ExtraData: []byte{0x01}}
	require.ErrorIs(t, e.VerifyBlockBasic(short), errMissingSigner)
}

func TestVerifyBlockFamilyChecksNumberAndPeriod(t *testing.T) {
	e := newTestEngine(0)
	parent := &types.Header{Number: 5, Timestamp: 100}

	require.NoError(t, e.VerifyBlockFamily(&types.Header{Number: 6, Timestamp: 115}, parent))
	require.ErrorIs(t, e.VerifyBlockFamily(&types.Header{Number: 7, Timestamp: 115}, parent), errInvalidNumber)
	require.ErrorIs(t, e.VerifyBlockFamily(&types.Header{Number: 6, Timestamp: 110}, parent), errInvalidTimestamp)
}

func TestVerifyBlockExternalChecksSignerAndTurnDifficulty(t *testing.T) {
	e := newTestEngine(0)

	// block 1: signerB is in turn (signers[1%2] = signerB).
	require.NoError(t, e.VerifyBlockExternal(sealedHeader(1, signerB, diffInTurn)))
	require.ErrorIs(t, e.VerifyBlockExternal(sealedHeader(1, signerB, diffNoTurn)), errInvalidDifficulty)

	// block 0: signerA is in turn, so signerB sealing it must declare diffNoTurn.
	require.NoError(t, e.VerifyBlockExternal(sealedHeader(0, signerA, diffInTurn)))
	require.NoError(t, e.VerifyBlockExternal(sealedHeader(0, signerB, diffNoTurn)))
	require.ErrorIs(t, e.VerifyBlockExternal(sealedHeader(0, signerB, diffInTurn)), errInvalidDifficulty)

	stranger := common.HexToAddress("0xdead")
	require.ErrorIs(t, e.VerifyBlockExternal(sealedHeader(0, stranger, diffInTurn)), errUnauthorizedSigner)
}

func TestGenerateSealStampsInTurnDifficulty(t *testing.T) {
	e := newTestEngine(0)

	header := &types.Header{Number: 1, Author: signerB, ExtraData: []byte{0xaa}}
	seal, err := e.GenerateSeal(header, nil)
	require.NoError(t, err)
	require.Equal(t, diffInTurn, header.Difficulty)
	require.NotEqual(t, common.Hash{}, seal.MixHash)

	header2 := &types.Header{Number: 1, Author: signerA, ExtraData: []byte{0xaa}}
	_, err = e.GenerateSeal(header2, nil)
	require.NoError(t, err)
	require.Equal(t, diffNoTurn, header2.Difficulty)
}

// balanceStub is the minimal consensus.StateDB a reward test needs: it just
// records the last AddBalance call instead of mutating real state.
type balanceStub struct {
	addr   common.Address
	amount *uint256.Int
}

func (b *balanceStub) AddBalance(addr common.Address, amount *uint256.Int) {
	b.addr, b.amount = addr, amount
}

func TestOnCloseBlockCreditsFixedReward(t *testing.T) {
	e := newTestEngine(0)
	recorder := &balanceStub{}
	header := &types.Header{Author: signerA}

	e.OnCloseBlock(header, recorder)
	require.Equal(t, signerA, recorder.addr)
	require.Equal(t, BlockReward, recorder.amount)
}

func TestEpochCheckpointSignalling(t *testing.T) {
	e := newTestEngine(30)

	require.False(t, e.isCheckpoint(0), "block zero is genesis, never a checkpoint")
	require.False(t, e.isCheckpoint(15))
	require.True(t, e.isCheckpoint(30))
	require.True(t, e.isCheckpoint(60))

	require.True(t, e.SignalsEpochEnd(&types.Header{Number: 30}))
	require.True(t, e.IsEpochEnd(&types.Header{Number: 30}))
	require.False(t, e.SignalsEpochEnd(&types.Header{Number: 31}))
}

func TestEpochDisabledWhenZero(t *testing.T) {
	e := newTestEngine(0)
	for _, n := range []uint64{0, 30, 60, 12345} {
		require.False(t, e.isCheckpoint(n))
	}
}

func TestForkChoicePrefersStrictlyGreaterTotalDifficulty(t *testing.T) {
	e := newTestEngine(0)
	require.Equal(t, consensus.ForkChoiceNew, e.ForkChoice(nil, nil, big.NewInt(101), big.NewInt(100)))
	require.Equal(t, consensus.ForkChoiceOld, e.ForkChoice(nil, nil, big.NewInt(100), big.NewInt(100)))
	require.Equal(t, consensus.ForkChoiceOld, e.ForkChoice(nil, nil, big.NewInt(99), big.NewInt(100)))
}

func TestMaximumUncleCountIsAlwaysZero(t *testing.T) {
	e := newTestEngine(0)
	require.Equal(t, 0, e.MaximumUncleCount(1))
	require.Equal(t, 0, e.MaximumUncleCount(1_000_000))
}
