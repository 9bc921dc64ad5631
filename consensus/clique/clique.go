// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package clique implements a minimal proof-of-authority consensus.Engine:
// blocks are signed by one of a fixed set of authorized signers, rotating
// in a round-robin the way go-ethereum's clique engine does, without the
// vote-based signer-set changes or difficulty tie-breaking of the full
// algorithm (out of scope per spec §1 "consensus engine details beyond the
// interface it presents to the core").
package clique

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/consensus"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/crypto"
	"github.com/coreeth-io/coreeth/params"
)

// BlockReward is the fixed per-block author credit OnCloseBlock applies;
// clique chains carry no uncle reward since clique forbids uncles.
var BlockReward = uint256.NewInt(2_000_000_000_000_000_000)

// Engine is a clique consensus.Engine over a fixed authorized-signer list.
type Engine struct {
	config  *params.ChainConfig
	signers []common.Address
	period  uint64 // minimum seconds between blocks
	epoch   uint64 // checkpoint interval, 0 disables epoch transitions entirely
}

// New builds a clique engine with a fixed signer set, ordered the way the
// round-robin schedule expects. epoch is the checkpoint interval at which
// the engine signals an epoch transition (spec §4.6/§6 "signals_epoch_end");
// 0 means this chain never signals one, matching go-ethereum's convention
// of a fixed signer set needing no periodic re-announcement.
func New(config *params.ChainConfig, signers []common.Address, period, epoch uint64) *Engine {
	return &Engine{config: config, signers: signers, period: period, epoch: epoch}
}

func (e *Engine) isSigner(addr common.Address) bool {
	for _, s := range e.signers {
		if s == addr {
			return true
		}
	}
	return false
}

func (e *Engine) inTurn(number uint64, addr common.Address) bool {
	if len(e.signers) == 0 {
		return false
	}
	return e.signers[number%uint64(len(e.signers))] == addr
}

// VerifyBlockBasic checks self-contained header fields (spec §6
// "verify_block_basic"): clique has no difficulty puzzle, but every block
// must still declare one of the two sanctioned difficulty values.
func (e *Engine) VerifyBlockBasic(header *types.Header) error {
	if header.Difficulty == nil || (header.Difficulty.Cmp(diffInTurn) != 0 && header.Difficulty.Cmp(diffNoTurn) != 0) {
		return errInvalidDifficulty
	}
	if len(header.ExtraData) < common.AddressLength {
		return errMissingSigner
	}
	return nil
}

var (
	diffInTurn = big.NewInt(2)
	diffNoTurn = big.NewInt(1)
)

// VerifyBlockFamily checks header against its parent (spec §6
// "verify_block_family"): monotonic timestamp respecting the period, and
// number = parent.number+1.
func (e *Engine) VerifyBlockFamily(header, parent *types.Header) error {
	if header.Number != parent.Number+1 {
		return errInvalidNumber
	}
	if header.Timestamp < parent.Timestamp+e.period {
		return errInvalidTimestamp
	}
	return nil
}

// VerifyBlockExternal checks the seal: the last 20 bytes of ExtraData name
// the signer, grounded on go-ethereum's clique's extraSeal convention but
// carrying the signer directly rather than a recoverable ECDSA signature,
// since signature recovery is wired through crypto.SigToAddress elsewhere
// and this engine only needs to check authorization and turn-taking.
func (e *Engine) VerifyBlockExternal(header *types.Header) error {
	if len(header.ExtraData) < common.AddressLength {
		return errMissingSigner
	}
	signer := common.BytesToAddress(header.ExtraData[len(header.ExtraData)-common.AddressLength:])
	if !e.isSigner(signer) {
		return errUnauthorizedSigner
	}
	wantDiff := diffNoTurn
	if e.inTurn(header.Number, signer) {
		wantDiff = diffInTurn
	}
	if header.Difficulty.Cmp(wantDiff) != 0 {
		return errInvalidDifficulty
	}
	return nil
}

// VerifyBlockFinal runs once the block's receipts are known; clique has no
// reward-dependent invariant to check beyond what VerifyBlockExternal
// already covered.
func (e *Engine) VerifyBlockFinal(*types.Header, types.Receipts) error { return nil }

// GenerateSeal stamps header with the next in-turn/no-turn difficulty for
// header.Author and leaves the signer byte suffix for the caller (the
// signer/key management component, out of scope per spec §1) to append.
func (e *Engine) GenerateSeal(header, parent *types.Header) (consensus.Seal, error) {
	header.Difficulty = diffNoTurn
	if e.inTurn(header.Number, header.Author) {
		header.Difficulty = diffInTurn
	}
	return consensus.Seal{MixHash: crypto.Keccak256Hash(header.ExtraData)}, nil
}

// OnCloseBlock credits the fixed block reward to the header's author (spec
// §6 "applies block reward").
func (e *Engine) OnCloseBlock(header *types.Header, state consensus.StateDB) {
	state.AddBalance(header.Author, BlockReward)
}

// SignalsEpochEnd/IsEpochEnd fire on every checkpoint block, a fixed
// interval of e.epoch blocks (go-ethereum clique's own checkpoint
// convention); this engine's fixed signer set means a checkpoint carries no
// vote tally, only a confirmation the signer set at that height is still
// e.signers, but the core's import pipeline still needs the signal to
// exercise spec §4.6/§4.7's epoch-transition bookkeeping. The two hooks
// coincide here (clique never has a "pending, not yet confirmed" epoch
// block) since a checkpoint block's own external-seal check already
// confirms it against the only signer set this engine ever has.
func (e *Engine) SignalsEpochEnd(header *types.Header) bool { return e.isCheckpoint(header.Number) }
func (e *Engine) IsEpochEnd(header *types.Header) bool      { return e.isCheckpoint(header.Number) }

func (e *Engine) isCheckpoint(number uint64) bool {
	return e.epoch != 0 && number != 0 && number%e.epoch == 0
}

// ForkChoice prefers strictly greater total difficulty, the standard
// heaviest-chain rule (spec §6 "fork_choice(new, current)").
func (e *Engine) ForkChoice(_, _ *types.Header, newTd, currentTd *big.Int) consensus.ForkChoiceResult {
	if newTd.Cmp(currentTd) > 0 {
		return consensus.ForkChoiceNew
	}
	return consensus.ForkChoiceOld
}

// MaximumUncleCount is always zero: clique forbids uncles entirely.
func (e *Engine) MaximumUncleCount(uint64) int { return 0 }

func (e *Engine) Schedule(number uint64) params.Schedule {
	return e.config.ScheduleForBlock(number)
}
