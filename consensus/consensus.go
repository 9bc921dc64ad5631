// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package consensus defines the engine interface the import pipeline and
// pending-block builder consume (spec §6 "Consensus engine interface
// (consumed)"); the core is agnostic to the specific algorithm behind it.
package consensus

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/params"
)

// ForkChoiceResult is the outcome of comparing two competing chain heads
// (spec §6 "fork_choice(new, current) -> {New, Old}").
type ForkChoiceResult int

const (
	ForkChoiceOld ForkChoiceResult = iota
	ForkChoiceNew
)

// Seal is whatever proof-of-work/proof-of-authority data a generated block
// must carry to be accepted by VerifyBlockExternal, gathered in a dedicated
// type holding the header's MixHash and Nonce fields.
type Seal struct {
	MixHash common.Hash
	Nonce   [8]byte
}

// Engine is the consensus-engine interface the core consumes (spec §6).
// Verification is split into the four phases go-ethereum and OpenEthereum
// both use: Basic needs only the header; Family needs the parent; External
// checks the seal itself; Final runs once the block's transactions have
// been replayed (e.g. to check a reward was applied correctly upstream).
type Engine interface {
	VerifyBlockBasic(header *types.Header) error
	VerifyBlockFamily(header, parent *types.Header) error
	VerifyBlockExternal(header *types.Header) error
	VerifyBlockFinal(header *types.Header, receipts types.Receipts) error

	GenerateSeal(header, parent *types.Header) (Seal, error)

	// OnCloseBlock lets the engine apply its block reward before the
	// block's state root is taken (spec §6 "applies block reward").
	OnCloseBlock(header *types.Header, state StateDB)

	SignalsEpochEnd(header *types.Header) bool
	IsEpochEnd(header *types.Header) bool

	ForkChoice(newHeader, currentHeader *types.Header, newTd, currentTd *big.Int) ForkChoiceResult

	MaximumUncleCount(number uint64) int

	// Schedule returns the gas schedule in effect at number (spec §6
	// "schedule(number) -> Schedule").
	Schedule(number uint64) params.Schedule
}

// StateDB is the minimal state-mutation surface OnCloseBlock needs to
// credit a block reward, kept separate from core/vm.StateDB so this
// package has no dependency on the executive.
type StateDB interface {
	AddBalance(addr common.Address, amount *uint256.Int)
}
