// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package types

import (
	"math/big"

	"github.com/coreeth-io/coreeth/common"
)

// BlockLocationKind classifies where an inserted block landed relative to
// the canonical chain (spec §3 "BlockInfo / tree route").
type BlockLocationKind int

const (
	LocationCanon BlockLocationKind = iota
	LocationBranch
	LocationBranchBecomingCanon
)

// BlockLocation describes the outcome of inserting one block.
type BlockLocation struct {
	Kind      BlockLocationKind
	Ancestor  common.Hash // valid when Kind == LocationBranchBecomingCanon
	Enacted   []common.Hash
	Retracted []common.Hash
}

// BlockInfo is the lightweight summary the chain index returns for a block
// once inserted (spec §3).
type BlockInfo struct {
	Hash            common.Hash
	Number          uint64
	TotalDifficulty *big.Int
	Location        BlockLocation
}

// TreeRoute describes the path between two blocks through their common
// ancestor (spec §3/§4.6 "Tree route algorithm").
type TreeRoute struct {
	Blocks   []common.Hash // retracted ++ enacted, see Index
	Ancestor common.Hash
	Index    int // blocks[:Index] retracted, blocks[Index:] enacted
}

// Retracted returns the side-chain blocks walked away from.
func (t TreeRoute) Retracted() []common.Hash { return t.Blocks[:t.Index] }

// Enacted returns the canonical-chain blocks walked onto.
func (t TreeRoute) Enacted() []common.Hash { return t.Blocks[t.Index:] }

// BlockDetails is the per-block index record (spec §3).
type BlockDetails struct {
	Number          uint64
	TotalDifficulty *big.Int
	Parent          common.Hash
	Children        []common.Hash
}

// TransactionAddress locates a transaction within a specific block (spec §3).
type TransactionAddress struct {
	BlockHash common.Hash
	Index     uint64
}

// EpochTransition is a validator/parameter change point defined by the
// consensus engine (GLOSSARY "Epoch transition"): Proof is the engine's
// opaque sealing proof for light clients (spec §4.7 step 6 "generate or
// attach a proof"), nil until the engine actually supplies one.
type EpochTransition struct {
	BlockHash   common.Hash
	BlockNumber uint64
	Proof       []byte
}
