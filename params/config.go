// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package params holds the protocol constants and fork configuration
// consumed by the rest of the module: the gas schedule the consensus
// engine's Schedule(number) hook returns (spec §6), intrinsic-gas
// constants, and refund bounds (spec §4.5).
package params

// ChainConfig describes the fork schedule of a chain, loaded from the
// "config" table of a TOML genesis file via github.com/naoina/toml (see
// cmd/coreeth/genesis.go).
type ChainConfig struct {
	ChainID *uint64 `toml:"chain_id"`

	HomesteadBlock *uint64 `toml:"homestead_block"`
	EIP150Block    *uint64 `toml:"eip150_block"`
	EIP158Block    *uint64 `toml:"eip158_block"` // dust-account clearing, spec §4.3
	ByzantiumBlock *uint64 `toml:"byzantium_block"`

	// ConstantinopleBlock activates EIP-1283/1014 net-gas-metered SSTORE and
	// CREATE2, referenced directly by the executive's refund model and
	// address derivation (spec §4.5).
	ConstantinopleBlock *uint64 `toml:"constantinople_block"`
	IstanbulBlock       *uint64 `toml:"istanbul_block"` // EIP-2200 re-tune
}

func blockReached(fork *uint64, number uint64) bool {
	return fork != nil && number >= *fork
}

func (c *ChainConfig) IsEIP158(number uint64) bool { return blockReached(c.EIP158Block, number) }
func (c *ChainConfig) IsEIP150(number uint64) bool { return blockReached(c.EIP150Block, number) }
func (c *ChainConfig) IsByzantium(number uint64) bool {
	return blockReached(c.ByzantiumBlock, number)
}
func (c *ChainConfig) IsConstantinople(number uint64) bool {
	return blockReached(c.ConstantinopleBlock, number)
}
func (c *ChainConfig) IsIstanbul(number uint64) bool { return blockReached(c.IstanbulBlock, number) }

// Schedule is the gas-cost table a consensus engine hands the executive for
// a given block number (spec §6 "consensus engine interface").
type Schedule struct {
	TxGas                 uint64
	TxGasContractCreation  uint64
	TxDataZeroGas          uint64
	TxDataNonZeroGasFrontier uint64
	TxDataNonZeroGasIstanbul uint64

	SstoreSetGas    uint64
	SstoreResetGas  uint64
	SstoreClearRefundEIP2200 int64
	SstoreSetGasEIP2200      uint64
	SstoreResetGasEIP2200    uint64

	SelfdestructRefundGas uint64

	MaxCodeSize int

	EIP1283 bool // EIP-1283/2200 net gas metering active
	EIP158  bool // dust-account clearing and the "sender must exist" check active
	EIP2929 bool // access-list warm/cold pricing (not modeled; flag kept for future wiring)
}

// ScheduleForBlock returns the gas schedule in effect at number, the
// concrete realization of the external "schedule(number) -> Schedule" hook.
func (c *ChainConfig) ScheduleForBlock(number uint64) Schedule {
	s := Schedule{
		TxGas:                    21000,
		TxGasContractCreation:    53000,
		TxDataZeroGas:            4,
		TxDataNonZeroGasFrontier: 68,
		TxDataNonZeroGasIstanbul: 16,
		SstoreSetGas:             20000,
		SstoreResetGas:           5000,
		SelfdestructRefundGas:    24000,
		MaxCodeSize:              24576,
	}
	s.EIP158 = c.IsEIP158(number)
	if c.IsIstanbul(number) {
		s.EIP1283 = true
		s.SstoreSetGasEIP2200 = 20000
		s.SstoreResetGasEIP2200 = 2900
		s.SstoreClearRefundEIP2200 = 4800
	} else if c.IsConstantinople(number) {
		s.EIP1283 = true
		s.SstoreSetGasEIP2200 = 20000
		s.SstoreResetGasEIP2200 = 5000
		s.SstoreClearRefundEIP2200 = 15000
	}
	return s
}

// Protocol-level constants independent of fork (spec §3/§4.5).
const (
	// MaxCallDepth is the maximum logical call-stack depth (EVM max_depth).
	MaxCallDepth = 1024

	// MaxSkippedTransactions bounds how many gas-too-large rejects the
	// pending-block builder tolerates before giving up on a block (spec §4.8).
	MaxSkippedTransactions = 128

	// LogBloomLevels/ElementsPerIndex parameterize the bloom hierarchy
	// (spec §4.6/§9): level-k is the OR of 16 level-(k-1) entries.
	LogBloomLevels    = 3
	ElementsPerIndex  = 16
)
