// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package vm

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/params"
)

// BlockContext carries the block-level values a running frame can observe
// (BLOCKHASH, COINBASE, block gas limit) but which the executive itself
// never mutates.
type BlockContext struct {
	Coinbase    common.Address
	GasLimit    uint64
	BlockNumber uint64
	Time        uint64
	Difficulty  *big.Int

	// GetHash resolves BLOCKHASH(n); nil-safe default returns the zero hash,
	// matching go-ethereum's behavior for out-of-window lookups.
	GetHash func(number uint64) common.Hash
}

func (bc BlockContext) blockHash(n uint64) common.Hash {
	if bc.GetHash == nil {
		return common.Hash{}
	}
	return bc.GetHash(n)
}

// TxContext carries the per-transaction values visible to every frame in its
// call stack (spec §4.4 "Origin unchanged across the whole call stack").
type TxContext struct {
	Origin   common.Address
	GasPrice *uint256.Int
}

// Config bundles the pluggable collaborators the executive is built with:
// the opcode-interpreter factory (out of scope per spec §1) and the tracer
// plugins (spec §4.5).
type Config struct {
	Factory  Factory
	Tracer   Tracer
	VMTracer VMTracer
}

// Executive drives transaction and call/create execution (component F):
// the trap/resume call-stack machine of spec §4.5/§9, built over a StateDB
// (component D) and a gas Schedule (spec §6).
type Executive struct {
	state    StateDB
	block    BlockContext
	tx       TxContext
	schedule params.Schedule
	cfg      Config
}

// NewExecutive constructs the executive for one block's worth of
// transactions; callers reuse it across every transaction in the block,
// updating TxContext per transaction via WithTxContext.
func NewExecutive(state StateDB, block BlockContext, tx TxContext, schedule params.Schedule, cfg Config) *Executive {
	if cfg.Tracer == nil {
		cfg.Tracer = NoopTracer{}
	}
	if cfg.VMTracer == nil {
		cfg.VMTracer = NoopVMTracer{}
	}
	return &Executive{state: state, block: block, tx: tx, schedule: schedule, cfg: cfg}
}

// WithTxContext returns a shallow copy of ex scoped to a new transaction's
// origin/gas price, sharing the same state, block context and factory.
func (ex *Executive) WithTxContext(tx TxContext) *Executive {
	cpy := *ex
	cpy.tx = tx
	return &cpy
}

// Call runs a top-level message call (spec §4.5 "Call(to): run
// call_with_stack_depth").
func (ex *Executive) Call(params *ActionParams) (*ExecutionResult, *Substate) {
	params.Kind = ActionCall
	return ex.exec(params)
}

// Create runs a top-level contract creation (spec §4.5 "Create: ... run
// create_with_stack_depth").
func (ex *Executive) Create(params *ActionParams) (*ExecutionResult, *Substate) {
	params.Kind = ActionCreate
	return ex.exec(params)
}
