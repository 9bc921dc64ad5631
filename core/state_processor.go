// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package core

import (
	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/consensus"
	"github.com/coreeth-io/coreeth/core/state"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/core/vm"
	"github.com/coreeth-io/coreeth/params"
)

// StateProcessor replays a block's transactions against a state overlay
// seeded from its parent (spec §4.7 step 4 "re-execute every transaction
// via the executive; accumulate receipts"), the "enact" step of the import
// pipeline (component H).
type StateProcessor struct {
	config  *params.ChainConfig
	engine  consensus.Engine
	factory vm.Factory
}

// NewStateProcessor builds a processor bound to a chain configuration, the
// consensus engine whose reward/schedule hooks it consults, and the VM
// factory (spec §1/§6 "vm_factory.create(params) -> Executable") the
// embedding binary supplies.
func NewStateProcessor(config *params.ChainConfig, engine consensus.Engine, factory vm.Factory) *StateProcessor {
	return &StateProcessor{config: config, engine: engine, factory: factory}
}

// Process enacts block against statedb, returning the receipts produced and
// the cumulative gas used. It never touches the block's own declared
// gas_used/receipts_root/state_root — callers compare those against the
// header themselves (spec §4.7 step 5 "final verification").
func (p *StateProcessor) Process(block *types.Block, statedb *state.StateDB) (types.Receipts, uint64, error) {
	var (
		receipts types.Receipts
		header   = block.Header()
		schedule = p.engine.Schedule(header.Number)
		gp       = new(GasPool).AddGas(header.GasLimit)
	)

	blockCtx := vm.BlockContext{
		Coinbase:    header.Author,
		GasLimit:    header.GasLimit,
		BlockNumber: header.Number,
		Time:        header.Timestamp,
		Difficulty:  header.Difficulty,
		GetHash:     GetHashFn(header, nil),
	}

	var cumulativeGasUsed uint64
	for i, tx := range block.Transactions() {
		if err := gp.SubGas(tx.Gas); err != nil {
			return nil, 0, &InvariantError{TxIndex: i, Err: err}
		}
		statedb.SetTxContext(tx.Hash(), i)

		ex := vm.NewExecutive(statedb, blockCtx, vm.TxContext{}, schedule, vm.Config{Factory: p.factory})
		executed := ex.Transact(tx, cumulativeGasUsed)
		if executed.Exception != nil && vm.IsInternal(executed.Exception) {
			return nil, 0, &InvariantError{TxIndex: i, Err: executed.Exception}
		}
		cumulativeGasUsed = executed.CumulativeGasUsed

		receipt := types.NewReceipt(nil, executed.Exception != nil, cumulativeGasUsed)
		receipt.Logs = executed.Logs
		receipt.Bloom = types.CreateBloom(receipt.Logs)
		receipt.GasUsed = executed.GasUsed
		receipts = append(receipts, receipt)
	}

	p.engine.OnCloseBlock(header, statedb)

	return receipts, cumulativeGasUsed, nil
}

// GetHashFn builds the BLOCKHASH(n) resolver for a block being processed:
// ancestors already committed are served from getAncestor (typically a
// blockchain's header-by-number lookup), bounded the way go-ethereum bounds
// it (only the 256 most recent ancestors are ever valid per the EVM spec,
// though that bound is the out-of-scope interpreter's concern, not this
// function's).
func GetHashFn(header *types.Header, getAncestor func(number uint64) (hash common.Hash, ok bool)) func(uint64) common.Hash {
	return func(number uint64) common.Hash {
		if getAncestor == nil || number >= header.Number {
			return common.Hash{}
		}
		hash, ok := getAncestor(number)
		if !ok {
			return common.Hash{}
		}
		return hash
	}
}
