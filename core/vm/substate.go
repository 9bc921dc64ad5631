// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package vm

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
)

// Substate accumulates one call frame's side-effects (spec §3 "Substate",
// component E): the suicides and touched addresses it produced, the logs it
// emitted, the net SSTORE-clears refund it is owed, and the contracts it
// created. It is the unit of roll-up between nested frames: a child merges
// into its parent on success (Merge) and is thrown away on revert.
type Substate struct {
	Suicides      mapset.Set[common.Address]
	Touched       mapset.Set[common.Address]
	Logs          []*types.Log
	SstoreClearsRefund int64
	ContractsCreated   []common.Address
}

// NewSubstate returns an empty substate for a fresh call frame.
func NewSubstate() *Substate {
	return &Substate{
		Suicides: mapset.NewThreadUnsafeSet[common.Address](),
		Touched:  mapset.NewThreadUnsafeSet[common.Address](),
	}
}

// newLog builds the Log record a frame's LOG opcode produces, before it has
// any of the block/tx indexing metadata that only gets filled in once the
// transaction's final substate is committed to the StateDB (spec §4.4).
func newLog(addr common.Address, topics []common.Hash, data []byte) *types.Log {
	return &types.Log{Address: addr, Topics: topics, Data: data}
}

// Merge folds child into s, the "union-append" rule of spec §4.4: logs
// concatenate in emission order, suicide/touched sets union, the refund
// counter adds (it is signed: EIP-1283/2200 can make a child's contribution
// negative), and created-contract addresses append.
func (s *Substate) Merge(child *Substate) {
	s.Suicides = s.Suicides.Union(child.Suicides)
	s.Touched = s.Touched.Union(child.Touched)
	s.Logs = append(s.Logs, child.Logs...)
	s.SstoreClearsRefund += child.SstoreClearsRefund
	s.ContractsCreated = append(s.ContractsCreated, child.ContractsCreated...)
}
