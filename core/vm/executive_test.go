// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/state"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/params"
)

func newTestExecutive(t *testing.T, factory Factory) (*Executive, *state.StateDB) {
	t.Helper()
	sdb, err := state.New(types.EmptyRootHash, state.NewDatabaseForTesting())
	require.NoError(t, err)
	schedule := (&params.ChainConfig{}).ScheduleForBlock(0)
	ex := NewExecutive(sdb, BlockContext{GasLimit: 10_000_000}, TxContext{}, schedule, Config{Factory: factory})
	return ex, sdb
}

// childCallStub traps once to a sub-call, then finishes using whatever
// result the host hands back on Resume — the minimal shape that exercises
// the trap/resume loop without an interpreter.
type childCallStub struct {
	sub *ActionParams
	ran bool
}

func (s *childCallStub) Run(Externalities) Trap {
	s.ran = true
	return Trap{SubParams: s.sub}
}

func (s *childCallStub) Resume(ext Externalities, child *ExecutionResult, _ common.Address) Trap {
	return Trap{Done: true, Result: &ExecutionResult{GasLeft: child.GasLeft, Output: child.Output}}
}

// sstoreStub writes one storage slot and succeeds immediately, used to
// check that a successful frame's mutation survives finalize.
type sstoreStub struct {
	key, value common.Hash
}

func (s *sstoreStub) Run(ext Externalities) Trap {
	ext.SetStorage(s.key, s.value)
	return Trap{Done: true, Result: &ExecutionResult{GasLeft: 100}}
}

func (s *sstoreStub) Resume(Externalities, *ExecutionResult, common.Address) Trap {
	panic("not reached")
}

// revertingStub writes a storage slot and then fails with a reverting
// error class, checking that finalize unwinds the checkpoint.
type revertingStub struct {
	key, value common.Hash
}

func (s *revertingStub) Run(ext Externalities) Trap {
	ext.SetStorage(s.key, s.value)
	return Trap{Done: true, Result: &ExecutionResult{Err: ErrReverted}}
}

func (s *revertingStub) Resume(Externalities, *ExecutionResult, common.Address) Trap {
	panic("not reached")
}

func TestTrapResumeDrivesNestedCall(t *testing.T) {
	callee := common.HexToAddress("0x1000000000000000000000000000000000000002")
	caller := common.HexToAddress("0x1000000000000000000000000000000000000001")

	calleeStub := &sstoreStub{key: common.HexToHash("0x1"), value: common.HexToHash("0x2a")}
	callerStub := &childCallStub{sub: &ActionParams{
		Kind:     ActionCall,
		Sender:   caller,
		Address:  callee,
		CodeAddr: callee,
		Code:     []byte{0x01}, // non-empty so enterFrame routes to the factory, not the empty-code fast path
		Value:    uint256.NewInt(0),
		Gas:      1000,
	}}

	calls := 0
	factory := func(p *ActionParams) Executable {
		calls++
		if p.Address == callee {
			return calleeStub
		}
		return callerStub
	}

	ex, sdb := newTestExecutive(t, factory)
	sdb.CreateAccount(caller)
	sdb.CreateAccount(callee)

	result, substate := ex.Call(&ActionParams{
		Kind:     ActionCall,
		Sender:   caller,
		Address:  caller,
		CodeAddr: caller,
		Code:     []byte{0x01},
		Value:    uint256.NewInt(0),
		Gas:      5000,
	})

	require.False(t, result.Failed())
	require.True(t, callerStub.ran)
	require.Equal(t, 2, calls) // one frame for the caller, one for the trapped sub-call
	require.Equal(t, common.HexToHash("0x2a"), sdb.GetState(callee, common.HexToHash("0x1")))
	require.True(t, substate.Touched.Contains(caller))
	require.True(t, substate.Touched.Contains(callee))
}

func TestFinalizeRevertsStorageOnRevertingError(t *testing.T) {
	addr := common.HexToAddress("0x1000000000000000000000000000000000000003")
	key := common.HexToHash("0x7")

	factory := func(*ActionParams) Executable {
		return &revertingStub{key: key, value: common.HexToHash("0x99")}
	}
	ex, sdb := newTestExecutive(t, factory)
	sdb.CreateAccount(addr)
	sdb.SetState(addr, key, common.HexToHash("0x1"))
	sdb.Finalise(false)

	result, _ := ex.Call(&ActionParams{
		Kind:     ActionCall,
		Address:  addr,
		CodeAddr: addr,
		Code:     []byte{0x01},
		Value:    uint256.NewInt(0),
		Gas:      1000,
	})

	require.True(t, result.Failed())
	require.Equal(t, common.HexToHash("0x1"), sdb.GetState(addr, key))
}

func TestCreateIntoExistingAccountRejectedByEIP684(t *testing.T) {
	addr := common.HexToAddress("0x1000000000000000000000000000000000000004")
	factory := func(*ActionParams) Executable {
		t.Fatal("factory must not be consulted for an EIP-684 reject")
		return nil
	}
	ex, sdb := newTestExecutive(t, factory)
	sdb.CreateAccount(addr)
	sdb.SetNonce(addr, 1) // pre-existing account: create into it must be rejected

	result, _ := ex.Create(&ActionParams{
		Kind:    ActionCreate,
		Address: addr,
		Code:    []byte{0x01},
		Value:   uint256.NewInt(0),
		Gas:     1000,
	})

	require.True(t, result.Failed())
	require.Equal(t, ErrOutOfGas, result.Err)
	require.Equal(t, uint64(0), result.GasLeft)
}

func TestIntrinsicGasChargesMoreForContractCreation(t *testing.T) {
	schedule := (&params.ChainConfig{}).ScheduleForBlock(0)

	callGas, err := IntrinsicGas(types.ActionCall, nil, schedule)
	require.NoError(t, err)
	require.Equal(t, schedule.TxGas, callGas)

	createGas, err := IntrinsicGas(types.ActionCreate, nil, schedule)
	require.NoError(t, err)
	require.Equal(t, schedule.TxGasContractCreation, createGas)
	require.Greater(t, createGas, callGas)
}

func TestIntrinsicGasChargesPerDataByte(t *testing.T) {
	schedule := (&params.ChainConfig{}).ScheduleForBlock(0)

	zero, err := IntrinsicGas(types.ActionCall, []byte{0x00, 0x00}, schedule)
	require.NoError(t, err)
	nonZero, err := IntrinsicGas(types.ActionCall, []byte{0x01, 0x01}, schedule)
	require.NoError(t, err)

	require.Equal(t, schedule.TxGas+2*schedule.TxDataZeroGas, zero)
	require.Equal(t, schedule.TxGas+2*schedule.TxDataNonZeroGasFrontier, nonZero)
}
