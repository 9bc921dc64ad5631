// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package vm

import (
	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/params"
)

// StateDB is the subset of core/state.StateDB (component D) the executive
// drives directly. It is declared here, rather than imported, so this
// package has no dependency on the concrete overlay implementation —
// mirroring go-ethereum's own core/vm.StateDB seam.
type StateDB interface {
	CreateAccount(common.Address)

	SubBalance(common.Address, *uint256.Int)
	AddBalance(common.Address, *uint256.Int)
	SetBalance(common.Address, *uint256.Int)
	GetBalance(common.Address) *uint256.Int

	GetNonce(common.Address) uint64
	SetNonce(common.Address, uint64)

	GetCodeHash(common.Address) common.Hash
	GetCode(common.Address) []byte
	SetCode(common.Address, []byte)
	GetCodeSize(common.Address) int

	AddRefund(uint64)
	SubRefund(uint64)
	GetRefund() uint64

	GetCommittedState(common.Address, common.Hash) common.Hash
	GetState(common.Address, common.Hash) common.Hash
	SetState(common.Address, common.Hash, common.Hash)

	SelfDestruct(common.Address) *uint256.Int
	HasSelfDestructed(common.Address) bool

	Exist(common.Address) bool
	Empty(common.Address) bool

	AddLog(*types.Log)

	Checkpoint() int
	DiscardCheckpoint()
	RevertToCheckpoint()

	Finalise(deleteEmptyObjects bool)
}

// ActionKind distinguishes the two ways a frame can be entered (spec §3
// "tx.action" / §4.5 "dispatch on tx.action").
type ActionKind int

const (
	ActionCall ActionKind = iota
	ActionCreate
)

// ActionParams is the input to one call or create frame: everything the
// externally-supplied Executable needs to run, and everything the executive
// needs to set up and tear down the frame (checkpoint, substate, gas).
type ActionParams struct {
	Kind ActionKind

	Sender    common.Address
	CodeAddr  common.Address // the account whose code runs (== Address unless DELEGATECALL-style)
	Address   common.Address // the account storage operations apply to
	Origin    common.Address // tx.origin, unchanged across the whole call stack

	Value    *uint256.Int
	Gas      uint64
	GasPrice *uint256.Int
	Code     []byte
	CodeHash common.Hash
	Data     []byte

	Salt       *[32]byte // non-nil for CREATE2 (EIP-1014)
	StaticCall bool
	Depth      int
}

// ExecutionResult is what a completed frame (or the whole transaction)
// produced.
type ExecutionResult struct {
	GasLeft uint64
	Output  []byte
	Err     error // non-nil => frame failed; Err.(*VmError) for the kind
}

// Failed reports whether the frame ended in error.
func (r *ExecutionResult) Failed() bool { return r != nil && r.Err != nil }

// ResumeToken opaquely identifies which in-flight frame a Trap belongs to,
// handed back to Executable.Resume once the child frame completes (spec §9
// "trap-based sub-call control flow").
type ResumeToken uint64

// Trap is what Executable.Run (or Resume) returns: either the frame is done,
// or it needs the host to run a child call/create and come back (spec §4.4
// "TrapResult is either Done(result) or Trap(sub_params, resume_token)").
type Trap struct {
	Done   bool
	Result *ExecutionResult // valid iff Done

	SubParams *ActionParams // valid iff !Done
	Resume    ResumeToken
}

// Externalities is the host-call surface an Executable is run against (spec
// §4.4). The executive itself implements this for every live frame; a
// concrete Executable never talks to StateDB directly.
type Externalities interface {
	StorageAt(key common.Hash) common.Hash
	SetStorage(key, value common.Hash)
	OriginalStorageAt(key common.Hash) common.Hash

	Balance(addr common.Address) *uint256.Int
	BlockHash(number uint64) common.Hash

	ExtCode(addr common.Address) []byte
	ExtCodeSize(addr common.Address) int
	ExtCodeHash(addr common.Address) common.Hash

	Log(topics []common.Hash, data []byte)
	Suicide(refundTo common.Address)

	IsStaticCall() bool
	Depth() int
	Schedule() params.Schedule
}

// Executable is the black-box unit spec §1/§6 describes as
// "vm_factory.create(params) -> Executable": a running (or resumable)
// invocation of EVM bytecode. Run drives it from the start; Resume drives it
// forward after a trapped sub-call/sub-create has produced a result.
type Executable interface {
	Run(ext Externalities) Trap
	Resume(ext Externalities, child *ExecutionResult, createdAddr common.Address) Trap
}

// Factory constructs a fresh Executable for one call/create frame, the
// "vm_factory" of spec §1/§6. Supplied by the embedding binary; this
// package never constructs one itself.
type Factory func(params *ActionParams) Executable

// Tracer observes call/create prepare and complete events (spec §4.5
// "Tracer"); a nil Tracer is valid and traces nothing.
type Tracer interface {
	CaptureStart(params *ActionParams)
	CaptureEnd(result *ExecutionResult, gasUsed uint64)
	CaptureFault(err error)
}

// VMTracer observes individual interpreter steps (spec §4.5 "VMTracer").
// Its granularity is opcode-level, which lives inside the out-of-scope
// interpreter; this package only defines the contract an Executable may
// call into.
type VMTracer interface {
	CaptureStep(pc uint64, op byte, gas, cost uint64, depth int)
}

// NoopTracer and NoopVMTracer are the allocation-free "trace nothing"
// implementations (spec §9 "provide no-op variants whose methods compile to
// nothing").
type NoopTracer struct{}

func (NoopTracer) CaptureStart(*ActionParams)         {}
func (NoopTracer) CaptureEnd(*ExecutionResult, uint64) {}
func (NoopTracer) CaptureFault(error)                  {}

type NoopVMTracer struct{}

func (NoopVMTracer) CaptureStep(uint64, byte, uint64, uint64, int) {}
