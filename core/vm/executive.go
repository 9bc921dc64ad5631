// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package vm

import (
	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/params"
)

// frame is one entry of the executive's explicit call-stack (spec §9
// "Trap-based sub-call control flow"): the Frame kinds of spec §4.5
// (Transfer, CallBuiltin, ExecCall, ExecCreate, ResumeCall, ResumeCreate)
// collapse here into "has an Executable, or doesn't yet" — a frame with
// exe == nil is settled synchronously by enterFrame (Transfer/CallBuiltin/
// the EIP-684 reject) and never actually calls Run/Resume.
type frame struct {
	params      *ActionParams
	substate    *Substate
	exe         Executable
	started     bool
	checkpointed bool
	newAddr     common.Address // valid when params.Kind == ActionCreate
}

// hostExt is the Externalities view (spec §4.4) of one live frame: every
// call an Executable makes is routed through here to the shared StateDB and
// this frame's own substate/params, never directly.
type hostExt struct {
	ex *Executive
	f  *frame
}

func (h *hostExt) StorageAt(key common.Hash) common.Hash {
	return h.ex.state.GetState(h.f.params.Address, key)
}

func (h *hostExt) SetStorage(key, value common.Hash) {
	h.ex.state.SetState(h.f.params.Address, key, value)
}

func (h *hostExt) OriginalStorageAt(key common.Hash) common.Hash {
	return h.ex.state.GetCommittedState(h.f.params.Address, key)
}

func (h *hostExt) Balance(addr common.Address) *uint256.Int { return h.ex.state.GetBalance(addr) }

func (h *hostExt) BlockHash(number uint64) common.Hash { return h.ex.block.blockHash(number) }

func (h *hostExt) ExtCode(addr common.Address) []byte        { return h.ex.state.GetCode(addr) }
func (h *hostExt) ExtCodeSize(addr common.Address) int       { return h.ex.state.GetCodeSize(addr) }
func (h *hostExt) ExtCodeHash(addr common.Address) common.Hash { return h.ex.state.GetCodeHash(addr) }

func (h *hostExt) Log(topics []common.Hash, data []byte) {
	h.f.substate.Logs = append(h.f.substate.Logs, newLog(h.f.params.Address, topics, data))
}

// Suicide marks the frame's own account self-destructed and routes its
// balance to refundTo (spec §4.4 "suicide(refund_to)"); the account is not
// actually removed until the substate reaches Finalise (spec §4.3).
func (h *hostExt) Suicide(refundTo common.Address) {
	addr := h.f.params.Address
	if h.ex.state.HasSelfDestructed(addr) {
		return
	}
	balance := h.ex.state.SelfDestruct(addr)
	if refundTo != addr && !balance.IsZero() {
		h.ex.state.AddBalance(refundTo, balance)
	}
	h.f.substate.Suicides.Add(addr)
	h.f.substate.Touched.Add(refundTo)
}

func (h *hostExt) IsStaticCall() bool        { return h.f.params.StaticCall }
func (h *hostExt) Depth() int                { return h.f.params.Depth }
func (h *hostExt) Schedule() params.Schedule { return h.ex.schedule }

// enterFrame performs every state mutation a frame needs *before* its code
// (if any) runs: the EIP-684 guard, the checkpoint, the value transfer, and
// (for creates) materializing the new account — grounded on
// `original_source/ethcore/src/executive.rs`'s `CallCreateExecutive::new`.
// It returns the frame plus, for frames with no further code to run
// (Transfer, CallBuiltin, or an EIP-684 reject), the already-computed
// result; callers drive the frame's Executable only when that result is nil.
func (ex *Executive) enterFrame(p *ActionParams) (*frame, *ExecutionResult) {
	f := &frame{params: p, substate: NewSubstate()}
	if ex.cfg.Tracer != nil {
		ex.cfg.Tracer.CaptureStart(p)
	}

	if p.Depth > params.MaxCallDepth {
		return f, &ExecutionResult{GasLeft: 0, Err: &VmError{Kind: VmErrKindOutOfStack}}
	}

	if p.Kind == ActionCreate {
		f.newAddr = p.Address
		if ex.state.GetNonce(p.Address) != 0 || len(ex.state.GetCode(p.Address)) > 0 {
			// EIP-684: creating into an address that already has code or a
			// non-zero nonce burns the entire gas allowance, no checkpoint
			// is even opened since nothing was mutated (spec §4.5).
			return f, &ExecutionResult{GasLeft: 0, Err: ErrOutOfGas}
		}
	}

	ex.state.Checkpoint()
	f.checkpointed = true

	if !p.Value.IsZero() {
		ex.state.SubBalance(p.Sender, p.Value)
		ex.state.AddBalance(p.Address, p.Value)
	} else {
		ex.state.AddBalance(p.Address, p.Value) // zero-value touch, EIP-161 relevance
	}
	f.substate.Touched.Add(p.Sender)
	f.substate.Touched.Add(p.Address)

	if p.Kind == ActionCreate {
		ex.state.CreateAccount(p.Address)
		f.substate.ContractsCreated = append(f.substate.ContractsCreated, p.Address)
	}

	switch {
	case IsPrecompile(p.CodeAddr):
		out, gasLeft, err := runPrecompile(p.CodeAddr, p.Data, p.Gas)
		return f, &ExecutionResult{GasLeft: gasLeft, Output: out, Err: err}
	case len(p.Code) == 0:
		return f, &ExecutionResult{GasLeft: p.Gas}
	default:
		f.exe = ex.cfg.Factory(p)
		return f, nil
	}
}

// finalize applies the per-frame outcome to state: a reverting error class
// (spec §7 "all except Internal revert the current frame") unwinds the
// checkpoint; any other outcome discards it, leaving the frame's mutations
// live for the parent to inherit.
func (ex *Executive) finalize(f *frame, res *ExecutionResult) *ExecutionResult {
	if ex.cfg.Tracer != nil {
		gasUsed := uint64(0)
		if f.params.Gas > res.GasLeft {
			gasUsed = f.params.Gas - res.GasLeft
		}
		ex.cfg.Tracer.CaptureEnd(res, gasUsed)
	}
	if !f.checkpointed {
		return res
	}
	if res.Err != nil {
		if ve, ok := res.Err.(*VmError); ok && !ve.Reverts() {
			// Internal: spec §7 "does not revert" — the transaction is about
			// to abort entirely, so leaving the checkpoint open is harmless.
			return res
		}
		ex.state.RevertToCheckpoint()
		return res
	}
	ex.state.DiscardCheckpoint()
	return res
}

// exec is the single outer loop of spec §9: it drives an explicit stack of
// frames to completion without ever recursing through Go's own call stack,
// so the logical EVM depth (up to params.MaxCallDepth) never threatens a
// stack overflow regardless of how deep CALL/CREATE nesting goes.
func (ex *Executive) exec(top *ActionParams) (*ExecutionResult, *Substate) {
	var stack []*frame

	push := func(p *ActionParams) *ExecutionResult {
		f, immediate := ex.enterFrame(p)
		stack = append(stack, f)
		return immediate
	}

	var pendingResult *ExecutionResult
	var pendingAddr common.Address

	immediate := push(top)

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		var trap Trap
		switch {
		case immediate != nil:
			trap = Trap{Done: true, Result: immediate}
		case !f.started:
			f.started = true
			trap = f.exe.Run(&hostExt{ex: ex, f: f})
		default:
			trap = f.exe.Resume(&hostExt{ex: ex, f: f}, pendingResult, pendingAddr)
		}
		immediate = nil

		if trap.Done {
			stack = stack[:len(stack)-1]
			result := ex.finalize(f, trap.Result)
			if len(stack) > 0 && result.Err == nil {
				stack[len(stack)-1].substate.Merge(f.substate)
			}
			if len(stack) == 0 {
				return result, f.substate
			}
			pendingResult, pendingAddr = result, f.newAddr
			continue
		}

		child := *trap.SubParams
		child.Depth = f.params.Depth + 1
		immediate = push(&child)
	}
	panic("vm: executive loop exited with an empty stack and no result")
}
