// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package vm implements the call/create executive (component F): the
// transaction dispatcher and the trap/resume driven call-stack that runs
// sub-calls and sub-creates against the state overlay, plus the substate
// (component E) that accumulates their side-effects. The EVM opcode
// interpreter itself is out of scope (spec §1): it is consumed here only
// through the Factory/Executable contract of spec §4.5/§6.
package vm

import (
	"errors"
	"fmt"
)

// ExecutionErrorKind enumerates the transaction-level rejections of spec §7
// ("ExecutionError"). None of these mutate committed state.
type ExecutionErrorKind int

const (
	ErrKindNotEnoughBaseGas ExecutionErrorKind = iota
	ErrKindBlockGasLimitReached
	ErrKindInvalidNonce
	ErrKindNotEnoughCash
	ErrKindSenderMustExist
	ErrKindTransactionMalformed
	ErrKindInternal
)

// ExecutionError is what Executive.Transact reports in Executed.Exception
// for every rejection that happens before or around execution, never from
// inside a call frame (those are VmErrors, see below).
type ExecutionError struct {
	Kind ExecutionErrorKind
	Msg  string
}

func (e *ExecutionError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("execution error: %v", e.Kind)
	}
	return fmt.Sprintf("execution error: %v: %s", e.Kind, e.Msg)
}

func (k ExecutionErrorKind) String() string {
	switch k {
	case ErrKindNotEnoughBaseGas:
		return "NotEnoughBaseGas"
	case ErrKindBlockGasLimitReached:
		return "BlockGasLimitReached"
	case ErrKindInvalidNonce:
		return "InvalidNonce"
	case ErrKindNotEnoughCash:
		return "NotEnoughCash"
	case ErrKindSenderMustExist:
		return "SenderMustExist"
	case ErrKindTransactionMalformed:
		return "TransactionMalformed"
	case ErrKindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

func newExecErr(kind ExecutionErrorKind, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsInternal reports whether err is an ExecutionError or a VmError of kind
// Internal, the only variant that signals a bug rather than a
// consensus-normal rejection.
func IsInternal(err error) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Kind == ErrKindInternal
	}
	var ve *VmError
	if errors.As(err, &ve) {
		return ve.Kind == VmErrKindInternal
	}
	return false
}

// VmErrorKind enumerates the per-frame error classes of spec §7 ("VmError").
// Every kind except Internal reverts the frame that produced it.
type VmErrorKind int

const (
	VmErrKindOutOfGas VmErrorKind = iota
	VmErrKindOutOfStack
	VmErrKindBadJumpDestination
	VmErrKindBadInstruction
	VmErrKindStackUnderflow
	VmErrKindMutableCallInStaticContext
	VmErrKindBuiltIn
	VmErrKindOutOfBounds
	VmErrKindReverted
	VmErrKindInternal
)

// VmError is the error class a call/create frame fails with.
type VmError struct {
	Kind VmErrorKind
	Msg  string
}

func (e *VmError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("vm error: %v", e.Kind)
	}
	return fmt.Sprintf("vm error: %v: %s", e.Kind, e.Msg)
}

func (k VmErrorKind) String() string {
	switch k {
	case VmErrKindOutOfGas:
		return "OutOfGas"
	case VmErrKindOutOfStack:
		return "OutOfStack"
	case VmErrKindBadJumpDestination:
		return "BadJumpDestination"
	case VmErrKindBadInstruction:
		return "BadInstruction"
	case VmErrKindStackUnderflow:
		return "StackUnderflow"
	case VmErrKindMutableCallInStaticContext:
		return "MutableCallInStaticContext"
	case VmErrKindBuiltIn:
		return "BuiltIn"
	case VmErrKindOutOfBounds:
		return "OutOfBounds"
	case VmErrKindReverted:
		return "Reverted"
	case VmErrKindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Reverts reports whether a frame failing with this error kind must revert
// its checkpoint (spec §4.5: "reverts on every VM error class ... Internal
// errors do not revert").
func (k VmErrorKind) Reverts() bool { return k != VmErrKindInternal }

var (
	// ErrOutOfGas is the sentinel the interpreter returns on gas exhaustion.
	ErrOutOfGas    = &VmError{Kind: VmErrKindOutOfGas}
	ErrReverted    = &VmError{Kind: VmErrKindReverted}
	ErrMaxCallDepth = errors.New("vm: max call depth exceeded")
)
