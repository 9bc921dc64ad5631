// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package core

import "fmt"

// BlockErrorKind enumerates the ways a block can fail verification during
// import: the header/family checks made before its transactions run, and
// the gas-used, receipts and state-root checks made after re-execution
// (spec §7 "BlockError").
type BlockErrorKind int

const (
	ErrKindInvalidDifficulty BlockErrorKind = iota
	ErrKindUnknownParent
	ErrKindDifficultyOutOfBounds
	ErrKindInvalidSeal
	ErrKindTemporarilyInvalid
	ErrKindInvalidReceiptsRoot
	ErrKindInvalidStateRoot
	ErrKindInvalidGasUsed
)

func (k BlockErrorKind) String() string {
	switch k {
	case ErrKindInvalidDifficulty:
		return "InvalidDifficulty"
	case ErrKindUnknownParent:
		return "UnknownParent"
	case ErrKindDifficultyOutOfBounds:
		return "DifficultyOutOfBounds"
	case ErrKindInvalidSeal:
		return "InvalidSeal"
	case ErrKindTemporarilyInvalid:
		return "TemporarilyInvalid"
	case ErrKindInvalidReceiptsRoot:
		return "InvalidReceiptsRoot"
	case ErrKindInvalidStateRoot:
		return "InvalidStateRoot"
	case ErrKindInvalidGasUsed:
		return "InvalidGasUsed"
	default:
		return "Unknown"
	}
}

// BlockError rejects a block outright: it is never written to the chain
// index, and InsertChain records the rejected block in the bad-block cache.
type BlockError struct {
	Kind BlockErrorKind
	Msg  string
}

func (e *BlockError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("block error: %v", e.Kind)
	}
	return fmt.Sprintf("block error: %v: %s", e.Kind, e.Msg)
}

func newBlockErr(kind BlockErrorKind, format string, args ...interface{}) *BlockError {
	return &BlockError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ImportErrorKind enumerates the reasons an import is skipped without even
// attempting verification (spec §7 "ImportError").
type ImportErrorKind int

const (
	ErrKindAlreadyInChain ImportErrorKind = iota
	ErrKindAlreadyQueued
	ErrKindKnownBad
)

func (k ImportErrorKind) String() string {
	switch k {
	case ErrKindAlreadyInChain:
		return "AlreadyInChain"
	case ErrKindAlreadyQueued:
		return "AlreadyQueued"
	case ErrKindKnownBad:
		return "KnownBad"
	default:
		return "Unknown"
	}
}

// ImportError is a no-op outcome: the block isn't rejected, it's simply not
// reprocessed.
type ImportError struct {
	Kind ImportErrorKind
	Hash [32]byte
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import error: %v (%x)", e.Kind, e.Hash)
}

// InvariantError marks a transaction-level failure discovered during enact
// (spec §7 "Transaction-level errors during import are invariant
// failures"): the block verified its family but its transactions did not
// replay, which can only mean the block itself is bad, not that the
// transaction was merely rejectable.
type InvariantError struct {
	TxIndex int
	Err     error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant failure: transaction %d did not replay: %v", e.TxIndex, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }
