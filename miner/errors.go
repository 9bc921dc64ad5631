// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package miner

import "errors"

// ErrAlreadyImported is returned by SubmitTransaction for a transaction
// already held in the builder's queue (spec §4.8 "drop AlreadyImported
// silently").
var ErrAlreadyImported = errors.New("miner: transaction already imported")

// execOutcome classifies how a popped transaction's attempt to enter the
// pending block came out, following the dispatch original_source/ethcore's
// miner.rs uses in its prepare_block packing loop.
type execOutcome int

const (
	// outcomeIncluded means the transaction was appended to the block.
	outcomeIncluded execOutcome = iota

	// outcomeGasLimitSkip counts against MaxSkippedTransactions and is
	// requeued for a future, larger block.
	outcomeGasLimitSkip

	// outcomeRetryLater is requeued without counting against the skip
	// budget (spec §4.8: an invalid-nonce rejection can only happen
	// because an earlier transaction from the same sender was itself
	// skipped for gas, so this one deserves another attempt).
	outcomeRetryLater

	// outcomeNotAllowed is requeued and kept in the pool, but this round's
	// block cannot fit it regardless of ordering (spec §4.8 "mark
	// NotAllowed but keep in pool").
	outcomeNotAllowed

	// outcomeInvalid is a transaction that can never become valid and is
	// dropped from the queue for good.
	outcomeInvalid
)
