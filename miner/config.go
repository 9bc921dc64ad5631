// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package miner

import (
	"time"

	"github.com/coreeth-io/coreeth/common"
)

// Config bundles the authoring parameters the pending-block builder reads
// every time it opens a new block (spec §4.8 "authoring parameters (author,
// gas range, extra data)").
type Config struct {
	Author    common.Address
	ExtraData []byte

	// GasFloor/GasCeil bound the gas limit of an authored block: the
	// parent's limit is reused as is, clamped to this range. A zero bound
	// is not applied.
	GasFloor uint64
	GasCeil  uint64

	// SlowTxThreshold is the execution latency above which a transaction's
	// sender is penalized in future rounds (spec §4.8 "penalize senders of
	// transactions whose execution exceeds a configured latency
	// threshold"). Zero disables penalization.
	SlowTxThreshold time.Duration
}

// gasLimit derives the new block's gas limit from the parent's, clamped to
// [GasFloor, GasCeil].
func (c Config) gasLimit(parentLimit uint64) uint64 {
	limit := parentLimit
	if c.GasFloor != 0 && limit < c.GasFloor {
		limit = c.GasFloor
	}
	if c.GasCeil != 0 && limit > c.GasCeil {
		limit = c.GasCeil
	}
	return limit
}
