// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package types

import "github.com/coreeth-io/coreeth/common"

// Log is a single contract event entry (spec §3 "Substate.logs").
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte

	// Indexing metadata, filled in when the log is appended to a mined
	// block's receipt; zero for logs still inside a speculative call.
	BlockNumber uint64
	TxHash      common.Hash
	TxIndex     uint
	BlockHash   common.Hash
	Index       uint

	// Removed is set on logs replayed during a reorg's retraction pass.
	Removed bool
}

// CopyLog returns a shallow copy of l (topics/data slices are shared; callers
// that mutate them must copy first), matching the allocation discipline
// go-ethereum's own log-copying helpers use in hot call paths.
func CopyLog(l *Log) *Log {
	cpy := *l
	return &cpy
}
