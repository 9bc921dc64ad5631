// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package rawdb translates the chain index's domain objects (headers,
// bodies, receipts, transaction locations) into keys and compressed values
// on the opaque KV store of component A (spec §4.6/§6 "Persisted columns").
package rawdb

import (
	"encoding/binary"

	"github.com/coreeth-io/coreeth/common"
)

// Key prefixes, one logical column per prefix over the single KV namespace
// (spec §6 groups these as HEADERS/BODIES/EXTRA, collapsed here onto a flat
// store the way the teacher's own schema.go does).
var (
	headerPrefix       = []byte("h") // headerPrefix + num (8 bytes big endian) + hash -> header
	headerHashSuffix   = []byte("n") // headerPrefix + num + headerHashSuffix -> hash (canonical)
	headerNumberPrefix = []byte("H") // headerNumberPrefix + hash -> num

	blockBodyPrefix = []byte("b") // blockBodyPrefix + num + hash -> body
	blockTdPrefix   = []byte("t") // blockTdPrefix + num + hash -> total difficulty

	blockReceiptsPrefix = []byte("r") // blockReceiptsPrefix + num + hash -> receipts

	txLookupPrefix = []byte("l") // txLookupPrefix + tx hash -> TransactionAddress

	headBlockKey  = []byte("LastBlock")
	headHeaderKey = []byte("LastHeader")
	firstBlockKey = []byte("FirstBlock")
	ancientKey    = []byte("AncientHead")
)

func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

func headerKey(number uint64, hash common.Hash) []byte {
	return append(append(append([]byte{}, headerPrefix...), encodeBlockNumber(number)...), hash.Bytes()...)
}

func headerHashKey(number uint64) []byte {
	return append(append(append([]byte{}, headerPrefix...), encodeBlockNumber(number)...), headerHashSuffix...)
}

func headerNumberKey(hash common.Hash) []byte {
	return append(append([]byte{}, headerNumberPrefix...), hash.Bytes()...)
}

func blockBodyKey(number uint64, hash common.Hash) []byte {
	return append(append(append([]byte{}, blockBodyPrefix...), encodeBlockNumber(number)...), hash.Bytes()...)
}

func blockTdKey(number uint64, hash common.Hash) []byte {
	return append(append(append([]byte{}, blockTdPrefix...), encodeBlockNumber(number)...), hash.Bytes()...)
}

func blockReceiptsKey(number uint64, hash common.Hash) []byte {
	return append(append(append([]byte{}, blockReceiptsPrefix...), encodeBlockNumber(number)...), hash.Bytes()...)
}

func txLookupKey(hash common.Hash) []byte {
	return append(append([]byte{}, txLookupPrefix...), hash.Bytes()...)
}
