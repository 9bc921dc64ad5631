// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package rawdb

import (
	"math/big"

	"github.com/golang/snappy"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/rlp"
)

// ReadCanonicalHash returns the hash assigned to a canonical block number
// (spec §4.6 "number->hash lookup in its own column").
func ReadCanonicalHash(db ethdb.KeyValueReader, number uint64) common.Hash {
	data, _ := db.Get(headerHashKey(number))
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// WriteCanonicalHash assigns hash as the canonical block at number.
func WriteCanonicalHash(db ethdb.KeyValueWriter, hash common.Hash, number uint64) {
	db.Put(headerHashKey(number), hash.Bytes())
}

// DeleteCanonicalHash removes a number's canonical mapping, used when a
// reorg retracts a block from the canonical chain (spec §4.6 "retracting
// old addresses").
func DeleteCanonicalHash(db ethdb.KeyValueWriter, number uint64) {
	db.Delete(headerHashKey(number))
}

// ReadHeaderNumber returns the block number for hash, using the
// hash->number side index so headers remain addressable by hash alone.
func ReadHeaderNumber(db ethdb.KeyValueReader, hash common.Hash) *uint64 {
	data, _ := db.Get(headerNumberKey(hash))
	if len(data) != 8 {
		return nil
	}
	number := decodeBlockNumber(data)
	return &number
}

func decodeBlockNumber(enc []byte) uint64 {
	var n uint64
	for _, b := range enc {
		n = n<<8 | uint64(b)
	}
	return n
}

// ReadHeadBlockHash returns the "best" canonical head (spec §4.6 special key
// "best").
func ReadHeadBlockHash(db ethdb.KeyValueReader) common.Hash {
	data, _ := db.Get(headBlockKey)
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

func WriteHeadBlockHash(db ethdb.KeyValueWriter, hash common.Hash) {
	db.Put(headBlockKey, hash.Bytes())
}

func ReadHeadHeaderHash(db ethdb.KeyValueReader) common.Hash {
	data, _ := db.Get(headHeaderKey)
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

func WriteHeadHeaderHash(db ethdb.KeyValueWriter, hash common.Hash) {
	db.Put(headHeaderKey, hash.Bytes())
}

// ReadFirstBlockNumber returns the earliest block in the best contiguous
// range (spec §4.6 special key "first"), or 0 if unset.
func ReadFirstBlockNumber(db ethdb.KeyValueReader) uint64 {
	data, _ := db.Get(firstBlockKey)
	if len(data) != 8 {
		return 0
	}
	return decodeBlockNumber(data)
}

func WriteFirstBlockNumber(db ethdb.KeyValueWriter, number uint64) {
	db.Put(firstBlockKey, encodeBlockNumber(number))
}

// ReadAncientHead returns the head of the ancient contiguous range (spec
// §4.6 special key "ancient"), present only when a gap exists between the
// pruned ancient store and recent state.
func ReadAncientHead(db ethdb.KeyValueReader) (uint64, bool) {
	data, _ := db.Get(ancientKey)
	if len(data) != 8 {
		return 0, false
	}
	return decodeBlockNumber(data), true
}

func WriteAncientHead(db ethdb.KeyValueWriter, number uint64) {
	db.Put(ancientKey, encodeBlockNumber(number))
}

// ReadHeaderRLP returns the snappy-compressed, RLP-encoded header blob as
// stored, without decoding it.
func ReadHeaderRLP(db ethdb.KeyValueReader, hash common.Hash, number uint64) []byte {
	data, _ := db.Get(headerKey(number, hash))
	if len(data) == 0 {
		return nil
	}
	dec, err := snappy.Decode(nil, data)
	if err != nil {
		return nil
	}
	return dec
}

// ReadHeader decodes the header stored for (hash, number), or nil if absent.
func ReadHeader(db ethdb.KeyValueReader, hash common.Hash, number uint64) *types.Header {
	data := ReadHeaderRLP(db, hash, number)
	if data == nil {
		return nil
	}
	header := new(types.Header)
	if err := rlp.DecodeBytes(data, header); err != nil {
		return nil
	}
	return header
}

// WriteHeader persists header, snappy-compressed, and maintains the
// hash->number side index.
func WriteHeader(db ethdb.KeyValueWriter, header *types.Header) {
	hash, number := header.Hash(), header.Number
	enc, err := rlp.EncodeToBytes(header)
	if err != nil {
		return
	}
	db.Put(headerKey(number, hash), snappy.Encode(nil, enc))
	db.Put(headerNumberKey(hash), encodeBlockNumber(number))
}

func DeleteHeader(db ethdb.KeyValueWriter, hash common.Hash, number uint64) {
	db.Delete(headerKey(number, hash))
	db.Delete(headerNumberKey(hash))
}

// ReadBodyRLP returns the snappy-compressed, RLP-encoded body blob.
func ReadBodyRLP(db ethdb.KeyValueReader, hash common.Hash, number uint64) []byte {
	data, _ := db.Get(blockBodyKey(number, hash))
	if len(data) == 0 {
		return nil
	}
	dec, err := snappy.Decode(nil, data)
	if err != nil {
		return nil
	}
	return dec
}

func ReadBody(db ethdb.KeyValueReader, hash common.Hash, number uint64) *types.Body {
	data := ReadBodyRLP(db, hash, number)
	if data == nil {
		return nil
	}
	body := new(types.Body)
	if err := rlp.DecodeBytes(data, body); err != nil {
		return nil
	}
	return body
}

func WriteBody(db ethdb.KeyValueWriter, hash common.Hash, number uint64, body *types.Body) {
	enc, err := rlp.EncodeToBytes(body)
	if err != nil {
		return
	}
	db.Put(blockBodyKey(number, hash), snappy.Encode(nil, enc))
}

func DeleteBody(db ethdb.KeyValueWriter, hash common.Hash, number uint64) {
	db.Delete(blockBodyKey(number, hash))
}

// ReadBlock reassembles a full block from its separately stored header and
// body, or nil if either is missing.
func ReadBlock(db ethdb.KeyValueReader, hash common.Hash, number uint64) *types.Block {
	header := ReadHeader(db, hash, number)
	if header == nil {
		return nil
	}
	body := ReadBody(db, hash, number)
	if body == nil {
		return nil
	}
	return types.NewBlock(header, body)
}

func WriteBlock(db ethdb.KeyValueWriter, block *types.Block) {
	WriteBody(db, block.Hash(), block.NumberU64(), block.Body())
	WriteHeader(db, block.Header())
}

// ReadTd returns the total difficulty accumulated up to and including
// (hash, number).
func ReadTd(db ethdb.KeyValueReader, hash common.Hash, number uint64) *big.Int {
	data, _ := db.Get(blockTdKey(number, hash))
	if len(data) == 0 {
		return nil
	}
	td := new(big.Int)
	if err := rlp.DecodeBytes(data, td); err != nil {
		return nil
	}
	return td
}

func WriteTd(db ethdb.KeyValueWriter, hash common.Hash, number uint64, td *big.Int) {
	enc, err := rlp.EncodeToBytes(td)
	if err != nil {
		return
	}
	db.Put(blockTdKey(number, hash), enc)
}

// ReadReceipts decodes the receipt list stored for (hash, number). It makes
// no canonical-hash check: receipts are stored for every imported block,
// canonical or not.
func ReadReceipts(db ethdb.KeyValueReader, hash common.Hash, number uint64) types.Receipts {
	data, _ := db.Get(blockReceiptsKey(number, hash))
	if len(data) == 0 {
		return nil
	}
	dec, err := snappy.Decode(nil, data)
	if err != nil {
		return nil
	}
	var receipts types.Receipts
	if err := rlp.DecodeBytes(dec, &receipts); err != nil {
		return nil
	}
	return receipts
}

func WriteReceipts(db ethdb.KeyValueWriter, hash common.Hash, number uint64, receipts types.Receipts) {
	enc, err := rlp.EncodeToBytes(receipts)
	if err != nil {
		return
	}
	db.Put(blockReceiptsKey(number, hash), snappy.Encode(nil, enc))
}

func DeleteReceipts(db ethdb.KeyValueWriter, hash common.Hash, number uint64) {
	db.Delete(blockReceiptsKey(number, hash))
}
