// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package types

import (
	"io"
	"math/big"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/crypto"
	"github.com/coreeth-io/coreeth/rlp"
)

// Header carries the 15 consensus fields of an Ethereum block header
// (spec §6).
type Header struct {
	ParentHash      common.Hash
	UnclesHash      common.Hash
	Author          common.Address
	StateRoot       common.Hash
	TransactionsRoot common.Hash
	ReceiptsRoot    common.Hash
	LogBloom        Bloom
	Difficulty      *big.Int
	Number          uint64
	GasLimit        uint64
	GasUsed         uint64
	Timestamp       uint64
	ExtraData       []byte
	MixHash         common.Hash
	Nonce           [8]byte
}

// Hash returns the keccak256 of the RLP-encoded header, the block's
// canonical identifier throughout the chain index (component G).
func (h *Header) Hash() common.Hash {
	enc, _ := rlp.EncodeToBytes(h)
	return crypto.Keccak256Hash(enc)
}

// Body holds everything in a block besides the header: its transactions and
// uncle headers (spec §6 "A block is [header, transactions, uncles]").
type Body struct {
	Transactions Transactions
	Uncles       []*Header
}

// Block pairs a header with its body. Blocks are immutable once built: the
// import pipeline (component H) only ever constructs new Block values.
type Block struct {
	header *Header
	body   *Body

	hash common.Hash
}

// NewBlock assembles a block from a header and body, computing and caching
// the header hash.
func NewBlock(header *Header, body *Body) *Block {
	b := &Block{header: header, body: body}
	b.hash = header.Hash()
	return b
}

func (b *Block) Header() *Header             { return b.header }
func (b *Block) Body() *Body                 { return b.body }
func (b *Block) Hash() common.Hash           { return b.hash }
func (b *Block) NumberU64() uint64           { return b.header.Number }
func (b *Block) ParentHash() common.Hash     { return b.header.ParentHash }
func (b *Block) Transactions() Transactions  { return b.body.Transactions }
func (b *Block) Uncles() []*Header           { return b.body.Uncles }
func (b *Block) Difficulty() *big.Int        { return new(big.Int).Set(b.header.Difficulty) }
func (b *Block) GasLimit() uint64            { return b.header.GasLimit }
func (b *Block) GasUsed() uint64             { return b.header.GasUsed }
func (b *Block) Time() uint64                { return b.header.Timestamp }
func (b *Block) Author() common.Address      { return b.header.Author }

// WithBody returns a copy of b with its body replaced, used to reattach
// receipts-derived transactions after RLP round-tripping.
func (b *Block) WithBody(body *Body) *Block {
	return NewBlock(b.header, body)
}

// rlpBlock is the wire encoding: [header, transactions, uncles].
type rlpBlock struct {
	Header       *Header
	Transactions Transactions
	Uncles       []*Header
}

func (b *Block) EncodeRLP(w io.Writer) error {
	enc, err := rlp.EncodeToBytes(&rlpBlock{b.header, b.body.Transactions, b.body.Uncles})
	if err != nil {
		return err
	}
	_, err = w.Write(enc)
	return err
}

func (b *Block) DecodeRLP(s *rlp.Stream) error {
	var dec rlpBlock
	if err := s.Decode(&dec); err != nil {
		return err
	}
	b.header = dec.Header
	b.body = &Body{Transactions: dec.Transactions, Uncles: dec.Uncles}
	b.hash = b.header.Hash()
	return nil
}
