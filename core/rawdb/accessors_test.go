// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package rawdb

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb/memorydb"
)

func testHeader(number uint64, parent common.Hash) *types.Header {
	return &types.Header{
		ParentHash: parent,
		Difficulty: big.NewInt(int64(number) + 1),
		Number:     number,
		GasLimit:   8_000_000,
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	db := memorydb.New()
	header := testHeader(1, common.HexToHash("0xaa"))

	require.Nil(t, ReadHeader(db, header.Hash(), header.Number))

	WriteHeader(db, header)
	got := ReadHeader(db, header.Hash(), header.Number)
	require.NotNil(t, got)
	require.Equal(t, header.Hash(), got.Hash())

	number := ReadHeaderNumber(db, header.Hash())
	require.NotNil(t, number)
	require.Equal(t, header.Number, *number)

	DeleteHeader(db, header.Hash(), header.Number)
	require.Nil(t, ReadHeader(db, header.Hash(), header.Number))
	require.Nil(t, ReadHeaderNumber(db, header.Hash()))
}

func TestBodyRoundTrip(t *testing.T) {
	db := memorydb.New()
	hash, number := common.HexToHash("0x1"), uint64(3)

	require.Nil(t, ReadBody(db, hash, number))

	body := &types.Body{Transactions: types.Transactions{testTransaction(0)}}
	WriteBody(db, hash, number, body)

	got := ReadBody(db, hash, number)
	require.NotNil(t, got)
	require.Len(t, got.Transactions, 1)
	require.Equal(t, body.Transactions[0].Hash(), got.Transactions[0].Hash())

	DeleteBody(db, hash, number)
	require.Nil(t, ReadBody(db, hash, number))
}

func TestReadBlockAssemblesHeaderAndBody(t *testing.T) {
	db := memorydb.New()
	header := testHeader(5, common.HexToHash("0xbb"))
	block := types.NewBlock(header, &types.Body{})

	require.Nil(t, ReadBlock(db, block.Hash(), block.NumberU64()), "header alone must not be enough")

	WriteBlock(db, block)
	got := ReadBlock(db, block.Hash(), block.NumberU64())
	require.NotNil(t, got)
	require.Equal(t, block.Hash(), got.Hash())
}

func TestCanonicalHashRoundTrip(t *testing.T) {
	db := memorydb.New()
	hash := common.HexToHash("0xcc")

	require.Equal(t, common.Hash{}, ReadCanonicalHash(db, 7))

	WriteCanonicalHash(db, hash, 7)
	require.Equal(t, hash, ReadCanonicalHash(db, 7))

	DeleteCanonicalHash(db, 7)
	require.Equal(t, common.Hash{}, ReadCanonicalHash(db, 7))
}

func TestHeadBlockAndHeaderHash(t *testing.T) {
	db := memorydb.New()
	hash := common.HexToHash("0xdd")

	WriteHeadBlockHash(db, hash)
	require.Equal(t, hash, ReadHeadBlockHash(db))

	WriteHeadHeaderHash(db, hash)
	require.Equal(t, hash, ReadHeadHeaderHash(db))
}

func TestFirstAndAncientBlockNumber(t *testing.T) {
	db := memorydb.New()
	require.Equal(t, uint64(0), ReadFirstBlockNumber(db))

	WriteFirstBlockNumber(db, 42)
	require.Equal(t, uint64(42), ReadFirstBlockNumber(db))

	_, ok := ReadAncientHead(db)
	require.False(t, ok)

	WriteAncientHead(db, 10)
	number, ok := ReadAncientHead(db)
	require.True(t, ok)
	require.Equal(t, uint64(10), number)
}

func TestTdRoundTrip(t *testing.T) {
	db := memorydb.New()
	hash := common.HexToHash("0xee")

	require.Nil(t, ReadTd(db, hash, 1))

	WriteTd(db, hash, 1, big.NewInt(12345))
	td := ReadTd(db, hash, 1)
	require.NotNil(t, td)
	require.Equal(t, big.NewInt(12345), td)
}

func TestReceiptsRoundTrip(t *testing.T) {
	db := memorydb.New()
	hash := common.HexToHash("0xff")

	receipts := types.Receipts{types.NewReceipt(nil, false, 21000)}
	require.Nil(t, ReadReceipts(db, hash, 1))

	WriteReceipts(db, hash, 1, receipts)
	got := ReadReceipts(db, hash, 1)
	require.Len(t, got, 1)
	require.Equal(t, receipts[0].CumulativeGasUsed, got[0].CumulativeGasUsed)

	DeleteReceipts(db, hash, 1)
	require.Nil(t, ReadReceipts(db, hash, 1))
}

func TestBlockDetailsRoundTrip(t *testing.T) {
	db := memorydb.New()
	hash := common.HexToHash("0x10")

	require.Nil(t, ReadBlockDetails(db, hash))

	details := &types.BlockDetails{Number: 9, TotalDifficulty: big.NewInt(99), Parent: common.HexToHash("0x9")}
	WriteBlockDetails(db, hash, details)

	got := ReadBlockDetails(db, hash)
	require.NotNil(t, got)
	require.Equal(t, details.Number, got.Number)
	require.Equal(t, details.TotalDifficulty, got.TotalDifficulty)
	require.Equal(t, details.Parent, got.Parent)

	DeleteBlockDetails(db, hash)
	require.Nil(t, ReadBlockDetails(db, hash))
}

func testTransaction(nonce uint64) *types.Transaction {
	to := common.HexToAddress("0x1000000000000000000000000000000000000099")
	return &types.Transaction{
		Nonce:    nonce,
		GasPrice: uint256.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    uint256.NewInt(0),
		V:        uint256.NewInt(0),
		R:        uint256.NewInt(0),
		S:        uint256.NewInt(0),
	}
}

func TestTxLookupEntriesRoundTrip(t *testing.T) {
	db := memorydb.New()
	blockHash := common.HexToHash("0x20")
	txs := types.Transactions{testTransaction(0), testTransaction(1)}

	for _, tx := range txs {
		require.Nil(t, ReadTxLookupEntry(db, tx.Hash()))
	}

	WriteTxLookupEntries(db, blockHash, txs)

	for i, tx := range txs {
		addr := ReadTransactionAddress(db, tx.Hash())
		require.NotNil(t, addr)
		require.Equal(t, blockHash, addr.BlockHash)
		require.Equal(t, uint64(i), addr.Index)

		gotHash := ReadTxLookupEntry(db, tx.Hash())
		require.NotNil(t, gotHash)
		require.Equal(t, blockHash, *gotHash)
	}

	DeleteTxLookupEntries(db, txs)
	for _, tx := range txs {
		require.Nil(t, ReadTxLookupEntry(db, tx.Hash()))
	}
}

func TestEpochTransitionPendingThenConfirmed(t *testing.T) {
	db := memorydb.New()
	hash := common.HexToHash("0x30")

	require.Nil(t, ReadPendingEpochTransition(db, hash))

	pending := &types.EpochTransition{BlockHash: hash, BlockNumber: 30000}
	WritePendingEpochTransition(db, hash, pending)

	got := ReadPendingEpochTransition(db, hash)
	require.NotNil(t, got)
	require.Equal(t, pending.BlockNumber, got.BlockNumber)

	require.Nil(t, ReadConfirmedEpochTransition(db, 30000))
	ConfirmEpochTransition(db, 30000, pending)
	confirmed := ReadConfirmedEpochTransition(db, 30000)
	require.NotNil(t, confirmed)
	require.Equal(t, hash, confirmed.BlockHash)

	DeletePendingEpochTransition(db, hash)
	require.Nil(t, ReadPendingEpochTransition(db, hash))
	// the confirmed record is independent of the pending one being cleared.
	require.NotNil(t, ReadConfirmedEpochTransition(db, 30000))
}
