// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package bloombits

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb/memorydb"
)

func bloomFor(item []byte) types.Bloom {
	var b types.Bloom
	b.Add(item)
	return b
}

func TestAddBloomSkipsTheZeroBloom(t *testing.T) {
	db := memorydb.New()
	AddBloom(db, 0, types.Bloom{})
	require.Equal(t, types.Bloom{}, ReadGroup(db, 0, 0))
}

// TestAddBloomHierarchyInvariant checks level-k[i] == OR of
// level-(k-1)[16i .. 16i+15], the defining relationship of the bloom
// hierarchy (spec §4.6/§9): every level is folded from the same per-block
// blooms, so a coarser group's bits must equal the union of the 16 finer
// groups beneath it.
func TestAddBloomHierarchyInvariant(t *testing.T) {
	db := memorydb.New()
	items := make([]types.Bloom, 20)
	for i := range items {
		items[i] = bloomFor([]byte{byte(i)})
		AddBloom(db, uint64(i), items[i])
	}

	level0Group0 := ReadGroup(db, 0, 0) // blocks 0..15
	level0Group1 := ReadGroup(db, 0, 1) // blocks 16..31 (only 16..19 populated)

	var wantGroup0 types.Bloom
	for i := 0; i < 16; i++ {
		wantGroup0 = types.OrBloom(wantGroup0, items[i])
	}
	require.Equal(t, wantGroup0, level0Group0)

	var wantGroup1 types.Bloom
	for i := 16; i < 20; i++ {
		wantGroup1 = types.OrBloom(wantGroup1, items[i])
	}
	require.Equal(t, wantGroup1, level0Group1)

	level1Group0 := ReadGroup(db, 1, 0) // blocks 0..255, covers both level-0 groups above
	require.Equal(t, types.OrBloom(level0Group0, level0Group1), level1Group0)
}

// TestMatchesDiscardsWholeGroupsMissingTheBit checks the hierarchy's actual
// payoff: a level-0 group (16 blocks) whose aggregate bloom never saw the
// queried item is skipped entirely, while a group containing even one
// matching block is returned in full (Matches yields coarse per-group
// candidates; it is each candidate's receipts that confirm the real match,
// per the package doc).
func TestMatchesDiscardsWholeGroupsMissingTheBit(t *testing.T) {
	db := memorydb.New()
	topic := []byte("needle")

	// blocks 0..15: no block carries the topic.
	for i := uint64(0); i < 16; i++ {
		AddBloom(db, i, bloomFor([]byte{byte(i), 0xaa}))
	}
	// blocks 16..31: only block 20 carries it.
	for i := uint64(16); i < 32; i++ {
		if i == 20 {
			AddBloom(db, i, bloomFor(topic))
			continue
		}
		AddBloom(db, i, bloomFor([]byte{byte(i), 0xbb}))
	}

	got := Matches(db, 0, 31, [][]byte{topic})

	want := make([]uint64, 0, 16)
	for i := uint64(16); i < 32; i++ {
		want = append(want, i)
	}
	require.Equal(t, want, got, "the whole 16-block group containing block 20 comes back as one coarse candidate run")
}

func TestMatchesEmptyWantOrInvertedRange(t *testing.T) {
	db := memorydb.New()
	require.Nil(t, Matches(db, 0, 10, nil))
	require.Nil(t, Matches(db, 10, 5, [][]byte{[]byte("x")}))
}

func TestMatchesReturnsNoCandidatesWhenNothingIndexed(t *testing.T) {
	db := memorydb.New()
	got := Matches(db, 0, 100, [][]byte{[]byte("absent")})
	require.Empty(t, got)
}
