// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package bloombits

import (
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/params"
)

// Matches returns the block numbers in [from, to] whose level-0 group could
// possibly contain a log matching every item in want (addresses and/or
// topics, each tested independently and ANDed together) — a coarse
// pre-filter (spec §4.6 "logs queries reduce candidate block numbers by
// range filtering against the hierarchy before scanning block receipts").
// Callers still confirm each candidate against its own per-block bloom (and
// ultimately its receipts) before reporting a match.
func Matches(db ethdb.Database, from, to uint64, want [][]byte) []uint64 {
	if len(want) == 0 || from > to {
		return nil
	}
	var candidates []uint64
	descend(db, params.LogBloomLevels-1, from, to, want, &candidates)
	return candidates
}

// descend walks the hierarchy from the coarsest requested level down to
// level 0, over [from, to], skipping whole groups whose aggregate bloom
// already misses an item in want — the hierarchy's actual payoff, since a
// miss at level 2 discards up to 4096 blocks in one bloom test.
func descend(db ethdb.Database, level int, from, to uint64, want [][]byte, out *[]uint64) {
	size := groupSize(level)
	for groupStart := (from / size) * size; groupStart <= to; groupStart += size {
		groupEnd := groupStart + size - 1
		if groupEnd < from {
			continue
		}
		group := ReadGroup(db, level, groupStart/size)
		if !testAll(group, want) {
			continue
		}
		lo, hi := max64(from, groupStart), min64(to, groupEnd)
		if level == 0 {
			for b := lo; b <= hi; b++ {
				*out = append(*out, b)
			}
			continue
		}
		descend(db, level-1, lo, hi, want, out)
	}
}

func testAll(group interface{ Test([]byte) bool }, want [][]byte) bool {
	for _, item := range want {
		if !group.Test(item) {
			return false
		}
	}
	return true
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
