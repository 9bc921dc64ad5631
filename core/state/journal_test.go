// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreeth-io/coreeth/common"
)

func TestJournalDiscardMergesIntoParent(t *testing.T) {
	j := newJournal()
	addr := common.HexToAddress("0x01")

	j.push() // depth 1
	j.noteForRevert(addr, nil, nil)
	j.push() // depth 2
	j.noteForRevert(addr, nil, nil)

	j.discard() // depth 1, addr already recorded there so nothing changes
	require.Equal(t, 1, j.depth())
	require.Contains(t, j.checkpoints[0], addr)
}

func TestJournalNoteForRevertIgnoresOutsideCheckpoint(t *testing.T) {
	j := newJournal()
	j.noteForRevert(common.HexToAddress("0x01"), nil, nil)
	require.Equal(t, 0, j.depth())
}

func TestJournalRevertRemovesNeverExistedAccount(t *testing.T) {
	sdb := newTestStateDB(t)
	addr := common.HexToAddress("0x02")

	sdb.journal.push()
	sdb.journal.noteForRevert(addr, nil, sdb)
	sdb.stateObjects[addr] = newObject(sdb, addr, nil)

	sdb.journal.revert(sdb)
	_, ok := sdb.stateObjects[addr]
	require.False(t, ok)
}
