// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package state

import "github.com/coreeth-io/coreeth/common"

// accountSnapshot is the pre-mutation image of one address at the point it
// was first touched within a checkpoint's scope: either a deep copy of the
// object that existed, or a marker that no object existed yet.
type accountSnapshot struct {
	exists bool
	object *stateObject
}

// journal implements the overlay's checkpoint stack (spec §4.3), grounded
// directly on `original_source/ethcore/src/state/mod.rs`'s
// checkpoint/discard_checkpoint/revert_to_checkpoint algorithm: each
// checkpoint is a map recording, for every address mutated since it was
// pushed, the value that address had just before its first mutation at
// this depth.
type journal struct {
	checkpoints []map[common.Address]*accountSnapshot
}

func newJournal() *journal {
	return &journal{}
}

func (j *journal) depth() int { return len(j.checkpoints) }

// push opens a new checkpoint scope.
func (j *journal) push() {
	j.checkpoints = append(j.checkpoints, make(map[common.Address]*accountSnapshot))
}

// noteForRevert records addr's pre-mutation image the first time it is
// touched at the current checkpoint depth; later mutations at the same
// depth are no-ops here, since the first recorded image is the one a
// revert must restore. A nil obj means addr had no cache entry at all.
func (j *journal) noteForRevert(addr common.Address, obj *stateObject, db *StateDB) {
	if len(j.checkpoints) == 0 {
		return
	}
	top := j.checkpoints[len(j.checkpoints)-1]
	if _, ok := top[addr]; ok {
		return
	}
	if obj == nil {
		top[addr] = &accountSnapshot{exists: false}
		return
	}
	top[addr] = &accountSnapshot{exists: true, object: obj.deepCopy(db)}
}

// discard merges the top checkpoint into its parent: an address already
// recorded in the parent keeps the parent's (earlier) pre-image, since that
// is the one a revert of the parent scope must restore.
func (j *journal) discard() {
	if len(j.checkpoints) == 0 {
		return
	}
	top := j.checkpoints[len(j.checkpoints)-1]
	j.checkpoints = j.checkpoints[:len(j.checkpoints)-1]
	if len(j.checkpoints) == 0 {
		return
	}
	prev := j.checkpoints[len(j.checkpoints)-1]
	if len(prev) == 0 {
		j.checkpoints[len(j.checkpoints)-1] = top
		return
	}
	for addr, snap := range top {
		if _, ok := prev[addr]; !ok {
			prev[addr] = snap
		}
	}
}

// snapshotSince returns the earliest (lowest-index) recorded snapshot for
// addr among checkpoints opened at or after depth id (1-based, matching the
// id StateDB.Checkpoint returns) — the pre-image captured at the moment
// that checkpoint was taken, used by CheckpointStorageAt.
func (j *journal) snapshotSince(id int, addr common.Address) (*accountSnapshot, bool) {
	start := id - 1
	if start < 0 {
		start = 0
	}
	for i := start; i < len(j.checkpoints); i++ {
		if snap, ok := j.checkpoints[i][addr]; ok {
			return snap, true
		}
	}
	return nil, false
}

// revert pops the top checkpoint and restores every recorded pre-image
// into sdb's live object cache. destructs is restored alongside the object
// cache (a self-destruct issued and then reverted must not reach Finalise),
// unlike touched, which stays transaction-scoped even across a revert: an
// account a reverted call emptied was still touched for the whole
// transaction's EIP-161 sweep.
func (j *journal) revert(sdb *StateDB) {
	if len(j.checkpoints) == 0 {
		return
	}
	top := j.checkpoints[len(j.checkpoints)-1]
	j.checkpoints = j.checkpoints[:len(j.checkpoints)-1]
	for addr, snap := range top {
		if !snap.exists {
			delete(sdb.stateObjects, addr)
			sdb.destructs.Remove(addr)
			continue
		}
		if cur, ok := sdb.stateObjects[addr]; ok {
			cur.mergeFromSnapshot(snap.object)
		} else {
			sdb.stateObjects[addr] = snap.object
		}
		if !snap.object.selfDestructed {
			sdb.destructs.Remove(addr)
		}
	}
}
