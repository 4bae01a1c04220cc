/*
 * GraphLSM
 *
 * Copyright 2024 The GraphLSM Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package kvstore models the external LSM key-value store GraphLSM is layered
on top of.

The store itself (bloom-filter tuning, block-cache sizing, SST bulk-load
machinery, WAL format) is out of scope for this repository -- see spec.md
section 1 and section 6. This package only declares the narrow contract the
engine consumes (Get/Put/Merge/NewIterator/GetColumnFamilyMetaData plus
lifecycle calls), and ships one reference implementation, MemStore, an
in-memory store good enough to exercise the merge operator and write-path
dispatcher in tests without a real LSM engine underneath.

A production binding (RocksDB, Pebble, Badger, ...) implements Store and
registers the engine's merge operator under the stable name
"AdjacentListMergeOp" (spec.md section 6); GraphLSM never talks to such a
binding directly, only through this interface.
*/
package kvstore

import (
	"bytes"
	"errors"
)

/*
ColumnFamily names one of the store's column families. The engine core only
writes to CFAdjacency; CFEdgeProperty and CFVertexProperty exist for property
extensions and are not touched by this repository (spec.md section 3).
*/
type ColumnFamily string

// Column families known to the engine.
const (
	CFAdjacency      ColumnFamily = "adjacency"
	CFEdgeProperty   ColumnFamily = "edge_property"
	CFVertexProperty ColumnFamily = "vertex_property"
)

/*
Sentinel errors surfaced by a Store, matching spec.md section 6's error
taxonomy (Ok/NotFound/IoError/Corruption/InvalidArgument). A Store
implementation should return one of these, wrapped with %w if it has more
detail to add, so callers can still errors.Is against the sentinel.
*/
var (
	ErrNotFound        = errors.New("kvstore: key not found")
	ErrIO              = errors.New("kvstore: io error")
	ErrCorruption      = errors.New("kvstore: corruption")
	ErrInvalidArgument = errors.New("kvstore: invalid argument")
	ErrClosed          = errors.New("kvstore: store is closed")
)

/*
MergeOperator is the associative merge operator a Store invokes during
flush/compaction. It must be associative: the store may apply it pairwise
across a compaction window or in one bulk full-merge call (spec.md
section 4.2).

Name must be stable across process restarts -- it is recorded in the
store's manifest (spec.md section 6) and changing it breaks re-open of an
existing database.
*/
type MergeOperator interface {

	/*
	   Name returns the merge operator's persistent identifier.
	*/
	Name() string

	/*
	   FullMerge reconstructs the final value for key from an optional base
	   value (nil if the key had no prior value) and one or more operands
	   applied in order. Returns false if the merge cannot be completed (a
	   corrupt operand or base); the store will then surface an error on
	   the next read or compaction of this key.
	*/
	FullMerge(key []byte, existing []byte, operands [][]byte) (merged []byte, ok bool)

	/*
	   PartialMerge combines two operands into a single equivalent operand
	   without a base value. Returns false to signal the store should fall
	   back to keeping both operands and merge them with FullMerge later.
	*/
	PartialMerge(key []byte, left []byte, right []byte) (merged []byte, ok bool)
}

/*
LevelMetadata describes one level of an LSM column family, the subset of
GetColumnFamilyMetaData the adaptive policy (spec.md section 4.4) consumes
to compute the write-amplification proxy WA = level_mult * level_num.
*/
type LevelMetadata struct {
	Level    int    // Level number, 0 is the youngest
	NumFiles int    // Number of SST files resident at this level
	SizeB    uint64 // Total size in bytes of files at this level
}

/*
ColumnFamilyMetaData is the subset of store metadata the engine reads back
from GetColumnFamilyMetaData.
*/
type ColumnFamilyMetaData struct {
	Levels []LevelMetadata
}

/*
NonEmptyLevels returns the number of levels that hold at least one file,
the level_num term of the adaptive cost model.
*/
func (m ColumnFamilyMetaData) NonEmptyLevels() int {
	n := 0
	for _, l := range m.Levels {
		if l.NumFiles > 0 {
			n++
		}
	}
	return n
}

/*
IterOptions bounds a Store iterator the way RocksDB's ReadOptions does:
byte-lexicographic [LowerBound, UpperBound).
*/
type IterOptions struct {
	LowerBound []byte
	UpperBound []byte
}

/*
Iterator walks a column family in byte-lexicographic key order. Because
NodeIDs are encoded big-endian (spec.md section 6), this order agrees with
unsigned numeric order over vertex ids.
*/
type Iterator interface {
	Valid() bool
	Next()
	Key() []byte
	Value() []byte
	Close() error
}

/*
Store is the external collaborator GraphLSM is layered on top of. See
spec.md section 6 for the full contract; GetColumnFamilyMetaData,
NewIterator, SyncWAL and Close may all block on I/O or internal store
mutexes (spec.md section 5) -- no method here spawns or joins a goroutine.
*/
type Store interface {
	Get(cf ColumnFamily, key []byte) ([]byte, error)
	Put(cf ColumnFamily, key, value []byte) error

	/*
	   Merge hands operand to the store's registered MergeOperator for key.
	   The operator callback may run synchronously or later, on a
	   background compaction thread.
	*/
	Merge(cf ColumnFamily, key, operand []byte) error

	NewIterator(cf ColumnFamily, opts IterOptions) (Iterator, error)
	GetColumnFamilyMetaData(cf ColumnFamily) (ColumnFamilyMetaData, error)

	/*
	   CompactRange forces a full merge of every pending operand in
	   [start, end) for cf, the mechanism spec.md's testable property 7
	   relies on to make m converge.
	*/
	CompactRange(cf ColumnFamily, start, end []byte) error

	SyncWAL() error
	Close() error
}

/*
byteRangeContains reports whether key falls inside [lower, upper), treating
a nil bound as unbounded on that side. Shared by Store implementations that
need to honor IterOptions.
*/
func byteRangeContains(key, lower, upper []byte) bool {
	if lower != nil && bytes.Compare(key, lower) < 0 {
		return false
	}
	if upper != nil && bytes.Compare(key, upper) >= 0 {
		return false
	}
	return true
}
