/*
 * GraphLSM
 *
 * Copyright 2024 The GraphLSM Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package kvstore

import (
	"fmt"
	"sort"
	"sync"
)

/*
record is one key's state inside a MemStore column family: an optional
base value plus any operands queued by Merge that have not yet been
folded into it. A record with no base and no operands is never stored:
Merge queues its operand as soon as it creates a record.
*/
type record struct {
	value    []byte
	hasValue bool
	operands [][]byte
}

/*
MemStore is an in-memory Store good enough to exercise the write-path
dispatcher and merge operator in tests without a real LSM engine
underneath (see the package doc comment). It keeps pending merge
operands queued exactly as a real LSM would across levels, and only
resolves them -- by calling the registered MergeOperator -- on read or
CompactRange, so tests can observe the same "m converges only after
compaction" behavior spec.md's testable property 7 describes.

Grounded on the map+mutex storage manager shape of eliasdb's
memorystoragemanager.go, generalized from a single flat map to
per-column-family maps plus pending-operand resolution.
*/
type recordMap map[string]*record

type MemStore struct {
	mu      sync.Mutex
	mergeOp MergeOperator
	cfs     map[ColumnFamily]recordMap
	closed  bool
}

/*
NewMemStore creates an empty MemStore that resolves Merge operands with
mergeOp.
*/
func NewMemStore(mergeOp MergeOperator) *MemStore {
	return &MemStore{
		mergeOp: mergeOp,
		cfs: map[ColumnFamily]recordMap{
			CFAdjacency:      {},
			CFEdgeProperty:   {},
			CFVertexProperty: {},
		},
	}
}

func (s *MemStore) cf(cf ColumnFamily) recordMap {
	m, ok := s.cfs[cf]
	if !ok {
		m = recordMap{}
		s.cfs[cf] = m
	}
	return m
}

/*
resolveLocked folds rec's pending operands into its base value via
FullMerge, in place, and clears the operand queue. Caller must hold s.mu.
*/
func (s *MemStore) resolveLocked(key []byte, rec *record) error {
	if len(rec.operands) == 0 {
		return nil
	}
	var base []byte
	if rec.hasValue {
		base = rec.value
	}
	merged, ok := s.mergeOp.FullMerge(key, base, rec.operands)
	if !ok {
		return fmt.Errorf("kvstore: %w: merge operator %q failed on key %x", ErrCorruption, s.mergeOp.Name(), key)
	}
	rec.value = merged
	rec.hasValue = true
	rec.operands = nil
	return nil
}

func (s *MemStore) Get(cf ColumnFamily, key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	rec, ok := s.cf(cf)[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	if err := s.resolveLocked(key, rec); err != nil {
		return nil, err
	}
	if !rec.hasValue {
		return nil, ErrNotFound
	}
	return append([]byte(nil), rec.value...), nil
}

func (s *MemStore) Put(cf ColumnFamily, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	m := s.cf(cf)
	m[string(key)] = &record{value: append([]byte(nil), value...), hasValue: true}
	return nil
}

/*
Merge queues operand for key, attempting PartialMerge against the most
recently queued operand first -- the same collapse-adjacent-operands
optimization a real LSM compaction performs opportunistically (spec.md
section 4.2).
*/
func (s *MemStore) Merge(cf ColumnFamily, key, operand []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	m := s.cf(cf)
	rec, ok := m[string(key)]
	if !ok {
		rec = &record{}
		m[string(key)] = rec
	}

	operand = append([]byte(nil), operand...)
	if n := len(rec.operands); n > 0 {
		if combined, ok := s.mergeOp.PartialMerge(key, rec.operands[n-1], operand); ok {
			rec.operands[n-1] = combined
			return nil
		}
	}
	rec.operands = append(rec.operands, operand)
	return nil
}

func (s *MemStore) GetColumnFamilyMetaData(cf ColumnFamily) (ColumnFamilyMetaData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ColumnFamilyMetaData{}, ErrClosed
	}

	m := s.cf(cf)
	if len(m) == 0 {
		return ColumnFamilyMetaData{}, nil
	}

	// A MemStore has no real levels; approximate a single-level LSM so the
	// adaptive cost model (spec.md section 4.4) still has something to read.
	return ColumnFamilyMetaData{Levels: []LevelMetadata{{Level: 0, NumFiles: 1, SizeB: uint64(m.approximateBytes())}}}, nil
}

func (m recordMap) approximateBytes() int {
	total := 0
	for k, rec := range m {
		total += len(k) + len(rec.value)
		for _, op := range rec.operands {
			total += len(op)
		}
	}
	return total
}

/*
CompactRange forces resolution of every pending operand for keys in
[start, end), the mechanism spec.md's testable property 7 relies on.
*/
func (s *MemStore) CompactRange(cf ColumnFamily, start, end []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	m := s.cf(cf)
	for k, rec := range m {
		if !byteRangeContains([]byte(k), start, end) {
			continue
		}
		if err := s.resolveLocked([]byte(k), rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemStore) SyncWAL() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

/*
NewIterator returns a point-in-time snapshot iterator over
[opts.LowerBound, opts.UpperBound) in cf, resolving every pending merge
as it builds the snapshot so the iterator never observes an unmerged
operand queue.
*/
func (s *MemStore) NewIterator(cf ColumnFamily, opts IterOptions) (Iterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	m := s.cf(cf)
	keys := make([]string, 0, len(m))
	for k := range m {
		if byteRangeContains([]byte(k), opts.LowerBound, opts.UpperBound) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	it := &memIterator{}
	for _, k := range keys {
		rec := m[k]
		if err := s.resolveLocked([]byte(k), rec); err != nil {
			return nil, err
		}
		if !rec.hasValue {
			continue
		}
		it.keys = append(it.keys, []byte(k))
		it.values = append(it.values, append([]byte(nil), rec.value...))
	}
	return it, nil
}

type memIterator struct {
	keys   [][]byte
	values [][]byte
	idx    int
}

func (it *memIterator) Valid() bool { return it.idx < len(it.keys) }
func (it *memIterator) Next()       { it.idx++ }
func (it *memIterator) Key() []byte { return it.keys[it.idx] }
func (it *memIterator) Value() []byte {
	return it.values[it.idx]
}
func (it *memIterator) Close() error { return nil }

var _ Store = (*MemStore)(nil)
