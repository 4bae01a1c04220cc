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
	"bytes"
	"errors"
	"testing"
)

// concatMergeOp is a minimal MergeOperator for exercising MemStore without
// pulling in the adjacency/merge packages: it concatenates existing and
// every operand with a "|" separator and treats PartialMerge the same way.
type concatMergeOp struct{}

func (concatMergeOp) Name() string { return "concatMergeOp" }

func (concatMergeOp) FullMerge(key, existing []byte, operands [][]byte) ([]byte, bool) {
	out := existing
	for _, op := range operands {
		if out == nil {
			out = op
			continue
		}
		out = append(append(append([]byte(nil), out...), '|'), op...)
	}
	return out, true
}

func (concatMergeOp) PartialMerge(key, left, right []byte) ([]byte, bool) {
	return append(append(append([]byte(nil), left...), '|'), right...), true
}

func TestMemStoreGetPutRoundTrip(t *testing.T) {
	s := NewMemStore(concatMergeOp{})
	if err := s.Put(CFAdjacency, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(CFAdjacency, []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("v")) {
		t.Fatalf("got %q, want %q", got, "v")
	}
}

func TestMemStoreGetMissingKeyReturnsNotFound(t *testing.T) {
	s := NewMemStore(concatMergeOp{})
	_, err := s.Get(CFAdjacency, []byte("absent"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreMergeResolvesLazilyOnGet(t *testing.T) {
	s := NewMemStore(concatMergeOp{})
	if err := s.Put(CFAdjacency, []byte("k"), []byte("base")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Merge(CFAdjacency, []byte("k"), []byte("d1")); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := s.Merge(CFAdjacency, []byte("k"), []byte("d2")); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	got, err := s.Get(CFAdjacency, []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := "base|d1|d2"
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMemStoreMergeWithoutPriorValue(t *testing.T) {
	s := NewMemStore(concatMergeOp{})
	if err := s.Merge(CFAdjacency, []byte("k"), []byte("only")); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	got, err := s.Get(CFAdjacency, []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "only" {
		t.Fatalf("got %q, want %q", got, "only")
	}
}

func TestMemStoreCompactRangeForcesResolution(t *testing.T) {
	s := NewMemStore(concatMergeOp{})
	if err := s.Put(CFAdjacency, []byte("k"), []byte("base")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Merge(CFAdjacency, []byte("k"), []byte("d1")); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := s.CompactRange(CFAdjacency, nil, nil); err != nil {
		t.Fatalf("CompactRange: %v", err)
	}

	it, err := s.NewIterator(CFAdjacency, IterOptions{})
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	defer it.Close()
	if !it.Valid() {
		t.Fatal("expected at least one key after compaction")
	}
	if string(it.Value()) != "base|d1" {
		t.Fatalf("got %q, want %q", it.Value(), "base|d1")
	}
}

func TestMemStoreIteratorRespectsBounds(t *testing.T) {
	s := NewMemStore(concatMergeOp{})
	for _, k := range []string{"a", "b", "c", "d"} {
		if err := s.Put(CFAdjacency, []byte(k), []byte(k)); err != nil {
			t.Fatalf("Put(%q): %v", k, err)
		}
	}

	it, err := s.NewIterator(CFAdjacency, IterOptions{LowerBound: []byte("b"), UpperBound: []byte("d")})
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	defer it.Close()

	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	want := []string{"b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}

func TestMemStoreGetColumnFamilyMetaDataReportsNonEmptyLevel(t *testing.T) {
	s := NewMemStore(concatMergeOp{})
	if err := s.Put(CFAdjacency, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	md, err := s.GetColumnFamilyMetaData(CFAdjacency)
	if err != nil {
		t.Fatalf("GetColumnFamilyMetaData: %v", err)
	}
	if md.NonEmptyLevels() != 1 {
		t.Fatalf("expected 1 non-empty level, got %d", md.NonEmptyLevels())
	}
}

func TestMemStoreOperationsFailAfterClose(t *testing.T) {
	s := NewMemStore(concatMergeOp{})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Put(CFAdjacency, []byte("k"), []byte("v")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.Get(CFAdjacency, []byte("k")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
