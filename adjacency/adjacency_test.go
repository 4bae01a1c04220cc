/*
 * GraphLSM
 *
 * Copyright 2024 The GraphLSM Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package adjacency

import "testing"

func TestInsertOutMaintainsSortOrder(t *testing.T) {
	var e Edges
	for _, id := range []NodeID{5, 1, 3, 1, 9} {
		e.InsertOut(id)
	}
	want := []NodeID{1, 3, 5, 9}
	if !equalIDs(e.Out, want) {
		t.Fatalf("got %v, want %v", e.Out, want)
	}
}

func TestInsertOutDuplicateReportsNoChange(t *testing.T) {
	var e Edges
	if !e.InsertOut(5) {
		t.Fatal("first insert should report a change")
	}
	if e.InsertOut(5) {
		t.Fatal("duplicate insert should report no change")
	}
	if len(e.Out) != 1 {
		t.Fatalf("expected one entry, got %v", e.Out)
	}
}

func TestRemoveOut(t *testing.T) {
	e := Edges{Out: []NodeID{1, 3, 5}}
	if !e.RemoveOut(3) {
		t.Fatal("expected removal to report a change")
	}
	if !equalIDs(e.Out, []NodeID{1, 5}) {
		t.Fatalf("got %v", e.Out)
	}
	if e.RemoveOut(3) {
		t.Fatal("removing an absent element should report no change")
	}
}

func TestSelfLoop(t *testing.T) {
	var e Edges
	e.InsertOut(7)
	e.InsertIn(7)
	if e.OutDegree() != 1 || e.InDegree() != 1 {
		t.Fatalf("self-loop should register on both sides: %+v", e)
	}
}

func TestValidateRejectsUnsortedAndNegative(t *testing.T) {
	if err := Validate(Edges{Out: []NodeID{3, 1}}); err == nil {
		t.Fatal("expected unsorted out-list to fail validation")
	}
	if err := Validate(Edges{Out: []NodeID{-1, 2}}); err == nil {
		t.Fatal("expected negative id to fail validation")
	}
	if err := Validate(Edges{Out: []NodeID{1, 2, 3}, In: []NodeID{4}}); err != nil {
		t.Fatalf("expected valid record to pass: %v", err)
	}
}

func TestValidateDeltaAllowsTombstones(t *testing.T) {
	if err := ValidateDelta(Edges{Out: []NodeID{-5}}); err != nil {
		t.Fatalf("delta with a tombstone should validate: %v", err)
	}
}

func TestKeyRoundTrip(t *testing.T) {
	id := NodeID(123456789)
	got, err := KeyOf(Key(id))
	if err != nil {
		t.Fatalf("KeyOf: %v", err)
	}
	if got != id {
		t.Fatalf("got %d, want %d", got, id)
	}
}

func TestFullLazyPrefixRangeCoversExactlyOneByteFanout(t *testing.T) {
	lower, upper := FullLazyPrefixRange(10)
	for i := 0; i <= 255; i++ {
		key := append(append([]byte(nil), Key(10)...), byte(i))
		if bytesLess(key, lower) || !bytesLess(key, upper) {
			t.Fatalf("disambiguator %d: key %x not within [%x, %x)", i, key, lower, upper)
		}
	}
}

func bytesLess(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
