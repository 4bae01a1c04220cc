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

import (
	"math/rand"
	"testing"
)

func ascending(n int, seed int64, maxVal int64) []NodeID {
	r := rand.New(rand.NewSource(seed))
	seen := map[int64]bool{}
	var vals []int64
	for len(vals) < n {
		v := r.Int63n(maxVal)
		if !seen[v] {
			seen[v] = true
			vals = append(vals, v)
		}
	}
	ids := make([]NodeID, len(vals))
	for i := range vals {
		ids[i] = NodeID(vals[i])
	}
	// simple insertion sort; n is small in these tests
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

func denseRange(n int) []NodeID {
	ids := make([]NodeID, n)
	for i := range ids {
		ids[i] = NodeID(i)
	}
	return ids
}

func TestPlainCodecRoundTrip(t *testing.T) {
	cases := []Edges{
		{},
		{Out: []NodeID{1, 2, 3}},
		{Out: []NodeID{0, 5, 1000}, In: []NodeID{2, 4}},
		{Out: ascending(50, 1, 1_000_000), In: ascending(30, 2, 1_000_000)},
	}
	for i, e := range cases {
		encoded, err := Encode(e, Plain)
		if err != nil {
			t.Fatalf("case %d: Encode: %v", i, err)
		}
		got, err := Decode(encoded, Plain)
		if err != nil {
			t.Fatalf("case %d: Decode: %v", i, err)
		}
		if !got.Equal(e) {
			t.Fatalf("case %d: round trip mismatch: got %+v, want %+v", i, got, e)
		}
	}
}

func TestEliasFanoPartitionedCodecRoundTrip(t *testing.T) {
	cases := []Edges{
		{},
		{Out: []NodeID{1}},
		{Out: []NodeID{0, 1, 2, 3, 4}},
		{Out: ascending(10, 10, 1000), In: ascending(5, 11, 1000)},
		// exceeds one partition (partitionSize=128)
		{Out: ascending(300, 20, 1_000_000), In: ascending(200, 21, 1_000_000)},
		// dense, forces the all-ones per-partition path on at least one partition
		{Out: denseRange(128)},
	}
	for i, e := range cases {
		encoded, err := Encode(e, EliasFanoPartitioned)
		if err != nil {
			t.Fatalf("case %d: Encode: %v", i, err)
		}
		got, err := Decode(encoded, EliasFanoPartitioned)
		if err != nil {
			t.Fatalf("case %d: Decode: %v", i, err)
		}
		if !got.Equal(e) {
			t.Fatalf("case %d: round trip mismatch: got %+v, want %+v", i, got, e)
		}
	}
}

func TestEliasFanoPartitionedRejectsTombstones(t *testing.T) {
	_, err := Encode(Edges{Out: []NodeID{-1}}, EliasFanoPartitioned)
	if err == nil {
		t.Fatal("expected an error encoding a tombstone as EliasFanoPartitioned")
	}
}

func TestDecodeRefusesTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, Plain)
	if err == nil {
		t.Fatal("expected an error decoding a truncated header")
	}
}

func TestDecodeRefusesMismatchedPlainBodyLength(t *testing.T) {
	encoded, err := Encode(Edges{Out: []NodeID{1, 2}}, Plain)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	truncated := encoded[:len(encoded)-1]
	if _, err := Decode(truncated, Plain); err == nil {
		t.Fatal("expected an error decoding a truncated plain body")
	}
}
