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
Package merge implements GraphLSM's associative merge operator (spec.md
section 4.2): the KV store callback that consolidates adjacency deltas
into a sorted record during flush/compaction, applying tombstone-based
deletes and removing duplicates.

The operator's persistent name is "AdjacentListMergeOp" (spec.md section
6); changing Name's return value breaks re-open of an existing database.
*/
package merge

import (
	"sort"
	"sync/atomic"

	"github.com/krotik/graphlsm/adjacency"
	"github.com/krotik/graphlsm/sketch"
)

/*
EdgeCounter is the engine's live atomic edge count, m (spec.md section
4.2). The merge operator decrements it per dedup or tombstone-resolved
out-edge; in-edges mirror the same physical edge and MUST NOT
double-count, so only the out-side merge touches the counter.
*/
type EdgeCounter struct {
	m int64
}

func (c *EdgeCounter) Add(delta int64) { atomic.AddInt64(&c.m, delta) }
func (c *EdgeCounter) Load() int64     { return atomic.LoadInt64(&c.m) }

/*
Operator is GraphLSM's kvstore.MergeOperator implementation. format
controls how values are (de)coded; EliasFanoPartitioned values never
carry a tombstone (spec.md section 4.3 forces the eager path for deletes
under that codec), so Operator's tombstone handling is exercised only
under Plain.

Morris is the engine's shared degree-estimator vector (spec.md section
5: "merge-operator callbacks only decrement existing entries" of the
Morris byte vector) -- every dedup or tombstone resolution this operator
performs reduces the record owner's own out+in degree by one, on
whichever side it fires.
*/
type Operator struct {
	Format  adjacency.Format
	Counter *EdgeCounter
	Morris  *sketch.MorrisVector
}

/*
New builds an Operator over format, sharing the given edge counter and
Morris vector with the engine that registers it.
*/
func New(format adjacency.Format, counter *EdgeCounter, morris *sketch.MorrisVector) *Operator {
	return &Operator{Format: format, Counter: counter, Morris: morris}
}

func (op *Operator) Name() string { return "AdjacentListMergeOp" }

/*
FullMerge reconstructs the final record for key from an optional base
value and one or more operand deltas, in order (spec.md section 4.2).
Each operand is folded into a running Edges value via mergeSide applied
independently to Out and In, with is_partial=false so tombstones resolve
against the accumulated base rather than surviving into the output.
*/
func (op *Operator) FullMerge(key []byte, existing []byte, operands [][]byte) ([]byte, bool) {
	vertex, err := adjacency.KeyOf(key)
	if err != nil {
		return nil, false
	}

	acc, err := op.decode(existing)
	if err != nil {
		return nil, false
	}

	onOut, onIn := op.resolutionCallbacks(vertex)
	for _, raw := range operands {
		delta, err := op.decodeDelta(raw)
		if err != nil {
			return nil, false
		}
		acc.Out = mergeSide(acc.Out, delta.Out, false, onOut)
		acc.In = mergeSide(acc.In, delta.In, false, onIn)
	}

	encoded, err := adjacency.Encode(acc, op.Format)
	if err != nil {
		return nil, false
	}
	return encoded, true
}

/*
PartialMerge combines two operand deltas into one equivalent delta
without a base value, preserving tombstone semantics: is_partial=true
means a tombstone (negative id) in right survives into the output as a
negative entry rather than being resolved now (spec.md section 4.2). A
plain duplicate add collapsing across the two operands still resolves
now -- mergeSide's dedup branch fires independent of is_partial.
*/
func (op *Operator) PartialMerge(key []byte, left []byte, right []byte) ([]byte, bool) {
	vertex, err := adjacency.KeyOf(key)
	if err != nil {
		return nil, false
	}

	l, err := op.decodeDelta(left)
	if err != nil {
		return nil, false
	}
	r, err := op.decodeDelta(right)
	if err != nil {
		return nil, false
	}

	onOut, onIn := op.resolutionCallbacks(vertex)
	merged := adjacency.Edges{
		Out: mergeSide(l.Out, r.Out, true, onOut),
		In:  mergeSide(l.In, r.In, true, onIn),
	}

	encoded, err := adjacency.Encode(merged, adjacency.Plain)
	if err != nil {
		return nil, false
	}
	return encoded, true
}

/*
resolutionCallbacks returns the per-side hooks mergeSide invokes once for
every dedup or tombstone resolution. Both sides decrement vertex's own
Morris counter (its out+in degree shrank by one either way); only the
out-side also decrements the shared live edge count m, since the
mirrored in-side update is the same physical edge and must not
double-count it (spec.md section 4.2).
*/
func (op *Operator) resolutionCallbacks(vertex adjacency.NodeID) (onOut, onIn func()) {
	idx := int(vertex)
	onOut = func() {
		if op.Counter != nil {
			op.Counter.Add(-1)
		}
		if op.Morris != nil {
			op.Morris.Decrement(idx)
		}
	}
	onIn = func() {
		if op.Morris != nil {
			op.Morris.Decrement(idx)
		}
	}
	return onOut, onIn
}

func (op *Operator) decode(raw []byte) (adjacency.Edges, error) {
	if raw == nil {
		return adjacency.Edges{}, nil
	}
	return adjacency.Decode(raw, op.Format)
}

/*
decodeDelta decodes an operand that may carry tombstones (negative ids)
and so cannot go through the format codec directly when format is
EliasFanoPartitioned -- deltas under that format are plain-encoded
regardless of the record codec, since EFP cannot represent a negative
universe value (spec.md section 4.3).
*/
func (op *Operator) decodeDelta(raw []byte) (adjacency.Edges, error) {
	return adjacency.Decode(raw, adjacency.Plain)
}

/*
mergeSide runs the sorted merge of spec.md section 4.2's algorithm over
one side (out or in) of two pre-sorted Edges lists, tallying every
neighbor referenced by either input -- as a live entry, a tombstone
(spec.md section 3), or both -- before deciding each neighbor's fate.
Comparing by neighbor rather than by raw signed id is what lets an add
and a delete for the same neighbor cancel correctly regardless of which
input carried which: a tombstone's raw id is always negative, so a
naive position-by-position comparison would never line it up against
its positive counterpart unless they happened to already be adjacent.

onResolved, if non-nil, is called once per dedup (a neighbor added more
than once collapses to one surviving copy) and once per tombstone that
cancels a live entry, in either merge mode -- a live entry at this
level is always a confirmed prior resolution (spec.md section 4.2 step
4), so canceling it is never provisional even when the tombstone itself
must still be carried forward.

In partial-merge mode (is_partial=true) an unmatched or already-resolved
tombstone still survives into the output as a negative entry: the base
value this merge hasn't seen yet may independently hold the same
neighbor, and only a later full merge can tell (spec.md's testable
scenario for tombstones surviving a partial merge). In full-merge mode
there is no "later": a tombstone that found nothing to cancel is simply
dropped (deleting a non-existent edge is a no-op), and one that did
cancel a live entry is consumed rather than re-emitted (spec.md section
4.2 step 3, "the tombstone is consumed").
*/
func mergeSide(a, b []adjacency.NodeID, isPartial bool, onResolved func()) []adjacency.NodeID {
	notify := func() {
		if onResolved != nil {
			onResolved()
		}
	}

	type tally struct {
		live      int
		tombstone bool
	}
	byNeighbor := make(map[adjacency.NodeID]*tally, len(a)+len(b))
	order := make([]adjacency.NodeID, 0, len(a)+len(b))

	see := func(id adjacency.NodeID) {
		neighbor := id
		isTomb := id.IsTombstone()
		if isTomb {
			neighbor = id.Neighbor()
		}
		t, ok := byNeighbor[neighbor]
		if !ok {
			t = &tally{}
			byNeighbor[neighbor] = t
			order = append(order, neighbor)
		}
		if isTomb {
			t.tombstone = true
		} else {
			t.live++
		}
	}
	for _, id := range a {
		see(id)
	}
	for _, id := range b {
		see(id)
	}

	out := make([]adjacency.NodeID, 0, len(order))
	for _, neighbor := range order {
		t := byNeighbor[neighbor]

		for i := 1; i < t.live; i++ {
			notify()
		}

		if t.tombstone {
			if t.live > 0 {
				notify()
			}
			if isPartial {
				out = append(out, -neighbor)
			}
			continue
		}

		if t.live > 0 {
			out = append(out, neighbor)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
