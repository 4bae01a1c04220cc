/*
 * GraphLSM
 *
 * Copyright 2024 The GraphLSM Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package engine

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/krotik/graphlsm/adjacency"
	"github.com/krotik/graphlsm/kvstore"
	"github.com/krotik/graphlsm/policy"
)

/*
GetAllEdges returns v's full adjacency record (spec.md section 4.6).
Under the Standard layout this is a single Get; a miss is not an error,
it is an empty record (spec.md section 7). Under FullLazy it is a
prefix scan over v's fragment keys, folded into one sorted record.
*/
func (e *Engine) GetAllEdges(v adjacency.NodeID) (adjacency.Edges, error) {
	if e.base == policy.FullLazy {
		return e.getAllEdgesFullLazy(v)
	}

	raw, err := e.store.Get(kvstore.CFAdjacency, adjacency.Key(v))
	if errors.Is(err, kvstore.ErrNotFound) {
		return adjacency.Edges{}, nil
	}
	if err != nil {
		return adjacency.Edges{}, err
	}
	return adjacency.Decode(raw, e.format)
}

/*
getAllEdgesFullLazy scans [v*256, (v+1)*256) and concatenates every
fragment's non-tombstone entries (spec.md section 4.6). Each (vertex,
target) pair owns a stable key under writeFullLazy, so the fragment
found at a key is always that pair's latest, authoritative state --
concatenating non-tombstones and re-sorting reproduces the same result
the general merge algorithm would, without needing a store round-trip
through the merge operator.
*/
func (e *Engine) getAllEdgesFullLazy(v adjacency.NodeID) (adjacency.Edges, error) {
	lower, upper := adjacency.FullLazyPrefixRange(v)
	it, err := e.store.NewIterator(kvstore.CFAdjacency, kvstore.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return adjacency.Edges{}, err
	}
	defer it.Close()

	var out, in []adjacency.NodeID
	for ; it.Valid(); it.Next() {
		frag, err := adjacency.Decode(it.Value(), adjacency.Plain)
		if err != nil {
			return adjacency.Edges{}, err
		}
		for _, id := range frag.Out {
			if !id.IsTombstone() {
				out = append(out, id)
			}
		}
		for _, id := range frag.In {
			if !id.IsTombstone() {
				in = append(in, id)
			}
		}
	}

	return adjacency.Edges{Out: sortDedup(out), In: sortDedup(in)}, nil
}

func sortDedup(ids []adjacency.NodeID) []adjacency.NodeID {
	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

/*
GetOutDegree and GetInDegree decode v's record and return the exact
count on the requested side (spec.md section 4.6).
*/
func (e *Engine) GetOutDegree(v adjacency.NodeID) (int, error) {
	edges, err := e.GetAllEdges(v)
	if err != nil {
		return 0, err
	}
	return edges.OutDegree(), nil
}

func (e *Engine) GetInDegree(v adjacency.NodeID) (int, error) {
	edges, err := e.GetAllEdges(v)
	if err != nil {
		return 0, err
	}
	return edges.InDegree(), nil
}

/*
GetDegreeApproximate queries the configured sketch for v's estimated
total degree without touching the KV store (spec.md section 4.6). It
reads the Morris vector, GraphLSM's primary sketch, except when
filter_type is configured as CountMin-only, in which case the
Count-Min sketch is the only one meaningfully tracking v's inserts.
*/
func (e *Engine) GetDegreeApproximate(v adjacency.NodeID) int64 {
	if e.filter == FilterCountMin && e.countmin != nil {
		return e.countmin.Query(int64(v))
	}
	return e.morris.Estimate(int(v))
}

/*
DegreeComparison reports v's exact degree alongside both sketches'
estimates, for the comparison/benchmarking mode filter_type=All exists
for (spec.md section 6's filter_type option; section 4.5 calls
Count-Min "secondary, comparison/benchmarking only" -- this is that
comparison).
*/
type DegreeComparison struct {
	Exact            int
	MorrisEstimate   int64
	CountMinEstimate int64 // -1 if Count-Min is not maintained
}

func (e *Engine) DegreeApproximateComparison(v adjacency.NodeID) (DegreeComparison, error) {
	edges, err := e.GetAllEdges(v)
	if err != nil {
		return DegreeComparison{}, err
	}

	cm := int64(-1)
	if e.countmin != nil {
		cm = e.countmin.Query(int64(v))
	}

	return DegreeComparison{
		Exact:            edges.Degree(),
		MorrisEstimate:   e.morris.Estimate(int(v)),
		CountMinEstimate: cm,
	}, nil
}

/*
RandomWalk repeatedly fetches the current vertex's out-list, stopping
with probability decayFactor or when the out-list is empty, otherwise
continuing from a uniformly chosen out-neighbor (spec.md section 4.6).
It returns the sequence of visited vertices, starting with start.
*/
func (e *Engine) RandomWalk(start adjacency.NodeID, decayFactor float64) ([]adjacency.NodeID, error) {
	path := []adjacency.NodeID{start}
	current := start

	for {
		edges, err := e.GetAllEdges(current)
		if err != nil {
			return path, err
		}
		if len(edges.Out) == 0 {
			return path, nil
		}
		if rand.Float64() < decayFactor {
			return path, nil
		}
		current = edges.Out[rand.Intn(len(edges.Out))]
		path = append(path, current)
	}
}
