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
	"sync/atomic"

	"github.com/krotik/graphlsm/adjacency"
)

/*
AddEdges encodes a single vertex's complete, pre-sorted out- and
in-neighbor lists into a (key, value) pair suitable for sorted SST
writing by an offline loader (spec.md section 4.7). It updates n, m and
the Morris counter as if every neighbor had just been added, but never
touches the KV store -- the caller is responsible for ingesting the
returned pairs, typically via a bulk SST load rather than individual
Put calls.
*/
func (e *Engine) AddEdges(v adjacency.NodeID, outs, ins []adjacency.NodeID) (key []byte, value []byte, err error) {
	edges := adjacency.Edges{Out: outs, In: ins}
	if err := adjacency.Validate(edges); err != nil {
		return nil, nil, err
	}

	encoded, err := adjacency.Encode(edges, e.format)
	if err != nil {
		return nil, nil, err
	}

	e.m.Add(int64(len(outs)))
	for i := 0; i < len(outs)+len(ins); i++ {
		e.incrementMorris(v)
	}
	atomic.AddInt64(&e.n, 1)

	return adjacency.Key(v), encoded, nil
}

/*
BulkLoader streams AddEdges over a sequence of (vertex, outs, ins)
triples, mirroring the original bulk-load tool's streaming shape
(tools/bulkload.cc in the Aster source this was distilled from) instead
of requiring the whole graph to be materialized in memory at once. The
caller supplies triples pre-sorted by vertex id through the source
function given to NewBulkLoader and drains
(key, value) pairs via the returned channel-free Pull method, one at a
time, so it composes directly with a sorted SST writer.
*/
type BulkLoader struct {
	engine *Engine
	source func() (v adjacency.NodeID, outs, ins []adjacency.NodeID, ok bool, err error)
}

/*
NewBulkLoader builds a BulkLoader over source, a pull-style iterator
that yields one pre-sorted (vertex, outs, ins) triple per call and
reports ok=false once exhausted.
*/
func NewBulkLoader(e *Engine, source func() (adjacency.NodeID, []adjacency.NodeID, []adjacency.NodeID, bool, error)) *BulkLoader {
	return &BulkLoader{engine: e, source: source}
}

/*
Pull advances the loader by one triple, returning its encoded (key,
value) pair. ok is false once source is exhausted; err stops the load
early on a malformed triple.
*/
func (l *BulkLoader) Pull() (key, value []byte, ok bool, err error) {
	v, outs, ins, ok, err := l.source()
	if err != nil || !ok {
		return nil, nil, false, err
	}
	key, value, err = l.engine.AddEdges(v, outs, ins)
	if err != nil {
		return nil, nil, false, err
	}
	return key, value, true, nil
}
