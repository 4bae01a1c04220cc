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
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/graphlsm/adjacency"
	"github.com/krotik/graphlsm/kvstore"
	"github.com/krotik/graphlsm/merge"
	"github.com/krotik/graphlsm/meta"
	"github.com/krotik/graphlsm/policy"
	"github.com/krotik/graphlsm/sketch"
)

/*
Engine is GraphLSM's top-level type: the write-path dispatcher, read
path, adaptive policy and degree sketches wired together over one
kvstore.Store (spec.md section 2's data flow).

n is kept as an atomic field directly on Engine. m is a
merge.EdgeCounter (also atomic) shared with the merge operator, since
both the foreground dispatcher and the merge operator's background-thread
callbacks update it (spec.md section 5).
*/
type Engine struct {
	store   kvstore.Store
	format  adjacency.Format
	base    policy.Policy
	model   *policy.Model
	mergeOp *merge.Operator

	morris   *sketch.MorrisVector
	countmin *sketch.CountMinSketch
	filter   FilterType

	n int64 // vertex count
	m *merge.EdgeCounter

	dbPath string
}

/*
Open constructs an Engine per opts (spec.md section 6), loading prior
state from the GraphMeta.log sidecar under opts.DBPath if present and
opts.AutoReinitialize is false.
*/
func Open(opts Options) (*Engine, error) {
	if opts.DBPath == "" {
		return nil, ErrMissingDBPath
	}
	opts.setDefaults()

	morris := sketch.NewMorrisVector()
	edgeCounter := &merge.EdgeCounter{}
	mergeOp := merge.New(opts.EncodingType, edgeCounter, morris)

	store := opts.Store
	if store == nil {
		store = kvstore.NewMemStore(mergeOp)
	}

	e := &Engine{
		store:   store,
		format:  opts.EncodingType,
		base:    opts.EdgeUpdatePolicy,
		model:   policy.DefaultModel(opts.LevelMult, opts.UpdateRatio, opts.LookupRatio),
		mergeOp: mergeOp,
		morris:  morris,
		filter:  opts.FilterType,
		m:       edgeCounter,
		dbPath:  opts.DBPath,
	}
	e.model.CacheMissC = opts.CacheMissRate

	if e.filter == FilterCountMin || e.filter == FilterAll {
		e.countmin = sketch.NewCountMinSketch()
	}

	sidecar := filepath.Join(opts.DBPath, meta.SidecarName)
	if !opts.AutoReinitialize {
		state, ok, err := meta.Read(sidecar)
		if err != nil {
			return nil, fmt.Errorf("engine: loading %s: %w", sidecar, err)
		}
		if ok {
			atomic.StoreInt64(&e.n, state.N)
			e.m.Add(state.M)
			morris.LoadBytes(state.Morris)
		}
	}

	return e, nil
}

/*
Close persists n, m and the Morris vector to the GraphMeta.log sidecar
(spec.md section 6: "Written on shutdown") and closes the underlying
store. Both steps are attempted even if the first fails, so a sidecar
write failure never leaks an open store; any failures are collected
into a single CompositeError.
*/
func (e *Engine) Close() error {
	ce := errorutil.NewCompositeError()

	sidecar := filepath.Join(e.dbPath, meta.SidecarName)
	state := meta.State{
		N:      atomic.LoadInt64(&e.n),
		M:      e.m.Load(),
		Morris: e.morris.Bytes(),
	}
	if err := meta.Write(sidecar, state); err != nil {
		ce.Add(fmt.Errorf("engine: writing %s: %w", sidecar, err))
	}
	if err := e.store.Close(); err != nil {
		ce.Add(err)
	}

	if ce.HasErrors() {
		return ce
	}
	return nil
}

/*
VertexCount and EdgeCount return the engine's live n and m counters
(spec.md section 3). Both are best-effort under concurrent compaction
until a CompactRange resolves every pending delta (spec.md section 7).
*/
func (e *Engine) VertexCount() int64 { return atomic.LoadInt64(&e.n) }
func (e *Engine) EdgeCount() int64   { return e.m.Load() }

/*
AddVertex idempotently registers id, emitting an empty adjacency record
and incrementing n only if id was not already present (spec.md section
4.3).
*/
func (e *Engine) AddVertex(id adjacency.NodeID) error {
	exists, err := e.vertexExists(id)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	key, format := adjacency.Key(id), e.format
	if e.base == policy.FullLazy {
		// FullLazy fragments are Plain-encoded and found by a prefix scan,
		// so the empty record goes under the vertex's own prefix.
		key, format = adjacency.FullLazyKey(id, 0), adjacency.Plain
	}
	encoded, err := adjacency.Encode(adjacency.Edges{}, format)
	if err != nil {
		return err
	}
	if err := e.store.Put(kvstore.CFAdjacency, key, encoded); err != nil {
		return err
	}

	atomic.AddInt64(&e.n, 1)
	return nil
}

func (e *Engine) vertexExists(id adjacency.NodeID) (bool, error) {
	if e.base == policy.FullLazy {
		lower, upper := adjacency.FullLazyPrefixRange(id)
		it, err := e.store.NewIterator(kvstore.CFAdjacency, kvstore.IterOptions{LowerBound: lower, UpperBound: upper})
		if err != nil {
			return false, err
		}
		defer it.Close()
		return it.Valid(), nil
	}

	_, err := e.store.Get(kvstore.CFAdjacency, adjacency.Key(id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
