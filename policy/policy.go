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
Package policy implements GraphLSM's tri-modal edge update policy and the
adaptive cost model that backs it (spec.md sections 4.3 and 4.4).
*/
package policy

import (
	"fmt"
	"sync/atomic"
)

/*
Policy selects the write-path strategy for one half of an edge
operation (spec.md section 4.3).
*/
type Policy int

const (
	Eager Policy = iota
	Lazy
	Adaptive
	FullLazy
)

func (p Policy) String() string {
	switch p {
	case Eager:
		return "Eager"
	case Lazy:
		return "Lazy"
	case Adaptive:
		return "Adaptive"
	case FullLazy:
		return "FullLazy"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

/*
Model holds the tuning constants and refreshable state the adaptive
cost model (spec.md section 4.4) needs to pick Eager or Lazy for a
single vertex.

level_num is refreshed from store metadata every refreshInterval
decisions rather than on every call, since GetColumnFamilyMetaData may
touch the store's internal mutexes (spec.md section 4.4, section 5).
*/
type Model struct {
	LevelMult   float64
	BlockSize   float64 // B, bytes, default 4096
	VertexSize  float64 // v_size, default 8
	EdgeSize    float64 // e_size, default 8
	CacheMissC  float64 // C, default 0.9
	UpdateRatio float64
	LookupRatio float64

	refreshInterval int64
	decisions       int64
	levelNum        int64 // cached non-empty level count
}

/*
DefaultModel returns a Model populated with spec.md section 4.4's
default constants. LevelMult and the ratios still need to be supplied
by the caller (they come from the configured store and workload).
*/
func DefaultModel(levelMult, updateRatio, lookupRatio float64) *Model {
	return &Model{
		LevelMult:       levelMult,
		BlockSize:       4096,
		VertexSize:      8,
		EdgeSize:        8,
		CacheMissC:      0.9,
		UpdateRatio:     updateRatio,
		LookupRatio:     lookupRatio,
		refreshInterval: 10000,
	}
}

/*
RefreshLevelNum updates the cached non-empty level count used in the
write-amplification proxy. The caller is responsible for invoking this
every refreshInterval decisions (spec.md section 4.4: "refreshed every
10,000 decisions") -- Model itself only tracks the countdown via
ShouldRefresh/decisions so callers don't need their own counter.
*/
func (m *Model) RefreshLevelNum(nonEmptyLevels int) {
	atomic.StoreInt64(&m.levelNum, int64(nonEmptyLevels))
}

/*
ShouldRefresh reports whether refreshInterval decisions have elapsed
since the last refresh, and advances the internal counter. Call it once
per Decide.
*/
func (m *Model) ShouldRefresh() bool {
	n := atomic.AddInt64(&m.decisions, 1)
	return n%m.refreshInterval == 0
}

func (m *Model) levelNumCached() float64 {
	return float64(atomic.LoadInt64(&m.levelNum))
}

/*
WriteAmplification returns WA = level_mult * level_num, the write-
amplification proxy of spec.md section 4.4.
*/
func (m *Model) WriteAmplification() float64 {
	return m.LevelMult * m.levelNumCached()
}

/*
CostOfEager computes spec.md section 4.4's per-op eager cost:
left = (2 + (v_size + e_size*d)/B) + (e_size*(d-1))*WA/B.
*/
func (m *Model) CostOfEager(d int64) float64 {
	df := float64(d)
	wa := m.WriteAmplification()
	return (2 + (m.VertexSize+m.EdgeSize*df)/m.BlockSize) + (m.EdgeSize*(df-1))*wa/m.BlockSize
}

/*
CostOfLazy computes spec.md section 4.4's amortized per-op lazy cost:
right = C * (m/n) * lookup_ratio / ((level_mult - 1) * update_ratio).
*/
func (m *Model) CostOfLazy(edgeCount, vertexCount int64) float64 {
	if vertexCount == 0 || m.UpdateRatio == 0 || m.LevelMult == 1 {
		return 0
	}
	avgDegree := float64(edgeCount) / float64(vertexCount)
	return m.CacheMissC * avgDegree * m.LookupRatio / ((m.LevelMult - 1) * m.UpdateRatio)
}

/*
Decide picks Eager or Lazy for a vertex with approximate degree d, given
the current live edge and vertex counts (spec.md section 4.4): Eager if
cost-of-eager < cost-of-lazy, else Lazy.
*/
func (m *Model) Decide(d, edgeCount, vertexCount int64) Policy {
	left := m.CostOfEager(d)
	right := m.CostOfLazy(edgeCount, vertexCount)
	if left < right {
		return Eager
	}
	return Lazy
}
