/*
 * GraphLSM
 *
 * Copyright 2024 The GraphLSM Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package policy

import "testing"

func TestPolicyString(t *testing.T) {
	cases := map[Policy]string{
		Eager:    "Eager",
		Lazy:     "Lazy",
		Adaptive: "Adaptive",
		FullLazy: "FullLazy",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Fatalf("Policy(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}

func TestWriteAmplificationScalesWithLevelNum(t *testing.T) {
	m := DefaultModel(10, 0.5, 0.5)
	m.RefreshLevelNum(3)
	if got, want := m.WriteAmplification(), 30.0; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestShouldRefreshFiresEveryIntervalDecisions(t *testing.T) {
	m := DefaultModel(10, 0.5, 0.5)
	fired := 0
	for i := 0; i < 20000; i++ {
		if m.ShouldRefresh() {
			fired++
		}
	}
	if fired != 2 {
		t.Fatalf("expected exactly 2 refresh signals over 20000 decisions, got %d", fired)
	}
}

func TestCostOfEagerIncreasesWithDegree(t *testing.T) {
	m := DefaultModel(10, 0.5, 0.5)
	m.RefreshLevelNum(2)
	low := m.CostOfEager(1)
	high := m.CostOfEager(1000)
	if !(high > low) {
		t.Fatalf("expected cost to grow with degree: low=%v high=%v", low, high)
	}
}

func TestCostOfLazyZeroVertexCountIsZero(t *testing.T) {
	m := DefaultModel(10, 0.5, 0.5)
	if got := m.CostOfLazy(100, 0); got != 0 {
		t.Fatalf("expected 0 for zero vertex count, got %v", got)
	}
}

func TestDecidePrefersEagerForLowDegreeVertexInDenseGraph(t *testing.T) {
	m := DefaultModel(10, 0.9, 0.1)
	m.RefreshLevelNum(3)
	// a degree-4 vertex costs ~2.19 to rewrite eagerly, while an average
	// degree of 1000 makes the lazy cost ~11.1, so eager is cheaper.
	got := m.Decide(4, 1_000_000, 1000)
	if got != Eager {
		t.Fatalf("expected Eager for a low-degree vertex in a dense graph, got %v", got)
	}
}

func TestDecidePrefersLazyForHighDegreeDenseGraph(t *testing.T) {
	m := DefaultModel(10, 0.5, 0.5)
	m.RefreshLevelNum(5)
	got := m.Decide(100000, 5_000_000, 1000)
	if got != Lazy {
		t.Fatalf("expected Lazy for a high-degree vertex in a dense graph, got %v", got)
	}
}
