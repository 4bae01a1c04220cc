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
Package engine ties together GraphLSM's write-path dispatcher, merge
operator, adjacency codec and degree sketches into the single type
callers interact with: Engine (spec.md sections 4.3, 4.6, 4.7).
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/krotik/graphlsm/adjacency"
	"github.com/krotik/graphlsm/kvstore"
	"github.com/krotik/graphlsm/policy"
)

/*
FilterType selects which degree sketch(es) Engine maintains (spec.md
section 6's filter_type option).
*/
type FilterType int

const (
	FilterNone FilterType = iota
	FilterMorris
	FilterCountMin
	FilterAll
)

func (f FilterType) String() string {
	switch f {
	case FilterNone:
		return "None"
	case FilterMorris:
		return "Morris"
	case FilterCountMin:
		return "CountMin"
	case FilterAll:
		return "All"
	default:
		return fmt.Sprintf("FilterType(%d)", int(f))
	}
}

/*
Options configures an Engine, matching spec.md section 6's constructor
table plus the adaptive model constants section 4.4 needs but the table
leaves to the store binding (LevelMult).

Store is the already-open KV store binding the engine runs over. It may
be nil, in which case Open constructs an in-memory kvstore.MemStore --
convenient for tests and for callers with no production store binding
wired up yet.
*/
type Options struct {
	Store kvstore.Store

	EdgeUpdatePolicy policy.Policy
	EncodingType     adjacency.Format
	AutoReinitialize bool
	DBPath           string
	FilterType       FilterType

	UpdateRatio   float64
	LookupRatio   float64
	CacheMissRate float64 // C, default 0.9 if zero
	LevelMult     float64 // LSM per-level size multiplier, default 10 if zero
}

var ErrMissingDBPath = errors.New("engine: Options.DBPath is required")

func (o *Options) setDefaults() {
	if o.CacheMissRate == 0 {
		o.CacheMissRate = 0.9
	}
	if o.LevelMult == 0 {
		o.LevelMult = 10
	}
	if o.UpdateRatio == 0 && o.LookupRatio == 0 {
		o.UpdateRatio, o.LookupRatio = 0.5, 0.5
	}
}
