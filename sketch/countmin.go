/*
 * GraphLSM
 *
 * Copyright 2024 The GraphLSM Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package sketch

import (
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultDelta = 0.1
	defaultEps   = 1.0 / 12000
)

/*
CountMinSketch is the optional secondary degree estimator (spec.md
section 4.5), used only in comparison/benchmarking mode (filter_type =
CountMin or All). height and width follow the standard Count-Min sizing
formulas: height = ceil(ln(1/delta)), width = ceil(e/epsilon).
*/
type CountMinSketch struct {
	mu     sync.Mutex
	height int
	width  int
	table  [][]int64
}

/*
NewCountMinSketch builds a sketch sized for the default error bounds
(delta=0.1, epsilon=1/12000) from spec.md section 4.5.
*/
func NewCountMinSketch() *CountMinSketch {
	return NewCountMinSketchWithBounds(defaultDelta, defaultEps)
}

/*
NewCountMinSketchWithBounds builds a sketch sized for the given failure
probability delta and error bound epsilon.
*/
func NewCountMinSketchWithBounds(delta, epsilon float64) *CountMinSketch {
	height := int(math.Ceil(math.Log(1 / delta)))
	if height < 1 {
		height = 1
	}
	width := int(math.Ceil(math.E / epsilon))
	if width < 1 {
		width = 1
	}

	table := make([][]int64, height)
	for i := range table {
		table[i] = make([]int64, width)
	}
	return &CountMinSketch{height: height, width: width, table: table}
}

/*
rowHash hashes v into row's column space using xxhash seeded by the row
index, the "seeded PRNG keyed by the vertex id" of spec.md section 4.5
generalized to an independent hash per row rather than a PRNG reseeded
per query.
*/
func (s *CountMinSketch) rowHash(row int, v int64) uint64 {
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(uint64(v) >> (8 * i))
	}
	for i := 0; i < 8; i++ {
		buf[8+i] = byte(uint64(row) >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

/*
Update adds 1 to the addressed cell in each row for vertex v.
*/
func (s *CountMinSketch) Update(v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for row := 0; row < s.height; row++ {
		col := int(s.rowHash(row, v) % uint64(s.width))
		s.table[row][col]++
	}
}

/*
Decrement subtracts 1 from the addressed cell in each row for vertex v,
mirroring Update for the delete path.
*/
func (s *CountMinSketch) Decrement(v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for row := 0; row < s.height; row++ {
		col := int(s.rowHash(row, v) % uint64(s.width))
		s.table[row][col]--
	}
}

/*
Query returns the minimum across rows for vertex v, the Count-Min point
estimate.
*/
func (s *CountMinSketch) Query(v int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	min := int64(math.MaxInt64)
	for row := 0; row < s.height; row++ {
		col := int(s.rowHash(row, v) % uint64(s.width))
		if s.table[row][col] < min {
			min = s.table[row][col]
		}
	}
	return min
}

/*
MemoryBytes reports the table's resident byte count, for benchmarking
(spec.md section 4.5).
*/
func (s *CountMinSketch) MemoryBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height * s.width * 8
}

/*
Dimensions returns the sketch's (height, width).
*/
func (s *CountMinSketch) Dimensions() (height, width int) {
	return s.height, s.width
}
