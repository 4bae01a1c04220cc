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
Package sketch implements GraphLSM's constant-memory degree estimators
(spec.md section 4.5): a Morris approximate counter, grown by doubling on
demand, and an optional Count-Min sketch for comparison/benchmarking.

Both structures are guarded by a single coarse mutex (spec.md section 5) --
the Morris byte vector is resized by foreground writes and decremented by
merge-operator callbacks running on background compaction threads, so a
per-byte atomic is not enough on its own to protect a concurrent resize.
*/
package sketch

import (
	"math"
	"math/rand"
	"sync"
)

const (
	exponentBits = 3
	mantissaBits = 5
	exponentMax  = 1 << exponentBits // exclusive upper bound on e
	mantissaMask = (1 << mantissaBits) - 1
	saturated    = 0xFF
)

/*
MorrisVector holds one Morris approximate counter byte per vertex,
growing in place as new vertex ids are seen (spec.md section 4.5). The
zero value is not usable; construct with NewMorrisVector.
*/
type MorrisVector struct {
	mu    sync.Mutex
	bytes []byte
	rnd   *rand.Rand
}

/*
NewMorrisVector returns an empty MorrisVector.
*/
func NewMorrisVector() *MorrisVector {
	return &MorrisVector{rnd: rand.New(rand.NewSource(1))}
}

func splitByte(b byte) (e, m byte) {
	return b >> mantissaBits, b & mantissaMask
}

func joinByte(e, m byte) byte {
	return e<<mantissaBits | m
}

func (v *MorrisVector) ensureLocked(idx int) {
	if idx < len(v.bytes) {
		return
	}
	size := len(v.bytes)
	if size == 0 {
		size = 1
	}
	for size <= idx {
		size *= 2
	}
	grown := make([]byte, size)
	copy(grown, v.bytes)
	v.bytes = grown
}

/*
Increment grows the vector if idx is new, then performs a probabilistic
increment of the byte at idx: flips a coin with probability 1/2^e and,
on success, increments the byte (carrying mantissa overflow into the
exponent). A saturated byte (0xFF) is a silent no-op (spec.md section
7's "sketch overflow" rule).
*/
func (v *MorrisVector) Increment(idx int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureLocked(idx)

	b := v.bytes[idx]
	if b == saturated {
		return
	}
	e, m := splitByte(b)
	if !v.coinFlip(e) {
		return
	}
	m++
	if m > mantissaMask {
		m = 0
		e++
		if e >= exponentMax {
			v.bytes[idx] = saturated
			return
		}
	}
	v.bytes[idx] = joinByte(e, m)
}

/*
Decrement mirrors Increment for the delete path: probability 1/2^e,
no-op if the byte is already zero. Merge-operator callbacks call this
on background compaction threads -- it never grows the vector, only
writes to an index that Increment has already made valid (spec.md
section 5).
*/
func (v *MorrisVector) Decrement(idx int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if idx >= len(v.bytes) || v.bytes[idx] == 0 {
		return
	}

	b := v.bytes[idx]
	e, m := splitByte(b)
	if !v.coinFlip(e) {
		return
	}
	if m == 0 {
		if e == 0 {
			return
		}
		e--
		m = mantissaMask
	} else {
		m--
	}
	v.bytes[idx] = joinByte(e, m)
}

func (v *MorrisVector) coinFlip(e byte) bool {
	if e == 0 {
		return true
	}
	return v.rnd.Float64() < 1/math.Pow(2, float64(e))
}

/*
Estimate returns the approximate count for idx: (2^e - 1)*2^mantissaBits
+ 2^e*M, saturating at math.MaxInt32 once the byte reads 0xFF (spec.md
section 4.5). An index past the end of the vector estimates zero.
*/
func (v *MorrisVector) Estimate(idx int) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if idx >= len(v.bytes) {
		return 0
	}
	b := v.bytes[idx]
	if b == saturated {
		return math.MaxInt32
	}
	e, m := splitByte(b)
	return (int64(1)<<e-1)<<mantissaBits + int64(1)<<e*int64(m)
}

/*
MemoryBytes reports the vector's resident byte count, for benchmarking
(spec.md section 4.5).
*/
func (v *MorrisVector) MemoryBytes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.bytes)
}

/*
Len reports how many indices the vector currently covers.
*/
func (v *MorrisVector) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.bytes)
}

/*
Bytes returns a copy of the raw counter bytes, for GraphMeta.log
persistence (spec.md section 6).
*/
func (v *MorrisVector) Bytes() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.bytes...)
}

/*
LoadBytes replaces the vector's contents with raw, read back from a
GraphMeta.log sidecar written by a prior run.
*/
func (v *MorrisVector) LoadBytes(raw []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bytes = append([]byte(nil), raw...)
}

/*
ExponentBits and MantissaBits are the fixed layout constants persisted
alongside morris_bytes in GraphMeta.log, kept as exported functions so
the meta package can write them without duplicating the constants.
*/
func ExponentBits() int32 { return exponentBits }
func MantissaBits() int32 { return mantissaBits }
