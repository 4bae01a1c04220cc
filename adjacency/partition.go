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
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

/*
partitionSize is 2^logPartitionSize, the default partition size of
spec.md section 4.1.
*/
const logPartitionSize = 7
const partitionSize = 1 << logPartitionSize

/*
partition body type tags. The spec describes a "1-bit type tag"; we make
that a 1-bit dispatch between Elias-Fano and everything else, followed by
a second bit that only gets read for the non-Elias-Fano case -- so the
common case (Elias-Fano) costs exactly one bit.
*/
const (
	tagEliasFano = 0
	tagBitvector = 0 // second-level 0
	tagAllOnes   = 1 // second-level 1
)

/*
encodePartitionWithHeader writes one partition's shifted, 0-based values
(sorted ascending, each < rangeSize) preceded by its gamma-coded range
size, choosing the cheapest of {Elias-Fano, ranked bitvector, all-ones}
by bit-cost comparison (spec.md section 4.1).
*/
func encodePartitionWithHeader(bw *bitWriter, shifted []uint64, rangeSize uint64) {
	bw.WriteGammaZero(rangeSize)

	count := uint64(len(shifted))

	if count == rangeSize {
		// Every position in [0, rangeSize) is occupied: the all-ones case.
		bw.WriteBit(1)
		bw.WriteBit(tagAllOnes)
		return
	}

	efScratch := newBitWriter()
	if count > 0 {
		writeEliasFanoSeq(efScratch, shifted)
	}
	efCost := efScratch.BitLen()
	bvCost := rangeSize

	if uint64(efCost) <= bvCost {
		bw.WriteBit(tagEliasFano)
		if count > 0 {
			writeEliasFanoSeq(bw, shifted)
		}
		return
	}

	bw.WriteBit(1)
	bw.WriteBit(tagBitvector)

	bs := bitset.New(uint(rangeSize))
	for _, v := range shifted {
		bs.Set(uint(v))
	}
	for i := uint64(0); i < rangeSize; i++ {
		bit := uint(0)
		if bs.Test(uint(i)) {
			bit = 1
		}
		bw.WriteBit(bit)
	}
}

/*
decodePartitionWithHeader is the inverse of encodePartitionWithHeader for
a partition known to hold count values.
*/
func decodePartitionWithHeader(br *bitReader, count int) ([]uint64, error) {
	rangeSize := br.ReadGammaZero()

	first := br.ReadBit()
	if first == tagEliasFano {
		if count == 0 {
			return nil, nil
		}
		return readEliasFanoSeq(br, count), nil
	}

	second := br.ReadBit()
	if second == tagAllOnes {
		if uint64(count) != rangeSize {
			return nil, fmt.Errorf("adjacency: corrupt all-ones partition (count=%d range=%d)", count, rangeSize)
		}
		vals := make([]uint64, count)
		for i := range vals {
			vals[i] = uint64(i)
		}
		return vals, nil
	}

	bs := bitset.New(uint(rangeSize))
	for i := uint64(0); i < rangeSize; i++ {
		if br.ReadBit() == 1 {
			bs.Set(uint(i))
		}
	}

	vals := make([]uint64, 0, count)
	for i, ok := bs.NextSet(0); ok; i, ok = bs.NextSet(i + 1) {
		vals = append(vals, uint64(i))
	}
	if len(vals) != count {
		return nil, fmt.Errorf("adjacency: corrupt bitvector partition (want %d values, found %d)", count, len(vals))
	}
	return vals, nil
}

/*
encodeListInto writes the uniform-partitioned Elias-Fano encoding of a
non-empty, strictly ascending, non-negative NodeID list directly into the
shared bit stream bw (spec.md section 4.1). A leading gamma-coded
partition count distinguishes the single-partition layout (no partition
upper-bound header at all) from the multi-partition layout.
*/
func encodeListInto(bw *bitWriter, list []NodeID) {
	n := len(list)
	vals := make([]uint64, n)
	for i, id := range list {
		vals[i] = uint64(id)
	}

	numPartitions := (n + partitionSize - 1) / partitionSize
	bw.WriteGamma(uint64(numPartitions))

	if numPartitions == 1 {
		encodePartitionWithHeader(bw, vals, vals[n-1]+1)
		return
	}

	upperBounds := make([]uint64, numPartitions)
	for i := 0; i < numPartitions; i++ {
		end := (i + 1) * partitionSize
		if end > n {
			end = n
		}
		upperBounds[i] = vals[end-1]
	}
	writeEliasFanoSeq(bw, upperBounds)

	base := uint64(0)
	for i := 0; i < numPartitions; i++ {
		start := i * partitionSize
		end := start + partitionSize
		if end > n {
			end = n
		}
		part := vals[start:end]

		shifted := make([]uint64, len(part))
		for j, v := range part {
			shifted[j] = v - base
		}

		rangeSize := upperBounds[i] - base + 1
		encodePartitionWithHeader(bw, shifted, rangeSize)

		base = upperBounds[i]
	}
}

/*
decodeListFrom reads back a list of n non-negative NodeIDs encoded by
encodeListInto. n == 0 is handled by the caller -- encodeListInto/
decodeListFrom are never invoked for an empty list.
*/
func decodeListFrom(br *bitReader, n int) ([]NodeID, error) {
	numPartitions := int(br.ReadGamma())
	if numPartitions <= 0 {
		return nil, fmt.Errorf("adjacency: corrupt partition count %d", numPartitions)
	}

	if numPartitions == 1 {
		vals, err := decodePartitionWithHeader(br, n)
		if err != nil {
			return nil, err
		}
		return toNodeIDs(vals), nil
	}

	upperBounds := readEliasFanoSeq(br, numPartitions)

	result := make([]NodeID, 0, n)
	base := uint64(0)
	for i := 0; i < numPartitions; i++ {
		start := i * partitionSize
		end := start + partitionSize
		if end > n {
			end = n
		}
		count := end - start
		if count <= 0 {
			return nil, fmt.Errorf("adjacency: corrupt partition layout: partition %d has no declared values", i)
		}

		shifted, err := decodePartitionWithHeader(br, count)
		if err != nil {
			return nil, err
		}

		ub := upperBounds[i]
		for _, s := range shifted {
			result = append(result, NodeID(base+s))
		}
		if result[len(result)-1] != NodeID(ub) {
			return nil, fmt.Errorf("adjacency: corrupt partition %d: last value %d does not match stored upper bound %d", i, result[len(result)-1], ub)
		}
		base = ub
	}

	return result, nil
}

func toNodeIDs(vals []uint64) []NodeID {
	ids := make([]NodeID, len(vals))
	for i, v := range vals {
		ids[i] = NodeID(v)
	}
	return ids
}
