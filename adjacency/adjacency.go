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
Package adjacency implements GraphLSM's data model (spec.md section 3) and
its adjacency codec (spec.md section 4.1): the bijective mapping between an
Edges value -- a vertex's sorted out- and in-neighbor lists -- and the byte
string persisted under its key.

Two codec formats are supported: Plain, a flat array of big-endian ids, and
EliasFanoPartitioned (EFP), a uniform-partitioned Elias-Fano encoding over
the fixed universe [0, 2^32). The chosen format is a property of the engine
instance; Decode must always be called with the same Format an Encode call
used.
*/
package adjacency

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

/*
errCorruption is wrapped into every error Decode returns for malformed
input, so callers can test for it with errors.Is regardless of the
specific mismatch that was detected (spec.md section 7).
*/
var errCorruption = errors.New("corrupt adjacency record")

/*
NodeID identifies a graph vertex. Negative values are reserved to encode
tombstones inside delta records (spec.md section 3) and must never be used
as a real vertex identifier.
*/
type NodeID int64

/*
IsTombstone reports whether id encodes a delete-this-neighbor marker.
*/
func (id NodeID) IsTombstone() bool {
	return id < 0
}

/*
Neighbor returns the neighbor id a tombstone refers to, i.e. -id.
Calling it on a non-tombstone id is a programming error.
*/
func (id NodeID) Neighbor() NodeID {
	return -id
}

/*
Edges is the adjacency record for one vertex: its sorted, deduplicated
out-neighbors and in-neighbors (spec.md section 3). Both slices must stay
strictly ascending and free of negative values once an Edges value is no
longer a delta -- see invariants 1-3 in spec.md section 3.
*/
type Edges struct {
	Out []NodeID
	In  []NodeID
}

/*
Clone returns a deep copy of e, so callers can mutate the result without
aliasing e's backing arrays.
*/
func (e Edges) Clone() Edges {
	out := append([]NodeID(nil), e.Out...)
	in := append([]NodeID(nil), e.In...)
	return Edges{Out: out, In: in}
}

/*
OutDegree and InDegree return the live neighbor counts, satisfying
spec.md invariant 3 (out.len == num_edges_out, in.len == num_edges_in) as
long as e holds no tombstones.
*/
func (e Edges) OutDegree() int { return len(e.Out) }
func (e Edges) InDegree() int  { return len(e.In) }

/*
Degree returns the total (out + in) degree, the quantity the Morris
counter and Count-Min sketch (spec.md section 4.5) approximate.
*/
func (e Edges) Degree() int { return len(e.Out) + len(e.In) }

/*
Equal reports whether e and o contain the same out- and in-lists in the
same order, used by the codec's round-trip tests (spec.md testable
property 4).
*/
func (e Edges) Equal(o Edges) bool {
	return equalIDs(e.Out, o.Out) && equalIDs(e.In, o.In)
}

func equalIDs(a, b []NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

/*
sortedInsert inserts id into a strictly-sorted ascending slice, returning
the updated slice and whether id was newly inserted (false if it was
already present, matching the write-path dispatcher's duplicate-skip rule,
spec.md section 4.3).
*/
func sortedInsert(list []NodeID, id NodeID) ([]NodeID, bool) {
	i := sort.Search(len(list), func(i int) bool { return list[i] >= id })
	if i < len(list) && list[i] == id {
		return list, false
	}
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = id
	return list, true
}

/*
sortedRemove removes id from a strictly-sorted ascending slice if present,
returning the updated slice and whether anything was removed.
*/
func sortedRemove(list []NodeID, id NodeID) ([]NodeID, bool) {
	i := sort.Search(len(list), func(i int) bool { return list[i] >= id })
	if i >= len(list) || list[i] != id {
		return list, false
	}
	return append(list[:i], list[i+1:]...), true
}

/*
InsertOut inserts w into e.Out in sorted order. Returns false if w was
already present (the eager write path's duplicate-skip, spec.md 4.3).
*/
func (e *Edges) InsertOut(w NodeID) bool {
	list, inserted := sortedInsert(e.Out, w)
	e.Out = list
	return inserted
}

/*
InsertIn mirrors InsertOut for the in-list.
*/
func (e *Edges) InsertIn(u NodeID) bool {
	list, inserted := sortedInsert(e.In, u)
	e.In = list
	return inserted
}

/*
RemoveOut and RemoveIn delete a neighbor from the respective list, used by
the eager delete path.
*/
func (e *Edges) RemoveOut(w NodeID) bool {
	list, removed := sortedRemove(e.Out, w)
	e.Out = list
	return removed
}

func (e *Edges) RemoveIn(u NodeID) bool {
	list, removed := sortedRemove(e.In, u)
	e.In = list
	return removed
}

/*
Validate checks Edges against spec.md section 3's invariants 1-2: both
lists strictly ascending, no negative (tombstone) entries. Delta records
produced by the lazy write path are exempt -- validate those with
ValidateDelta instead.
*/
func Validate(e Edges) error {
	if err := validateSorted(e.Out, false); err != nil {
		return fmt.Errorf("out-list: %w", err)
	}
	if err := validateSorted(e.In, false); err != nil {
		return fmt.Errorf("in-list: %w", err)
	}
	return nil
}

/*
ValidateDelta checks a delta Edges value, which may carry tombstones
(negative ids) but must still be strictly ascending by raw signed
value -- deltas are single-entry in practice (spec.md section 4.3)
so this mostly guards against misuse.
*/
func ValidateDelta(e Edges) error {
	if err := validateSorted(e.Out, true); err != nil {
		return fmt.Errorf("out-list: %w", err)
	}
	if err := validateSorted(e.In, true); err != nil {
		return fmt.Errorf("in-list: %w", err)
	}
	return nil
}

func validateSorted(list []NodeID, allowNegative bool) error {
	for i, id := range list {
		if !allowNegative && id < 0 {
			return fmt.Errorf("negative id %d at position %d", id, i)
		}
		if i > 0 && list[i-1] >= list[i] {
			return fmt.Errorf("not strictly ascending at position %d (%d >= %d)", i, list[i-1], list[i])
		}
	}
	return nil
}

/*
putU64 and getU64 are the standard-layout key encoding (spec.md section
6): 8-byte big-endian, chosen so the store's byte-lexicographic order
agrees with unsigned numeric order over vertex ids.
*/
func putU64(id NodeID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

/*
Key returns the standard-layout key for vertex id.
*/
func Key(id NodeID) []byte {
	return putU64(id)
}

/*
KeyOf decodes a standard-layout key back into its vertex id.
*/
func KeyOf(key []byte) (NodeID, error) {
	if len(key) != 8 {
		return 0, fmt.Errorf("adjacency: bad key length %d", len(key))
	}
	return NodeID(binary.BigEndian.Uint64(key)), nil
}

/*
FullLazyKey builds the fully-lazy layout key: the 8-byte vertex id followed
by a 1-byte disambiguator, the low byte of the other endpoint (spec.md
section 3).
*/
func FullLazyKey(id NodeID, other NodeID) []byte {
	k := putU64(id)
	return append(k, byte(uint64(other)))
}

/*
FullLazyPrefixRange returns the [lower, upper) byte range a FullLazy read
must scan to see every delta for vertex id: [id*256, (id+1)*256) in key
space, i.e. every 1-byte disambiguator suffix.
*/
func FullLazyPrefixRange(id NodeID) (lower, upper []byte) {
	lower = putU64(id)
	lower = append(lower, 0x00)
	upper = putU64(id + 1)
	upper = append(upper, 0x00)
	return lower, upper
}
