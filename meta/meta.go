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
Package meta persists GraphLSM's cross-run state -- the vertex and edge
counters and the Morris counter vector -- to the GraphMeta.log sidecar
file described in spec.md section 6, and declares the column-family
descriptors the engine opens its store with.
*/
package meta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/fileutil"
	"github.com/krotik/graphlsm/kvstore"
	"github.com/krotik/graphlsm/sketch"
)

/*
ColumnFamilies lists every column family GraphLSM's store must be opened
with (spec.md section 3): "adjacency" for the core, plus the two
property-extension families the core does not otherwise touch.
*/
var ColumnFamilies = []kvstore.ColumnFamily{
	kvstore.CFAdjacency,
	kvstore.CFEdgeProperty,
	kvstore.CFVertexProperty,
}

/*
SidecarName is the fixed file name GraphLSM persists n, m and the Morris
vector under, relative to db_path (spec.md section 6).
*/
const SidecarName = "GraphMeta.log"

/*
State is the in-memory shape of GraphMeta.log: everything the engine
needs to resume after a restart without re-probing the store.
*/
type State struct {
	N      int64
	M      int64
	Morris []byte
}

/*
Write serializes state to path in the fixed little-endian layout spec.md
section 6 describes:

	i64  n
	i64  m
	usz  morris_len
	u8[morris_len]  morris_bytes
	i32  morris_exponent_bits
	i32  morris_mantissa_bits

usz is written as a little-endian u64, matching the other fixed-width
fields -- the layout has no other variable-length members so there is
no ambiguity to resolve at read time.

binary.Write against an in-memory bytes.Buffer cannot fail for any of
these fixed-width fields, so those writes are asserted with
errorutil.AssertOk rather than threaded through individual error
returns (the teacher's own config/storage code uses the same assertion
for writes it considers unable to fail).
*/
func Write(path string, state State) error {
	var buf bytes.Buffer
	errorutil.AssertOk(binary.Write(&buf, binary.LittleEndian, state.N))
	errorutil.AssertOk(binary.Write(&buf, binary.LittleEndian, state.M))
	errorutil.AssertOk(binary.Write(&buf, binary.LittleEndian, uint64(len(state.Morris))))
	buf.Write(state.Morris)
	errorutil.AssertOk(binary.Write(&buf, binary.LittleEndian, sketch.ExponentBits()))
	errorutil.AssertOk(binary.Write(&buf, binary.LittleEndian, sketch.MantissaBits()))

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

/*
Read loads GraphMeta.log from path. A missing or short file is not an
error: spec.md section 6 says to "initialize fresh counters" in that
case, so Read returns a zero State and ok=false rather than an error.
*/
func Read(path string) (state State, ok bool, err error) {
	exists, err := fileutil.PathExists(path)
	if err != nil {
		return State{}, false, fmt.Errorf("meta: checking %s: %w", path, err)
	}
	if !exists {
		return State{}, false, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return State{}, false, fmt.Errorf("meta: reading %s: %w", path, err)
	}

	r := bytes.NewReader(raw)

	var n, m int64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return State{}, false, nil
	}
	if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
		return State{}, false, nil
	}

	var morrisLen uint64
	if err := binary.Read(r, binary.LittleEndian, &morrisLen); err != nil {
		return State{}, false, nil
	}

	morris := make([]byte, morrisLen)
	if _, err := io.ReadFull(r, morris); err != nil {
		return State{}, false, nil
	}

	var expBits, mantBits int32
	if err := binary.Read(r, binary.LittleEndian, &expBits); err != nil {
		return State{}, false, nil
	}
	if err := binary.Read(r, binary.LittleEndian, &mantBits); err != nil {
		return State{}, false, nil
	}
	if expBits != sketch.ExponentBits() || mantBits != sketch.MantissaBits() {
		return State{}, false, fmt.Errorf("meta: %s was written with incompatible Morris layout (exponent_bits=%d mantissa_bits=%d)",
			path, expBits, mantBits)
	}

	return State{N: n, M: m, Morris: morris}, true, nil
}
