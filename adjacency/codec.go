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
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/krotik/common/pools"
)

/*
plainBodyPool recycles the scratch buffer encodePlainBody accumulates
each record into before copying it into the final returned slice,
following the teacher's buffer-pooling idiom (storage.BufferPool) for
a value that is allocated on every single write-path call.
*/
var plainBodyPool = pools.NewByteBufferPool()

/*
Format selects the adjacency codec's body layout. The chosen format is a
property of the engine instance (spec.md section 4.1); decode must always
be called with the format encode used.
*/
type Format int

const (
	// Plain is a flat array of big-endian ids.
	Plain Format = iota
	// EliasFanoPartitioned is the uniform-partitioned Elias-Fano codec.
	EliasFanoPartitioned
)

func (f Format) String() string {
	switch f {
	case Plain:
		return "Plain"
	case EliasFanoPartitioned:
		return "EliasFanoPartitioned"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

const headerSize = 8

/*
Encode bijectively encodes e into a byte string (spec.md section 4.1).
e must satisfy the section 3 invariants: EliasFanoPartitioned cannot
represent tombstones (negative ids), since Elias-Fano assumes a
non-negative universe -- the write-path dispatcher forces Eager semantics
for deletes under this format (spec.md section 4.3) so Encode is never
asked to carry one.
*/
func Encode(e Edges, format Format) ([]byte, error) {
	if format == EliasFanoPartitioned {
		if err := Validate(e); err != nil {
			return nil, fmt.Errorf("adjacency: cannot encode tombstone/unsorted input as EliasFanoPartitioned: %w", err)
		}
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(e.Out)))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(e.In)))

	var body []byte
	switch format {
	case Plain:
		body = encodePlainBody(e)
	case EliasFanoPartitioned:
		body = encodeEFPBody(e)
	default:
		return nil, fmt.Errorf("adjacency: unknown format %v", format)
	}

	return append(header, body...), nil
}

/*
Decode is the inverse of Encode. It refuses input whose declared counts
are inconsistent with the body (spec.md section 4.1, section 7's
Corruption taxonomy) rather than returning a partially-decoded record.
*/
func Decode(data []byte, format Format) (Edges, error) {
	if len(data) < headerSize {
		return Edges{}, fmt.Errorf("adjacency: %w: header truncated (%d bytes)", errCorruption, len(data))
	}

	numOut := int(binary.BigEndian.Uint32(data[0:4]))
	numIn := int(binary.BigEndian.Uint32(data[4:8]))
	body := data[headerSize:]

	switch format {
	case Plain:
		return decodePlainBody(body, numOut, numIn)
	case EliasFanoPartitioned:
		return decodeEFPBody(body, numOut, numIn)
	default:
		return Edges{}, fmt.Errorf("adjacency: unknown format %v", format)
	}
}

func encodePlainBody(e Edges) []byte {
	buf := plainBodyPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer plainBodyPool.Put(buf)

	for _, id := range e.Out {
		buf.Write(putU64(id))
	}
	for _, id := range e.In {
		buf.Write(putU64(id))
	}
	return append([]byte(nil), buf.Bytes()...)
}

func decodePlainBody(body []byte, numOut, numIn int) (Edges, error) {
	want := 8 * (numOut + numIn)
	if len(body) != want {
		return Edges{}, fmt.Errorf("adjacency: %w: declared %d+%d ids need %d bytes, got %d",
			errCorruption, numOut, numIn, want, len(body))
	}

	out := make([]NodeID, numOut)
	for i := 0; i < numOut; i++ {
		out[i] = NodeID(binary.BigEndian.Uint64(body[8*i : 8*i+8]))
	}

	inOff := 8 * numOut
	in := make([]NodeID, numIn)
	for i := 0; i < numIn; i++ {
		off := inOff + 8*i
		in[i] = NodeID(binary.BigEndian.Uint64(body[off : off+8]))
	}

	return Edges{Out: out, In: in}, nil
}

func encodeEFPBody(e Edges) []byte {
	bw := newBitWriter()
	if len(e.Out) > 0 {
		encodeListInto(bw, e.Out)
	}
	if len(e.In) > 0 {
		encodeListInto(bw, e.In)
	}
	return bw.Bytes()
}

func decodeEFPBody(body []byte, numOut, numIn int) (e Edges, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, err = Edges{}, fmt.Errorf("adjacency: %w: %v", errCorruption, r)
		}
	}()

	br := newBitReader(body)

	var out, in []NodeID
	if numOut > 0 {
		if out, err = decodeListFrom(br, numOut); err != nil {
			return Edges{}, fmt.Errorf("adjacency: %w: %v", errCorruption, err)
		}
	}
	if numIn > 0 {
		if in, err = decodeListFrom(br, numIn); err != nil {
			return Edges{}, fmt.Errorf("adjacency: %w: %v", errCorruption, err)
		}
	}

	// Every bit past the consumed prefix must be zero padding.
	for i := br.pos; i < uint(len(body))*8; i++ {
		if body[i/8]>>(7-i%8)&1 != 0 {
			return Edges{}, fmt.Errorf("adjacency: %w: non-zero padding bits", errCorruption)
		}
	}

	return Edges{Out: out, In: in}, nil
}
