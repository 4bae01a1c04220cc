/*
 * GraphLSM
 *
 * Copyright 2024 The GraphLSM Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package meta

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SidecarName)

	want := State{N: 42, M: 137, Morris: []byte{1, 2, 3, 4, 5}}
	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, ok, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for a freshly written sidecar")
	}
	if got.N != want.N || got.M != want.M {
		t.Fatalf("got N=%d M=%d, want N=%d M=%d", got.N, got.M, want.N, want.M)
	}
	if string(got.Morris) != string(want.Morris) {
		t.Fatalf("got Morris=%v, want %v", got.Morris, want.Morris)
	}
}

func TestReadMissingFileInitializesFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SidecarName)

	state, ok, err := Read(path)
	if err != nil {
		t.Fatalf("expected no error for a missing sidecar, got %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a missing sidecar")
	}
	if state.N != 0 || state.M != 0 {
		t.Fatalf("expected zero state, got %+v", state)
	}
}

func TestReadShortFileFallsBackToFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SidecarName)
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, ok, err := Read(path)
	if err != nil {
		t.Fatalf("expected no error for a short/malformed sidecar, got %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a short sidecar")
	}
}

func TestReadRejectsIncompatibleMorrisLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SidecarName)

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int64(1))
	binary.Write(&buf, binary.LittleEndian, int64(1))
	binary.Write(&buf, binary.LittleEndian, uint64(0))
	binary.Write(&buf, binary.LittleEndian, int32(99)) // wrong exponent_bits
	binary.Write(&buf, binary.LittleEndian, int32(99)) // wrong mantissa_bits
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, ok, err := Read(path)
	if err == nil {
		t.Fatal("expected an error for an incompatible Morris layout")
	}
	if ok {
		t.Fatal("expected ok=false alongside the layout error")
	}
}
