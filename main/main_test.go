/*
	Copyright (c) 2026 the trackerd authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file.

	main_test.go: entrypoint-adjacent helpers exercised directly, since
	main() itself is integration wiring rather than a unit under test.
*/

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTraceSnapshotWritesFile(t *testing.T) {
	log := NewLogger(DefaultConfig())
	path := filepath.Join(t.TempDir(), "snapshot.json")

	if err := writeTraceSnapshot(log, path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("writeTraceSnapshot: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("content = %q", got)
	}
}
