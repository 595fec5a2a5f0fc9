package duckdb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotTo_InMemoryStore(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.SnapshotTo(filepath.Join(t.TempDir(), "copy.duckdb"))
	if !errors.Is(err, ErrInMemoryStore) {
		t.Fatalf("SnapshotTo error = %v, want ErrInMemoryStore", err)
	}
}

func TestSnapshotTo_CopyIsReadable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "pulse.duckdb"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	insertTestEvents(t, store, sampleEvents())

	dst := filepath.Join(dir, "backups", "copy.duckdb")
	if err := store.SnapshotTo(dst); err != nil {
		t.Fatalf("SnapshotTo: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "copy.duckdb" {
		t.Fatalf("snapshot dir holds %d entries, want only copy.duckdb", len(entries))
	}

	copied, err := NewStore(dst)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer copied.Close()

	want, err := store.TableRowCounts()
	if err != nil {
		t.Fatalf("TableRowCounts(original): %v", err)
	}
	got, err := copied.TableRowCounts()
	if err != nil {
		t.Fatalf("TableRowCounts(copy): %v", err)
	}
	if got["events"] != want["events"] || got["events"] == 0 {
		t.Fatalf("copied events = %d, want %d", got["events"], want["events"])
	}
}
