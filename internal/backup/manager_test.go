package backup

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSnapshotter struct {
	dbPath string
	data   []byte
	err    error
	calls  atomic.Int64
}

func (f *fakeSnapshotter) DBPath() string { return f.dbPath }

func (f *fakeSnapshotter) SnapshotTo(dstPath string) error {
	f.calls.Add(1)
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(dstPath, f.data, 0644)
}

func TestNewManager_Disabled(t *testing.T) {
	t.Parallel()

	m, err := NewManager(&fakeSnapshotter{dbPath: "/tmp/pulse.duckdb", data: []byte("x")}, Config{})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manager when disabled")
	}
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store Snapshotter
		cfg   Config
		want  string
	}{
		{"nil store", nil, Config{Enabled: true, Dir: "/tmp"}, "nil snapshotter"},
		{"in-memory store", &fakeSnapshotter{}, Config{Enabled: true, Dir: "/tmp"}, "in-memory"},
		{"missing dir", &fakeSnapshotter{dbPath: "/tmp/pulse.duckdb"}, Config{Enabled: true}, "dir is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewManager(tt.store, tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestNewManager_TakesStartupSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := &fakeSnapshotter{dbPath: "/tmp/pulse.duckdb", data: []byte("snapshot")}
	m, err := NewManager(store, Config{Enabled: true, Dir: dir, Interval: time.Hour})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Stop()

	files, err := m.Snapshots()
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("snapshots after start = %d, want 1", len(files))
	}
}

func TestRunOnce_CreatesAndPrunesSnapshots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newManager(&fakeSnapshotter{dbPath: "/tmp/pulse.duckdb", data: []byte("snapshot")}, Config{
		Enabled:  true,
		Dir:      dir,
		KeepLast: 2,
	})
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	var paths []string
	for i := 0; i < 3; i++ {
		p, err := m.RunOnce()
		if err != nil {
			t.Fatalf("RunOnce #%d: %v", i+1, err)
		}
		paths = append(paths, p)
	}

	files, err := m.Snapshots()
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("snapshot files = %d, want 2", len(files))
	}
	if files[0] != paths[2] || files[1] != paths[1] {
		t.Fatalf("kept %v, want newest two %v", files, paths[1:])
	}
	if filepath.Base(paths[0]) != "pulse-events-20240501-080100.000.duckdb" {
		t.Fatalf("snapshot name = %q", filepath.Base(paths[0]))
	}
}

func TestRunOnce_SnapshotError(t *testing.T) {
	t.Parallel()

	m := newManager(&fakeSnapshotter{dbPath: "/tmp/pulse.duckdb", err: errors.New("disk full")}, Config{Dir: t.TempDir(), KeepLast: 1})
	if _, err := m.RunOnce(); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("RunOnce error = %v, want disk full", err)
	}
}

func TestStop_EndsLoopAndIsIdempotent(t *testing.T) {
	t.Parallel()

	store := &fakeSnapshotter{dbPath: "/tmp/pulse.duckdb", data: []byte("s")}
	m, err := NewManager(store, Config{Enabled: true, Dir: t.TempDir(), Interval: 5 * time.Millisecond, KeepLast: 3})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("periodic snapshots did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
