package migrate

import (
	"database/sql"
	"strings"
	"testing"
	"testing/fstest"

	_ "github.com/duckdb/duckdb-go/v2"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunAppliesAllMigrations(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db)

	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Verify core tables exist by querying them
	for _, table := range []string{"events", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db)

	if err := r.Run(); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := r.Run(); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	cur, pending, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if cur != 2 || pending != 0 {
		t.Errorf("expected version=2 pending=0, got version=%d pending=%d", cur, pending)
	}
}

func TestStatusReportsCorrectly(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db)

	// Before any migration
	cur, pending, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if cur != 0 || pending != 2 {
		t.Errorf("before run: expected version=0 pending=2, got version=%d pending=%d", cur, pending)
	}

	// After running
	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cur, pending, err = r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if cur != 2 || pending != 0 {
		t.Errorf("after run: expected version=2 pending=0, got version=%d pending=%d", cur, pending)
	}
}

func TestRunSkipsRecordedVersions(t *testing.T) {
	db := openTestDB(t)
	r := &Runner{db: db, src: fstest.MapFS{
		"migrations/001_a.sql": {Data: []byte("CREATE TABLE a (x INTEGER)")},
		"migrations/002_b.sql": {Data: []byte("CREATE TABLE b (x INTEGER)")},
	}}
	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// A third file appears later; only it should run.
	r.src = fstest.MapFS{
		"migrations/001_a.sql": {Data: []byte("CREATE TABLE a (x INTEGER)")},
		"migrations/002_b.sql": {Data: []byte("CREATE TABLE b (x INTEGER)")},
		"migrations/003_c.sql": {Data: []byte("CREATE TABLE c (x INTEGER)")},
	}
	cur, pending, err := r.Status()
	if err != nil || cur != 2 || pending != 1 {
		t.Fatalf("Status = %d/%d (%v), want 2/1", cur, pending, err)
	}
	if err := r.Run(); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if cur, pending, _ := r.Status(); cur != 3 || pending != 0 {
		t.Fatalf("Status after = %d/%d, want 3/0", cur, pending)
	}
}

func TestRunRejectsDuplicateVersions(t *testing.T) {
	db := openTestDB(t)
	r := &Runner{db: db, src: fstest.MapFS{
		"migrations/001_a.sql":     {Data: []byte("CREATE TABLE a (x INTEGER)")},
		"migrations/001_again.sql": {Data: []byte("CREATE TABLE b (x INTEGER)")},
	}}
	err := r.Run()
	if err == nil || !strings.Contains(err.Error(), "version 1") {
		t.Fatalf("Run error = %v, want duplicate version error", err)
	}
}

func TestRunFailedMigrationIsNotRecorded(t *testing.T) {
	db := openTestDB(t)
	r := &Runner{db: db, src: fstest.MapFS{
		"migrations/001_bad.sql": {Data: []byte("CREATE TABLE (")},
	}}
	if err := r.Run(); err == nil {
		t.Fatal("expected error for invalid SQL")
	}
	cur, pending, err := r.Status()
	if err != nil || cur != 0 || pending != 1 {
		t.Fatalf("Status = %d/%d (%v), want 0/1", cur, pending, err)
	}
}
