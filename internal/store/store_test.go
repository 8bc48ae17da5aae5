package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestOpen_CreatesFileWithSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	for _, table := range []string{"runs", "outcomes"} {
		if cols := columns(t, s.db, table); len(cols) == 0 {
			t.Errorf("table %q not created", table)
		}
	}
}

func TestOpen_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.WriteRun(context.Background(), sealedRun(t, "run-1", passed(1, "breakpoint"))); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	s.Close()

	for i := 0; i < 2; i++ {
		s, err = Open(path)
		if err != nil {
			t.Fatalf("reopen %d failed: %v", i, err)
		}
		runs, err := s.ListRuns(context.Background(), 0)
		s.Close()
		if err != nil {
			t.Fatalf("ListRuns() failed: %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("reopen %d: got %d runs, want 1", i, len(runs))
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open("/nonexistent/dir/history.db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	db.Close()

	_, err = Open(path)
	var ve *VersionError
	if !errors.As(err, &ve) {
		t.Fatalf("Open() error = %v, want *VersionError", err)
	}
	if ve.Version != 7 {
		t.Errorf("VersionError.Version = %d, want 7", ve.Version)
	}
}

func TestOpen_StampsSchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("get user_version: %v", err)
	}
	if version != schemaVersion {
		t.Errorf("user_version = %d, want %d", version, schemaVersion)
	}
}

func TestClose_ZeroStore(t *testing.T) {
	if err := (&Store{}).Close(); err != nil {
		t.Errorf("Close() on zero store: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if err := s.db.QueryRow("PRAGMA " + tt.name).Scan(&got); err != nil {
				t.Fatalf("query %s: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	want := map[string][]string{
		"runs":     {"seq", "id", "started_at", "profile", "device", "passed", "failed", "skipped", "total", "aborted", "digest"},
		"outcomes": {"run_id", "idx", "name", "component", "status", "reason", "cause", "failures"},
	}
	for table, cols := range want {
		have := columns(t, s.db, table)
		for _, col := range cols {
			if !slices.Contains(have, col) {
				t.Errorf("%s missing column %q, have %v", table, col, have)
			}
		}
	}
}

func TestSchema_DigestIndex(t *testing.T) {
	s := createTestStore(t)

	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name='runs' AND name='idx_runs_digest'").Scan(&name)
	if err != nil {
		t.Errorf("idx_runs_digest not found: %v", err)
	}
}

func TestConstraint_OutcomeStatus(t *testing.T) {
	s := createTestStore(t)
	if err := s.WriteRun(context.Background(), sealedRun(t, "run-1", passed(1, "fence.i"))); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	_, err := s.db.Exec(`INSERT INTO outcomes (run_id, idx, name, component, status) VALUES ('run-1', 2, 'x', 'y', 'running')`)
	if err == nil {
		t.Error("expected CHECK violation for unknown status")
	}
}

func TestConstraint_OutcomeNeedsRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO outcomes (run_id, idx, name, component, status) VALUES ('missing', 1, 'x', 'y', 'passed')`)
	if err == nil {
		t.Error("expected foreign key violation for unknown run")
	}
}

func columns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table info for %q: %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}
