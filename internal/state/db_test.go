package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// setupTestDB creates a migrated temporary database.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenArchive(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func insertProject(t *testing.T, tx interface {
	Exec(string, ...any) (sql.Result, error)
}, id string) error {
	t.Helper()
	_, err := tx.Exec("INSERT INTO projects (workflow_id, name, template, output_path, created_at) VALUES (?, ?, ?, ?, ?)",
		id, "demo-app", "saas-basic", "/tmp/demo", "2024-01-01T00:00:00.000000000Z")
	return err
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "c")

	db, err := Open(filepath.Join(nested, "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open("/proc/nonexistent/test.db"); err == nil {
		t.Error("expected error opening db at invalid path")
	}
}

func TestClose(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, err := db.Query("SELECT 1"); err == nil {
		t.Error("expected error after close, got nil")
	}
}

func TestMigrate(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"schema_version", "projects", "workflows"} {
		var count int
		row := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := row.Scan(&count); err != nil {
			t.Errorf("failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 3; i++ {
		if err := db.Migrate(); err != nil {
			t.Fatalf("Migrate (iteration %d) failed: %v", i, err)
		}
	}

	var version int
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestTransaction_Success(t *testing.T) {
	db := setupTestDB(t)

	err := db.Transaction(func(tx *sql.Tx) error {
		return insertProject(t, tx, "tx-1")
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM projects WHERE workflow_id = ?", "tx-1").Scan(&count); err != nil {
		t.Fatalf("failed to verify: %v", err)
	}
	if count != 1 {
		t.Error("transaction was not committed")
	}
}

func TestTransaction_Rollback(t *testing.T) {
	db := setupTestDB(t)

	err := db.Transaction(func(tx *sql.Tx) error {
		if err := insertProject(t, tx, "tx-fail"); err != nil {
			return err
		}
		return fmt.Errorf("simulated error")
	})
	if err == nil {
		t.Error("expected error from Transaction")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM projects WHERE workflow_id = ?", "tx-fail").Scan(&count); err != nil {
		t.Fatalf("failed to verify: %v", err)
	}
	if count != 0 {
		t.Error("transaction was not rolled back")
	}
}

func TestDefaultArchivePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got, want := DefaultArchivePath(), "/custom/data/genesis/archive.db"; got != want {
		t.Errorf("DefaultArchivePath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_DATA_HOME", "")
	home, _ := os.UserHomeDir()
	if got, want := DefaultArchivePath(), filepath.Join(home, ".local", "share", "genesis", "archive.db"); got != want {
		t.Errorf("DefaultArchivePath() = %q, want %q", got, want)
	}
}

func TestProjectArchivePath(t *testing.T) {
	if got, want := ProjectArchivePath("/my/project"), "/my/project/.genesis/archive.db"; got != want {
		t.Errorf("ProjectArchivePath() = %q, want %q", got, want)
	}
}

func TestFormatAndParseTime(t *testing.T) {
	now := time.Now()
	parsed, err := parseTime(formatTime(now))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !now.Equal(parsed) {
		t.Errorf("time round-trip failed: got %v, want %v", parsed, now.UTC())
	}

	// Fixed width keeps lexical order equal to time order.
	a := formatTime(time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC))
	b := formatTime(time.Date(2024, 1, 1, 0, 0, 5, 500_000_000, time.UTC))
	if !(a < b) {
		t.Errorf("%q should sort before %q", a, b)
	}
}

func TestParseTime_AcceptsRFC3339(t *testing.T) {
	if _, err := parseTime("2024-01-01T12:00:00Z"); err != nil {
		t.Errorf("parseTime(RFC3339) error = %v", err)
	}
}

func TestParseNullableTime(t *testing.T) {
	if got, err := parseNullableTime(sql.NullString{String: "2024-01-01T12:00:00Z", Valid: true}); err != nil || got == nil {
		t.Errorf("valid input = %v, %v", got, err)
	}
	if got, err := parseNullableTime(sql.NullString{Valid: false}); err != nil || got != nil {
		t.Errorf("null input = %v, %v", got, err)
	}
	if _, err := parseNullableTime(sql.NullString{String: "not a time", Valid: true}); err == nil {
		t.Error("expected error for invalid format")
	}
}
