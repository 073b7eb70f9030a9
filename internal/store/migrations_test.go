//go:build integration

package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	return db
}

func TestRunMigrations_FreshDatabase(t *testing.T) {
	db := openMigrated(t)

	queries := map[string]string{
		"driver_templates":    `SELECT id, type, name, description, input_schema, formula, created_at, updated_at FROM driver_templates LIMIT 0`,
		"driver_instances":    `SELECT id, template_id, forecast_version_id, name, inputs, period_start, period_end, period_type, created_at, updated_at FROM driver_instances LIMIT 0`,
		"driver_results":      `SELECT id, instance_id, period_type, period_date, revenue, customers, units, calculated_values, created_at, updated_at FROM driver_results LIMIT 0`,
		"driver_dependencies": `SELECT id, parent_instance_id, child_instance_id, mapping, created_at FROM driver_dependencies LIMIT 0`,
	}
	for table, q := range queries {
		if _, err := db.Exec(q); err != nil {
			t.Errorf("%s missing required columns: %v", table, err)
		}
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := openMigrated(t)
	if err := RunMigrations(db); err != nil {
		t.Fatalf("second migration should be idempotent, got error: %v", err)
	}
}

func TestSchema_Indexes(t *testing.T) {
	db := openMigrated(t)

	for _, idx := range []string{"idx_driver_instances_version", "idx_driver_dependencies_child"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		if err != nil {
			t.Errorf("index %s not found: %v", idx, err)
		}
	}
}

func TestSchema_PeriodTypeCheck(t *testing.T) {
	db := openMigrated(t)

	_, err := db.Exec(`
		INSERT INTO driver_templates (id, type, name, input_schema, created_at, updated_at)
		VALUES ('t1', 'cac', 'CAC', '[]', 'now', 'now')
	`)
	if err != nil {
		t.Fatalf("insert template: %v", err)
	}
	_, err = db.Exec(`
		INSERT INTO driver_instances (id, template_id, name, inputs, period_start, period_end, period_type, created_at, updated_at)
		VALUES ('i1', 't1', 'x', '{}', '2025-01-01', '2025-12-31', 'week', 'now', 'now')
	`)
	if err == nil {
		t.Error("expected CHECK constraint failure for period_type 'week'")
	}
}

func TestWALMode_Enabled(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	var journalMode string
	if err := store.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected journal_mode 'wal', got %q", journalMode)
	}
}

func TestPragmas_Applied(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	pragmas := map[string]int{
		"busy_timeout": 5000,
		"foreign_keys": 1,
		"synchronous":  1,
	}
	for pragma, want := range pragmas {
		var got int
		if err := store.db.QueryRow("PRAGMA " + pragma).Scan(&got); err != nil {
			t.Fatalf("failed to query %s: %v", pragma, err)
		}
		if got != want {
			t.Errorf("%s = %d, want %d", pragma, got, want)
		}
	}
}

func TestNewSQLiteStore_CreatesParentDirectories(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store with nested path: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}
