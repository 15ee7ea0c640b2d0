// Package testutil provides a migrated SQLite database for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"readquest/internal/database"
	"readquest/migrations"
)

// NewDB opens a fresh SQLite database in the test's temp dir with all
// migrations applied. It is closed when the test ends.
func NewDB(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// Exec runs a raw statement and fails the test on error
func Exec(t testing.TB, db *database.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
