package testutil

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// OpenRawDB opens a store file directly, bypassing the store package
func OpenRawDB(t *testing.T, dbPath string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// HoldWriteLock takes the database write lock from a separate handle and
// keeps it until the returned release func is called.
func HoldWriteLock(t *testing.T, dbPath string) (release func()) {
	t.Helper()
	ctx := context.Background()
	db := OpenRawDB(t, dbPath)
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Failed to get connection: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		_ = conn.Close()
		t.Fatalf("Failed to take write lock: %v", err)
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		_ = conn.Close()
	}
}

// CountRows returns SELECT count(*) for table
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT count(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}
