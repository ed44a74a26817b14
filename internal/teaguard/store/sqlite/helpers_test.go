package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/craigfactory/teaguard/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each call gets a unique in-memory database.  The shared-cache URI
	// keeps the database alive for the lifetime of the connection pool
	// (important because sql.DB may close/reopen the underlying conn).
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		t.Name(),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	// Match production: single connection for SQLite safety.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	// Apply the same migrations as production.
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

type seedRow struct {
	name        string
	department  string
	status      string
	enrolled    bool
	face        string
	fingerprint string
	cardID      string
}

// seedIdentity inserts one identity row and returns its id.
func seedIdentity(t *testing.T, conn *sql.DB, r seedRow) int64 {
	t.Helper()

	if r.status == "" {
		r.status = "Active"
	}
	nowMs := time.Now().UTC().UnixMilli()

	res, err := conn.ExecContext(context.Background(), `
INSERT INTO identities(
  name, department, role, status, enrolled,
  face_template, fingerprint_template, card_id,
  created_at_ms, updated_at_ms
) VALUES (?, ?, '', ?, ?, ?, ?, ?, ?, ?);
`,
		r.name, r.department, r.status, boolInt(r.enrolled),
		nullIfBlank(r.face), nullIfBlank(r.fingerprint), nullIfBlank(r.cardID),
		nowMs, nowMs,
	)
	if err != nil {
		t.Fatalf("seedIdentity %q: %v", r.name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seedIdentity %q: LastInsertId: %v", r.name, err)
	}
	return id
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfBlank(s string) any {
	if s == "" {
		return nil
	}
	return s
}
