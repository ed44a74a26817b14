package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/craigfactory/teaguard/internal/db"
	"github.com/craigfactory/teaguard/internal/teaguard/store"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func (s *AccessLogStore) Append(ctx context.Context, att store.AccessAttempt) error {
	if att.OccurredAt.IsZero() {
		att.OccurredAt = time.Now().UTC()
	}
	if att.Location == "" {
		att.Location = "Main Entrance"
	}

	var identityID any
	if att.IdentityID != nil {
		identityID = *att.IdentityID
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_attempts(
  identity_id, name_snapshot, location, method, outcome, occurred_at_ms
) VALUES (?, ?, ?, ?, ?, ?);
`,
			identityID, att.NameSnapshot, att.Location,
			string(att.Method), string(att.Outcome), att.OccurredAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		return nil
	})
}

func (s *AccessLogStore) Recent(ctx context.Context, limit int) ([]store.AccessAttemptView, error) {
	if limit <= 0 || limit > store.MaxRecentAttempts {
		limit = store.MaxRecentAttempts
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT a.id, a.identity_id, a.name_snapshot, COALESCE(i.department, ''),
       a.location, a.method, a.outcome, a.occurred_at_ms
FROM access_attempts a
LEFT JOIN identities i ON a.identity_id = i.id
ORDER BY a.occurred_at_ms DESC, a.id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent query: %w", err)
	}
	defer rows.Close()

	var out []store.AccessAttemptView
	for rows.Next() {
		var (
			v          store.AccessAttemptView
			identityID sql.NullInt64
			occurredMs int64
		)
		if err := rows.Scan(
			&v.ID, &identityID, &v.NameSnapshot, &v.Department,
			&v.Location, &v.Method, &v.Outcome, &occurredMs,
		); err != nil {
			return nil, fmt.Errorf("Recent scan: %w", err)
		}
		if identityID.Valid {
			id := identityID.Int64
			v.IdentityID = &id
		}
		v.OccurredAt = time.UnixMilli(occurredMs).UTC()
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Recent rows: %w", err)
	}

	return out, nil
}
