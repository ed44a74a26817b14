package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/craigfactory/teaguard/internal/db"
	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

type DirectoryStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDirectoryStore(db *sql.DB, writer *dbpkg.Worker) *DirectoryStore {
	return &DirectoryStore{db: db, writer: writer}
}

// ListCandidates returns every Active, enrolled identity in id order. The
// id ordering makes "first candidate wins" deterministic for the matcher.
func (s *DirectoryStore) ListCandidates(ctx context.Context) ([]types.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, department, role, status, enrolled,
       face_template, fingerprint_template, card_id, last_access_at_ms
FROM identities
WHERE status = 'Active' AND enrolled = 1
ORDER BY id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListCandidates query: %w", err)
	}
	defer rows.Close()

	var out []types.Identity
	for rows.Next() {
		var (
			ident        types.Identity
			enrolled     int
			face, fp     sql.NullString
			cardID       sql.NullString
			lastAccessMs sql.NullInt64
		)
		if err := rows.Scan(
			&ident.ID, &ident.Name, &ident.Department, &ident.Role,
			&ident.Status, &enrolled, &face, &fp, &cardID, &lastAccessMs,
		); err != nil {
			return nil, fmt.Errorf("ListCandidates scan: %w", err)
		}
		ident.Enrolled = enrolled == 1
		ident.FaceTemplate = face.String
		ident.FingerprintTemplate = fp.String
		ident.CardID = cardID.String
		if lastAccessMs.Valid {
			t := time.UnixMilli(lastAccessMs.Int64).UTC()
			ident.LastAccessAt = &t
		}
		out = append(out, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCandidates rows: %w", err)
	}

	return out, nil
}

func (s *DirectoryStore) TouchLastAccess(ctx context.Context, identityID int64, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE identities
SET last_access_at_ms = ?,
    updated_at_ms     = ?
WHERE id = ?;
`, ms, ms, identityID); err != nil {
			return fmt.Errorf("TouchLastAccess update: %w", err)
		}
		return nil
	})
}
