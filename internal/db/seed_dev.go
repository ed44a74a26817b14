package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SeedDev inserts a handful of enrolled identities so a dev instance can
// authenticate probes out of the box. Templates are long opaque strings
// because the matcher only considers stored templates above its minimum
// length (100 for face, 50 for fingerprint).
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	seed := []struct {
		name, department, role string
		face, fingerprint      string
		cardID                 string
	}{
		{
			name: "Krishan Perera", department: "Production", role: "Supervisor",
			face:   devTemplate("face-krishan", 128),
			cardID: "CARD-0001",
		},
		{
			name: "Nimal Silva", department: "Security", role: "Guard",
			fingerprint: devTemplate("fp-nimal", 64),
			cardID:      "CARD-0002",
		},
		{
			name: "Amara Fernando", department: "Quality", role: "Inspector",
			face:        devTemplate("face-amara", 128),
			fingerprint: devTemplate("fp-amara", 64),
		},
	}

	for _, s := range seed {
		if _, err := db.ExecContext(ctx, `
INSERT INTO identities(
  name, department, role, status, enrolled,
  face_template, fingerprint_template, card_id,
  created_at_ms, updated_at_ms
) VALUES (?, ?, ?, 'Active', 1, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO NOTHING;
`,
			s.name, s.department, s.role,
			nullIfEmpty(s.face), nullIfEmpty(s.fingerprint), nullIfEmpty(s.cardID),
			now, now,
		); err != nil {
			return fmt.Errorf("seed identity %s: %w", s.name, err)
		}
	}

	return nil
}

// devTemplate builds a deterministic opaque template of at least n chars.
func devTemplate(tag string, n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(tag)
		b.WriteByte('|')
	}
	return b.String()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
