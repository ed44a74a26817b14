package sqlite_test

import (
	"context"
	"testing"
	"time"

	sqlitestore "github.com/craigfactory/teaguard/internal/teaguard/store/sqlite"
	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// ListCandidates — filtering
// ═══════════════════════════════════════════════════════════════════════════

func TestDirectoryStore_ListCandidates_OnlyActiveEnrolled(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ds := sqlitestore.NewDirectoryStore(conn, w)

	seedIdentity(t, conn, seedRow{name: "Krishan Perera", department: "Production", enrolled: true, cardID: "CARD-001"})
	seedIdentity(t, conn, seedRow{name: "Nimal Silva", department: "Security", enrolled: false, cardID: "CARD-002"})
	seedIdentity(t, conn, seedRow{name: "Amara Fernando", department: "Packing", status: "Inactive", enrolled: true, cardID: "CARD-003"})
	seedIdentity(t, conn, seedRow{name: "Sunil Jayawardena", department: "Packing", status: "OnLeave", enrolled: true, cardID: "CARD-004"})

	got, err := ds.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Name != "Krishan Perera" {
		t.Errorf("candidate = %q, want Krishan Perera", got[0].Name)
	}
	if got[0].Status != types.StatusActive || !got[0].Enrolled {
		t.Errorf("candidate status/enrolled = %v/%v", got[0].Status, got[0].Enrolled)
	}
}

func TestDirectoryStore_ListCandidates_OrderedByID(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ds := sqlitestore.NewDirectoryStore(conn, w)

	first := seedIdentity(t, conn, seedRow{name: "Krishan Perera", department: "Production", enrolled: true, cardID: "CARD-001"})
	second := seedIdentity(t, conn, seedRow{name: "Nimal Silva", department: "Security", enrolled: true, cardID: "CARD-002"})

	got, err := ds.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != first || got[1].ID != second {
		t.Errorf("candidate order = [%d %d], want [%d %d]", got[0].ID, got[1].ID, first, second)
	}
}

func TestDirectoryStore_ListCandidates_NullTemplatesBecomeEmpty(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ds := sqlitestore.NewDirectoryStore(conn, w)

	seedIdentity(t, conn, seedRow{name: "Krishan Perera", department: "Production", enrolled: true})

	got, err := ds.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.FaceTemplate != "" || c.FingerprintTemplate != "" || c.CardID != "" {
		t.Errorf("null columns should scan as empty strings, got %q/%q/%q",
			c.FaceTemplate, c.FingerprintTemplate, c.CardID)
	}
	if c.LastAccessAt != nil {
		t.Errorf("LastAccessAt = %v, want nil", c.LastAccessAt)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// TouchLastAccess
// ═══════════════════════════════════════════════════════════════════════════

func TestDirectoryStore_TouchLastAccess_SetsTimestamp(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ds := sqlitestore.NewDirectoryStore(conn, w)

	id := seedIdentity(t, conn, seedRow{name: "Krishan Perera", department: "Production", enrolled: true, cardID: "CARD-001"})

	at := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
	if err := ds.TouchLastAccess(context.Background(), id, at); err != nil {
		t.Fatalf("TouchLastAccess: %v", err)
	}

	got, err := ds.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(got) != 1 || got[0].LastAccessAt == nil {
		t.Fatalf("expected candidate with LastAccessAt set")
	}
	if !got[0].LastAccessAt.Equal(at) {
		t.Errorf("LastAccessAt = %v, want %v", got[0].LastAccessAt, at)
	}
}

func TestDirectoryStore_TouchLastAccess_UnknownIDIsNoop(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ds := sqlitestore.NewDirectoryStore(conn, w)

	// An UPDATE that matches no rows is not an error.
	if err := ds.TouchLastAccess(context.Background(), 9999, time.Now()); err != nil {
		t.Fatalf("TouchLastAccess: %v", err)
	}
}
