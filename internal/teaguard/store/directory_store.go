package store

import (
	"context"
	"time"

	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

// DirectoryStore exposes the enrolled-identity roster. The roster itself is
// managed elsewhere; from this server's point of view it is read-only except
// for the last-access timestamp.
type DirectoryStore interface {
	// ListCandidates returns all identities eligible for matching:
	// status Active and enrolled true, in stable store order. The result
	// is fetched fresh on every call; staleness between calls is
	// acceptable, caching is not.
	ListCandidates(ctx context.Context) ([]types.Identity, error)

	// TouchLastAccess sets the identity's last-access timestamp.
	// Last-write-wins under concurrent authentications.
	TouchLastAccess(ctx context.Context, identityID int64, t time.Time) error
}
