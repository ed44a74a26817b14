package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

// DirectoryStore is an in-memory identity roster for tests and dev
// environments. Insertion order is iteration order, which is what gives
// the matcher its "first candidate wins" determinism in tests.
type DirectoryStore struct {
	mu         sync.RWMutex
	identities []types.Identity
	nextID     int64
}

func NewDirectoryStore(identities ...types.Identity) *DirectoryStore {
	s := &DirectoryStore{nextID: 1}
	for _, ident := range identities {
		s.Add(ident)
	}
	return s
}

// Add appends an identity, assigning an id if the caller left it zero.
// Test/dev helper; roster management is out of scope for the server.
func (s *DirectoryStore) Add(ident types.Identity) types.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ident.ID == 0 {
		ident.ID = s.nextID
	}
	if ident.ID >= s.nextID {
		s.nextID = ident.ID + 1
	}
	s.identities = append(s.identities, ident)
	return ident
}

func (s *DirectoryStore) ListCandidates(_ context.Context) ([]types.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Identity
	for _, ident := range s.identities {
		if ident.Status == types.StatusActive && ident.Enrolled {
			out = append(out, ident)
		}
	}
	return out, nil
}

func (s *DirectoryStore) TouchLastAccess(_ context.Context, identityID int64, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.IsZero() {
		t = time.Now().UTC()
	}
	for i := range s.identities {
		if s.identities[i].ID == identityID {
			ts := t.UTC()
			s.identities[i].LastAccessAt = &ts
			return nil
		}
	}
	return fmt.Errorf("identity %d not found", identityID)
}

// Get returns the identity with the given id. Test-only helper.
func (s *DirectoryStore) Get(identityID int64) (types.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ident := range s.identities {
		if ident.ID == identityID {
			return ident, true
		}
	}
	return types.Identity{}, false
}
