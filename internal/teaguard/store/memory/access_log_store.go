package memory

import (
	"context"
	"sync"
	"time"

	"github.com/craigfactory/teaguard/internal/teaguard/store"
)

// AccessLogStore is an in-memory append-only access log for tests and dev
// environments. An optional DirectoryStore lets Recent fill in the
// department column the sqlite implementation gets from its join.
type AccessLogStore struct {
	mu        sync.Mutex
	attempts  []store.AccessAttempt
	directory *DirectoryStore
}

func NewAccessLogStore(directory *DirectoryStore) *AccessLogStore {
	return &AccessLogStore{directory: directory}
}

func (s *AccessLogStore) Append(_ context.Context, att store.AccessAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if att.OccurredAt.IsZero() {
		att.OccurredAt = time.Now().UTC()
	}
	if att.Location == "" {
		att.Location = "Main Entrance"
	}
	s.attempts = append(s.attempts, att)
	return nil
}

func (s *AccessLogStore) Recent(_ context.Context, limit int) ([]store.AccessAttemptView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > store.MaxRecentAttempts {
		limit = store.MaxRecentAttempts
	}

	out := make([]store.AccessAttemptView, 0, limit)
	for i := len(s.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		att := s.attempts[i]
		v := store.AccessAttemptView{
			ID:           int64(i + 1),
			IdentityID:   att.IdentityID,
			NameSnapshot: att.NameSnapshot,
			Location:     att.Location,
			Method:       att.Method,
			Outcome:      att.Outcome,
			OccurredAt:   att.OccurredAt,
		}
		if att.IdentityID != nil && s.directory != nil {
			if ident, ok := s.directory.Get(*att.IdentityID); ok {
				v.Department = ident.Department
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Attempts returns a copy of all recorded attempts. Test-only helper.
func (s *AccessLogStore) Attempts() []store.AccessAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.AccessAttempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}
