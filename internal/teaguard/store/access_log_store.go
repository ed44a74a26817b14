package store

import (
	"context"
	"time"

	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

// AccessAttempt captures a single authentication decision for the audit
// log. Rows are immutable once appended.
type AccessAttempt struct {
	IdentityID   *int64 // nil when the probe matched nobody
	NameSnapshot string
	Location     string
	Method       types.AccessMethod
	Outcome      types.AccessOutcome
	OccurredAt   time.Time
}

// AccessAttemptView is one row of the read surface: the attempt joined with
// the identity's current name and department (both empty when the identity
// was never matched or has since been removed).
type AccessAttemptView struct {
	ID           int64               `json:"id"`
	IdentityID   *int64              `json:"identityId"`
	NameSnapshot string              `json:"name"`
	Department   string              `json:"department,omitempty"`
	Location     string              `json:"location"`
	Method       types.AccessMethod  `json:"method"`
	Outcome      types.AccessOutcome `json:"outcome"`
	OccurredAt   time.Time           `json:"occurredAt"`
}

// MaxRecentAttempts caps the Recent read regardless of the requested limit.
const MaxRecentAttempts = 50

// AccessLogStore persists access decisions as an append-only log.
type AccessLogStore interface {
	Append(ctx context.Context, att AccessAttempt) error

	// Recent returns up to limit attempts (capped at MaxRecentAttempts),
	// newest first, joined with identity name/department.
	Recent(ctx context.Context, limit int) ([]AccessAttemptView, error)
}
