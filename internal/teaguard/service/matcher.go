package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/craigfactory/teaguard/internal/metrics"
	"github.com/craigfactory/teaguard/internal/teaguard/store"
	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

var (
	ErrEmptyProbe = errors.New("at least one credential field is required")
)

// Template prefix lengths the match strategies compare. This is
// placeholder-grade matching inherited from the source system: a fixed
// prefix of an opaque blob, not a biometric distance metric. Kept
// byte-compatible on purpose; upgrading it is a product decision.
const (
	facePrefixLen        = 100
	fingerprintPrefixLen = 50
)

// logWriteTimeout bounds the detached access-log append.
const logWriteTimeout = 5 * time.Second

// Matcher decides whether a presented probe corresponds to an enrolled
// identity. Strategies run in fixed priority order (face, card,
// fingerprint) and within a strategy the first candidate in store order
// wins. There is no ranking or best-match search.
type Matcher struct {
	directory store.DirectoryStore
	accessLog store.AccessLogStore
	logger    *zap.Logger

	pending sync.WaitGroup // in-flight background log appends
}

func NewMatcher(directory store.DirectoryStore, accessLog store.AccessLogStore, logger *zap.Logger) *Matcher {
	return &Matcher{directory: directory, accessLog: accessLog, logger: logger}
}

// Authenticate runs the match strategies against a fresh candidate set and
// records the attempt. The only error cases are an invalid probe and an
// unreachable directory store; a denial is a normal decision, not an error.
func (m *Matcher) Authenticate(ctx context.Context, probe types.Probe) (types.MatchDecision, error) {
	if probe.Empty() {
		return types.MatchDecision{}, ErrEmptyProbe
	}

	location := probe.Location
	if location == "" {
		location = types.DefaultLocation
	}

	// Fetched fresh per call; the roster may change between calls and
	// staleness within a call is acceptable.
	candidates, err := m.directory.ListCandidates(ctx)
	if err != nil {
		// Store down: no decision, no log write.
		return types.MatchDecision{}, fmt.Errorf("directory store: %w", err)
	}

	matched, method := matchProbe(probe, candidates)

	if matched == nil {
		decision := types.MatchDecision{
			Authenticated: false,
			Method:        deniedMethod(probe),
			Location:      location,
			Message:       "Access denied - Authentication failed",
		}
		metrics.AuthDecisionsTotal.WithLabelValues(string(types.OutcomeDenied), string(decision.Method)).Inc()
		m.recordAttempt(store.AccessAttempt{
			NameSnapshot: "Unknown",
			Location:     location,
			Method:       decision.Method,
			Outcome:      types.OutcomeDenied,
			OccurredAt:   time.Now().UTC(),
		})
		return decision, nil
	}

	now := time.Now().UTC()

	// Best-effort: a failed timestamp write must not change the decision.
	if err := m.directory.TouchLastAccess(ctx, matched.ID, now); err != nil {
		m.logger.Warn("last-access update failed",
			zap.Int64("identity_id", matched.ID), zap.Error(err))
	}

	metrics.AuthDecisionsTotal.WithLabelValues(string(types.OutcomeSuccess), string(method)).Inc()
	identityID := matched.ID
	m.recordAttempt(store.AccessAttempt{
		IdentityID:   &identityID,
		NameSnapshot: matched.Name,
		Location:     location,
		Method:       method,
		Outcome:      types.OutcomeSuccess,
		OccurredAt:   now,
	})

	return types.MatchDecision{
		Authenticated: true,
		Identity:      matched,
		Method:        method,
		Location:      location,
		Message:       fmt.Sprintf("Welcome %s!", matched.Name),
	}, nil
}

// matchProbe applies the strategies in priority order and returns the first
// winning candidate with its method, or (nil, "") when nothing matched.
func matchProbe(probe types.Probe, candidates []types.Identity) (*types.Identity, types.AccessMethod) {
	if probe.FaceTemplate != "" {
		for i := range candidates {
			stored := candidates[i].FaceTemplate
			if len(stored) > facePrefixLen && prefixEqual(stored, probe.FaceTemplate, facePrefixLen) {
				return &candidates[i], types.MethodFace
			}
		}
	}

	if probe.CardID != "" {
		for i := range candidates {
			if candidates[i].CardID != "" && candidates[i].CardID == probe.CardID {
				return &candidates[i], types.MethodCard
			}
		}
	}

	if probe.FingerprintTemplate != "" {
		for i := range candidates {
			stored := candidates[i].FingerprintTemplate
			if len(stored) > fingerprintPrefixLen && prefixEqual(stored, probe.FingerprintTemplate, fingerprintPrefixLen) {
				return &candidates[i], types.MethodFingerprint
			}
		}
	}

	return nil, ""
}

// prefixEqual reports whether the first n characters of a and b are equal.
// A probe shorter than n can never match.
func prefixEqual(stored, probe string, n int) bool {
	if len(probe) < n {
		return false
	}
	return stored[:n] == probe[:n]
}

// deniedMethod picks the method label recorded for a denial, preferring the
// highest-priority credential the probe actually supplied.
func deniedMethod(probe types.Probe) types.AccessMethod {
	switch {
	case probe.FaceTemplate != "":
		return types.MethodFace
	case probe.CardID != "":
		return types.MethodCard
	case probe.FingerprintTemplate != "":
		return types.MethodFingerprint
	default:
		return types.MethodUnknown
	}
}

// recordAttempt appends to the access log in a detached background task.
// Failures are diagnostics only: the decision has already been made and is
// never retried or revised because the log write was lost.
func (m *Matcher) recordAttempt(att store.AccessAttempt) {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), logWriteTimeout)
		defer cancel()

		if err := m.accessLog.Append(ctx, att); err != nil {
			metrics.AccessLogWriteFailures.Inc()
			m.logger.Warn("access log append failed",
				zap.String("method", string(att.Method)),
				zap.String("outcome", string(att.Outcome)),
				zap.Error(err))
		}
	}()
}

// Flush waits for in-flight log appends. Called on shutdown, and by tests
// before inspecting the log.
func (m *Matcher) Flush() {
	m.pending.Wait()
}
