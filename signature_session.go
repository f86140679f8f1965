package governance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionKind says what an external session proves.
type SessionKind string

const (
	SessionAuthentication SessionKind = "authentication"
	SessionSignature      SessionKind = "signature"
)

// SessionStatus moves from pending to exactly one terminal value.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether the session can no longer change.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCancelled
}

// SignatureAdapter correlates external identity/signature sessions with
// principals through a durable order reference.
type SignatureAdapter interface {
	Initiate(ctx context.Context, principalID string, kind SessionKind) (SignatureSession, error)
	CheckStatus(ctx context.Context, orderRef string) (SignatureSession, error)
	Complete(ctx context.Context, orderRef string, data map[string]interface{}) (SignatureSession, error)
	Cancel(ctx context.Context, orderRef string) (SignatureSession, error)
	Fail(ctx context.Context, orderRef, reason string) (SignatureSession, error)
}

// SessionAdapter is the store-backed SignatureAdapter. It records what the
// external provider reports; it does not talk to the provider itself.
type SessionAdapter struct {
	store   SessionStore
	clock   Clock
	logger  *zap.SugaredLogger
	metrics *Metrics
}

// NewSessionAdapter creates a SessionAdapter persisting to store.
func NewSessionAdapter(store SessionStore, clock Clock, logger *zap.SugaredLogger, metrics *Metrics) *SessionAdapter {
	if clock == nil {
		clock = systemClock
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SessionAdapter{store: store, clock: clock, logger: logger, metrics: metrics}
}

// Initiate opens a pending session for principalID.
func (a *SessionAdapter) Initiate(ctx context.Context, principalID string, kind SessionKind) (SignatureSession, error) {
	if principalID == "" {
		return SignatureSession{}, fmt.Errorf("%w: principal is required", ErrInvalidInput)
	}
	if kind != SessionAuthentication && kind != SessionSignature {
		return SignatureSession{}, fmt.Errorf("%w: unknown session kind %q", ErrInvalidInput, kind)
	}
	now := a.clock()
	s := SignatureSession{
		OrderRef:       newOrderRef(now),
		AutoStartToken: uuid.NewString(),
		PrincipalID:    principalID,
		Kind:           kind,
		Status:         SessionPending,
		CreatedAt:      now,
	}
	if err := a.store.CreateSession(ctx, &s); err != nil {
		return SignatureSession{}, fmt.Errorf("failed to create signature session: %w", err)
	}
	a.logger.Infow("signature session initiated", "order_ref", s.OrderRef, "principal_id", principalID, "kind", kind)
	return s, nil
}

// CheckStatus returns the stored session for orderRef.
func (a *SessionAdapter) CheckStatus(ctx context.Context, orderRef string) (SignatureSession, error) {
	if orderRef == "" {
		return SignatureSession{}, ErrInvalidInput
	}
	return a.store.GetSession(ctx, orderRef)
}

// Complete marks the session completed and stores the provider payload.
func (a *SessionAdapter) Complete(ctx context.Context, orderRef string, data map[string]interface{}) (SignatureSession, error) {
	return a.finish(ctx, orderRef, SessionTransition{Status: SessionCompleted, CompletionData: data})
}

// Cancel marks the session cancelled.
func (a *SessionAdapter) Cancel(ctx context.Context, orderRef string) (SignatureSession, error) {
	return a.finish(ctx, orderRef, SessionTransition{Status: SessionCancelled})
}

// Fail marks the session failed with reason.
func (a *SessionAdapter) Fail(ctx context.Context, orderRef, reason string) (SignatureSession, error) {
	return a.finish(ctx, orderRef, SessionTransition{Status: SessionFailed, FailureReason: reason})
}

// finish applies a terminal transition. Repeating the transition a session
// already went through returns the stored session; asking for a different
// terminal status returns the stored session with ErrConflict.
func (a *SessionAdapter) finish(ctx context.Context, orderRef string, t SessionTransition) (SignatureSession, error) {
	if orderRef == "" {
		return SignatureSession{}, ErrInvalidInput
	}
	t.CompletedAt = a.clock()
	s, err := a.store.FinishSession(ctx, orderRef, t)
	if errors.Is(err, ErrConflict) {
		existing, gerr := a.store.GetSession(ctx, orderRef)
		if gerr != nil {
			return SignatureSession{}, gerr
		}
		if existing.Status == t.Status {
			return existing, nil
		}
		return existing, fmt.Errorf("session %s already %s: %w", orderRef, existing.Status, ErrConflict)
	}
	if err != nil {
		return SignatureSession{}, err
	}
	a.metrics.observeSession(s.Status)
	a.logger.Infow("signature session finished", "order_ref", orderRef, "status", s.Status)
	return s, nil
}

var _ SignatureAdapter = (*SessionAdapter)(nil)
