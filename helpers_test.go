package governance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

// Now advances one second per call.
func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

func (n *recordingNotifier) all() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

type fixture struct {
	store *MemoryStore
	svc   *Service
	notes *recordingNotifier
	clock *stepClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMemoryStore()
	notes := &recordingNotifier{}
	clock := newStepClock()
	svc, err := NewService(Config{
		Store:              store,
		Notifier:           notes,
		Clock:              clock.Now,
		EnableAuditLogging: true,
	})
	require.NoError(t, err)
	return &fixture{store: store, svc: svc, notes: notes, clock: clock}
}

func (f *fixture) foundation(t *testing.T, ownerID string) Foundation {
	t.Helper()
	fd, err := f.svc.CreateFoundation(t.Context(), Principal{ID: ownerID}, "Riverside Trust")
	require.NoError(t, err)
	return fd
}

func (f *fixture) member(t *testing.T, foundationID, principalID string, perms ...Permission) {
	t.Helper()
	_, err := f.svc.AddMember(t.Context(), Principal{ID: "admin"}, AddMemberInput{
		FoundationID: foundationID,
		PrincipalID:  principalID,
		Role:         RoleMember,
		Permissions:  perms,
	})
	require.NoError(t, err)
}

// completedSignature opens and completes a signature session for principalID.
func (f *fixture) completedSignature(t *testing.T, principalID string) SignatureSession {
	t.Helper()
	sess, err := f.svc.Signatures.Initiate(t.Context(), principalID, SessionSignature)
	require.NoError(t, err)
	sess, err = f.svc.Signatures.Complete(t.Context(), sess.OrderRef, map[string]interface{}{"signature": "sig-" + principalID})
	require.NoError(t, err)
	return sess
}
