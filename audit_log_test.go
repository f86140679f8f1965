package governance

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_RecordAddsRequestMeta(t *testing.T) {
	store := NewMemoryStore()
	log := NewAuditLog(store, true, newStepClock().Now, nil, nil)

	ctx := WithRequestMeta(t.Context(), RequestMeta{IPAddress: "10.0.0.7", UserAgent: "curl/8.5"})
	log.Record(ctx, AuditEntry{
		ActorID:      "p1",
		FoundationID: strPtr("f1"),
		Action:       "membership.add",
		TargetTable:  "memberships",
		TargetID:     "p2",
		NewValues:    snapshot(map[string]interface{}{"role": RoleMember}),
	})

	entries, err := log.Query(t.Context(), AuditFilter{FoundationID: "f1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "10.0.0.7", e.IPAddress)
	assert.Equal(t, "curl/8.5", e.UserAgent)
	assert.Equal(t, "member", e.NewValues["role"])
	assert.False(t, e.CreatedAt.IsZero())
}

func TestAuditLog_QueryNewestFirstWithLimits(t *testing.T) {
	store := NewMemoryStore()
	log := NewAuditLog(store, true, newStepClock().Now, nil, nil)
	for i := range 120 {
		log.Record(t.Context(), AuditEntry{
			ActorID:     "p1",
			Action:      "workflow.create",
			TargetTable: "workflows",
			TargetID:    fmt.Sprintf("wf-%03d", i),
		})
	}

	entries, err := log.Query(t.Context(), AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 100)
	assert.Equal(t, "wf-119", entries[0].TargetID)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].CreatedAt.After(entries[i].CreatedAt))
	}

	entries, err = log.Query(t.Context(), AuditFilter{Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, entries, 120)

	entries, err = log.Query(t.Context(), AuditFilter{TargetID: "wf-007", Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestAuditLog_TimeWindow(t *testing.T) {
	store := NewMemoryStore()
	clock := newStepClock()
	log := NewAuditLog(store, true, clock.Now, nil, nil)
	for range 5 {
		log.Record(t.Context(), AuditEntry{ActorID: "p1", Action: "a", TargetTable: "t"})
	}

	since := time.Date(2025, 3, 1, 9, 0, 2, 0, time.UTC)
	until := time.Date(2025, 3, 1, 9, 0, 4, 0, time.UTC)
	entries, err := log.Query(t.Context(), AuditFilter{Since: &since, Until: &until})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestAuditLog_Disabled(t *testing.T) {
	store := NewMemoryStore()
	log := NewAuditLog(store, false, nil, nil, nil)
	log.Record(t.Context(), AuditEntry{ActorID: "p1", Action: "a", TargetTable: "t"})

	entries, err := log.Query(t.Context(), AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	var nilLog *AuditLog
	assert.NotPanics(t, func() {
		nilLog.Record(t.Context(), AuditEntry{Action: "a"})
	})
}

func TestSnapshot(t *testing.T) {
	assert.Nil(t, snapshot(nil))

	snap := snapshot(Foundation{ID: "f1", Name: "Trust", OwnerID: "p1"})
	assert.Equal(t, "f1", snap["id"])
	assert.Equal(t, "p1", snap["owner_id"])

	assert.Nil(t, strPtr(""))
	assert.Equal(t, "x", *strPtr("x"))
}
