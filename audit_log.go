package governance

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

type requestMetaKey struct{}

// RequestMeta is client information attached to audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// WithRequestMeta stores client information for audit entries written while
// serving ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// AuditLog appends and reads the audit trail. Writes are best effort.
type AuditLog struct {
	store   AuditStore
	clock   Clock
	enabled bool
	logger  *zap.SugaredLogger
	metrics *Metrics
}

// NewAuditLog creates an AuditLog. A disabled log drops every entry.
func NewAuditLog(store AuditStore, enabled bool, clock Clock, logger *zap.SugaredLogger, metrics *Metrics) *AuditLog {
	if clock == nil {
		clock = systemClock
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AuditLog{store: store, clock: clock, enabled: enabled, logger: logger, metrics: metrics}
}

// Record appends e. Failures are logged and counted, never returned, so an
// audit outage cannot block the mutation being audited.
func (a *AuditLog) Record(ctx context.Context, e AuditEntry) {
	if a == nil || !a.enabled {
		return
	}
	if e.ID == "" {
		e.ID = newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = a.clock()
	}
	meta := requestMetaFrom(ctx)
	if e.IPAddress == "" {
		e.IPAddress = meta.IPAddress
	}
	if e.UserAgent == "" {
		e.UserAgent = meta.UserAgent
	}
	if err := a.store.AppendAudit(ctx, &e); err != nil {
		a.metrics.auditFailed()
		a.logger.Errorw("failed to record audit entry",
			"action", e.Action, "target_table", e.TargetTable, "target_id", e.TargetID, "error", err)
	}
}

// Query returns entries matching filter, newest first. The limit defaults to
// 100 and is capped at 1000.
func (a *AuditLog) Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultAuditLimit
	case filter.Limit > maxAuditLimit:
		filter.Limit = maxAuditLimit
	}
	entries, err := a.store.QueryAudit(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return entries, nil
}

// snapshot renders v as a JSON object for the old/new columns.
func snapshot(v interface{}) datatypes.JSONMap {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSONMap{"error": err.Error()}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return datatypes.JSONMap{"value": string(b)}
	}
	return m
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
