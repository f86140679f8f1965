package governance

import (
	"fmt"

	"go.uber.org/zap"
)

// Config holds the configuration for the governance service
type Config struct {
	Store              RecordStore
	Cache              MembershipCache
	Notifier           Notifier
	Signatures         SignatureAdapter
	Metrics            *Metrics
	Logger             *zap.SugaredLogger
	Clock              Clock
	EnableAuditLogging bool
}

// Service wires the resolver, authorizer, workflow engine, signature adapter
// and audit log over one record store.
type Service struct {
	store  RecordStore
	clock  Clock
	logger *zap.SugaredLogger

	Resolver   *Resolver
	Authorizer *Authorizer
	Workflows  *Engine
	Signatures SignatureAdapter
	Audit      *AuditLog
}

// NewService initializes a new governance service
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock
	}
	if cfg.Signatures == nil {
		cfg.Signatures = NewSessionAdapter(cfg.Store, cfg.Clock, cfg.Logger.Named("signatures"), cfg.Metrics)
	}

	resolver := NewResolver(cfg.Store, cfg.Cache, cfg.Logger.Named("resolver"))
	audit := NewAuditLog(cfg.Store, cfg.EnableAuditLogging, cfg.Clock, cfg.Logger.Named("audit"), cfg.Metrics)

	return &Service{
		store:      cfg.Store,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		Resolver:   resolver,
		Authorizer: NewAuthorizer(resolver, cfg.Logger.Named("authz"), cfg.Metrics),
		Workflows: NewEngine(EngineConfig{
			Store:      cfg.Store,
			Signatures: cfg.Signatures,
			Audit:      audit,
			Notifier:   cfg.Notifier,
			Clock:      cfg.Clock,
			Logger:     cfg.Logger.Named("workflows"),
			Metrics:    cfg.Metrics,
		}),
		Signatures: cfg.Signatures,
		Audit:      audit,
	}, nil
}

// Close waits for background notifications to finish.
func (s *Service) Close() {
	s.Workflows.Drain()
}
