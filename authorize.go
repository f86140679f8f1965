package governance

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/bohemiyan/governance")

// Authorizer evaluates policies against a principal's membership. It never
// mutates state.
type Authorizer struct {
	resolver *Resolver
	logger   *zap.SugaredLogger
	metrics  *Metrics
}

// NewAuthorizer creates an Authorizer on top of resolver.
func NewAuthorizer(resolver *Resolver, logger *zap.SugaredLogger, metrics *Metrics) *Authorizer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Authorizer{resolver: resolver, logger: logger, metrics: metrics}
}

// Authorize decides whether p may perform the action guarded by policy in
// foundationID. Global admins are always allowed. Owner-only policies are
// decided by ownership alone; everything else needs a membership whose
// permissions satisfy the policy. The returned error is only set when a
// lookup failed.
func (a *Authorizer) Authorize(ctx context.Context, p Principal, foundationID string, policy Policy) (Decision, error) {
	ctx, span := tracer.Start(ctx, "governance.Authorize")
	defer span.End()
	span.SetAttributes(
		attribute.String("principal.id", p.ID),
		attribute.String("foundation.id", foundationID),
		attribute.String("policy", policy.Name()),
	)

	d, err := a.decide(ctx, p, foundationID, policy)
	if err != nil {
		span.RecordError(err)
		a.logger.Errorw("authorization lookup failed", "principal_id", p.ID, "foundation_id", foundationID, "policy", policy.Name(), "error", err)
		return Deny(ReasonNoTenantAccess), err
	}
	span.SetAttributes(attribute.Bool("allowed", d.Allowed))
	a.metrics.observeDecision(d)
	if !d.Allowed {
		a.logger.Debugw("authorization denied", "principal_id", p.ID, "foundation_id", foundationID, "policy", policy.Name(), "reason", d.Reason)
	}
	return d, nil
}

func (a *Authorizer) decide(ctx context.Context, p Principal, foundationID string, policy Policy) (Decision, error) {
	if IsGlobalAdmin(p) {
		return Allow(), nil
	}
	if policy.OwnerOnly() {
		owner, err := a.resolver.IsOwner(ctx, foundationID, p.ID)
		if err != nil {
			return Decision{}, err
		}
		if !owner {
			return Deny(ReasonOwnerRequired), nil
		}
		return Allow(), nil
	}
	m, err := a.resolver.Resolve(ctx, p.ID, foundationID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return Deny(ReasonNoTenantAccess), nil
	}
	if err != nil {
		return Decision{}, err
	}
	if !policy.satisfiedBy(m.Permissions) {
		return Deny(ReasonInsufficientPermissions), nil
	}
	return Allow(), nil
}

// Require is Authorize for callers that want a denial as an error.
func (a *Authorizer) Require(ctx context.Context, p Principal, foundationID string, policy Policy) error {
	d, err := a.Authorize(ctx, p, foundationID, policy)
	if err != nil {
		return err
	}
	return d.Err()
}
