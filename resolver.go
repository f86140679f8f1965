package governance

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// IsGlobalAdmin reports whether p holds the platform admin role.
func IsGlobalAdmin(p Principal) bool {
	return p.GlobalRole == GlobalRoleAdmin
}

// Resolver looks up principals, ownership and memberships. It never writes
// to the store.
type Resolver struct {
	principals  PrincipalStore
	foundations FoundationStore
	memberships MembershipStore
	cache       MembershipCache
	logger      *zap.SugaredLogger
}

// NewResolver creates a Resolver. cache may be nil.
func NewResolver(store RecordStore, cache MembershipCache, logger *zap.SugaredLogger) *Resolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{
		principals:  store,
		foundations: store,
		memberships: store,
		cache:       cache,
		logger:      logger,
	}
}

// Principal loads the principal with id. An identity with no stored record
// is a plain principal without a global role.
func (r *Resolver) Principal(ctx context.Context, id string) (Principal, error) {
	if id == "" {
		return Principal{}, ErrInvalidInput
	}
	p, err := r.principals.GetPrincipal(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Principal{ID: id}, nil
	}
	if err != nil {
		return Principal{}, fmt.Errorf("failed to load principal %s: %w", id, err)
	}
	return p, nil
}

// Resolve returns the membership of principalID in foundationID, or
// ErrNotFound when there is none.
func (r *Resolver) Resolve(ctx context.Context, principalID, foundationID string) (Membership, error) {
	if principalID == "" || foundationID == "" {
		return Membership{}, ErrInvalidInput
	}
	if r.cache != nil {
		m, ok, err := r.cache.Get(ctx, foundationID, principalID)
		if err != nil {
			r.logger.Warnw("membership cache read failed", "foundation_id", foundationID, "principal_id", principalID, "error", err)
		} else if ok {
			return m, nil
		}
	}
	m, err := r.memberships.GetMembership(ctx, foundationID, principalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Membership{}, ErrNotFound
		}
		return Membership{}, fmt.Errorf("failed to load membership: %w", err)
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, m); err != nil {
			r.logger.Warnw("membership cache write failed", "foundation_id", foundationID, "principal_id", principalID, "error", err)
		}
	}
	return m, nil
}

// IsOwner reports whether principalID owns foundationID. A missing
// foundation has no owner.
func (r *Resolver) IsOwner(ctx context.Context, foundationID, principalID string) (bool, error) {
	f, err := r.foundations.GetFoundation(ctx, foundationID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load foundation %s: %w", foundationID, err)
	}
	return f.OwnerID == principalID, nil
}

func (r *Resolver) invalidate(ctx context.Context, foundationID, principalID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, foundationID, principalID); err != nil {
		r.logger.Warnw("membership cache invalidation failed", "foundation_id", foundationID, "principal_id", principalID, "error", err)
	}
}

func (r *Resolver) invalidateFoundation(ctx context.Context, foundationID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateFoundation(ctx, foundationID); err != nil {
		r.logger.Warnw("foundation cache invalidation failed", "foundation_id", foundationID, "error", err)
	}
}
