package governance

import (
	"context"
	"errors"
	"fmt"
)

// CreateFoundation creates a foundation owned by actor together with the
// owner's membership.
func (s *Service) CreateFoundation(ctx context.Context, actor Principal, name string) (Foundation, error) {
	if actor.ID == "" || name == "" {
		return Foundation{}, ErrInvalidInput
	}

	f := Foundation{ID: newID(), Name: name, OwnerID: actor.ID}
	if err := s.store.CreateFoundation(ctx, &f); err != nil {
		return Foundation{}, fmt.Errorf("failed to create foundation: %w", err)
	}

	owner := Membership{
		FoundationID: f.ID,
		PrincipalID:  actor.ID,
		Role:         RoleOwner,
		Permissions:  FullPermissionSet(),
		JoinedAt:     s.clock(),
	}
	if err := s.store.CreateMembership(ctx, &owner); err != nil {
		if derr := s.store.DeleteFoundation(ctx, f.ID); derr != nil {
			s.logger.Errorw("failed to roll back foundation", "foundation_id", f.ID, "error", derr)
		}
		return Foundation{}, fmt.Errorf("failed to create owner membership: %w", err)
	}

	s.Audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		FoundationID: strPtr(f.ID),
		Action:       "foundation.create",
		TargetTable:  "foundations",
		TargetID:     f.ID,
		NewValues:    snapshot(f),
	})
	return f, nil
}

// GetFoundation retrieves a foundation by ID.
func (s *Service) GetFoundation(ctx context.Context, id string) (Foundation, error) {
	if id == "" {
		return Foundation{}, ErrInvalidInput
	}
	return s.store.GetFoundation(ctx, id)
}

// DeleteFoundation removes a foundation and all of its memberships.
func (s *Service) DeleteFoundation(ctx context.Context, actor Principal, id string) error {
	f, err := s.GetFoundation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFoundation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete foundation: %w", err)
	}
	s.Resolver.invalidateFoundation(ctx, id)

	s.Audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		FoundationID: strPtr(id),
		Action:       "foundation.delete",
		TargetTable:  "foundations",
		TargetID:     id,
		OldValues:    snapshot(f),
	})
	return nil
}

// TransferOwnership makes an existing member the owner. The previous owner
// stays on as an admin member.
func (s *Service) TransferOwnership(ctx context.Context, actor Principal, foundationID, newOwnerID string) (Foundation, error) {
	if foundationID == "" || newOwnerID == "" {
		return Foundation{}, ErrInvalidInput
	}
	f, err := s.GetFoundation(ctx, foundationID)
	if err != nil {
		return Foundation{}, err
	}
	if f.OwnerID == newOwnerID {
		return f, nil
	}
	next, err := s.store.GetMembership(ctx, foundationID, newOwnerID)
	if err != nil {
		return Foundation{}, fmt.Errorf("new owner must be a member: %w", err)
	}

	next.Role = RoleOwner
	next.Permissions = FullPermissionSet()

	var demoted *Membership
	prev, err := s.store.GetMembership(ctx, foundationID, f.OwnerID)
	switch {
	case err == nil:
		prev.Role = RoleAdmin
		prev.Permissions, _ = DefaultPermissions(RoleAdmin)
		demoted = &prev
	case !errors.Is(err, ErrNotFound):
		return Foundation{}, fmt.Errorf("failed to load previous owner: %w", err)
	}

	if err := s.store.TransferOwnership(ctx, foundationID, next, demoted); err != nil {
		return Foundation{}, fmt.Errorf("failed to transfer ownership: %w", err)
	}
	s.Resolver.invalidate(ctx, foundationID, newOwnerID)
	s.Resolver.invalidate(ctx, foundationID, f.OwnerID)

	s.Audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		FoundationID: strPtr(foundationID),
		Action:       "foundation.transfer_ownership",
		TargetTable:  "foundations",
		TargetID:     foundationID,
		OldValues:    snapshot(map[string]interface{}{"owner_id": f.OwnerID}),
		NewValues:    snapshot(map[string]interface{}{"owner_id": newOwnerID}),
	})
	f.OwnerID = newOwnerID
	return f, nil
}
