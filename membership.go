package governance

import (
	"context"
	"fmt"
)

// AddMemberInput adds a principal to a foundation. Permissions default to the
// role's set when nil.
type AddMemberInput struct {
	FoundationID string       `json:"foundation_id"`
	PrincipalID  string       `json:"principal_id"`
	Role         MemberRole   `json:"role"`
	Permissions  []Permission `json:"-"`
}

// UpdateMemberInput changes a membership. Nil fields stay unchanged.
type UpdateMemberInput struct {
	FoundationID string
	PrincipalID  string
	Role         *MemberRole
	Permissions  *PermissionSet
}

// AddMember creates a membership. Adding an existing member returns
// ErrConflict.
func (s *Service) AddMember(ctx context.Context, actor Principal, in AddMemberInput) (Membership, error) {
	if in.FoundationID == "" || in.PrincipalID == "" {
		return Membership{}, ErrInvalidInput
	}
	if in.Role == RoleOwner {
		return Membership{}, fmt.Errorf("%w: ownership is transferred, not assigned", ErrInvalidInput)
	}
	perms, err := DefaultPermissions(in.Role)
	if err != nil {
		return Membership{}, err
	}
	if in.Permissions != nil {
		perms = NewPermissionSet(in.Permissions...)
	}
	if _, err := s.store.GetFoundation(ctx, in.FoundationID); err != nil {
		return Membership{}, err
	}

	m := Membership{
		FoundationID: in.FoundationID,
		PrincipalID:  in.PrincipalID,
		Role:         in.Role,
		Permissions:  perms,
		JoinedAt:     s.clock(),
	}
	if err := s.store.CreateMembership(ctx, &m); err != nil {
		return Membership{}, fmt.Errorf("failed to add member: %w", err)
	}
	s.Resolver.invalidate(ctx, in.FoundationID, in.PrincipalID)

	s.Audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		FoundationID: strPtr(in.FoundationID),
		Action:       "membership.add",
		TargetTable:  "memberships",
		TargetID:     in.PrincipalID,
		NewValues:    snapshot(m),
	})
	return m, nil
}

// GetMember returns one membership straight from the store.
func (s *Service) GetMember(ctx context.Context, foundationID, principalID string) (Membership, error) {
	if foundationID == "" || principalID == "" {
		return Membership{}, ErrInvalidInput
	}
	return s.store.GetMembership(ctx, foundationID, principalID)
}

// ListMembers lists a foundation's memberships by join date.
func (s *Service) ListMembers(ctx context.Context, foundationID string) ([]Membership, error) {
	if foundationID == "" {
		return nil, ErrInvalidInput
	}
	return s.store.ListMemberships(ctx, foundationID)
}

// UpdateMember changes the role and/or permissions of a membership. The
// owner's membership is managed through TransferOwnership only.
func (s *Service) UpdateMember(ctx context.Context, actor Principal, in UpdateMemberInput) (Membership, error) {
	if in.FoundationID == "" || in.PrincipalID == "" {
		return Membership{}, ErrInvalidInput
	}
	before, err := s.store.GetMembership(ctx, in.FoundationID, in.PrincipalID)
	if err != nil {
		return Membership{}, err
	}
	if before.Role == RoleOwner {
		return Membership{}, fmt.Errorf("%w: the owner's membership cannot be edited", ErrConflict)
	}

	after := before
	if in.Role != nil {
		if *in.Role == RoleOwner || !in.Role.Valid() {
			return Membership{}, fmt.Errorf("%w: role %q", ErrInvalidInput, *in.Role)
		}
		after.Role = *in.Role
		if in.Permissions == nil {
			after.Permissions, _ = DefaultPermissions(*in.Role)
		}
	}
	if in.Permissions != nil {
		after.Permissions = *in.Permissions
	}
	if err := s.store.UpdateMembership(ctx, &after); err != nil {
		return Membership{}, fmt.Errorf("failed to update member: %w", err)
	}
	s.Resolver.invalidate(ctx, in.FoundationID, in.PrincipalID)

	s.Audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		FoundationID: strPtr(in.FoundationID),
		Action:       "membership.update",
		TargetTable:  "memberships",
		TargetID:     in.PrincipalID,
		OldValues:    snapshot(before),
		NewValues:    snapshot(after),
	})
	return after, nil
}

// RemoveMember deletes a membership. The owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, actor Principal, foundationID, principalID string) error {
	if foundationID == "" || principalID == "" {
		return ErrInvalidInput
	}
	owner, err := s.Resolver.IsOwner(ctx, foundationID, principalID)
	if err != nil {
		return err
	}
	if owner {
		return fmt.Errorf("%w: the owner cannot be removed", ErrConflict)
	}
	before, err := s.store.GetMembership(ctx, foundationID, principalID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMembership(ctx, foundationID, principalID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	s.Resolver.invalidate(ctx, foundationID, principalID)

	s.Audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		FoundationID: strPtr(foundationID),
		Action:       "membership.remove",
		TargetTable:  "memberships",
		TargetID:     principalID,
		OldValues:    snapshot(before),
	})
	return nil
}

// SetGlobalRole grants or revokes the platform-wide role of a principal.
func (s *Service) SetGlobalRole(ctx context.Context, actor Principal, principalID string, role GlobalRole) (Principal, error) {
	if principalID == "" || (role != GlobalRoleNone && role != GlobalRoleAdmin) {
		return Principal{}, ErrInvalidInput
	}
	before, err := s.Resolver.Principal(ctx, principalID)
	if err != nil {
		return Principal{}, err
	}
	after := before
	after.GlobalRole = role
	if err := s.store.SavePrincipal(ctx, &after); err != nil {
		return Principal{}, fmt.Errorf("failed to save principal: %w", err)
	}
	s.Audit.Record(ctx, AuditEntry{
		ActorID:     actor.ID,
		Action:      "principal.global_role",
		TargetTable: "principals",
		TargetID:    principalID,
		OldValues:   snapshot(map[string]interface{}{"global_role": before.GlobalRole}),
		NewValues:   snapshot(map[string]interface{}{"global_role": role}),
	})
	return after, nil
}
