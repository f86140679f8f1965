package governance

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const bulkWorkers = 10

// AuthorizationCheck is one policy to evaluate in a foundation.
type AuthorizationCheck struct {
	FoundationID string
	Policy       Policy
}

// AuthorizationResult is the outcome of one AuthorizationCheck.
type AuthorizationResult struct {
	FoundationID string   `json:"foundation_id"`
	Policy       string   `json:"policy"`
	Decision     Decision `json:"decision"`
	Err          error    `json:"-"`
}

// BulkAuthorize evaluates many checks for one principal concurrently. Results
// keep the order of checks.
func (a *Authorizer) BulkAuthorize(ctx context.Context, p Principal, checks []AuthorizationCheck) []AuthorizationResult {
	results := make([]AuthorizationResult, len(checks))

	var g errgroup.Group
	g.SetLimit(bulkWorkers)
	for i, check := range checks {
		g.Go(func() error {
			d, err := a.Authorize(ctx, p, check.FoundationID, check.Policy)
			results[i] = AuthorizationResult{
				FoundationID: check.FoundationID,
				Policy:       check.Policy.Name(),
				Decision:     d,
				Err:          err,
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// MemberAssignment is one membership to create in BulkAddMembers.
type MemberAssignment struct {
	PrincipalID string
	Role        MemberRole
}

// BulkAddMembers adds several members to a foundation. Existing memberships
// are reported per principal and do not stop the batch.
func (s *Service) BulkAddMembers(ctx context.Context, actor Principal, foundationID string, assignments []MemberAssignment) map[string]error {
	errs := make(map[string]error, len(assignments))
	for _, as := range assignments {
		_, err := s.AddMember(ctx, actor, AddMemberInput{
			FoundationID: foundationID,
			PrincipalID:  as.PrincipalID,
			Role:         as.Role,
		})
		errs[as.PrincipalID] = err
	}
	return errs
}
