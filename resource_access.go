package governance

import "context"

// ResourceRef points at a business record owned by a foundation.
type ResourceRef struct {
	FoundationID string
	Type         string
	ID           string
	CreatedBy    string
}

// AuthorizeResource allows the creator of a resource to act on it and falls
// back to Authorize for everyone else. Owner-only policies never take the
// creator shortcut.
func (a *Authorizer) AuthorizeResource(ctx context.Context, p Principal, ref ResourceRef, policy Policy) (Decision, error) {
	if !policy.OwnerOnly() && ref.CreatedBy != "" && ref.CreatedBy == p.ID {
		d := Allow()
		a.metrics.observeDecision(d)
		return d, nil
	}
	return a.Authorize(ctx, p, ref.FoundationID, policy)
}

// WorkflowRef describes a workflow as a resource of its foundation.
func WorkflowRef(wf Workflow) ResourceRef {
	return ResourceRef{
		FoundationID: wf.FoundationID,
		Type:         "workflow",
		ID:           wf.ID,
		CreatedBy:    wf.CreatedBy,
	}
}
