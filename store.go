package governance

import (
	"context"
	"time"
)

// PrincipalStore persists principals and their global role.
type PrincipalStore interface {
	GetPrincipal(ctx context.Context, id string) (Principal, error)
	SavePrincipal(ctx context.Context, p *Principal) error
}

// FoundationStore persists foundations.
type FoundationStore interface {
	GetFoundation(ctx context.Context, id string) (Foundation, error)
	CreateFoundation(ctx context.Context, f *Foundation) error
	// TransferOwnership sets the owner to next.PrincipalID and writes the
	// role and permissions of next and, when non-nil, prev. Either every
	// write lands or none does.
	TransferOwnership(ctx context.Context, id string, next Membership, prev *Membership) error
	// DeleteFoundation removes the foundation and its memberships.
	DeleteFoundation(ctx context.Context, id string) error
}

// MembershipStore persists memberships. CreateMembership returns ErrConflict
// when the principal already belongs to the foundation.
type MembershipStore interface {
	GetMembership(ctx context.Context, foundationID, principalID string) (Membership, error)
	ListMemberships(ctx context.Context, foundationID string) ([]Membership, error)
	CreateMembership(ctx context.Context, m *Membership) error
	UpdateMembership(ctx context.Context, m *Membership) error
	DeleteMembership(ctx context.Context, foundationID, principalID string) error
}

// WorkflowFilter narrows ListWorkflows. Empty fields match everything.
type WorkflowFilter struct {
	FoundationID string
	SubjectType  string
	SubjectID    string
	Status       WorkflowStatus
}

// StepTransition is the terminal write applied to a pending step.
type StepTransition struct {
	Status            StepStatus
	CompletedAt       time.Time
	CompletedBy       string
	Comments          *string
	SignatureArtifact *string
	SignatureOrderRef *string
}

// WorkflowStore persists workflows and their steps. Every step mutation is
// conditional on the step still being pending: when it is not, the call fails
// with ErrConflict and nothing is written.
type WorkflowStore interface {
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	CreateSteps(ctx context.Context, steps []Step) error
	GetWorkflow(ctx context.Context, id string) (Workflow, error)
	ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]Workflow, error)
	// DeleteWorkflow removes the workflow and its steps.
	DeleteWorkflow(ctx context.Context, id string) error
	// AdvanceWorkflowStatus writes status unless the workflow is already
	// terminal or already has that status, and reports whether it wrote.
	// Moving to completed also stamps completed_at.
	AdvanceWorkflowStatus(ctx context.Context, id string, status WorkflowStatus, at time.Time) (bool, error)

	GetStep(ctx context.Context, id string) (Step, error)
	// ListSteps returns a workflow's steps by ascending order.
	ListSteps(ctx context.Context, workflowID string) ([]Step, error)
	// ListPendingSteps returns an assignee's pending steps, oldest first.
	ListPendingSteps(ctx context.Context, assigneeID string) ([]Step, error)
	TransitionStep(ctx context.Context, id string, t StepTransition) (Step, error)
	ReassignStep(ctx context.Context, id, assigneeID string) (Step, error)
	AttachSignatureOrder(ctx context.Context, id, orderRef string) (Step, error)
}

// SessionTransition is the terminal write applied to a pending session.
type SessionTransition struct {
	Status         SessionStatus
	CompletedAt    time.Time
	CompletionData map[string]interface{}
	FailureReason  string
}

// SessionStore persists signature sessions. FinishSession only updates a
// pending session and returns ErrConflict otherwise.
type SessionStore interface {
	CreateSession(ctx context.Context, s *SignatureSession) error
	GetSession(ctx context.Context, orderRef string) (SignatureSession, error)
	FinishSession(ctx context.Context, orderRef string, t SessionTransition) (SignatureSession, error)
}

// AuditFilter narrows audit queries. Empty fields match everything.
type AuditFilter struct {
	FoundationID string
	ActorID      string
	Action       string
	TargetTable  string
	TargetID     string
	Since        *time.Time
	Until        *time.Time
	Limit        int
}

// AuditStore appends and queries audit entries, newest first.
type AuditStore interface {
	AppendAudit(ctx context.Context, e *AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// RecordStore is every collection the core reads and writes.
type RecordStore interface {
	PrincipalStore
	FoundationStore
	MembershipStore
	WorkflowStore
	SessionStore
	AuditStore
}
