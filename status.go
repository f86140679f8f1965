package governance

// WorkflowKind is the kind of decision a workflow collects.
type WorkflowKind string

const (
	KindApproval  WorkflowKind = "approval"
	KindReview    WorkflowKind = "review"
	KindSignature WorkflowKind = "signature"
)

// WorkflowStatus is derived from the statuses of a workflow's steps.
type WorkflowStatus string

const (
	WorkflowPending    WorkflowStatus = "pending"
	WorkflowInProgress WorkflowStatus = "in_progress"
	WorkflowCompleted  WorkflowStatus = "completed"
	WorkflowRejected   WorkflowStatus = "rejected"
)

// Terminal reports whether no further step may change the workflow.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowCompleted || s == WorkflowRejected
}

// StepAction is what an assignee is asked to do.
type StepAction string

const (
	ActionReview  StepAction = "review"
	ActionApprove StepAction = "approve"
	ActionSign    StepAction = "sign"
)

// StepStatus moves from pending to exactly one terminal value.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepRejected  StepStatus = "rejected"
)

// ProcessAction is what an assignee answers on a step.
type ProcessAction string

const (
	Approve ProcessAction = "approve"
	Reject  ProcessAction = "reject"
	Sign    ProcessAction = "sign"
)

// accepts reports whether pa is a legal answer to a step asking for a.
func (a StepAction) accepts(pa ProcessAction) bool {
	switch pa {
	case Reject:
		return true
	case Approve:
		return a == ActionReview || a == ActionApprove
	case Sign:
		return a == ActionSign
	}
	return false
}

// DeriveStatus computes a workflow's status from its steps. Any rejected step
// makes the workflow rejected regardless of the others.
func DeriveStatus(steps []Step) WorkflowStatus {
	if len(steps) == 0 {
		return WorkflowPending
	}
	completed := 0
	for _, s := range steps {
		switch s.Status {
		case StepRejected:
			return WorkflowRejected
		case StepCompleted:
			completed++
		}
	}
	switch {
	case completed == len(steps):
		return WorkflowCompleted
	case completed > 0:
		return WorkflowInProgress
	default:
		return WorkflowPending
	}
}
