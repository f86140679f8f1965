package governance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// StepInput describes one step of a new workflow.
type StepInput struct {
	AssigneeID string     `json:"assignee_id" validate:"required"`
	Action     StepAction `json:"action" validate:"required,oneof=review approve sign"`
}

// CreateWorkflowInput starts a workflow over a subject.
type CreateWorkflowInput struct {
	FoundationID string       `json:"foundation_id" validate:"required"`
	Subject      Subject      `json:"subject" validate:"required"`
	Kind         WorkflowKind `json:"kind" validate:"required,oneof=approval review signature"`
	Steps        []StepInput  `json:"steps" validate:"required,min=1,dive"`
}

// ProcessStepInput is an assignee's answer on a step.
type ProcessStepInput struct {
	WorkflowID        string        `json:"workflow_id" validate:"required"`
	StepID            string        `json:"step_id" validate:"required"`
	Action            ProcessAction `json:"action" validate:"required,oneof=approve reject sign"`
	Comments          string        `json:"comments" validate:"max=4000"`
	SignatureArtifact string        `json:"signature_artifact"`
	OrderRef          string        `json:"order_ref"`
}

// StepResult is the state after a step transition.
type StepResult struct {
	Step     Step     `json:"step"`
	Workflow Workflow `json:"workflow"`
}

// Engine runs approval, review and signature workflows.
type Engine struct {
	store      WorkflowStore
	signatures SignatureAdapter
	audit      *AuditLog
	notifier   Notifier
	clock      Clock
	validate   *validator.Validate
	logger     *zap.SugaredLogger
	metrics    *Metrics

	inflight sync.WaitGroup
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Store      WorkflowStore
	Signatures SignatureAdapter
	Audit      *AuditLog
	Notifier   Notifier
	Clock      Clock
	Logger     *zap.SugaredLogger
	Metrics    *Metrics
}

// NewEngine creates a workflow engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = systemClock
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	return &Engine{
		store:      cfg.Store,
		signatures: cfg.Signatures,
		audit:      cfg.Audit,
		notifier:   cfg.Notifier,
		clock:      cfg.Clock,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

func (e *Engine) check(v interface{}) error {
	if err := e.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// CreateWorkflow stores a workflow and its steps in input order. If the steps
// cannot be stored the workflow row is removed again.
func (e *Engine) CreateWorkflow(ctx context.Context, actor Principal, in CreateWorkflowInput) (Workflow, error) {
	ctx, span := tracer.Start(ctx, "governance.CreateWorkflow")
	defer span.End()

	if err := e.check(in); err != nil {
		return Workflow{}, err
	}

	now := e.clock()
	wf := Workflow{
		ID:           newID(),
		FoundationID: in.FoundationID,
		Subject:      in.Subject,
		Kind:         in.Kind,
		Status:       WorkflowPending,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	span.SetAttributes(attribute.String("workflow.id", wf.ID))

	if err := e.store.CreateWorkflow(ctx, &wf); err != nil {
		return Workflow{}, fmt.Errorf("failed to create workflow: %w", err)
	}

	steps := make([]Step, len(in.Steps))
	for i, s := range in.Steps {
		steps[i] = Step{
			ID:         newID(),
			WorkflowID: wf.ID,
			Order:      i + 1,
			AssigneeID: s.AssigneeID,
			Action:     s.Action,
			Status:     StepPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	if err := e.store.CreateSteps(ctx, steps); err != nil {
		span.RecordError(err)
		if derr := e.store.DeleteWorkflow(ctx, wf.ID); derr != nil {
			e.logger.Errorw("failed to roll back workflow", "workflow_id", wf.ID, "error", derr)
		}
		return Workflow{}, fmt.Errorf("failed to create workflow steps: %w", err)
	}
	wf.Steps = steps

	e.audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		FoundationID: strPtr(wf.FoundationID),
		Action:       "workflow.create",
		TargetTable:  "workflows",
		TargetID:     wf.ID,
		NewValues:    snapshot(wf),
	})
	e.logger.Infow("workflow created", "workflow_id", wf.ID, "foundation_id", wf.FoundationID, "steps", len(steps))
	return wf, nil
}

// GetWorkflow returns a workflow with its steps.
func (e *Engine) GetWorkflow(ctx context.Context, id string) (Workflow, error) {
	wf, err := e.store.GetWorkflow(ctx, id)
	if err != nil {
		return Workflow{}, err
	}
	steps, err := e.store.ListSteps(ctx, id)
	if err != nil {
		return Workflow{}, fmt.Errorf("failed to fetch steps: %w", err)
	}
	wf.Steps = steps
	return wf, nil
}

// ListWorkflows returns workflows matching filter without their steps.
func (e *Engine) ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]Workflow, error) {
	return e.store.ListWorkflows(ctx, filter)
}

// DeleteWorkflow removes a workflow and its steps.
func (e *Engine) DeleteWorkflow(ctx context.Context, actor Principal, id string) error {
	wf, err := e.store.GetWorkflow(ctx, id)
	if err != nil {
		return err
	}
	if err := e.store.DeleteWorkflow(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	e.audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		FoundationID: strPtr(wf.FoundationID),
		Action:       "workflow.delete",
		TargetTable:  "workflows",
		TargetID:     id,
		OldValues:    snapshot(wf),
	})
	return nil
}

// ProcessStep applies an assignee's answer to a pending step, then
// recomputes the workflow status and notifies the subject's originator once
// the workflow is completed or rejected.
func (e *Engine) ProcessStep(ctx context.Context, actor Principal, in ProcessStepInput) (StepResult, error) {
	ctx, span := tracer.Start(ctx, "governance.ProcessStep")
	defer span.End()
	span.SetAttributes(
		attribute.String("workflow.id", in.WorkflowID),
		attribute.String("step.id", in.StepID),
		attribute.String("action", string(in.Action)),
	)

	if err := e.check(in); err != nil {
		return StepResult{}, err
	}
	fail := func(err error) (StepResult, error) {
		span.RecordError(err)
		return StepResult{}, &StepError{Op: "process", WorkflowID: in.WorkflowID, StepID: in.StepID, Err: err}
	}

	step, err := e.store.GetStep(ctx, in.StepID)
	if err != nil {
		return fail(err)
	}
	if step.WorkflowID != in.WorkflowID {
		return fail(ErrNotFound)
	}
	wf, err := e.store.GetWorkflow(ctx, in.WorkflowID)
	if err != nil {
		return fail(err)
	}
	if wf.Status.Terminal() || step.Status != StepPending {
		return fail(ErrConflict)
	}
	if !step.Action.accepts(in.Action) {
		return fail(fmt.Errorf("%w: cannot %s a %s step", ErrInvalidInput, in.Action, step.Action))
	}
	if actor.ID != step.AssigneeID && (in.Action == Sign || !IsGlobalAdmin(actor)) {
		return fail(deny(ReasonNotAssignee))
	}

	t := StepTransition{
		Status:      StepCompleted,
		CompletedAt: e.clock(),
		CompletedBy: actor.ID,
		Comments:    strPtr(in.Comments),
	}
	switch in.Action {
	case Reject:
		t.Status = StepRejected
	case Sign:
		artifact, orderRef, err := e.verifySignature(ctx, step, in)
		if err != nil {
			return fail(err)
		}
		t.SignatureArtifact = strPtr(artifact)
		t.SignatureOrderRef = strPtr(orderRef)
	}

	updated, err := e.store.TransitionStep(ctx, step.ID, t)
	if err != nil {
		return fail(err)
	}
	e.metrics.observeStep(in.Action)
	e.audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		FoundationID: strPtr(wf.FoundationID),
		Action:       "workflow_step." + string(in.Action),
		TargetTable:  "workflow_steps",
		TargetID:     step.ID,
		OldValues:    snapshot(step),
		NewValues:    snapshot(updated),
	})

	steps, err := e.store.ListSteps(ctx, wf.ID)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch steps: %w", err))
	}
	status := DeriveStatus(steps)
	now := e.clock()
	changed, err := e.store.AdvanceWorkflowStatus(ctx, wf.ID, status, now)
	if err != nil {
		return fail(fmt.Errorf("failed to update workflow status: %w", err))
	}
	if changed {
		e.audit.Record(ctx, AuditEntry{
			ActorID:      actor.ID,
			FoundationID: strPtr(wf.FoundationID),
			Action:       "workflow.status",
			TargetTable:  "workflows",
			TargetID:     wf.ID,
			OldValues:    snapshot(map[string]interface{}{"status": wf.Status}),
			NewValues:    snapshot(map[string]interface{}{"status": status}),
		})
		switch status {
		case WorkflowCompleted:
			e.metrics.observeFinalized(status)
			e.notify(ctx, completionNotice(wf, len(steps)))
		case WorkflowRejected:
			e.metrics.observeFinalized(status)
			e.notify(ctx, rejectionNotice(wf, actor.ID, in.Comments))
		}
	}

	current, err := e.store.GetWorkflow(ctx, wf.ID)
	if err != nil {
		return fail(err)
	}
	current.Steps = steps
	e.logger.Infow("workflow step processed",
		"workflow_id", wf.ID, "step_id", step.ID, "action", in.Action, "workflow_status", current.Status)
	return StepResult{Step: updated, Workflow: current}, nil
}

// verifySignature checks that the session behind a sign answer is completed
// and belongs to the step's assignee.
func (e *Engine) verifySignature(ctx context.Context, step Step, in ProcessStepInput) (artifact, orderRef string, err error) {
	unverified := &DeniedError{Reason: ReasonSignatureNotVerified, Err: ErrSessionUnverified}

	orderRef = in.OrderRef
	if orderRef == "" && step.SignatureOrderRef != nil {
		orderRef = *step.SignatureOrderRef
	}
	if orderRef == "" || e.signatures == nil {
		return "", "", unverified
	}
	sess, err := e.signatures.CheckStatus(ctx, orderRef)
	if errors.Is(err, ErrNotFound) {
		return "", "", unverified
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to check signature session: %w", err)
	}
	if sess.Kind != SessionSignature || sess.Status != SessionCompleted || sess.PrincipalID != step.AssigneeID {
		return "", "", unverified
	}

	artifact = in.SignatureArtifact
	if artifact == "" {
		if sig, ok := sess.CompletionData["signature"].(string); ok {
			artifact = sig
		}
	}
	return artifact, orderRef, nil
}

// ReassignStep hands a pending step of workflowID to another principal.
func (e *Engine) ReassignStep(ctx context.Context, actor Principal, workflowID, stepID, assigneeID string) (Step, error) {
	if workflowID == "" || stepID == "" || assigneeID == "" {
		return Step{}, ErrInvalidInput
	}
	before, err := e.store.GetStep(ctx, stepID)
	if err != nil {
		return Step{}, &StepError{Op: "reassign", WorkflowID: workflowID, StepID: stepID, Err: err}
	}
	if before.WorkflowID != workflowID {
		return Step{}, &StepError{Op: "reassign", WorkflowID: workflowID, StepID: stepID, Err: ErrNotFound}
	}
	after, err := e.store.ReassignStep(ctx, stepID, assigneeID)
	if err != nil {
		return Step{}, &StepError{Op: "reassign", WorkflowID: before.WorkflowID, StepID: stepID, Err: err}
	}

	wf, err := e.store.GetWorkflow(ctx, after.WorkflowID)
	if err != nil {
		e.logger.Warnw("reassigned step has no workflow", "step_id", stepID, "error", err)
		return after, nil
	}
	e.audit.Record(ctx, AuditEntry{
		ActorID:      actor.ID,
		FoundationID: strPtr(wf.FoundationID),
		Action:       "workflow_step.reassign",
		TargetTable:  "workflow_steps",
		TargetID:     stepID,
		OldValues:    snapshot(map[string]interface{}{"assignee_id": before.AssigneeID}),
		NewValues:    snapshot(map[string]interface{}{"assignee_id": assigneeID}),
	})
	e.notify(ctx, reassignmentNotice(wf, after))
	return after, nil
}

// PendingActionsFor returns every pending step assigned to principalID,
// oldest first.
func (e *Engine) PendingActionsFor(ctx context.Context, principalID string) ([]Step, error) {
	if principalID == "" {
		return nil, ErrInvalidInput
	}
	steps, err := e.store.ListPendingSteps(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending steps: %w", err)
	}
	return steps, nil
}

// BeginSignature opens a signature session for the assignee of a pending
// sign step and records its order reference on the step.
func (e *Engine) BeginSignature(ctx context.Context, actor Principal, workflowID, stepID string) (SignatureSession, error) {
	if e.signatures == nil {
		return SignatureSession{}, fmt.Errorf("%w: signatures are not configured", ErrInvalidInput)
	}
	step, err := e.store.GetStep(ctx, stepID)
	if err != nil {
		return SignatureSession{}, &StepError{Op: "begin signature", WorkflowID: workflowID, StepID: stepID, Err: err}
	}
	if step.WorkflowID != workflowID {
		return SignatureSession{}, &StepError{Op: "begin signature", WorkflowID: workflowID, StepID: stepID, Err: ErrNotFound}
	}
	if step.Action != ActionSign {
		return SignatureSession{}, fmt.Errorf("%w: step %s does not ask for a signature", ErrInvalidInput, stepID)
	}
	if step.AssigneeID != actor.ID {
		return SignatureSession{}, deny(ReasonNotAssignee)
	}
	if step.Status != StepPending {
		return SignatureSession{}, &StepError{Op: "begin signature", WorkflowID: workflowID, StepID: stepID, Err: ErrConflict}
	}

	sess, err := e.signatures.Initiate(ctx, actor.ID, SessionSignature)
	if err != nil {
		return SignatureSession{}, err
	}
	if _, err := e.store.AttachSignatureOrder(ctx, stepID, sess.OrderRef); err != nil {
		if _, cerr := e.signatures.Cancel(ctx, sess.OrderRef); cerr != nil {
			e.logger.Warnw("failed to cancel orphaned signature session", "order_ref", sess.OrderRef, "error", cerr)
		}
		return SignatureSession{}, &StepError{Op: "begin signature", WorkflowID: workflowID, StepID: stepID, Err: err}
	}
	return sess, nil
}

// notify delivers n in the background. Delivery failures are logged only.
func (e *Engine) notify(ctx context.Context, n Notification) {
	if n.RecipientID == "" {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = e.clock()
	}
	ctx = context.WithoutCancel(ctx)
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		if err := e.notifier.Notify(ctx, n); err != nil {
			e.metrics.notificationFailed()
			e.logger.Errorw("failed to send notification",
				"recipient_id", n.RecipientID, "workflow_id", n.WorkflowID, "title", n.Title, "error", err)
		}
	}()
}

// Drain waits for notifications still being delivered.
func (e *Engine) Drain() {
	e.inflight.Wait()
}
