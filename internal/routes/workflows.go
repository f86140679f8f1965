package routes

import (
	"context"

	"github.com/bohemiyan/governance"
	"github.com/gofiber/fiber/v2"
)

func (h *handler) createWorkflow(c *fiber.Ctx) error {
	var in governance.CreateWorkflowInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	in.FoundationID = c.Params("foundationID")
	wf, err := h.svc.Workflows.CreateWorkflow(c.UserContext(), principal(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (h *handler) listWorkflows(c *fiber.Ctx) error {
	workflows, err := h.svc.Workflows.ListWorkflows(c.UserContext(), governance.WorkflowFilter{
		FoundationID: c.Params("foundationID"),
		SubjectType:  c.Query("subject_type"),
		SubjectID:    c.Query("subject_id"),
		Status:       governance.WorkflowStatus(c.Query("status")),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"workflows": workflows})
}

// loadWorkflow fetches the workflow in the path and checks policy against it.
// Assignees of one of its steps may always read it.
func (h *handler) loadWorkflow(ctx context.Context, c *fiber.Ctx, policy governance.Policy) (governance.Workflow, error) {
	wf, err := h.svc.Workflows.GetWorkflow(ctx, c.Params("workflowID"))
	if err != nil {
		return governance.Workflow{}, err
	}
	p := principal(c)
	if policy.Name() == governance.PolicyViewFoundation.Name() {
		for _, s := range wf.Steps {
			if s.AssigneeID == p.ID {
				return wf, nil
			}
		}
	}
	d, err := h.svc.Authorizer.AuthorizeResource(ctx, p, governance.WorkflowRef(wf), policy)
	if err != nil {
		return governance.Workflow{}, err
	}
	if err := d.Err(); err != nil {
		return governance.Workflow{}, err
	}
	return wf, nil
}

func (h *handler) getWorkflow(c *fiber.Ctx) error {
	wf, err := h.loadWorkflow(c.UserContext(), c, governance.PolicyViewFoundation)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(wf)
}

func (h *handler) deleteWorkflow(c *fiber.Ctx) error {
	ctx := c.UserContext()
	wf, err := h.loadWorkflow(ctx, c, governance.PolicyManageWorkflows)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.svc.Workflows.DeleteWorkflow(ctx, principal(c), wf.ID); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type processStepRequest struct {
	Action            governance.ProcessAction `json:"action"`
	Comments          string                   `json:"comments"`
	SignatureArtifact string                   `json:"signature_artifact"`
	OrderRef          string                   `json:"order_ref"`
}

func (h *handler) processStep(c *fiber.Ctx) error {
	var req processStepRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.svc.Workflows.ProcessStep(c.UserContext(), principal(c), governance.ProcessStepInput{
		WorkflowID:        c.Params("workflowID"),
		StepID:            c.Params("stepID"),
		Action:            req.Action,
		Comments:          req.Comments,
		SignatureArtifact: req.SignatureArtifact,
		OrderRef:          req.OrderRef,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

func (h *handler) beginSignature(c *fiber.Ctx) error {
	sess, err := h.svc.Workflows.BeginSignature(c.UserContext(), principal(c), c.Params("workflowID"), c.Params("stepID"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sess)
}

type reassignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

func (h *handler) reassignStep(c *fiber.Ctx) error {
	var req reassignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.UserContext()
	wf, err := h.loadWorkflow(ctx, c, governance.PolicyManageWorkflows)
	if err != nil {
		return h.fail(c, err)
	}
	step, err := h.svc.Workflows.ReassignStep(ctx, principal(c), wf.ID, c.Params("stepID"), req.AssigneeID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(step)
}

func (h *handler) pendingActions(c *fiber.Ctx) error {
	steps, err := h.svc.Workflows.PendingActionsFor(c.UserContext(), principal(c).ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"steps": steps})
}
