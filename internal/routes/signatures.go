package routes

import (
	"github.com/bohemiyan/governance"
	"github.com/gofiber/fiber/v2"
)

type initiateSignatureRequest struct {
	Kind governance.SessionKind `json:"kind"`
}

func (h *handler) initiateSignature(c *fiber.Ctx) error {
	var req initiateSignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Kind == "" {
		req.Kind = governance.SessionAuthentication
	}
	sess, err := h.svc.Signatures.Initiate(c.UserContext(), principal(c).ID, req.Kind)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sess)
}

// signatureStatus only reveals a session to the principal who started it.
func (h *handler) signatureStatus(c *fiber.Ctx) error {
	sess, err := h.svc.Signatures.CheckStatus(c.UserContext(), c.Params("orderRef"))
	if err != nil {
		return h.fail(c, err)
	}
	p := principal(c)
	if sess.PrincipalID != p.ID && !governance.IsGlobalAdmin(p) {
		return h.fail(c, governance.ErrNotFound)
	}
	return c.JSON(sess)
}

type completeSignatureRequest struct {
	CompletionData map[string]interface{} `json:"completion_data"`
}

func (h *handler) completeSignature(c *fiber.Ctx) error {
	var req completeSignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	sess, err := h.svc.Signatures.Complete(c.UserContext(), c.Params("orderRef"), req.CompletionData)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sess)
}

func (h *handler) cancelSignature(c *fiber.Ctx) error {
	sess, err := h.svc.Signatures.Cancel(c.UserContext(), c.Params("orderRef"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sess)
}

type failSignatureRequest struct {
	Reason string `json:"reason"`
}

func (h *handler) failSignature(c *fiber.Ctx) error {
	var req failSignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	sess, err := h.svc.Signatures.Fail(c.UserContext(), c.Params("orderRef"), req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sess)
}
