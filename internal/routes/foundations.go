package routes

import (
	"strconv"

	"github.com/bohemiyan/governance"
	"github.com/gofiber/fiber/v2"
)

type createFoundationRequest struct {
	Name string `json:"name"`
}

func (h *handler) createFoundation(c *fiber.Ctx) error {
	var req createFoundationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	f, err := h.svc.CreateFoundation(c.UserContext(), principal(c), req.Name)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(f)
}

func (h *handler) getFoundation(c *fiber.Ctx) error {
	f, err := h.svc.GetFoundation(c.UserContext(), c.Params("foundationID"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(f)
}

func (h *handler) deleteFoundation(c *fiber.Ctx) error {
	if err := h.svc.DeleteFoundation(c.UserContext(), principal(c), c.Params("foundationID")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type transferRequest struct {
	NewOwnerID string `json:"new_owner_id"`
}

func (h *handler) transferOwnership(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	f, err := h.svc.TransferOwnership(c.UserContext(), principal(c), c.Params("foundationID"), req.NewOwnerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(f)
}

type authorizeRequest struct {
	Policies []string `json:"policies"`
}

// authorize reports which of the named policies the caller satisfies in the
// foundation.
func (h *handler) authorize(c *fiber.Ctx) error {
	var req authorizeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	checks := make([]governance.AuthorizationCheck, 0, len(req.Policies))
	for _, name := range req.Policies {
		policy, ok := governance.LookupPolicy(name)
		if !ok {
			return badRequest(c, "unknown policy "+strconv.Quote(name))
		}
		checks = append(checks, governance.AuthorizationCheck{FoundationID: c.Params("foundationID"), Policy: policy})
	}
	results := h.svc.Authorizer.BulkAuthorize(c.UserContext(), principal(c), checks)
	for _, r := range results {
		if r.Err != nil {
			return h.fail(c, r.Err)
		}
	}
	return c.JSON(fiber.Map{"results": results})
}

func (h *handler) queryAudit(c *fiber.Ctx) error {
	entries, err := h.svc.Audit.Query(c.UserContext(), governance.AuditFilter{
		FoundationID: c.Params("foundationID"),
		ActorID:      c.Query("actor_id"),
		Action:       c.Query("action"),
		TargetTable:  c.Query("target_table"),
		TargetID:     c.Query("target_id"),
		Limit:        c.QueryInt("limit", 0),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"entries": entries})
}

func (h *handler) listMembers(c *fiber.Ctx) error {
	members, err := h.svc.ListMembers(c.UserContext(), c.Params("foundationID"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"members": members})
}

type addMemberRequest struct {
	PrincipalID string                `json:"principal_id"`
	Role        governance.MemberRole `json:"role"`
	Permissions []string              `json:"permissions"`
}

func (h *handler) addMember(c *fiber.Ctx) error {
	var req addMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	in := governance.AddMemberInput{
		FoundationID: c.Params("foundationID"),
		PrincipalID:  req.PrincipalID,
		Role:         req.Role,
	}
	if req.Permissions != nil {
		in.Permissions = make([]governance.Permission, 0, len(req.Permissions))
		for _, key := range req.Permissions {
			p, err := governance.ParsePermission(key)
			if err != nil {
				return h.fail(c, err)
			}
			in.Permissions = append(in.Permissions, p)
		}
	}
	m, err := h.svc.AddMember(c.UserContext(), principal(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

type bulkAddMembersRequest struct {
	Members []struct {
		PrincipalID string                `json:"principal_id"`
		Role        governance.MemberRole `json:"role"`
	} `json:"members"`
}

type bulkMemberResult struct {
	PrincipalID string `json:"principal_id"`
	Added       bool   `json:"added"`
	Error       string `json:"error,omitempty"`
}

// bulkAddMembers adds members with their role defaults. Failures are
// reported per principal; the batch is not aborted.
func (h *handler) bulkAddMembers(c *fiber.Ctx) error {
	var req bulkAddMembersRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.Members) == 0 {
		return badRequest(c, "members must not be empty")
	}
	assignments := make([]governance.MemberAssignment, len(req.Members))
	for i, m := range req.Members {
		assignments[i] = governance.MemberAssignment{PrincipalID: m.PrincipalID, Role: m.Role}
	}

	errs := h.svc.BulkAddMembers(c.UserContext(), principal(c), c.Params("foundationID"), assignments)
	results := make([]bulkMemberResult, len(assignments))
	for i, as := range assignments {
		results[i] = bulkMemberResult{PrincipalID: as.PrincipalID, Added: errs[as.PrincipalID] == nil}
		if err := errs[as.PrincipalID]; err != nil {
			results[i].Error = err.Error()
		}
	}
	return c.JSON(fiber.Map{"results": results})
}

type updateMemberRequest struct {
	Role        *governance.MemberRole    `json:"role"`
	Permissions *governance.PermissionSet `json:"permissions"`
}

func (h *handler) updateMember(c *fiber.Ctx) error {
	var req updateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	m, err := h.svc.UpdateMember(c.UserContext(), principal(c), governance.UpdateMemberInput{
		FoundationID: c.Params("foundationID"),
		PrincipalID:  c.Params("principalID"),
		Role:         req.Role,
		Permissions:  req.Permissions,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(m)
}

func (h *handler) removeMember(c *fiber.Ctx) error {
	err := h.svc.RemoveMember(c.UserContext(), principal(c), c.Params("foundationID"), c.Params("principalID"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type globalRoleRequest struct {
	GlobalRole governance.GlobalRole `json:"global_role"`
}

// setGlobalRole is reserved to global admins.
func (h *handler) setGlobalRole(c *fiber.Ctx) error {
	if !governance.IsGlobalAdmin(principal(c)) {
		return h.fail(c, governance.Deny(governance.ReasonInsufficientPermissions).Err())
	}
	var req globalRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.SetGlobalRole(c.UserContext(), principal(c), c.Params("principalID"), req.GlobalRole)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}
