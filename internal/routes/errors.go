package routes

import (
	"errors"

	"github.com/bohemiyan/governance"
	"github.com/gofiber/fiber/v2"
	"github.com/moogar0880/problems"
)

func badRequest(c *fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c *fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusUnauthorized).
		WithInstance(c.Path()).
		WithType("unauthenticated").
		WithDetail(err.Error())

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

// fail maps service errors to problem responses.
func (h *handler) fail(c *fiber.Ctx, err error) error {
	var denied *governance.DeniedError
	switch {
	case errors.As(err, &denied):
		problem := problems.NewStatusProblem(fiber.StatusForbidden).
			WithInstance(c.Path()).
			WithType("permission_denied").
			WithDetail(string(denied.Reason))

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case errors.Is(err, governance.ErrInvalidInput):
		return badRequest(c, err.Error())

	case errors.Is(err, governance.ErrNotFound):
		problem := problems.NewStatusProblem(fiber.StatusNotFound).
			WithInstance(c.Path()).
			WithType("not_found").
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, governance.ErrConflict):
		problem := problems.NewStatusProblem(fiber.StatusConflict).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	default:
		h.logger.Errorw("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
			WithInstance(c.Path()).
			WithType("internal_error")

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
