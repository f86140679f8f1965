package routes

import (
	"context"

	"github.com/bohemiyan/governance"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options configures the HTTP surface.
type Options struct {
	// JWTSecret verifies HS256 bearer tokens. The "sub" claim is the principal ID.
	JWTSecret []byte
	// CallbackSecret verifies the signature provider's HS256 callback tokens.
	// Empty disables the callback endpoints.
	CallbackSecret []byte
	// Gatherer backs GET /metrics. Nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
	// Cache, when set, adds membership cache statistics to GET /health.
	Cache  CacheStats
	Logger *zap.SugaredLogger
}

// CacheStats is implemented by governance.RedisMembershipCache.
type CacheStats interface {
	Stats(ctx context.Context) map[string]interface{}
}

type handler struct {
	svc            *governance.Service
	secret         []byte
	callbackSecret []byte
	logger         *zap.SugaredLogger
}

// Setup registers every governance endpoint on app.
func Setup(app *fiber.App, svc *governance.Service, opts Options) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	h := &handler{svc: svc, secret: opts.JWTSecret, callbackSecret: opts.CallbackSecret, logger: opts.Logger}

	app.Use(h.requestMeta)
	app.Get("/health", func(c *fiber.Ctx) error {
		health := fiber.Map{"status": "ok"}
		if opts.Cache != nil {
			health["cache"] = opts.Cache.Stats(c.UserContext())
		}
		return c.JSON(health)
	})
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// The signature provider reports back with its own token, not a user's.
	callbacks := app.Group("/api/v1/callbacks/signatures/:orderRef", h.authenticateCallback)
	callbacks.Post("/complete", h.completeSignature)
	callbacks.Post("/cancel", h.cancelSignature)
	callbacks.Post("/fail", h.failSignature)

	api := app.Group("/api/v1", h.authenticate)

	api.Post("/foundations", h.createFoundation)
	api.Get("/foundations/:foundationID", h.requirePolicy(governance.PolicyViewFoundation), h.getFoundation)
	api.Delete("/foundations/:foundationID", h.requirePolicy(governance.PolicyDeleteFoundation), h.deleteFoundation)
	api.Post("/foundations/:foundationID/transfer", h.requirePolicy(governance.PolicyTransferOwnership), h.transferOwnership)
	api.Post("/foundations/:foundationID/authorize", h.authorize)
	api.Get("/foundations/:foundationID/audit", h.requirePolicy(governance.PolicyViewAuditLog), h.queryAudit)

	api.Get("/foundations/:foundationID/members", h.requirePolicy(governance.PolicyViewFoundation), h.listMembers)
	api.Post("/foundations/:foundationID/members", h.requirePolicy(governance.PolicyManageMembers), h.addMember)
	api.Post("/foundations/:foundationID/members/bulk", h.requirePolicy(governance.PolicyManageMembers), h.bulkAddMembers)
	api.Patch("/foundations/:foundationID/members/:principalID", h.requirePolicy(governance.PolicyManageMembers), h.updateMember)
	api.Delete("/foundations/:foundationID/members/:principalID", h.requirePolicy(governance.PolicyManageMembers), h.removeMember)

	api.Post("/foundations/:foundationID/workflows", h.requirePolicy(governance.PolicyStartWorkflow), h.createWorkflow)
	api.Get("/foundations/:foundationID/workflows", h.requirePolicy(governance.PolicyViewFoundation), h.listWorkflows)
	api.Get("/workflows/:workflowID", h.getWorkflow)
	api.Delete("/workflows/:workflowID", h.deleteWorkflow)
	api.Post("/workflows/:workflowID/steps/:stepID/process", h.processStep)
	api.Post("/workflows/:workflowID/steps/:stepID/signature", h.beginSignature)
	api.Put("/workflows/:workflowID/steps/:stepID/assignee", h.reassignStep)

	api.Get("/me/pending-actions", h.pendingActions)
	api.Put("/principals/:principalID/global-role", h.setGlobalRole)

	api.Post("/signatures", h.initiateSignature)
	api.Get("/signatures/:orderRef", h.signatureStatus)
}
