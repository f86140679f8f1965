package routes

import (
	"errors"
	"strings"

	"github.com/bohemiyan/governance"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

var (
	errUnauthenticated   = errors.New("missing or invalid bearer token")
	errCallbacksDisabled = errors.New("signature callbacks are not configured")
)

// requestMeta makes the client address and agent available to audit entries.
func (h *handler) requestMeta(c *fiber.Ctx) error {
	c.SetUserContext(governance.WithRequestMeta(c.UserContext(), governance.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}))
	return c.Next()
}

// authenticate verifies the bearer token and resolves its subject.
func (h *handler) authenticate(c *fiber.Ctx) error {
	raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || raw == "" {
		return unauthorized(c, errUnauthenticated)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.Subject == "" {
		return unauthorized(c, errUnauthenticated)
	}

	p, err := h.svc.Resolver.Principal(c.UserContext(), claims.Subject)
	if err != nil {
		return h.fail(c, err)
	}
	c.Locals(principalKey, p)
	return c.Next()
}

// CallbackAudience is the "aud" claim the signature provider puts in its
// callback tokens.
const CallbackAudience = "signature-callbacks"

// authenticateCallback accepts a provider token signed with the callback
// secret whose subject is the order reference in the path. Callbacks are
// refused outright when no callback secret is configured.
func (h *handler) authenticateCallback(c *fiber.Ctx) error {
	if len(h.callbackSecret) == 0 {
		return unauthorized(c, errCallbacksDisabled)
	}
	raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || raw == "" {
		return unauthorized(c, errUnauthenticated)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return h.callbackSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(CallbackAudience),
		jwt.WithSubject(c.Params("orderRef")),
	)
	if err != nil {
		return unauthorized(c, errUnauthenticated)
	}
	return c.Next()
}

// requirePolicy guards a route scoped by the :foundationID parameter.
func (h *handler) requirePolicy(policy governance.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := h.svc.Authorizer.Require(c.UserContext(), principal(c), c.Params("foundationID"), policy)
		if err != nil {
			return h.fail(c, err)
		}
		return c.Next()
	}
}

func principal(c *fiber.Ctx) governance.Principal {
	p, _ := c.Locals(principalKey).(governance.Principal)
	return p
}
