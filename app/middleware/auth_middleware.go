// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"github.com/amirphl/dokany-admin/app/dto"
	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// Fiber locals set by the guard for downstream handlers
const (
	LocalAdminID       = "admin_id"
	LocalAdminIdentity = "admin_identity"
	LocalRequestID     = "request_id"
)

// GuardDecision is what the route guard does with a request
type GuardDecision int

const (
	// GuardWait renders a placeholder while the session is still resolving
	GuardWait GuardDecision = iota
	// GuardRedirect sends the operator to the login entry point
	GuardRedirect
	// GuardAllow renders the protected view
	GuardAllow
)

func (d GuardDecision) String() string {
	switch d {
	case GuardWait:
		return "wait"
	case GuardRedirect:
		return "redirect"
	case GuardAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decide never redirects while the session is loading
func Decide(s models.Session) GuardDecision {
	switch {
	case s.Loading:
		return GuardWait
	case s.IsAuthenticated && s.Identity != nil:
		return GuardAllow
	default:
		return GuardRedirect
	}
}

// SessionReader is the read side of the session store the guard needs
type SessionReader interface {
	Snapshot() models.Session
}

// RouteGuard protects console views behind the admin session
func RouteGuard(sessions SessionReader) fiber.Handler {
	return func(c fiber.Ctx) error {
		snap := sessions.Snapshot()
		decision := Decide(snap)
		recordGuardDecision(decision)

		switch decision {
		case GuardWait:
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
				Success: false,
				Message: "Loading session, please wait",
				Error:   dto.ErrorDetail{Code: "SESSION_LOADING"},
			})
		case GuardRedirect:
			return c.Redirect().Status(fiber.StatusSeeOther).To(utils.LoginPath)
		}

		c.Locals(LocalAdminID, snap.Identity.UserID)
		c.Locals(LocalAdminIdentity, snap.Identity)
		if requestID := requestid.FromContext(c); requestID != "" {
			c.Locals(LocalRequestID, requestID)
		}

		return c.Next()
	}
}

// AdminIdentity returns the identity stored by RouteGuard, or nil outside guarded routes
func AdminIdentity(c fiber.Ctx) *models.AdminIdentity {
	identity, _ := c.Locals(LocalAdminIdentity).(*models.AdminIdentity)
	return identity
}
