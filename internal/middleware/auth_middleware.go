package middleware

import (
	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// Authenticate resolves the bearer credential and stores the identity in the request context.
// It never rejects; RejectInvalid does, once the rate limiter has seen the request.
func Authenticate(resolver *auth.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := resolver.Resolve(c.Get(fiber.HeaderAuthorization))
		c.SetUserContext(auth.WithIdentity(c.UserContext(), id))
		return c.Next()
	}
}

// RejectInvalid answers 401 for a credential that failed verification. Such a request never
// continues as anonymous.
func RejectInvalid() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if auth.FromContext(c.UserContext()).Status == auth.Invalid {
			return apperror.Unauthorized("Invalid or expired token")
		}
		return c.Next()
	}
}

// RequireUser rejects anonymous callers.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !auth.FromContext(c.UserContext()).IsAuthenticated() {
			return apperror.Unauthorized("Missing authorization token")
		}
		return c.Next()
	}
}

// UserID returns the authenticated user of the request, empty for anonymous callers.
func UserID(c *fiber.Ctx) string {
	return auth.FromContext(c.UserContext()).UserID
}
