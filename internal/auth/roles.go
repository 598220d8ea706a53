package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/claim-service/internal/domain"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

// RequireRole ensures the principal holds one of the allowed roles. A missing
// principal yields 401 (no role configured), a present principal with the
// wrong role yields 403; the two outcomes are deliberately distinct.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal is present, whatever the role.
func RequireAuthenticated() fiber.Handler {
	return RequireRole()
}
