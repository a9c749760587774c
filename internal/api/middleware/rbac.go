package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// RBAC admits only callers whose role is one of roles. It must run after Auth:
// a request without a subject is rejected as unauthenticated, a request with
// the wrong role surfaces domain.ErrForbidden to the central error handler.
func RBAC(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if sub, _ := c.Get(CtxUserID).(string); sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing subject")
			}
			role, _ := c.Get(CtxRole).(string)
			if !allowed[role] {
				return fmt.Errorf("role %q: %w", role, domain.ErrForbidden)
			}
			return next(c)
		}
	}
}
