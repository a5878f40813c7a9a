package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RoleChecker answers role membership.  Roles live in the database, not in
// the token, so a revoked role takes effect on the next request.
type RoleChecker interface {
	HasAny(ctx context.Context, userID string, roles ...string) (bool, error)
}

// RequireRole aborts with 403 unless the authenticated user holds one of
// roles.  It must run after JWTAuth.
func RequireRole(checker RoleChecker, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := UserID(c)
			if uid == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			ok, err := checker.HasAny(c.Request().Context(), uid, roles...)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role lookup failed"})
			}
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
