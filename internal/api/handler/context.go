package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peaberry/peaberry-api/internal/api/middleware"
)

// ctxUser returns the caller injected by the Auth middleware. A missing
// subject means the route was mounted without Auth.
func ctxUser(c echo.Context) (userID, role string, err error) {
	userID, _ = c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ = c.Get(middleware.CtxRole).(string)
	return userID, role, nil
}

// ctxRole returns the caller's role, or "" for anonymous requests.
func ctxRole(c echo.Context) string {
	role, _ := c.Get(middleware.CtxRole).(string)
	return role
}
