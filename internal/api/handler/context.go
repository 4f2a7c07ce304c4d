package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eduplatform/identity-api/internal/api/middleware"
)

// ctxUsername returns the authenticated subject injected by the Auth
// middleware. An empty value means the middleware did not run.
func ctxUsername(c echo.Context) (string, error) {
	username, _ := c.Get(middleware.CtxUsername).(string)
	if username == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return username, nil
}
