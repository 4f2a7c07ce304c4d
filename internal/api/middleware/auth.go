package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eduplatform/identity-api/internal/pkg/security"
)

// Context keys populated by Auth.
const (
	CtxUsername = "username"
	CtxRoles    = "roles"
)

// TokenParser verifies a signed access token.
type TokenParser interface {
	Parse(token string) (*security.AccessClaims, error)
}

// Auth validates the bearer access token and injects its claims into context.
func Auth(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := parser.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(CtxUsername, claims.Username)
			c.Set(CtxRoles, claims.Roles)

			return next(c)
		}
	}
}
