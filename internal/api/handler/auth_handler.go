package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eduplatform/identity-api/internal/api/metrics"
	"github.com/eduplatform/identity-api/internal/core/domain"
	"github.com/eduplatform/identity-api/internal/core/ports"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/token"
)

type AuthHandler struct {
	authService  ports.AuthService
	secureCookie bool
}

func NewAuthHandler(authService ports.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookie: secureCookie}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login authenticates an account and returns an access token and a refresh token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  ports.AuthResult
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/auth [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	start := time.Now()
	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	metrics.AuthDuration.WithLabelValues("login").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		} else {
			metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	h.setRefreshCookie(c, res)
	return c.JSON(http.StatusOK, res)
}

// Refresh exchanges a refresh token for a new access token and a rotated
// refresh token. The token is read from the body, then from the cookie.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token (the refresh_token cookie is used when absent)"
// @Success      200   {object}  ports.AuthResult
// @Failure      401   {object}  errorResponse
// @Router       /api/token/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	token := h.presentedToken(c)

	start := time.Now()
	res, err := h.authService.Refresh(c.Request().Context(), token)
	metrics.AuthDuration.WithLabelValues("refresh").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RefreshTotal.WithLabelValues(refreshResult(err)).Inc()
		return err
	}

	metrics.RefreshTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	h.setRefreshCookie(c, res)
	return c.JSON(http.StatusOK, res)
}

// Invalidate revokes a refresh token and clears the cookie. It succeeds for
// unknown tokens.
//
// @Summary      Invalidate a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token (the refresh_token cookie is used when absent)"
// @Success      200   {object}  messageResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/token/invalidate [post]
func (h *AuthHandler) Invalidate(c echo.Context) error {
	token := h.presentedToken(c)

	if err := h.authService.Logout(c.Request().Context(), token); err != nil {
		return err
	}

	metrics.RefreshTokensInvalidatedTotal.Inc()
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "refresh token invalidated"})
}

// presentedToken reads the refresh token from the JSON body and falls back
// to the cookie. A missing or unreadable body is not an error.
func (h *AuthHandler) presentedToken(c echo.Context) string {
	var req refreshRequest
	if c.Request().ContentLength != 0 {
		_ = c.Bind(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, res *ports.AuthResult) {
	cookie := &http.Cookie{
		Name:     refreshCookieName,
		Value:    res.RefreshToken,
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	}
	if !res.RefreshTokenExpiresAt.IsZero() {
		cookie.Expires = res.RefreshTokenExpiresAt
	}
	c.SetCookie(cookie)
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func refreshResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrRefreshTokenNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrRefreshTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
