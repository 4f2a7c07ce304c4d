package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/eduplatform/identity-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain errors
// to status codes and machine-readable codes. Unexpected errors are logged
// and answered with a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorResponse{Error: ve.Message, Code: "validation_failed", Field: ve.Field}
	}
	var ce *domain.AccountConflictError
	if errors.As(err, &ce) {
		return http.StatusConflict, errorResponse{Error: ce.Error(), Code: "account_exists", Field: ce.Field}
	}

	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return http.StatusBadRequest, errorResponse{Error: "User credentials not found.", Code: "missing_credential", Field: "userCredential"}
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusBadRequest, errorResponse{Error: "User not found.", Code: "account_not_found", Field: "userCredential"}
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "account_exists", Field: domain.FieldEmail}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials", Code: "invalid_credentials"}
	case errors.Is(err, domain.ErrRefreshTokenNotFound):
		return http.StatusUnauthorized, errorResponse{Error: "refresh token not found", Code: "refresh_token_not_found"}
	case errors.Is(err, domain.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, errorResponse{Error: "refresh token expired", Code: "refresh_token_expired"}
	}

	// Echo's own errors (bind failures, 404 from router, auth middleware).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: statusCode(he.Code)}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal_error"}
}

// statusCode turns an HTTP status into a snake_case code, e.g. 404 -> "not_found".
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "http_error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
