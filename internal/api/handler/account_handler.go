package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eduplatform/identity-api/internal/api/metrics"
	"github.com/eduplatform/identity-api/internal/core/domain"
	"github.com/eduplatform/identity-api/internal/core/ports"
)

type AccountHandler struct {
	registrar ports.AccountRegistrar
}

func NewAccountHandler(registrar ports.AccountRegistrar) *AccountHandler {
	return &AccountHandler{registrar: registrar}
}

type registerRequest struct {
	Email       string `json:"email"       validate:"omitempty,email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	FirstName   string `json:"firstName"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=25"`
	Birthdate   string `json:"birthdate"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register creates a new account.
//
// @Summary      Register an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /user [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	err := h.registrar.Register(c.Request().Context(), &ports.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		FirstName:   req.FirstName,
		PhoneNumber: req.PhoneNumber,
		Birthdate:   req.Birthdate,
	})
	req.Password = ""
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		case errors.Is(err, domain.ErrAccountExists):
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
		default:
			metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		}
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return c.JSON(http.StatusCreated, messageResponse{Message: "account created"})
}
