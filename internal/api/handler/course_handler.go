package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eduplatform/identity-api/internal/api/metrics"
	"github.com/eduplatform/identity-api/internal/core/domain"
	"github.com/eduplatform/identity-api/internal/core/ports"
)

// courseDateLayouts are accepted for startingYear and endingDate.
var courseDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01", "2006"}

type CourseHandler struct {
	service ports.CourseService
}

func NewCourseHandler(service ports.CourseService) *CourseHandler {
	return &CourseHandler{service: service}
}

type createCourseRequest struct {
	UniversityName   string   `json:"universityName"   validate:"max=255"`
	CourseName       string   `json:"courseName"       validate:"max=255"`
	StartingYear     string   `json:"startingYear"`
	EndingDate       string   `json:"endingDate"`
	Responsibilities []string `json:"responsibilities" validate:"max=50,dive,max=500"`
	UserCredential   string   `json:"userCredential"`
}

type courseResponse struct {
	ID               string   `json:"id"`
	UniversityName   string   `json:"universityName"`
	CourseName       string   `json:"courseName"`
	StartingYear     string   `json:"startingYear"`
	EndingDate       string   `json:"endingDate"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	UserID           string   `json:"userId"`
	CreatedAt        string   `json:"createdAt"`
}

// Create records a course for the account named by userCredential.
//
// @Summary      Create a course
// @Tags         courses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCourseRequest  true  "Course details"
// @Success      201   {object}  courseResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/courses [post]
func (h *CourseHandler) Create(c echo.Context) error {
	if _, err := ctxUsername(c); err != nil {
		return err
	}

	var req createCourseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.CoursesCreatedTotal.WithLabelValues("invalid").Inc()
		return err
	}

	course := &domain.Course{
		InstitutionName:  strings.TrimSpace(req.UniversityName),
		ProgramName:      strings.TrimSpace(req.CourseName),
		Responsibilities: req.Responsibilities,
	}
	var err error
	if course.StartDate, err = parseCourseDate("startingYear", req.StartingYear); err != nil {
		metrics.CoursesCreatedTotal.WithLabelValues("invalid").Inc()
		return err
	}
	if course.EndDate, err = parseCourseDate("endingDate", req.EndingDate); err != nil {
		metrics.CoursesCreatedTotal.WithLabelValues("invalid").Inc()
		return err
	}
	course.AttachOwnerCredential(req.UserCredential)

	created, err := h.service.Create(c.Request().Context(), course)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			metrics.CoursesCreatedTotal.WithLabelValues("invalid").Inc()
		case errors.Is(err, domain.ErrMissingCredential), errors.Is(err, domain.ErrAccountNotFound):
			metrics.CoursesCreatedTotal.WithLabelValues("unlinked").Inc()
		default:
			metrics.CoursesCreatedTotal.WithLabelValues(metrics.ResultError).Inc()
		}
		return err
	}

	metrics.CoursesCreatedTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return c.JSON(http.StatusCreated, toCourseResponse(created))
}

// parseCourseDate leaves a blank value as the zero time so the service can
// report it as missing.
func parseCourseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range courseDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.NewValidationError(field, "%s has an invalid date format", field)
}

func toCourseResponse(c *domain.Course) courseResponse {
	return courseResponse{
		ID:               c.ID,
		UniversityName:   c.InstitutionName,
		CourseName:       c.ProgramName,
		StartingYear:     c.StartDate.Format("2006-01-02"),
		EndingDate:       c.EndDate.Format("2006-01-02"),
		Responsibilities: c.Responsibilities,
		UserID:           c.OwnerID,
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
	}
}
