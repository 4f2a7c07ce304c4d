package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eduplatform/identity-api/internal/core/domain"
	"github.com/eduplatform/identity-api/internal/core/ports"
)

// CredentialLinker implements ports.CredentialLinker on top of the account store.
type CredentialLinker struct {
	accounts ports.AccountRepository
}

func NewCredentialLinker(accounts ports.AccountRepository) *CredentialLinker {
	return &CredentialLinker{accounts: accounts}
}

// Link resolves the course's owner credential to an account, binds OwnerID
// and erases the credential. On failure the course is left unbound.
func (l *CredentialLinker) Link(ctx context.Context, course *domain.Course) error {
	email := domain.NormalizeEmail(course.OwnerCredential())
	if email == "" {
		return domain.ErrMissingCredential
	}

	owner, err := l.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("link owner: %w", err)
	}

	course.OwnerID = owner.ID
	course.EraseOwnerCredential()
	return nil
}

// CourseService creates courses whose owner is proven by a credential.
type CourseService struct {
	repo   ports.CourseRepository
	linker ports.CredentialLinker
	logger zerolog.Logger
	now    func() time.Time
}

func NewCourseService(repo ports.CourseRepository, linker ports.CredentialLinker, logger zerolog.Logger) *CourseService {
	return &CourseService{repo: repo, linker: linker, logger: logger, now: time.Now}
}

// Create validates the course, links it to its owner and persists it.
// Nothing is written when validation or linking fails.
func (s *CourseService) Create(ctx context.Context, course *domain.Course) (*domain.Course, error) {
	if err := validateCourse(course); err != nil {
		return nil, err
	}
	if err := s.linker.Link(ctx, course); err != nil {
		return nil, err
	}

	course.ID = uuid.NewString()
	course.CreatedAt = s.now().UTC()

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}

	s.logger.Info().Str("course_id", course.ID).Str("owner_id", course.OwnerID).Msg("course created")
	return course, nil
}

func validateCourse(c *domain.Course) error {
	switch {
	case strings.TrimSpace(c.InstitutionName) == "":
		return domain.NewValidationError("universityName", "universityName must not be empty")
	case strings.TrimSpace(c.ProgramName) == "":
		return domain.NewValidationError("courseName", "courseName must not be empty")
	case c.StartDate.IsZero():
		return domain.NewValidationError("startingYear", "startingYear must not be empty")
	case c.EndDate.IsZero():
		return domain.NewValidationError("endingDate", "endingDate must not be empty")
	case c.EndDate.Before(c.StartDate):
		return domain.NewValidationError("endingDate", "endingDate must not be before startingYear")
	}
	return nil
}
