package ports

import (
	"context"

	"github.com/eduplatform/identity-api/internal/core/domain"
)

// CredentialLinker resolves a course's owner credential into an owner reference.
type CredentialLinker interface {
	Link(ctx context.Context, course *domain.Course) error
}

// CourseService defines use-case operations for courses.
type CourseService interface {
	Create(ctx context.Context, course *domain.Course) (*domain.Course, error)
}
