package ports

import (
	"context"

	"github.com/eduplatform/identity-api/internal/core/domain"
)

// CourseRepository persists courses. Courses reaching Create always carry a
// resolved OwnerID.
type CourseRepository interface {
	Create(ctx context.Context, course *domain.Course) error
}
