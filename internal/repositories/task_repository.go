package repositories

import (
	"context"

	"taskboard/internal/models"
)

// TaskRepository defines the interface for task data access. Every method
// is scoped to the owning user; a task owned by someone else behaves exactly
// like a missing one.
type TaskRepository interface {
	List(ctx context.Context, userID string, filter models.TaskFilter) ([]models.Task, error)
	Stats(ctx context.Context, userID string) (models.TaskStats, error)
	GetByID(ctx context.Context, userID, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, userID, id string) error
}
