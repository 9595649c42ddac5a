package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMTaskRepository is a GORM implementation of TaskRepository.
type GORMTaskRepository struct {
	db *gorm.DB
}

// NewGORMTaskRepository creates a new instance of GORMTaskRepository.
func NewGORMTaskRepository(db *gorm.DB) *GORMTaskRepository {
	return &GORMTaskRepository{
		db: db,
	}
}

var sortColumns = map[string]string{
	models.SortByCreatedAt: "created_at",
	models.SortByDueDate:   "due_date",
	models.SortByPriority:  "priority",
	models.SortByTitle:     "title",
}

// List returns the user's tasks matching filter.
func (r *GORMTaskRepository) List(ctx context.Context, userID string, filter models.TaskFilter) ([]models.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	// SQLite's LOWER and LIKE only fold ASCII, so search is applied after the query there.
	foldInGo := r.db.Dialector.Name() == "sqlite"
	if filter.Search != "" && !foldInGo {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: filter.Desc})

	tasks := []models.Task{}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if foldInGo && filter.Search != "" {
		matched := tasks[:0]
		for _, t := range tasks {
			if matchesSearch(t, filter.Search) {
				matched = append(matched, t)
			}
		}
		tasks = matched
	}
	return tasks, nil
}

// Stats counts the user's tasks by status and high priority in one query.
func (r *GORMTaskRepository) Stats(ctx context.Context, userID string) (models.TaskStats, error) {
	var stats models.TaskStats
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS in_progress,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN priority = ? THEN 1 ELSE 0 END), 0) AS high_priority`,
			models.StatusPending, models.StatusInProgress, models.StatusCompleted, models.PriorityHigh).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return models.TaskStats{}, fmt.Errorf("failed to aggregate task stats: %w", err)
	}
	return stats, nil
}

// GetByID retrieves a single task owned by userID.
func (r *GORMTaskRepository) GetByID(ctx context.Context, userID, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return &task, nil
}

// Create creates a new task in the database.
func (r *GORMTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Update writes every mutable column of task. The owner column is part of
// the match, never of the assignment.
func (r *GORMTaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND user_id = ?", task.ID, task.UserID).
		Updates(map[string]interface{}{
			"title":       task.Title,
			"description": task.Description,
			"status":      task.Status,
			"priority":    task.Priority,
			"due_date":    task.DueDate,
			"tags":        task.Tags,
			"updated_at":  task.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes a task owned by userID.
func (r *GORMTaskRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
