package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taskboard/internal/models"

	"github.com/google/uuid"
)

// MemoryTaskRepository is an in-memory implementation of TaskRepository.
type MemoryTaskRepository struct {
	tasks map[string]models.Task
	mu    sync.RWMutex
}

// NewMemoryTaskRepository creates a new instance of MemoryTaskRepository.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]models.Task),
	}
}

// List returns the user's tasks matching filter.
func (r *MemoryTaskRepository) List(_ context.Context, userID string, filter models.TaskFilter) ([]models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Task{}
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if !matchesSearch(t, filter.Search) {
			continue
		}
		out = append(out, copyTask(t))
	}

	less := taskLess(filter.SortBy)
	sort.SliceStable(out, func(i, j int) bool {
		if filter.Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out, nil
}

func taskLess(sortBy string) func(a, b models.Task) bool {
	switch sortBy {
	case models.SortByTitle:
		return func(a, b models.Task) bool { return a.Title < b.Title }
	case models.SortByPriority:
		return func(a, b models.Task) bool { return a.Priority < b.Priority }
	case models.SortByDueDate:
		// nulls sort first ascending, matching the SQL and mongo stores
		return func(a, b models.Task) bool {
			if a.DueDate == nil || b.DueDate == nil {
				return a.DueDate == nil && b.DueDate != nil
			}
			return a.DueDate.Before(*b.DueDate)
		}
	default:
		return func(a, b models.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

// Stats counts the user's tasks.
func (r *MemoryTaskRepository) Stats(_ context.Context, userID string) (models.TaskStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats models.TaskStats
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		stats.Total++
		switch t.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusCompleted:
			stats.Completed++
		}
		if t.Priority == models.PriorityHigh {
			stats.HighPriority++
		}
	}
	return stats, nil
}

// GetByID returns a task owned by userID.
func (r *MemoryTaskRepository) GetByID(_ context.Context, userID, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return nil, ErrNotFound
	}
	task = copyTask(task)
	return &task, nil
}

// Create adds a new task.
func (r *MemoryTaskRepository) Create(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	stampCreated(&task.CreatedAt, &task.UpdatedAt)
	r.tasks[task.ID] = copyTask(*task)
	return nil
}

// Update replaces a task owned by task.UserID, keeping its creation time.
func (r *MemoryTaskRepository) Update(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return ErrNotFound
	}
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = time.Now()
	r.tasks[task.ID] = copyTask(*task)
	return nil
}

// Delete removes a task owned by userID.
func (r *MemoryTaskRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

// copyTask detaches the slice and pointer fields so callers cannot mutate
// stored state.
// matchesSearch reports whether search occurs in the title or description,
// ignoring Unicode case. An empty search matches everything.
func matchesSearch(t models.Task, search string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(t.Title), search) ||
		strings.Contains(strings.ToLower(t.Description), search)
}

func copyTask(t models.Task) models.Task {
	if t.Tags != nil {
		t.Tags = append(models.Tags{}, t.Tags...)
	}
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}

// stampCreated fills zero creation timestamps the way GORM's autoCreateTime does.
func stampCreated(createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}
