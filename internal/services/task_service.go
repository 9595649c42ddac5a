package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/internal/metrics"
	"taskboard/internal/models"
	"taskboard/internal/repositories"
	"taskboard/pkg/rabbitmq"

	log "github.com/sirupsen/logrus"
)

// TaskEventPublisher receives task lifecycle events. *rabbitmq.Client implements it.
type TaskEventPublisher interface {
	PublishTaskEvent(ev rabbitmq.TaskEvent) error
}

// TaskService handles business logic related to tasks. Every method is
// scoped to the calling user.
type TaskService struct {
	repo   repositories.TaskRepository
	events TaskEventPublisher
}

// NewTaskService creates a new TaskService. events may be nil, in which case
// no events are published.
func NewTaskService(repo repositories.TaskRepository, events TaskEventPublisher) *TaskService {
	return &TaskService{
		repo:   repo,
		events: events,
	}
}

// dueDateLayouts are tried in order when parsing a due date.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDueDate parses a due date. An empty string yields nil.
func ParseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, ErrInvalidDueDate
}

// ListTasks returns the user's tasks matching filter.
func (s *TaskService) ListTasks(ctx context.Context, userID string, filter models.TaskFilter) (tasks []models.Task, err error) {
	defer func() { metrics.ObserveTask("list", err) }()

	if filter.SortBy == "" {
		filter.SortBy = models.SortByCreatedAt
	}
	return s.repo.List(ctx, userID, filter)
}

// GetStats returns aggregate counts for the user's tasks.
func (s *TaskService) GetStats(ctx context.Context, userID string) (stats models.TaskStats, err error) {
	defer func() { metrics.ObserveTask("stats", err) }()
	return s.repo.Stats(ctx, userID)
}

// GetTask retrieves a single task owned by userID.
func (s *TaskService) GetTask(ctx context.Context, userID, id string) (task *models.Task, err error) {
	defer func() { metrics.ObserveTask("get", err) }()

	task, err = s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, translateTaskErr(err)
	}
	return task, nil
}

// CreateTask stores a new task for task.UserID, filling defaults.
func (s *TaskService) CreateTask(ctx context.Context, task *models.Task) (err error) {
	defer func() { metrics.ObserveTask("create", err) }()

	task.ID = ""
	task.ApplyDefaults()
	if err := s.repo.Create(ctx, task); err != nil {
		return err
	}
	s.publish(rabbitmq.EventTaskCreated, task)
	return nil
}

// UpdateTask applies a partial update to a task owned by userID.
func (s *TaskService) UpdateTask(ctx context.Context, userID, id string, update models.TaskUpdate) (task *models.Task, err error) {
	defer func() { metrics.ObserveTask("update", err) }()

	task, err = s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, translateTaskErr(err)
	}
	update.Apply(task)
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, translateTaskErr(err)
	}
	s.publish(rabbitmq.EventTaskUpdated, task)
	return task, nil
}

// DeleteTask hard-deletes a task owned by userID.
func (s *TaskService) DeleteTask(ctx context.Context, userID, id string) (err error) {
	defer func() { metrics.ObserveTask("delete", err) }()

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return translateTaskErr(err)
	}
	s.publish(rabbitmq.EventTaskDeleted, &models.Task{ID: id, UserID: userID})
	return nil
}

// publish is best effort: a broker failure is logged and never fails the request.
func (s *TaskService) publish(event string, task *models.Task) {
	if s.events == nil {
		return
	}
	ev := rabbitmq.TaskEvent{
		Event:      event,
		TaskID:     task.ID,
		UserID:     task.UserID,
		Status:     string(task.Status),
		Priority:   string(task.Priority),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.PublishTaskEvent(ev); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event":   event,
			"task_id": task.ID,
		}).Warn("failed to publish task event")
	}
}

func translateTaskErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrTaskNotFound
	}
	return fmt.Errorf("task store: %w", err)
}
