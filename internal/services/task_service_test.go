package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskboard/internal/models"
	"taskboard/internal/repositories"
	"taskboard/internal/services"
	"taskboard/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTaskService_CreateTaskDefaults(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	publisher := new(MockPublisher)
	service := services.NewTaskService(mockRepo, publisher)
	ctx := context.Background()

	task := &models.Task{UserID: "user-1", Title: "Buy milk"}
	mockRepo.On("Create", ctx, task).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Task).ID = "task-1"
	}).Return(nil).Once()
	publisher.On("PublishTaskEvent", mock.MatchedBy(func(ev rabbitmq.TaskEvent) bool {
		return ev.Event == rabbitmq.EventTaskCreated && ev.TaskID == "task-1" && ev.UserID == "user-1"
	})).Return(nil).Once()

	err := service.CreateTask(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, models.Tags{}, task.Tags)
	assert.Nil(t, task.DueDate)
	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestTaskService_PublishFailureDoesNotFailRequest(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	publisher := new(MockPublisher)
	service := services.NewTaskService(mockRepo, publisher)
	ctx := context.Background()

	mockRepo.On("Delete", ctx, "user-1", "task-1").Return(nil).Once()
	publisher.On("PublishTaskEvent", mock.AnythingOfType("rabbitmq.TaskEvent")).Return(errors.New("broker down")).Once()

	assert.NoError(t, service.DeleteTask(ctx, "user-1", "task-1"))
	publisher.AssertExpectations(t)
}

func TestTaskService_UpdateTaskIsPartial(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	service := services.NewTaskService(mockRepo, nil)
	ctx := context.Background()

	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	existing := &models.Task{
		ID: "task-1", UserID: "user-1", Title: "Buy milk", Description: "semi-skimmed",
		Status: models.StatusPending, Priority: models.PriorityLow, DueDate: &due, Tags: models.Tags{"shop"},
	}
	mockRepo.On("GetByID", ctx, "user-1", "task-1").Return(existing, nil).Once()
	mockRepo.On("Update", ctx, existing).Return(nil).Once()

	completed := models.StatusCompleted
	updated, err := service.UpdateTask(ctx, "user-1", "task-1", models.TaskUpdate{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, "Buy milk", updated.Title)
	assert.Equal(t, "semi-skimmed", updated.Description)
	assert.Equal(t, models.PriorityLow, updated.Priority)
	assert.Equal(t, &due, updated.DueDate)
	assert.Equal(t, models.Tags{"shop"}, updated.Tags)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_NotFoundTranslation(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	service := services.NewTaskService(mockRepo, nil)
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, "user-2", "task-1").Return(nil, repositories.ErrNotFound).Twice()
	mockRepo.On("Delete", ctx, "user-2", "task-1").Return(repositories.ErrNotFound).Once()

	_, err := service.GetTask(ctx, "user-2", "task-1")
	assert.ErrorIs(t, err, services.ErrTaskNotFound)

	title := "mine now"
	_, err = service.UpdateTask(ctx, "user-2", "task-1", models.TaskUpdate{Title: &title})
	assert.ErrorIs(t, err, services.ErrTaskNotFound)

	assert.ErrorIs(t, service.DeleteTask(ctx, "user-2", "task-1"), services.ErrTaskNotFound)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)

	// other store errors are not disguised as not found
	mockRepo.On("GetByID", ctx, "user-2", "task-9").Return(nil, errors.New("timeout")).Once()
	_, err = service.GetTask(ctx, "user-2", "task-9")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrTaskNotFound)
}

func TestTaskService_ListDefaultsSort(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	service := services.NewTaskService(mockRepo, nil)
	ctx := context.Background()

	want := models.TaskFilter{Status: models.StatusCompleted, SortBy: models.SortByCreatedAt, Desc: true}
	mockRepo.On("List", ctx, "user-1", want).Return([]models.Task{{ID: "a"}}, nil).Once()

	tasks, err := service.ListTasks(ctx, "user-1", models.TaskFilter{Status: models.StatusCompleted, Desc: true})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_GetStats(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	service := services.NewTaskService(mockRepo, nil)
	ctx := context.Background()

	mockRepo.On("Stats", ctx, "user-1").Return(models.TaskStats{}, nil).Once()
	stats, err := service.GetStats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStats{}, stats)
}

func TestParseDueDate(t *testing.T) {
	cases := map[string]time.Time{
		"2026-03-14":                time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		"2026-03-14T09:30:00Z":      time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		"2026-03-14T09:30:00+02:00": time.Date(2026, 3, 14, 7, 30, 0, 0, time.UTC),
		"2026-03-14T09:30":          time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := services.ParseDueDate(in)
		require.NoError(t, err, in)
		require.NotNil(t, got, in)
		assert.True(t, want.Equal(*got), in)
	}

	got, err := services.ParseDueDate("  ")
	assert.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"tomorrow", "2026-13-01", "14/03/2026"} {
		_, err := services.ParseDueDate(bad)
		assert.ErrorIs(t, err, services.ErrInvalidDueDate, bad)
	}
}
