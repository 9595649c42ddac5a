package handlers

import (
	"errors"
	"strings"

	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// TaskHandler handles HTTP requests for the caller's tasks.
type TaskHandler struct {
	service   *services.TaskService
	validator *Validator
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service *services.TaskService, validator *Validator) *TaskHandler {
	return &TaskHandler{
		service:   service,
		validator: validator,
	}
}

// RegisterRoutes registers the task routes behind auth. The stats route must
// come before /:id.
func (h *TaskHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	taskRoutes := router.Group("/tasks", auth)
	taskRoutes.Get("/stats/summary", h.HandleGetStats)
	taskRoutes.Get("/", h.HandleListTasks)
	taskRoutes.Post("/", h.HandleCreateTask)
	taskRoutes.Get("/:id", h.HandleGetTask)
	taskRoutes.Put("/:id", h.HandleUpdateTask)
	taskRoutes.Delete("/:id", h.HandleDeleteTask)
}

// ListTasksQuery holds the listing query string.
type ListTasksQuery struct {
	Status   string `query:"status" json:"status" validate:"omitempty,taskstatus"`
	Priority string `query:"priority" json:"priority" validate:"omitempty,taskpriority"`
	Search   string `query:"search" json:"search"`
	SortBy   string `query:"sortBy" json:"sortBy" validate:"omitempty,oneof=createdAt dueDate priority title"`
	Order    string `query:"order" json:"order" validate:"omitempty,oneof=asc desc"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Title       string         `json:"title" validate:"required,max=100"`
	Description string         `json:"description" validate:"max=500"`
	Status      string         `json:"status" validate:"omitempty,taskstatus"`
	Priority    string         `json:"priority" validate:"omitempty,taskpriority"`
	DueDate     OptionalString `json:"dueDate"`
	Tags        []string       `json:"tags" validate:"maxtags"`
}

// UpdateTaskRequest is the body of PUT /tasks/:id. Absent fields are left
// unchanged; a null or empty dueDate clears it.
type UpdateTaskRequest struct {
	Title       *string        `json:"title" validate:"omitnil,min=1,max=100"`
	Description *string        `json:"description" validate:"omitnil,max=500"`
	Status      *string        `json:"status" validate:"omitnil,taskstatus"`
	Priority    *string        `json:"priority" validate:"omitnil,taskpriority"`
	DueDate     OptionalString `json:"dueDate"`
	Tags        *[]string      `json:"tags" validate:"omitnil,maxtags"`
}

// HandleListTasks returns the caller's tasks, filtered and sorted.
func (h *TaskHandler) HandleListTasks(c *fiber.Ctx) error {
	var q ListTasksQuery
	if err := c.QueryParser(&q); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid query parameters")
	}
	q.Search = strings.TrimSpace(q.Search)

	if errs := h.validator.Validate(q); errs != nil {
		return validationFailed(c, errs)
	}

	tasks, err := h.service.ListTasks(c.UserContext(), middleware.CurrentUser(c).ID, models.TaskFilter{
		Status:   models.TaskStatus(q.Status),
		Priority: models.TaskPriority(q.Priority),
		Search:   q.Search,
		SortBy:   q.SortBy,
		Desc:     q.Order != "asc",
	})
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	count := len(tasks)
	return c.JSON(Response{Success: true, Count: &count, Data: tasks})
}

// HandleGetStats returns aggregate counts for the caller's tasks.
func (h *TaskHandler) HandleGetStats(c *fiber.Ctx) error {
	stats, err := h.service.GetStats(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", stats)
}

// HandleGetTask returns one task owned by the caller.
func (h *TaskHandler) HandleGetTask(c *fiber.Ctx) error {
	task, err := h.service.GetTask(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", task)
}

// HandleCreateTask creates a task for the caller.
func (h *TaskHandler) HandleCreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	errs := h.validator.Validate(req)
	task := models.Task{
		UserID:      middleware.CurrentUser(c).ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatus(req.Status),
		Priority:    models.TaskPriority(req.Priority),
	}
	if req.Tags != nil {
		task.Tags = models.Tags(req.Tags)
	}
	if req.DueDate.Set && !req.DueDate.Empty() {
		due, err := services.ParseDueDate(req.DueDate.Value)
		if err != nil {
			errs = append(errs, dueDateError())
		}
		task.DueDate = due
	}
	if errs != nil {
		return validationFailed(c, errs)
	}

	if err := h.service.CreateTask(c.UserContext(), &task); err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Task created successfully", task)
}

// HandleUpdateTask applies a partial update to a task owned by the caller.
func (h *TaskHandler) HandleUpdateTask(c *fiber.Ctx) error {
	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	trimPtr(req.Title)
	trimPtr(req.Description)

	errs := h.validator.Validate(req)
	update := models.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		update.Status = &status
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		update.Priority = &priority
	}
	if req.Tags != nil {
		tags := models.Tags(*req.Tags)
		if tags == nil {
			tags = models.Tags{}
		}
		update.Tags = &tags
	}
	if req.DueDate.Set {
		update.DueDateSet = true
		if !req.DueDate.Empty() {
			due, err := services.ParseDueDate(req.DueDate.Value)
			if err != nil {
				errs = append(errs, dueDateError())
			}
			update.DueDate = due
		}
	}
	if errs != nil {
		return validationFailed(c, errs)
	}

	task, err := h.service.UpdateTask(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"), update)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Task updated successfully", task)
}

// HandleDeleteTask removes a task owned by the caller.
func (h *TaskHandler) HandleDeleteTask(c *fiber.Ctx) error {
	err := h.service.DeleteTask(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			return fail(c, fiber.StatusNotFound, "Task not found")
		}
		return err
	}
	return ok(c, fiber.StatusOK, "Task deleted successfully", nil)
}

func dueDateError() FieldError {
	return FieldError{Field: "dueDate", Message: "Invalid date format"}
}
