package handlers

import (
	"errors"

	"taskboard/internal/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Count   *int         `json:"count,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func ok(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(Response{Success: true, Message: message, Data: data})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Response{Success: false, Message: message})
}

func validationFailed(c *fiber.Ctx, errs []FieldError) error {
	return c.Status(fiber.StatusBadRequest).JSON(Response{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}

func invalidBody(c *fiber.Ctx, err error) error {
	log.WithError(err).Debug("unparseable request body")
	return fail(c, fiber.StatusBadRequest, "Invalid request body")
}

// ErrorHandler turns errors returned by handlers and middleware into the
// response envelope. Internal details are logged, never sent to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		if fe.Code == fiber.StatusNotFound {
			return fail(c, fe.Code, "Route not found: "+c.Path())
		}
		if fe.Code < fiber.StatusInternalServerError {
			return fail(c, fe.Code, fe.Message)
		}
	case errors.Is(err, services.ErrTaskNotFound):
		return fail(c, fiber.StatusNotFound, "Task not found")
	case errors.Is(err, services.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	log.WithError(err).WithFields(log.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error("request failed")
	return fail(c, fiber.StatusInternalServerError, "Server error")
}
