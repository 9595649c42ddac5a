package handlers

import (
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	service   *services.UserService
	validator *Validator
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(service *services.UserService, validator *Validator) *ProfileHandler {
	return &ProfileHandler{service: service, validator: validator}
}

// RegisterRoutes registers the profile routes behind auth.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	profileRoutes := router.Group("/profile", auth)
	profileRoutes.Get("/", h.HandleGetProfile)
	profileRoutes.Put("/", h.HandleUpdateProfile)
}

// UpdateProfileRequest holds the editable profile fields. Anything else in
// the body, email and password included, is ignored.
type UpdateProfileRequest struct {
	Name *string `json:"name" validate:"omitnil,min=2,max=50"`
	Bio  *string `json:"bio" validate:"omitnil,max=200"`
}

// HandleGetProfile returns the authenticated user.
func (h *ProfileHandler) HandleGetProfile(c *fiber.Ctx) error {
	user, err := h.service.GetProfile(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "", user)
}

// HandleUpdateProfile changes name and/or bio.
func (h *ProfileHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	trimPtr(req.Name)
	trimPtr(req.Bio)

	if errs := h.validator.Validate(req); errs != nil {
		return validationFailed(c, errs)
	}

	user, err := h.service.UpdateProfile(c.UserContext(), middleware.CurrentUser(c).ID, models.ProfileUpdate{
		Name: req.Name,
		Bio:  req.Bio,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Profile updated successfully", user)
}
