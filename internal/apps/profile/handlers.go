package profile

import (
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get answers 404 with the default profile body for users that never
// saved one.
func (h *Handler) Get(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if err := middleware.Authorize(c, userID); err != nil {
		return apperr.Respond(c, err, "get_profile")
	}

	p, found, err := h.service.Get(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err, "get_profile")
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(p)
	}
	return c.JSON(p)
}

func (h *Handler) Update(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if err := middleware.Authorize(c, userID); err != nil {
		return apperr.Respond(c, err, "update_profile")
	}

	var req Update
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Invalid request body"})
	}

	p, err := h.service.Update(c.UserContext(), userID, req, middleware.IsAdmin(c))
	if err != nil {
		return apperr.Respond(c, err, "update_profile")
	}
	return c.JSON(p)
}
