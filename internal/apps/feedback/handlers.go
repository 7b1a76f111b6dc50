package feedback

import (
	"net/url"

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

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Invalid request body"})
}

// Submit accepts anonymous reports. A signed-in caller is always recorded as
// themselves; the body's userId is ignored for them.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if caller := middleware.CallerID(c); caller != "" {
		req.UserID = caller
	}

	fb, err := h.service.Submit(c.UserContext(), req)
	if err != nil {
		return apperr.Respond(c, err, "submit_feedback")
	}
	return c.JSON(fiber.Map{"success": true, "feedback": fb})
}

func (h *Handler) List(c *fiber.Ctx) error {
	list, err := h.service.List(c.UserContext())
	if err != nil {
		return apperr.Respond(c, err, "list_feedback")
	}
	return c.JSON(fiber.Map{"feedback": list})
}

func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Invalid("Invalid feedback id"), "update_feedback")
	}

	fb, err := h.service.SetStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return apperr.Respond(c, err, "update_feedback")
	}
	return c.JSON(fiber.Map{"success": true, "feedback": fb})
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Invalid("Invalid feedback id"), "delete_feedback")
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return apperr.Respond(c, err, "delete_feedback")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Feedback deleted"})
}
