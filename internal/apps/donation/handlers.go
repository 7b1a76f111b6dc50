package donation

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

func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Invalid request body"})
	}
	userID, err := middleware.TargetUser(c, req.UserID)
	if err != nil {
		return apperr.Respond(c, err, "create_donation")
	}

	res, err := h.service.Record(c.UserContext(), userID, req.Amount)
	if err != nil {
		return apperr.Respond(c, err, "create_donation")
	}
	return c.JSON(fiber.Map{"success": true, "donation": res.Donation, "totalDonations": res.TotalDonations})
}

func (h *Handler) List(c *fiber.Ctx) error {
	userID, err := middleware.TargetUser(c, c.Query("userId"))
	if err != nil {
		return apperr.Respond(c, err, "list_donations")
	}

	list, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err, "list_donations")
	}
	return c.JSON(fiber.Map{"donations": list})
}
