package handlers

import (
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/dto"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/services"
	"github.com/gofiber/fiber/v2"
)

type RemoteConfigHandler struct {
	service *services.RemoteConfigService
}

func NewRemoteConfigHandler(service *services.RemoteConfigService) *RemoteConfigHandler {
	return &RemoteConfigHandler{service: service}
}

// GetConfig returns every client-visible key with its typed value (public).
func (h *RemoteConfigHandler) GetConfig(c *fiber.Ctx) error {
	result, err := h.service.All(c.UserContext())
	if err != nil {
		return apperr.Respond(c, err, "get_config")
	}
	return c.JSON(result)
}

// SetConfigKey sets or updates a config key (admin only).
func (h *RemoteConfigHandler) SetConfigKey(c *fiber.Ctx) error {
	var payload struct {
		Value string `json:"value"`
		Type  string `json:"type"` // string, bool, int, json
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Invalid request body",
		})
	}

	entry, err := h.service.Set(c.UserContext(), c.Params("key"), payload.Value, payload.Type)
	if err != nil {
		return apperr.Respond(c, err, "set_config")
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Config updated successfully",
		"config":  entry,
	})
}

// DeleteConfigKey deletes a config key (admin only).
func (h *RemoteConfigHandler) DeleteConfigKey(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("key")); err != nil {
		return apperr.Respond(c, err, "delete_config")
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Config deleted successfully",
	})
}
