package chat

import (
	"encoding/base64"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type ResponseRequest struct {
	UserMessage string           `json:"userMessage"`
	Messages    []models.Message `json:"messages"`
	Language    string           `json:"language"`
}

type SpeakRequest struct {
	Text string `json:"text"`
}

func (h *Handler) Respond(c *fiber.Ctx) error {
	var req ResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Invalid request body"})
	}

	reply, err := h.service.Respond(c.UserContext(), req.UserMessage, req.Messages, req.Language)
	if err != nil {
		return apperr.Respond(c, err, "chat_response")
	}
	return c.JSON(reply)
}

func (h *Handler) Speak(c *fiber.Ctx) error {
	var req SpeakRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Invalid request body"})
	}

	audio, err := h.service.Speak(c.UserContext(), req.Text)
	if err != nil {
		return apperr.Respond(c, err, "chat_speak")
	}
	return c.JSON(fiber.Map{"audio": base64.StdEncoding.EncodeToString(audio)})
}
