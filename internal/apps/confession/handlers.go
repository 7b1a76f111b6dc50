package confession

import (
	"net/url"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/middleware"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// --- Request DTOs ---

type DraftRequest struct {
	UserID   string           `json:"userId"`
	Messages []models.Message `json:"messages"`
}

type CreateRequest struct {
	UserID      string           `json:"userId"`
	Messages    []models.Message `json:"messages"`
	KarmaChange int              `json:"karmaChange"`
	Summary     string           `json:"summary"`
}

type CompleteRequest struct {
	KarmaChange int `json:"karmaChange"`
}

type AnalyzeRequest struct {
	Messages []models.Message `json:"messages"`
}

type FinalizeRequest struct {
	UserID   string           `json:"userId"`
	Messages []models.Message `json:"messages"`
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Invalid request body"})
}

// --- Drafts ---

func (h *Handler) GetActive(c *fiber.Ctx) error {
	userID, err := middleware.TargetUser(c, c.Query("userId"))
	if err != nil {
		return apperr.Respond(c, err, "get_active_confession")
	}

	draft, err := h.service.GetDraft(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err, "get_active_confession")
	}
	return c.JSON(fiber.Map{"confession": draft})
}

func (h *Handler) SaveActive(c *fiber.Ctx) error {
	var req DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	userID, err := middleware.TargetUser(c, req.UserID)
	if err != nil {
		return apperr.Respond(c, err, "save_active_confession")
	}

	if _, err := h.service.SaveDraft(c.UserContext(), userID, req.Messages); err != nil {
		return apperr.Respond(c, err, "save_active_confession")
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) DeleteActive(c *fiber.Ctx) error {
	userID, err := middleware.TargetUser(c, c.Query("userId"))
	if err != nil {
		return apperr.Respond(c, err, "delete_active_confession")
	}

	if _, err := h.service.DeleteDraft(c.UserContext(), userID); err != nil {
		return apperr.Respond(c, err, "delete_active_confession")
	}
	return c.JSON(fiber.Map{"success": true})
}

// --- Records ---

func (h *Handler) List(c *fiber.Ctx) error {
	userID, err := middleware.TargetUser(c, c.Query("userId"))
	if err != nil {
		return apperr.Respond(c, err, "list_confessions")
	}

	list, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err, "list_confessions")
	}
	return c.JSON(list)
}

func (h *Handler) CheckLimit(c *fiber.Ctx) error {
	userID, err := middleware.TargetUser(c, c.Query("userId"))
	if err != nil {
		return apperr.Respond(c, err, "check_limit")
	}

	limit, err := h.service.CheckLimit(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err, "check_limit")
	}
	return c.JSON(limit)
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	userID, err := middleware.TargetUser(c, req.UserID)
	if err != nil {
		return apperr.Respond(c, err, "create_confession")
	}

	conf, err := h.service.Create(c.UserContext(), userID, req.Messages, req.KarmaChange, req.Summary)
	if err != nil {
		return apperr.Respond(c, err, "create_confession")
	}
	return c.Status(fiber.StatusCreated).JSON(conf)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := h.ownedID(c)
	if err != nil {
		return apperr.Respond(c, err, "get_confession")
	}

	conf, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return apperr.Respond(c, err, "get_confession")
	}
	return c.JSON(conf)
}

func (h *Handler) Complete(c *fiber.Ctx) error {
	id, err := h.ownedID(c)
	if err != nil {
		return apperr.Respond(c, err, "complete_confession")
	}

	var req CompleteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}

	res, err := h.service.Complete(c.UserContext(), id, req.KarmaChange)
	if err != nil {
		return apperr.Respond(c, err, "complete_confession")
	}
	return c.JSON(res)
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := h.ownedID(c)
	if err != nil {
		return apperr.Respond(c, err, "delete_confession")
	}

	res, err := h.service.Delete(c.UserContext(), id)
	if err != nil {
		return apperr.Respond(c, err, "delete_confession")
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Confession deleted",
		"newKarma": res.NewKarma,
	})
}

func (h *Handler) DeleteAll(c *fiber.Ctx) error {
	userID, err := middleware.TargetUser(c, c.Params("userId"))
	if err != nil {
		return apperr.Respond(c, err, "delete_all_confessions")
	}

	res, err := h.service.DeleteAll(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err, "delete_all_confessions")
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "All confessions deleted",
		"deletedCount": res.DeletedCount,
		"newKarma":     res.NewKarma,
	})
}

func (h *Handler) Analyze(c *fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	res, err := h.service.Analyze(c.UserContext(), req.Messages)
	if err != nil {
		return apperr.Respond(c, err, "analyze_confession")
	}
	return c.JSON(res)
}

func (h *Handler) Finalize(c *fiber.Ctx) error {
	var req FinalizeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}
	userID, err := middleware.TargetUser(c, req.UserID)
	if err != nil {
		return apperr.Respond(c, err, "finalize_confession")
	}

	res, err := h.service.Finalize(c.UserContext(), userID, req.Messages)
	if err != nil {
		return apperr.Respond(c, err, "finalize_confession")
	}
	return c.JSON(res)
}

// ownedID reads the :id param and checks the caller may act on it. Ids that
// do not name a confession are NotFound before any ownership check.
func (h *Handler) ownedID(c *fiber.Ctx) (string, error) {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil {
		return "", notFound(c.Params("id"))
	}
	owner, ok := ownerOf(id)
	if !ok {
		return "", notFound(id)
	}
	if err := middleware.Authorize(c, owner); err != nil {
		return "", err
	}
	return id, nil
}
