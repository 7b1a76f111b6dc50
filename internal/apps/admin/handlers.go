package admin

import (
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/confession"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service     *Service
	confessions *confession.Service
}

func NewHandler(service *Service, confessions *confession.Service) *Handler {
	return &Handler{service: service, confessions: confessions}
}

func (h *Handler) Users(c *fiber.Ctx) error {
	users, err := h.service.Users(c.UserContext())
	if err != nil {
		return apperr.Respond(c, err, "admin_list_users")
	}
	return c.JSON(fiber.Map{"users": users})
}

// Reconcile reports karma drift; ?fix=true repairs it.
func (h *Handler) Reconcile(c *fiber.Ctx) error {
	drifts, err := h.confessions.Reconcile(c.UserContext(), c.QueryBool("fix"))
	if err != nil {
		return apperr.Respond(c, err, "admin_reconcile_karma")
	}
	return c.JSON(fiber.Map{"drift": drifts, "count": len(drifts)})
}
