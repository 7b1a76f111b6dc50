package admin

import (
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/confession"
	"github.com/gofiber/fiber/v2"
)

type Plugin struct {
	handler *Handler
}

func New(service *Service, confessions *confession.Service) *Plugin {
	return &Plugin{handler: NewHandler(service, confessions)}
}

func (p *Plugin) ID() string { return "admin" }

func (p *Plugin) RegisterRoutes(fiber.Router) {}

func (p *Plugin) RegisterAdminRoutes(router fiber.Router) {
	router.Get("/users", p.handler.Users)
	router.Post("/karma/reconcile", p.handler.Reconcile)
}
