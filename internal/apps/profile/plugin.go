package profile

import "github.com/gofiber/fiber/v2"

type Plugin struct {
	handler *Handler
}

func New(service *Service) *Plugin {
	return &Plugin{handler: NewHandler(service)}
}

func (p *Plugin) ID() string { return "profile" }

func (p *Plugin) RegisterRoutes(router fiber.Router) {
	router.Get("/profile/:userId", p.handler.Get)
	router.Put("/profile/:userId", p.handler.Update)
}
