package donation

import "github.com/gofiber/fiber/v2"

type Plugin struct {
	handler *Handler
}

func New(service *Service) *Plugin {
	return &Plugin{handler: NewHandler(service)}
}

func (p *Plugin) ID() string { return "donation" }

func (p *Plugin) RegisterRoutes(router fiber.Router) {
	router.Get("/donations", p.handler.List)
	router.Post("/donations", p.handler.Create)
}
