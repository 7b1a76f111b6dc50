package feedback

import "github.com/gofiber/fiber/v2"

type Plugin struct {
	handler *Handler
}

func New(service *Service) *Plugin {
	return &Plugin{handler: NewHandler(service)}
}

func (p *Plugin) ID() string { return "feedback" }

// RegisterRoutes has nothing behind mandatory auth; submission is public.
func (p *Plugin) RegisterRoutes(fiber.Router) {}

func (p *Plugin) RegisterPublicRoutes(router fiber.Router, optionalAuth fiber.Handler) {
	router.Post("/feedback", optionalAuth, p.handler.Submit)
}

func (p *Plugin) RegisterAdminRoutes(router fiber.Router) {
	router.Get("/feedback", p.handler.List)
	router.Put("/feedback/:id", p.handler.UpdateStatus)
	router.Delete("/feedback/:id", p.handler.Delete)
}
