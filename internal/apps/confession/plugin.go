package confession

import "github.com/gofiber/fiber/v2"

type Plugin struct {
	handler *Handler
}

func New(service *Service) *Plugin {
	return &Plugin{handler: NewHandler(service)}
}

func (p *Plugin) ID() string { return "confession" }

func (p *Plugin) RegisterRoutes(router fiber.Router) {
	h := p.handler

	// Static paths first so they never match :id.
	router.Get("/confessions/active", h.GetActive)
	router.Post("/confessions/active", h.SaveActive)
	router.Delete("/confessions/active", h.DeleteActive)
	router.Get("/confessions/check-limit", h.CheckLimit)
	router.Post("/confessions/analyze", h.Analyze)
	router.Post("/confessions/finalize", h.Finalize)
	router.Delete("/confessions/user/:userId", h.DeleteAll)

	router.Get("/confessions", h.List)
	router.Post("/confessions", h.Create)
	router.Put("/confessions/:id/complete", h.Complete)
	router.Delete("/confessions/:id", h.Delete)
	router.Get("/confession/:id", h.Get)
}
