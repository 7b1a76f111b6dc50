package chat

import "github.com/gofiber/fiber/v2"

type Plugin struct {
	handler *Handler
}

func New(service *Service) *Plugin {
	return &Plugin{handler: NewHandler(service)}
}

func (p *Plugin) ID() string { return "chat" }

func (p *Plugin) RegisterRoutes(router fiber.Router) {
	router.Post("/chat/response", p.handler.Respond)
	router.Post("/chat/speak", p.handler.Speak)
}
