package apps

import "github.com/gofiber/fiber/v2"

// Plugin is a feature module mounted under /api.
type Plugin interface {
	// ID returns the unique module identifier used in logs.
	ID() string

	// RegisterRoutes mounts the module's routes on the given group. The
	// group is already prefixed with /api and has JWT middleware applied.
	RegisterRoutes(router fiber.Router)
}

// PublicPlugin is implemented by modules with routes that also accept
// anonymous callers. optionalAuth identifies the caller when a token is sent
// and must be attached to each such route.
type PublicPlugin interface {
	Plugin

	RegisterPublicRoutes(router fiber.Router, optionalAuth fiber.Handler)
}

// AdminPlugin extends Plugin with admin-only route registration.
type AdminPlugin interface {
	Plugin

	// RegisterAdminRoutes mounts admin-only routes on the given group.
	// The group has both JWT and Admin middleware applied.
	RegisterAdminRoutes(router fiber.Router)
}
