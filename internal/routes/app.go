package routes

import (
	"errors"
	"log/slog"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/admin"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/chat"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/confession"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/donation"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/feedback"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/profile"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/config"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/handlers"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/karma"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/llm"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/middleware"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// Deps holds the services the HTTP layer is assembled from.
type Deps struct {
	DB           *gorm.DB
	Store        *kv.Store
	Auth         *services.AuthService
	Subscription *services.SubscriptionService
	RemoteConfig *services.RemoteConfigService
	Profiles     *profile.Service
	Confessions  *confession.Service
	Chat         *chat.Service
	Feedback     *feedback.Service
	Donations    *donation.Service
	Admin        *admin.Service
}

// NewDeps wires every service on top of db. client may have no providers
// configured; scoring and chat then answer from their local fallbacks.
func NewDeps(cfg *config.Config, db *gorm.DB, client *llm.Client) *Deps {
	store := kv.New(db)
	remoteConfig := services.NewRemoteConfigService(store, cfg.FreeDailyConfessions, cfg.DefaultLanguage)
	profiles := profile.NewService(store, cfg.DefaultLanguage)
	confessions := confession.NewService(store, profiles, karma.NewAnalyzer(client, cfg.DefaultLanguage), remoteConfig)
	donations := donation.NewService(store, profiles)

	return &Deps{
		DB:           db,
		Store:        store,
		Auth:         services.NewAuthService(db, cfg),
		Subscription: services.NewSubscriptionService(db, profiles),
		RemoteConfig: remoteConfig,
		Profiles:     profiles,
		Confessions:  confessions,
		Chat:         chat.NewService(client, client, cfg.DefaultLanguage),
		Feedback:     feedback.NewService(store),
		Donations:    donations,
		Admin:        admin.NewService(db, profiles, confessions, donations),
	}
}

// Plugins returns the feature modules mounted under /api.
func (d *Deps) Plugins() []apps.Plugin {
	return []apps.Plugin{
		profile.New(d.Profiles),
		confession.New(d.Confessions),
		chat.New(d.Chat),
		feedback.New(d.Feedback),
		donation.New(d.Donations),
		admin.New(d.Admin, d.Confessions),
	}
}

// NewApp creates the fiber app with the global middleware stack.
func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: ErrorHandler,
	})

	if cfg.SentryDSN != "" {
		app.Use(sentryfiber.New(sentryfiber.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}

	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.AppEnv != "test" {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
		}))
	}
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})
	return app
}

// ErrorHandler answers with the standard error envelope and hides the
// details of server errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// Handlers builds the non-plugin handlers from d.
func (d *Deps) Handlers(cfg *config.Config) (*handlers.AuthHandler, *handlers.HealthHandler, *handlers.WebhookHandler, *handlers.LegalHandler, *handlers.RemoteConfigHandler) {
	return handlers.NewAuthHandler(d.Auth),
		handlers.NewHealthHandler(d.DB),
		handlers.NewWebhookHandler(d.Subscription, cfg.RevenueCatWebhookAuth),
		handlers.NewLegalHandler(cfg.AppName, cfg.SupportEmail),
		handlers.NewRemoteConfigHandler(d.RemoteConfig)
}
