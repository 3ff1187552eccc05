package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/spark-support/internal/api/http/handlers"
	"github.com/spec-kit/spark-support/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Conversations  *handlers.ConversationsHandler
	Assistant      *handlers.AssistantHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/devices", cfg.Auth.EnrollDevice)
	authGroup.Get("/devices/me", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Auth.Me)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Patch("/tickets/:id", cfg.Tickets.UpdateTicket)
	api.Get("/tickets/:id/history", cfg.Tickets.History)

	api.Post("/conversations", cfg.Conversations.Create)
	api.Get("/conversations/:id", cfg.Conversations.Get)
	api.Put("/conversations/:id", cfg.Conversations.Reset)
	api.Delete("/conversations/:id", cfg.Conversations.Delete)
	api.Post("/conversations/:id/analyze", cfg.Conversations.Analyze)
	api.Post("/conversations/:id/replies", cfg.Conversations.Reply)
	api.Post("/conversations/:id/background", cfg.Conversations.Background)

	api.Post("/chat", cfg.Assistant.Chat)
	api.Post("/translate", cfg.Assistant.Translate)
	api.Post("/priority", cfg.Assistant.Priority)
	api.Post("/upgrade-path", cfg.Assistant.UpgradePath)
	api.Get("/demo-ticket", cfg.Assistant.DemoTicket)
}
