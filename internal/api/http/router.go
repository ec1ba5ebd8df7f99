package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Announcements  *handlers.AnnouncementsHandler
	Directory      *handlers.DirectoryHandler
	Payments       *handlers.PaymentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role middleware is a fast reject at
// the edge; the services run their own capability checks regardless.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.Assign)
	tickets.Post("/:id/status", auth.RequireRole(domain.RoleSupervisor, domain.RoleAdmin), cfg.Tickets.UpdateStatus)

	announcements := api.Group("/announcements")
	announcements.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Announcements.Post)
	announcements.Get("", cfg.Announcements.List)
	announcements.Get("/unread-count", cfg.Announcements.UnreadBadge)
	announcements.Post("/:id/read", cfg.Announcements.MarkRead)

	api.Get("/directory/assignable", auth.RequireRole(domain.RoleAdmin), cfg.Directory.Assignable)

	payments := api.Group("/payments")
	payments.Get("", cfg.Payments.List)
	payments.Post("", cfg.Payments.Record)
}
