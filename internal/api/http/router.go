package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	users.Get("/profile", cfg.Users.Profile)
	users.Put("/profile", cfg.Users.UpdateProfile)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	tickets.Post("", auth.RequireRole(domain.RoleCustomer), cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/responses", cfg.Tickets.AddResponse)

	attachments := app.Group("/attachments", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	attachments.Get("/:id", cfg.Tickets.GetAttachment)

	dashboard := app.Group("/dashboard", cfg.AuthMiddleware.Handle)
	dashboard.Get("/customer", auth.RequireRole(domain.RoleCustomer), cfg.Dashboard.Customer)
	dashboard.Get("/agent", auth.RequireRole(domain.RoleAgent), cfg.Dashboard.Agent)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/users", cfg.Users.ListUsers)

	admin.Post("/tags", cfg.Admin.CreateTag)
	admin.Get("/tags", cfg.Admin.ListTags)
	admin.Put("/tags/:id", cfg.Admin.UpdateTag)

	admin.Post("/groups", cfg.Admin.CreateGroup)
	admin.Get("/groups", cfg.Admin.ListGroups)
	admin.Get("/groups/:id", cfg.Admin.GetGroup)
	admin.Put("/groups/:id", cfg.Admin.UpdateGroup)

	admin.Post("/sla-policies", cfg.Admin.CreateSLAPolicy)
	admin.Get("/sla-policies", cfg.Admin.ListSLAPolicies)
	admin.Put("/sla-policies/:id", cfg.Admin.UpdateSLAPolicy)

	admin.Get("/tickets", cfg.Admin.ListAllTickets)
	admin.Get("/tickets/statistics", cfg.Admin.Statistics)
	admin.Get("/dashboard", cfg.Dashboard.Admin)
}
