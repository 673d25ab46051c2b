package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-service/internal/api/http/handlers"
	"github.com/spec-kit/escalation-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Users.Login)

	// Submitter surface: optional auth so anonymous submissions work.
	tickets := app.Group("/tickets", cfg.AuthMiddleware.HandleOptional)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)

	staff := app.Group("/staff/tickets", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	staff.Get("/:id", cfg.StaffTickets.GetTicket)
	staff.Post("/:id/status", cfg.StaffTickets.ChangeStatus)
	staff.Patch("/:id/severity", cfg.StaffTickets.ChangeSeverity)
	staff.Post("/:id/comments", cfg.StaffTickets.AddComment)
	staff.Get("/:id/assignees", cfg.StaffTickets.ListAssignees)
	staff.Get("/:id/timeline", cfg.StaffTickets.Timeline)

	privileged := staff.Group("", auth.RequirePrivileged())
	privileged.Post("/:id/assignees", cfg.StaffTickets.AddAssignee)
	privileged.Delete("/:id/assignees", cfg.StaffTickets.RemoveAssignee)
	privileged.Delete("/:id", cfg.StaffTickets.DeleteTicket)
}
