package http

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/repair-service/internal/api/http/handlers"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Lifecycle      *handlers.LifecycleHandler
	Attachments    *handlers.AttachmentsHandler
	AuthMiddleware *auth.AuthMiddleware
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// FilesPrefix and FilesDir expose uploaded attachments. Skipped unless
	// the prefix is a local path.
	FilesPrefix string
	FilesDir    string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}
	if strings.HasPrefix(cfg.FilesPrefix, "/") && cfg.FilesDir != "" {
		app.Static(cfg.FilesPrefix, cfg.FilesDir, fiber.Static{ByteRange: true})
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)

	technician := auth.RequireRole(domain.RoleTechnician)
	tickets.Post("/:id/start", technician, cfg.Lifecycle.StartWork)
	tickets.Post("/:id/complete", technician, cfg.Lifecycle.Complete)
	tickets.Post("/:id/cancel", cfg.Lifecycle.Cancel)
	tickets.Post("/:id/approval/request", technician, cfg.Lifecycle.RequestApproval)
	tickets.Post("/:id/approval/decision", auth.RequireRole(domain.RoleAdmin), cfg.Lifecycle.Decide)
	tickets.Post("/:id/approval/self", technician, cfg.Lifecycle.SelfApprove)

	tickets.Post("/:id/attachments", cfg.Attachments.AddAttachment)
	tickets.Delete("/:id/attachments/:attachmentId", cfg.Attachments.DeleteAttachment)
}
