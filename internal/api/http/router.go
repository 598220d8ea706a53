package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/claim-service/internal/api/http/handlers"
	"github.com/spec-kit/claim-service/internal/auth"
	"github.com/spec-kit/claim-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Claims         *handlers.ClaimsHandler
	Review         *handlers.ReviewHandler
	HR             *handlers.HRHandler
	Lecturers      *handlers.LecturersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Accounts.Register)
	authGroup.Post("/login", cfg.Accounts.Login)
	authGroup.Post("/password/reset/request", cfg.Accounts.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Accounts.ConfirmPasswordReset)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	authProtected.Post("/password/change", cfg.Accounts.ChangePassword)
	authProtected.Post("/logout", cfg.Accounts.Logout)

	claims := app.Group("/claims", cfg.AuthMiddleware.Handle)
	claims.Post("", auth.RequireRole(domain.RoleLecturer), cfg.Claims.Submit)
	claims.Post("/:id/attachment", auth.RequireRole(domain.RoleLecturer), cfg.Claims.Attach)
	claims.Get("", auth.RequireRole(domain.RoleCoordinator, domain.RoleManager, domain.RoleHR), cfg.Claims.ListRecent)
	claims.Get("/:id", auth.RequireAuthenticated(), cfg.Claims.Get)
	claims.Get("/:id/attachment", auth.RequireAuthenticated(), cfg.Claims.DownloadAttachment)
	claims.Get("/:id/audit", auth.RequireRole(domain.RoleCoordinator, domain.RoleManager, domain.RoleHR), cfg.Claims.AuditTrail)

	review := app.Group("/review", cfg.AuthMiddleware.Handle)
	coordinator := review.Group("/coordinator", auth.RequireRole(domain.RoleCoordinator))
	coordinator.Get("/claims", cfg.Review.CoordinatorQueue)
	coordinator.Post("/claims/:id/approve", cfg.Review.CoordinatorApprove)
	coordinator.Post("/claims/:id/reject", cfg.Review.CoordinatorReject)

	manager := review.Group("/manager", auth.RequireRole(domain.RoleManager))
	manager.Get("/claims", cfg.Review.ManagerQueue)
	manager.Post("/claims/:id/approve", cfg.Review.ManagerApprove)
	manager.Post("/claims/:id/reject", cfg.Review.ManagerReject)

	hr := app.Group("/hr", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleHR))
	hr.Get("/reports/monthly", cfg.HR.MonthlySummary)
	hr.Get("/reports/months", cfg.HR.Months)
	hr.Get("/reports/invoice", cfg.HR.Invoice)
	hr.Get("/reports/approved.csv", cfg.HR.ExportApprovedCSV)

	hr.Post("/lecturers", cfg.Lecturers.Create)
	hr.Get("/lecturers", cfg.Lecturers.List)
	hr.Get("/lecturers/:id", cfg.Lecturers.Get)
	hr.Put("/lecturers/:id", cfg.Lecturers.Update)
	hr.Post("/lecturers/:id/deactivate", cfg.Lecturers.Deactivate)
	hr.Delete("/lecturers/:id", cfg.Lecturers.Delete)

	app.Get("/lecturers/active", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Lecturers.ListActive)
}
