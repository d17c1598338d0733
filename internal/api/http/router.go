package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/api/http/handlers"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Query   *handlers.QueryHandler
	HR      *handlers.HRHandler
	Session *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	v1 := app.Group("/v1")
	v1.Post("/auth/login", cfg.Auth.Login)
	v1.Post("/auth/verify-otp", cfg.Auth.VerifyOTP)
	v1.Post("/auth/logout", cfg.Auth.Logout)

	protected := v1.Group("", cfg.Session.Handle)
	protected.Get("/me", cfg.Auth.Me)
	protected.Get("/me/access", cfg.Auth.Access)
	protected.Get("/me/companies", cfg.Auth.Companies)

	protected.Get("/tables", cfg.Query.ListTables)
	protected.Get("/tables/:name/schema", cfg.Query.TableSchema)
	protected.Post("/query", cfg.Query.Run)

	protected.Get("/hr/salary-slips", cfg.HR.SalarySlips)
	protected.Get("/hr/leave-requests", cfg.HR.LeaveRequests)
	protected.Get("/hr/team-attendance", cfg.HR.TeamAttendance)
	protected.Get("/hr/employees/:id", cfg.HR.EmployeeProfile)
	protected.Get("/hr/headcount", cfg.HR.Headcount)
}
