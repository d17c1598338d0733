package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/query"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/rbac"
)

func (s *Server) registerAuthTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("login",
			mcplib.WithDescription(`Start a login with an Indian mobile number. An OTP is sent to the phone; complete the login with verify_otp.

Accepted phone formats: 10 digits, 91 followed by 10 digits, or +91 followed by 10 digits.`),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("phone",
				mcplib.Description("Mobile number to authenticate"),
				mcplib.Required(),
			),
			mcplib.WithString("environment",
				mcplib.Description(`Backend environment: "prod" (default) or "staging"`),
			),
		),
		s.handleLogin,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("verify_otp",
			mcplib.WithDescription("Complete a login by submitting the OTP received on the phone. Returns a session token and the companies the user belongs to."),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("phone",
				mcplib.Description("The phone number the OTP was sent to"),
				mcplib.Required(),
			),
			mcplib.WithString("otp",
				mcplib.Description("The one-time password"),
				mcplib.Required(),
			),
			mcplib.WithString("environment",
				mcplib.Description(`Backend environment: "prod" (default) or "staging". Must match the login call.`),
			),
		),
		s.handleVerifyOTP,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("logout",
			mcplib.WithDescription("Revoke the current session. Safe to call twice."),
			mcplib.WithIdempotentHintAnnotation(true),
		),
		s.handleLogout,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("whoami",
			mcplib.WithDescription("Show the authenticated user, environment and role."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
		),
		s.handleWhoAmI,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_my_access",
			mcplib.WithDescription("Show the caller's role per company, the data operations that role permits, and the tables reachable through run_sql_query."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("company",
				mcplib.Description(`Company context: empty for the primary company, "all" for every membership, or a company name`),
			),
		),
		s.handleGetMyAccess,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_my_companies",
			mcplib.WithDescription("List every company the caller belongs to, with role, branch and which one is primary."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
		),
		s.handleGetMyCompanies,
	)
}

func (s *Server) handleLogin(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("login")

	phone := request.GetString("phone", "")
	env := domain.Environment(request.GetString("environment", string(domain.EnvProd)))

	result, err := s.auth.Login(ctx, phone, env)
	if err != nil {
		return errorResult(err), nil
	}

	if result.OTPPending {
		return jsonResult(map[string]any{
			"status":  "otp_sent",
			"message": "OTP sent. Call verify_otp with the code to finish logging in.",
		}), nil
	}

	// Super-admin phones skip the OTP exchange.
	rc, err := s.auth.BuildContext(ctx, result.Session, "")
	if err != nil {
		return errorResult(err), nil
	}
	s.bindSession(ctx, rc)

	return jsonResult(map[string]any{
		"status":      "authenticated",
		"token":       result.Token,
		"super_admin": true,
		"environment": string(env),
	}), nil
}

func (s *Server) handleVerifyOTP(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("verify_otp")

	phone := request.GetString("phone", "")
	otp := request.GetString("otp", "")
	env := domain.Environment(request.GetString("environment", string(domain.EnvProd)))

	result, err := s.auth.VerifyOTP(ctx, phone, otp, env)
	if err != nil {
		return errorResult(err), nil
	}

	rc, err := s.auth.BuildContext(ctx, result.Session, "")
	if err != nil {
		return errorResult(err), nil
	}
	s.bindSession(ctx, rc)

	return jsonResult(map[string]any{
		"status":      "authenticated",
		"token":       result.Token,
		"user":        rc.Identity,
		"super_admin": result.IsSuperAdmin,
		"environment": string(env),
		"companies":   companySummaries(rc.Scope.Memberships),
	}), nil
}

func (s *Server) handleLogout(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("logout")

	rc, err := s.requestContext(ctx)
	if err != nil {
		// Nothing bound means nothing to revoke.
		return jsonResult(map[string]any{"status": "logged_out"}), nil
	}
	if err := s.auth.LogoutSession(ctx, rc); err != nil {
		return errorResult(err), nil
	}
	s.clearSession(ctx)
	return jsonResult(map[string]any{"status": "logged_out"}), nil
}

func (s *Server) handleWhoAmI(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("whoami")

	rc, err := s.freshContext(ctx, "")
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(map[string]any{
		"user":        rc.Identity,
		"environment": string(rc.Environment),
		"role":        rc.Scope.Role().String(),
		"super_admin": rc.SuperAdmin,
	}), nil
}

func (s *Server) handleGetMyAccess(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("get_my_access")

	rc, err := s.freshContext(ctx, request.GetString("company", ""))
	if err != nil {
		return errorResult(err), nil
	}

	memberships := make([]map[string]any, 0, len(rc.Scope.Memberships))
	for _, m := range rc.Scope.Memberships {
		memberships = append(memberships, map[string]any{
			"company":     m.CompanyName,
			"branch":      m.BranchName,
			"role":        m.Role.String(),
			"designation": m.Designation,
			"operations":  allowedOperations(m.Role),
		})
	}

	return jsonResult(map[string]any{
		"role":           rc.Scope.Role().String(),
		"super_admin":    rc.SuperAdmin,
		"memberships":    memberships,
		"allowed_tables": query.AllowedTables(rc.Scope),
	}), nil
}

func (s *Server) handleGetMyCompanies(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("get_my_companies")

	rc, err := s.freshContext(ctx, "all")
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(map[string]any{
		"companies": companySummaries(rc.Scope.Memberships),
	}), nil
}

func companySummaries(memberships []domain.CompanyMembership) []map[string]any {
	out := make([]map[string]any, 0, len(memberships))
	for i, m := range memberships {
		out = append(out, map[string]any{
			"company":          m.CompanyName,
			"branch":           m.BranchName,
			"role":             m.Role.String(),
			"designation":      m.Designation,
			"attendance_count": m.AttendanceCount,
			"primary":          i == 0,
		})
	}
	return out
}

func allowedOperations(role domain.Role) []string {
	ops := []string{rbac.OpSelfData.String(), rbac.OpSchemaIntrospection.String(), rbac.OpRawQuery.String()}
	switch role {
	case domain.RoleSuperAdmin, domain.RoleCompanyAdmin:
		ops = append(ops, rbac.OpTeamData.String(), rbac.OpCompanyData.String(), rbac.OpCrossCompany.String())
	case domain.RoleBranchManager:
		ops = append(ops, rbac.OpTeamData.String())
	}
	return ops
}
