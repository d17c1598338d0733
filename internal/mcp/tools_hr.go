package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHRTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("get_my_salary_slips",
			mcplib.WithDescription("Fetch the caller's most recent salary slips."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithNumber("months",
				mcplib.Description("How many months to return"),
				mcplib.Min(1),
				mcplib.Max(24),
				mcplib.DefaultNumber(6),
			),
		),
		s.handleMySalarySlips,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_my_leave_requests",
			mcplib.WithDescription("Fetch the caller's leave requests, newest first."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("status",
				mcplib.Description(`Optional status filter, e.g. "pending", "approved", "rejected"`),
			),
		),
		s.handleMyLeaveRequests,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_team_attendance",
			mcplib.WithDescription("Fetch attendance for the caller's team on a given date. Branch managers see their branch; company admins see the whole company."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("date",
				mcplib.Description("Date in YYYY-MM-DD format"),
				mcplib.Required(),
			),
			mcplib.WithString("company",
				mcplib.Description("Company context for multi-company users"),
			),
		),
		s.handleTeamAttendance,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_employee_profile",
			mcplib.WithDescription("Fetch one employee's profile. Sensitive fields (PAN, Aadhar, bank details) are hidden unless the record is the caller's own."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithNumber("employee_id",
				mcplib.Description("The company_employee id"),
				mcplib.Required(),
			),
			mcplib.WithString("company",
				mcplib.Description("Company context for multi-company users"),
			),
		),
		s.handleEmployeeProfile,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_company_headcount",
			mcplib.WithDescription("Fetch active employee counts per company. Company admins only."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("company",
				mcplib.Description(`Company context: empty for the primary company, "all" for every company the caller administers`),
			),
		),
		s.handleCompanyHeadcount,
	)
}

func (s *Server) handleMySalarySlips(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("get_my_salary_slips")

	rc, err := s.freshContext(ctx, "")
	if err != nil {
		return errorResult(err), nil
	}

	months := int(request.GetFloat("months", 6))
	result, err := s.hr.MySalarySlips(ctx, rc, months)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleMyLeaveRequests(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("get_my_leave_requests")

	rc, err := s.freshContext(ctx, "")
	if err != nil {
		return errorResult(err), nil
	}

	result, err := s.hr.MyLeaveRequests(ctx, rc, request.GetString("status", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleTeamAttendance(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("get_team_attendance")

	date := request.GetString("date", "")
	if date == "" {
		return errorResult(missingParam("date")), nil
	}

	rc, err := s.freshContext(ctx, request.GetString("company", ""))
	if err != nil {
		return errorResult(err), nil
	}

	result, err := s.hr.TeamAttendance(ctx, rc, date)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleEmployeeProfile(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("get_employee_profile")

	employeeID := int64(request.GetFloat("employee_id", 0))
	if employeeID <= 0 {
		return errorResult(missingParam("employee_id")), nil
	}

	rc, err := s.freshContext(ctx, request.GetString("company", ""))
	if err != nil {
		return errorResult(err), nil
	}

	result, err := s.hr.EmployeeProfile(ctx, rc, employeeID)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleCompanyHeadcount(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("get_company_headcount")

	rc, err := s.freshContext(ctx, request.GetString("company", ""))
	if err != nil {
		return errorResult(err), nil
	}

	result, err := s.hr.CompanyHeadcount(ctx, rc)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result), nil
}
