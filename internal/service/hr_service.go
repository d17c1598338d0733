package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/backend"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/events"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/rbac"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/reqctx"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/repository"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// HRService serves the canned HR lookups. Each one is a fixed statement
// with the caller's scope predicate baked in, so there is nothing for the
// validator to reject and nothing a caller can widen.
type HRService struct {
	backends   *backend.Selector
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewHRService builds the service.
func NewHRService(backends *backend.Selector, dispatcher events.Dispatcher, logger *zap.Logger) *HRService {
	return &HRService{backends: backends, dispatcher: dispatcher, logger: logger}
}

// MySalarySlips returns the caller's most recent salary slips.
func (s *HRService) MySalarySlips(ctx context.Context, rc *reqctx.RequestContext, months int) (*domain.QueryResult, error) {
	pred, err := rbac.Authorize(rc.Scope, rbac.OpSelfData)
	if err != nil {
		s.auditDenial(ctx, rc, "get_my_salary_slips", rbac.OpSelfData, err)
		return nil, err
	}
	if months < 1 {
		months = 6
	}
	if months > 24 {
		months = 24
	}

	stmt := fmt.Sprintf(
		`SELECT * FROM company_employee_salary_slip WHERE %s ORDER BY year DESC, month DESC LIMIT $1`,
		selfCondition(rc.Scope, pred))
	return s.execute(ctx, rc, "get_my_salary_slips", stmt, []any{months}, pred, true)
}

// MyLeaveRequests returns the caller's leave requests, optionally filtered
// by status.
func (s *HRService) MyLeaveRequests(ctx context.Context, rc *reqctx.RequestContext, status string) (*domain.QueryResult, error) {
	pred, err := rbac.Authorize(rc.Scope, rbac.OpSelfData)
	if err != nil {
		s.auditDenial(ctx, rc, "get_my_leave_requests", rbac.OpSelfData, err)
		return nil, err
	}

	stmt := fmt.Sprintf(
		`SELECT * FROM company_employee_leave WHERE %s`,
		selfCondition(rc.Scope, pred))
	params := []any{}
	if status != "" {
		stmt += ` AND status = $1`
		params = append(params, strings.ToLower(status))
	}
	stmt += ` ORDER BY created_at DESC LIMIT 50`
	return s.execute(ctx, rc, "get_my_leave_requests", stmt, params, pred, true)
}

// TeamAttendance returns attendance for the caller's team on one date.
// Managers see their branch, admins their company.
func (s *HRService) TeamAttendance(ctx context.Context, rc *reqctx.RequestContext, date string) (*domain.QueryResult, error) {
	pred, err := rbac.Authorize(rc.Scope, rbac.OpTeamData)
	if err != nil {
		s.auditDenial(ctx, rc, "get_team_attendance", rbac.OpTeamData, err)
		return nil, err
	}
	if !datePattern.MatchString(date) {
		return nil, apperrors.NewValidationError("date must be YYYY-MM-DD", nil)
	}

	stmt := fmt.Sprintf(
		`SELECT * FROM company_attendance WHERE %s AND attendance_date = $1 ORDER BY company_employee_id`,
		predCondition(pred))
	return s.execute(ctx, rc, "get_team_attendance", stmt, []any{date}, pred, true)
}

// EmployeeProfile returns one employee record. Callers always see their
// own; managers and admins see employees inside their scope. Sensitive
// fields are masked unless the record is the caller's own.
func (s *HRService) EmployeeProfile(ctx context.Context, rc *reqctx.RequestContext, employeeID int64) (*domain.QueryResult, error) {
	op := rbac.OpTeamData
	if isOwnEmployee(rc.Scope, employeeID) {
		op = rbac.OpSelfData
	}
	pred, err := rbac.Authorize(rc.Scope, op)
	if err != nil {
		s.auditDenial(ctx, rc, "get_employee_profile", op, err)
		return nil, err
	}

	condition := "1=1"
	if !pred.Unrestricted {
		if op == rbac.OpSelfData {
			condition = employeeIDCondition(rc.Scope, "id")
		} else {
			condition = predCondition(pred)
		}
	}
	stmt := fmt.Sprintf(`SELECT * FROM company_employee WHERE id = $1 AND %s`, condition)

	result, err := s.execute(ctx, rc, "get_employee_profile", stmt, []any{employeeID}, pred, false)
	if err != nil {
		return nil, err
	}
	for i, row := range result.Rows {
		result.Rows[i] = rbac.MaskSensitiveFields(rc.Scope, row, employeeID)
	}
	return result, nil
}

// CompanyHeadcount returns per-company active employee counts for admins.
func (s *HRService) CompanyHeadcount(ctx context.Context, rc *reqctx.RequestContext) (*domain.QueryResult, error) {
	pred, err := rbac.Authorize(rc.Scope, rbac.OpCompanyData)
	if err != nil {
		s.auditDenial(ctx, rc, "get_company_headcount", rbac.OpCompanyData, err)
		return nil, err
	}

	stmt := fmt.Sprintf(
		`SELECT company_id, COUNT(*) AS headcount FROM company_employee WHERE is_deleted = '0' AND %s GROUP BY company_id ORDER BY company_id`,
		predCondition(pred))
	return s.execute(ctx, rc, "get_company_headcount", stmt, nil, pred, false)
}

func (s *HRService) execute(ctx context.Context, rc *reqctx.RequestContext, tool, stmt string, params []any, pred rbac.Predicate, mask bool) (*domain.QueryResult, error) {
	gw, err := s.backends.Gateway(rc.Environment)
	if err != nil {
		return nil, err
	}

	rows, err := gw.Execute(ctx, stmt, params)
	if err != nil {
		s.logger.Error("hr lookup failed",
			zap.String("tool", tool),
			zap.Int64("user_id", rc.Identity.UserID),
			zap.Error(err))
		return nil, err
	}

	if mask && !rc.Scope.SuperAdmin {
		for i, row := range rows {
			target := repository.AsInt64(row["company_employee_id"])
			rows[i] = rbac.MaskSensitiveFields(rc.Scope, row, target)
		}
	}

	s.publish(ctx, rc, events.Event{
		Type: events.EventQueryExecuted,
		Tool: tool,
		Payload: events.QueryExecutedPayload{
			Statement: stmt,
			RowCount:  len(rows),
			Unscoped:  pred.Unrestricted,
		},
	})

	return &domain.QueryResult{
		Rows:     rows,
		RowCount: len(rows),
		Scope:    rbac.Annotation(rc.Scope, pred),
	}, nil
}

// selfCondition scopes a statement over an employee-keyed table to the
// caller's own employee ids. SuperAdmins without memberships have no
// "self" rows to return.
func selfCondition(scope domain.AccessScope, pred rbac.Predicate) string {
	if pred.Unrestricted {
		if len(scope.Memberships) == 0 {
			return "1=0"
		}
		return employeeIDCondition(scope, "company_employee_id")
	}
	return "(" + pred.SQL("") + ")"
}

func employeeIDCondition(scope domain.AccessScope, column string) string {
	ids := scope.EmployeeIDs()
	if len(ids) == 0 {
		return "1=0"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s = %d", column, id)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func predCondition(pred rbac.Predicate) string {
	if pred.Unrestricted {
		return "1=1"
	}
	return "(" + pred.SQL("") + ")"
}

func isOwnEmployee(scope domain.AccessScope, employeeID int64) bool {
	for _, id := range scope.EmployeeIDs() {
		if id == employeeID {
			return true
		}
	}
	return false
}

func (s *HRService) auditDenial(ctx context.Context, rc *reqctx.RequestContext, tool string, op rbac.Operation, err error) {
	s.publish(ctx, rc, events.Event{
		Type: events.EventAccessDenied,
		Tool: tool,
		Payload: events.AccessDeniedPayload{
			Code:      apperrors.CodeOf(err),
			Role:      rc.Scope.Role().String(),
			Operation: op.String(),
		},
	})
}

func (s *HRService) publish(ctx context.Context, rc *reqctx.RequestContext, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.Actor = events.Actor{
		UserID: rc.Identity.UserID,
		Phone:  rc.Identity.Phone,
		Name:   rc.Identity.Name,
	}
	event.Environment = rc.Environment
	_ = s.dispatcher.Publish(ctx, event)
}
