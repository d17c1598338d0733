package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/backend"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/events"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

func newHRService(gw *fakeGateway) (*HRService, *recordedEvents) {
	selector := backend.NewSelector(map[domain.Environment]backend.Gateway{domain.EnvProd: gw})
	dispatcher, rec := recordingDispatcher()
	return NewHRService(selector, dispatcher, zap.NewNop()), rec
}

func TestMySalarySlipsScopedToCaller(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{}}
	svc, _ := newHRService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	_, err := svc.MySalarySlips(context.Background(), rc, 6)
	require.NoError(t, err)
	assert.Contains(t, gw.stmt, "FROM company_employee_salary_slip")
	assert.Contains(t, gw.stmt, "company_employee_id = 99")
	assert.Contains(t, gw.stmt, "ORDER BY year DESC, month DESC LIMIT $1")
	assert.Equal(t, []any{6}, gw.args)
}

func TestMySalarySlipsClampsMonths(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{}}
	svc, _ := newHRService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	_, err := svc.MySalarySlips(context.Background(), rc, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{6}, gw.args)

	_, err = svc.MySalarySlips(context.Background(), rc, 100)
	require.NoError(t, err)
	assert.Equal(t, []any{24}, gw.args)
}

func TestMySalarySlipsSuperAdminWithoutMembership(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{}}
	svc, _ := newHRService(gw)
	rc := requestContext(true)

	result, err := svc.MySalarySlips(context.Background(), rc, 6)
	require.NoError(t, err)
	assert.Contains(t, gw.stmt, "WHERE 1=0")
	assert.Zero(t, result.RowCount)
}

func TestMyLeaveRequestsStatusFilter(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{}}
	svc, _ := newHRService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	_, err := svc.MyLeaveRequests(context.Background(), rc, "Pending")
	require.NoError(t, err)
	assert.Contains(t, gw.stmt, "AND status = $1")
	assert.Equal(t, []any{"pending"}, gw.args)

	_, err = svc.MyLeaveRequests(context.Background(), rc, "")
	require.NoError(t, err)
	assert.NotContains(t, gw.stmt, "status")
	assert.Empty(t, gw.args)
}

func TestTeamAttendanceRequiresManagerRole(t *testing.T) {
	gw := &fakeGateway{}
	svc, rec := newHRService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	_, err := svc.TeamAttendance(context.Background(), rc, "2026-08-01")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
	assert.Zero(t, gw.calls)

	require.Len(t, rec.events, 1)
	assert.Equal(t, events.EventAccessDenied, rec.events[0].Type)
}

func TestTeamAttendanceBranchScope(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{}}
	svc, _ := newHRService(gw)
	rc := requestContext(false, membership(domain.RoleBranchManager, 7, 3, 99))

	_, err := svc.TeamAttendance(context.Background(), rc, "2026-08-01")
	require.NoError(t, err)
	assert.Contains(t, gw.stmt, "company_id = 7 AND company_branch_id = 3")
	assert.Contains(t, gw.stmt, "attendance_date = $1")
	assert.Equal(t, []any{"2026-08-01"}, gw.args)
}

func TestTeamAttendanceRejectsBadDate(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newHRService(gw)
	rc := requestContext(false, membership(domain.RoleCompanyAdmin, 7, 3, 99))

	for _, date := range []string{"", "today", "2026/08/01", "2026-08-01; DROP TABLE x"} {
		_, err := svc.TeamAttendance(context.Background(), rc, date)
		require.Error(t, err, date)
		assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
	}
	assert.Zero(t, gw.calls)
}

func TestEmployeeProfileOwnRecord(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{
		{"id": int64(99), "company_employee_id": int64(99), "pan_number": "MINE12345"},
	}}
	svc, _ := newHRService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	result, err := svc.EmployeeProfile(context.Background(), rc, 99)
	require.NoError(t, err)
	assert.Contains(t, gw.stmt, "WHERE id = $1 AND (id = 99)")
	assert.Equal(t, "MINE12345", result.Rows[0]["pan_number"])
}

func TestEmployeeProfileOtherEmployeeDeniedForEmployeeRole(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newHRService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	_, err := svc.EmployeeProfile(context.Background(), rc, 5)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
	assert.Zero(t, gw.calls)
}

func TestEmployeeProfileManagerSeesMaskedRecord(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{
		{"id": int64(5), "pan_number": "THEIRS6789"},
	}}
	svc, _ := newHRService(gw)
	rc := requestContext(false, membership(domain.RoleBranchManager, 7, 3, 99))

	result, err := svc.EmployeeProfile(context.Background(), rc, 5)
	require.NoError(t, err)
	assert.Contains(t, gw.stmt, "company_id = 7 AND company_branch_id = 3")
	assert.Equal(t, "***HIDDEN***", result.Rows[0]["pan_number"])
}

func TestEmployeeProfileSuperAdminUnmasked(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{
		{"id": int64(5), "pan_number": "THEIRS6789"},
	}}
	svc, _ := newHRService(gw)
	rc := requestContext(true)

	result, err := svc.EmployeeProfile(context.Background(), rc, 5)
	require.NoError(t, err)
	assert.Contains(t, gw.stmt, "WHERE id = $1 AND 1=1")
	assert.Equal(t, "THEIRS6789", result.Rows[0]["pan_number"])
}

func TestCompanyHeadcountAdminOnly(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{{"company_id": int64(7), "headcount": int64(12)}}}
	svc, _ := newHRService(gw)

	admin := requestContext(false, membership(domain.RoleCompanyAdmin, 7, 3, 99))
	result, err := svc.CompanyHeadcount(context.Background(), admin)
	require.NoError(t, err)
	assert.Contains(t, gw.stmt, "GROUP BY company_id")
	assert.Contains(t, gw.stmt, "company_id = 7")
	assert.Equal(t, 1, result.RowCount)

	manager := requestContext(false, membership(domain.RoleBranchManager, 7, 3, 99))
	_, err = svc.CompanyHeadcount(context.Background(), manager)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}

func TestHRLookupsPublishAudit(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{{"n": 1}}}
	svc, rec := newHRService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	_, err := svc.MySalarySlips(context.Background(), rc, 6)
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	e := rec.events[0]
	assert.Equal(t, events.EventQueryExecuted, e.Type)
	assert.Equal(t, "get_my_salary_slips", e.Tool)
	assert.Equal(t, int64(42), e.Actor.UserID)
}
