package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/backend"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/events"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/reqctx"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/repository"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

type fakeGateway struct {
	rows  []map[string]any
	err   error
	stmt  string
	args  []any
	calls int
}

func (g *fakeGateway) Execute(_ context.Context, stmt string, params []any) ([]map[string]any, error) {
	g.calls++
	g.stmt = stmt
	g.args = params
	if g.err != nil {
		return nil, g.err
	}
	return g.rows, nil
}

func (g *fakeGateway) Ping(context.Context) error { return g.err }

type recordedEvents struct {
	events []events.Event
}

func recordingDispatcher() (events.Dispatcher, *recordedEvents) {
	d := events.NewInMemoryDispatcher()
	rec := &recordedEvents{}
	handler := func(_ context.Context, e events.Event) error {
		rec.events = append(rec.events, e)
		return nil
	}
	for _, et := range []events.EventType{
		events.EventAccessDenied,
		events.EventQueryExecuted,
		events.EventQueryRejected,
	} {
		d.Subscribe(et, handler)
	}
	return d, rec
}

func membership(role domain.Role, companyID, branchID, employeeID int64) domain.CompanyMembership {
	return domain.CompanyMembership{
		EmployeeID:  employeeID,
		CompanyID:   companyID,
		CompanyName: "Acme",
		BranchID:    branchID,
		BranchName:  "HQ",
		Role:        role,
		JoinedAt:    time.Now(),
	}
}

func requestContext(superAdmin bool, memberships ...domain.CompanyMembership) *reqctx.RequestContext {
	return &reqctx.RequestContext{
		SessionID:   "sess_1",
		Identity:    domain.Identity{UserID: 42, Phone: "+919876543210", Name: "Asha"},
		Environment: domain.EnvProd,
		Scope: domain.AccessScope{
			Identity:    domain.Identity{UserID: 42},
			SuperAdmin:  superAdmin,
			Memberships: memberships,
		},
		SuperAdmin: superAdmin,
	}
}

func newQueryService(gw *fakeGateway) (*QueryService, *recordedEvents) {
	selector := backend.NewSelector(map[domain.Environment]backend.Gateway{domain.EnvProd: gw})
	dispatcher, rec := recordingDispatcher()
	schemas := repository.NewSchemaRepository(selector)
	return NewQueryService(selector, schemas, dispatcher, zap.NewNop()), rec
}

func TestRunInjectsEmployeePredicate(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{}}
	svc, _ := newQueryService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	_, err := svc.Run(context.Background(), rc, "SELECT * FROM company_attendance")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM company_attendance WHERE company_attendance.company_employee_id = 99", gw.stmt)
}

func TestRunCallerCannotWidenScope(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{}}
	svc, _ := newQueryService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	_, err := svc.Run(context.Background(), rc, "SELECT * FROM company_attendance WHERE company_employee_id = 1")
	require.NoError(t, err)
	assert.Contains(t, gw.stmt, "(company_employee_id = 1) AND company_attendance.company_employee_id = 99")
}

func TestRunSuperAdminUnscoped(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{{"pan_number": "ABCDE1234F", "company_employee_id": int64(5)}}}
	svc, _ := newQueryService(gw)
	rc := requestContext(true)

	result, err := svc.Run(context.Background(), rc, "SELECT * FROM company_employee")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM company_employee", gw.stmt)
	assert.True(t, result.Scope.Unscoped)
	assert.Equal(t, "ABCDE1234F", result.Rows[0]["pan_number"])
}

func TestRunMasksOtherEmployeesRows(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{
		{"company_employee_id": int64(99), "pan_number": "MINE12345"},
		{"company_employee_id": int64(5), "pan_number": "THEIRS6789"},
	}}
	svc, _ := newQueryService(gw)
	rc := requestContext(false, membership(domain.RoleBranchManager, 7, 3, 99))

	result, err := svc.Run(context.Background(), rc, "SELECT * FROM company_employee")
	require.NoError(t, err)
	assert.Equal(t, "MINE12345", result.Rows[0]["pan_number"])
	assert.Equal(t, "***HIDDEN***", result.Rows[1]["pan_number"])
}

func TestRunRejectsMutations(t *testing.T) {
	gw := &fakeGateway{}
	svc, rec := newQueryService(gw)
	rc := requestContext(false, membership(domain.RoleCompanyAdmin, 7, 3, 99))

	_, err := svc.Run(context.Background(), rc, "DELETE FROM company_employee")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMutationNotAllowed, apperrors.CodeOf(err))
	assert.Zero(t, gw.calls)

	require.Len(t, rec.events, 1)
	assert.Equal(t, events.EventQueryRejected, rec.events[0].Type)
	payload, ok := rec.events[0].Payload.(events.QueryRejectedPayload)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeMutationNotAllowed, payload.Code)
}

func TestRunEmployeeTableFence(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newQueryService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	_, err := svc.Run(context.Background(), rc, "SELECT * FROM meeting_management")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTableNotAllowed, apperrors.CodeOf(err))
	assert.Zero(t, gw.calls)
}

func TestRunDeniedWithoutMembership(t *testing.T) {
	gw := &fakeGateway{}
	svc, rec := newQueryService(gw)
	rc := requestContext(false)

	_, err := svc.Run(context.Background(), rc, "SELECT * FROM company_employee")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
	assert.Zero(t, gw.calls)

	require.Len(t, rec.events, 1)
	assert.Equal(t, events.EventAccessDenied, rec.events[0].Type)
}

func TestRunPublishesQueryExecuted(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{{"n": 1}, {"n": 2}}}
	svc, rec := newQueryService(gw)
	rc := requestContext(false, membership(domain.RoleCompanyAdmin, 7, 3, 99))

	_, err := svc.Run(context.Background(), rc, "SELECT * FROM company_employee")
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	e := rec.events[0]
	assert.Equal(t, events.EventQueryExecuted, e.Type)
	assert.Equal(t, int64(42), e.Actor.UserID)
	assert.NotEmpty(t, e.ID)
	payload, ok := e.Payload.(events.QueryExecutedPayload)
	require.True(t, ok)
	assert.Equal(t, 2, payload.RowCount)
	assert.False(t, payload.Unscoped)
}

func TestRunCapsRowsReturned(t *testing.T) {
	rows := make([]map[string]any, 150)
	for i := range rows {
		rows[i] = map[string]any{"id": int64(i), "company_employee_id": int64(99)}
	}
	gw := &fakeGateway{rows: rows}
	svc, _ := newQueryService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	result, err := svc.Run(context.Background(), rc, "SELECT * FROM company_attendance")
	require.NoError(t, err)
	assert.Len(t, result.Rows, maxRawQueryRows)
	assert.Equal(t, maxRawQueryRows, result.RowCount)
	assert.True(t, result.Truncated)

	gw.rows = rows[:10]
	result, err = svc.Run(context.Background(), rc, "SELECT * FROM company_attendance")
	require.NoError(t, err)
	assert.Equal(t, 10, result.RowCount)
	assert.False(t, result.Truncated)
}

func TestRunPropagatesBackendError(t *testing.T) {
	gw := &fakeGateway{err: apperrors.NewBackendError(errors.New("timeout"))}
	svc, _ := newQueryService(gw)
	rc := requestContext(false, membership(domain.RoleCompanyAdmin, 7, 3, 99))

	_, err := svc.Run(context.Background(), rc, "SELECT * FROM company_employee")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBackendError, apperrors.CodeOf(err))
}

func TestListTablesByRole(t *testing.T) {
	svc, _ := newQueryService(&fakeGateway{})

	manager := svc.ListTables(requestContext(false, membership(domain.RoleCompanyAdmin, 7, 3, 99)))
	employee := svc.ListTables(requestContext(false, membership(domain.RoleEmployee, 7, 3, 99)))
	assert.Greater(t, len(manager), len(employee))
	assert.Contains(t, manager, "meeting_management")
	assert.NotContains(t, employee, "meeting_management")
}

func TestTableSchemaFence(t *testing.T) {
	gw := &fakeGateway{rows: []map[string]any{
		{"column_name": "id", "data_type": "bigint", "is_nullable": "NO"},
	}}
	svc, _ := newQueryService(gw)
	rc := requestContext(false, membership(domain.RoleEmployee, 7, 3, 99))

	cols, err := svc.TableSchema(context.Background(), rc, "company_attendance")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, []any{"company_attendance"}, gw.args)

	_, err = svc.TableSchema(context.Background(), rc, "meeting_management")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTableNotAllowed, apperrors.CodeOf(err))
}
