package scope

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/backend"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/repository"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

type fakeGateway struct {
	rows []map[string]any
	err  error
}

func (f *fakeGateway) Execute(_ context.Context, _ string, _ []any) ([]map[string]any, error) {
	return f.rows, f.err
}

func (f *fakeGateway) Ping(_ context.Context) error { return nil }

func newResolver(rows []map[string]any) *Resolver {
	backends := backend.NewSelector(map[domain.Environment]backend.Gateway{
		domain.EnvProd: &fakeGateway{rows: rows},
	})
	return NewResolver(repository.NewMembershipRepository(backends), zap.NewNop())
}

func membershipRow(employeeID, companyID int64, name string, roleID, attendance int64, joined string) map[string]any {
	return map[string]any{
		"company_employee_id": employeeID,
		"company_id":          companyID,
		"company_name":        name,
		"company_branch_id":   int64(0),
		"branch_name":         "",
		"role_id":             roleID,
		"designation":         "",
		"attendance_count":    attendance,
		"joined_at":           joined,
	}
}

func testSession() *domain.Session {
	return &domain.Session{
		ID:          "sess_test",
		Identity:    domain.Identity{UserID: 42, Phone: "+919876543210", Name: "Asha"},
		Environment: domain.EnvProd,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestResolveScopePrimaryByAttendance(t *testing.T) {
	r := newResolver([]map[string]any{
		membershipRow(1, 10, "Acme", 3, 5, "2023-01-01"),
		membershipRow(2, 20, "Globex", 3, 90, "2024-01-01"),
	})

	scope, err := r.ResolveScope(context.Background(), testSession(), "")
	require.NoError(t, err)
	require.Len(t, scope.Memberships, 1)
	assert.Equal(t, "Globex", scope.Memberships[0].CompanyName)
	assert.True(t, scope.Primary)
	assert.False(t, scope.AllCompanies)
}

func TestResolveScopePrimaryTieBreaks(t *testing.T) {
	// Equal attendance: earlier join wins.
	r := newResolver([]map[string]any{
		membershipRow(1, 10, "Acme", 3, 50, "2024-06-01"),
		membershipRow(2, 20, "Globex", 3, 50, "2022-06-01"),
	})
	scope, err := r.ResolveScope(context.Background(), testSession(), "")
	require.NoError(t, err)
	assert.Equal(t, "Globex", scope.Memberships[0].CompanyName)

	// Equal attendance and join date: lowest company id wins.
	r = newResolver([]map[string]any{
		membershipRow(1, 30, "Initech", 3, 50, "2022-06-01"),
		membershipRow(2, 20, "Globex", 3, 50, "2022-06-01"),
	})
	scope, err = r.ResolveScope(context.Background(), testSession(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(20), scope.Memberships[0].CompanyID)
}

func TestResolveScopeAll(t *testing.T) {
	r := newResolver([]map[string]any{
		membershipRow(1, 10, "Acme", 1, 5, "2023-01-01"),
		membershipRow(2, 20, "Globex", 3, 90, "2024-01-01"),
	})

	scope, err := r.ResolveScope(context.Background(), testSession(), "all")
	require.NoError(t, err)
	assert.Len(t, scope.Memberships, 2)
	assert.True(t, scope.AllCompanies)
	assert.False(t, scope.Primary)
}

func TestResolveScopeByName(t *testing.T) {
	r := newResolver([]map[string]any{
		membershipRow(1, 10, "Acme Industries", 3, 5, "2023-01-01"),
		membershipRow(2, 20, "Globex Corp", 3, 90, "2024-01-01"),
	})

	// Exact match, case-insensitive.
	scope, err := r.ResolveScope(context.Background(), testSession(), "acme industries")
	require.NoError(t, err)
	require.Len(t, scope.Memberships, 1)
	assert.Equal(t, int64(10), scope.Memberships[0].CompanyID)

	// Unique substring match.
	scope, err = r.ResolveScope(context.Background(), testSession(), "globex")
	require.NoError(t, err)
	assert.Equal(t, int64(20), scope.Memberships[0].CompanyID)

	// No match.
	_, err = r.ResolveScope(context.Background(), testSession(), "wayne enterprises")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnknownCompany, apperrors.CodeOf(err))
}

func TestResolveScopeAmbiguousSubstringRejected(t *testing.T) {
	r := newResolver([]map[string]any{
		membershipRow(1, 10, "Acme East", 3, 5, "2023-01-01"),
		membershipRow(2, 20, "Acme West", 3, 9, "2024-01-01"),
	})

	_, err := r.ResolveScope(context.Background(), testSession(), "acme")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnknownCompany, apperrors.CodeOf(err))
}

func TestResolveScopeNoMembership(t *testing.T) {
	r := newResolver(nil)

	_, err := r.ResolveScope(context.Background(), testSession(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNoMembership, apperrors.CodeOf(err))
}

func TestResolveScopeSuperAdmin(t *testing.T) {
	r := newResolver(nil)
	sess := testSession()
	sess.IsSuperAdmin = true

	scope, err := r.ResolveScope(context.Background(), sess, "")
	require.NoError(t, err)
	assert.True(t, scope.SuperAdmin)
	assert.True(t, scope.AllCompanies)
	assert.Empty(t, scope.Memberships)
}

func TestResolveScopeRoleMapping(t *testing.T) {
	r := newResolver([]map[string]any{
		membershipRow(1, 10, "Acme", 1, 5, "2023-01-01"),
	})

	scope, err := r.ResolveScope(context.Background(), testSession(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCompanyAdmin, scope.Memberships[0].Role)
	assert.Equal(t, domain.RoleCompanyAdmin, scope.Role())
}
