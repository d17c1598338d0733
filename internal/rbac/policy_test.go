package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

func scopeWith(memberships ...domain.CompanyMembership) domain.AccessScope {
	return domain.AccessScope{
		Identity:    domain.Identity{UserID: 42, Phone: "+919876543210", Name: "Asha"},
		Memberships: memberships,
	}
}

func membership(role domain.Role, companyID, branchID, employeeID int64) domain.CompanyMembership {
	return domain.CompanyMembership{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		BranchID:   branchID,
		Role:       role,
	}
}

func TestAuthorizeSuperAdminUnrestricted(t *testing.T) {
	scope := domain.AccessScope{SuperAdmin: true}

	for _, op := range []Operation{OpSelfData, OpTeamData, OpCompanyData, OpCrossCompany, OpSchemaIntrospection, OpRawQuery} {
		pred, err := Authorize(scope, op)
		require.NoError(t, err, op.String())
		assert.True(t, pred.Unrestricted, op.String())
	}
}

func TestAuthorizeEmptyScopeForbidden(t *testing.T) {
	_, err := Authorize(domain.AccessScope{}, OpSelfData)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}

func TestAuthorizeSelfDataAlwaysEmployeeGranularity(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleCompanyAdmin, domain.RoleBranchManager, domain.RoleEmployee} {
		scope := scopeWith(membership(role, 1, 10, 100))

		pred, err := Authorize(scope, OpSelfData)
		require.NoError(t, err, role.String())
		require.Len(t, pred.Clauses, 1)
		assert.Equal(t, GranEmployee, pred.Clauses[0].Granularity, role.String())
		assert.Equal(t, int64(100), pred.Clauses[0].EmployeeID)
	}
}

func TestAuthorizeTeamData(t *testing.T) {
	tests := []struct {
		name    string
		role    domain.Role
		wantGr  Granularity
		wantErr bool
	}{
		{name: "company admin gets company scope", role: domain.RoleCompanyAdmin, wantGr: GranCompany},
		{name: "branch manager gets branch scope", role: domain.RoleBranchManager, wantGr: GranBranch},
		{name: "employee is denied", role: domain.RoleEmployee, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := scopeWith(membership(tt.role, 1, 10, 100))

			pred, err := Authorize(scope, OpTeamData)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			require.Len(t, pred.Clauses, 1)
			assert.Equal(t, tt.wantGr, pred.Clauses[0].Granularity)
		})
	}
}

func TestAuthorizeCompanyDataAdminOnly(t *testing.T) {
	_, err := Authorize(scopeWith(membership(domain.RoleBranchManager, 1, 10, 100)), OpCompanyData)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))

	pred, err := Authorize(scopeWith(membership(domain.RoleCompanyAdmin, 1, 10, 100)), OpCompanyData)
	require.NoError(t, err)
	require.Len(t, pred.Clauses, 1)
	assert.Equal(t, GranCompany, pred.Clauses[0].Granularity)
}

func TestAuthorizeCrossCompany(t *testing.T) {
	adminBoth := scopeWith(
		membership(domain.RoleCompanyAdmin, 1, 10, 100),
		membership(domain.RoleCompanyAdmin, 2, 20, 200),
	)
	adminBoth.AllCompanies = true

	pred, err := Authorize(adminBoth, OpCrossCompany)
	require.NoError(t, err)
	assert.Len(t, pred.Clauses, 2)

	// Same memberships but scoped to one company: denied.
	single := scopeWith(membership(domain.RoleCompanyAdmin, 1, 10, 100))
	_, err = Authorize(single, OpCrossCompany)
	require.Error(t, err)

	// Admin in one company, plain employee in the other: denied.
	mixed := scopeWith(
		membership(domain.RoleCompanyAdmin, 1, 10, 100),
		membership(domain.RoleEmployee, 2, 20, 200),
	)
	mixed.AllCompanies = true
	_, err = Authorize(mixed, OpCrossCompany)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}

func TestAuthorizeRawQueryPerMembershipGranularity(t *testing.T) {
	scope := scopeWith(
		membership(domain.RoleCompanyAdmin, 1, 10, 100),
		membership(domain.RoleBranchManager, 2, 20, 200),
		membership(domain.RoleEmployee, 3, 30, 300),
	)

	pred, err := Authorize(scope, OpRawQuery)
	require.NoError(t, err)
	require.Len(t, pred.Clauses, 3)
	assert.Equal(t, GranCompany, pred.Clauses[0].Granularity)
	assert.Equal(t, GranBranch, pred.Clauses[1].Granularity)
	assert.Equal(t, GranEmployee, pred.Clauses[2].Granularity)
	assert.Equal(t, int64(300), pred.Clauses[2].EmployeeID)
}

func TestAuthorizeNeverWidensBeyondScope(t *testing.T) {
	// An admin membership outside the resolved scope contributes nothing:
	// only memberships present in the scope produce clauses.
	scope := scopeWith(membership(domain.RoleEmployee, 3, 30, 300))

	pred, err := Authorize(scope, OpRawQuery)
	require.NoError(t, err)
	require.Len(t, pred.Clauses, 1)
	assert.Equal(t, GranEmployee, pred.Clauses[0].Granularity)
}
