package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
)

func TestPredicateSQL(t *testing.T) {
	tests := []struct {
		name  string
		pred  Predicate
		alias string
		want  string
	}{
		{
			name: "unrestricted renders empty",
			pred: Predicate{Unrestricted: true},
			want: "",
		},
		{
			name: "empty clauses match nothing",
			pred: Predicate{},
			want: "1=0",
		},
		{
			name: "single company clause",
			pred: Predicate{Clauses: []Clause{{Granularity: GranCompany, CompanyID: 7}}},
			want: "company_id = 7",
		},
		{
			name: "branch clause pairs company and branch",
			pred: Predicate{Clauses: []Clause{{Granularity: GranBranch, CompanyID: 7, BranchID: 3}}},
			want: "(company_id = 7 AND company_branch_id = 3)",
		},
		{
			name: "employee clause",
			pred: Predicate{Clauses: []Clause{{Granularity: GranEmployee, EmployeeID: 99}}},
			want: "company_employee_id = 99",
		},
		{
			name: "multiple clauses OR together with parens",
			pred: Predicate{Clauses: []Clause{
				{Granularity: GranCompany, CompanyID: 1},
				{Granularity: GranEmployee, EmployeeID: 2},
			}},
			want: "(company_id = 1 OR company_employee_id = 2)",
		},
		{
			name:  "alias prefixes every column",
			pred:  Predicate{Clauses: []Clause{{Granularity: GranBranch, CompanyID: 1, BranchID: 2}}},
			alias: "ce",
			want:  "(ce.company_id = 1 AND ce.company_branch_id = 2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred.SQL(tt.alias))
		})
	}
}

func TestAnnotation(t *testing.T) {
	scope := domain.AccessScope{
		Memberships: []domain.CompanyMembership{
			{CompanyID: 1, CompanyName: "Acme", BranchID: 10, BranchName: "Pune", Role: domain.RoleBranchManager, EmployeeID: 100},
		},
	}

	pred := Predicate{Clauses: []Clause{{Granularity: GranBranch, CompanyID: 1, BranchID: 10}}}
	ann := Annotation(scope, pred)
	assert.Equal(t, "BranchManager", ann.Role)
	assert.Equal(t, []string{"Acme"}, ann.Companies)
	assert.Equal(t, []string{"Pune"}, ann.Branches)
	assert.False(t, ann.SelfOnly)
	assert.False(t, ann.Unscoped)

	selfPred := Predicate{Clauses: []Clause{{Granularity: GranEmployee, CompanyID: 1, EmployeeID: 100}}}
	selfAnn := Annotation(scope, selfPred)
	assert.True(t, selfAnn.SelfOnly)

	unscoped := Annotation(domain.AccessScope{SuperAdmin: true}, Predicate{Unrestricted: true})
	assert.True(t, unscoped.Unscoped)
	assert.Empty(t, unscoped.Companies)
}

func TestMaskSensitiveFields(t *testing.T) {
	record := map[string]any{
		"name":                "Asha",
		"pan_number":          "ABCDE1234F",
		"bank_account_number": "123456",
	}

	owner := domain.AccessScope{Memberships: []domain.CompanyMembership{{EmployeeID: 100}}}
	other := domain.AccessScope{Memberships: []domain.CompanyMembership{{EmployeeID: 200}}}

	ownView := MaskSensitiveFields(owner, record, 100)
	assert.Equal(t, "ABCDE1234F", ownView["pan_number"])

	otherView := MaskSensitiveFields(other, record, 100)
	assert.Equal(t, "***HIDDEN***", otherView["pan_number"])
	assert.Equal(t, "***HIDDEN***", otherView["bank_account_number"])
	assert.Equal(t, "Asha", otherView["name"])

	// Source record untouched.
	assert.Equal(t, "ABCDE1234F", record["pan_number"])

	admin := domain.AccessScope{SuperAdmin: true}
	assert.Equal(t, "ABCDE1234F", MaskSensitiveFields(admin, record, 100)["pan_number"])
}
