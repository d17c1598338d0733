package rbac

import (
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// Operation categorizes what a tool call wants to read.
type Operation int

const (
	OpSelfData Operation = iota
	OpTeamData
	OpCompanyData
	OpCrossCompany
	OpSchemaIntrospection
	OpRawQuery
)

// String names the operation category for error context.
func (o Operation) String() string {
	switch o {
	case OpSelfData:
		return "self-data"
	case OpTeamData:
		return "team-data"
	case OpCompanyData:
		return "company-wide-data"
	case OpCrossCompany:
		return "cross-company"
	case OpSchemaIntrospection:
		return "schema-introspection"
	case OpRawQuery:
		return "raw-query"
	}
	return "unknown"
}

// Authorize is a pure decision function: given the resolved scope and the
// semantic operation, it returns the scoping predicate to apply or a
// Forbidden error. The predicate is always the intersection of what the
// role permits and what the scope resolver computed; a caller can never
// broaden scope through request parameters.
func Authorize(scope domain.AccessScope, op Operation) (Predicate, error) {
	if scope.SuperAdmin {
		return Predicate{Unrestricted: true}, nil
	}
	if len(scope.Memberships) == 0 {
		return Predicate{}, apperrors.NewForbidden("no company membership in scope", map[string]any{
			"operation": op.String(),
		})
	}

	switch op {
	case OpSelfData:
		// Every role may read its own rows; granularity is always the
		// caller's employee ids, never wider.
		return Predicate{Clauses: employeeClauses(scope.Memberships)}, nil

	case OpTeamData:
		clauses := make([]Clause, 0, len(scope.Memberships))
		for _, m := range scope.Memberships {
			switch m.Role {
			case domain.RoleCompanyAdmin:
				clauses = append(clauses, Clause{Granularity: GranCompany, CompanyID: m.CompanyID})
			case domain.RoleBranchManager:
				clauses = append(clauses, Clause{Granularity: GranBranch, CompanyID: m.CompanyID, BranchID: m.BranchID})
			}
		}
		if len(clauses) == 0 {
			return Predicate{}, forbidden(scope, op)
		}
		return Predicate{Clauses: clauses}, nil

	case OpCompanyData:
		clauses := make([]Clause, 0, len(scope.Memberships))
		for _, m := range scope.Memberships {
			if m.Role == domain.RoleCompanyAdmin {
				clauses = append(clauses, Clause{Granularity: GranCompany, CompanyID: m.CompanyID})
			}
		}
		if len(clauses) == 0 {
			return Predicate{}, forbidden(scope, op)
		}
		return Predicate{Clauses: clauses}, nil

	case OpCrossCompany:
		// Only an identity holding admin in every company of an "all"
		// scope may read across companies.
		if !scope.AllCompanies {
			return Predicate{}, forbidden(scope, op)
		}
		clauses := make([]Clause, 0, len(scope.Memberships))
		for _, m := range scope.Memberships {
			if m.Role != domain.RoleCompanyAdmin {
				return Predicate{}, forbidden(scope, op)
			}
			clauses = append(clauses, Clause{Granularity: GranCompany, CompanyID: m.CompanyID})
		}
		return Predicate{Clauses: clauses}, nil

	case OpSchemaIntrospection:
		// Allowed for every role; the table allow-list narrows what is
		// visible, not a row predicate.
		return Predicate{Clauses: employeeClauses(scope.Memberships)}, nil

	case OpRawQuery:
		// Each membership contributes a clause at the granularity its role
		// permits there.
		clauses := make([]Clause, 0, len(scope.Memberships))
		for _, m := range scope.Memberships {
			switch m.Role {
			case domain.RoleCompanyAdmin:
				clauses = append(clauses, Clause{Granularity: GranCompany, CompanyID: m.CompanyID})
			case domain.RoleBranchManager:
				clauses = append(clauses, Clause{Granularity: GranBranch, CompanyID: m.CompanyID, BranchID: m.BranchID})
			default:
				clauses = append(clauses, Clause{Granularity: GranEmployee, CompanyID: m.CompanyID, EmployeeID: m.EmployeeID})
			}
		}
		return Predicate{Clauses: clauses}, nil
	}

	return Predicate{}, forbidden(scope, op)
}

func employeeClauses(memberships []domain.CompanyMembership) []Clause {
	clauses := make([]Clause, 0, len(memberships))
	for _, m := range memberships {
		clauses = append(clauses, Clause{Granularity: GranEmployee, CompanyID: m.CompanyID, EmployeeID: m.EmployeeID})
	}
	return clauses
}

func forbidden(scope domain.AccessScope, op Operation) error {
	return apperrors.NewForbidden("role does not permit this operation", map[string]any{
		"role":      scope.Role().String(),
		"operation": op.String(),
	})
}
