package rbac

import (
	"fmt"
	"strings"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
)

// Granularity is how narrowly one clause scopes rows.
type Granularity int

const (
	// GranCompany scopes to every row of one company.
	GranCompany Granularity = iota
	// GranBranch scopes to one branch within one company.
	GranBranch
	// GranEmployee scopes to a single employee's own rows.
	GranEmployee
)

// Clause scopes rows to one membership at a given granularity.
type Clause struct {
	Granularity Granularity
	CompanyID   int64
	BranchID    int64
	EmployeeID  int64
}

// Predicate is the scoping restriction the policy engine attaches to a
// request. It is either unrestricted (SuperAdmin) or an OR across
// membership clauses.
type Predicate struct {
	Unrestricted bool
	Clauses      []Clause
}

// SQL renders the predicate as a condition over the standard HR scoping
// columns, optionally prefixed with a table alias. Clauses OR together:
// multi-company users see the union of what each membership permits.
func (p Predicate) SQL(alias string) string {
	if p.Unrestricted {
		return ""
	}
	if len(p.Clauses) == 0 {
		// An empty predicate matches nothing. Denials are surfaced before
		// this point; this is the backstop, never a silent substitute.
		return "1=0"
	}

	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}

	parts := make([]string, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		switch c.Granularity {
		case GranCompany:
			parts = append(parts, fmt.Sprintf("%scompany_id = %d", prefix, c.CompanyID))
		case GranBranch:
			parts = append(parts, fmt.Sprintf("(%scompany_id = %d AND %scompany_branch_id = %d)",
				prefix, c.CompanyID, prefix, c.BranchID))
		case GranEmployee:
			parts = append(parts, fmt.Sprintf("%scompany_employee_id = %d", prefix, c.EmployeeID))
		}
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// Annotation describes the predicate for result metadata.
func Annotation(scope domain.AccessScope, p Predicate) domain.ScopeAnnotation {
	ann := domain.ScopeAnnotation{Role: scope.Role().String()}
	if p.Unrestricted {
		ann.Unscoped = true
		return ann
	}

	companies := make(map[int64]string, len(scope.Memberships))
	branches := make(map[int64]string, len(scope.Memberships))
	for _, m := range scope.Memberships {
		companies[m.CompanyID] = m.CompanyName
		branches[m.BranchID] = m.BranchName
	}

	selfOnly := len(p.Clauses) > 0
	for _, c := range p.Clauses {
		if c.Granularity != GranEmployee {
			selfOnly = false
		}
		if name, ok := companies[c.CompanyID]; ok && c.CompanyID != 0 {
			ann.Companies = appendUnique(ann.Companies, name)
		}
		if c.Granularity == GranBranch {
			if name, ok := branches[c.BranchID]; ok {
				ann.Branches = appendUnique(ann.Branches, name)
			}
		}
	}
	ann.SelfOnly = selfOnly
	return ann
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
