package domain

// AccessScope is the set of memberships an identity may act under for one
// request. Derived fresh per request from membership data and never cached
// across requests: role and membership can change between calls.
type AccessScope struct {
	Identity     Identity
	SuperAdmin   bool
	Memberships  []CompanyMembership
	AllCompanies bool // requested="all": union-scope signal to the policy engine
	Primary      bool // memberships were narrowed to the primary company
}

// Role returns the broadest authority level present in the scope.
// SuperAdmin overrides the membership-derived level.
func (s AccessScope) Role() Role {
	if s.SuperAdmin {
		return RoleSuperAdmin
	}
	best := RoleEmployee
	for _, m := range s.Memberships {
		if m.Role < best {
			best = m.Role
		}
	}
	return best
}

// EmployeeIDs lists the company_employee ids covered by the scope.
func (s AccessScope) EmployeeIDs() []int64 {
	ids := make([]int64, 0, len(s.Memberships))
	for _, m := range s.Memberships {
		ids = append(ids, m.EmployeeID)
	}
	return ids
}

// ScopeAnnotation records which company/branch a result set was filtered
// to, so callers can disambiguate multi-company responses.
type ScopeAnnotation struct {
	Role      string   `json:"role"`
	Companies []string `json:"companies,omitempty"`
	Branches  []string `json:"branches,omitempty"`
	SelfOnly  bool     `json:"self_only,omitempty"`
	Unscoped  bool     `json:"unscoped,omitempty"`
}

// QueryResult is the uniform shape returned by scoped queries.
type QueryResult struct {
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Scope     ScopeAnnotation  `json:"scope"`
	Truncated bool             `json:"truncated,omitempty"`
}
