package domain

import (
	"strings"
	"time"
)

// Role is the authority level a user holds within one company.
// Lower numeric level means broader authority. SuperAdmin sits outside the
// level hierarchy and bypasses all RBAC predicates.
type Role int

const (
	RoleSuperAdmin    Role = 0
	RoleCompanyAdmin  Role = 1
	RoleBranchManager Role = 2
	RoleEmployee      Role = 3
)

// String returns the display name for a role.
func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return "SuperAdmin"
	case RoleCompanyAdmin:
		return "CompanyAdmin"
	case RoleBranchManager:
		return "BranchManager"
	case RoleEmployee:
		return "Employee"
	}
	return "Unknown"
}

// RoleFromLevel maps a backend authority level to a Role. Unknown levels
// fall back to Employee, the narrowest scope.
func RoleFromLevel(level int) Role {
	switch level {
	case 1:
		return RoleCompanyAdmin
	case 2:
		return RoleBranchManager
	case 3:
		return RoleEmployee
	}
	return RoleEmployee
}

// Identity is the stable authenticated user. Immutable once created;
// sourced from the external identity provider.
type Identity struct {
	UserID int64  `json:"user_id"`
	Phone  string `json:"phone"`
	Name   string `json:"name"`
}

// CompanyMembership links an identity to one company with a role and branch.
// AttendanceCount drives primary-company selection.
type CompanyMembership struct {
	EmployeeID      int64     `json:"company_employee_id"`
	CompanyID       int64     `json:"company_id"`
	CompanyName     string    `json:"company_name"`
	BranchID        int64     `json:"company_branch_id"`
	BranchName      string    `json:"branch_name"`
	Role            Role      `json:"role"`
	Designation     string    `json:"designation"`
	AttendanceCount int64     `json:"attendance_count"`
	JoinedAt        time.Time `json:"joined_at"`
}

// NormalizePhone reduces a phone number to its last 10 digits for
// comparison, stripping spaces, dashes and the country-code prefix.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.NewReplacer(" ", "", "-", "", "+", "").Replace(phone)
	if len(phone) >= 10 {
		return phone[len(phone)-10:]
	}
	return phone
}

// SamePhone reports whether two phone numbers refer to the same subscriber.
func SamePhone(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return NormalizePhone(a) == NormalizePhone(b)
}
