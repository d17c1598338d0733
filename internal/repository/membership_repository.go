package repository

import (
	"context"
	"time"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/backend"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
)

// membershipQuery loads every active membership with its attendance count.
// Ordering matters: attendance DESC then joined-at ASC is the primary
// company policy.
const membershipQuery = `
        SELECT
            ce.id AS company_employee_id,
            ce.company_id,
            c.name AS company_name,
            COALESCE(ce.company_branch_id, 0) AS company_branch_id,
            COALESCE(cb.name, '') AS branch_name,
            COALESCE(ce.company_role_id, 3) AS role_id,
            COALESCE(ce.designation, '') AS designation,
            COALESCE(att.cnt, 0) AS attendance_count,
            ce.created_at AS joined_at
        FROM company_employee ce
        LEFT JOIN company c ON c.id = ce.company_id
        LEFT JOIN company_branch cb ON cb.id = ce.company_branch_id
        LEFT JOIN (
            SELECT company_employee_id, COUNT(*) AS cnt
            FROM company_attendance
            GROUP BY company_employee_id
        ) att ON att.company_employee_id = ce.id
        WHERE ce.user_id = $1 AND ce.is_deleted = '0'
        ORDER BY attendance_count DESC, joined_at ASC`

// MembershipRepository reads company membership rows from whichever
// backend serves the request's environment.
type MembershipRepository struct {
	backends *backend.Selector
}

// NewMembershipRepository builds the repository.
func NewMembershipRepository(backends *backend.Selector) *MembershipRepository {
	return &MembershipRepository{backends: backends}
}

// ListByUser returns all active memberships for a user id.
func (r *MembershipRepository) ListByUser(ctx context.Context, env domain.Environment, userID int64) ([]domain.CompanyMembership, error) {
	gw, err := r.backends.Gateway(env)
	if err != nil {
		return nil, err
	}

	rows, err := gw.Execute(ctx, membershipQuery, []any{userID})
	if err != nil {
		return nil, err
	}

	memberships := make([]domain.CompanyMembership, 0, len(rows))
	for _, row := range rows {
		memberships = append(memberships, domain.CompanyMembership{
			EmployeeID:      AsInt64(row["company_employee_id"]),
			CompanyID:       AsInt64(row["company_id"]),
			CompanyName:     AsString(row["company_name"]),
			BranchID:        AsInt64(row["company_branch_id"]),
			BranchName:      AsString(row["branch_name"]),
			Role:            domain.RoleFromLevel(int(AsInt64(row["role_id"]))),
			Designation:     AsString(row["designation"]),
			AttendanceCount: AsInt64(row["attendance_count"]),
			JoinedAt:        AsTime(row["joined_at"]),
		})
	}
	return memberships, nil
}

// AsInt64 coerces a decoded row value to int64. Webhook backends deliver
// numbers as float64 or strings depending on the JSON encoder upstream.
func AsInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		var out int64
		for _, r := range n {
			if r < '0' || r > '9' {
				return 0
			}
			out = out*10 + int64(r-'0')
		}
		return out
	}
	return 0
}

// AsString coerces a decoded row value to string.
func AsString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// AsTime coerces a decoded row value to time.Time, accepting the formats
// the two backends produce.
func AsTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
