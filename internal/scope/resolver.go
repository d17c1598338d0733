package scope

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/repository"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// RequestAll asks the resolver for every company an identity belongs to.
// It signals the policy engine to union-scope rather than restrict.
const RequestAll = "all"

// Resolver computes the companies, branches and roles an identity may act
// under. Results are computed fresh per request and never cached: role and
// membership can change between calls.
type Resolver struct {
	memberships *repository.MembershipRepository
	logger      *zap.Logger
}

// NewResolver builds the resolver.
func NewResolver(memberships *repository.MembershipRepository, logger *zap.Logger) *Resolver {
	return &Resolver{memberships: memberships, logger: logger}
}

// Memberships returns all company memberships for the identity, ordered by
// the primary-company policy.
func (r *Resolver) Memberships(ctx context.Context, env domain.Environment, identity domain.Identity) ([]domain.CompanyMembership, error) {
	memberships, err := r.memberships.ListByUser(ctx, env, identity.UserID)
	if err != nil {
		return nil, err
	}
	sortByPrimaryPolicy(memberships)
	return memberships, nil
}

// ResolveScope computes the AccessScope for one request.
//
// requested selects the company context:
//   - ""        → the primary company (most attendance records; ties break
//     by earliest membership, then lowest company id);
//   - "all"     → every membership, flagged for union scoping;
//   - a name    → the matching membership, or UnknownCompany.
//
// SuperAdmin sessions bypass membership checks entirely.
func (r *Resolver) ResolveScope(ctx context.Context, sess *domain.Session, requested string) (domain.AccessScope, error) {
	scope := domain.AccessScope{Identity: sess.Identity, SuperAdmin: sess.IsSuperAdmin}

	memberships, err := r.Memberships(ctx, sess.Environment, sess.Identity)
	if err != nil {
		if sess.IsSuperAdmin {
			// SuperAdmin keeps working without memberships; own-data tools
			// will simply have nothing to pin "my" queries to.
			r.logger.Warn("membership lookup failed for super admin", zap.Error(err))
			return scope, nil
		}
		return domain.AccessScope{}, err
	}

	requested = strings.TrimSpace(requested)
	switch {
	case sess.IsSuperAdmin:
		// Any company, or all of them, is reachable. Keep the memberships
		// (if any) so self-service tools know which rows are "mine".
		scope.Memberships = memberships
		scope.AllCompanies = true
		return scope, nil

	case len(memberships) == 0:
		return domain.AccessScope{}, apperrors.NewNoMembership(sess.Identity.UserID)

	case requested == "":
		scope.Memberships = memberships[:1]
		scope.Primary = true
		return scope, nil

	case strings.EqualFold(requested, RequestAll):
		scope.Memberships = memberships
		scope.AllCompanies = true
		return scope, nil

	default:
		m, ok := matchCompany(memberships, requested)
		if !ok {
			return domain.AccessScope{}, apperrors.NewUnknownCompany(requested)
		}
		scope.Memberships = []domain.CompanyMembership{m}
		return scope, nil
	}
}

// sortByPrimaryPolicy orders memberships so the primary company is first.
// The backend query already orders this way; sorting again keeps the policy
// explicit and deterministic regardless of transport.
func sortByPrimaryPolicy(memberships []domain.CompanyMembership) {
	sort.SliceStable(memberships, func(i, j int) bool {
		a, b := memberships[i], memberships[j]
		if a.AttendanceCount != b.AttendanceCount {
			return a.AttendanceCount > b.AttendanceCount
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.CompanyID < b.CompanyID
	})
}

// matchCompany finds a membership by company name: exact (case-insensitive)
// match wins, then unique substring match.
func matchCompany(memberships []domain.CompanyMembership, name string) (domain.CompanyMembership, bool) {
	lower := strings.ToLower(name)

	for _, m := range memberships {
		if strings.ToLower(m.CompanyName) == lower {
			return m, true
		}
	}

	var found domain.CompanyMembership
	matches := 0
	for _, m := range memberships {
		if strings.Contains(strings.ToLower(m.CompanyName), lower) {
			found = m
			matches++
		}
	}
	if matches == 1 {
		return found, true
	}
	return domain.CompanyMembership{}, false
}
