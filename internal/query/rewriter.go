package query

import (
	"regexp"
	"strings"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/rbac"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// Tables whose rows are scoped to a company/branch/employee. Every
// reference to one of these in the top-level FROM clause gets its own
// copy of the predicate.
var scopedTables = []string{
	"company_employee_salary_slip",
	"company_employee_leave",
	"company_employee_allowance",
	"company_employee_deduction",
	"company_employee_location",
	"company_attendance_master",
	"company_attendance",
	"company_employee",
	"company_approval",
	"attendance_report",
	"attendance_daily_summary",
	"attendance_monthly_summary",
	"task_management",
	"meeting_management",
	"company_document",
	"company_holiday",
	"announcement",
	"roster",
}

var (
	trailingClauses = regexp.MustCompile(`(?i)\b(GROUP\s+BY|HAVING|ORDER\s+BY|LIMIT|OFFSET|FETCH|FOR)\b`)
	whereKeyword    = regexp.MustCompile(`(?i)\bWHERE\b`)
	aliasStopWords  = map[string]struct{}{
		"where": {}, "on": {}, "join": {}, "left": {}, "right": {}, "inner": {},
		"outer": {}, "full": {}, "cross": {}, "group": {}, "order": {}, "limit": {},
		"offset": {}, "having": {}, "using": {}, "as": {}, "fetch": {}, "for": {},
	}
)

// Rewrite injects the RBAC predicate into a validated read statement.
// The caller's own WHERE expression is parenthesized and the predicate
// ANDed after it, so caller conditions can narrow the result set but never
// widen it past the predicate. Validation has already rejected comments
// and extra statements, so the injected clause cannot be terminated away.
func Rewrite(stmt string, pred rbac.Predicate) (string, error) {
	if pred.Unrestricted {
		return stmt, nil
	}

	trimmed := strings.TrimRight(strings.TrimSpace(stmt), "; \t\n")
	masked, err := maskLiterals(trimmed)
	if err != nil {
		return "", err
	}

	prefixes, err := scopedTablePrefixes(masked)
	if err != nil {
		return "", err
	}
	if len(prefixes) == 0 {
		// Only reference tables are involved; there is nothing to scope.
		return trimmed, nil
	}
	parts := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		if c := pred.SQL(prefix); c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return trimmed, nil
	}
	clause := strings.Join(parts, " AND ")

	insertPos := len(trimmed)
	if loc := findTopLevel(masked, trailingClauses); loc >= 0 {
		insertPos = loc
	}

	wherePos := -1
	for _, loc := range whereKeyword.FindAllStringIndex(masked, -1) {
		if loc[0] < insertPos && parenDepthAt(masked, loc[0]) == 0 {
			wherePos = loc[0]
			break
		}
	}

	if wherePos < 0 {
		head := strings.TrimRight(trimmed[:insertPos], " \t\n")
		tail := trimmed[insertPos:]
		rewritten := head + " WHERE " + clause
		if tail != "" {
			rewritten += " " + strings.TrimLeft(tail, " \t\n")
		}
		return rewritten, nil
	}

	// WHERE <expr> <trailing> → WHERE (<expr>) AND <pred> <trailing>
	exprStart := wherePos + len("WHERE")
	expr := strings.TrimSpace(trimmed[exprStart:insertPos])
	if expr == "" {
		return "", apperrors.NewUnsafeQuery("malformed WHERE clause")
	}
	head := trimmed[:exprStart]
	tail := trimmed[insertPos:]
	rewritten := head + " (" + expr + ") AND " + clause
	if tail != "" {
		rewritten += " " + strings.TrimLeft(tail, " \t\n")
	}
	return rewritten, nil
}

// scopedTablePrefixes collects the predicate prefix for every scoped table
// reference in the masked statement: the declared alias when present, the
// table name otherwise. Joined tables and self-joins each contribute one
// prefix. A scoped table inside a subquery or CTE body cannot be bounded
// by a clause injected at the top level, so such references are rejected.
func scopedTablePrefixes(masked string) ([]string, error) {
	seen := make(map[string]struct{})
	var prefixes []string
	for _, table := range scopedTables {
		re := regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+` + table + `\b(?:\s+(?:AS\s+)?([a-zA-Z_][a-zA-Z0-9_]*))?`)
		for _, loc := range re.FindAllStringSubmatchIndex(masked, -1) {
			if parenDepthAt(masked, loc[0]) > 0 {
				return nil, apperrors.NewUnsafeQuery(
					"scoped table " + table + " may only appear in the top-level FROM clause")
			}
			prefix := table
			if loc[2] >= 0 {
				alias := masked[loc[2]:loc[3]]
				if _, stop := aliasStopWords[strings.ToLower(alias)]; !stop {
					prefix = alias
				}
			}
			if _, dup := seen[prefix]; dup {
				continue
			}
			seen[prefix] = struct{}{}
			prefixes = append(prefixes, prefix)
		}
	}
	return prefixes, nil
}
