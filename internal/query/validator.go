package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// HR schema tables reachable through the raw-query tool. Anything outside
// this set is rejected before the statement leaves the process.
var tablesManager = []string{
	"company",
	"company_branch",
	"company_employee",
	"company_attendance",
	"company_attendance_master",
	"company_approval",
	"company_employee_salary_slip",
	"company_employee_leave",
	"company_employee_allowance",
	"company_employee_deduction",
	"company_employee_location",
	"company_document",
	"company_holiday",
	"attendance_report",
	"attendance_daily_summary",
	"attendance_monthly_summary",
	"task_management",
	"meeting_management",
	"announcement",
	"roster",
}

// Employees see a reduced slice: their own records and shared reference data.
var tablesEmployee = []string{
	"company",
	"company_branch",
	"company_employee",
	"company_attendance",
	"company_employee_salary_slip",
	"company_employee_leave",
	"company_holiday",
	"announcement",
	"task_management",
	"roster",
}

// AllowedTables returns the table allow-list for a scope. SuperAdmin gets
// the full HR set: predicate injection is skipped for them, the table
// fence is not.
func AllowedTables(scope domain.AccessScope) []string {
	if scope.SuperAdmin {
		return tablesManager
	}
	switch scope.Role() {
	case domain.RoleCompanyAdmin, domain.RoleBranchManager:
		return tablesManager
	default:
		return tablesEmployee
	}
}

var (
	forbiddenKeywords = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|TRUNCATE|ALTER|CREATE|GRANT|REVOKE|COPY|MERGE|CALL|EXECUTE|VACUUM|ANALYZE|REINDEX|CLUSTER|COMMENT|SET|RESET|LISTEN|NOTIFY|PREPARE|DEALLOCATE|LOCK|BEGIN|COMMIT|ROLLBACK|DO)\b`)
	setOperations     = regexp.MustCompile(`(?i)\b(UNION|INTERSECT|EXCEPT)\b`)
	tableRef          = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)?)`)
	cteName           = regexp.MustCompile(`(?i)(?:\bWITH\s+|,\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s+AS\s*\(`)
	firstWordPattern  = regexp.MustCompile(`^[a-zA-Z]+`)
	fromKeyword       = regexp.MustCompile(`(?i)\bFROM\b`)
)

// fromListTerminators are the keywords that end a FROM list. Commas seen
// after one of these belong to some other clause, not to the table list.
var fromListTerminators = map[string]struct{}{
	"where":  {},
	"group":  {},
	"having": {},
	"order":  {},
	"limit":  {},
	"offset": {},
	"fetch":  {},
	"for":    {},
	"window": {},
}

// Validate classifies a caller-supplied statement and rejects anything
// that is not exactly one read-only statement over allowed tables.
// The checks run on a literal-masked copy so string contents cannot hide
// or fake structure.
func Validate(stmt string, allowed []string) error {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return apperrors.NewValidationError("query cannot be empty", nil)
	}

	masked, err := maskLiterals(trimmed)
	if err != nil {
		return err
	}

	if strings.Contains(masked, "--") || strings.Contains(masked, "/*") || strings.Contains(masked, "#") {
		return apperrors.NewUnsafeQuery("comments are not allowed in queries")
	}

	if idx := strings.IndexByte(masked, ';'); idx >= 0 {
		if strings.TrimSpace(masked[idx+1:]) != "" {
			return apperrors.NewMutationNotAllowed("multiple statements are not allowed")
		}
	}

	first := strings.ToUpper(firstWordPattern.FindString(trimmed))
	if first != "SELECT" && first != "WITH" {
		return apperrors.NewMutationNotAllowed("only SELECT queries are allowed")
	}

	if match := forbiddenKeywords.FindString(masked); match != "" {
		return apperrors.NewMutationNotAllowed(
			fmt.Sprintf("query contains forbidden keyword: %s", strings.ToUpper(match)))
	}

	// Set operations splice additional result sets onto the statement and
	// escape predicate injection; inside a subquery they leak just the same.
	if setOperations.MatchString(masked) {
		return apperrors.NewUnsafeQuery("set operations are not allowed in scoped queries")
	}

	// A comma join hides its right-hand tables from FROM/JOIN extraction,
	// so they would dodge both the allow-list and the predicate.
	if hasCommaJoin(masked) {
		return apperrors.NewUnsafeQuery("comma joins are not supported, use explicit JOIN syntax")
	}

	tables := ExtractTables(masked)
	if len(tables) == 0 {
		return apperrors.NewUnsafeQuery("unable to determine referenced tables")
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, t := range allowed {
		allowedSet[strings.ToLower(t)] = struct{}{}
	}
	// CTE names are local to the statement, not schema tables.
	for _, match := range cteName.FindAllStringSubmatch(masked, -1) {
		allowedSet[strings.ToLower(match[1])] = struct{}{}
	}
	var outside []string
	for _, t := range tables {
		if _, ok := allowedSet[t]; !ok {
			outside = append(outside, t)
		}
	}
	if len(outside) > 0 {
		sort.Strings(outside)
		return apperrors.NewTableNotAllowed(outside)
	}

	return nil
}

// ExtractTables lists table names referenced by FROM/JOIN clauses of a
// literal-masked statement. Schema qualifiers are kept so that references
// into foreign schemas fail the allow-list.
func ExtractTables(masked string) []string {
	seen := make(map[string]struct{})
	var tables []string
	for _, match := range tableRef.FindAllStringSubmatch(masked, -1) {
		name := strings.ToLower(match[1])
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			tables = append(tables, name)
		}
	}
	return tables
}

// maskLiterals blanks the contents of string literals and quoted
// identifiers, preserving length and position of everything else.
// Unterminated quoting is rejected outright.
func maskLiterals(stmt string) (string, error) {
	out := []byte(stmt)
	i := 0
	for i < len(out) {
		quote := out[i]
		if quote != '\'' && quote != '"' {
			i++
			continue
		}
		j := i + 1
		closed := false
		for j < len(out) {
			if out[j] == quote {
				// Doubled quotes escape themselves inside literals.
				if j+1 < len(out) && out[j+1] == quote {
					out[j], out[j+1] = ' ', ' '
					j += 2
					continue
				}
				closed = true
				break
			}
			out[j] = ' '
			j++
		}
		if !closed {
			return "", apperrors.NewUnsafeQuery("unterminated string literal")
		}
		i = j + 1
	}
	return string(out), nil
}

// findTopLevel returns the index of the first match of re that sits at
// parenthesis depth zero, or -1.
func findTopLevel(masked string, re *regexp.Regexp) int {
	for _, loc := range re.FindAllStringIndex(masked, -1) {
		if parenDepthAt(masked, loc[0]) == 0 {
			return loc[0]
		}
	}
	return -1
}

// hasCommaJoin reports whether any FROM list in the masked statement
// separates table references with a comma.
func hasCommaJoin(masked string) bool {
	for _, loc := range fromKeyword.FindAllStringIndex(masked, -1) {
		if commaInFromList(masked, loc[1], parenDepthAt(masked, loc[0])) {
			return true
		}
	}
	return false
}

// commaInFromList scans forward from a FROM keyword sitting at the given
// parenthesis depth and reports whether a comma appears at that depth
// before the list ends. The list ends at a terminator keyword, at a
// closing paren that leaves the list's depth, or at the statement end.
func commaInFromList(masked string, start, depth int) bool {
	d := depth
	for i := start; i < len(masked); {
		c := masked[i]
		switch {
		case c == '(':
			d++
		case c == ')':
			d--
			if d < depth {
				return false
			}
		case c == ',' && d == depth:
			return true
		case c == ';' && d == depth:
			return false
		case d == depth && isIdentByte(c):
			j := i + 1
			for j < len(masked) && isIdentByte(masked[j]) {
				j++
			}
			if _, stop := fromListTerminators[strings.ToLower(masked[i:j])]; stop {
				return false
			}
			i = j
			continue
		}
		i++
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func parenDepthAt(s string, pos int) int {
	depth := 0
	for i := 0; i < pos && i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}
