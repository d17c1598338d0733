package rbac

import "github.com/sayantan-work/easydo-hrms-mcp/internal/domain"

// Fields hidden from everyone except the record's owner and SuperAdmin.
var sensitiveFields = []string{
	"pan_number",
	"aadhar_card_number",
	"uan_number",
	"bank_account_number",
	"bank_ifsc_code",
	"personal_email",
	"emergency_contact_number",
}

const hiddenValue = "***HIDDEN***"

// CanViewSensitiveFields reports whether the scope may see sensitive fields
// for the given employee record.
func CanViewSensitiveFields(scope domain.AccessScope, targetEmployeeID int64) bool {
	if scope.SuperAdmin {
		return true
	}
	for _, id := range scope.EmployeeIDs() {
		if id == targetEmployeeID {
			return true
		}
	}
	return false
}

// MaskSensitiveFields replaces sensitive fields in a record unless the
// scope owns it. The input map is not modified.
func MaskSensitiveFields(scope domain.AccessScope, record map[string]any, targetEmployeeID int64) map[string]any {
	if CanViewSensitiveFields(scope, targetEmployeeID) {
		return record
	}
	masked := make(map[string]any, len(record))
	for k, v := range record {
		masked[k] = v
	}
	for _, field := range sensitiveFields {
		if _, ok := masked[field]; ok {
			masked[field] = hiddenValue
		}
	}
	return masked
}
