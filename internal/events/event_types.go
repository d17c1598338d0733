package events

import (
	"time"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
)

// EventType enumerates supported audit event identifiers.
type EventType string

const (
	EventLoginInitiated EventType = "login_initiated"
	EventLoginVerified  EventType = "login_verified"
	EventLogout         EventType = "logout"
	EventAccessDenied   EventType = "access_denied"
	EventQueryExecuted  EventType = "query_executed"
	EventQueryRejected  EventType = "query_rejected"
)

// Actor identifies who triggered an audit event.
type Actor struct {
	UserID int64  `json:"user_id,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Event represents an audit record emitted by the tool surface.
type Event struct {
	ID          string             `json:"id"`
	Type        EventType          `json:"type"`
	Actor       Actor              `json:"actor"`
	Environment domain.Environment `json:"environment,omitempty"`
	Tool        string             `json:"tool,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Payload     interface{}        `json:"payload,omitempty"`
}

// AccessDeniedPayload payload.
type AccessDeniedPayload struct {
	Code      string `json:"code"`
	Role      string `json:"role,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// QueryExecutedPayload payload.
type QueryExecutedPayload struct {
	Statement string `json:"statement"`
	RowCount  int    `json:"row_count"`
	Unscoped  bool   `json:"unscoped"`
}

// QueryRejectedPayload payload.
type QueryRejectedPayload struct {
	Statement string `json:"statement"`
	Code      string `json:"code"`
}
