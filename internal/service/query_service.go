package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/backend"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/events"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/query"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/rbac"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/reqctx"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/repository"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// Raw query responses are capped so a broad SELECT cannot flood the
// client; callers narrow with WHERE/LIMIT to page through larger sets.
const maxRawQueryRows = 100

// QueryService validates, scopes and executes caller-supplied SQL.
// Every statement passes the same pipeline: authorize, validate against
// the table fence, inject the scope predicate, execute, mask.
type QueryService struct {
	backends   *backend.Selector
	schemas    *repository.SchemaRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewQueryService builds the service.
func NewQueryService(backends *backend.Selector, schemas *repository.SchemaRepository, dispatcher events.Dispatcher, logger *zap.Logger) *QueryService {
	return &QueryService{
		backends:   backends,
		schemas:    schemas,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run executes one raw read-only statement under the caller's scope.
func (s *QueryService) Run(ctx context.Context, rc *reqctx.RequestContext, stmt string) (*domain.QueryResult, error) {
	pred, err := rbac.Authorize(rc.Scope, rbac.OpRawQuery)
	if err != nil {
		s.auditDenial(ctx, rc, "run_sql_query", rbac.OpRawQuery, err)
		return nil, err
	}

	allowed := query.AllowedTables(rc.Scope)
	if err := query.Validate(stmt, allowed); err != nil {
		s.auditRejection(ctx, rc, stmt, err)
		return nil, err
	}

	scoped, err := query.Rewrite(stmt, pred)
	if err != nil {
		s.auditRejection(ctx, rc, stmt, err)
		return nil, err
	}

	gw, err := s.backends.Gateway(rc.Environment)
	if err != nil {
		return nil, err
	}

	rows, err := gw.Execute(ctx, scoped, nil)
	if err != nil {
		s.logger.Error("scoped query failed",
			zap.Int64("user_id", rc.Identity.UserID),
			zap.Error(err))
		return nil, err
	}

	truncated := false
	if len(rows) > maxRawQueryRows {
		rows = rows[:maxRawQueryRows]
		truncated = true
	}
	rows = s.maskRows(rc.Scope, rows)
	annotation := rbac.Annotation(rc.Scope, pred)

	s.publish(ctx, rc, events.Event{
		Type: events.EventQueryExecuted,
		Tool: "run_sql_query",
		Payload: events.QueryExecutedPayload{
			Statement: scoped,
			RowCount:  len(rows),
			Unscoped:  pred.Unrestricted,
		},
	})

	return &domain.QueryResult{Rows: rows, RowCount: len(rows), Scope: annotation, Truncated: truncated}, nil
}

// ListTables returns the table fence for the caller's scope.
func (s *QueryService) ListTables(rc *reqctx.RequestContext) []string {
	return query.AllowedTables(rc.Scope)
}

// TableSchema describes one allowed table. Tables outside the caller's
// fence are invisible, same as in raw queries.
func (s *QueryService) TableSchema(ctx context.Context, rc *reqctx.RequestContext, table string) ([]repository.ColumnInfo, error) {
	if _, err := rbac.Authorize(rc.Scope, rbac.OpSchemaIntrospection); err != nil {
		s.auditDenial(ctx, rc, "get_table_schema", rbac.OpSchemaIntrospection, err)
		return nil, err
	}

	allowed := false
	for _, t := range query.AllowedTables(rc.Scope) {
		if t == table {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.NewTableNotAllowed([]string{table})
	}

	return s.schemas.TableColumns(ctx, rc.Environment, table)
}

// maskRows hides sensitive fields in every row that is not the caller's
// own employee record. SuperAdmin sees everything.
func (s *QueryService) maskRows(scope domain.AccessScope, rows []map[string]any) []map[string]any {
	if scope.SuperAdmin {
		return rows
	}
	masked := make([]map[string]any, len(rows))
	for i, row := range rows {
		target := repository.AsInt64(row["company_employee_id"])
		masked[i] = rbac.MaskSensitiveFields(scope, row, target)
	}
	return masked
}

func (s *QueryService) auditDenial(ctx context.Context, rc *reqctx.RequestContext, tool string, op rbac.Operation, err error) {
	s.publish(ctx, rc, events.Event{
		Type: events.EventAccessDenied,
		Tool: tool,
		Payload: events.AccessDeniedPayload{
			Code:      apperrors.CodeOf(err),
			Role:      rc.Scope.Role().String(),
			Operation: op.String(),
		},
	})
}

func (s *QueryService) auditRejection(ctx context.Context, rc *reqctx.RequestContext, stmt string, err error) {
	s.publish(ctx, rc, events.Event{
		Type: events.EventQueryRejected,
		Tool: "run_sql_query",
		Payload: events.QueryRejectedPayload{
			Statement: stmt,
			Code:      apperrors.CodeOf(err),
		},
	})
}

func (s *QueryService) publish(ctx context.Context, rc *reqctx.RequestContext, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.Actor = events.Actor{
		UserID: rc.Identity.UserID,
		Phone:  rc.Identity.Phone,
		Name:   rc.Identity.Name,
	}
	event.Environment = rc.Environment
	_ = s.dispatcher.Publish(ctx, event)
}
