package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSQLTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("list_tables",
			mcplib.WithDescription("List the HR tables the caller may query through run_sql_query. The list depends on the caller's role."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
		),
		s.handleListTables,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_table_schema",
			mcplib.WithDescription("Describe the columns of one allowed HR table."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("table",
				mcplib.Description("Table name, as returned by list_tables"),
				mcplib.Required(),
			),
		),
		s.handleGetTableSchema,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("run_sql_query",
			mcplib.WithDescription(`Run a read-only SQL query against the HR database.

Rules enforced server-side:
- exactly one SELECT (or WITH ... SELECT) statement
- no comments, no mutations, no UNION/INTERSECT/EXCEPT
- explicit JOIN syntax only (no comma-separated FROM lists)
- scoped HR tables only in the top-level FROM clause, not in subqueries
- only tables from list_tables
- results are automatically filtered to the caller's company/branch/own records and capped at 100 rows

The filter is added to the query before execution; do not try to add your own company_id conditions, they will be intersected with the enforced scope.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description("The SELECT statement to run"),
				mcplib.Required(),
			),
			mcplib.WithString("company",
				mcplib.Description(`Company context for multi-company users: empty for the primary company, "all" for every company, or a company name`),
			),
		),
		s.handleRunSQLQuery,
	)
}

func (s *Server) handleListTables(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("list_tables")

	rc, err := s.freshContext(ctx, "")
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{
		"tables": s.queries.ListTables(rc),
		"role":   rc.Scope.Role().String(),
	}), nil
}

func (s *Server) handleGetTableSchema(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("get_table_schema")

	table := request.GetString("table", "")
	if table == "" {
		return errorResult(missingParam("table")), nil
	}

	rc, err := s.freshContext(ctx, "")
	if err != nil {
		return errorResult(err), nil
	}

	columns, err := s.queries.TableSchema(ctx, rc, table)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{
		"table":   table,
		"columns": columns,
	}), nil
}

func (s *Server) handleRunSQLQuery(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	s.metrics.RecordToolCall("run_sql_query")

	stmt := request.GetString("query", "")
	if stmt == "" {
		return errorResult(missingParam("query")), nil
	}

	rc, err := s.freshContext(ctx, request.GetString("company", ""))
	if err != nil {
		return errorResult(err), nil
	}

	result, err := s.queries.Run(ctx, rc, stmt)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result), nil
}
