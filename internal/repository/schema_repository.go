package repository

import (
	"context"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/backend"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
)

const columnsQuery = `
        SELECT column_name, data_type, is_nullable, COALESCE(column_default, '') AS column_default
        FROM information_schema.columns
        WHERE table_schema = 'public' AND table_name = $1
        ORDER BY ordinal_position`

// ColumnInfo describes one column of an HR table.
type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// SchemaRepository answers schema introspection requests from
// information_schema on the serving backend.
type SchemaRepository struct {
	backends *backend.Selector
}

// NewSchemaRepository builds the repository.
func NewSchemaRepository(backends *backend.Selector) *SchemaRepository {
	return &SchemaRepository{backends: backends}
}

// TableColumns returns the column layout of one table.
func (r *SchemaRepository) TableColumns(ctx context.Context, env domain.Environment, table string) ([]ColumnInfo, error) {
	gw, err := r.backends.Gateway(env)
	if err != nil {
		return nil, err
	}

	rows, err := gw.Execute(ctx, columnsQuery, []any{table})
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnInfo, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, ColumnInfo{
			Name:     AsString(row["column_name"]),
			DataType: AsString(row["data_type"]),
			Nullable: AsString(row["is_nullable"]) == "YES",
			Default:  AsString(row["column_default"]),
		})
	}
	return columns, nil
}
