package backend

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/config"
	apperrors "github.com/sayantan-work/easydo-hrms-mcp/pkg/util"
)

// DirectGateway executes statements over a direct database connection.
type DirectGateway struct {
	pool *pgxpool.Pool
}

// NewDirectGateway establishes a connection pool for the given DSN.
func NewDirectGateway(ctx context.Context, dsn string, cfg config.BackendConfig, logger *zap.Logger) (*DirectGateway, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres")
	return &DirectGateway{pool: pool}, nil
}

// Execute runs the statement and decodes rows into generic maps keyed by
// column name.
func (g *DirectGateway) Execute(ctx context.Context, stmt string, params []any) ([]map[string]any, error) {
	rows, err := g.pool.Query(ctx, stmt, params...)
	if err != nil {
		return nil, apperrors.NewBackendError(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, apperrors.NewBackendError(err)
		}
		record := make(map[string]any, len(fields))
		for i, field := range fields {
			record[string(field.Name)] = values[i]
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewBackendError(err)
	}
	return out, nil
}

// Ping verifies pool connectivity.
func (g *DirectGateway) Ping(ctx context.Context) error {
	return g.pool.Ping(ctx)
}

// Close releases pool resources.
func (g *DirectGateway) Close() {
	if g != nil && g.pool != nil {
		g.pool.Close()
	}
}
