package datasource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/dberr"
	"github.com/sqlmend/sqlmend/pkg/logging"
	"github.com/sqlmend/sqlmend/pkg/retry"
)

// PostgresExecutor runs queries through a pgx connection pool.
type PostgresExecutor struct {
	pool   *pgxpool.Pool
	cfg    Config
	logger *zap.Logger
}

var _ QueryExecutor = (*PostgresExecutor)(nil)

// NewPostgresExecutor creates a pooled Postgres executor. Pool creation is
// retried with backoff: a database restarting during deploy is routine.
func NewPostgresExecutor(ctx context.Context, cfg Config, logger *zap.Logger) (*PostgresExecutor, error) {
	cfg = cfg.withDefaults()

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse datasource DSN: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns

	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	logger.Info("datasource connected",
		zap.String("driver", "postgres"),
		zap.String("dsn", logging.SanitizeConnectionString(cfg.DSN)))

	return &PostgresExecutor{pool: pool, cfg: cfg, logger: logger.Named("datasource")}, nil
}

// ValidateQuery implements QueryExecutor: EXPLAIN under the short timeout.
// The connection returns to the pool on every path, including when the
// caller abandoned us under the evaluator's batch budget.
func (e *PostgresExecutor) ValidateQuery(ctx context.Context, sqlQuery string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ValidateTimeout)
	defer cancel()

	if _, err := e.pool.Exec(ctx, "EXPLAIN "+sqlQuery); err != nil {
		e.logger.Debug("explain check failed",
			zap.String("sql", logging.SanitizeQuery(sqlQuery)),
			zap.String("error", logging.SanitizeError(err)))
		return dberr.Classify(err)
	}
	return nil
}

// ExecuteQuery implements QueryExecutor.
func (e *PostgresExecutor) ExecuteQuery(ctx context.Context, sqlQuery string) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ExecuteTimeout)
	defer cancel()

	rows, err := e.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, dberr.Classify(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &QueryResult{Columns: make([]string, len(fields))}
	for i, fd := range fields {
		result.Columns[i] = string(fd.Name)
	}

	result.Rows = make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		rowMap := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			rowMap[col] = values[i]
		}
		result.Rows = append(result.Rows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Classify(err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// Ping implements QueryExecutor.
func (e *PostgresExecutor) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

// Close implements QueryExecutor.
func (e *PostgresExecutor) Close() {
	e.pool.Close()
}
