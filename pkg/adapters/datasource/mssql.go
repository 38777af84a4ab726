package datasource

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver
	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/dberr"
	"github.com/sqlmend/sqlmend/pkg/logging"
)

// MSSQLExecutor runs queries against SQL Server through database/sql.
type MSSQLExecutor struct {
	db     *sql.DB
	cfg    Config
	logger *zap.Logger
}

var _ QueryExecutor = (*MSSQLExecutor)(nil)

// NewMSSQLExecutor creates a pooled SQL Server executor.
func NewMSSQLExecutor(ctx context.Context, cfg Config, logger *zap.Logger) (*MSSQLExecutor, error) {
	cfg = cfg.withDefaults()

	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	db.SetMaxOpenConns(int(cfg.MaxConns))

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}

	logger.Info("datasource connected",
		zap.String("driver", "mssql"),
		zap.String("dsn", logging.SanitizeConnectionString(cfg.DSN)))

	return &MSSQLExecutor{db: db, cfg: cfg, logger: logger.Named("datasource")}, nil
}

// ValidateQuery implements QueryExecutor. SQL Server has no EXPLAIN verb;
// preparing the statement makes the server parse and bind it against the
// catalog, which catches the same undefined-reference errors.
func (e *MSSQLExecutor) ValidateQuery(ctx context.Context, sqlQuery string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ValidateTimeout)
	defer cancel()

	stmt, err := e.db.PrepareContext(ctx, sqlQuery)
	if err != nil {
		e.logger.Debug("prepare check failed",
			zap.String("sql", logging.SanitizeQuery(sqlQuery)),
			zap.String("error", logging.SanitizeError(err)))
		return dberr.Classify(err)
	}
	return stmt.Close()
}

// ExecuteQuery implements QueryExecutor.
func (e *MSSQLExecutor) ExecuteQuery(ctx context.Context, sqlQuery string) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ExecuteTimeout)
	defer cancel()

	rows, err := e.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, dberr.Classify(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	result := &QueryResult{Columns: columns, Rows: make([]map[string]any, 0)}
	values := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
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
func (e *MSSQLExecutor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close implements QueryExecutor.
func (e *MSSQLExecutor) Close() {
	e.db.Close()
}
