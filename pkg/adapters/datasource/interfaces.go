// Package datasource is the relational-database boundary: a pooled,
// timeout-bounded EXPLAIN-only safety check and a separate real execution
// call. The engine never queries the catalog through this boundary; schema
// knowledge arrives in the retrieval packet.
package datasource

import (
	"context"
	"time"
)

// QueryExecutor runs generated SQL against one datasource. Implementations
// must be safe for concurrent use: the evaluator fans out ValidateQuery
// calls across pooled connections.
type QueryExecutor interface {
	// ValidateQuery runs an EXPLAIN-only check with a short statement
	// timeout. No side effects; an error is the database rejecting the
	// plan, classified by pkg/dberr. EXPLAIN success is a cheap proxy for
	// executability, not a guarantee.
	ValidateQuery(ctx context.Context, sqlQuery string) error

	// ExecuteQuery runs the statement for real under the user-facing
	// timeout and returns its rows.
	ExecuteQuery(ctx context.Context, sqlQuery string) (*QueryResult, error)

	// Ping verifies the datasource is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close()
}

// QueryResult holds the rows of one execution.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// Config is the connection configuration for one datasource.
type Config struct {
	// Driver selects the executor implementation ("postgres", "mssql").
	Driver string `yaml:"driver" env:"DATASOURCE_DRIVER" env-default:"postgres"`
	// DSN is the connection string. Secret; env-only.
	DSN string `yaml:"-" env:"DATASOURCE_DSN"`
	// MaxConns bounds the pool.
	MaxConns int32 `yaml:"max_conns" env:"DATASOURCE_MAX_CONNS" env-default:"10"`
	// ValidateTimeout bounds each EXPLAIN-only check.
	ValidateTimeout time.Duration `yaml:"validate_timeout" env:"DATASOURCE_VALIDATE_TIMEOUT" env-default:"3s"`
	// ExecuteTimeout bounds real execution.
	ExecuteTimeout time.Duration `yaml:"execute_timeout" env:"DATASOURCE_EXECUTE_TIMEOUT" env-default:"30s"`
}

func (c Config) withDefaults() Config {
	if c.MaxConns <= 0 {
		c.MaxConns = 10
	}
	if c.ValidateTimeout <= 0 {
		c.ValidateTimeout = 3 * time.Second
	}
	if c.ExecuteTimeout <= 0 {
		c.ExecuteTimeout = 30 * time.Second
	}
	return c
}
