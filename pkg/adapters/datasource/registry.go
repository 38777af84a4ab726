package datasource

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/apperrors"
)

// Constructor builds a QueryExecutor for one driver.
type Constructor func(ctx context.Context, cfg Config, logger *zap.Logger) (QueryExecutor, error)

// drivers maps driver names (and common aliases) to constructors.
var drivers = map[string]Constructor{
	"postgres": func(ctx context.Context, cfg Config, logger *zap.Logger) (QueryExecutor, error) {
		return NewPostgresExecutor(ctx, cfg, logger)
	},
	"mssql": func(ctx context.Context, cfg Config, logger *zap.Logger) (QueryExecutor, error) {
		return NewMSSQLExecutor(ctx, cfg, logger)
	},
}

func init() {
	drivers["postgresql"] = drivers["postgres"]
	drivers["sqlserver"] = drivers["mssql"]
}

// New builds the executor named by cfg.Driver.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (QueryExecutor, error) {
	ctor, ok := drivers[strings.ToLower(cfg.Driver)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrDriverUnknown, cfg.Driver)
	}
	return ctor(ctx, cfg, logger)
}

// SupportedDrivers lists the registered driver names.
func SupportedDrivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}
