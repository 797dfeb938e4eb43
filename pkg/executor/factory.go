package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/config"
	"github.com/schoolgrid/schoolgrid-engine/pkg/database"
)

// NewFromConfig creates the executor for the configured driver.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (SQLExecutor, error) {
	timeout := cfg.Pipeline.QueryTimeout()

	switch cfg.Database.Driver {
	case "postgres":
		db, err := database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.URL(),
			MaxConnections: cfg.Database.MaxConnections,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return NewPostgresExecutor(db, timeout, logger), nil
	case "mssql":
		return NewMSSQLExecutor(cfg.Database.URL(), timeout, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
