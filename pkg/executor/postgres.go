package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/database"
	"github.com/schoolgrid/schoolgrid-engine/pkg/logging"
)

// PostgresExecutor executes statements against a postgres pool.
type PostgresExecutor struct {
	db      *database.DB
	timeout time.Duration
	logger  *zap.Logger
}

// NewPostgresExecutor wraps an existing pool. The timeout bounds each
// statement; a timeout is reported like any other execution error so the
// regeneration loop can act on it.
func NewPostgresExecutor(db *database.DB, timeout time.Duration, logger *zap.Logger) *PostgresExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresExecutor{
		db:      db,
		timeout: timeout,
		logger:  logger.Named("executor"),
	}
}

// Execute implements SQLExecutor.
func (e *PostgresExecutor) Execute(ctx context.Context, statement string) (*QueryResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	rows, err := e.db.Query(ctx, statement)
	if err != nil {
		e.logger.Warn("query failed",
			zap.String("sql", logging.SanitizeQuery(statement)),
			zap.Error(err))
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	e.logger.Debug("query executed",
		zap.Int("rows", len(resultRows)),
		zap.Duration("elapsed", time.Since(start)))

	return &QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// Close implements SQLExecutor.
func (e *PostgresExecutor) Close() error {
	e.db.Close()
	return nil
}
