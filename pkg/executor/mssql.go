package executor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/logging"
)

// MSSQLExecutor executes statements against SQL Server via database/sql.
type MSSQLExecutor struct {
	db      *sql.DB
	timeout time.Duration
	logger  *zap.Logger
}

// NewMSSQLExecutor opens a SQL Server connection pool.
func NewMSSQLExecutor(connStr string, timeout time.Duration, logger *zap.Logger) (*MSSQLExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}

	return &MSSQLExecutor{
		db:      db,
		timeout: timeout,
		logger:  logger.Named("executor"),
	}, nil
}

// NewMSSQLExecutorFromDB wraps an existing handle (used by tests with
// sqlmock).
func NewMSSQLExecutorFromDB(db *sql.DB, timeout time.Duration, logger *zap.Logger) *MSSQLExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MSSQLExecutor{db: db, timeout: timeout, logger: logger.Named("executor")}
}

// Execute implements SQLExecutor.
func (e *MSSQLExecutor) Execute(ctx context.Context, statement string) (*QueryResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	rows, err := e.db.QueryContext(ctx, statement)
	if err != nil {
		e.logger.Warn("query failed",
			zap.String("sql", logging.SanitizeQuery(statement)),
			zap.Error(err))
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// Close implements SQLExecutor.
func (e *MSSQLExecutor) Close() error {
	return e.db.Close()
}
