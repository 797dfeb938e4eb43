// Package executor runs generated read-only SQL against the
// school-records database. Two dialects are supported: postgres (pgx)
// and mssql (database/sql).
package executor

import "context"

// QueryResult contains the results of a SQL query execution.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// SQLExecutor executes a read-only SQL statement. Implementations must
// preserve database error messages verbatim because they are fed back
// into the regeneration prompt.
type SQLExecutor interface {
	Execute(ctx context.Context, statement string) (*QueryResult, error)
	Close() error
}
