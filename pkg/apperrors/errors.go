package apperrors

import "errors"

var (
	ErrTenantRequired   = errors.New("tenant id is required")
	ErrMetadataMissing  = errors.New("common metadata bundle is missing")
	ErrSQLGeneration    = errors.New("failed to generate SQL")
	ErrValidationFailed = errors.New("query validation failed")
	ErrExecutionFailed  = errors.New("query execution failed")
	ErrUnsafeInput      = errors.New("input rejected by injection screen")
)
