package ports

import (
	"fmt"
)

// StoreError represents an error from tournament store operations.
// It includes the table and operation that failed.
type StoreError struct {
	// Table is the store table involved in the failed operation.
	Table string

	// Operation is the name of the store operation that failed.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: operation=%s, table=%s, err=%v", e.Operation, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError with the given details.
func NewStoreError(table, operation string, err error) *StoreError {
	return &StoreError{
		Table:     table,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError represents an error from configuration loading.
// Configuration errors are fatal: the tournament never starts on a
// config it cannot fully validate.
type ConfigError struct {
	// Path is the configuration file involved in the failed operation.
	Path string

	// Err is the underlying error that caused the load to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: path=%s, err=%v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(path string, err error) *ConfigError {
	return &ConfigError{
		Path: path,
		Err:  err,
	}
}
