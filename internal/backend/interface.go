package backend

import (
	"context"

	"buestanflow/internal/records"
)

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve reads right now
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the record store and its lifecycle hooks.
// Cleanup and Ready may be nil.
type BackendResult struct {
	Store   records.Store
	Type    BackendType
	Cleanup CleanupFunc
	Ready   ReadyFunc
}

// Close runs Cleanup if the backend has one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// CheckReady runs Ready if the backend has one.
func (r *BackendResult) CheckReady(ctx context.Context) error {
	if r == nil || r.Ready == nil {
		return nil
	}
	return r.Ready(ctx)
}

// Factory creates record stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory specific; empty uses the demo ledger
	SeedFile string

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
