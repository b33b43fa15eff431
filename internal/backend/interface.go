package backend

import (
	"context"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/ports"
	"ledger/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired ledger and everything it was built on
type BackendResult struct {
	Ledger     *services.Ledger
	Repository ports.Repository
	// AMQP is nil when no broker is configured or it could not be reached.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional event broker
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger
	Currency          string
	ProgressCacheSize int
	ProgressCacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
