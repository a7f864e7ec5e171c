package backend

import (
	"context"

	"fintrack/internal/ledger"
)

// CleanupFunc releases whatever a backend opened.
type CleanupFunc func() error

// BackendResult contains the store, the optional event publisher and a
// cleanup function. Publisher is nil when AMQP is not configured.
type BackendResult struct {
	Store     ledger.Store
	Publisher ledger.EventPublisher
	Cleanup   CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	// AMQP is optional for every backend type.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// IsSQL reports whether the backend persists across processes.
func (bt BackendType) IsSQL() bool {
	return bt == SQLiteBackend || bt == PostgresBackend
}
