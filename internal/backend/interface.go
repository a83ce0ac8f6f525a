package backend

import (
	"context"
	"time"

	"bankcore/internal/amqp"
	"bankcore/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, the optional broker client and the
// function releasing both.
type BackendResult struct {
	Store ledger.Store
	// AMQP is nil when messaging is disabled or the broker was unreachable.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Notifier returns the broker-backed notifier, or nil without a broker.
func (r *BackendResult) Notifier() ledger.Notifier {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Publisher returns the broker-backed record publisher, or nil without a broker.
func (r *BackendResult) Publisher() ledger.RecordPublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
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

	// Messaging, disabled when AMQPURL is empty
	AMQPURL  string
	Topology amqp.Topology
	// RequireAMQP fails creation instead of continuing without a broker.
	RequireAMQP bool

	// Analytics cache
	Cache CacheConfig
}

// CacheConfig selects the analytics cache implementation.
type CacheConfig struct {
	Type          CacheType
	TTL           time.Duration
	Size          int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
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

// CacheType names an analytics cache implementation.
type CacheType string

const (
	NoCache     CacheType = "none"
	MemoryCache CacheType = "memory"
	RedisCache  CacheType = "redis"
)
