package backend

import (
	"context"
	"fmt"
	"time"

	"bankcore/internal/amqp"
	"bankcore/internal/cache"
	"bankcore/internal/ledger"
	"bankcore/internal/log"
	"bankcore/internal/services"
	"bankcore/internal/storage"
	"bankcore/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	dial   func(url string, t amqp.Topology) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		dial:   amqp.NewClient,
	}
}

// Ensure interface conformance
var _ Factory = (*DefaultFactory)(nil)

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store ledger.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Store: store}
	if config.AMQPURL != "" {
		client, err := f.dial(config.AMQPURL, config.Topology)
		switch {
		case err != nil && config.RequireAMQP:
			store.Close()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		case err != nil:
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without messaging", log.FieldError, err)
		default:
			result.AMQP = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.Topology.Exchange,
				"notify_queue", config.Topology.NotifyQueue,
				"export_queue", config.Topology.ExportQueue)
		}
	}

	result.Cleanup = func() error {
		if result.AMQP != nil {
			if err := result.AMQP.Close(); err != nil {
				f.logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
		return store.Close()
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (ledger.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

// CreateAnalyticsCache builds the breakdown cache selected by config. The
// cleanup function is never nil.
func (f *DefaultFactory) CreateAnalyticsCache(ctx context.Context, config CacheConfig) (cache.Cache[services.BreakdownCacheEntry], CleanupFunc, error) {
	noop := func() error { return nil }

	switch config.Type {
	case "", NoCache:
		return cache.Noop[services.BreakdownCacheEntry]{}, noop, nil
	case MemoryCache:
		size := config.Size
		if size <= 0 {
			size = 1000
		}
		ttl := config.TTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		mem := cache.NewMemory[services.BreakdownCacheEntry](size, ttl)
		manager := cache.NewManager()
		manager.Register(mem)
		manager.StartCleanup(ttl)
		f.logger.InfoContext(ctx, "Initialized in-process analytics cache", "size", size, "ttl", ttl)
		return mem, func() error {
			manager.Stop()
			st := mem.Stats()
			f.logger.InfoContext(ctx, "Analytics cache closed",
				"hits", st.Hits, "misses", st.Misses, "evictions", st.Evictions, "expired", st.Expired)
			return nil
		}, nil
	case RedisCache:
		client, err := cache.NewRedisClient(config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to redis: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized redis analytics cache", "addr", config.RedisAddr, "ttl", config.TTL)
		return cache.NewRedisCache[services.BreakdownCacheEntry](client, "bankcore:analytics:", config.TTL), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("invalid cache type: %s", config.Type)
	}
}
