package backend

import (
	"fmt"

	"bankcore/internal/amqp"
	"bankcore/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL: appConfig.AMQPURL,
		Topology: amqp.Topology{
			Exchange:    appConfig.AMQPExchange,
			NotifyQueue: appConfig.AMQPNotifyQueue,
			ExportQueue: appConfig.AMQPExportQueue,
		},

		Cache: CacheConfig{
			Type:          CacheType(appConfig.AnalyticsCache),
			TTL:           appConfig.AnalyticsCacheTTL,
			Size:          appConfig.AnalyticsCacheSize,
			RedisAddr:     appConfig.RedisAddr,
			RedisPassword: appConfig.RedisPassword,
			RedisDB:       appConfig.RedisDB,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// Memory backend doesn't require additional validation
	}

	if c.RequireAMQP && c.AMQPURL == "" {
		return fmt.Errorf("AMQP URL is required")
	}
	if c.AMQPURL != "" && c.Topology.Exchange == "" {
		return fmt.Errorf("AMQP exchange is required when AMQP URL is set")
	}

	switch c.Cache.Type {
	case "", NoCache, MemoryCache:
	case RedisCache:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("Redis address is required for redis cache")
		}
	default:
		return fmt.Errorf("invalid cache type: %s", c.Cache.Type)
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
