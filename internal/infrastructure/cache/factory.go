package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/config"
)

// StoreFactory creates OAuth state stores and event dedupers based on
// configuration. Both need the same single-use guarantees, so they share
// fallback policy.
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when
// Redis is unavailable. Default is true (allow fallback)
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *StoreFactory) redisCfg() RedisConfig {
	return RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}
}

// CreateOAuthStateStore creates a state store backed by Redis when available.
// In-memory state stores break multi-instance deployments: the provider
// callback must land on the instance that began the authorization.
func (f *StoreFactory) CreateOAuthStateStore() (integration.OAuthStateStore, error) {
	store, err := NewRedisOAuthStateStore(f.redisCfg())
	if err == nil {
		f.logger.Info("using Redis OAuth state store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for OAuth state but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory OAuth state store. "+
		"Authorization callbacks must reach the instance that started the flow.",
		zap.Error(err),
	)
	return NewInMemoryOAuthStateStore(), nil
}

// CreateEventDeduper creates an event deduper backed by Redis when available
func (f *StoreFactory) CreateEventDeduper() (integration.EventDeduper, error) {
	deduper, err := NewRedisEventDeduper(f.redisCfg())
	if err == nil {
		f.logger.Info("using Redis event deduper")
		return deduper, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for webhook dedup but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory event deduper. "+
		"This may cause duplicate webhook processing in distributed deployments.",
		zap.Error(err),
	)
	return NewInMemoryEventDeduper(), nil
}
