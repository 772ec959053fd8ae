package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects a client and verifies the connection
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisOAuthStateStore implements OAuthStateStore using Redis
// This is suitable for distributed deployments where the authorization
// redirect and the provider callback can land on different instances
type RedisOAuthStateStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisOAuthStateStore creates a new Redis-based OAuth state store
func NewRedisOAuthStateStore(cfg RedisConfig) (*RedisOAuthStateStore, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisOAuthStateStore{
		client:    client,
		keyPrefix: "oauth:state:",
	}, nil
}

// NewRedisOAuthStateStoreWithClient creates a store with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisOAuthStateStoreWithClient(client *redis.Client, keyPrefix string) *RedisOAuthStateStore {
	if keyPrefix == "" {
		keyPrefix = "oauth:state:"
	}
	return &RedisOAuthStateStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Put stores a state with a TTL. Expired states are reaped by Redis.
func (s *RedisOAuthStateStore) Put(ctx context.Context, state *integration.OAuthState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode oauth state: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+state.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth state: %w", err)
	}
	return nil
}

// Consume atomically fetches and deletes a state
// GETDEL guarantees a token can only be redeemed once, even when two
// callbacks race across instances
func (s *RedisOAuthStateStore) Consume(ctx context.Context, token string) (*integration.OAuthState, error) {
	payload, err := s.client.GetDel(ctx, s.keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, integration.ErrOAuthStateNotFound
		}
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	var state integration.OAuthState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to decode oauth state: %w", err)
	}
	return &state, nil
}

// Close closes the Redis client
func (s *RedisOAuthStateStore) Close() error {
	return s.client.Close()
}

// Ensure RedisOAuthStateStore implements OAuthStateStore
var _ integration.OAuthStateStore = (*RedisOAuthStateStore)(nil)
