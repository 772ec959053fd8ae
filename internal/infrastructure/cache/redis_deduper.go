package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// RedisEventDeduper implements EventDeduper using Redis
// This is suitable for distributed deployments where multiple instances
// receive webhook deliveries for the same integration
type RedisEventDeduper struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisEventDeduper creates a new Redis-based event deduper
func NewRedisEventDeduper(cfg RedisConfig) (*RedisEventDeduper, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisEventDeduper{
		client:    client,
		keyPrefix: "webhook:event:",
	}, nil
}

// NewRedisEventDeduperWithClient creates a deduper with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisEventDeduperWithClient(client *redis.Client, keyPrefix string) *RedisEventDeduper {
	if keyPrefix == "" {
		keyPrefix = "webhook:event:"
	}
	return &RedisEventDeduper{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed marks an event as processed with a TTL
// Returns true if the event was newly marked, false if it was already processed
// Uses SETNX (SET if Not eXists) for atomic operation
func (s *RedisEventDeduper) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	key := s.keyPrefix + eventID

	result, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return result, nil
}

// IsProcessed checks if an event has already been processed
func (s *RedisEventDeduper) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	key := s.keyPrefix + eventID

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if event is processed: %w", err)
	}
	return exists > 0, nil
}

// Close closes the Redis client
func (s *RedisEventDeduper) Close() error {
	return s.client.Close()
}

// Ensure RedisEventDeduper implements EventDeduper
var _ integration.EventDeduper = (*RedisEventDeduper)(nil)
