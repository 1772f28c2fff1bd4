// Package redisdedupe implements the notification dedupe record store on
// Redis. SET NX makes claim-if-absent atomic across dispatcher instances;
// records carry a retention TTL so the keyspace does not grow unbounded.
package redisdedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "admitflow:dispatched:"

// DefaultRetention keeps dedupe records long past any plausible redelivery
// window.
const DefaultRetention = 30 * 24 * time.Hour

// Store implements dispatch.DedupeStore over a Redis client.
type Store struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewStore wraps an existing Redis client. A non-positive retention falls
// back to DefaultRetention.
func NewStore(client redis.UniversalClient, retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &Store{client: client, retention: retention}
}

// NewStoreFromURL connects to Redis using a redis:// URL.
func NewStoreFromURL(ctx context.Context, redisURL string, retention time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewStore(client, retention), nil
}

func (s *Store) MarkIfAbsent(ctx context.Context, key string) (bool, error) {
	claimed, err := s.client.SetNX(ctx, keyPrefix+key, 1, s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record dedupe key: %w", err)
	}

	return claimed, nil
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
