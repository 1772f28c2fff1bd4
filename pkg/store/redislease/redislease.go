// Package redislease implements the lease manager on Redis. A lease is a
// volatile key with a holder token value; SET NX PX gives atomic acquire with
// expiry, and release/renew verify ownership server-side with small Lua
// scripts so an expired-and-reacquired lease is never touched by its old
// holder.
package redislease

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enrollhq/admitflow/pkg/models"
	"github.com/enrollhq/admitflow/pkg/store"
)

const keyPrefix = "admitflow:lease:"

var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return -1
`)

var renewScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	return -1
`)

// Manager implements store.LeaseManager over a Redis client.
type Manager struct {
	client redis.UniversalClient
}

// NewManager wraps an existing Redis client.
func NewManager(client redis.UniversalClient) *Manager {
	return &Manager{client: client}
}

// NewManagerFromURL connects to Redis using a redis:// URL.
func NewManagerFromURL(ctx context.Context, redisURL string) (*Manager, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Manager{client: client}, nil
}

func (m *Manager) AcquireLease(ctx context.Context, applicationID, holderToken string, ttl time.Duration) (*models.Lease, error) {
	acquired, err := m.client.SetNX(ctx, keyPrefix+applicationID, holderToken, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease: %w", err)
	}

	if !acquired {
		// Re-entrant acquire by the same holder extends the lease.
		current, err := m.client.Get(ctx, keyPrefix+applicationID).Result()
		if err != nil || current != holderToken {
			return nil, store.NewStateError("AcquireLease", applicationID, store.ErrLeaseHeld)
		}

		return m.RenewLease(ctx, applicationID, holderToken, ttl)
	}

	return &models.Lease{
		ApplicationID: applicationID,
		HolderToken:   holderToken,
		ExpiresAt:     time.Now().UTC().Add(ttl),
	}, nil
}

func (m *Manager) RenewLease(ctx context.Context, applicationID, holderToken string, ttl time.Duration) (*models.Lease, error) {
	result, err := renewScript.Run(ctx, m.client,
		[]string{keyPrefix + applicationID}, holderToken, ttl.Milliseconds()).Int64()
	if err != nil {
		return nil, fmt.Errorf("failed to renew lease: %w", err)
	}

	if result < 0 {
		return nil, store.NewStateError("RenewLease", applicationID, store.ErrLeaseNotHeld)
	}

	return &models.Lease{
		ApplicationID: applicationID,
		HolderToken:   holderToken,
		ExpiresAt:     time.Now().UTC().Add(ttl),
	}, nil
}

func (m *Manager) ReleaseLease(ctx context.Context, applicationID, holderToken string) error {
	result, err := releaseScript.Run(ctx, m.client,
		[]string{keyPrefix + applicationID}, holderToken).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}

	if result < 0 {
		// The key is gone (expired) or owned by someone else. An expired
		// lease is not an error to release.
		current, err := m.client.Exists(ctx, keyPrefix+applicationID).Result()
		if err == nil && current > 0 {
			return store.NewStateError("ReleaseLease", applicationID, store.ErrLeaseNotHeld)
		}
	}

	return nil
}

// Close closes the underlying Redis client.
func (m *Manager) Close() error {
	return m.client.Close()
}
