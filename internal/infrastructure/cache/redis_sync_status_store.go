package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	defaultStatusKeyPrefix = "shopify:sync:"
	defaultStatusTTL       = 7 * 24 * time.Hour
)

// RedisSyncStatusStore implements SyncStatusStore using Redis so every
// instance serves the same diagnostics
type RedisSyncStatusStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ ports.SyncStatusStore = (*RedisSyncStatusStore)(nil)

// NewRedisClient connects to the Redis URL and verifies the connection
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisSyncStatusStoreWithClient creates a store with an existing Redis client
func NewRedisSyncStatusStoreWithClient(client *redis.Client, keyPrefix string) *RedisSyncStatusStore {
	if keyPrefix == "" {
		keyPrefix = defaultStatusKeyPrefix
	}
	return &RedisSyncStatusStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       defaultStatusTTL,
	}
}

func (s *RedisSyncStatusStore) tenantKey(tenantID string) string {
	return s.keyPrefix + "tenant:" + tenantID
}

func (s *RedisSyncStatusStore) sweepKey() string {
	return s.keyPrefix + "sweep:last"
}

// SaveTenantReport stores the latest report of a tenant
func (s *RedisSyncStatusStore) SaveTenantReport(ctx context.Context, report *domain.TenantSyncReport) error {
	return s.set(ctx, s.tenantKey(report.TenantID), report)
}

// GetTenantReport returns the latest report of a tenant or nil
func (s *RedisSyncStatusStore) GetTenantReport(ctx context.Context, tenantID string) (*domain.TenantSyncReport, error) {
	var report domain.TenantSyncReport
	found, err := s.get(ctx, s.tenantKey(tenantID), &report)
	if err != nil || !found {
		return nil, err
	}
	return &report, nil
}

// SaveSweepReport stores the latest sweep report
func (s *RedisSyncStatusStore) SaveSweepReport(ctx context.Context, report *domain.SweepReport) error {
	return s.set(ctx, s.sweepKey(), report)
}

// GetSweepReport returns the latest sweep report or nil
func (s *RedisSyncStatusStore) GetSweepReport(ctx context.Context) (*domain.SweepReport, error) {
	var report domain.SweepReport
	found, err := s.get(ctx, s.sweepKey(), &report)
	if err != nil || !found {
		return nil, err
	}
	return &report, nil
}

func (s *RedisSyncStatusStore) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode sync status: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save sync status: %w", err)
	}
	return nil
}

func (s *RedisSyncStatusStore) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get sync status: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode sync status: %w", err)
	}
	return true, nil
}
