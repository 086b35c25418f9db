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

const defaultSessionKeyPrefix = "shopify:install:"

// RedisInstallSessionStore keeps pending installs in Redis with the session's remaining lifetime as TTL
type RedisInstallSessionStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

var _ ports.InstallSessionStore = (*RedisInstallSessionStore)(nil)

// NewRedisInstallSessionStoreWithClient creates a store with an existing Redis client
func NewRedisInstallSessionStoreWithClient(client *redis.Client, keyPrefix string) *RedisInstallSessionStore {
	if keyPrefix == "" {
		keyPrefix = defaultSessionKeyPrefix
	}
	return &RedisInstallSessionStore{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

func (s *RedisInstallSessionStore) Create(ctx context.Context, session *domain.InstallSession) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: install session already expired", domain.ErrValidation)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode install session: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+session.State, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save install session: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the session so a state is usable once
func (s *RedisInstallSessionStore) Consume(ctx context.Context, state string) (*domain.InstallSession, error) {
	data, err := s.client.GetDel(ctx, s.keyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get install session: %w", err)
	}

	var session domain.InstallSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode install session: %w", err)
	}
	if session.Expired(s.now()) {
		return nil, nil
	}
	return &session, nil
}
