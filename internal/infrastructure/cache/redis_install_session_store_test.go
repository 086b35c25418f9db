package cache

import (
	"context"
	"testing"
	"time"

	"archie-core-shopify-sync/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisInstallSessionStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mr, client := newTestRedis(t)
	store := NewRedisInstallSessionStoreWithClient(client, "")
	store.now = func() time.Time { return now }

	t.Run("consume returns the session once", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, &domain.InstallSession{
			State:     "state-1",
			Shop:      "test-shop.myshopify.com",
			ReturnURL: "https://sync.example.com/done",
			ExpiresAt: now.Add(10 * time.Minute),
			CreatedAt: now,
		}))
		assert.Equal(t, 10*time.Minute, mr.TTL("shopify:install:state-1"))

		session, err := store.Consume(ctx, "state-1")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "test-shop.myshopify.com", session.Shop)
		assert.Equal(t, "https://sync.example.com/done", session.ReturnURL)
		assert.False(t, mr.Exists("shopify:install:state-1"))

		session, err = store.Consume(ctx, "state-1")
		require.NoError(t, err)
		assert.Nil(t, session, "a state can only be used once")
	})

	t.Run("unknown state", func(t *testing.T) {
		session, err := store.Consume(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("session expires with its ttl", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, &domain.InstallSession{
			State:     "state-2",
			Shop:      "test-shop.myshopify.com",
			ExpiresAt: now.Add(time.Minute),
		}))

		mr.FastForward(2 * time.Minute)
		session, err := store.Consume(ctx, "state-2")
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("already expired session is rejected", func(t *testing.T) {
		err := store.Create(ctx, &domain.InstallSession{
			State:     "state-3",
			Shop:      "test-shop.myshopify.com",
			ExpiresAt: now.Add(-time.Second),
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.False(t, mr.Exists("shopify:install:state-3"))
	})

	t.Run("redis unavailable", func(t *testing.T) {
		mr.SetError("LOADING")
		defer mr.SetError("")

		_, err := store.Consume(ctx, "state-1")
		assert.Error(t, err)
	})
}
