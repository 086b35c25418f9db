package shopify

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_DisabledWhenNotPositive(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0, 1, zerolog.Nop()))
	assert.Nil(t, NewRateLimiter(-1, 1, zerolog.Nop()))

	var limiter *RateLimiter
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, limiter.Wait(ctx))
}

func TestRateLimiter_Wait(t *testing.T) {
	limiter := NewRateLimiter(0.001, 0, zerolog.Nop())
	require.NotNil(t, limiter)

	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, limiter.Wait(ctx))
}
