package shopify

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimiter paces requests to one shop so a sync stays inside Shopify's REST
// leaky bucket instead of leaning on 429 responses.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewRateLimiter returns nil when requestsPerSecond is not positive, which disables pacing
func NewRateLimiter(requestsPerSecond float64, burst int, logger zerolog.Logger) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		logger:  logger,
	}
}

// Wait blocks until the next request may be sent. A nil limiter never blocks.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if r.limiter.Tokens() < 1 {
		r.logger.Debug().Msg("Pacing Shopify request")
	}
	return r.limiter.Wait(ctx)
}
