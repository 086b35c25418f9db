package shopify

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxRetryAfter caps the wait a 429 response can ask for
const maxRetryAfter = 5 * time.Minute

// RetryConfig bounds the retry loop of a client.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns the retry policy used against the Shopify Admin API
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 5,
		BaseDelay:  time.Second,
		MaxDelay:   32 * time.Second,
	}
}

// Backoff returns min(BaseDelay * 2^attempt, MaxDelay)
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := c.BaseDelay
	for i := 0; i < attempt; i++ {
		if delay >= c.MaxDelay {
			break
		}
		delay *= 2
	}
	if delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// retryAfter reads the Retry-After header. Shopify sends fractional seconds ("2.0");
// the HTTP-date form is accepted as well.
func retryAfter(header http.Header, now time.Time) (time.Duration, bool) {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
			return 0, false
		}
		if seconds >= maxRetryAfter.Seconds() {
			return maxRetryAfter, true
		}
		return time.Duration(seconds * float64(time.Second)), true
	}
	if at, err := http.ParseTime(value); err == nil {
		delay := at.Sub(now)
		if delay < 0 {
			delay = 0
		}
		return min(delay, maxRetryAfter), true
	}
	return 0, false
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
