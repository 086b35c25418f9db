package shopify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// ClientPoolConfig holds the settings shared by every tenant client.
type ClientPoolConfig struct {
	APIVersion        string
	HTTPTimeout       time.Duration
	Retry             RetryConfig
	Breaker           CircuitBreakerConfig
	RequestsPerSecond float64
	Metrics           ports.MetricsRecorder
}

type pooledClient struct {
	accessToken string
	client      *Client
}

// ClientPool keeps one long-lived client per tenant so breaker state and request
// pacing survive across sync runs. A client is rebuilt when the tenant's token changes.
type ClientPool struct {
	mu         sync.Mutex
	config     ClientPoolConfig
	httpClient *http.Client
	clients    map[string]*pooledClient
	logger     zerolog.Logger
}

var _ ports.ClientProvider = (*ClientPool)(nil)

// NewClientPool creates an empty pool
func NewClientPool(config ClientPoolConfig, logger zerolog.Logger) *ClientPool {
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 30 * time.Second
	}
	return &ClientPool{
		config:     config,
		httpClient: &http.Client{Timeout: config.HTTPTimeout},
		clients:    make(map[string]*pooledClient),
		logger:     logger,
	}
}

// GetClient returns the client bound to the tenant, creating it on first use
func (p *ClientPool) GetClient(ctx context.Context, tenant *domain.Tenant) (ports.APIClient, error) {
	if tenant == nil || tenant.ShopDomain == "" {
		return nil, fmt.Errorf("%w: tenant shop domain is required", domain.ErrValidation)
	}
	if tenant.AccessToken == "" {
		return nil, fmt.Errorf("%w: tenant %s has no access token", domain.ErrAuth, tenant.ID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if pooled, ok := p.clients[tenant.ID]; ok && pooled.accessToken == tenant.AccessToken {
		return pooled.client, nil
	}

	client := NewClient(ClientConfig{
		ShopDomain:  tenant.ShopDomain,
		AccessToken: tenant.AccessToken,
		APIVersion:  p.config.APIVersion,
		HTTPClient:  p.httpClient,
		Retry:       p.config.Retry,
		Breaker:     p.config.Breaker,
		RateLimiter: NewRateLimiter(p.config.RequestsPerSecond, 1, p.logger),
		Metrics:     p.config.Metrics,
		Logger:      p.logger,
	})
	p.clients[tenant.ID] = &pooledClient{accessToken: tenant.AccessToken, client: client}

	p.logger.Debug().
		Str("tenant_id", tenant.ID).
		Str("shop", tenant.ShopDomain).
		Msg("Created Shopify client for tenant")

	return client, nil
}

// Evict drops the tenant's client, e.g. after the app is uninstalled
func (p *ClientPool) Evict(tenantID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, tenantID)
}

// Size returns the number of cached clients
func (p *ClientPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}
