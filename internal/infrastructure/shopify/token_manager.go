package shopify

import (
	"context"
	"errors"
	"fmt"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// TokenManager checks whether a tenant's access token is still accepted by Shopify
type TokenManager struct {
	clients ports.ClientProvider
	logger  zerolog.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(clients ports.ClientProvider, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		clients: clients,
		logger:  logger,
	}
}

// ValidateToken makes a lightweight shop.json call with the tenant's token.
// Shopify tokens don't expire but can be revoked; only an auth failure marks
// the token invalid, other errors are returned to the caller.
func (tm *TokenManager) ValidateToken(ctx context.Context, tenant *domain.Tenant) (bool, error) {
	client, err := tm.clients.GetClient(ctx, tenant)
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return false, nil
		}
		return false, err
	}

	if _, err := client.Get(ctx, "shop.json", nil); err != nil {
		if errors.Is(err, domain.ErrAuth) {
			tm.logger.Warn().
				Str("shop", tenant.ShopDomain).
				Msg("Token validation failed: token is invalid or revoked")
			return false, nil
		}
		return false, fmt.Errorf("failed to validate token: %w", err)
	}

	tm.logger.Debug().
		Str("shop", tenant.ShopDomain).
		Msg("Token validation successful")
	return true, nil
}
