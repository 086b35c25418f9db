package webhook_handlers

import (
	"context"
	"fmt"

	"archie-core-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
)

// TenantRemover deletes a tenant and its stored credential
type TenantRemover interface {
	DeleteTenant(ctx context.Context, id string) error
}

// ClientEvictor drops a tenant's cached API client
type ClientEvictor interface {
	Evict(tenantID string)
}

// AppUninstalledHandler handles app uninstalled webhook events.
// Ingested records are kept; only the tenant and its client go away.
type AppUninstalledHandler struct {
	logger  zerolog.Logger
	tenants TenantRemover
	clients ClientEvictor
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler. clients may be nil.
func NewAppUninstalledHandler(
	logger zerolog.Logger,
	tenants TenantRemover,
	clients ClientEvictor,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:  logger,
		tenants: tenants,
		clients: clients,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle processes an app uninstalled webhook event
func (h *AppUninstalledHandler) Handle(ctx context.Context, tenant *domain.Tenant, event *domain.WebhookEvent) error {
	if err := h.tenants.DeleteTenant(ctx, tenant.ID); err != nil {
		return fmt.Errorf("failed to remove uninstalled tenant: %w", err)
	}
	if h.clients != nil {
		h.clients.Evict(tenant.ID)
	}

	h.logger.Info().
		Str("shop", tenant.ShopDomain).
		Str("tenantId", tenant.ID).
		Msg("App uninstalled - tenant removed")
	return nil
}
