package ports

import (
	"context"

	"archie-core-shopify-sync/internal/domain"
)

// WebhookHandler processes the events of the topics it claims.
// The tenant has already been resolved from the event's shop.
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, tenant *domain.Tenant, event *domain.WebhookEvent) error
}
