package application

import (
	"context"
	"fmt"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookService routes authenticated Shopify event callbacks to their topic handlers
type WebhookService struct {
	tenants  ports.TenantProvider
	handlers []ports.WebhookHandler
	logger   zerolog.Logger
	now      func() time.Time
}

// NewWebhookService creates a webhook service. The first handler claiming a topic wins.
func NewWebhookService(tenants ports.TenantProvider, logger zerolog.Logger, handlers ...ports.WebhookHandler) *WebhookService {
	return &WebhookService{
		tenants:  tenants,
		handlers: handlers,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessWebhook resolves the shop's tenant and hands the event to the matching handler.
// Events for topics nobody handles are acknowledged and dropped.
func (s *WebhookService) ProcessWebhook(ctx context.Context, topic string, shop string, payload []byte, verified bool) error {
	if !verified {
		return fmt.Errorf("%w: webhook signature not verified", domain.ErrAuth)
	}
	if topic == "" || shop == "" {
		return fmt.Errorf("%w: webhook topic and shop are required", domain.ErrValidation)
	}

	event := &domain.WebhookEvent{
		Topic:      topic,
		Shop:       NormalizeShopDomain(shop),
		Payload:    payload,
		Verified:   verified,
		ReceivedAt: s.now().UTC(),
	}

	tenant, err := s.tenants.GetTenantByShopDomain(ctx, event.Shop)
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Str("shop", event.Shop).Msg("Webhook for unknown shop")
		return err
	}

	for _, handler := range s.handlers {
		if !handler.CanHandle(topic) {
			continue
		}
		if err := handler.Handle(ctx, tenant, event); err != nil {
			s.logger.Error().Err(err).Str("topic", topic).Str("tenant_id", tenant.ID).Msg("Webhook handler failed")
			return err
		}
		s.logger.Info().Str("topic", topic).Str("tenant_id", tenant.ID).Str("shop", event.Shop).Msg("Webhook processed")
		return nil
	}

	s.logger.Debug().Str("topic", topic).Str("shop", event.Shop).Msg("No handler for webhook topic")
	return nil
}
