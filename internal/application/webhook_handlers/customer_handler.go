package webhook_handlers

import (
	"context"
	"fmt"

	"archie-core-shopify-sync/internal/application/ingestion"
	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// CustomerHandler keeps stored customers current from customer webhooks
type CustomerHandler struct {
	logger zerolog.Logger
	writer *ingestion.CustomerWriter
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(logger zerolog.Logger, store ports.RecordStore) *CustomerHandler {
	return &CustomerHandler{
		logger: logger,
		writer: ingestion.NewCustomerWriter(store),
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomersCreate ||
		topic == domain.TopicCustomersUpdate
}

// Handle upserts the customer carried by the event
func (h *CustomerHandler) Handle(ctx context.Context, tenant *domain.Tenant, event *domain.WebhookEvent) error {
	id, err := h.writer.Upsert(ctx, tenant.ID, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to handle %s webhook: %w", event.Topic, err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("customerId", id).
		Msg("Customer upserted from webhook")
	return nil
}
