package webhook_handlers

import (
	"context"
	"fmt"

	"archie-core-shopify-sync/internal/application/ingestion"
	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related webhook events.
// orders/create never overwrites a stored order; orders/updated always does.
type OrderHandler struct {
	logger zerolog.Logger
	writer *ingestion.OrderWriter
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(logger zerolog.Logger, store ports.RecordStore) *OrderHandler {
	return &OrderHandler{
		logger: logger,
		writer: ingestion.NewOrderWriter(store),
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderHandler) CanHandle(topic string) bool {
	return topic == domain.TopicOrdersCreate ||
		topic == domain.TopicOrdersUpdated
}

// Handle processes an order webhook event
func (h *OrderHandler) Handle(ctx context.Context, tenant *domain.Tenant, event *domain.WebhookEvent) error {
	switch event.Topic {
	case domain.TopicOrdersCreate:
		id, inserted, err := h.writer.InsertIfAbsent(ctx, tenant.ID, event.Payload)
		if err != nil {
			return fmt.Errorf("failed to handle %s webhook: %w", event.Topic, err)
		}
		h.logger.Info().
			Str("shop", event.Shop).
			Str("orderId", id).
			Bool("inserted", inserted).
			Msg("New order created")

	case domain.TopicOrdersUpdated:
		id, err := h.writer.Upsert(ctx, tenant.ID, event.Payload)
		if err != nil {
			return fmt.Errorf("failed to handle %s webhook: %w", event.Topic, err)
		}
		h.logger.Info().Str("shop", event.Shop).Str("orderId", id).Msg("Order updated")

	default:
		return fmt.Errorf("%w: unsupported order topic %s", domain.ErrValidation, event.Topic)
	}
	return nil
}
