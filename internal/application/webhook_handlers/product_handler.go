package webhook_handlers

import (
	"context"
	"fmt"

	"archie-core-shopify-sync/internal/application/ingestion"
	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related webhook events
type ProductHandler struct {
	logger zerolog.Logger
	writer *ingestion.ProductWriter
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(logger zerolog.Logger, store ports.RecordStore) *ProductHandler {
	return &ProductHandler{
		logger: logger,
		writer: ingestion.NewProductWriter(store),
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == domain.TopicProductsCreate ||
		topic == domain.TopicProductsUpdate
}

func (h *ProductHandler) Handle(ctx context.Context, tenant *domain.Tenant, event *domain.WebhookEvent) error {
	id, err := h.writer.Upsert(ctx, tenant.ID, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to handle %s webhook: %w", event.Topic, err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("productId", id).
		Msg("Product upserted from webhook")
	return nil
}
