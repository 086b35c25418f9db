package domain

import "time"

// WebhookEvent is an inbound Shopify event callback that has already been authenticated.
type WebhookEvent struct {
	Topic      string    `json:"topic"`
	Shop       string    `json:"shop"`
	Payload    []byte    `json:"payload"`
	Verified   bool      `json:"verified"`
	ReceivedAt time.Time `json:"received_at"`
}

// Webhook topics the sync core reacts to
const (
	TopicCustomersCreate = "customers/create"
	TopicCustomersUpdate = "customers/update"
	TopicOrdersCreate    = "orders/create"
	TopicOrdersUpdated   = "orders/updated"
	TopicProductsCreate  = "products/create"
	TopicProductsUpdate  = "products/update"
	TopicAppUninstalled  = "app/uninstalled"
)
