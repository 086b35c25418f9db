package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"archie-core-shopify-sync/internal/domain"
)

// APIResponse is a successful Shopify Admin API response.
type APIResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// NextPageInfo is the page_info cursor of the rel="next" link, empty on the last page
	NextPageInfo string
}

// Decode unmarshals the JSON body into v
func (r *APIResponse) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// APIClient issues authenticated calls against one tenant's Shopify Admin API.
// Retry, backoff and circuit breaking are the implementation's concern.
type APIClient interface {
	Request(ctx context.Context, method string, path string, query url.Values, body any) (*APIResponse, error)
	Get(ctx context.Context, path string, query url.Values) (*APIResponse, error)
	Post(ctx context.Context, path string, body any) (*APIResponse, error)
	Put(ctx context.Context, path string, body any) (*APIResponse, error)
	Delete(ctx context.Context, path string) (*APIResponse, error)
}

// ClientProvider hands out the long-lived client bound to a tenant
type ClientProvider interface {
	GetClient(ctx context.Context, tenant *domain.Tenant) (APIClient, error)
}

// EncryptionService encrypts credentials at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
