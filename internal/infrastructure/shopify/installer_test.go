package shopify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestInstaller_AuthorizeURL(t *testing.T) {
	installer := NewInstaller("key", "secret", []string{"read_orders", "read_customers"}, "https://app.example.com/auth/callback", zerolog.Nop())

	raw := installer.AuthorizeURL("test-shop.myshopify.com", "nonce-1")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "test-shop.myshopify.com", parsed.Host)
	assert.Equal(t, "/admin/oauth/authorize", parsed.Path)
	assert.Equal(t, "key", parsed.Query().Get("client_id"))
	assert.Equal(t, "read_orders,read_customers", parsed.Query().Get("scope"))
	assert.Equal(t, "https://app.example.com/auth/callback", parsed.Query().Get("redirect_uri"))
	assert.Equal(t, "nonce-1", parsed.Query().Get("state"))
}

func TestInstaller_VerifyWebhook(t *testing.T) {
	installer := NewInstaller("key", "secret", nil, "", zerolog.Nop())
	body := []byte(`{"id":1001,"email":"ada@example.com"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("X-Shopify-Hmac-Sha256", sign("secret", body))
	assert.True(t, installer.VerifyWebhook(req))

	// body can still be read by the handler
	remaining, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, body, remaining)

	forged := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", bytes.NewReader(body))
	forged.Header.Set("X-Shopify-Hmac-Sha256", sign("other-secret", body))
	assert.False(t, installer.VerifyWebhook(forged))
}

func TestInstaller_WithWebhookSecret(t *testing.T) {
	installer := NewInstaller("key", "secret", nil, "", zerolog.Nop()).WithWebhookSecret("webhook-secret")
	body := []byte(`{"id":1}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("X-Shopify-Hmac-Sha256", sign("webhook-secret", body))
	assert.True(t, installer.VerifyWebhook(req))

	appSigned := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", bytes.NewReader(body))
	appSigned.Header.Set("X-Shopify-Hmac-Sha256", sign("secret", body))
	assert.False(t, installer.VerifyWebhook(appSigned))
}

func TestValidShopDomain(t *testing.T) {
	tests := []struct {
		shop string
		want bool
	}{
		{"test-shop.myshopify.com", true},
		{"Shop1.myshopify.com", true},
		{"-shop.myshopify.com", false},
		{"shop.example.com", false},
		{"evil.com/shop.myshopify.com", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidShopDomain(tt.shop), tt.shop)
	}
}
