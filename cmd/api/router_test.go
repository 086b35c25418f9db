package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/application/ingestion"
	"archie-core-shopify-sync/internal/application/webhook_handlers"
	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/infrastructure/cache"
	"archie-core-shopify-sync/internal/infrastructure/encryption"
	"archie-core-shopify-sync/internal/infrastructure/metrics"
	"archie-core-shopify-sync/internal/infrastructure/repository"
	shopifyinfra "archie-core-shopify-sync/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdminKey      = "admin-key"
	testWebhookSecret = "webhook-secret"
)

type testServer struct {
	handler  http.Handler
	api      *api
	records  *repository.InMemoryRecordStore
	sessions *cache.InMemoryInstallSessionStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	aes, err := encryption.NewAESService("test-secret")
	require.NoError(t, err)

	records := repository.NewInMemoryRecordStore()
	sessions := cache.NewInMemoryInstallSessionStore()
	tenants := application.NewTenantService(repository.NewInMemoryTenantRepository(), aes, logger)
	recorder := metrics.NewPrometheusRecorder()
	clients := shopifyinfra.NewClientPool(shopifyinfra.ClientPoolConfig{Metrics: recorder}, logger)

	a := &api{
		tenants: tenants,
		sync: application.NewSyncService(
			tenants, clients, ingestion.NewPipelines(records, logger),
			cache.NewInMemorySyncStatusStore(), recorder, logger,
		),
		webhooks: application.NewWebhookService(
			tenants, logger,
			webhook_handlers.NewCustomerHandler(logger, records),
			webhook_handlers.NewOrderHandler(logger, records),
			webhook_handlers.NewProductHandler(logger, records),
			webhook_handlers.NewAppUninstalledHandler(logger, tenants, clients),
		),
		reports: application.NewMetricsService(records, tenants, logger),
		installer: shopifyinfra.NewInstaller("api-key", "api-secret", []string{"read_orders"}, "https://sync.example.com/auth/callback", logger).
			WithWebhookSecret(testWebhookSecret),
		tokens:      shopifyinfra.NewTokenManager(clients, logger),
		clients:     clients,
		sessions:    sessions,
		recorder:    recorder,
		appURL:      "https://sync.example.com",
		corsOrigins: []string{"https://dashboard.example.com"},
		adminKey:    testAdminKey,
		logger:      logger,
	}

	return &testServer{handler: newRouter(a), api: a, records: records, sessions: sessions}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) admin(method, target string) *httptest.ResponseRecorder {
	return s.adminWithBody(method, target, "")
}

func (s *testServer) adminWithBody(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("X-API-Key", testAdminKey)
	return s.do(req)
}

func signedWebhook(topic, shop string, body []byte, secret string) *http.Request {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("X-Shopify-Topic", topic)
	req.Header.Set("X-Shopify-Shop-Domain", shop)
	req.Header.Set("X-Shopify-Hmac-Sha256", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestRouter_PublicRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_AdminKeyRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/tenants", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec))

	rec = s.admin(http.MethodGet, "/tenants")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Webhooks(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	tenant, err := s.api.tenants.RegisterOrUpdateTenant(ctx, "test-shop.myshopify.com", "shpat_token")
	require.NoError(t, err)

	t.Run("signed event is stored", func(t *testing.T) {
		body := []byte(`{"id":42,"email":"ada@example.com","first_name":"Ada"}`)
		rec := s.do(signedWebhook(domain.TopicCustomersCreate, "test-shop.myshopify.com", body, testWebhookSecret))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		record, err := s.records.FindByID(ctx, domain.ResourceCustomers, "42")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, tenant.ID, record.TenantID)
	})

	t.Run("forged signature", func(t *testing.T) {
		rec := s.do(signedWebhook(domain.TopicCustomersCreate, "test-shop.myshopify.com", []byte(`{"id":43}`), "api-secret"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "WEBHOOK_INVALID_SIGNATURE", decodeError(t, rec))
	})

	t.Run("missing headers", func(t *testing.T) {
		req := signedWebhook(domain.TopicCustomersCreate, "test-shop.myshopify.com", []byte(`{}`), testWebhookSecret)
		req.Header.Del("X-Shopify-Topic")
		assert.Equal(t, http.StatusBadRequest, s.do(req).Code)
	})

	t.Run("unknown shop", func(t *testing.T) {
		rec := s.do(signedWebhook(domain.TopicCustomersCreate, "stranger.myshopify.com", []byte(`{"id":44}`), testWebhookSecret))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid payload", func(t *testing.T) {
		rec := s.do(signedWebhook(domain.TopicOrdersCreate, "test-shop.myshopify.com", []byte(`{"id":"x","total_price":"abc"}`), testWebhookSecret))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("app uninstalled removes tenant", func(t *testing.T) {
		rec := s.do(signedWebhook(domain.TopicAppUninstalled, "test-shop.myshopify.com", []byte(`{}`), testWebhookSecret))
		require.Equal(t, http.StatusOK, rec.Code)

		_, err := s.api.tenants.GetTenantByID(ctx, tenant.ID)
		assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	})
}

func TestRouter_InstallFlow(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	t.Run("rejects invalid shop", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/auth/install?shop=evil.example.com", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_INVALID_SHOP", decodeError(t, rec))
	})

	t.Run("redirects to shopify with a stored state", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/auth/install?shop=test-shop.myshopify.com", nil))
		require.Equal(t, http.StatusFound, rec.Code)

		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "test-shop.myshopify.com", location.Host)
		assert.Equal(t, "api-key", location.Query().Get("client_id"))

		state := location.Query().Get("state")
		require.NotEmpty(t, state)
		session, err := s.sessions.Consume(ctx, state)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "test-shop.myshopify.com", session.Shop)
	})

	t.Run("rejects foreign return url", func(t *testing.T) {
		target := "/auth/install?shop=test-shop.myshopify.com&return_url=" + url.QueryEscape("https://evil.example.com/steal")
		rec := s.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_INVALID_RETURN_URL", decodeError(t, rec))
	})

	t.Run("keeps an allowed return url", func(t *testing.T) {
		returnURL := "https://dashboard.example.com/settings?tab=shops"
		target := "/auth/install?shop=test-shop.myshopify.com&return_url=" + url.QueryEscape(returnURL)
		rec := s.do(httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusFound, rec.Code)

		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		session, err := s.sessions.Consume(ctx, location.Query().Get("state"))
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, returnURL, session.ReturnURL)
	})

	t.Run("callback requires parameters", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/auth/callback?shop=test-shop.myshopify.com", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("callback rejects unsigned request", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/auth/callback?shop=test-shop.myshopify.com&code=abc&state=xyz&hmac=deadbeef", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRouter_SyncRoutes(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	rec := s.admin(http.MethodPost, "/sync")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, s.api.sync.Wait(ctx))

	rec = s.admin(http.MethodGet, "/sync/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Scheduled bool                `json:"scheduled"`
		LastSweep *domain.SweepReport `json:"last_sweep"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Scheduled)
	require.NotNil(t, status.LastSweep)
	assert.NotEmpty(t, status.LastSweep.RunID)

	rec = s.admin(http.MethodPost, "/tenants/missing/sync")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "TENANT_NOT_FOUND", decodeError(t, rec))

	rec = s.admin(http.MethodGet, "/tenants/missing/sync/status")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MetricsRoutes(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	tenant, err := s.api.tenants.RegisterOrUpdateTenant(ctx, "test-shop.myshopify.com", "shpat_token")
	require.NoError(t, err)

	customer := domain.Customer{ID: "1", TenantID: tenant.ID, FirstName: "Ada", LastName: "Lovelace"}
	require.NoError(t, s.records.Upsert(ctx, domain.ResourceCustomers, customer.ToRecord()))
	order := domain.Order{ID: "10", TenantID: tenant.ID, CustomerID: "1", TotalPrice: 42.5, Currency: "EUR"}
	require.NoError(t, s.records.Upsert(ctx, domain.ResourceOrders, order.ToRecord()))

	rec := s.admin(http.MethodGet, "/tenants/"+tenant.ID+"/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	var dashboard domain.DashboardMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dashboard))
	assert.Equal(t, int64(1), dashboard.TotalCustomers)
	assert.Equal(t, int64(1), dashboard.TotalOrders)
	assert.InDelta(t, 42.5, dashboard.TotalRevenue, 0.001)
	require.Len(t, dashboard.TopCustomers, 1)
	assert.Equal(t, "Ada Lovelace", dashboard.TopCustomers[0].CustomerName)

	rec = s.admin(http.MethodGet, "/tenants/"+tenant.ID+"/metrics/top-customers?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.admin(http.MethodGet, "/tenants/"+tenant.ID+"/metrics/top-customers?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.admin(http.MethodGet, "/tenants/"+tenant.ID+"/metrics/top-customers?limit=5")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.admin(http.MethodGet, "/tenants/missing/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_AllowedReturnURL(t *testing.T) {
	a := &api{appURL: "https://sync.example.com", corsOrigins: []string{"*", "https://dashboard.example.com"}}

	tests := []struct {
		raw  string
		want bool
	}{
		{raw: "https://sync.example.com/done", want: true},
		{raw: "https://dashboard.example.com/settings?tab=shops", want: true},
		{raw: "HTTPS://Dashboard.Example.com/", want: true},
		{raw: "https://evil.example.com/", want: false},
		{raw: "https://dashboard.example.com.evil.com/", want: false},
		{raw: "http://dashboard.example.com/", want: false},
		{raw: "//dashboard.example.com/", want: false},
		{raw: "/relative", want: false},
		{raw: "javascript:alert(1)", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, a.allowedReturnURL(tt.raw))
		})
	}
}

func TestWithQuery(t *testing.T) {
	got, err := withQuery("https://dashboard.example.com/settings?tab=shops", url.Values{
		"shopify_oauth": {"success"},
		"shop":          {"test-shop.myshopify.com"},
	})
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/settings", u.Path)
	assert.Equal(t, "shops", u.Query().Get("tab"))
	assert.Equal(t, "success", u.Query().Get("shopify_oauth"))
	assert.Equal(t, "test-shop.myshopify.com", u.Query().Get("shop"))
}

func TestRouter_RotateAccessToken(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	tenant, err := s.api.tenants.RegisterOrUpdateTenant(ctx, "test-shop.myshopify.com", "shpat_old")
	require.NoError(t, err)

	rec := s.adminWithBody(http.MethodPut, "/tenants/"+tenant.ID+"/access-token", `{"access_token":"shpat_new"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "shpat_new")

	rotated, err := s.api.tenants.GetTenantByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "shpat_new", rotated.AccessToken)

	rec = s.adminWithBody(http.MethodPut, "/tenants/"+tenant.ID+"/access-token", `{"access_token":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.adminWithBody(http.MethodPut, "/tenants/"+tenant.ID+"/access-token", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.adminWithBody(http.MethodPut, "/tenants/missing/access-token", `{"access_token":"shpat_x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "TENANT_NOT_FOUND", decodeError(t, rec))
}
