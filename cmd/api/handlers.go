package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/domain"
	shopifyinfra "archie-core-shopify-sync/internal/infrastructure/shopify"

	"github.com/go-chi/chi/v5"
)

const (
	installSessionTTL     = 10 * time.Minute
	defaultTopCustomers   = 10
	maxWebhookPayloadSize = 5 << 20
	maxAdminBodySize      = 1 << 20
)

// installHandler starts the OAuth flow by redirecting the merchant to Shopify
func installHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shop := application.NormalizeShopDomain(r.URL.Query().Get("shop"))
		if shop == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "shop parameter is required")
			return
		}
		if !shopifyinfra.ValidShopDomain(shop) {
			writeError(w, http.StatusBadRequest, "VALIDATION_INVALID_SHOP", "invalid shop domain format")
			return
		}

		returnURL := r.URL.Query().Get("return_url")
		if returnURL != "" && !a.allowedReturnURL(returnURL) {
			writeError(w, http.StatusBadRequest, "VALIDATION_INVALID_RETURN_URL", "return_url must point at the app or an allowed origin")
			return
		}

		// Random state for CSRF protection
		stateBytes := make([]byte, 16)
		if _, err := rand.Read(stateBytes); err != nil {
			a.logger.Error().Err(err).Msg("Failed to generate state")
			writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
			return
		}
		state := hex.EncodeToString(stateBytes)

		now := time.Now().UTC()
		session := &domain.InstallSession{
			State:     state,
			Shop:      shop,
			ReturnURL: returnURL,
			ExpiresAt: now.Add(installSessionTTL),
			CreatedAt: now,
		}
		if err := a.sessions.Create(ctx, session); err != nil {
			a.logger.Error().Err(err).Str("shop", shop).Msg("Failed to create install session")
			writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
			return
		}

		http.Redirect(w, r, a.installer.AuthorizeURL(shop, state), http.StatusFound)
	}
}

// callbackHandler completes the OAuth flow, registers the tenant and starts its first sync
func callbackHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		query := r.URL.Query()
		shop := application.NormalizeShopDomain(query.Get("shop"))
		code := query.Get("code")
		state := query.Get("state")

		if shop == "" || code == "" || state == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "code, shop and state parameters are required")
			return
		}
		if !shopifyinfra.ValidShopDomain(shop) {
			writeError(w, http.StatusBadRequest, "VALIDATION_INVALID_SHOP", "invalid shop domain format")
			return
		}

		ok, err := a.installer.VerifyCallback(r.URL)
		if err != nil || !ok {
			a.logger.Warn().Err(err).Str("shop", shop).Msg("OAuth callback signature verification failed")
			writeError(w, http.StatusUnauthorized, "SHOPIFY_INVALID_SIGNATURE", "invalid callback signature")
			return
		}

		session, err := a.sessions.Consume(ctx, state)
		if err != nil {
			a.logger.Error().Err(err).Msg("Failed to get install session")
			writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
			return
		}
		if session == nil || session.Shop != shop {
			writeError(w, http.StatusUnauthorized, "INVALID_SESSION", "unknown or expired install session")
			return
		}

		accessToken, err := a.installer.ExchangeToken(ctx, shop, code)
		if err != nil {
			a.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
			writeError(w, http.StatusBadRequest, "SHOPIFY_AUTH_FAILED", "failed to authenticate with Shopify")
			return
		}

		tenant, err := a.tenants.RegisterOrUpdateTenant(ctx, shop, accessToken)
		if err != nil {
			writeServiceError(w, a.logger, err)
			return
		}
		a.clients.Evict(tenant.ID)

		// Initial ingestion; a busy worker leaves it to the next sweep
		if err := a.sync.TriggerTenantSync(ctx, tenant.ID); err != nil {
			a.logger.Info().Err(err).Str("tenant_id", tenant.ID).Msg("Initial sync deferred to next sweep")
		}

		if session.ReturnURL != "" {
			redirectURL, err := withQuery(session.ReturnURL, url.Values{
				"shopify_oauth": {"success"},
				"shop":          {tenant.ShopDomain},
				"tenant_id":     {tenant.ID},
			})
			if err == nil {
				http.Redirect(w, r, redirectURL, http.StatusFound)
				return
			}
			a.logger.Warn().Err(err).Str("return_url", session.ReturnURL).Msg("Ignoring unusable return URL")
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"message":   "Shopify store connected successfully",
			"tenant_id": tenant.ID,
			"shop":      tenant.ShopDomain,
		})
	}
}

// allowedReturnURL accepts absolute http(s) URLs on the app's origin or a configured CORS origin
func (a *api) allowedReturnURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	origin := u.Scheme + "://" + u.Host

	for _, allowed := range append([]string{a.appURL}, a.corsOrigins...) {
		if allowed == "" || allowed == "*" {
			continue
		}
		parsed, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if strings.EqualFold(parsed.Scheme+"://"+parsed.Host, origin) {
			return true
		}
	}
	return false
}

// withQuery merges params into the query string already on target
func withQuery(target string, params url.Values) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	query := u.Query()
	for key, values := range params {
		query[key] = values
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// webhookHandler verifies and dispatches a Shopify event callback
func webhookHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		topic := r.Header.Get("X-Shopify-Topic")
		shop := r.Header.Get("X-Shopify-Shop-Domain")
		if topic == "" || shop == "" {
			writeError(w, http.StatusBadRequest, "WEBHOOK_MISSING_HEADERS", "X-Shopify-Topic and X-Shopify-Shop-Domain headers are required")
			return
		}
		if r.Header.Get("X-Shopify-Hmac-Sha256") == "" {
			writeError(w, http.StatusUnauthorized, "WEBHOOK_MISSING_SIGNATURE", "missing webhook signature")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookPayloadSize)
		if !a.installer.VerifyWebhook(r) {
			a.logger.Warn().Str("topic", topic).Str("shop", shop).Msg("Webhook signature verification failed")
			writeError(w, http.StatusUnauthorized, "WEBHOOK_INVALID_SIGNATURE", "invalid webhook signature")
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "failed to read request body")
			return
		}

		if err := a.webhooks.ProcessWebhook(ctx, topic, shop, payload, true); err != nil {
			// non-2xx makes Shopify retry the delivery
			writeServiceError(w, a.logger, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
	}
}

func listTenantsHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenants, err := a.tenants.ListTenants(r.Context())
		if err != nil {
			writeServiceError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
	}
}

// connectionHandler reports whether the tenant's access token is still accepted
func connectionHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenant, err := a.tenants.GetTenantByID(ctx, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, a.logger, err)
			return
		}

		valid, err := a.tokens.ValidateToken(ctx, tenant)
		if err != nil {
			a.logger.Warn().Err(err).Str("tenant_id", tenant.ID).Msg("Connection check failed")
			writeError(w, http.StatusBadGateway, "SHOPIFY_UNAVAILABLE", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"tenant_id": tenant.ID,
			"shop":      tenant.ShopDomain,
			"valid":     valid,
		})
	}
}

// rotateTokenHandler replaces a tenant's access token, e.g. after a custom app's token was regenerated
func rotateTokenHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdminBodySize)).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request body must be JSON with an access_token")
			return
		}

		tenant, err := a.tenants.UpdateAccessToken(r.Context(), chi.URLParam(r, "id"), body.AccessToken)
		if err != nil {
			writeServiceError(w, a.logger, err)
			return
		}
		a.clients.Evict(tenant.ID)

		writeJSON(w, http.StatusOK, map[string]any{"tenant": tenant})
	}
}

func dashboardHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics, err := a.reports.GetDashboardMetrics(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, metrics)
	}
}

func topCustomersHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultTopCustomers
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be an integer")
				return
			}
			limit = parsed
		}

		top, err := a.reports.GetTopCustomers(r.Context(), chi.URLParam(r, "id"), limit)
		if err != nil {
			writeServiceError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"top_customers": top})
	}
}

func triggerSweepHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.sync.TriggerSweep(r.Context()); err != nil {
			writeServiceError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "sync started"})
	}
}

func triggerTenantSyncHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "id")
		if err := a.sync.TriggerTenantSync(r.Context(), tenantID); err != nil {
			writeServiceError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "sync started", "tenant_id": tenantID})
	}
}

func sweepStatusHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := a.sync.LastSweep(r.Context())
		if err != nil {
			writeServiceError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"scheduled":  a.sync.IsScheduled(),
			"last_sweep": report,
		})
	}
}

func tenantSyncStatusHandler(a *api) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenant, err := a.tenants.GetTenantByID(ctx, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, a.logger, err)
			return
		}

		report, err := a.sync.LastTenantSync(ctx, tenant.ID)
		if err != nil {
			writeServiceError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"tenant_id": tenant.ID,
			"last_sync": report,
		})
	}
}
