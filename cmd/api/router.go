package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/infrastructure/metrics"
	shopifyinfra "archie-core-shopify-sync/internal/infrastructure/shopify"
	"archie-core-shopify-sync/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// api bundles what the HTTP handlers need
type api struct {
	tenants   *application.TenantService
	sync      *application.SyncService
	webhooks  *application.WebhookService
	reports   *application.MetricsService
	installer *shopifyinfra.Installer
	tokens    *shopifyinfra.TokenManager
	clients   *shopifyinfra.ClientPool
	sessions  ports.InstallSessionStore
	recorder  *metrics.PrometheusRecorder

	appURL         string
	corsOrigins    []string
	requestTimeout time.Duration
	adminKey       string
	logger         zerolog.Logger
}

func newRouter(a *api) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"sync_scheduled": a.sync.IsScheduled(),
		})
	})
	r.Handle("/metrics", a.recorder.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth install flow
	r.Get("/auth/install", installHandler(a))
	r.Get("/auth/callback", callbackHandler(a))

	// Shopify event callbacks, authenticated by their HMAC signature
	r.Post("/webhooks/shopify", webhookHandler(a))

	// Operator routes
	r.Group(func(r chi.Router) {
		r.Use(adminKeyMiddleware(a.adminKey))
		if a.requestTimeout > 0 {
			r.Use(middleware.Timeout(a.requestTimeout))
		}

		r.Get("/tenants", listTenantsHandler(a))
		r.Get("/tenants/{id}/connection", connectionHandler(a))
		r.Put("/tenants/{id}/access-token", rotateTokenHandler(a))
		r.Get("/tenants/{id}/metrics", dashboardHandler(a))
		r.Get("/tenants/{id}/metrics/top-customers", topCustomersHandler(a))

		r.Post("/sync", triggerSweepHandler(a))
		r.Get("/sync/status", sweepStatusHandler(a))
		r.Post("/tenants/{id}/sync", triggerTenantSyncHandler(a))
		r.Get("/tenants/{id}/sync/status", tenantSyncStatusHandler(a))
	})

	return r
}

// adminKeyMiddleware requires the X-API-Key header to match when a key is configured
func adminKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-API-Key")), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid X-API-Key header")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

// writeServiceError maps domain errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "TENANT_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "SYNC_IN_PROGRESS", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrAuth):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	default:
		logger.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
	}
}
