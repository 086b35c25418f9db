package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/application/ingestion"
	"archie-core-shopify-sync/internal/application/webhook_handlers"
	"archie-core-shopify-sync/internal/config"
	"archie-core-shopify-sync/internal/infrastructure/cache"
	"archie-core-shopify-sync/internal/infrastructure/encryption"
	"archie-core-shopify-sync/internal/infrastructure/metrics"
	"archie-core-shopify-sync/internal/infrastructure/repository"
	shopifyinfra "archie-core-shopify-sync/internal/infrastructure/shopify"
	"archie-core-shopify-sync/internal/ports"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, using environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.Fatal().Err(err).Msg("MongoDB is not reachable")
	}
	cancelPing()

	db := mongoClient.Database(cfg.Mongo.Database)

	// Initialize infrastructure (implementations)
	recordStore := repository.NewMongoRecordStore(db)
	if err := recordStore.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create record indexes")
	}
	tenantRepo := repository.NewMongoTenantRepository(db)
	if err := tenantRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create tenant indexes")
	}

	encryptionService, err := encryption.NewAESService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	statusStore, sessionStore, redisClient := newStateStores(cfg.Redis.URL, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	recorder := metrics.NewPrometheusRecorder()

	clientPool := shopifyinfra.NewClientPool(shopifyinfra.ClientPoolConfig{
		APIVersion:  cfg.Shopify.APIVersion,
		HTTPTimeout: cfg.Shopify.HTTPTimeout,
		Retry: shopifyinfra.RetryConfig{
			MaxRetries: cfg.Shopify.MaxRetries,
			BaseDelay:  cfg.Shopify.BaseDelay,
			MaxDelay:   cfg.Shopify.MaxDelay,
		},
		Breaker: shopifyinfra.CircuitBreakerConfig{
			Threshold: cfg.Shopify.CircuitThreshold,
			Timeout:   cfg.Shopify.CircuitTimeout,
		},
		RequestsPerSecond: cfg.Shopify.RequestsPerSecond,
		Metrics:           recorder,
	}, logger)

	// Initialize application services
	tenantService := application.NewTenantService(tenantRepo, encryptionService, logger)

	syncService := application.NewSyncService(
		tenantService,
		clientPool,
		ingestion.NewPipelines(recordStore, logger),
		statusStore,
		recorder,
		logger,
	)

	webhookService := application.NewWebhookService(
		tenantService,
		logger,
		webhook_handlers.NewCustomerHandler(logger, recordStore),
		webhook_handlers.NewOrderHandler(logger, recordStore),
		webhook_handlers.NewProductHandler(logger, recordStore),
		webhook_handlers.NewAppUninstalledHandler(logger, tenantService, clientPool),
	)

	metricsService := application.NewMetricsService(recordStore, tenantService, logger)

	installer := shopifyinfra.NewInstaller(
		cfg.Shopify.APIKey,
		cfg.Shopify.APISecret,
		cfg.Shopify.Scopes,
		cfg.App.URL+"/auth/callback",
		logger,
	).WithWebhookSecret(cfg.Shopify.WebhookSecret)

	router := newRouter(&api{
		tenants:        tenantService,
		sync:           syncService,
		webhooks:       webhookService,
		reports:        metricsService,
		installer:      installer,
		tokens:         shopifyinfra.NewTokenManager(clientPool, logger),
		clients:        clientPool,
		sessions:       sessionStore,
		recorder:       recorder,
		appURL:         cfg.App.URL,
		corsOrigins:    cfg.App.CORSOrigins,
		requestTimeout: cfg.App.RequestTimeout,
		adminKey:       cfg.App.AdminAPIKey,
		logger:         logger,
	})
	if cfg.App.AdminAPIKey == "" {
		logger.Warn().Msg("ADMIN_API_KEY not set, tenant and sync routes are unauthenticated")
	}

	if cfg.Sync.Enabled {
		if err := syncService.StartScheduledSync(ctx, cfg.Sync.Interval); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start scheduled sync")
		}
	} else {
		logger.Info().Msg("Scheduled sync disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.App.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.App.Port + "/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received")

	// No new sweeps from the schedule, no new triggers over HTTP
	syncService.StopScheduledSync()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// An in-flight sweep runs to completion
	logger.Info().Msg("Waiting for in-flight sync to finish")
	if err := syncService.Wait(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Failed waiting for sync")
	}

	logger.Info().Msg("Shutdown complete")
}

// newStateStores returns Redis-backed status and install session stores when a
// Redis URL is configured and reachable, in-memory ones otherwise
func newStateStores(redisURL string, logger zerolog.Logger) (ports.SyncStatusStore, ports.InstallSessionStore, *redis.Client) {
	if redisURL != "" {
		client, err := cache.NewRedisClient(redisURL)
		if err == nil {
			logger.Info().Msg("Using Redis for sync status and install sessions")
			return cache.NewRedisSyncStatusStoreWithClient(client, ""),
				cache.NewRedisInstallSessionStoreWithClient(client, ""),
				client
		}
		logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory state")
	}
	return cache.NewInMemorySyncStatusStore(), cache.NewInMemoryInstallSessionStore(), nil
}
