package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"archie-core-shopify-sync/internal/application/ingestion"
	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SyncService orchestrates tenant syncs and the recurring sweep over all tenants.
//
// All sync work runs on a single logical worker: a sweep, a scheduled tick and a
// manual trigger never overlap. Tenants are synced one after another and a
// tenant's pipelines run customers, orders, products in that order.
type SyncService struct {
	tenants   ports.TenantProvider
	clients   ports.ClientProvider
	pipelines []*ingestion.Pipeline
	status    ports.SyncStatusStore
	metrics   ports.MetricsRecorder
	logger    zerolog.Logger
	now       func() time.Time

	// held for the duration of any sync work
	work sync.Mutex
	// background runs started by triggers
	inflight sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
	interval  time.Duration
	cancel    context.CancelFunc
	loopDone  chan struct{}
}

// NewSyncService creates a sync service. pipelines must be in run order; see ingestion.NewPipelines.
func NewSyncService(
	tenants ports.TenantProvider,
	clients ports.ClientProvider,
	pipelines []*ingestion.Pipeline,
	status ports.SyncStatusStore,
	metrics ports.MetricsRecorder,
	logger zerolog.Logger,
) *SyncService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &SyncService{
		tenants:   tenants,
		clients:   clients,
		pipelines: pipelines,
		status:    status,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// SyncTenantData runs every pipeline for one tenant. Per-record and fetch failures
// are reported in the returned report; an error is returned only when the tenant
// sync had to be aborted (no client, revoked credential, cancellation).
func (s *SyncService) SyncTenantData(ctx context.Context, tenant *domain.Tenant) (*domain.TenantSyncReport, error) {
	if !s.work.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	defer s.work.Unlock()

	return s.syncTenant(ctx, tenant)
}

// SyncAllTenants syncs every tenant in turn. A failing tenant is logged and
// recorded in the report; the remaining tenants are still attempted.
func (s *SyncService) SyncAllTenants(ctx context.Context) (*domain.SweepReport, error) {
	if !s.work.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	defer s.work.Unlock()

	return s.sweep(ctx)
}

// TriggerSweep starts a sweep in the background. It fails with ErrSyncInProgress
// when sync work is already running.
func (s *SyncService) TriggerSweep(ctx context.Context) error {
	if !s.work.TryLock() {
		return domain.ErrSyncInProgress
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.work.Unlock()

		if _, err := s.sweep(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error().Err(err).Msg("Triggered sync failed")
		}
	}()
	return nil
}

// TriggerTenantSync starts one tenant's sync in the background
func (s *SyncService) TriggerTenantSync(ctx context.Context, tenantID string) error {
	tenant, err := s.tenants.GetTenantByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !s.work.TryLock() {
		return domain.ErrSyncInProgress
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.work.Unlock()

		if _, err := s.syncTenant(context.WithoutCancel(ctx), tenant); err != nil {
			s.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Triggered tenant sync failed")
		}
	}()
	return nil
}

// StartScheduledSync runs a sweep every interval until StopScheduledSync is called.
// Calling it while already running does nothing.
func (s *SyncService) StartScheduledSync(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: sync interval must be positive", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.logger.Info().Msg("Scheduled sync already running")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.isRunning = true
	s.interval = interval
	s.cancel = cancel
	s.loopDone = make(chan struct{})

	go s.runLoop(loopCtx, interval, s.loopDone)

	s.logger.Info().Dur("interval", interval).Msg("Scheduled sync started")
	return nil
}

// StopScheduledSync stops the schedule. A sweep already in flight runs to completion;
// use Wait to block until it has. Calling it when not running does nothing.
func (s *SyncService) StopScheduledSync() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.isRunning = false
	s.cancel()
	s.cancel = nil

	s.logger.Info().Msg("Scheduled sync stopped")
}

// IsScheduled reports whether the recurring sweep is active
func (s *SyncService) IsScheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Wait blocks until the schedule loop has exited and triggered runs have finished
func (s *SyncService) Wait(ctx context.Context) error {
	s.mu.Lock()
	loopDone := s.loopDone
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if loopDone != nil {
			<-loopDone
		}
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastSweep returns the report of the most recent sweep, nil if none ran yet
func (s *SyncService) LastSweep(ctx context.Context) (*domain.SweepReport, error) {
	return s.status.GetSweepReport(ctx)
}

// LastTenantSync returns the most recent report for a tenant, nil if none ran yet
func (s *SyncService) LastTenantSync(ctx context.Context, tenantID string) (*domain.TenantSyncReport, error) {
	return s.status.GetTenantReport(ctx, tenantID)
}

func (s *SyncService) runLoop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScheduledSweep(ctx)
		}
	}
}

func (s *SyncService) runScheduledSweep(ctx context.Context) {
	if !s.work.TryLock() {
		s.logger.Warn().Msg("Previous sync still running, skipping scheduled sweep")
		return
	}
	defer s.work.Unlock()

	s.logger.Info().Msg("Scheduled sync triggered")

	// shutdown stops the schedule, not a sweep in flight
	if _, err := s.sweep(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled sync failed")
	}
}

func (s *SyncService) sweep(ctx context.Context) (*domain.SweepReport, error) {
	start := s.now()
	report := &domain.SweepReport{
		RunID:     uuid.NewString(),
		StartedAt: start,
		Tenants:   []domain.TenantSyncReport{},
	}
	logger := s.logger.With().Str("run_id", report.RunID).Logger()

	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load tenants")
		return nil, fmt.Errorf("failed to load tenants: %w", err)
	}

	logger.Info().Int("tenants", len(tenants)).Msg("Starting sync for all tenants")

	for _, tenant := range tenants {
		tenantReport, err := s.syncTenant(ctx, tenant)
		if err != nil {
			report.Failed++
			logger.Error().
				Err(err).
				Str("tenant_id", tenant.ID).
				Str("shop", tenant.ShopDomain).
				Msg("Sync failed for tenant, continuing with next tenant")
		} else {
			report.Succeeded++
		}
		report.Tenants = append(report.Tenants, *tenantReport)
	}

	report.Duration = s.now().Sub(start)
	s.metrics.ObserveSweep(report)
	if err := s.status.SaveSweepReport(ctx, report); err != nil {
		logger.Warn().Err(err).Msg("Failed to save sweep report")
	}

	logger.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("Completed sync for all tenants")

	return report, nil
}

func (s *SyncService) syncTenant(ctx context.Context, tenant *domain.Tenant) (*domain.TenantSyncReport, error) {
	start := s.now()
	report := &domain.TenantSyncReport{
		TenantID:   tenant.ID,
		ShopDomain: tenant.ShopDomain,
		StartedAt:  start,
		Results:    []domain.IngestionResult{},
	}
	logger := s.logger.With().Str("tenant_id", tenant.ID).Str("shop", tenant.ShopDomain).Logger()
	logger.Info().Msg("Starting sync for tenant")

	err := s.runPipelines(ctx, tenant, report)

	report.Duration = s.now().Sub(start)
	if err != nil {
		report.Error = err.Error()
	}
	s.metrics.ObserveTenantSync(err != nil, report.Duration)
	if saveErr := s.status.SaveTenantReport(ctx, report); saveErr != nil {
		logger.Warn().Err(saveErr).Msg("Failed to save tenant sync report")
	}

	if err != nil {
		return report, err
	}

	logger.Info().Dur("duration", report.Duration).Msg("Completed sync for tenant")
	return report, nil
}

func (s *SyncService) runPipelines(ctx context.Context, tenant *domain.Tenant, report *domain.TenantSyncReport) error {
	client, err := s.clients.GetClient(ctx, tenant)
	if err != nil {
		return fmt.Errorf("failed to create client for tenant %s: %w", tenant.ShopDomain, err)
	}

	for _, pipeline := range s.pipelines {
		result := pipeline.Ingest(ctx, tenant, client)
		s.metrics.ObserveIngestion(result)
		report.Results = append(report.Results, *result)

		if isFatal(result.FetchErr) {
			return fmt.Errorf("%s ingestion aborted for tenant %s: %w", pipeline.Resource(), tenant.ShopDomain, result.FetchErr)
		}
	}
	return nil
}

// isFatal reports whether a fetch failure must abort the whole tenant sync.
// Client failures are judged by their kind only: a transport timeout inside a
// NetworkError is not a cancellation of the sync.
func isFatal(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return errors.Is(apiErr.Kind, domain.ErrAuth)
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
