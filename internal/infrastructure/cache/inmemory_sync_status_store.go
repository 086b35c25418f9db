package cache

import (
	"context"
	"sync"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"
)

// InMemorySyncStatusStore implements SyncStatusStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemorySyncStatusStore struct {
	mu      sync.RWMutex
	tenants map[string]domain.TenantSyncReport
	sweep   *domain.SweepReport
}

var _ ports.SyncStatusStore = (*InMemorySyncStatusStore)(nil)

// NewInMemorySyncStatusStore creates an empty status store
func NewInMemorySyncStatusStore() *InMemorySyncStatusStore {
	return &InMemorySyncStatusStore{
		tenants: make(map[string]domain.TenantSyncReport),
	}
}

func (s *InMemorySyncStatusStore) SaveTenantReport(ctx context.Context, report *domain.TenantSyncReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[report.TenantID] = *report
	return nil
}

func (s *InMemorySyncStatusStore) GetTenantReport(ctx context.Context, tenantID string) (*domain.TenantSyncReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	return &report, nil
}

func (s *InMemorySyncStatusStore) SaveSweepReport(ctx context.Context, report *domain.SweepReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *report
	s.sweep = &copied
	return nil
}

func (s *InMemorySyncStatusStore) GetSweepReport(ctx context.Context) (*domain.SweepReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sweep == nil {
		return nil, nil
	}
	copied := *s.sweep
	return &copied, nil
}
