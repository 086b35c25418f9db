package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"
)

// InMemoryTenantRepository implements TenantRepository using an in-memory map
type InMemoryTenantRepository struct {
	mu      sync.RWMutex
	tenants map[string]domain.Tenant
}

// NewInMemoryTenantRepository creates an empty in-memory tenant repository
func NewInMemoryTenantRepository() *InMemoryTenantRepository {
	return &InMemoryTenantRepository{
		tenants: make(map[string]domain.Tenant),
	}
}

var _ ports.TenantRepository = (*InMemoryTenantRepository)(nil)

// Upsert saves a tenant keyed by its shop domain, keeping the existing id and creation time
func (r *InMemoryTenantRepository) Upsert(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for id, existing := range r.tenants {
		if existing.ShopDomain == tenant.ShopDomain {
			existing.AccessToken = tenant.AccessToken
			existing.UpdatedAt = now
			r.tenants[id] = existing
			return &existing, nil
		}
	}

	stored := *tenant
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.tenants[stored.ID] = stored
	return &stored, nil
}

// GetByID retrieves a tenant by id
func (r *InMemoryTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenant, ok := r.tenants[id]
	if !ok {
		return nil, nil
	}
	return &tenant, nil
}

// GetByShopDomain retrieves a tenant by shop domain
func (r *InMemoryTenantRepository) GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tenant := range r.tenants {
		if tenant.ShopDomain == shopDomain {
			return &tenant, nil
		}
	}
	return nil, nil
}

// List retrieves all tenants ordered by creation time
func (r *InMemoryTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenants := make([]*domain.Tenant, 0, len(r.tenants))
	for _, tenant := range r.tenants {
		t := tenant
		tenants = append(tenants, &t)
	}
	sort.Slice(tenants, func(i, j int) bool {
		if !tenants[i].CreatedAt.Equal(tenants[j].CreatedAt) {
			return tenants[i].CreatedAt.Before(tenants[j].CreatedAt)
		}
		return tenants[i].ShopDomain < tenants[j].ShopDomain
	})
	return tenants, nil
}

// UpdateAccessToken replaces the stored credential. Returns nil when the tenant does not exist.
func (r *InMemoryTenantRepository) UpdateAccessToken(ctx context.Context, id string, accessToken string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.tenants[id]
	if !ok {
		return nil, nil
	}
	tenant.AccessToken = accessToken
	tenant.UpdatedAt = time.Now().UTC()
	r.tenants[id] = tenant
	return &tenant, nil
}

// Delete removes a tenant
func (r *InMemoryTenantRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tenants, id)
	return nil
}
