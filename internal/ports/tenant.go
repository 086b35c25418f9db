package ports

import (
	"context"

	"archie-core-shopify-sync/internal/domain"
)

// TenantProvider yields tenants with decrypted credentials
type TenantProvider interface {
	ListTenants(ctx context.Context) ([]*domain.Tenant, error)
	GetTenantByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetTenantByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error)
}
