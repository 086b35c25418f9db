package ports

import (
	"context"

	"archie-core-shopify-sync/internal/domain"
)

// RecordStore is the persistence collaborator for ingested records.
// Every write is a single-record atomic operation; there is no multi-record transaction.
type RecordStore interface {
	// Upsert inserts the record or updates its fields in place, refreshing UpdatedAt
	Upsert(ctx context.Context, resource domain.ResourceType, record domain.Record) error

	// FindByID returns the record or nil when it does not exist
	FindByID(ctx context.Context, resource domain.ResourceType, id string) (*domain.Record, error)

	// Exists reports whether a record with the id exists
	Exists(ctx context.Context, resource domain.ResourceType, id string) (bool, error)

	// Reporting queries
	Count(ctx context.Context, resource domain.ResourceType, tenantID string) (int64, error)
	Sum(ctx context.Context, resource domain.ResourceType, tenantID string, field string) (float64, error)
	GroupSum(ctx context.Context, resource domain.ResourceType, tenantID string, groupField string, sumField string, limit int) ([]domain.GroupTotal, error)
}

// TenantRepository persists tenants. AccessToken is stored exactly as given (already encrypted).
type TenantRepository interface {
	Upsert(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error)
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	UpdateAccessToken(ctx context.Context, id string, accessToken string) (*domain.Tenant, error)
	Delete(ctx context.Context, id string) error
}

// SyncStatusStore keeps the latest sync outcomes for diagnostics
type SyncStatusStore interface {
	SaveTenantReport(ctx context.Context, report *domain.TenantSyncReport) error
	GetTenantReport(ctx context.Context, tenantID string) (*domain.TenantSyncReport, error)
	SaveSweepReport(ctx context.Context, report *domain.SweepReport) error
	GetSweepReport(ctx context.Context) (*domain.SweepReport, error)
}

// InstallSessionStore holds pending OAuth installs keyed by their state parameter
type InstallSessionStore interface {
	Create(ctx context.Context, session *domain.InstallSession) error
	// Consume returns the session and removes it; nil when unknown or expired
	Consume(ctx context.Context, state string) (*domain.InstallSession, error)
}
