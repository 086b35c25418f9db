package application

import (
	"context"
	"fmt"
	"strings"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TenantService manages connected shops. Credentials are encrypted before they
// reach the repository and decrypted on every read.
type TenantService struct {
	repository    ports.TenantRepository
	encryptionSvc ports.EncryptionService
	logger        zerolog.Logger
}

var _ ports.TenantProvider = (*TenantService)(nil)

// NewTenantService creates a new tenant service
func NewTenantService(
	repository ports.TenantRepository,
	encryptionSvc ports.EncryptionService,
	logger zerolog.Logger,
) *TenantService {
	return &TenantService{
		repository:    repository,
		encryptionSvc: encryptionSvc,
		logger:        logger,
	}
}

// NormalizeShopDomain lowercases the domain and strips scheme and trailing slashes
func NormalizeShopDomain(shop string) string {
	shop = strings.ToLower(strings.TrimSpace(shop))
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	return strings.TrimRight(shop, "/")
}

// RegisterOrUpdateTenant stores the shop's access token, creating the tenant on first install
func (s *TenantService) RegisterOrUpdateTenant(ctx context.Context, shopDomain string, accessToken string) (*domain.Tenant, error) {
	shopDomain = NormalizeShopDomain(shopDomain)
	if shopDomain == "" {
		return nil, fmt.Errorf("%w: shop domain is required", domain.ErrValidation)
	}
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", domain.ErrValidation)
	}

	encryptedToken, err := s.encryptionSvc.Encrypt(accessToken)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shopDomain).Msg("Failed to encrypt access token")
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	tenant, err := s.repository.Upsert(ctx, &domain.Tenant{
		ID:          uuid.NewString(),
		ShopDomain:  shopDomain,
		AccessToken: encryptedToken,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shopDomain).Msg("Failed to save tenant")
		return nil, fmt.Errorf("failed to save tenant: %w", err)
	}

	s.logger.Info().Str("tenant_id", tenant.ID).Str("shop", shopDomain).Msg("Tenant registered")

	tenant.AccessToken = accessToken
	return tenant, nil
}

// GetTenantByID returns the tenant with its decrypted token
func (s *TenantService) GetTenantByID(ctx context.Context, id string) (*domain.Tenant, error) {
	tenant, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, id)
	}
	return s.decrypt(tenant)
}

// GetTenantByShopDomain returns the tenant for the shop with its decrypted token
func (s *TenantService) GetTenantByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error) {
	shopDomain = NormalizeShopDomain(shopDomain)
	tenant, err := s.repository.GetByShopDomain(ctx, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, shopDomain)
	}
	return s.decrypt(tenant)
}

// ListTenants returns every tenant whose credential can be decrypted.
// Tenants that fail decryption are logged and left out so one corrupt row
// does not stop a sweep.
func (s *TenantService) ListTenants(ctx context.Context) ([]*domain.Tenant, error) {
	stored, err := s.repository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	tenants := make([]*domain.Tenant, 0, len(stored))
	for _, tenant := range stored {
		decrypted, err := s.decrypt(tenant)
		if err != nil {
			s.logger.Warn().Err(err).Str("tenant_id", tenant.ID).Str("shop", tenant.ShopDomain).Msg("Skipping tenant with undecryptable credential")
			continue
		}
		tenants = append(tenants, decrypted)
	}
	return tenants, nil
}

// UpdateAccessToken rotates a tenant's credential
func (s *TenantService) UpdateAccessToken(ctx context.Context, id string, accessToken string) (*domain.Tenant, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", domain.ErrValidation)
	}

	encryptedToken, err := s.encryptionSvc.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	tenant, err := s.repository.UpdateAccessToken(ctx, id, encryptedToken)
	if err != nil {
		return nil, fmt.Errorf("failed to update access token: %w", err)
	}
	if tenant == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, id)
	}

	s.logger.Info().Str("tenant_id", id).Msg("Tenant access token rotated")

	tenant.AccessToken = accessToken
	return tenant, nil
}

// DeleteTenant removes a tenant. Ingested records are kept.
func (s *TenantService) DeleteTenant(ctx context.Context, id string) error {
	if err := s.repository.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	s.logger.Info().Str("tenant_id", id).Msg("Tenant deleted")
	return nil
}

func (s *TenantService) decrypt(tenant *domain.Tenant) (*domain.Tenant, error) {
	token, err := s.encryptionSvc.Decrypt(tenant.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token for tenant %s: %w", tenant.ID, err)
	}
	decrypted := *tenant
	decrypted.AccessToken = token
	return &decrypted, nil
}
