package application

import (
	"context"
	"fmt"
	"strings"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

const (
	dashboardTopCustomers = 5
	maxTopCustomers       = 100
)

// MetricsService answers reporting queries over a tenant's ingested records
type MetricsService struct {
	store   ports.RecordStore
	tenants ports.TenantProvider
	logger  zerolog.Logger
}

// NewMetricsService creates a new metrics service
func NewMetricsService(store ports.RecordStore, tenants ports.TenantProvider, logger zerolog.Logger) *MetricsService {
	return &MetricsService{
		store:   store,
		tenants: tenants,
		logger:  logger,
	}
}

// GetDashboardMetrics returns record totals, revenue and the top customers by revenue
func (s *MetricsService) GetDashboardMetrics(ctx context.Context, tenantID string) (*domain.DashboardMetrics, error) {
	if _, err := s.tenants.GetTenantByID(ctx, tenantID); err != nil {
		return nil, err
	}

	totalCustomers, err := s.store.Count(ctx, domain.ResourceCustomers, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	totalOrders, err := s.store.Count(ctx, domain.ResourceOrders, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	totalRevenue, err := s.store.Sum(ctx, domain.ResourceOrders, tenantID, "total_price")
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	topCustomers, err := s.topCustomers(ctx, tenantID, dashboardTopCustomers)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardMetrics{
		TotalCustomers: totalCustomers,
		TotalOrders:    totalOrders,
		TotalRevenue:   totalRevenue,
		TopCustomers:   topCustomers,
	}, nil
}

// GetTopCustomers ranks the tenant's customers by order revenue. limit must be within 1..100.
func (s *MetricsService) GetTopCustomers(ctx context.Context, tenantID string, limit int) ([]domain.TopCustomer, error) {
	if limit < 1 || limit > maxTopCustomers {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxTopCustomers)
	}
	if _, err := s.tenants.GetTenantByID(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.topCustomers(ctx, tenantID, limit)
}

func (s *MetricsService) topCustomers(ctx context.Context, tenantID string, limit int) ([]domain.TopCustomer, error) {
	groups, err := s.store.GroupSum(ctx, domain.ResourceOrders, tenantID, "customer_id", "total_price", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to group revenue by customer: %w", err)
	}

	top := make([]domain.TopCustomer, 0, len(groups))
	for _, group := range groups {
		customer, err := s.store.FindByID(ctx, domain.ResourceCustomers, group.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to get customer %s: %w", group.Key, err)
		}

		entry := domain.TopCustomer{
			CustomerID:   group.Key,
			CustomerName: "Unknown",
			TotalRevenue: group.Sum,
			OrderCount:   group.Count,
		}
		if customer != nil {
			if name := customerName(customer); name != "" {
				entry.CustomerName = name
			}
			entry.CustomerEmail, _ = customer.Fields["email"].(string)
		}
		top = append(top, entry)
	}
	return top, nil
}

func customerName(customer *domain.Record) string {
	first, _ := customer.Fields["first_name"].(string)
	last, _ := customer.Fields["last_name"].(string)
	return strings.TrimSpace(first + " " + last)
}
