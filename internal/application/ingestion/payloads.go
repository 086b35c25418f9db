package ingestion

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"archie-core-shopify-sync/internal/domain"

	"github.com/shopspring/decimal"
)

type customerPayload struct {
	ID        json.Number `json:"id"`
	Email     *string     `json:"email"`
	FirstName *string     `json:"first_name"`
	LastName  *string     `json:"last_name"`
}

type orderPayload struct {
	ID          json.Number `json:"id"`
	OrderNumber json.Number `json:"order_number"`
	Name        string      `json:"name"`
	TotalPrice  string      `json:"total_price"`
	Currency    string      `json:"currency"`
	CreatedAt   *time.Time  `json:"created_at"`
	Customer    *struct {
		ID json.Number `json:"id"`
	} `json:"customer"`
}

type productPayload struct {
	ID       json.Number `json:"id"`
	Title    string      `json:"title"`
	Vendor   string      `json:"vendor"`
	Variants []struct {
		Price string `json:"price"`
	} `json:"variants"`
}

// PayloadID extracts the Shopify id of a raw payload, empty when it has none
func PayloadID(raw json.RawMessage) string {
	var head struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	return head.ID.String()
}

// DecodeCustomer parses a Shopify customer payload
func DecodeCustomer(tenantID string, raw json.RawMessage) (*domain.Customer, error) {
	var p customerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: invalid customer payload: %v", domain.ErrValidation, err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: customer payload has no id", domain.ErrValidation)
	}
	return &domain.Customer{
		ID:        p.ID.String(),
		TenantID:  tenantID,
		Email:     deref(p.Email),
		FirstName: deref(p.FirstName),
		LastName:  deref(p.LastName),
	}, nil
}

// DecodeOrder parses a Shopify order payload. The customer back-reference is returned
// separately as the upstream id; it still has to be resolved against stored customers.
func DecodeOrder(tenantID string, raw json.RawMessage) (*domain.Order, string, error) {
	var p orderPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, "", fmt.Errorf("%w: invalid order payload: %v", domain.ErrValidation, err)
	}
	if p.ID == "" {
		return nil, "", fmt.Errorf("%w: order payload has no id", domain.ErrValidation)
	}

	total, err := parseMoney(p.TotalPrice)
	if err != nil {
		return nil, "", fmt.Errorf("%w: order %s total_price: %v", domain.ErrValidation, p.ID, err)
	}

	order := &domain.Order{
		ID:          p.ID.String(),
		TenantID:    tenantID,
		TotalPrice:  total.InexactFloat64(),
		Currency:    p.Currency,
		OrderNumber: p.OrderNumber.String(),
	}
	if order.OrderNumber == "" {
		order.OrderNumber = strings.TrimPrefix(p.Name, "#")
	}
	if p.CreatedAt != nil {
		order.PlacedAt = p.CreatedAt.UTC()
	}

	var customerRef string
	if p.Customer != nil {
		customerRef = p.Customer.ID.String()
	}
	return order, customerRef, nil
}

// DecodeProduct parses a Shopify product payload; the price comes from the first variant
func DecodeProduct(tenantID string, raw json.RawMessage) (*domain.Product, error) {
	var p productPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: invalid product payload: %v", domain.ErrValidation, err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: product payload has no id", domain.ErrValidation)
	}

	product := &domain.Product{
		ID:       p.ID.String(),
		TenantID: tenantID,
		Title:    p.Title,
		Vendor:   p.Vendor,
	}
	if len(p.Variants) > 0 && p.Variants[0].Price != "" {
		price, err := parseMoney(p.Variants[0].Price)
		if err != nil {
			return nil, fmt.Errorf("%w: product %s price: %v", domain.ErrValidation, p.ID, err)
		}
		f := price.InexactFloat64()
		product.Price = &f
	}
	return product, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
