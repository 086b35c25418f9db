package domain

import "time"

// ResourceType names one of the record kinds pulled from Shopify.
type ResourceType string

const (
	ResourceCustomers ResourceType = "customers"
	ResourceOrders    ResourceType = "orders"
	ResourceProducts  ResourceType = "products"
)

// Record is the storage-agnostic form of an ingested resource.
// ID is the Shopify id rendered as a string and is unique per resource type.
type Record struct {
	ID        string
	TenantID  string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Customer is a Shopify customer as stored locally.
type Customer struct {
	ID        string
	TenantID  string
	Email     string
	FirstName string
	LastName  string
}

// ToRecord converts the customer into its storable form
func (c *Customer) ToRecord() Record {
	return Record{
		ID:       c.ID,
		TenantID: c.TenantID,
		Fields: map[string]any{
			"email":      c.Email,
			"first_name": c.FirstName,
			"last_name":  c.LastName,
		},
	}
}

// Order is a Shopify order as stored locally.
// CustomerID is a weak back-reference: empty when the customer is not (yet) known locally.
type Order struct {
	ID          string
	TenantID    string
	CustomerID  string
	TotalPrice  float64
	Currency    string
	OrderNumber string
	PlacedAt    time.Time
}

// ToRecord converts the order into its storable form
func (o *Order) ToRecord() Record {
	fields := map[string]any{
		"total_price":  o.TotalPrice,
		"currency":     o.Currency,
		"order_number": o.OrderNumber,
		"customer_id":  nil,
	}
	if o.CustomerID != "" {
		fields["customer_id"] = o.CustomerID
	}
	if !o.PlacedAt.IsZero() {
		fields["placed_at"] = o.PlacedAt
	}
	return Record{
		ID:       o.ID,
		TenantID: o.TenantID,
		Fields:   fields,
	}
}

// Product is a Shopify product as stored locally. Price is taken from the first variant.
type Product struct {
	ID       string
	TenantID string
	Title    string
	Vendor   string
	Price    *float64
}

// ToRecord converts the product into its storable form
func (p *Product) ToRecord() Record {
	fields := map[string]any{
		"title":  p.Title,
		"vendor": p.Vendor,
		"price":  nil,
	}
	if p.Price != nil {
		fields["price"] = *p.Price
	}
	return Record{
		ID:       p.ID,
		TenantID: p.TenantID,
		Fields:   fields,
	}
}
