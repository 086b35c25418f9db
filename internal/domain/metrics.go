package domain

// DashboardMetrics summarises a tenant's ingested data.
type DashboardMetrics struct {
	TotalCustomers int64         `json:"total_customers"`
	TotalOrders    int64         `json:"total_orders"`
	TotalRevenue   float64       `json:"total_revenue"`
	TopCustomers   []TopCustomer `json:"top_customers"`
}

// TopCustomer ranks a customer by revenue.
type TopCustomer struct {
	CustomerID    string  `json:"customer_id"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	TotalRevenue  float64 `json:"total_revenue"`
	OrderCount    int64   `json:"order_count"`
}

// GroupTotal is one row of a grouped sum over stored records.
type GroupTotal struct {
	Key   string
	Sum   float64
	Count int64
}
