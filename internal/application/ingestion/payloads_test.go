package ingestion

import (
	"encoding/json"
	"testing"
	"time"

	"archie-core-shopify-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOrder(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 450789469,
		"name": "#1001",
		"total_price": "199.99",
		"currency": "USD",
		"created_at": "2024-03-01T10:00:00-05:00",
		"customer": {"id": 207119551}
	}`)

	order, customerRef, err := DecodeOrder("t1", raw)
	require.NoError(t, err)
	assert.Equal(t, "450789469", order.ID)
	assert.Equal(t, "t1", order.TenantID)
	assert.Equal(t, 199.99, order.TotalPrice)
	assert.Equal(t, "1001", order.OrderNumber)
	assert.Equal(t, time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC), order.PlacedAt)
	assert.Equal(t, "207119551", customerRef)
	assert.Empty(t, order.CustomerID)
}

func TestDecodeOrder_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing id", raw: `{"total_price":"1.00"}`},
		{name: "bad price", raw: `{"id":1,"total_price":"abc"}`},
		{name: "not json", raw: `[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeOrder("t1", json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestDecodeCustomer_NullFields(t *testing.T) {
	customer, err := DecodeCustomer("t1", json.RawMessage(`{"id":5,"email":null,"first_name":"Ada","last_name":null}`))
	require.NoError(t, err)
	assert.Equal(t, "5", customer.ID)
	assert.Empty(t, customer.Email)
	assert.Equal(t, "Ada", customer.FirstName)
}

func TestDecodeProduct_FirstVariantPrice(t *testing.T) {
	product, err := DecodeProduct("t1", json.RawMessage(`{"id":9,"title":"Mug","variants":[{"price":"8.10"},{"price":"9.00"}]}`))
	require.NoError(t, err)
	require.NotNil(t, product.Price)
	assert.Equal(t, 8.1, *product.Price)
}

func TestPayloadID(t *testing.T) {
	assert.Equal(t, "42", PayloadID(json.RawMessage(`{"id":42}`)))
	assert.Empty(t, PayloadID(json.RawMessage(`{"name":"x"}`)))
	assert.Empty(t, PayloadID(json.RawMessage(`nope`)))
}
