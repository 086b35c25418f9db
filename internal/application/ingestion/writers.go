package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"
)

// bulkWriter is the per-record write step of a pipeline. It is implemented only by
// CustomerWriter, OrderWriter and ProductWriter.
type bulkWriter interface {
	resource() domain.ResourceType
	firstPageQuery() url.Values
	// writeBulk reports false when the record was deliberately left untouched
	writeBulk(ctx context.Context, tenantID string, raw json.RawMessage) (bool, error)
}

func writeError(resource domain.ResourceType, raw json.RawMessage, err error) error {
	id := PayloadID(raw)
	if id == "" {
		id = "<unknown>"
	}
	return &domain.RecordWriteError{Resource: resource, RecordID: id, Err: err}
}

// CustomerWriter upserts customers by Shopify id
type CustomerWriter struct {
	store ports.RecordStore
}

func NewCustomerWriter(store ports.RecordStore) *CustomerWriter {
	return &CustomerWriter{store: store}
}

// Upsert writes the customer payload and returns its id
func (w *CustomerWriter) Upsert(ctx context.Context, tenantID string, raw json.RawMessage) (string, error) {
	customer, err := DecodeCustomer(tenantID, raw)
	if err != nil {
		return "", writeError(domain.ResourceCustomers, raw, err)
	}
	if err := w.store.Upsert(ctx, domain.ResourceCustomers, customer.ToRecord()); err != nil {
		return "", writeError(domain.ResourceCustomers, raw, err)
	}
	return customer.ID, nil
}

func (w *CustomerWriter) resource() domain.ResourceType { return domain.ResourceCustomers }

func (w *CustomerWriter) firstPageQuery() url.Values { return nil }

func (w *CustomerWriter) writeBulk(ctx context.Context, tenantID string, raw json.RawMessage) (bool, error) {
	_, err := w.Upsert(ctx, tenantID, raw)
	return err == nil, err
}

// OrderWriter writes orders and resolves their customer back-reference.
//
// The bulk path never overwrites an order that is already stored, while the
// webhook path (Upsert) does. Both behaviours are kept on purpose.
type OrderWriter struct {
	store ports.RecordStore
}

func NewOrderWriter(store ports.RecordStore) *OrderWriter {
	return &OrderWriter{store: store}
}

// InsertIfAbsent stores the order unless its id is already present.
// It returns the order id and whether a write happened.
func (w *OrderWriter) InsertIfAbsent(ctx context.Context, tenantID string, raw json.RawMessage) (string, bool, error) {
	order, customerRef, err := DecodeOrder(tenantID, raw)
	if err != nil {
		return "", false, writeError(domain.ResourceOrders, raw, err)
	}

	exists, err := w.store.Exists(ctx, domain.ResourceOrders, order.ID)
	if err != nil {
		return "", false, writeError(domain.ResourceOrders, raw, err)
	}
	if exists {
		return order.ID, false, nil
	}

	if err := w.write(ctx, order, customerRef); err != nil {
		return "", false, writeError(domain.ResourceOrders, raw, err)
	}
	return order.ID, true, nil
}

// Upsert stores the order, overwriting any stored version
func (w *OrderWriter) Upsert(ctx context.Context, tenantID string, raw json.RawMessage) (string, error) {
	order, customerRef, err := DecodeOrder(tenantID, raw)
	if err != nil {
		return "", writeError(domain.ResourceOrders, raw, err)
	}
	if err := w.write(ctx, order, customerRef); err != nil {
		return "", writeError(domain.ResourceOrders, raw, err)
	}
	return order.ID, nil
}

func (w *OrderWriter) write(ctx context.Context, order *domain.Order, customerRef string) error {
	customerID, err := w.resolveCustomer(ctx, order.TenantID, customerRef)
	if err != nil {
		return err
	}
	order.CustomerID = customerID
	return w.store.Upsert(ctx, domain.ResourceOrders, order.ToRecord())
}

// resolveCustomer returns the stored customer id for the upstream reference, or empty
// when the customer has not been ingested for this tenant.
func (w *OrderWriter) resolveCustomer(ctx context.Context, tenantID string, customerRef string) (string, error) {
	if customerRef == "" {
		return "", nil
	}
	customer, err := w.store.FindByID(ctx, domain.ResourceCustomers, customerRef)
	if err != nil {
		return "", fmt.Errorf("failed to look up customer %s: %w", customerRef, err)
	}
	if customer == nil || customer.TenantID != tenantID {
		return "", nil
	}
	return customer.ID, nil
}

func (w *OrderWriter) resource() domain.ResourceType { return domain.ResourceOrders }

// status=any includes closed and cancelled orders
func (w *OrderWriter) firstPageQuery() url.Values {
	return url.Values{"status": {"any"}}
}

func (w *OrderWriter) writeBulk(ctx context.Context, tenantID string, raw json.RawMessage) (bool, error) {
	_, inserted, err := w.InsertIfAbsent(ctx, tenantID, raw)
	return inserted, err
}

// ProductWriter upserts products by Shopify id
type ProductWriter struct {
	store ports.RecordStore
}

func NewProductWriter(store ports.RecordStore) *ProductWriter {
	return &ProductWriter{store: store}
}

// Upsert writes the product payload and returns its id
func (w *ProductWriter) Upsert(ctx context.Context, tenantID string, raw json.RawMessage) (string, error) {
	product, err := DecodeProduct(tenantID, raw)
	if err != nil {
		return "", writeError(domain.ResourceProducts, raw, err)
	}
	if err := w.store.Upsert(ctx, domain.ResourceProducts, product.ToRecord()); err != nil {
		return "", writeError(domain.ResourceProducts, raw, err)
	}
	return product.ID, nil
}

func (w *ProductWriter) resource() domain.ResourceType { return domain.ResourceProducts }

func (w *ProductWriter) firstPageQuery() url.Values { return nil }

func (w *ProductWriter) writeBulk(ctx context.Context, tenantID string, raw json.RawMessage) (bool, error) {
	_, err := w.Upsert(ctx, tenantID, raw)
	return err == nil, err
}
