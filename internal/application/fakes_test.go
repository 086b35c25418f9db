package application

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"
)

// stubClient serves one page per path. A path mapped to an error fails every call.
type stubClient struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	gate   chan struct{}
	paths  []string
}

func newStubClient() *stubClient {
	return &stubClient{bodies: map[string]string{}, errs: map[string]error{}}
}

func (c *stubClient) withBody(path, body string) *stubClient {
	c.bodies[path] = body
	return c
}

func (c *stubClient) withError(path string, err error) *stubClient {
	c.errs[path] = err
	return c
}

func (c *stubClient) calledPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func (c *stubClient) Get(ctx context.Context, path string, query url.Values) (*ports.APIResponse, error) {
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()

	if err, ok := c.errs[path]; ok {
		return nil, err
	}
	body, ok := c.bodies[path]
	if !ok {
		body = "{}"
	}
	return &ports.APIResponse{StatusCode: 200, Body: []byte(body)}, nil
}

func (c *stubClient) Request(ctx context.Context, method string, path string, query url.Values, body any) (*ports.APIResponse, error) {
	return c.Get(ctx, path, query)
}

func (c *stubClient) Post(ctx context.Context, path string, body any) (*ports.APIResponse, error) {
	return c.Get(ctx, path, nil)
}

func (c *stubClient) Put(ctx context.Context, path string, body any) (*ports.APIResponse, error) {
	return c.Get(ctx, path, nil)
}

func (c *stubClient) Delete(ctx context.Context, path string) (*ports.APIResponse, error) {
	return c.Get(ctx, path, nil)
}

// stubClients maps tenant ids to clients; unknown tenants get a client error
type stubClients struct {
	clients map[string]*stubClient
}

func (p *stubClients) GetClient(ctx context.Context, tenant *domain.Tenant) (ports.APIClient, error) {
	client, ok := p.clients[tenant.ID]
	if !ok {
		return nil, fmt.Errorf("%w: no credential for %s", domain.ErrAuth, tenant.ShopDomain)
	}
	return client, nil
}

// fixedClient hands the same client to every tenant
type fixedClient struct {
	client ports.APIClient
}

func (p fixedClient) GetClient(ctx context.Context, tenant *domain.Tenant) (ports.APIClient, error) {
	return p.client, nil
}

// staticTenants lists tenants in the given order
type staticTenants struct {
	tenants []*domain.Tenant
	listErr error
}

func (p *staticTenants) ListTenants(ctx context.Context) ([]*domain.Tenant, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.tenants, nil
}

func (p *staticTenants) GetTenantByID(ctx context.Context, id string) (*domain.Tenant, error) {
	for _, tenant := range p.tenants {
		if tenant.ID == id {
			return tenant, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, id)
}

func (p *staticTenants) GetTenantByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error) {
	for _, tenant := range p.tenants {
		if tenant.ShopDomain == shopDomain {
			return tenant, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, shopDomain)
}

func shopClient(customerID, orderID, productID string) *stubClient {
	return newStubClient().
		withBody("customers.json", fmt.Sprintf(`{"customers":[{"id":%s,"email":"c%s@example.com","first_name":"Ada","last_name":"Lovelace"}]}`, customerID, customerID)).
		withBody("orders.json", fmt.Sprintf(`{"orders":[{"id":%s,"total_price":"19.99","currency":"EUR","order_number":1001,"customer":{"id":%s}}]}`, orderID, customerID)).
		withBody("products.json", fmt.Sprintf(`{"products":[{"id":%s,"title":"Mug","vendor":"Acme","variants":[{"price":"9.50"}]}]}`, productID))
}
