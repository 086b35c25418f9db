package ingestion

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/infrastructure/repository"
	"archie-core-shopify-sync/internal/ports"
)

type fakePage struct {
	body string
	next string
	err  error
}

type fakeCall struct {
	path  string
	query url.Values
}

// fakeClient serves canned pages per path in order
type fakeClient struct {
	mu    sync.Mutex
	pages map[string][]fakePage
	calls []fakeCall
}

func newFakeClient() *fakeClient {
	return &fakeClient{pages: map[string][]fakePage{}}
}

func (c *fakeClient) addPage(path string, page fakePage) *fakeClient {
	c.pages[path] = append(c.pages[path], page)
	return c
}

func (c *fakeClient) callsFor(path string) []fakeCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []fakeCall
	for _, call := range c.calls {
		if call.path == path {
			out = append(out, call)
		}
	}
	return out
}

func (c *fakeClient) Get(ctx context.Context, path string, query url.Values) (*ports.APIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	served := 0
	for _, call := range c.calls {
		if call.path == path {
			served++
		}
	}
	c.calls = append(c.calls, fakeCall{path: path, query: query})

	pages := c.pages[path]
	if served >= len(pages) {
		return nil, &domain.APIError{Kind: domain.ErrValidation, Method: "GET", Path: path, StatusCode: 404}
	}
	page := pages[served]
	if page.err != nil {
		return nil, page.err
	}
	return &ports.APIResponse{StatusCode: 200, Body: []byte(page.body), NextPageInfo: page.next}, nil
}

func (c *fakeClient) Request(ctx context.Context, method string, path string, query url.Values, body any) (*ports.APIResponse, error) {
	if method == "GET" {
		return c.Get(ctx, path, query)
	}
	return nil, errors.New("not implemented")
}

func (c *fakeClient) Post(ctx context.Context, path string, body any) (*ports.APIResponse, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeClient) Put(ctx context.Context, path string, body any) (*ports.APIResponse, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeClient) Delete(ctx context.Context, path string) (*ports.APIResponse, error) {
	return nil, errors.New("not implemented")
}

// failingStore rejects writes of the listed record ids
type failingStore struct {
	*repository.InMemoryRecordStore
	failIDs map[string]bool
}

func (s *failingStore) Upsert(ctx context.Context, resource domain.ResourceType, record domain.Record) error {
	if s.failIDs[record.ID] {
		return errors.New("write rejected")
	}
	return s.InMemoryRecordStore.Upsert(ctx, resource, record)
}
