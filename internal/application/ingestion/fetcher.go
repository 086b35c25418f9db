package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"
)

// PageSize is the largest page the Shopify REST list endpoints return
const PageSize = 250

// Fetcher walks the cursor-paginated list endpoint of one resource.
// It is lazy and cannot be restarted; retries belong to the client.
type Fetcher struct {
	client    ports.APIClient
	resource  domain.ResourceType
	baseQuery url.Values
	pageInfo  string
	started   bool
	done      bool
	pages     int
}

// NewFetcher creates a fetcher. baseQuery is sent with the first page only:
// Shopify rejects filter parameters alongside page_info.
func NewFetcher(client ports.APIClient, resource domain.ResourceType, baseQuery url.Values) *Fetcher {
	return &Fetcher{
		client:    client,
		resource:  resource,
		baseQuery: baseQuery,
	}
}

// HasNext reports whether another page may be fetched
func (f *Fetcher) HasNext() bool {
	return !f.done
}

// Pages returns the number of pages fetched so far
func (f *Fetcher) Pages() int {
	return f.pages
}

// Next fetches the next page of raw resource payloads. A failed fetch ends the walk.
func (f *Fetcher) Next(ctx context.Context) ([]json.RawMessage, error) {
	if f.done {
		return nil, nil
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(PageSize))
	if !f.started {
		for k, v := range f.baseQuery {
			query[k] = v
		}
	} else {
		query.Set("page_info", f.pageInfo)
	}
	f.started = true

	resp, err := f.client.Get(ctx, string(f.resource)+".json", query)
	if err != nil {
		f.done = true
		return nil, err
	}

	var page map[string][]json.RawMessage
	if err := resp.Decode(&page); err != nil {
		f.done = true
		return nil, fmt.Errorf("failed to decode %s page: %w", f.resource, err)
	}

	f.pages++
	f.pageInfo = resp.NextPageInfo
	if f.pageInfo == "" {
		f.done = true
	}

	return page[string(f.resource)], nil
}
