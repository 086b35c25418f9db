package ingestion

import (
	"context"
	"fmt"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// Pipeline ingests every record of one resource type for one tenant.
// Per-record failures are collected into the result; a failed page fetch
// stops the pipeline but keeps the progress made so far.
type Pipeline struct {
	writer bulkWriter
	logger zerolog.Logger
	now    func() time.Time
}

func newPipeline(writer bulkWriter, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		writer: writer,
		logger: logger.With().Str("resource", string(writer.resource())).Logger(),
		now:    time.Now,
	}
}

// NewCustomerPipeline creates the customers pipeline
func NewCustomerPipeline(store ports.RecordStore, logger zerolog.Logger) *Pipeline {
	return newPipeline(NewCustomerWriter(store), logger)
}

// NewOrderPipeline creates the orders pipeline
func NewOrderPipeline(store ports.RecordStore, logger zerolog.Logger) *Pipeline {
	return newPipeline(NewOrderWriter(store), logger)
}

// NewProductPipeline creates the products pipeline
func NewProductPipeline(store ports.RecordStore, logger zerolog.Logger) *Pipeline {
	return newPipeline(NewProductWriter(store), logger)
}

// NewPipelines returns the pipelines in the order a tenant sync runs them.
// Customers go before orders so order back-references can resolve.
func NewPipelines(store ports.RecordStore, logger zerolog.Logger) []*Pipeline {
	return []*Pipeline{
		NewCustomerPipeline(store, logger),
		NewOrderPipeline(store, logger),
		NewProductPipeline(store, logger),
	}
}

// Resource returns the resource type this pipeline ingests
func (p *Pipeline) Resource() domain.ResourceType {
	return p.writer.resource()
}

// Ingest runs the pipeline. It always returns a result; a fetch failure is
// reported through result.FetchErr and a single entry in result.Errors.
func (p *Pipeline) Ingest(ctx context.Context, tenant *domain.Tenant, client ports.APIClient) *domain.IngestionResult {
	start := p.now()
	result := &domain.IngestionResult{
		Resource: p.writer.resource(),
		Errors:   []string{},
	}

	logger := p.logger.With().Str("tenant_id", tenant.ID).Str("shop", tenant.ShopDomain).Logger()
	logger.Info().Msg("Starting ingestion")

	fetcher := NewFetcher(client, p.writer.resource(), p.writer.firstPageQuery())
	for fetcher.HasNext() {
		batch, err := fetcher.Next(ctx)
		if err != nil {
			result.FetchErr = err
			result.Errors = append(result.Errors, fmt.Sprintf("failed to fetch %s page %d: %v", p.writer.resource(), fetcher.Pages()+1, err))
			logger.Error().
				Err(err).
				Int("pages", fetcher.Pages()).
				Int("records_processed", result.RecordsProcessed).
				Msg("Fetching page failed, stopping ingestion")
			break
		}

		for _, raw := range batch {
			written, err := p.writer.writeBulk(ctx, tenant.ID, raw)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				logger.Warn().Err(err).Msg("Record write failed")
				continue
			}
			if written {
				result.RecordsProcessed++
			} else {
				result.RecordsSkipped++
			}
		}
	}

	result.Success = len(result.Errors) == 0
	result.Duration = p.now().Sub(start)

	logger.Info().
		Bool("success", result.Success).
		Int("pages", fetcher.Pages()).
		Int("records_processed", result.RecordsProcessed).
		Int("records_skipped", result.RecordsSkipped).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("Ingestion finished")

	return result
}
