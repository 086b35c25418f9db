package ports

import (
	"time"

	"archie-core-shopify-sync/internal/domain"
)

// MetricsRecorder receives operational measurements from the client and the sync core.
type MetricsRecorder interface {
	ObserveRequest(method string, statusCode int, duration time.Duration)
	ObserveRetry(reason string)
	ObserveCircuitOpen()
	ObserveIngestion(result *domain.IngestionResult)
	ObserveTenantSync(failed bool, duration time.Duration)
	ObserveSweep(report *domain.SweepReport)
}

// NopMetrics discards every measurement
type NopMetrics struct{}

func (NopMetrics) ObserveRequest(string, int, time.Duration) {}
func (NopMetrics) ObserveRetry(string) {}
func (NopMetrics) ObserveCircuitOpen() {}
func (NopMetrics) ObserveIngestion(*domain.IngestionResult) {}
func (NopMetrics) ObserveTenantSync(bool, time.Duration) {}
func (NopMetrics) ObserveSweep(*domain.SweepReport) {}
