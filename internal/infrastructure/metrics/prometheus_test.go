package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"archie-core-shopify-sync/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_Client(t *testing.T) {
	r := NewPrometheusRecorder()

	r.ObserveRequest("GET", 200, 120*time.Millisecond)
	r.ObserveRequest("GET", 200, 80*time.Millisecond)
	r.ObserveRequest("GET", 429, 10*time.Millisecond)
	r.ObserveRetry("rate_limited")
	r.ObserveCircuitOpen()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("GET", "429")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retriesTotal.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.circuitOpensTotal))
}

func TestPrometheusRecorder_Sync(t *testing.T) {
	r := NewPrometheusRecorder()

	r.ObserveIngestion(&domain.IngestionResult{
		Resource:         domain.ResourceOrders,
		Success:          false,
		RecordsProcessed: 10,
		RecordsSkipped:   3,
		Errors:           []string{"failed to write orders 1: boom"},
		Duration:         2 * time.Second,
	})
	r.ObserveTenantSync(true, time.Minute)
	r.ObserveSweep(&domain.SweepReport{StartedAt: time.Unix(1700000000, 0), Duration: 30 * time.Second, Failed: 1})

	assert.Equal(t, 10.0, testutil.ToFloat64(r.recordsTotal.WithLabelValues("orders", "written")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.recordsTotal.WithLabelValues("orders", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.recordErrorsTotal.WithLabelValues("orders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ingestionsTotal.WithLabelValues("orders", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tenantSyncsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sweepsTotal))
	assert.Equal(t, 1700000030.0, testutil.ToFloat64(r.lastSweepTimestamp))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lastSweepFailures))
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	r := NewPrometheusRecorder()
	r.ObserveRetry("server_error")

	server := httptest.NewServer(r.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `shopify_sync_api_retries_total{reason="server_error"} 1`)
}
