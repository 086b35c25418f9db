package domain

import (
	"time"
)

// IngestionResult reports the outcome of one pipeline run for one resource type.
// Success is true iff Errors is empty. RecordsProcessed counts committed writes only;
// RecordsSkipped counts records deliberately left untouched (existing orders on the bulk path).
type IngestionResult struct {
	Resource         ResourceType  `json:"resource"`
	Success          bool          `json:"success"`
	RecordsProcessed int           `json:"records_processed"`
	RecordsSkipped   int           `json:"records_skipped"`
	Errors           []string      `json:"errors"`
	Duration         time.Duration `json:"duration"`

	// FetchErr is the client error that stopped the page walk, if any.
	FetchErr error `json:"-"`
}

// TenantSyncReport is the outcome of one tenant sync.
type TenantSyncReport struct {
	TenantID   string            `json:"tenant_id"`
	ShopDomain string            `json:"shop_domain"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Results    []IngestionResult `json:"results"`
	Error      string            `json:"error,omitempty"`
}

// Failed reports whether the tenant sync was aborted by a fatal error
func (r *TenantSyncReport) Failed() bool {
	return r.Error != ""
}

// SweepReport is the outcome of one pass over every tenant.
type SweepReport struct {
	RunID     string             `json:"run_id"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration"`
	Tenants   []TenantSyncReport `json:"tenants"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}
