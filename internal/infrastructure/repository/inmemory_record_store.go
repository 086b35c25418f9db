package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"
)

// InMemoryRecordStore implements RecordStore using in-memory maps.
// This is suitable for local development and testing.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[domain.ResourceType]map[string]domain.Record
	now     func() time.Time
}

// NewInMemoryRecordStore creates an empty in-memory record store
func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		records: map[domain.ResourceType]map[string]domain.Record{
			domain.ResourceCustomers: {},
			domain.ResourceOrders:    {},
			domain.ResourceProducts:  {},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ ports.RecordStore = (*InMemoryRecordStore)(nil)

func (s *InMemoryRecordStore) bucket(resource domain.ResourceType) (map[string]domain.Record, error) {
	bucket, ok := s.records[resource]
	if !ok {
		return nil, fmt.Errorf("%w: unknown resource type %q", domain.ErrValidation, resource)
	}
	return bucket, nil
}

// Upsert inserts the record or merges its fields into the stored one
func (s *InMemoryRecordStore) Upsert(ctx context.Context, resource domain.ResourceType, record domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, err := s.bucket(resource)
	if err != nil {
		return err
	}

	now := s.now()
	stored, exists := bucket[record.ID]
	if !exists {
		stored = domain.Record{ID: record.ID, CreatedAt: now, Fields: map[string]any{}}
	}
	stored.TenantID = record.TenantID
	stored.UpdatedAt = now
	for k, v := range record.Fields {
		stored.Fields[k] = v
	}
	bucket[record.ID] = stored
	return nil
}

// FindByID returns a copy of the record or nil
func (s *InMemoryRecordStore) FindByID(ctx context.Context, resource domain.ResourceType, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, err := s.bucket(resource)
	if err != nil {
		return nil, err
	}

	stored, ok := bucket[id]
	if !ok {
		return nil, nil
	}
	return copyRecord(stored), nil
}

// Exists reports whether the record is stored
func (s *InMemoryRecordStore) Exists(ctx context.Context, resource domain.ResourceType, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, err := s.bucket(resource)
	if err != nil {
		return false, err
	}
	_, ok := bucket[id]
	return ok, nil
}

// Count returns the number of records a tenant holds
func (s *InMemoryRecordStore) Count(ctx context.Context, resource domain.ResourceType, tenantID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, err := s.bucket(resource)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, record := range bucket {
		if record.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// Sum adds up a numeric field over a tenant's records
func (s *InMemoryRecordStore) Sum(ctx context.Context, resource domain.ResourceType, tenantID string, field string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, err := s.bucket(resource)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, record := range bucket {
		if record.TenantID == tenantID {
			sum += toFloat(record.Fields[field])
		}
	}
	return sum, nil
}

// GroupSum groups a tenant's records by groupField and sums sumField, largest first
func (s *InMemoryRecordStore) GroupSum(ctx context.Context, resource domain.ResourceType, tenantID string, groupField string, sumField string, limit int) ([]domain.GroupTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, err := s.bucket(resource)
	if err != nil {
		return nil, err
	}

	groups := map[string]*domain.GroupTotal{}
	for _, record := range bucket {
		if record.TenantID != tenantID {
			continue
		}
		key, _ := record.Fields[groupField].(string)
		if key == "" {
			continue
		}
		group, ok := groups[key]
		if !ok {
			group = &domain.GroupTotal{Key: key}
			groups[key] = group
		}
		group.Sum += toFloat(record.Fields[sumField])
		group.Count++
	}

	totals := make([]domain.GroupTotal, 0, len(groups))
	for _, group := range groups {
		totals = append(totals, *group)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Sum != totals[j].Sum {
			return totals[i].Sum > totals[j].Sum
		}
		return totals[i].Key < totals[j].Key
	})
	if limit > 0 && len(totals) > limit {
		totals = totals[:limit]
	}
	return totals, nil
}

func copyRecord(record domain.Record) *domain.Record {
	fields := make(map[string]any, len(record.Fields))
	for k, v := range record.Fields {
		fields[k] = v
	}
	record.Fields = fields
	return &record
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
