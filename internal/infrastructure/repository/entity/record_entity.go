package entity

import (
	"time"

	"archie-core-shopify-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reserved keys of a record document; resource fields are stored alongside them.
const (
	RecordIDKey        = "_id"
	RecordTenantIDKey  = "tenantId"
	RecordCreatedAtKey = "createdAt"
	RecordUpdatedAtKey = "updatedAt"
)

// RecordSetDoc builds the $set part of a record upsert
func RecordSetDoc(record domain.Record, now time.Time) bson.M {
	doc := bson.M{}
	for k, v := range record.Fields {
		doc[k] = v
	}
	doc[RecordTenantIDKey] = record.TenantID
	doc[RecordUpdatedAtKey] = now
	return doc
}

// RecordFromDoc converts a raw record document to a domain record
func RecordFromDoc(doc bson.M) *domain.Record {
	record := &domain.Record{Fields: map[string]any{}}
	for k, v := range doc {
		switch k {
		case RecordIDKey:
			record.ID, _ = v.(string)
		case RecordTenantIDKey:
			record.TenantID, _ = v.(string)
		case RecordCreatedAtKey:
			record.CreatedAt = toTime(v)
		case RecordUpdatedAtKey:
			record.UpdatedAt = toTime(v)
		default:
			record.Fields[k] = normalize(v)
		}
	}
	return record
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t
	default:
		return time.Time{}
	}
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	default:
		return v
	}
}
