package repository

import (
	"context"
	"fmt"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/infrastructure/repository/entity"
	"archie-core-shopify-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRecordStore implements RecordStore with one collection per resource type
type MongoRecordStore struct {
	collections map[domain.ResourceType]*mongo.Collection
}

// NewMongoRecordStore creates a new MongoDB record store
func NewMongoRecordStore(db *mongo.Database) *MongoRecordStore {
	return &MongoRecordStore{
		collections: map[domain.ResourceType]*mongo.Collection{
			domain.ResourceCustomers: db.Collection(string(domain.ResourceCustomers)),
			domain.ResourceOrders:    db.Collection(string(domain.ResourceOrders)),
			domain.ResourceProducts:  db.Collection(string(domain.ResourceProducts)),
		},
	}
}

var _ ports.RecordStore = (*MongoRecordStore)(nil)

// EnsureIndexes creates the tenant indexes used by the reporting queries
func (s *MongoRecordStore) EnsureIndexes(ctx context.Context) error {
	for resource, collection := range s.collections {
		model := mongo.IndexModel{Keys: bson.D{{Key: entity.RecordTenantIDKey, Value: 1}}}
		if _, err := collection.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create %s tenant index: %w", resource, err)
		}
	}
	return nil
}

func (s *MongoRecordStore) collection(resource domain.ResourceType) (*mongo.Collection, error) {
	collection, ok := s.collections[resource]
	if !ok {
		return nil, fmt.Errorf("%w: unknown resource type %q", domain.ErrValidation, resource)
	}
	return collection, nil
}

// Upsert inserts or updates a record by its Shopify id
func (s *MongoRecordStore) Upsert(ctx context.Context, resource domain.ResourceType, record domain.Record) error {
	collection, err := s.collection(resource)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	opts := options.Update().SetUpsert(true)
	filter := bson.M{entity.RecordIDKey: record.ID}
	update := bson.M{
		"$set":         entity.RecordSetDoc(record, now),
		"$setOnInsert": bson.M{entity.RecordCreatedAtKey: now},
	}

	if _, err := collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert %s record: %w", resource, err)
	}
	return nil
}

// FindByID retrieves a record by its Shopify id
func (s *MongoRecordStore) FindByID(ctx context.Context, resource domain.ResourceType, id string) (*domain.Record, error) {
	collection, err := s.collection(resource)
	if err != nil {
		return nil, err
	}

	var doc bson.M
	err = collection.FindOne(ctx, bson.M{entity.RecordIDKey: id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record: %w", resource, err)
	}

	return entity.RecordFromDoc(doc), nil
}

// Exists reports whether a record with the id is stored
func (s *MongoRecordStore) Exists(ctx context.Context, resource domain.ResourceType, id string) (bool, error) {
	collection, err := s.collection(resource)
	if err != nil {
		return false, err
	}

	n, err := collection.CountDocuments(ctx, bson.M{entity.RecordIDKey: id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check %s record: %w", resource, err)
	}
	return n > 0, nil
}

// Count returns the number of records a tenant holds
func (s *MongoRecordStore) Count(ctx context.Context, resource domain.ResourceType, tenantID string) (int64, error) {
	collection, err := s.collection(resource)
	if err != nil {
		return 0, err
	}

	n, err := collection.CountDocuments(ctx, bson.M{entity.RecordTenantIDKey: tenantID})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", resource, err)
	}
	return n, nil
}

// Sum adds up a numeric field over a tenant's records
func (s *MongoRecordStore) Sum(ctx context.Context, resource domain.ResourceType, tenantID string, field string) (float64, error) {
	collection, err := s.collection(resource)
	if err != nil {
		return 0, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{entity.RecordTenantIDKey: tenantID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "sum": bson.M{"$sum": "$" + field}}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s.%s: %w", resource, field, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Sum float64 `bson:"sum"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode %s sum: %w", resource, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Sum, nil
}

// GroupSum groups a tenant's records by groupField and sums sumField, largest first.
// Records with an empty group key are left out.
func (s *MongoRecordStore) GroupSum(ctx context.Context, resource domain.ResourceType, tenantID string, groupField string, sumField string, limit int) ([]domain.GroupTotal, error) {
	collection, err := s.collection(resource)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			entity.RecordTenantIDKey: tenantID,
			groupField:               bson.M{"$nin": bson.A{nil, ""}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$" + groupField,
			"sum":   bson.M{"$sum": "$" + sumField},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "sum", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to group %s by %s: %w", resource, groupField, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Key   string  `bson:"_id"`
		Sum   float64 `bson:"sum"`
		Count int64   `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s groups: %w", resource, err)
	}

	totals := make([]domain.GroupTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, domain.GroupTotal{Key: row.Key, Sum: row.Sum, Count: row.Count})
	}
	return totals, nil
}
