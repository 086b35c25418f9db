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

// MongoTenantRepository implements TenantRepository using MongoDB
type MongoTenantRepository struct {
	collection *mongo.Collection
}

// NewMongoTenantRepository creates a new MongoDB tenant repository
func NewMongoTenantRepository(db *mongo.Database) *MongoTenantRepository {
	return &MongoTenantRepository{
		collection: db.Collection("tenants"),
	}
}

var _ ports.TenantRepository = (*MongoTenantRepository)(nil)

// EnsureIndexes makes the shop domain unique
func (r *MongoTenantRepository) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "shopDomain", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("failed to create tenant index: %w", err)
	}
	return nil
}

// Upsert saves a tenant keyed by its shop domain, keeping the existing id and creation time
func (r *MongoTenantRepository) Upsert(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error) {
	now := time.Now().UTC()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	filter := bson.M{"shopDomain": tenant.ShopDomain}
	update := bson.M{
		"$set": bson.M{
			"accessToken": tenant.AccessToken,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"_id":       tenant.ID,
			"createdAt": now,
		},
	}

	var doc entity.MongoTenantDoc
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to save tenant: %w", err)
	}
	return doc.ToDomain(), nil
}

// GetByID retrieves a tenant by id
func (r *MongoTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByShopDomain retrieves a tenant by shop domain
func (r *MongoTenantRepository) GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error) {
	return r.findOne(ctx, bson.M{"shopDomain": shopDomain})
}

func (r *MongoTenantRepository) findOne(ctx context.Context, filter bson.M) (*domain.Tenant, error) {
	var doc entity.MongoTenantDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return doc.ToDomain(), nil
}

// List retrieves all tenants ordered by creation time
func (r *MongoTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer cursor.Close(ctx)

	var tenants []*domain.Tenant
	for cursor.Next(ctx) {
		var doc entity.MongoTenantDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode tenant: %w", err)
		}
		tenants = append(tenants, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return tenants, nil
}

// UpdateAccessToken replaces the stored credential. Returns nil when the tenant does not exist.
func (r *MongoTenantRepository) UpdateAccessToken(ctx context.Context, id string, accessToken string) (*domain.Tenant, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"accessToken": accessToken, "updatedAt": time.Now().UTC()}}

	var doc entity.MongoTenantDoc
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update tenant token: %w", err)
	}
	return doc.ToDomain(), nil
}

// Delete removes a tenant
func (r *MongoTenantRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return nil
}
