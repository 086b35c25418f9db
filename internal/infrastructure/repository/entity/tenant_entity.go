package entity

import (
	"time"

	"archie-core-shopify-sync/internal/domain"
)

// MongoTenantDoc represents a tenant in MongoDB. AccessToken holds the encrypted credential.
type MongoTenantDoc struct {
	ID          string    `bson:"_id"`
	ShopDomain  string    `bson:"shopDomain"`
	AccessToken string    `bson:"accessToken"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoTenantDoc) ToDomain() *domain.Tenant {
	return &domain.Tenant{
		ID:          d.ID,
		ShopDomain:  d.ShopDomain,
		AccessToken: d.AccessToken,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoTenantDocFromDomain converts a domain entity to a MongoDB document
func MongoTenantDocFromDomain(tenant *domain.Tenant) *MongoTenantDoc {
	return &MongoTenantDoc{
		ID:          tenant.ID,
		ShopDomain:  tenant.ShopDomain,
		AccessToken: tenant.AccessToken,
		CreatedAt:   tenant.CreatedAt,
		UpdatedAt:   tenant.UpdatedAt,
	}
}
