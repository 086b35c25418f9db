package domain

import "time"

// Tenant represents one connected Shopify store being synced.
// AccessToken holds the decrypted credential once loaded through the tenant service;
// repositories only ever see the encrypted form.
type Tenant struct {
	ID          string    `json:"id"`
	ShopDomain  string    `json:"shop_domain"` // e.g. acme.myshopify.com, unique
	AccessToken string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
