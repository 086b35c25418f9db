package domain

import "time"

// InstallSession is the state of an OAuth install between the redirect to Shopify and the callback
type InstallSession struct {
	State     string    `json:"state"`
	Shop      string    `json:"shop"`
	ReturnURL string    `json:"return_url"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session can no longer complete an install
func (s *InstallSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
