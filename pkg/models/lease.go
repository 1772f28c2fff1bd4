package models

import "time"

// Lease is a time-bounded exclusive claim on an application id. At most one
// live lease exists per application at any time; it is the sole serialization
// primitive for transition processing.
type Lease struct {
	ApplicationID string    `json:"application_id"`
	HolderToken   string    `json:"holder_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the lease has passed its expiry instant.
func (l *Lease) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
