package store

import (
	"context"
	"time"
)

// The three persisted session keys. They are committed and cleared as a unit;
// a record missing any of them is treated as absent.
const (
	KeyAccessToken = "access_token"
	KeyUser        = "user"
	KeyExpiresAt   = "expires_at"
)

// Record is the durable session state: the bearer credential, the serialized
// user it belongs to, and the local expiry.
type Record struct {
	AccessToken string
	UserJSON    []byte
	ExpiresAt   time.Time
}

// Expired reports whether the record's local expiry has passed.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt) || now.Equal(r.ExpiresAt)
}

// Store provides durable session persistence surviving process restarts.
type Store interface {
	// Load returns the committed record, or nil when no complete record exists.
	Load(ctx context.Context) (*Record, error)
	// Save commits all three keys together.
	Save(ctx context.Context, r *Record) error
	// Clear removes all three keys. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
}
