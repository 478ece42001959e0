package subscription

import (
	"context"
	"time"
)

// Repository provides access to subscription records
type Repository interface {
	// Upsert creates the record if absent, otherwise merges the given fields
	// into the existing record, preserving CreatedAt and keeping the existing
	// ProfileName when the given one is empty. Atomic per key. Returns the
	// resulting record.
	Upsert(ctx context.Context, sub *Subscription) (*Subscription, error)

	// GetActiveBySubscriber returns the record if it is active and unexpired,
	// otherwise an error marked ErrNotFound.
	GetActiveBySubscriber(ctx context.Context, subscriberID int64) (*Subscription, error)

	// FindExpiredActive returns all records that are still active but whose
	// expiry is at or before now. Ordering is unspecified.
	FindExpiredActive(ctx context.Context, now time.Time) ([]*Subscription, error)

	// Retire deactivates (soft) or deletes (hard) the record depending on the
	// configured retirement mode. Retiring an absent or already-inactive
	// record is a no-op success.
	Retire(ctx context.Context, subscriberID int64) error

	// ListAll returns every record, optionally sorted by expiry. Reporting
	// only; not on the hot path.
	ListAll(ctx context.Context, sortByExpiry bool) ([]*Subscription, error)
}
