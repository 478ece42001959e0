package subscription

import (
	"time"

	"github.com/channelgate/channelgate/internal/types"
)

// Subscription is the persisted record of one subscriber's access grant to
// the gated channel. Records are keyed by the externally assigned Telegram
// user id; a grant for an existing id is a renewal of the same record.
type Subscription struct {
	// SubscriberID is the Telegram user id of the subscriber.
	SubscriberID int64 `json:"subscriber_id" db:"subscriber_id"`
	// PlanTier is informational; access control never branches on it.
	PlanTier types.PlanTier `json:"plan_tier" db:"plan_tier"`
	// ExpiryTime is set only by the grant service, never by the reconciler.
	ExpiryTime time.Time `json:"expiry_time" db:"expiry_time"`
	// GrantedBy is the admin user id that created or last renewed the record.
	GrantedBy int64 `json:"granted_by" db:"granted_by"`
	// ProfileName is a display-name snapshot captured at grant time for
	// reporting. Advisory only, never used for identity decisions.
	ProfileName string `json:"profile_name,omitempty" db:"profile_name"`
	// IsActive transitions active to inactive only; the sole path back to
	// active is a fresh renewal through the grant service.
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether the grant has lapsed at the given instant.
func (s *Subscription) IsExpired(now time.Time) bool {
	return !s.ExpiryTime.After(now)
}

// EligibleForRetirement reports whether the reconciler should retire the
// record. Eligibility is derived, not stored.
func (s *Subscription) EligibleForRetirement(now time.Time) bool {
	return s.IsActive && s.IsExpired(now)
}
