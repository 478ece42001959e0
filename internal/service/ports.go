package service

import (
	"context"
)

// MembershipGateway revokes and restores a subscriber's ability to be in the
// gated channel. Both operations are idempotent so the reconciler can retry
// them safely.
type MembershipGateway interface {
	RevokeAccess(ctx context.Context, subscriberID int64) error
	RestoreEligibility(ctx context.Context, subscriberID int64) error
}

// Notifier delivers a message to a recipient. Delivery is best-effort;
// callers swallow failures.
type Notifier interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// ProfileResolver looks up a subscriber's display name for the profile
// snapshot. Best-effort; failures never block a grant.
type ProfileResolver interface {
	LookupProfile(ctx context.Context, subscriberID int64) (string, error)
}
