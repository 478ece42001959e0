package dto

import (
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/types"
)

// GrantRequest represents an admin-issued grant or renewal.
type GrantRequest struct {
	RequesterID  int64          `json:"requester_id" validate:"required"`
	SubscriberID int64          `json:"subscriber_id" validate:"required"`
	DurationExpr string         `json:"duration_expr" validate:"required"`
	PlanTier     types.PlanTier `json:"plan_tier,omitempty"`
}

// Validate validates the grant request. Authorization is checked by the
// service, not here; validation covers shape only.
func (r *GrantRequest) Validate() error {
	if r.RequesterID == 0 {
		return ierr.NewError("requester_id is required").
			WithHint("Requester id is required").
			Mark(ierr.ErrValidation)
	}
	if r.SubscriberID == 0 {
		return ierr.NewError("subscriber_id is required").
			WithHint("Subscriber id is required").
			Mark(ierr.ErrValidation)
	}
	if r.DurationExpr == "" {
		return ierr.NewError("duration_expr is required").
			WithHint("Duration is required, for example 7day or 1month").
			Mark(ierr.ErrValidation)
	}
	if r.PlanTier != "" {
		if err := r.PlanTier.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SubscriptionResponse represents a subscription in API replies.
type SubscriptionResponse struct {
	SubscriberID int64          `json:"subscriber_id"`
	PlanTier     types.PlanTier `json:"plan_tier"`
	ExpiryTime   time.Time      `json:"expiry_time"`
	GrantedBy    int64          `json:"granted_by"`
	ProfileName  string         `json:"profile_name,omitempty"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewSubscriptionResponse converts a domain subscription to its API shape.
func NewSubscriptionResponse(sub *subscription.Subscription) *SubscriptionResponse {
	if sub == nil {
		return nil
	}
	return &SubscriptionResponse{
		SubscriberID: sub.SubscriberID,
		PlanTier:     sub.PlanTier,
		ExpiryTime:   sub.ExpiryTime,
		GrantedBy:    sub.GrantedBy,
		ProfileName:  sub.ProfileName,
		IsActive:     sub.IsActive,
		CreatedAt:    sub.CreatedAt,
		UpdatedAt:    sub.UpdatedAt,
	}
}

// ReconcileResponse reports the outcome of one reconciliation cycle.
type ReconcileResponse struct {
	Expired int `json:"expired"`
	Retired int `json:"retired"`
	Failed  int `json:"failed"`
}
