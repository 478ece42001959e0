package types

import (
	ierr "github.com/channelgate/channelgate/internal/errors"
)

// PlanTier identifies the commercial tier of a subscription. The tier is
// informational only; access control never branches on it.
type PlanTier string

const (
	PlanTierBasic   PlanTier = "basic"
	PlanTierPremium PlanTier = "premium"
	PlanTierVIP     PlanTier = "vip"
)

// DefaultPlanTier is applied when a grant request does not name a tier.
const DefaultPlanTier = PlanTierBasic

func (t PlanTier) String() string {
	return string(t)
}

// Validate validates the plan tier
func (t PlanTier) Validate() error {
	switch t {
	case PlanTierBasic, PlanTierPremium, PlanTierVIP:
		return nil
	default:
		return ierr.NewErrorf("invalid plan tier: %s", t).
			WithHint("Plan tier must be one of: basic, premium, vip").
			Mark(ierr.ErrValidation)
	}
}
