package types

import (
	ierr "github.com/channelgate/channelgate/internal/errors"
)

// RetirementMode controls what the store does with a subscription once the
// reconciler retires it. Soft retirement flips is_active and keeps the row
// for audit; hard retirement deletes the row.
type RetirementMode string

const (
	RetirementModeSoft RetirementMode = "soft"
	RetirementModeHard RetirementMode = "hard"
)

// Validate validates the retirement mode
func (m RetirementMode) Validate() error {
	switch m {
	case RetirementModeSoft, RetirementModeHard:
		return nil
	default:
		return ierr.NewErrorf("invalid retirement mode: %s", m).
			WithHint("Retirement mode must be one of: soft, hard").
			Mark(ierr.ErrValidation)
	}
}
