package types

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	ierr "github.com/channelgate/channelgate/internal/errors"
)

// DurationUnit is the unit token of a compact duration expression.
type DurationUnit string

const (
	DurationUnitMinute DurationUnit = "min"
	DurationUnitHour   DurationUnit = "hour"
	DurationUnitDay    DurationUnit = "day"
	DurationUnitWeek   DurationUnit = "week"
	DurationUnitMonth  DurationUnit = "month"
)

// durationExprRegex matches admin-issued duration expressions such as
// "30min", "2hour", "7day", "2week", "1month". Minute and hour plural
// forms are accepted as synonyms.
var durationExprRegex = regexp.MustCompile(`^(\d+)(min|mins|hour|hours|day|week|month)$`)

// DurationExpr is a parsed duration expression.
type DurationExpr struct {
	Magnitude int
	Unit      DurationUnit
}

// ParseDurationExpr parses a compact duration expression. Zero magnitudes
// and expressions without a magnitude are rejected.
func ParseDurationExpr(expr string) (DurationExpr, error) {
	matches := durationExprRegex.FindStringSubmatch(expr)
	if matches == nil {
		return DurationExpr{}, ierr.NewErrorf("invalid duration expression: %q", expr).
			WithHint("Use formats like: 30min, 2hour, 7day, 2week, 1month").
			Mark(ierr.ErrValidation)
	}

	magnitude, err := strconv.Atoi(matches[1])
	if err != nil {
		return DurationExpr{}, ierr.WithError(err).
			WithHint("Duration magnitude must be a valid integer").
			Mark(ierr.ErrValidation)
	}
	if magnitude <= 0 {
		return DurationExpr{}, ierr.NewErrorf("duration magnitude must be positive: %q", expr).
			WithHint("Use formats like: 30min, 2hour, 7day, 2week, 1month").
			Mark(ierr.ErrValidation)
	}

	unit := DurationUnit(matches[2])
	switch unit {
	case "mins":
		unit = DurationUnitMinute
	case "hours":
		unit = DurationUnitHour
	}

	return DurationExpr{Magnitude: magnitude, Unit: unit}, nil
}

// ExpiryFrom computes the absolute expiry for the expression anchored at now.
// The month unit advances the calendar month rather than adding a fixed
// number of days, so a grant issued on the 31st can land on a normalized
// date when the target month is shorter (Go's AddDate behavior).
func (d DurationExpr) ExpiryFrom(now time.Time) time.Time {
	switch d.Unit {
	case DurationUnitMinute:
		return now.Add(time.Duration(d.Magnitude) * time.Minute)
	case DurationUnitHour:
		return now.Add(time.Duration(d.Magnitude) * time.Hour)
	case DurationUnitDay:
		return now.Add(time.Duration(d.Magnitude) * 24 * time.Hour)
	case DurationUnitWeek:
		return now.Add(time.Duration(d.Magnitude) * 7 * 24 * time.Hour)
	case DurationUnitMonth:
		return now.AddDate(0, d.Magnitude, 0)
	default:
		return now
	}
}

func (d DurationExpr) String() string {
	return fmt.Sprintf("%d%s", d.Magnitude, d.Unit)
}
