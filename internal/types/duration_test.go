package types

import (
	"testing"
	"time"

	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationExpr(t *testing.T) {
	tests := []struct {
		expr      string
		magnitude int
		unit      DurationUnit
		wantErr   bool
	}{
		{expr: "1min", magnitude: 1, unit: DurationUnitMinute},
		{expr: "30mins", magnitude: 30, unit: DurationUnitMinute},
		{expr: "2hour", magnitude: 2, unit: DurationUnitHour},
		{expr: "12hours", magnitude: 12, unit: DurationUnitHour},
		{expr: "7day", magnitude: 7, unit: DurationUnitDay},
		{expr: "2week", magnitude: 2, unit: DurationUnitWeek},
		{expr: "1month", magnitude: 1, unit: DurationUnitMonth},
		{expr: "0day", wantErr: true},
		{expr: "day", wantErr: true},
		{expr: "7", wantErr: true},
		{expr: "", wantErr: true},
		{expr: "7days", wantErr: true},
		{expr: "-1day", wantErr: true},
		{expr: "1 day", wantErr: true},
		{expr: "7year", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseDurationExpr(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.magnitude, expr.Magnitude)
			assert.Equal(t, tt.unit, expr.Unit)
		})
	}
}

func TestExpiryFrom(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{expr: "30min", want: now.Add(30 * time.Minute)},
		{expr: "2hour", want: now.Add(2 * time.Hour)},
		{expr: "7day", want: now.Add(7 * 24 * time.Hour)},
		{expr: "2week", want: now.Add(14 * 24 * time.Hour)},
		{expr: "1month", want: time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)},
		{expr: "3month", want: time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseDurationExpr(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.ExpiryFrom(now))
		})
	}
}

// A month grant issued on the 31st lands on a normalized date when the
// target month is shorter; this mirrors calendar arithmetic, not a fixed
// 30-day duration.
func TestExpiryFromMonthNormalization(t *testing.T) {
	jan31 := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)
	expr, err := ParseDurationExpr("1month")
	require.NoError(t, err)

	got := expr.ExpiryFrom(jan31)
	assert.Equal(t, jan31.AddDate(0, 1, 0), got)
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 3, got.Day())
}

func TestDurationExprString(t *testing.T) {
	expr, err := ParseDurationExpr("30mins")
	require.NoError(t, err)
	assert.Equal(t, "30min", expr.String())
}
