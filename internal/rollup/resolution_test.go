package rollup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveResolutions(t *testing.T) {
	var views []string
	for _, r := range ActiveResolutions() {
		views = append(views, r.View)
	}
	assert.Equal(t, []string{
		"one_day_candle", "one_week_candle", "one_month_candle",
		"three_months_candle", "six_months_candle", "one_year_candle",
	}, views)

	sub, ok := Lookup("1h")
	require.True(t, ok)
	assert.False(t, sub.Active)
	_, ok = Lookup("2D")
	assert.False(t, ok)
}

func TestResolutionPolicies(t *testing.T) {
	tests := []struct {
		code                 string
		start, end, schedule string
		volume               VolumeRule
	}{
		{"1D", "3 days", "1 day", "1 day", VolumeLast},
		{"1W", "3 weeks", "1 week", "1 week", VolumeSum},
		{"1M", "4 months", "1 month", "1 month", VolumeSum},
		{"3M", "15 months", "3 months", "3 months", VolumeSum},
		{"6M", "2 years", "6 months", "6 months", VolumeSum},
		{"1Y", "4 years", "1 year", "1 year", VolumeSum},
	}
	for _, tt := range tests {
		res, ok := Lookup(tt.code)
		require.True(t, ok)
		assert.Equal(t, tt.start, res.StartOffset.Interval(), tt.code)
		assert.Equal(t, tt.end, res.EndOffset.Interval(), tt.code)
		assert.Equal(t, tt.schedule, res.Schedule.Interval(), tt.code)
		assert.Equal(t, tt.volume, res.Volume, tt.code)
	}
}

func TestWindow(t *testing.T) {
	asOf := time.Date(2024, 6, 10, 0, 0, 5, 0, time.UTC)

	start, end := Window(mustLookup(t, "1D"), asOf, false)
	require.NotNil(t, start)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC), *start)

	start, _ = Window(mustLookup(t, "1Y"), asOf, false)
	assert.Equal(t, time.Date(2020, 6, 10, 0, 0, 0, 0, time.UTC), *start)

	start, _ = Window(mustLookup(t, "1W"), asOf, true)
	assert.Nil(t, start)
}
