// Package rollup maintains time-bucketed candle aggregates derived from raw
// ticks.
package rollup

import (
	"fmt"
	"strings"
	"time"
)

// VolumeRule selects how tick volumes combine into a candle.
type VolumeRule int

const (
	// VolumeLast keeps the volume of the latest tick in the bucket.
	VolumeLast VolumeRule = iota
	// VolumeSum adds every tick volume in the bucket.
	VolumeSum
)

func (v VolumeRule) String() string {
	if v == VolumeSum {
		return "sum"
	}
	return "last"
}

// Span is a calendar length. Exactly one field is set for bucket widths;
// offsets may combine months and days.
type Span struct {
	Minutes int
	Days    int
	Months  int
}

// Interval renders the span as a postgres interval literal.
func (s Span) Interval() string {
	var parts []string
	switch {
	case s.Months > 0 && s.Months%12 == 0:
		parts = append(parts, plural(s.Months/12, "year"))
	case s.Months > 0:
		parts = append(parts, plural(s.Months, "month"))
	}
	switch {
	case s.Days > 0 && s.Days%7 == 0:
		parts = append(parts, plural(s.Days/7, "week"))
	case s.Days > 0:
		parts = append(parts, plural(s.Days, "day"))
	}
	switch {
	case s.Minutes > 0 && s.Minutes%60 == 0:
		parts = append(parts, plural(s.Minutes/60, "hour"))
	case s.Minutes > 0:
		parts = append(parts, plural(s.Minutes, "minute"))
	}
	return strings.Join(parts, " ")
}

// Before returns t moved back by the span.
func (s Span) Before(t time.Time) time.Time {
	return t.AddDate(0, -s.Months, -s.Days).Add(-time.Duration(s.Minutes) * time.Minute)
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Resolution describes one candle series and its refresh policy.
type Resolution struct {
	Code   string
	View   string
	Bucket Span
	Volume VolumeRule

	// StartOffset and EndOffset bound the trailing refresh window.
	StartOffset Span
	EndOffset   Span
	Schedule    Span

	// Active resolutions are materialized and refreshed. Inactive ones are
	// only served by on-the-fly aggregation.
	Active bool
}

func days(n int) Span    { return Span{Days: n} }
func weeks(n int) Span   { return Span{Days: 7 * n} }
func months(n int) Span  { return Span{Months: n} }
func years(n int) Span   { return Span{Months: 12 * n} }
func minutes(n int) Span { return Span{Minutes: n} }

var resolutions = []Resolution{
	{Code: "1", View: "one_minute_candle", Bucket: minutes(1)},
	{Code: "3", View: "three_minutes_candle", Bucket: minutes(3)},
	{Code: "5", View: "five_minutes_candle", Bucket: minutes(5)},
	{Code: "15", View: "fifteen_minutes_candle", Bucket: minutes(15)},
	{Code: "30", View: "thirty_minutes_candle", Bucket: minutes(30)},
	{Code: "45", View: "forty_five_minutes_candle", Bucket: minutes(45)},
	{Code: "1H", View: "one_hour_candle", Bucket: minutes(60)},
	{Code: "2H", View: "two_hours_candle", Bucket: minutes(120)},
	{Code: "4H", View: "four_hours_candle", Bucket: minutes(240)},
	{Code: "1D", View: "one_day_candle", Bucket: days(1), Volume: VolumeLast,
		StartOffset: days(3), EndOffset: days(1), Schedule: days(1), Active: true},
	{Code: "1W", View: "one_week_candle", Bucket: weeks(1), Volume: VolumeSum,
		StartOffset: weeks(3), EndOffset: weeks(1), Schedule: weeks(1), Active: true},
	{Code: "1M", View: "one_month_candle", Bucket: months(1), Volume: VolumeSum,
		StartOffset: months(4), EndOffset: months(1), Schedule: months(1), Active: true},
	{Code: "3M", View: "three_months_candle", Bucket: months(3), Volume: VolumeSum,
		StartOffset: months(15), EndOffset: months(3), Schedule: months(3), Active: true},
	{Code: "6M", View: "six_months_candle", Bucket: months(6), Volume: VolumeSum,
		StartOffset: months(24), EndOffset: months(6), Schedule: months(6), Active: true},
	{Code: "1Y", View: "one_year_candle", Bucket: years(1), Volume: VolumeSum,
		StartOffset: years(4), EndOffset: years(1), Schedule: years(1), Active: true},
}

// Resolutions returns every defined resolution, finest first.
func Resolutions() []Resolution {
	out := make([]Resolution, len(resolutions))
	copy(out, resolutions)
	return out
}

// ActiveResolutions returns the materialized resolutions.
func ActiveResolutions() []Resolution {
	var out []Resolution
	for _, r := range resolutions {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// Lookup finds a resolution by its code (case-insensitive).
func Lookup(code string) (Resolution, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, r := range resolutions {
		if r.Code == code {
			return r, true
		}
	}
	return Resolution{}, false
}
