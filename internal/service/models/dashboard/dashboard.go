package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is a dashboard date-range granularity.
type Period string

const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
)

// Periods lists every granularity in display order.
var Periods = []Period{Day, Week, Month}

// Summary aggregates orders scheduled within [From, To).
type Summary struct {
	Period   Period           `json:"period"`
	From     time.Time        `json:"from"`
	To       time.Time        `json:"to"`
	Orders   int64            `json:"orders"`
	Revenue  decimal.Decimal  `json:"revenue"`
	ByStatus map[string]int64 `json:"byStatus"`
}

// Dashboard groups the summaries of a center (CenterID 0 means all centers).
type Dashboard struct {
	CenterID  int64     `json:"centerId"`
	Summaries []Summary `json:"summaries"`
}

// Range returns the [from, to) bounds of the period containing t in loc.
// Weeks start on Monday.
func Range(period Period, t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch period {
	case Week:
		offset := (int(day.Weekday()) + 6) % 7
		from := day.AddDate(0, 0, -offset)

		return from, from.AddDate(0, 0, 7)
	case Month:
		from := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)

		return from, from.AddDate(0, 1, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}
