package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRange(t *testing.T) {
	// Wednesday.
	at := time.Date(2025, 6, 4, 17, 30, 0, 0, time.UTC)

	cases := []struct {
		period   Period
		from, to time.Time
	}{
		{Day, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)},
		{Week, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)},
		{Month, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(string(tc.period), func(t *testing.T) {
			from, to := Range(tc.period, at, time.UTC)
			assert.True(t, tc.from.Equal(from), "from %s", from)
			assert.True(t, tc.to.Equal(to), "to %s", to)
		})
	}
}

func TestRangeSundayBelongsToPreviousWeek(t *testing.T) {
	from, _ := Range(Week, time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC), time.UTC)

	assert.Equal(t, time.Monday, from.Weekday())
	assert.Equal(t, 2, from.Day())
}
