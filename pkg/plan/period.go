package plan

import (
	"fmt"
	"time"
)

// Period is the quota accounting interval.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// Key returns the calendar bucket key for the period containing t,
// in UTC: "2025-07-04" for days, "2025-07" for months. Rolling into a
// new day or month produces a new key, which is what resets quota usage
// without any explicit reset step.
func (p Period) Key(t time.Time) string {
	t = t.UTC()
	if p == PeriodDay {
		return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
	}
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// Bounds returns the UTC [start, end) time bounds of the period
// containing t.
func (p Period) Bounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	if p == PeriodDay {
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.Add(24 * time.Hour)
	}
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
