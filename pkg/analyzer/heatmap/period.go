package heatmap

import (
	"fmt"
	"time"
)

// PeriodOf returns the label and start of the period containing t.
// Always uses UTC so records are bucketed the same way in every time zone.
//
// Labels: yyyy-Www (ISO 8601 week), yyyy-MM, yyyy-Qn, yyyy.
func PeriodOf(t time.Time, g Granularity) (string, time.Time) {
	t = t.UTC()

	switch g {
	case Week:
		year, week := t.ISOWeek()
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday
		}
		start := time.Date(t.Year(), t.Month(), t.Day()-weekday+1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-W%02d", year, week), start
	case Quarter:
		q := (int(t.Month())-1)/3 + 1
		start := time.Date(t.Year(), time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-Q%d", t.Year(), q), start
	case Year:
		return fmt.Sprintf("%04d", t.Year()), time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())), start
	}
}
