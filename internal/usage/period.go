package usage

import (
	"fmt"
	"time"
)

// PeriodKey formats a timestamp's UTC calendar month as "YYYY-MM".
// Every instant in the same UTC month yields the same key; this is the
// bucketing strategy for monthly quota windows.
func PeriodKey(t time.Time) string {
	utc := t.UTC()
	return fmt.Sprintf("%04d-%02d", utc.Year(), int(utc.Month()))
}

// NextReset returns the first instant (00:00:00 UTC) of the month
// following t's month. Reported to callers as the moment their quota
// rolls over; nothing is scheduled on it.
func NextReset(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
