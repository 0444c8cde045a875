// Package dateutil converts between the calendar dates used by question scales
// and seconds since the Unix epoch.
package dateutil

import (
	"math"
	"time"
)

// DateLayout is the format of scale bounds on date questions.
const DateLayout = "2006-01-02"

// ToTimestamp parses a YYYY-MM-DD date as midnight UTC and returns the number
// of seconds since the epoch. ok is false if the string is not a valid date.
func ToTimestamp(date string) (float64, bool) {
	t, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return 0, false
	}
	return float64(t.Unix()), true
}

// FromTimestamp truncates seconds toward zero and returns the UTC time.
// NaN and infinities, or values outside the int64 range, are rejected.
func FromTimestamp(secs float64) (time.Time, bool) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, false
	}
	if secs >= math.MaxInt64 || secs <= math.MinInt64 {
		return time.Time{}, false
	}
	return time.Unix(int64(secs), 0).UTC(), true
}
