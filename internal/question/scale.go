package question

import (
	"math"
	"time"

	"github.com/lox/metaculusindex/internal/dateutil"
)

// Scale describes how a continuous question maps a normalized position in
// [0, 1] onto real values. It is either a NumericRange or a DateRange.
type Scale interface {
	Logarithmic() bool
	isScale()
}

// NumericRange is the scale of a continuous numeric question.
type NumericRange struct {
	Min           float64
	Max           float64
	IsLogarithmic bool
}

func (s NumericRange) Logarithmic() bool { return s.IsLogarithmic }
func (NumericRange) isScale()            {}

// Value converts a normalized position to a value on the range.
func (s NumericRange) Value(p float64) float64 {
	return scaleValue(p, s.Min, s.Max, s.IsLogarithmic)
}

// DateRange is the scale of a continuous date question. Bounds are YYYY-MM-DD
// dates interpreted as midnight UTC.
type DateRange struct {
	Min           string
	Max           string
	IsLogarithmic bool
}

func (s DateRange) Logarithmic() bool { return s.IsLogarithmic }
func (DateRange) isScale()            {}

// MinSeconds returns the lower bound in seconds since the epoch.
func (s DateRange) MinSeconds() (float64, bool) {
	return dateutil.ToTimestamp(s.Min)
}

// Value converts a normalized position to a date. ok is false if either bound
// is malformed or the result is not a representable time.
func (s DateRange) Value(p float64) (time.Time, bool) {
	lo, ok := dateutil.ToTimestamp(s.Min)
	if !ok {
		return time.Time{}, false
	}
	hi, ok := dateutil.ToTimestamp(s.Max)
	if !ok {
		return time.Time{}, false
	}
	return dateutil.FromTimestamp(scaleValue(p, lo, hi, s.IsLogarithmic))
}

func scaleValue(p, lo, hi float64, logarithmic bool) float64 {
	if logarithmic {
		return math.Pow(hi/lo, p) * lo
	}
	return p*(hi-lo) + lo
}
