// Package index combines forecasting questions into weighted composite
// indices, intended to give an overall view of how a topic is doing.
package index

import (
	"math"
	"time"

	"github.com/lox/metaculusindex/internal/dateutil"
	"github.com/lox/metaculusindex/internal/question"
)

// WeightedQuestion is a question along with the weight it carries in an index.
type WeightedQuestion struct {
	// ID is the question id the member was fetched by, if known.
	ID       string
	Question *question.Question
	Weight   float64
	// Zero is subtracted from the prediction before weighting. When the
	// question is logarithmic and LineariseIfLog is set, the prediction is
	// divided by Zero and the natural logarithm taken instead. Date questions
	// use seconds since the epoch.
	Zero           float64
	LineariseIfLog bool
}

// FromBinary wraps a binary question with a zero point of 0.
func FromBinary(q *question.Question, weight float64) (WeightedQuestion, bool) {
	if q == nil || !q.IsBinary() {
		return WeightedQuestion{}, false
	}
	return WeightedQuestion{Question: q, Weight: weight}, true
}

// FromNumericRange wraps a continuous numeric question with a zero point at
// the bottom of its scale.
func FromNumericRange(q *question.Question, weight float64) (WeightedQuestion, bool) {
	if q == nil {
		return WeightedQuestion{}, false
	}
	s, ok := q.Scale.(question.NumericRange)
	if !ok {
		return WeightedQuestion{}, false
	}
	return WeightedQuestion{Question: q, Weight: weight, Zero: s.Min, LineariseIfLog: true}, true
}

// FromDateRange wraps a continuous date question with a zero point at the
// bottom of its scale. Values are measured in seconds from that point.
func FromDateRange(q *question.Question, weight float64) (WeightedQuestion, bool) {
	if q == nil {
		return WeightedQuestion{}, false
	}
	s, ok := q.Scale.(question.DateRange)
	if !ok {
		return WeightedQuestion{}, false
	}
	zero, ok := s.MinSeconds()
	if !ok {
		return WeightedQuestion{}, false
	}
	return WeightedQuestion{Question: q, Weight: weight, Zero: zero, LineariseIfLog: true}, true
}

// FromAny tries the binary, numeric range and date range constructors in turn.
func FromAny(q *question.Question, weight float64) (WeightedQuestion, bool) {
	if wq, ok := FromBinary(q, weight); ok {
		return wq, true
	}
	if wq, ok := FromNumericRange(q, weight); ok {
		return wq, true
	}
	return FromDateRange(q, weight)
}

// Value returns the contribution of the current prediction to the index.
func (w WeightedQuestion) Value() float64 {
	return w.ValueBefore(time.Now())
}

// ValueBefore returns the contribution of the prediction as of t. Questions
// with no prediction or an ambiguous resolution contribute 0.
func (w WeightedQuestion) ValueBefore(t time.Time) float64 {
	p, ok := w.Question.BestPredictionBefore(t)
	if !ok {
		return 0
	}
	if v, ok := p.Numeric(); ok {
		return w.linearise(v)
	}
	if d, ok := p.Date(); ok {
		return w.linearise(float64(d.Unix()))
	}
	return 0
}

func (w WeightedQuestion) linearise(v float64) float64 {
	if w.LineariseIfLog && w.Question.IsLogarithmic() {
		return math.Log(v/w.Zero) * w.Weight
	}
	return (v - w.Zero) * w.Weight
}

// ZeroTime returns the zero point as a time for date questions.
func (w WeightedQuestion) ZeroTime() (time.Time, bool) {
	if _, ok := w.Question.Scale.(question.DateRange); !ok {
		return time.Time{}, false
	}
	return dateutil.FromTimestamp(w.Zero)
}

// Index is an ordered list of weighted questions. Order only matters for display.
type Index struct {
	Name      string
	Questions []WeightedQuestion
}

// Value sums the current contributions of every question.
func (ix *Index) Value() float64 {
	return ix.ValueBefore(time.Now())
}

// ValueBefore sums the contributions of every question as of t.
func (ix *Index) ValueBefore(t time.Time) float64 {
	var total float64
	for _, wq := range ix.Questions {
		total += wq.ValueBefore(t)
	}
	return total
}
