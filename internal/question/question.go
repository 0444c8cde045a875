// Package question holds the snapshot of a forecasting question and resolves
// the best available prediction on it as of any point in time.
package question

import (
	"sort"
	"time"
)

// AmbiguousResolution is the raw resolution value of an ambiguously resolved question.
const AmbiguousResolution = -1.0

// Kind is the question type reported by the upstream service.
type Kind string

const (
	KindBinary     Kind = "binary"
	KindContinuous Kind = "continuous"
	KindDiscussion Kind = "discussion"
)

// Point is one entry of an aggregate history: a normalized value in [0, 1]
// recorded at a point in time.
type Point struct {
	Time  time.Time
	Value float64
}

// Snapshot is the raw shape of a question before it is indexed for lookup.
// Nil pointers and slices mean the field was absent.
type Snapshot struct {
	Title       string
	Description string
	Kind        Kind
	Scale       Scale
	Resolution  *float64
	ResolveTime *time.Time
	Community   []Point
	Metaculus   []Point
}

// Question is a read-only snapshot of a question. Histories are kept sorted
// by time regardless of the order they were supplied in.
type Question struct {
	Title       string
	Description string
	Kind        Kind
	Scale       Scale

	resolution  *float64
	resolveTime *time.Time
	community   history
	metaculus   history
}

// New builds a Question from a snapshot. A scale is only kept on continuous questions.
func New(s Snapshot) *Question {
	q := &Question{
		Title:       s.Title,
		Description: s.Description,
		Kind:        s.Kind,
		community:   newHistory(s.Community),
		metaculus:   newHistory(s.Metaculus),
	}
	if s.Kind == KindContinuous {
		q.Scale = s.Scale
	}
	if s.Resolution != nil {
		r := *s.Resolution
		q.resolution = &r
	}
	if s.ResolveTime != nil {
		t := s.ResolveTime.UTC()
		q.resolveTime = &t
	}
	return q
}

// Resolution returns the raw resolution value, if any.
func (q *Question) Resolution() (float64, bool) {
	if q.resolution == nil {
		return 0, false
	}
	return *q.resolution, true
}

// ResolveTime returns the time the resolution became visible, if known.
func (q *Question) ResolveTime() (time.Time, bool) {
	if q.resolveTime == nil {
		return time.Time{}, false
	}
	return *q.resolveTime, true
}

// IsBinary reports whether the question is a binary probability question.
func (q *Question) IsBinary() bool {
	return q.Kind == KindBinary
}

// IsLogarithmic reports whether the question is continuous with a logarithmic scale.
func (q *Question) IsLogarithmic() bool {
	return q.Kind == KindContinuous && q.Scale != nil && q.Scale.Logarithmic()
}

// BestPrediction returns the best prediction available now.
func (q *Question) BestPrediction() (Prediction, bool) {
	return q.BestPredictionBefore(time.Now())
}

// BestPredictionBefore returns the best prediction as of t, preferring a
// visible resolution, then the Metaculus prediction, then the community
// prediction. ok is false if nothing was available at t.
func (q *Question) BestPredictionBefore(t time.Time) (Prediction, bool) {
	if q.Kind == KindDiscussion {
		return Prediction{}, false
	}
	if p, ok := q.resolutionBefore(t); ok {
		return p, true
	}
	if p, ok := q.MetaculusPredictionBefore(t); ok {
		return p, true
	}
	return q.CommunityPredictionBefore(t)
}

// CommunityPrediction returns the latest community median prediction.
func (q *Question) CommunityPrediction() (Prediction, bool) {
	return q.CommunityPredictionBefore(time.Now())
}

// CommunityPredictionBefore returns the community median prediction as it was at t.
func (q *Question) CommunityPredictionBefore(t time.Time) (Prediction, bool) {
	pt, ok := q.community.latestAt(t)
	if !ok {
		return Prediction{}, false
	}
	return q.Convert(pt.Value)
}

// MetaculusPrediction returns the latest Metaculus prediction.
func (q *Question) MetaculusPrediction() (Prediction, bool) {
	return q.MetaculusPredictionBefore(time.Now())
}

// MetaculusPredictionBefore returns the Metaculus prediction as it was at t.
func (q *Question) MetaculusPredictionBefore(t time.Time) (Prediction, bool) {
	pt, ok := q.metaculus.latestAt(t)
	if !ok {
		return Prediction{}, false
	}
	return q.Convert(pt.Value)
}

// ResolutionAsPrediction converts the raw resolution, ignoring when it happened.
func (q *Question) ResolutionAsPrediction() (Prediction, bool) {
	if q.resolution == nil {
		return Prediction{}, false
	}
	if *q.resolution == AmbiguousResolution {
		return Ambiguous(), true
	}
	return q.Convert(*q.resolution)
}

func (q *Question) resolutionBefore(t time.Time) (Prediction, bool) {
	if q.resolveTime == nil || q.resolveTime.After(t) {
		return Prediction{}, false
	}
	return q.ResolutionAsPrediction()
}

// Convert maps a normalized value onto the question's scale. Binary values are
// probabilities and pass through unchanged. ok is false for discussion
// questions, continuous questions without a usable scale and malformed dates.
func (q *Question) Convert(p float64) (Prediction, bool) {
	switch q.Kind {
	case KindBinary:
		return Numeric(p), true
	case KindContinuous:
		switch s := q.Scale.(type) {
		case NumericRange:
			return Numeric(s.Value(p)), true
		case DateRange:
			d, ok := s.Value(p)
			if !ok {
				return Prediction{}, false
			}
			return DateValue(d), true
		}
	}
	return Prediction{}, false
}

type history []Point

func newHistory(points []Point) history {
	if len(points) == 0 {
		return nil
	}
	h := make(history, len(points))
	copy(h, points)
	sort.SliceStable(h, func(i, j int) bool {
		return h[i].Time.Before(h[j].Time)
	})
	return h
}

// latestAt returns the last entry recorded at or before t. Among entries with
// equal timestamps the one supplied last wins.
func (h history) latestAt(t time.Time) (Point, bool) {
	i := sort.Search(len(h), func(i int) bool {
		return h[i].Time.After(t)
	})
	if i == 0 {
		return Point{}, false
	}
	return h[i-1], true
}
