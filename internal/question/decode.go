package question

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// resolveTimeLayouts are tried in order when parsing resolve_time.
var resolveTimeLayouts = []string{
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

// document mirrors the subset of /api2/questions/{id} used here.
type document struct {
	TitleShort           string               `json:"title_short"`
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	Resolution           *float64             `json:"resolution"`
	ResolveTime          *string              `json:"resolve_time"`
	Possibilities        possibilities        `json:"possibilities"`
	PredictionTimeseries []communityPoint     `json:"prediction_timeseries"`
	MetaculusPrediction  *metaculusPrediction `json:"metaculus_prediction"`
}

type possibilities struct {
	Type   string    `json:"type"`
	Scale  *rawScale `json:"scale"`
	Format string    `json:"format"`
}

type rawScale struct {
	Min        json.RawMessage `json:"min"`
	Max        json.RawMessage `json:"max"`
	DerivRatio *float64        `json:"deriv_ratio"`
}

type communityPoint struct {
	T                   float64     `json:"t"`
	CommunityPrediction medianValue `json:"community_prediction"`
}

type metaculusPrediction struct {
	History []metaculusPoint `json:"history"`
}

type metaculusPoint struct {
	T float64     `json:"t"`
	X medianValue `json:"x"`
}

// medianValue is either a bare number (binary questions) or a distribution
// summary whose median q2 is used (continuous questions).
type medianValue float64

func (m *medianValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var dist struct {
			Q2 *float64 `json:"q2"`
		}
		if err := json.Unmarshal(data, &dist); err != nil {
			return err
		}
		if dist.Q2 == nil {
			return errors.New("distribution missing q2")
		}
		*m = medianValue(*dist.Q2)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = medianValue(v)
	return nil
}

// Parse decodes an upstream question document.
func Parse(data []byte) (*Question, error) {
	var q Question
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Decode reads an upstream question document from r.
func Decode(r io.Reader) (*Question, error) {
	var q Question
	if err := json.NewDecoder(r).Decode(&q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	snap, err := doc.snapshot()
	if err != nil {
		return err
	}
	*q = *New(snap)
	return nil
}

func (d document) snapshot() (Snapshot, error) {
	title := d.TitleShort
	if title == "" {
		title = d.Title
	}
	s := Snapshot{
		Title:       title,
		Description: d.Description,
		Kind:        Kind(d.Possibilities.Type),
		Resolution:  d.Resolution,
	}
	if s.Kind == "" {
		s.Kind = KindDiscussion
	}

	if d.ResolveTime != nil {
		// An unparseable resolve time leaves the resolution invisible at every instant.
		for _, layout := range resolveTimeLayouts {
			if t, err := time.Parse(layout, *d.ResolveTime); err == nil {
				s.ResolveTime = &t
				break
			}
		}
	}

	if s.Kind == KindContinuous && d.Possibilities.Scale != nil {
		scale, err := d.Possibilities.Scale.scale()
		if err != nil {
			return Snapshot{}, fmt.Errorf("scale: %w", err)
		}
		s.Scale = scale
	}

	if d.PredictionTimeseries != nil {
		s.Community = make([]Point, 0, len(d.PredictionTimeseries))
		for _, p := range d.PredictionTimeseries {
			s.Community = append(s.Community, Point{Time: epochTime(p.T), Value: float64(p.CommunityPrediction)})
		}
	}
	if d.MetaculusPrediction != nil && d.MetaculusPrediction.History != nil {
		s.Metaculus = make([]Point, 0, len(d.MetaculusPrediction.History))
		for _, p := range d.MetaculusPrediction.History {
			s.Metaculus = append(s.Metaculus, Point{Time: epochTime(p.T), Value: float64(p.X)})
		}
	}
	return s, nil
}

func (r rawScale) scale() (Scale, error) {
	logarithmic := r.DerivRatio != nil && *r.DerivRatio != 1

	// Null or missing bounds decode to nil pointers and are rejected.
	var minNum, maxNum *float64
	errMin := json.Unmarshal(r.Min, &minNum)
	errMax := json.Unmarshal(r.Max, &maxNum)
	if errMin == nil && errMax == nil && minNum != nil && maxNum != nil {
		return NumericRange{Min: *minNum, Max: *maxNum, IsLogarithmic: logarithmic}, nil
	}

	var minDate, maxDate *string
	errMin = json.Unmarshal(r.Min, &minDate)
	errMax = json.Unmarshal(r.Max, &maxDate)
	if errMin == nil && errMax == nil && minDate != nil && maxDate != nil {
		return DateRange{Min: *minDate, Max: *maxDate, IsLogarithmic: logarithmic}, nil
	}

	return nil, fmt.Errorf("bounds %q and %q are neither both numbers nor both dates", r.Min, r.Max)
}

func epochTime(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
