package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// PredictionKind identifies which variant a Prediction holds.
type PredictionKind int

const (
	PredictionAmbiguous PredictionKind = iota + 1
	PredictionNumeric
	PredictionDate
)

func (k PredictionKind) String() string {
	switch k {
	case PredictionAmbiguous:
		return "ambiguous"
	case PredictionNumeric:
		return "numeric"
	case PredictionDate:
		return "date"
	default:
		return "unknown"
	}
}

// ErrUnsupportedPredictionKind is matched by UnsupportedPredictionKindError.
var ErrUnsupportedPredictionKind = errors.New("unsupported prediction kind")

// UnsupportedPredictionKindError is returned when a prediction reaches a code
// path that only handles plain numbers.
type UnsupportedPredictionKindError struct {
	Kind PredictionKind
}

func (e *UnsupportedPredictionKindError) Error() string {
	return fmt.Sprintf("unsupported prediction kind: %s", e.Kind)
}

func (e *UnsupportedPredictionKindError) Is(target error) bool {
	return target == ErrUnsupportedPredictionKind
}

// Prediction is an aggregated prediction or resolution on a question: an
// ambiguous resolution, a number (probability or continuous value) or a date.
type Prediction struct {
	kind  PredictionKind
	value float64
	date  time.Time
}

// Ambiguous returns the prediction for an ambiguously resolved question.
func Ambiguous() Prediction {
	return Prediction{kind: PredictionAmbiguous}
}

// Numeric returns a probability or continuous value prediction.
func Numeric(v float64) Prediction {
	return Prediction{kind: PredictionNumeric, value: v}
}

// DateValue returns a date prediction.
func DateValue(t time.Time) Prediction {
	return Prediction{kind: PredictionDate, date: t.UTC()}
}

func (p Prediction) Kind() PredictionKind {
	return p.kind
}

func (p Prediction) IsAmbiguous() bool {
	return p.kind == PredictionAmbiguous
}

// Numeric returns the value if the prediction is numeric.
func (p Prediction) Numeric() (float64, bool) {
	if p.kind != PredictionNumeric {
		return 0, false
	}
	return p.value, true
}

// Date returns the value if the prediction is a date.
func (p Prediction) Date() (time.Time, bool) {
	if p.kind != PredictionDate {
		return time.Time{}, false
	}
	return p.date, true
}

// Scalar returns the numeric value, or an UnsupportedPredictionKindError for
// ambiguous and date predictions.
func (p Prediction) Scalar() (float64, error) {
	if p.kind != PredictionNumeric {
		return 0, &UnsupportedPredictionKindError{Kind: p.kind}
	}
	return p.value, nil
}

// Equal reports whether both predictions hold the same variant and value.
func (p Prediction) Equal(o Prediction) bool {
	if p.kind != o.kind {
		return false
	}
	switch p.kind {
	case PredictionNumeric:
		return p.value == o.value
	case PredictionDate:
		return p.date.Equal(o.date)
	default:
		return true
	}
}

func (p Prediction) String() string {
	switch p.kind {
	case PredictionAmbiguous:
		return "ambiguous"
	case PredictionNumeric:
		return strconv.FormatFloat(p.value, 'g', -1, 64)
	case PredictionDate:
		return p.date.Format(time.RFC3339)
	default:
		return "none"
	}
}

type predictionJSON struct {
	Kind  string     `json:"kind"`
	Value *float64   `json:"value,omitempty"`
	Date  *time.Time `json:"date,omitempty"`
}

func (p Prediction) MarshalJSON() ([]byte, error) {
	out := predictionJSON{Kind: p.kind.String()}
	switch p.kind {
	case PredictionNumeric:
		v := p.value
		out.Value = &v
	case PredictionDate:
		d := p.date
		out.Date = &d
	}
	return json.Marshal(out)
}
