// Package doomsday turns Metaculus catastrophe forecasts into a doomsday
// clock reading: the time left until midnight if humanity's expected
// remaining lifespan were compressed into a single day.
package doomsday

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lox/metaculusindex/internal/question"
)

const (
	// OverallCatastropheID asks whether a global catastrophe kills at least 10% of people by 2100.
	OverallCatastropheID = "1493"

	// HumanLifespanYears is the span of human history the clock's day represents.
	HumanLifespanYears = 350000.0

	secondsPerDay  = 86400.0
	secondsPerYear = 365.25 * secondsPerDay
)

var (
	// CatastropheIDs ask which cause an eventual catastrophe will have:
	// artificial intelligence, biotechnology, nuclear war, climate change and nanotechnology.
	CatastropheIDs = []string{"1500", "1494", "1495", "1502", "1501"}

	// ExtinctionIDs ask whether a catastrophe of the matching cause would
	// reduce the population by at least 95%.
	ExtinctionIDs = []string{"1604", "1585", "2513", "2514", "7795"}

	// Horizon is when the catastrophe questions resolve.
	Horizon = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// ErrNoPrediction is returned when a question has no prediction yet.
var ErrNoPrediction = errors.New("no prediction available")

// Fetcher retrieves a question by id.
type Fetcher interface {
	Question(ctx context.Context, id string) (*question.Question, error)
}

// Inputs are the probabilities the clock is computed from. Catastrophe and
// Extinction are paired by position; extra entries in either are ignored.
type Inputs struct {
	Overall     float64
	Catastrophe []float64
	Extinction  []float64
}

// ExtinctionProbability is the chance of extinction before the horizon.
func (in Inputs) ExtinctionProbability() float64 {
	var x float64
	for i, n := 0, min(len(in.Catastrophe), len(in.Extinction)); i < n; i++ {
		x += in.Overall * in.Catastrophe[i] * in.Extinction[i]
	}
	return x
}

// Clock is a doomsday clock reading.
type Clock struct {
	Extinction        float64
	YearsToHorizon    float64
	YearsRemaining    float64
	SecondsToMidnight float64
}

// Compute reads the clock as of now. The years remaining assume extinction
// risk stays constant at the rate implied by in until the horizon.
func Compute(in Inputs, now time.Time) Clock {
	x := math.Min(math.Max(in.ExtinctionProbability(), 0), 1)

	today := now.UTC().Truncate(24 * time.Hour)
	c := Clock{
		Extinction:     x,
		YearsToHorizon: Horizon.Sub(today).Seconds() / secondsPerYear,
	}
	if x == 0 {
		c.YearsRemaining = math.Inf(1)
		c.SecondsToMidnight = secondsPerDay
		return c
	}

	c.YearsRemaining = c.YearsToHorizon / math.Log(1/(1-x))
	c.SecondsToMidnight = c.YearsRemaining / (c.YearsRemaining + HumanLifespanYears) * secondsPerDay
	return c
}

// String formats the time to midnight as MM:SS.ss.
func (c Clock) String() string {
	minutes := math.Floor(c.SecondsToMidnight / 60)
	seconds := c.SecondsToMidnight - minutes*60
	return fmt.Sprintf("%02d:%05.2f", int(minutes), seconds)
}

// Summary describes the reading in a sentence.
func (c Clock) Summary() string {
	return fmt.Sprintf("The Doomsday clock is currently at %s until midnight, from a Metaculus community median prediction of a %g%% chance of extinction this century.",
		c, c.Extinction*100)
}

// Fetch gathers the inputs as of now. Every question must have a plain
// numeric prediction; a date or ambiguous prediction is reported as an
// UnsupportedPredictionKindError.
func Fetch(ctx context.Context, f Fetcher, now time.Time) (Inputs, error) {
	overall, err := probability(ctx, f, OverallCatastropheID, now)
	if err != nil {
		return Inputs{}, err
	}
	in := Inputs{Overall: overall}

	for _, id := range CatastropheIDs {
		p, err := probability(ctx, f, id, now)
		if err != nil {
			return Inputs{}, err
		}
		in.Catastrophe = append(in.Catastrophe, p)
	}
	for _, id := range ExtinctionIDs {
		p, err := probability(ctx, f, id, now)
		if err != nil {
			return Inputs{}, err
		}
		in.Extinction = append(in.Extinction, p)
	}
	return in, nil
}

func probability(ctx context.Context, f Fetcher, id string, now time.Time) (float64, error) {
	q, err := f.Question(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("question %s: %w", id, err)
	}
	p, ok := q.BestPredictionBefore(now)
	if !ok {
		return 0, fmt.Errorf("question %s: %w", id, ErrNoPrediction)
	}
	v, err := p.Scalar()
	if err != nil {
		return 0, fmt.Errorf("question %s: %w", id, err)
	}
	return v, nil
}
