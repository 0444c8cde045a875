package scheduler

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lox/metaculusindex/internal/config"
	"github.com/lox/metaculusindex/internal/index"
	"github.com/lox/metaculusindex/internal/metrics"
	"github.com/lox/metaculusindex/internal/question"
)

type fakeFetcher map[string]*question.Question

func (f fakeFetcher) Question(_ context.Context, id string) (*question.Question, error) {
	q, ok := f[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return q, nil
}

func loadQuestion(t *testing.T, name string) *question.Question {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "question", "testdata", name+".json"))
	if err != nil {
		t.Fatal(err)
	}
	q, err := question.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func newTestScheduler(t *testing.T, interval time.Duration) *Scheduler {
	t.Helper()
	indices, err := config.Parse([]byte(`
indices:
  - name: sched-binary
    questions:
      - {id: "1", weight: 1}
      - {id: "2", weight: 2}
  - name: sched-range
    questions:
      - {id: "3", weight: 0.1, kind: numeric}
      - {id: "missing"}
`))
	if err != nil {
		t.Fatal(err)
	}
	f := fakeFetcher{
		"1": loadQuestion(t, "probability_example"),
		"2": loadQuestion(t, "resolved_probability_example"),
		"3": loadQuestion(t, "resolved_range_example"),
	}
	s := New(func(string) index.Fetcher { return f }, indices, interval, nil)
	s.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestRefreshAll(t *testing.T) {
	s := newTestScheduler(t, time.Hour)

	values := s.RefreshAll(context.Background())
	want := map[string]float64{"sched-binary": 2.2, "sched-range": 2.2}
	for name, w := range want {
		if math.Abs(values[name]-w) > 1e-12 {
			t.Errorf("values[%s] = %v, want %v", name, values[name], w)
		}
		if got := testutil.ToFloat64(metrics.IndexValue.WithLabelValues(name)); math.Abs(got-w) > 1e-12 {
			t.Errorf("gauge %s = %v, want %v", name, got, w)
		}
	}
}

func TestRefreshAllStopsWhenCancelled(t *testing.T) {
	s := newTestScheduler(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if values := s.RefreshAll(ctx); len(values) != 0 {
		t.Errorf("expected no indices refreshed, got %v", values)
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	s := newTestScheduler(t, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
