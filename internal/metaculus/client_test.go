package metaculus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lox/metaculusindex/internal/metrics"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "question", "testdata", name+".json"))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// newTestClient serves fixtures by question id: "1" is a binary question,
// "2" a numeric range, anything else 404s.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "test", nil)
	c.SetRateLimit(0, 0)
	c.retryInitial = time.Millisecond
	c.retryMaxElapsed = time.Second
	return c
}

func fixtureHandler(t *testing.T) http.Handler {
	files := map[string][]byte{
		"/api2/questions/1": fixture(t, "probability_example"),
		"/api2/questions/2": fixture(t, "resolved_range_example"),
		"/api2/questions/3": fixture(t, "date_range_example"),
		"/api2/questions/9": []byte(`{"title_short": "broken", "possibilities": `),
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})
}

func TestQuestionURL(t *testing.T) {
	c := NewDomainClient("pandemic", nil)
	if got, want := c.QuestionURL("1500"), "https://pandemic.metaculus.com/api2/questions/1500"; got != want {
		t.Errorf("QuestionURL = %q, want %q", got, want)
	}
	if got := NewDomainClient("", nil).Domain(); got != DefaultDomain {
		t.Errorf("Domain = %q, want %q", got, DefaultDomain)
	}
}

func TestClient_Question(t *testing.T) {
	c := newTestClient(t, fixtureHandler(t))
	before := testutil.ToFloat64(metrics.QuestionsFetched.WithLabelValues("test"))

	q, err := c.Question(context.Background(), "1")
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if q.Title != "Global population to fall by >10% by 2100?" {
		t.Errorf("Title = %q", q.Title)
	}
	if !q.IsBinary() {
		t.Error("expected binary question")
	}

	after := testutil.ToFloat64(metrics.QuestionsFetched.WithLabelValues("test"))
	if after != before+1 {
		t.Errorf("questions fetched counter = %v, want %v", after, before+1)
	}
}

func TestClient_QuestionNotFound(t *testing.T) {
	c := newTestClient(t, fixtureHandler(t))

	_, err := c.Question(context.Background(), "404")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestClient_QuestionMalformedBody(t *testing.T) {
	c := newTestClient(t, fixtureHandler(t))

	if _, err := c.Question(context.Background(), "9"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestClient_QuestionEmptyID(t *testing.T) {
	c := newTestClient(t, fixtureHandler(t))
	if _, err := c.Question(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestClient_RetriesRateLimited(t *testing.T) {
	var calls atomic.Int32
	body := fixture(t, "probability_example")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(body)
	}))

	if _, err := c.Question(context.Background(), "1"); err != nil {
		t.Fatalf("Question: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	if _, err := c.Question(context.Background(), "1"); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Question(ctx, "1"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestClient_Questions(t *testing.T) {
	c := newTestClient(t, fixtureHandler(t))

	qs := c.Questions(context.Background(), []string{"1", "404", "2"})
	if len(qs) != 3 {
		t.Fatalf("len = %d, want 3", len(qs))
	}
	if qs[0] == nil || qs[2] == nil {
		t.Fatal("expected questions 1 and 2 to be fetched")
	}
	if qs[1] != nil {
		t.Error("expected nil for missing question")
	}
}

func TestClient_Predictions(t *testing.T) {
	c := newTestClient(t, fixtureHandler(t))
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if v, ok := c.NumericPrediction(ctx, "1", now); !ok || v != 0.2 {
		t.Errorf("NumericPrediction(1) = %v, %v, want 0.2", v, ok)
	}
	if v, ok := c.NumericPrediction(ctx, "2", now); !ok || v != 2.0 {
		t.Errorf("NumericPrediction(2) = %v, %v, want 2.0", v, ok)
	}
	if _, ok := c.DatePrediction(ctx, "1", now); ok {
		t.Error("DatePrediction(1) should be absent for a binary question")
	}
	if _, ok := c.DatePrediction(ctx, "3", now); !ok {
		t.Error("DatePrediction(3) should be present")
	}
	if _, ok := c.Prediction(ctx, "404", now); ok {
		t.Error("Prediction(404) should be absent")
	}
}

func TestClient_LiveQuestion(t *testing.T) {
	// Integration test - requires network
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	c := NewDomainClient(DefaultDomain, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q, err := c.Question(ctx, "1500")
	if err != nil {
		t.Skipf("live API unavailable: %v", err)
	}
	t.Logf("Fetched %q (%s)", q.Title, q.Kind)
}
