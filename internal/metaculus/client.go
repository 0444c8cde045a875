// Package metaculus retrieves question documents from a Metaculus instance.
package metaculus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/lox/metaculusindex/internal/httputil"
	"github.com/lox/metaculusindex/internal/metrics"
	"github.com/lox/metaculusindex/internal/question"
)

const (
	// DefaultDomain is Metaculus Prime, https://www.metaculus.com.
	DefaultDomain = "www"

	// DefaultRate keeps sequential index builds polite towards the API.
	DefaultRate  = 2.0
	defaultBurst = 1
)

// ErrNotFound is returned when the API has no question with the requested id.
var ErrNotFound = errors.New("question not found")

// Client fetches questions from one Metaculus domain, such as www, pandemic or ai.
type Client struct {
	httpClient *http.Client
	baseURL    string
	domain     string
	limiter    *rate.Limiter
	logger     *slog.Logger

	retryInitial    time.Duration
	retryMaxElapsed time.Duration
}

// NewClient creates a client that requests questions below baseURL.
func NewClient(baseURL, domain string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:      httputil.NewClient(),
		baseURL:         baseURL,
		domain:          domain,
		limiter:         rate.NewLimiter(rate.Limit(DefaultRate), defaultBurst),
		logger:          logger,
		retryInitial:    backoff.DefaultInitialInterval,
		retryMaxElapsed: 2 * time.Minute,
	}
}

// NewDomainClient creates a client for https://{domain}.metaculus.com.
func NewDomainClient(domain string, logger *slog.Logger) *Client {
	if domain == "" {
		domain = DefaultDomain
	}
	return NewClient(fmt.Sprintf("https://%s.metaculus.com", domain), domain, logger)
}

// SetRateLimit changes how many requests per second the client issues.
// A non-positive limit disables throttling.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (c *Client) Domain() string {
	return c.domain
}

// QuestionURL returns the API URL for question id.
func (c *Client) QuestionURL(id string) string {
	return c.baseURL + "/api2/questions/" + url.PathEscape(id)
}

// Question fetches and parses the question with the given id. Rate limited
// responses and server errors are retried with exponential backoff.
func (c *Client) Question(ctx context.Context, id string) (*question.Question, error) {
	if id == "" {
		return nil, errors.New("empty question id")
	}
	questionURL := c.QuestionURL(id)

	var body []byte
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, questionURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		metrics.APILatency.WithLabelValues(c.domain).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.APICallsTotal.WithLabelValues(c.domain, "error").Inc()
			return backoff.Permanent(fmt.Errorf("fetch question %s: %w", id, err))
		}
		defer resp.Body.Close()
		metrics.APICallsTotal.WithLabelValues(c.domain, strconv.Itoa(resp.StatusCode)).Inc()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("fetch question %s: status %d", id, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("fetch question %s: %w", id, ErrNotFound))
		case resp.StatusCode != http.StatusOK:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("fetch question %s: status %d: %s", id, resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, err
	}

	q, err := question.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("decode question %s: %w", id, err)
	}

	metrics.QuestionsFetched.WithLabelValues(c.domain).Inc()
	c.logger.Info("question retrieved", "id", id, "domain", c.domain)
	return q, nil
}

// Questions fetches each id in turn. Entries are nil where the fetch failed.
func (c *Client) Questions(ctx context.Context, ids []string) []*question.Question {
	out := make([]*question.Question, len(ids))
	for i, id := range ids {
		q, err := c.Question(ctx, id)
		if err != nil {
			c.logger.Warn("question unavailable", "id", id, "domain", c.domain, "error", err)
			continue
		}
		out[i] = q
	}
	return out
}

// Prediction returns the best prediction as of at for question id.
func (c *Client) Prediction(ctx context.Context, id string, at time.Time) (question.Prediction, bool) {
	q, err := c.Question(ctx, id)
	if err != nil {
		c.logger.Warn("question unavailable", "id", id, "domain", c.domain, "error", err)
		return question.Prediction{}, false
	}
	return q.BestPredictionBefore(at)
}

// NumericPrediction returns the best prediction for id if it is a number.
func (c *Client) NumericPrediction(ctx context.Context, id string, at time.Time) (float64, bool) {
	p, ok := c.Prediction(ctx, id, at)
	if !ok {
		return 0, false
	}
	return p.Numeric()
}

// DatePrediction returns the best prediction for id if it is a date.
func (c *Client) DatePrediction(ctx context.Context, id string, at time.Time) (time.Time, bool) {
	p, ok := c.Prediction(ctx, id, at)
	if !ok {
		return time.Time{}, false
	}
	return p.Date()
}

func (c *Client) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.MaxElapsedTime = c.retryMaxElapsed
	return bo
}
