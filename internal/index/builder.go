package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lox/metaculusindex/internal/metrics"
	"github.com/lox/metaculusindex/internal/question"
)

// Fetcher retrieves a question by id.
type Fetcher interface {
	Question(ctx context.Context, id string) (*question.Question, error)
}

// Constructor wraps a question with a weight, reporting false if the question
// is of the wrong kind.
type Constructor func(q *question.Question, weight float64) (WeightedQuestion, bool)

// Member names a question to include in an index.
type Member struct {
	ID     string
	Weight float64
	// Construct defaults to FromAny.
	Construct Constructor
}

// Builder assembles indices from question ids.
type Builder struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func NewBuilder(fetcher Fetcher, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{fetcher: fetcher, logger: logger}
}

// FromIDs pairs each id with its weight and builds an index from the questions
// that could be fetched and wrapped. Extra ids or weights are ignored.
func (b *Builder) FromIDs(ctx context.Context, ids []string, weights []float64) *Index {
	n := min(len(ids), len(weights))
	members := make([]Member, 0, n)
	for i := 0; i < n; i++ {
		members = append(members, Member{ID: ids[i], Weight: weights[i]})
	}
	return b.Build(ctx, "", members)
}

// Build fetches every member sequentially and skips those that fail to fetch
// or do not match their constructor.
func (b *Builder) Build(ctx context.Context, name string, members []Member) *Index {
	ix := &Index{Name: name}
	for _, m := range members {
		wq, err := b.member(ctx, m)
		if err != nil {
			metrics.IndexMembersSkipped.WithLabelValues(name).Inc()
			b.logger.Warn("skipping index member", "index", name, "id", m.ID, "error", err)
			continue
		}
		ix.Questions = append(ix.Questions, wq)
	}
	return ix
}

func (b *Builder) member(ctx context.Context, m Member) (WeightedQuestion, error) {
	q, err := b.fetcher.Question(ctx, m.ID)
	if err != nil {
		return WeightedQuestion{}, fmt.Errorf("fetch question: %w", err)
	}
	if q == nil {
		return WeightedQuestion{}, errors.New("fetch question: no question returned")
	}
	construct := m.Construct
	if construct == nil {
		construct = FromAny
	}
	wq, ok := construct(q, m.Weight)
	if !ok {
		return WeightedQuestion{}, fmt.Errorf("question kind %q does not fit the requested constructor", q.Kind)
	}
	wq.ID = m.ID
	return wq, nil
}

// FromIDs builds an index using fetcher, logging to the default logger.
func FromIDs(ctx context.Context, fetcher Fetcher, ids []string, weights []float64) *Index {
	return NewBuilder(fetcher, nil).FromIDs(ctx, ids, weights)
}
