package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

const (
	// DefaultLimit is the number of hits returned when a query sets none.
	DefaultLimit = 10

	// MaxLimit caps the number of hits of one query.
	MaxLimit = 100

	// verbatimBoost is added to hits whose text holds every query word.
	verbatimBoost = 0.1
)

// Query is a semantic product search.
type Query struct {
	Text   string
	Limit  int
	Filter *core.SearchFilter
}

// Searcher provides filtered semantic search over indexed products.
type Searcher struct {
	index    storage.VectorIndex
	embedder ai.Embedder
	minScore float32
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinScore drops hits whose similarity is below score.
// Default is 0, which keeps every hit.
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		s.minScore = score
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index storage.VectorIndex, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		index:    index,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search returns up to q.Limit products ranked by relevance.
func (s *Searcher) Search(ctx context.Context, q Query) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q Query, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, ErrEmptyQuery
	}
	q.Limit = clampLimit(q.Limit)
	if f := q.Filter; f != nil && f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, ErrInvalidPriceRange
	}
	monitor.Start(q)

	vector, err := s.embedder.EmbedText(ctx, q.Text)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", q.Text, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(vector))

	hits, err := s.index.Search(ctx, vector, q.Limit, q.Filter)
	if err != nil {
		s.logger.Error("error querying the vector index", "err", err)
		return nil, err
	}
	monitor.AfterIndexSearch(hits)

	results := make([]*core.SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit == nil || hit.Record == nil || hit.Score < s.minScore {
			continue
		}
		score := hit.Score
		if containsAllQueryWords(hit.Record.Text, q.Text) {
			score += verbatimBoost
			monitor.VerbatimHit(hit.Record)
		}
		results = append(results, &core.SearchResult{Record: hit.Record, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	monitor.Finish(results)

	s.logger.Debug("search complete", "query", q.Text, "hits", len(results))
	return results, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
