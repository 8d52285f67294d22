package catalogsync

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/search"
	"golang.org/x/sync/errgroup"
)

const (
	checkTimeout = 10 * time.Second

	StatusOK       = "ok"
	StatusError    = "error"
	StatusDisabled = "disabled"
)

// ComponentHealth is the outcome of one check.
type ComponentHealth struct {
	Status    string  `json:"status"`
	Error     string  `json:"error,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

// HealthReport lists every checked component. Healthy is false when any
// enabled component failed.
type HealthReport struct {
	Healthy    bool                        `json:"healthy"`
	Components map[string]*ComponentHealth `json:"components"`
}

// StatsReport combines the relational and vector index statistics.
type StatsReport struct {
	Relational *core.CatalogStats `json:"relational"`
	Index      *core.IndexInfo    `json:"index"`
}

// HealthCheck checks the source, the relational store, the vector index
// and the embedder concurrently. Every check runs to completion; a failing
// check never cancels the others.
func (c *Catalog) HealthCheck(ctx context.Context) *HealthReport {
	checks := map[string]func(context.Context) error{
		"relational_store": c.store.Ping,
		"vector_index":     c.index.Ping,
		"embedder": func(ctx context.Context) error {
			_, err := c.provider.Embedder().EmbedText(ctx, "health check")
			return err
		},
	}
	if c.source != nil {
		checks["source"] = c.source.Ping
	}

	report := &HealthReport{Healthy: true, Components: map[string]*ComponentHealth{}}
	if c.source == nil {
		report.Components["source"] = &ComponentHealth{Status: StatusDisabled}
	}

	var mu sync.Mutex
	var g errgroup.Group
	for name, check := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			start := time.Now()
			err := check(checkCtx)
			health := &ComponentHealth{
				Status:    StatusOK,
				LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
			}
			if err != nil {
				health.Status = StatusError
				health.Error = err.Error()
				c.logger.Warn("health check failed", "component", name, "err", err)
			}

			mu.Lock()
			defer mu.Unlock()
			report.Components[name] = health
			if err != nil {
				report.Healthy = false
			}
			return nil
		})
	}
	g.Wait()
	return report
}

// Stats returns the relational store statistics and the index info.
func (c *Catalog) Stats(ctx context.Context) (*StatsReport, error) {
	relational, err := c.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	info, err := c.index.Info(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsReport{Relational: relational, Index: info}, nil
}

// CollectionInfo describes the vector index collection.
func (c *Catalog) CollectionInfo(ctx context.Context) (*core.IndexInfo, error) {
	return c.index.Info(ctx)
}

// Search embeds text and returns up to limit matching products.
func (c *Catalog) Search(ctx context.Context, text string, limit int, filter *core.SearchFilter) ([]*core.SearchResult, error) {
	return c.searcher.Search(ctx, search.Query{Text: text, Limit: limit, Filter: filter})
}
