package search

import "github.com/poiesic/catalogsync/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query Query)
	AfterEmbedding(dimensions int)
	AfterIndexSearch(hits []*core.SearchResult)
	VerbatimHit(record *core.EmbeddingRecord)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query)                           {}
func (n *noopMonitor) AfterEmbedding(_ int)                    {}
func (n *noopMonitor) AfterIndexSearch(_ []*core.SearchResult) {}
func (n *noopMonitor) VerbatimHit(_ *core.EmbeddingRecord)     {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)           {}
