// Package search answers natural-language product queries against the
// vector index.
//
// The query is embedded with the same provider that produced the index,
// matched by cosine similarity under optional payload filters (category,
// minimum stock, price range), and the hits whose indexed text contains
// every significant query word get a small verbatim boost before the final
// ranking.
package search
