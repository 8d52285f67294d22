// Package reembed keeps the vector index consistent with the relational
// store while calling the embedding provider as little as possible.
//
// Classify compares each product's content hash with the hash stored on
// its index point. Only products whose name, description, category or
// textual attributes changed are sent through BatchEmbedder and written in
// full by IndexWriter; the rest get a payload patch of price and stock.
// DeletionReconciler removes points whose sku left the relational store.
package reembed
