package ai

import "context"

// Embedding is one vector of a batched call, tagged with the position of
// the input text it was generated from.
type Embedding struct {
	Index  int
	Vector []float32
}

// Embedder turns product text into vectors. Implementations are shared by
// the sync workers and must tolerate concurrent calls.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts embeds a batch in one request. Providers may answer out
	// of order, so match results to inputs by Embedding.Index.
	EmbedTexts(ctx context.Context, texts []string) ([]Embedding, error)
}

// AIProvider owns an Embedder and whatever connections sit behind it.
// Nothing obtained from a provider may be used after Close.
type AIProvider interface {
	Embedder() Embedder
	Close() error
}
