package reembed

import "errors"

var (
	// ErrStoreRequired is returned when a product store is not provided.
	ErrStoreRequired = errors.New("product store required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrMissingEmbedding is recorded for a product the provider did not answer.
	ErrMissingEmbedding = errors.New("provider returned no embedding for input")
)
