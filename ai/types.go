package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when a batch call is made without texts.
	ErrEmptyInput = errors.New("no input texts")

	// ErrIndexOutOfRange indicates a provider returned an index that does not
	// correspond to any input.
	ErrIndexOutOfRange = errors.New("embedding index out of range")

	// ErrDuplicateIndex indicates a provider returned two vectors for one input.
	ErrDuplicateIndex = errors.New("duplicate embedding index")
)

// Correlate places each embedding at the position of the input it belongs
// to. The result has n entries; inputs the provider did not answer are nil.
func Correlate(embeddings []Embedding, n int) ([][]float32, error) {
	out := make([][]float32, n)
	for _, e := range embeddings {
		if e.Index < 0 || e.Index >= n {
			return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, e.Index, n)
		}
		if out[e.Index] != nil {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateIndex, e.Index)
		}
		out[e.Index] = e.Vector
	}
	return out, nil
}

// Sequential tags vectors with their slice positions. It is meant for
// providers whose API guarantees input order.
func Sequential(vectors [][]float32) []Embedding {
	out := make([]Embedding, len(vectors))
	for i, v := range vectors {
		out[i] = Embedding{Index: i, Vector: v}
	}
	return out
}
