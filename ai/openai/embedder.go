package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/catalogsync/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder embeds product text through any server speaking the OpenAI
// embeddings API, by way of langchaingo.
type Embedder struct {
	embedder   embeddings.Embedder
	httpClient *http.Client
	dimensions int
	logger     *slog.Logger
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible servers accept any token.
	token := config.APIKey
	if token == "" {
		token = "none"
	}
	httpClient := &http.Client{Timeout: config.Timeout}
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.Model),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}

	// Batching is done by the caller; one EmbedTexts call is one request.
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(maxInputs),
	)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:   embedder,
		httpClient: httpClient,
		dimensions: config.Dimensions,
		logger:     slog.Default().With("component", "openai-embedder", "model", config.Model),
	}, nil
}

// maxInputs is the most texts the embeddings endpoint takes per request.
const maxInputs = 2048

// NewEmbedder returns a standalone embedder; NewProvider is preferred when
// the connections should be released on shutdown.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}
	if err := e.checkDimensions(vectors[0]); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates embeddings for a batch. The OpenAI API answers in
// input order, so results are tagged with their positions.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([]ai.Embedding, error) {
	if len(texts) == 0 {
		return nil, ai.ErrEmptyInput
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for _, v := range vectors {
		if err := e.checkDimensions(v); err != nil {
			return nil, err
		}
	}
	return ai.Sequential(vectors), nil
}

func (e *Embedder) checkDimensions(v []float32) error {
	if e.dimensions > 0 && len(v) != e.dimensions {
		return fmt.Errorf("model returned %d dimensions, expected %d", len(v), e.dimensions)
	}
	return nil
}
