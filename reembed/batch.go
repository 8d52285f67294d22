package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/core"
	"golang.org/x/time/rate"
)

const (
	// DefaultChunkSize is the number of texts sent per embedding call.
	DefaultChunkSize = 8

	// DefaultChunkDelay is the minimum spacing between embedding calls.
	DefaultChunkDelay = 500 * time.Millisecond
)

// EmbedResult is the outcome of one EmbedBatch call.
type EmbedResult struct {
	Records       []*core.EmbeddingRecord
	SkippedChunks int
	Skipped       int
	Errors        []*core.RunError
}

// BatchEmbedder drives an ai.Embedder in fixed-size chunks.
type BatchEmbedder struct {
	embedder    ai.Embedder
	chunkSize   int
	pacer       *rate.Limiter
	retry       core.RetryPolicy
	defaultUnit string
	logger      *slog.Logger
}

// BatchEmbedderOption configures a BatchEmbedder.
type BatchEmbedderOption func(*BatchEmbedder)

// WithChunkSize sets how many products go into one embedding call.
func WithChunkSize(size int) BatchEmbedderOption {
	return func(b *BatchEmbedder) {
		if size > 0 {
			b.chunkSize = size
		}
	}
}

// WithChunkDelay sets the minimum spacing between embedding calls.
// Zero disables pacing.
func WithChunkDelay(delay time.Duration) BatchEmbedderOption {
	return func(b *BatchEmbedder) {
		if delay <= 0 {
			b.pacer = rate.NewLimiter(rate.Inf, 1)
			return
		}
		b.pacer = rate.NewLimiter(rate.Every(delay), 1)
	}
}

// WithRetryPolicy retries failed embedding calls. By default a call is
// made once.
func WithRetryPolicy(policy core.RetryPolicy) BatchEmbedderOption {
	return func(b *BatchEmbedder) {
		b.retry = policy
	}
}

// WithDefaultUnit sets the unit left out of embedding texts, normally the
// unit the normalizer assigns to products without one.
func WithDefaultUnit(unit string) BatchEmbedderOption {
	return func(b *BatchEmbedder) {
		if unit != "" {
			b.defaultUnit = unit
		}
	}
}

// NewBatchEmbedder creates a batch embedder with an 8-product chunk and a
// 500ms spacing between calls.
func NewBatchEmbedder(embedder ai.Embedder, opts ...BatchEmbedderOption) *BatchEmbedder {
	b := &BatchEmbedder{
		embedder:    embedder,
		chunkSize:   DefaultChunkSize,
		pacer:       rate.NewLimiter(rate.Every(DefaultChunkDelay), 1),
		retry:       core.RetryPolicy{MaxAttempts: 1},
		defaultUnit: core.DefaultUnit,
		logger:      slog.Default().With("component", "batch-embedder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EmbedBatch embeds products chunk by chunk. A failed chunk is logged and
// its products are left out of the result; later chunks still run. Outputs
// are matched to products by the index the provider reports. The returned
// error is non-nil only when ctx ended before every chunk was sent.
func (b *BatchEmbedder) EmbedBatch(ctx context.Context, products []*core.Product) (*EmbedResult, error) {
	result := &EmbedResult{}
	for start := 0; start < len(products); start += b.chunkSize {
		chunk := products[start:min(start+b.chunkSize, len(products))]

		if err := b.pacer.Wait(ctx); err != nil {
			result.Skipped += len(products) - start
			return result, err
		}

		records, errs, err := b.embedChunk(ctx, chunk)
		if err != nil {
			b.logger.Warn("embedding chunk failed, skipping",
				"chunk", start/b.chunkSize, "size", len(chunk), "err", err)
			result.SkippedChunks++
			result.Skipped += len(chunk)
			result.Errors = append(result.Errors,
				core.NewRunError(core.Classify(err), fmt.Errorf("chunk of %d products from %s: %w", len(chunk), chunk[0].SKU, err)).
					WithStage("embed"))
			continue
		}
		result.Skipped += len(errs)
		result.Errors = append(result.Errors, errs...)
		result.Records = append(result.Records, records...)
	}

	b.logger.Info("batch embedding complete",
		"products", len(products), "embedded", len(result.Records), "skipped", result.Skipped)
	return result, nil
}

func (b *BatchEmbedder) embedChunk(ctx context.Context, chunk []*core.Product) ([]*core.EmbeddingRecord, []*core.RunError, error) {
	texts := make([]string, len(chunk))
	for i, p := range chunk {
		texts[i] = core.EmbeddingText(p, b.defaultUnit)
	}

	var embeddings []ai.Embedding
	err := b.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		embeddings, err = b.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	vectors, err := ai.Correlate(embeddings, len(chunk))
	if err != nil {
		return nil, nil, err
	}

	records := make([]*core.EmbeddingRecord, 0, len(chunk))
	var errs []*core.RunError
	for i, p := range chunk {
		if len(vectors[i]) == 0 {
			errs = append(errs, core.NewRunError(core.KindUpstreamResponse, ErrMissingEmbedding).
				WithStage("embed").WithSKU(p.SKU))
			continue
		}
		records = append(records, NewEmbeddingRecord(p, texts[i], vectors[i]))
	}
	return records, errs, nil
}

// NewEmbeddingRecord builds the index point for p. The stored hash is
// recomputed so it matches what Classify compares against.
func NewEmbeddingRecord(p *core.Product, text string, vector []float32) *core.EmbeddingRecord {
	return &core.EmbeddingRecord{
		ID:          core.PointID(p.ID),
		Vector:      vector,
		SKU:         p.SKU,
		ProductID:   p.ID,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		Text:        text,
		ContentHash: core.ComputeContentHash(p),
	}
}
