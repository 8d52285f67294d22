// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

// Config holds configuration for embedding sync.
type Config struct {
	// BatchSize is the number of products embedded and written per batch
	BatchSize int

	// ChunkSize is the number of texts per embedding call
	ChunkSize int

	// ChunkDelay is the minimum spacing between embedding calls
	ChunkDelay time.Duration

	// MaxRetries is the maximum number of attempts for a transient embedding failure
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// PoolSize bounds concurrent index writes; zero picks a default
	PoolSize int

	// ReportInterval is how often to report progress (number of products)
	ReportInterval int

	// DefaultUnit is the unit omitted from embedding texts
	DefaultUnit string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ChunkSize:      DefaultChunkSize,
		ChunkDelay:     DefaultChunkDelay,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		ReportInterval: 100,
		DefaultUnit:    core.DefaultUnit,
	}
}

// SyncOptions selects the products of one embedding sync run.
type SyncOptions struct {
	ForceRegenerate bool

	// BatchSize overrides Config.BatchSize when positive.
	BatchSize int

	// SKUs restricts the run to these products.
	SKUs []string

	// UpdatedSince restricts the run to products updated at or after it.
	UpdatedSince *time.Time
}

// Reembedder keeps the vector index in step with the relational store.
type Reembedder struct {
	store      storage.ProductStore
	index      storage.VectorIndex
	config     *Config
	embedder   *BatchEmbedder
	writer     *IndexWriter
	reconciler *DeletionReconciler
	progress   io.Writer
	logger     *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (nil disables it)
func NewReembedder(store storage.ProductStore, index storage.VectorIndex, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	writerOpts := []WriterOption{}
	if config.PoolSize > 0 {
		writerOpts = append(writerOpts, WithPoolSize(config.PoolSize))
	}
	writer, err := NewIndexWriter(index, writerOpts...)
	if err != nil {
		return nil, err
	}

	batchOpts := []BatchEmbedderOption{
		WithChunkSize(config.ChunkSize),
		WithChunkDelay(config.ChunkDelay),
		WithDefaultUnit(config.DefaultUnit),
	}
	if config.MaxRetries > 0 {
		batchOpts = append(batchOpts, WithRetryPolicy(core.RetryPolicy{
			MaxAttempts: config.MaxRetries,
			BaseDelay:   config.RetryDelay,
			MaxDelay:    30 * time.Second,
			Retryable:   core.IsTransient,
		}))
	}

	return &Reembedder{
		store:      store,
		index:      index,
		config:     config,
		embedder:   NewBatchEmbedder(embedder, batchOpts...),
		writer:     writer,
		reconciler: NewDeletionReconciler(index),
		progress:   progress,
		logger:     slog.Default().With("component", "reembedder"),
	}, nil
}

// Release releases the index writer's pool.
func (r *Reembedder) Release() {
	r.writer.Release()
}

// Run classifies the selected products against the index, embeds those
// whose content changed and patches price and stock of the rest. Problems
// are reported in the result, never returned.
func (r *Reembedder) Run(ctx context.Context, opts SyncOptions) (result *SyncResult) {
	result = &SyncResult{RunInfo: core.NewRunInfo()}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("embedding sync panicked", "panic", rec)
			result.Add(core.PanicError("embedding-sync", rec))
		}
		result.Finish()
	}()

	products, err := r.selectProducts(ctx, opts)
	if err != nil {
		result.Add(core.NewRunError(core.Classify(err), err).WithStage("read"))
		return result
	}
	result.TotalProducts = len(products)
	r.logger.Info("found products in relational store", "count", len(products))
	if len(products) == 0 {
		return result
	}

	existing := map[string]string{}
	if !opts.ForceRegenerate {
		existing, err = r.writer.GetAllHashes(ctx)
		if err != nil {
			result.Add(core.NewRunError(core.Classify(err), err).WithStage("read-hashes"))
			return result
		}
		r.logger.Info("found existing embeddings", "count", len(existing))
	}

	classes := Classify(products, existing, opts.ForceRegenerate)
	result.ProductsNeedingUpdate = len(classes.NeedsEmbedding)
	r.logger.Info("classified products",
		"needs_embedding", len(classes.NeedsEmbedding), "metadata_only", len(classes.MetadataOnly))

	if err := r.embedAndWrite(ctx, classes.NeedsEmbedding, opts.BatchSize, result); err != nil {
		result.Add(core.NewRunError(core.KindUnexpected, err).WithStage("embed"))
		return result
	}

	if len(classes.MetadataOnly) > 0 {
		patched, missing, errs := r.writer.PatchMetadata(ctx, classes.MetadataOnly)
		result.MetadataOnlyUpdates = patched
		result.AddAll(errs)

		// The sku's point was written under an earlier product id, e.g. after
		// the row was deleted and re-created. Re-embedding replaces it.
		if len(missing) > 0 {
			r.logger.Warn("index points missing for unchanged products, re-embedding", "count", len(missing))
			result.ProductsNeedingUpdate += len(missing)
			if err := r.embedAndWrite(ctx, missing, opts.BatchSize, result); err != nil {
				result.Add(core.NewRunError(core.KindUnexpected, err).WithStage("embed"))
			}
		}
	}
	return result
}

func (r *Reembedder) selectProducts(ctx context.Context, opts SyncOptions) ([]*core.Product, error) {
	switch {
	case len(opts.SKUs) > 0:
		products, err := r.store.GetBySKUs(ctx, opts.SKUs)
		if err == nil && len(products) < len(opts.SKUs) {
			r.logger.Warn("some products were not found", "requested", len(opts.SKUs), "found", len(products))
		}
		return products, err
	case opts.UpdatedSince != nil:
		return r.store.GetUpdatedSince(ctx, *opts.UpdatedSince)
	default:
		return r.store.GetAll(ctx)
	}
}

// embedAndWrite embeds and upserts products batch by batch. It only
// returns an error when ctx ends.
func (r *Reembedder) embedAndWrite(ctx context.Context, products []*core.Product, batchSize int, result *SyncResult) error {
	if len(products) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = r.config.BatchSize
	}

	iterator := NewProductIterator(products, batchSize)
	tracker := newProgress(r.progress, len(products), r.config.ReportInterval)
	defer tracker.done()

	r.logger.Info("generating embeddings", "products", len(products), "batches", iterator.Batches())
	err := iterator.ForEach(ctx, func(batch []*core.Product) error {
		embedded, err := r.embedder.EmbedBatch(ctx, batch)
		result.EmbeddingsGenerated += len(embedded.Records)
		result.SkippedProducts += embedded.Skipped
		result.AddAll(embedded.Errors)
		if err != nil {
			return fmt.Errorf("embedding interrupted: %w", err)
		}

		if len(embedded.Records) > 0 {
			written, errs := r.writer.UpsertFull(ctx, embedded.Records)
			result.EmbeddingsUpserted += written
			result.AddAll(errs)
		}
		tracker.batch(len(embedded.Records), embedded.Skipped)
		return nil
	})
	return err
}

// SyncDeletions removes index points whose sku is gone from the
// relational store.
func (r *Reembedder) SyncDeletions(ctx context.Context) (result *DeletionResult) {
	result = &DeletionResult{RunInfo: core.NewRunInfo()}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("deletion sync panicked", "panic", rec)
			result.Add(core.PanicError("deletion-sync", rec))
		}
		result.Finish()
	}()

	relational, err := r.store.ListSKUs(ctx)
	if err != nil {
		result.Add(core.NewRunError(core.Classify(err), err).WithStage("read"))
		return result
	}
	indexed, err := r.index.ListSKUs(ctx)
	if err != nil {
		result.Add(core.NewRunError(core.Classify(err), err).WithStage("read-index"))
		return result
	}
	result.RelationalProducts = len(relational)
	result.IndexedProducts = len(indexed)

	deleted, errs := r.reconciler.Reconcile(ctx, relational, indexed)
	result.Deleted = deleted
	result.AddAll(errs)
	return result
}
