package catalogsync

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/ingestion"
	"github.com/poiesic/catalogsync/reembed"
	"github.com/poiesic/catalogsync/transform"
)

// IncrementalCheckpoint names the checkpoint advanced by RunIncremental.
const IncrementalCheckpoint = "incremental"

// FullSyncResult reports a full sync. The run succeeds only when every
// stage does; stage errors stay in the stage results.
type FullSyncResult struct {
	core.RunInfo
	TransformAndLoad *ingestion.Result       `json:"transform_and_load,omitempty"`
	EmbeddingSync    *reembed.SyncResult     `json:"embedding_sync,omitempty"`
	DeletionSync     *reembed.DeletionResult `json:"deletion_sync,omitempty"`
}

// IncrementalResult reports an incremental sync.
type IncrementalResult struct {
	core.RunInfo
	Since            *time.Time          `json:"since,omitempty"`
	TransformAndLoad *ingestion.Result   `json:"transform_and_load,omitempty"`
	EmbeddingSync    *reembed.SyncResult `json:"embedding_sync,omitempty"`
	CheckpointSaved  bool                `json:"checkpoint_saved"`
}

// SingleProductResult reports the sync of one product.
type SingleProductResult struct {
	core.RunInfo
	SKU              string              `json:"sku"`
	TransformAndLoad *ingestion.Result   `json:"transform_and_load,omitempty"`
	EmbeddingSync    *reembed.SyncResult `json:"embedding_sync,omitempty"`
}

// finishStages finishes info and clears Success when a stage failed.
func finishStages(info *core.RunInfo, stages ...*core.RunInfo) {
	info.Finish()
	for _, s := range stages {
		if !s.Success {
			info.Success = false
		}
	}
}

func recoverRun(info *core.RunInfo, stage string) {
	if r := recover(); r != nil {
		info.Add(core.PanicError(stage, r))
		info.Finish()
	}
}

func (c *Catalog) noSource() *ingestion.Result {
	result := &ingestion.Result{RunInfo: core.NewRunInfo()}
	result.Add(core.NewRunError(core.KindUnexpected, ErrNoSource).WithStage("extract"))
	result.Finish()
	return result
}

// RunTransformAndLoad extracts every product of endpoint from the source,
// transforms it and upserts it into the relational store.
func (c *Catalog) RunTransformAndLoad(ctx context.Context, endpoint string, includeInvalid bool, policy transform.DuplicatePolicy) *ingestion.Result {
	if c.pipeline == nil {
		return c.noSource()
	}
	return c.pipeline.Run(ctx, ingestion.RunOptions{
		Endpoint:        endpoint,
		IncludeInvalid:  includeInvalid,
		DuplicatePolicy: policy,
	})
}

// RunEmbeddingSync embeds the products whose content changed since they
// were indexed. A non-positive batchSize uses the configured one.
func (c *Catalog) RunEmbeddingSync(ctx context.Context, force bool, batchSize int) *reembed.SyncResult {
	return c.reembedder.Run(ctx, reembed.SyncOptions{
		ForceRegenerate: force,
		BatchSize:       batchSize,
	})
}

// RunDeletionSync removes index points whose sku left the relational store.
func (c *Catalog) RunDeletionSync(ctx context.Context) *reembed.DeletionResult {
	return c.reembedder.SyncDeletions(ctx)
}

// RunFullSync runs transform-and-load, embedding sync and deletion sync in
// that order. The later stages run even when loading reported errors, so
// whatever did load is indexed.
func (c *Catalog) RunFullSync(ctx context.Context, endpoint string, force bool) (result *FullSyncResult) {
	result = &FullSyncResult{RunInfo: core.NewRunInfo()}
	defer recoverRun(&result.RunInfo, "full-sync")

	c.logger.Info("starting full sync", "run_id", result.RunID, "endpoint", endpoint, "force", force)

	result.TransformAndLoad = c.RunTransformAndLoad(ctx, endpoint, false, "")
	if !result.TransformAndLoad.Success {
		c.logger.Warn("transform-and-load reported errors, continuing with embedding sync",
			"errors", result.TransformAndLoad.Len())
	}
	result.EmbeddingSync = c.RunEmbeddingSync(ctx, force, 0)
	result.DeletionSync = c.RunDeletionSync(ctx)

	finishStages(&result.RunInfo,
		&result.TransformAndLoad.RunInfo, &result.EmbeddingSync.RunInfo, &result.DeletionSync.RunInfo)
	c.logger.Info("full sync complete", "run_id", result.RunID, "success", result.Success,
		"duration", result.Duration())
	return result
}

// RunIncremental loads the products the source reports as updated since the
// last successful incremental run, embeds the products updated since then
// and advances the checkpoint when both stages succeed. Without a checkpoint
// it syncs everything.
func (c *Catalog) RunIncremental(ctx context.Context, endpoint string) (result *IncrementalResult) {
	result = &IncrementalResult{RunInfo: core.NewRunInfo()}
	defer recoverRun(&result.RunInfo, "incremental")

	if c.pipeline == nil {
		result.TransformAndLoad = c.noSource()
		finishStages(&result.RunInfo, &result.TransformAndLoad.RunInfo)
		return result
	}

	checkpoint, err := c.checkpoints.LoadCheckpoint(ctx, IncrementalCheckpoint)
	if err != nil {
		result.Add(core.NewRunError(core.Classify(err), fmt.Errorf("load checkpoint: %w", err)).WithStage("checkpoint"))
		result.Finish()
		return result
	}

	opts := ingestion.RunOptions{Endpoint: endpoint}
	if checkpoint != nil {
		since := checkpoint.LastSync
		result.Since = &since
		opts.Params = url.Values{"updated_since": {since.UTC().Format(time.RFC3339)}}
	}
	c.logger.Info("starting incremental sync", "run_id", result.RunID, "since", result.Since)

	result.TransformAndLoad = c.pipeline.Run(ctx, opts)
	result.EmbeddingSync = c.reembedder.Run(ctx, reembed.SyncOptions{UpdatedSince: result.Since})
	finishStages(&result.RunInfo, &result.TransformAndLoad.RunInfo, &result.EmbeddingSync.RunInfo)

	if result.Success {
		err := c.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
			Name:     IncrementalCheckpoint,
			LastSync: result.StartedAt,
		})
		if err != nil {
			result.Add(core.NewRunError(core.Classify(err), fmt.Errorf("save checkpoint: %w", err)).WithStage("checkpoint"))
			result.Finish()
			return result
		}
		result.CheckpointSaved = true
	}
	return result
}

// RunForProducts runs an embedding sync restricted to skus.
func (c *Catalog) RunForProducts(ctx context.Context, skus []string, force bool) *reembed.SyncResult {
	return c.reembedder.Run(ctx, reembed.SyncOptions{
		ForceRegenerate: force,
		SKUs:            skus,
	})
}

// RunSingleProduct fetches one product from the source, loads it and
// embeds it when its content changed. The embedding stage is skipped when
// loading failed.
func (c *Catalog) RunSingleProduct(ctx context.Context, endpoint, sku string) (result *SingleProductResult) {
	result = &SingleProductResult{RunInfo: core.NewRunInfo(), SKU: sku}
	defer recoverRun(&result.RunInfo, "single-product")

	if c.pipeline == nil {
		result.TransformAndLoad = c.noSource()
		finishStages(&result.RunInfo, &result.TransformAndLoad.RunInfo)
		return result
	}

	result.TransformAndLoad = c.pipeline.RunSingle(ctx, endpoint, sku)
	if !result.TransformAndLoad.Success {
		finishStages(&result.RunInfo, &result.TransformAndLoad.RunInfo)
		return result
	}
	result.EmbeddingSync = c.RunForProducts(ctx, []string{sku}, false)
	finishStages(&result.RunInfo, &result.TransformAndLoad.RunInfo, &result.EmbeddingSync.RunInfo)
	return result
}
