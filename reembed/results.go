package reembed

import "github.com/poiesic/catalogsync/core"

// SyncResult reports an embedding sync run.
type SyncResult struct {
	core.RunInfo
	TotalProducts         int `json:"total_products"`
	ProductsNeedingUpdate int `json:"products_needing_update"`
	EmbeddingsGenerated   int `json:"embeddings_generated"`
	EmbeddingsUpserted    int `json:"embeddings_upserted"`
	MetadataOnlyUpdates   int `json:"metadata_only_updates"`
	SkippedProducts       int `json:"skipped_products"`
}

// DeletionResult reports a deletion sync run.
type DeletionResult struct {
	core.RunInfo
	RelationalProducts int `json:"relational_products"`
	IndexedProducts    int `json:"indexed_products"`
	Deleted            int `json:"deleted"`
}
