package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/catalogsync/core"
	"github.com/shopspring/decimal"
)

// ProductStore is the relational system of record for canonical products.
// Implementations must be safe for concurrent use and rely on the
// database's native upsert for conflicting writes.
type ProductStore interface {
	// Migrate creates the products table and its indices if they do not exist.
	Migrate(ctx context.Context) error

	// Upsert inserts or updates a product keyed by sku.
	// On return p.ID holds the stored id. inserted reports whether the row is new.
	Upsert(ctx context.Context, p *core.Product) (inserted bool, err error)

	// UpsertBatch upserts every product independently. A failing row is
	// recorded in the result and the batch continues.
	UpsertBatch(ctx context.Context, products []*core.Product) (*UpsertResult, error)

	// GetAll returns every product ordered by sku.
	GetAll(ctx context.Context) ([]*core.Product, error)

	// GetBySKU returns ErrNotFound when the sku is unknown.
	GetBySKU(ctx context.Context, sku string) (*core.Product, error)

	// GetBySKUs returns the products that exist; unknown skus are ignored.
	GetBySKUs(ctx context.Context, skus []string) ([]*core.Product, error)

	GetByCategory(ctx context.Context, category string) ([]*core.Product, error)

	// GetUpdatedSince returns products whose updated_at is at or after since.
	GetUpdatedSince(ctx context.Context, since time.Time) ([]*core.Product, error)

	// ListSKUs returns every sku in the store.
	ListSKUs(ctx context.Context) ([]string, error)

	// DeleteBySKU returns ErrNotFound when nothing was deleted.
	DeleteBySKU(ctx context.Context, sku string) error

	Stats(ctx context.Context) (*core.CatalogStats, error)
	Ping(ctx context.Context) error
	Close() error
}

// UpsertResult summarizes a batch upsert.
type UpsertResult struct {
	Inserted int
	Updated  int
	Errors   []*core.RunError
}

// PayloadPatch names the payload fields of a point to overwrite.
// Nil fields are left untouched.
type PayloadPatch struct {
	Price *decimal.Decimal
	Stock *int64
}

// PointSummary is the scroll projection of a point.
type PointSummary struct {
	ID          string
	SKU         string
	ContentHash string
}

// VectorIndex stores one embedding point per product and answers
// filtered cosine-similarity queries.
type VectorIndex interface {
	// EnsureCollection creates the collection, or checks that an existing
	// one has the same dimensionality.
	EnsureCollection(ctx context.Context, dimensions int) error

	// UpsertPoints writes points by id, overwriting vector, payload and hash.
	UpsertPoints(ctx context.Context, records ...*core.EmbeddingRecord) error

	// PatchPayload overwrites price and/or stock of the product's point.
	// The vector and content hash are never touched.
	// Returns ErrNotFound when the product has no point.
	PatchPayload(ctx context.Context, productID uuid.UUID, patch PayloadPatch) error

	// Scroll returns up to limit summaries starting at offset (inclusive,
	// "" for the beginning) and the offset of the next page, "" on the last one.
	Scroll(ctx context.Context, offset string, limit int) ([]PointSummary, string, error)

	// GetAllHashes scans the whole collection and returns sku → content hash.
	GetAllHashes(ctx context.Context) (map[string]string, error)

	// ListSKUs scans the whole collection and returns every indexed sku.
	ListSKUs(ctx context.Context) ([]string, error)

	// DeleteBySKU removes the point carrying sku. Deleting an unknown sku is not an error.
	DeleteBySKU(ctx context.Context, sku string) error

	// Search returns up to limit points ordered by similarity, highest first.
	Search(ctx context.Context, vector []float32, limit int, filter *core.SearchFilter) ([]*core.SearchResult, error)

	Info(ctx context.Context) (*core.IndexInfo, error)
	Ping(ctx context.Context) error
	Close() error
}

// CheckpointStore persists the last successful sync time per job.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns nil, nil when no checkpoint exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)
}
