package reembed

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/ai/mock"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
	"github.com/poiesic/catalogsync/storage/badger"
	"github.com/poiesic/catalogsync/storage/sqlstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		BatchSize:      2,
		ChunkSize:      2,
		MaxRetries:     1,
		PoolSize:       2,
		ReportInterval: 1,
	}
}

type fixture struct {
	store    *sqlstore.Store
	index    *badger.Index
	embedder *mock.MockEmbedder
	r        *Reembedder
}

func newFixture(t *testing.T, products ...*core.Product) *fixture {
	t.Helper()
	f := &fixture{
		store:    newTestStore(t, products...),
		index:    newTestIndex(t),
		embedder: mock.NewMockEmbedder(),
	}
	r, err := NewReembedder(f.store, f.index, f.embedder, testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	f.r = r
	return f
}

func TestNewReembedder_Validation(t *testing.T) {
	store := newTestStore(t)
	index := newTestIndex(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewReembedder(nil, index, embedder, nil, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
	_, err = NewReembedder(store, nil, embedder, nil, nil)
	assert.ErrorIs(t, err, ErrIndexRequired)
	_, err = NewReembedder(store, index, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	r, err := NewReembedder(store, index, embedder, nil, nil)
	require.NoError(t, err)
	r.Release()
}

func TestReembedder_Run(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		newProduct("SKU-A", "Taladro", "120.00", 4),
		newProduct("SKU-B", "Sierra", "80.00", 2),
		newProduct("SKU-C", "Lija", "5.00", 100),
	)

	first := f.r.Run(ctx, SyncOptions{})
	require.True(t, first.Success, "errors: %v", first.Errors)
	assert.Equal(t, 3, first.TotalProducts)
	assert.Equal(t, 3, first.ProductsNeedingUpdate)
	assert.Equal(t, 3, first.EmbeddingsGenerated)
	assert.Equal(t, 3, first.EmbeddingsUpserted)
	assert.Zero(t, first.MetadataOnlyUpdates)

	info, err := f.index.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.PointsCount)

	// Nothing changed: no provider calls.
	f.embedder.Reset()
	second := f.r.Run(ctx, SyncOptions{})
	require.True(t, second.Success)
	assert.Zero(t, second.ProductsNeedingUpdate)
	assert.Equal(t, 3, second.MetadataOnlyUpdates)
	assert.Zero(t, f.embedder.CallCount())

	// A price change is metadata only, a rename needs a new embedding.
	b, err := f.store.GetBySKU(ctx, "SKU-B")
	require.NoError(t, err)
	b.Price = decimal.RequireFromString("60.00")
	_, err = f.store.Upsert(ctx, b)
	require.NoError(t, err)

	c, err := f.store.GetBySKU(ctx, "SKU-C")
	require.NoError(t, err)
	c.Name = "Lija al agua"
	c.ContentHash = core.ComputeContentHash(c)
	_, err = f.store.Upsert(ctx, c)
	require.NoError(t, err)

	f.embedder.Reset()
	third := f.r.Run(ctx, SyncOptions{})
	require.True(t, third.Success)
	assert.Equal(t, 1, third.ProductsNeedingUpdate)
	assert.Equal(t, 1, third.EmbeddingsUpserted)
	assert.Equal(t, 2, third.MetadataOnlyUpdates)
	assert.Equal(t, []string{core.EmbeddingText(c, core.DefaultUnit)}, f.embedder.Texts())

	stored, err := f.index.Get(ctx, core.PointID(b.ID))
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("60.00")))

	hashes, err := f.index.GetAllHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.ComputeContentHash(c), hashes["SKU-C"])
}

// A product deleted and re-created under the same sku gets a new id while
// its content hash still matches the indexed point. The point is replaced
// instead of the patch failing on every run.
func TestReembedder_RunRecreatedProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newProduct("SKU-A", "Taladro", "120.00", 4), newProduct("SKU-B", "Sierra", "80.00", 2))
	require.True(t, f.r.Run(ctx, SyncOptions{}).Success)

	old, err := f.store.GetBySKU(ctx, "SKU-A")
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteBySKU(ctx, "SKU-A"))
	recreated := newProduct("SKU-A", "Taladro", "99.00", 1)
	require.NotEqual(t, old.ID, recreated.ID)
	_, err = f.store.Upsert(ctx, recreated)
	require.NoError(t, err)

	f.embedder.Reset()
	result := f.r.Run(ctx, SyncOptions{})
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.MetadataOnlyUpdates)
	assert.Equal(t, 1, result.ProductsNeedingUpdate)
	assert.Equal(t, 1, result.EmbeddingsUpserted)
	assert.Equal(t, 1, f.embedder.CallCount())

	stored, err := f.index.Get(ctx, core.PointID(recreated.ID))
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("99.00")))
	_, err = f.index.Get(ctx, core.PointID(old.ID))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	info, err := f.index.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.PointsCount)

	// The next run finds the point under the new id.
	f.embedder.Reset()
	again := f.r.Run(ctx, SyncOptions{})
	require.True(t, again.Success)
	assert.Equal(t, 2, again.MetadataOnlyUpdates)
	assert.Zero(t, again.ProductsNeedingUpdate)
	assert.Zero(t, f.embedder.CallCount())
}

func TestReembedder_RunForceRegenerate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newProduct("SKU-A", "Taladro", "120.00", 4), newProduct("SKU-B", "Sierra", "80.00", 2))

	require.True(t, f.r.Run(ctx, SyncOptions{}).Success)
	result := f.r.Run(ctx, SyncOptions{ForceRegenerate: true})
	require.True(t, result.Success)
	assert.Equal(t, 2, result.ProductsNeedingUpdate)
	assert.Equal(t, 2, result.EmbeddingsUpserted)
	assert.Zero(t, result.MetadataOnlyUpdates)

	info, err := f.index.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.PointsCount)
}

func TestReembedder_RunForSKUs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		newProduct("SKU-A", "Taladro", "120.00", 4),
		newProduct("SKU-B", "Sierra", "80.00", 2),
	)

	result := f.r.Run(ctx, SyncOptions{SKUs: []string{"SKU-B", "SKU-MISSING"}})
	require.True(t, result.Success)
	assert.Equal(t, 1, result.TotalProducts)
	assert.Equal(t, 1, result.EmbeddingsUpserted)

	indexed, err := f.index.ListSKUs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU-B"}, indexed)
}

func TestReembedder_RunNoProducts(t *testing.T) {
	f := newFixture(t)

	result := f.r.Run(context.Background(), SyncOptions{SKUs: []string{"NOPE"}})
	assert.True(t, result.Success)
	assert.Zero(t, result.TotalProducts)
	assert.Zero(t, f.embedder.CallCount())
}

func TestReembedder_RunUpdatedSince(t *testing.T) {
	f := newFixture(t, newProduct("SKU-A", "Taladro", "120.00", 4))

	future := time.Now().Add(time.Hour)
	result := f.r.Run(context.Background(), SyncOptions{UpdatedSince: &future})
	assert.True(t, result.Success)
	assert.Zero(t, result.TotalProducts)

	past := time.Now().Add(-time.Hour)
	result = f.r.Run(context.Background(), SyncOptions{UpdatedSince: &past})
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.EmbeddingsUpserted)
}

func TestReembedder_ProviderFailureFailsRun(t *testing.T) {
	f := newFixture(t, newProduct("SKU-A", "Taladro", "120.00", 4))
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([]ai.Embedding, error) {
		return nil, core.ErrUpstreamResponse
	}

	result := f.r.Run(context.Background(), SyncOptions{})
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.SkippedProducts)
	assert.Zero(t, result.EmbeddingsUpserted)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.KindUpstreamResponse, result.Errors[0].Kind)
}

func TestReembedder_RecoversPanic(t *testing.T) {
	f := newFixture(t, newProduct("SKU-A", "Taladro", "120.00", 4))
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([]ai.Embedding, error) {
		panic("provider exploded")
	}

	result := f.r.Run(context.Background(), SyncOptions{})
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.KindUnexpected, result.Errors[0].Kind)
	assert.Contains(t, result.Errors[0].Message, "provider exploded")
	assert.Positive(t, result.DurationSeconds)
}

func TestReembedder_StoreFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	result := f.r.Run(context.Background(), SyncOptions{})
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "read", result.Errors[0].Stage)
}

func TestReembedder_ProgressOutput(t *testing.T) {
	var buf bytes.Buffer
	store := newTestStore(t, newProduct("SKU-A", "Taladro", "120.00", 4))
	r, err := NewReembedder(store, newTestIndex(t), mock.NewMockEmbedder(), testConfig(), &buf)
	require.NoError(t, err)
	defer r.Release()

	require.True(t, r.Run(context.Background(), SyncOptions{}).Success)
	assert.Contains(t, buf.String(), "embedding 1/1 (100%) embedded=1")
}

func TestReembedder_SyncDeletions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		newProduct("A", "Alicate", "10.00", 1),
		newProduct("B", "Balde", "20.00", 2),
		newProduct("C", "Cincel", "30.00", 3),
	)
	require.True(t, f.r.Run(ctx, SyncOptions{}).Success)
	require.NoError(t, f.store.DeleteBySKU(ctx, "C"))

	result := f.r.SyncDeletions(ctx)
	require.True(t, result.Success)
	assert.Equal(t, 2, result.RelationalProducts)
	assert.Equal(t, 3, result.IndexedProducts)
	assert.Equal(t, 1, result.Deleted)

	again := f.r.SyncDeletions(ctx)
	assert.True(t, again.Success)
	assert.Zero(t, again.Deleted)
}
