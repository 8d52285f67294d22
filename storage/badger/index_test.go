package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	index, backend, err := NewMemoryIndex("products", 3)
	require.NoError(t, err)
	t.Cleanup(func() {
		index.Close()
		backend.Close()
	})
	return index
}

func point(sku, category string, vector []float32, price string, stock int64) *core.EmbeddingRecord {
	id := uuid.New()
	return &core.EmbeddingRecord{
		ID:          core.PointID(id),
		Vector:      vector,
		SKU:         sku,
		ProductID:   id,
		Category:    category,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Text:        "Producto: " + sku,
		ContentHash: "hash-" + sku,
	}
}

func TestIndex_EnsureCollection(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.EnsureCollection(ctx, 3))

	err := index.EnsureCollection(ctx, 4)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestIndex_CollectionNotFound(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	index := NewIndex(backend, "missing")
	err = index.UpsertPoints(context.Background(), point("A", "camisas", []float32{1, 0, 0}, "1", 1))
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
}

func TestIndex_UpsertAndGet(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()
	p := point("A", "camisas", []float32{3, 4, 0}, "10.50", 5)

	require.NoError(t, index.UpsertPoints(ctx, p))

	got, err := index.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.SKU)
	assert.Equal(t, p.ProductID, got.ProductID)
	assert.InDelta(t, 0.6, got.Vector[0], 1e-6)
	assert.InDelta(t, 0.8, got.Vector[1], 1e-6)
	assert.Equal(t, "hash-A", got.ContentHash)

	_, err = index.Get(ctx, "product-unknown")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndex_UpsertDimensionMismatch(t *testing.T) {
	index := newTestIndex(t)

	err := index.UpsertPoints(context.Background(), point("A", "camisas", []float32{1, 0}, "1", 1))
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestIndex_UpsertReplacesPreviousPointOfSKU(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()
	first := point("A", "camisas", []float32{1, 0, 0}, "1", 1)
	second := point("A", "camisas", []float32{0, 1, 0}, "1", 1)

	require.NoError(t, index.UpsertPoints(ctx, first))
	require.NoError(t, index.UpsertPoints(ctx, second))

	info, err := index.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.PointsCount)

	_, err = index.Get(ctx, first.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndex_PatchPayloadKeepsVectorAndHash(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()
	p := point("A", "camisas", []float32{0, 0, 2}, "10", 5)
	require.NoError(t, index.UpsertPoints(ctx, p))

	price := decimal.RequireFromString("12.99")
	stock := int64(0)
	require.NoError(t, index.PatchPayload(ctx, p.ProductID, storage.PayloadPatch{Price: &price, Stock: &stock}))

	got, err := index.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, price.Equal(got.Price))
	assert.Equal(t, int64(0), got.Stock)
	assert.Equal(t, []float32{0, 0, 1}, got.Vector)
	assert.Equal(t, "hash-A", got.ContentHash)

	hashes, err := index.GetAllHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "hash-A"}, hashes)

	err = index.PatchPayload(ctx, uuid.New(), storage.PayloadPatch{Stock: &stock})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndex_PatchPayloadPartial(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()
	p := point("A", "camisas", []float32{1, 0, 0}, "10", 5)
	require.NoError(t, index.UpsertPoints(ctx, p))

	stock := int64(9)
	require.NoError(t, index.PatchPayload(ctx, p.ProductID, storage.PayloadPatch{Stock: &stock}))

	got, err := index.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", got.Price.String())
	assert.Equal(t, int64(9), got.Stock)
}

func TestIndex_ScrollPages(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		require.NoError(t, index.UpsertPoints(ctx, point(fmt.Sprintf("SKU-%d", i), "otros", []float32{1, 1, 1}, "1", 1)))
	}

	seen := map[string]bool{}
	offset := ""
	pages := 0
	for {
		page, next, err := index.Scroll(ctx, offset, 3)
		require.NoError(t, err)
		pages++
		for _, p := range page {
			assert.False(t, seen[p.SKU], "sku %s returned twice", p.SKU)
			seen[p.SKU] = true
		}
		if next == "" {
			break
		}
		offset = next
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 7)

	skus, err := index.ListSKUs(ctx)
	require.NoError(t, err)
	assert.Len(t, skus, 7)
}

func TestIndex_DeleteBySKU(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.UpsertPoints(ctx,
		point("A", "camisas", []float32{1, 0, 0}, "1", 1),
		point("B", "camisas", []float32{0, 1, 0}, "1", 1),
	))

	require.NoError(t, index.DeleteBySKU(ctx, "A"))
	require.NoError(t, index.DeleteBySKU(ctx, "unknown"))

	skus, err := index.ListSKUs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, skus)
}

func TestIndex_Search(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.UpsertPoints(ctx,
		point("SHIRT", "camisas", []float32{1, 0, 0}, "20", 10),
		point("SHIRT-OUT", "camisas", []float32{0.9, 0.1, 0}, "25", 0),
		point("BOOT", "botas", []float32{0, 1, 0}, "80", 3),
		point("BAG", "bolsos", []float32{0, 0, 1}, "150", 2),
	))

	t.Run("ranked by similarity", func(t *testing.T) {
		results, err := index.Search(ctx, []float32{1, 0, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "SHIRT", results[0].Record.SKU)
		assert.InDelta(t, 1.0, results[0].Score, 1e-5)
		assert.Equal(t, "SHIRT-OUT", results[1].Record.SKU)
	})

	t.Run("category and stock filter", func(t *testing.T) {
		minStock := int64(1)
		results, err := index.Search(ctx, []float32{1, 0, 0}, 10, &core.SearchFilter{Category: "camisas", MinStock: &minStock})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "SHIRT", results[0].Record.SKU)
	})

	t.Run("price range", func(t *testing.T) {
		minPrice := decimal.NewFromInt(50)
		maxPrice := decimal.NewFromInt(100)
		results, err := index.Search(ctx, []float32{0, 0, 1}, 10, &core.SearchFilter{MinPrice: &minPrice, MaxPrice: &maxPrice})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "BOOT", results[0].Record.SKU)
	})

	t.Run("invalid limit", func(t *testing.T) {
		_, err := index.Search(ctx, []float32{1, 0, 0}, 0, nil)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestIndex_InfoAndPing(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.UpsertPoints(ctx, point("A", "camisas", []float32{1, 0, 0}, "1", 1)))

	info, err := index.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, &core.IndexInfo{Name: "products", PointsCount: 1, Dimensions: 3, Distance: "cosine"}, info)

	require.NoError(t, index.Ping(ctx))
	require.NoError(t, index.Close())
	assert.ErrorIs(t, index.Ping(ctx), storage.ErrStorageClosed)
}
