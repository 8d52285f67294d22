package reembed

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage/badger"
	"github.com/poiesic/catalogsync/storage/sqlstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testDimensions = 8

func newProduct(sku, name string, price string, stock int64) *core.Product {
	p := &core.Product{
		ID:          uuid.New(),
		SKU:         sku,
		Name:        name,
		Description: "Descripción de " + name,
		Category:    "ferreteria",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Unit:        core.DefaultUnit,
		Attributes:  map[string]any{"material": "acero"},
	}
	p.ContentHash = core.ComputeContentHash(p)
	return p
}

func newTestIndex(t *testing.T) *badger.Index {
	t.Helper()
	index, backend, err := badger.NewMemoryIndex("products", testDimensions)
	require.NoError(t, err)
	t.Cleanup(func() {
		index.Close()
		backend.Close()
	})
	return index
}

func newTestStore(t *testing.T, products ...*core.Product) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { store.Close() })

	if len(products) > 0 {
		result, err := store.UpsertBatch(ctx, products)
		require.NoError(t, err)
		require.Empty(t, result.Errors)
	}
	return store
}
