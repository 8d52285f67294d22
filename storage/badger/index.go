package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

const (
	defaultScrollLimit = 100
	distanceCosine     = "cosine"
)

// Index implements storage.VectorIndex on BadgerDB. Vectors are stored
// normalized, so cosine similarity is computed as a dot product over a
// full scan of the collection.
type Index struct {
	backend     *Backend
	collection  string
	scrollLimit int
	logger      *slog.Logger

	mu         sync.RWMutex
	dimensions int
	closed     bool
}

var _ storage.VectorIndex = (*Index)(nil)

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithScrollLimit sets the page size used by full scans.
func WithScrollLimit(limit int) IndexOption {
	return func(i *Index) {
		if limit > 0 {
			i.scrollLimit = limit
		}
	}
}

// NewIndex creates an index over the named collection. The backend is
// shared and must be closed by the caller after the index.
func NewIndex(backend *Backend, collection string, opts ...IndexOption) *Index {
	idx := &Index{
		backend:     backend,
		collection:  collection,
		scrollLimit: defaultScrollLimit,
		logger:      slog.Default().With("component", "vector-index", "collection", collection),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Close marks the index closed. It does not close the backend.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

func (i *Index) checkOpen() error {
	i.mu.RLock()
	closed := i.closed
	i.mu.RUnlock()
	if closed || i.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// Ping reports whether the index can serve requests.
func (i *Index) Ping(ctx context.Context) error {
	if err := i.checkOpen(); err != nil {
		return err
	}
	return i.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeCollectionKey(i.collection))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	}, false)
}

// EnsureCollection creates the collection or checks its dimensionality.
func (i *Index) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", storage.ErrInvalidQuery)
	}
	if err := i.checkOpen(); err != nil {
		return err
	}

	err := i.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readDimensions(tx, i.collection)
		if err != nil {
			return err
		}
		if existing != 0 {
			if existing != dimensions {
				return fmt.Errorf("%w: collection %s has %d dimensions, requested %d",
					storage.ErrDimensionMismatch, i.collection, existing, dimensions)
			}
			return nil
		}

		buf := make([]byte, varint.Int.Size(dimensions))
		varint.Int.Marshal(dimensions, buf)
		if err := tx.Set(makeCollectionKey(i.collection), buf); err != nil {
			return err
		}
		i.logger.Info("created collection", "dimensions", dimensions, "distance", distanceCosine)
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.dimensions = dimensions
	i.mu.Unlock()
	return nil
}

// readDimensions returns 0 when the collection does not exist.
func readDimensions(tx *badger.Txn, collection string) (int, error) {
	item, err := tx.Get(makeCollectionKey(collection))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var dims int
	err = item.Value(func(val []byte) error {
		var err error
		dims, _, err = varint.Int.Unmarshal(val)
		return err
	})
	return dims, err
}

func (i *Index) loadDimensions() (int, error) {
	i.mu.RLock()
	dims := i.dimensions
	i.mu.RUnlock()
	if dims != 0 {
		return dims, nil
	}

	err := i.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		dims, err = readDimensions(tx, i.collection)
		return err
	}, false)
	if err != nil {
		return 0, err
	}
	if dims == 0 {
		return 0, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, i.collection)
	}

	i.mu.Lock()
	i.dimensions = dims
	i.mu.Unlock()
	return dims, nil
}

// UpsertPoints writes points by id. A previous point of the same sku
// under a different id is removed so each sku has one point.
func (i *Index) UpsertPoints(ctx context.Context, records ...*core.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := i.checkOpen(); err != nil {
		return err
	}
	dims, err := i.loadDimensions()
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Vector) != dims {
			return fmt.Errorf("%w: point %s has %d dimensions, collection has %d",
				storage.ErrDimensionMismatch, r.ID, len(r.Vector), dims)
		}
	}

	return i.backend.WithTx(func(tx *badger.Txn) error {
		for _, r := range records {
			skuKey := makePointSKUKey(i.collection, r.SKU)
			previous, err := readString(tx, skuKey)
			if err != nil {
				return err
			}
			if previous != "" && previous != r.ID {
				if err := tx.Delete(makePointKey(i.collection, previous)); err != nil {
					return err
				}
			}

			point := *r
			point.Vector = unitVector(r.Vector)
			if err := tx.Set(makePointKey(i.collection, r.ID), storage.MarshalPoint(&point)); err != nil {
				return err
			}
			if err := tx.Set(skuKey, []byte(r.ID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// PatchPayload overwrites price and/or stock of a product's point.
func (i *Index) PatchPayload(ctx context.Context, productID uuid.UUID, patch storage.PayloadPatch) error {
	if err := i.checkOpen(); err != nil {
		return err
	}
	key := makePointKey(i.collection, core.PointID(productID))
	return i.backend.WithTx(func(tx *badger.Txn) error {
		point, err := readPoint(tx, key)
		if err != nil {
			return err
		}
		if point == nil {
			return storage.ErrNotFound
		}
		if patch.Price != nil {
			point.Price = *patch.Price
		}
		if patch.Stock != nil {
			point.Stock = *patch.Stock
		}
		if err := tx.Set(key, storage.MarshalPoint(point)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Scroll pages through the collection in point id order.
func (i *Index) Scroll(ctx context.Context, offset string, limit int) ([]storage.PointSummary, string, error) {
	if err := i.checkOpen(); err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = i.scrollLimit
	}

	var (
		page []storage.PointSummary
		next string
	)
	prefix := makePointPrefix(i.collection)
	err := i.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := prefix
		if offset != "" {
			start = makePointKey(i.collection, offset)
		}
		for iter.Seek(start); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var point *core.EmbeddingRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				point, err = storage.UnmarshalPoint(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(page) == limit {
				next = point.ID
				return nil
			}
			page = append(page, storage.PointSummary{
				ID:          point.ID,
				SKU:         point.SKU,
				ContentHash: point.ContentHash,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, "", err
	}
	return page, next, nil
}

func (i *Index) scrollAll(ctx context.Context, fn func(storage.PointSummary)) error {
	offset := ""
	for {
		page, next, err := i.Scroll(ctx, offset, i.scrollLimit)
		if err != nil {
			return err
		}
		for _, p := range page {
			fn(p)
		}
		if next == "" {
			return nil
		}
		offset = next
	}
}

// GetAllHashes returns sku → content hash for every point.
func (i *Index) GetAllHashes(ctx context.Context) (map[string]string, error) {
	hashes := make(map[string]string)
	err := i.scrollAll(ctx, func(p storage.PointSummary) {
		hashes[p.SKU] = p.ContentHash
	})
	if err != nil {
		return nil, err
	}
	i.logger.Debug("loaded content hashes", "count", len(hashes))
	return hashes, nil
}

// ListSKUs returns the sku of every point.
func (i *Index) ListSKUs(ctx context.Context) ([]string, error) {
	var skus []string
	err := i.scrollAll(ctx, func(p storage.PointSummary) {
		skus = append(skus, p.SKU)
	})
	return skus, err
}

// DeleteBySKU removes the point carrying sku, if any.
func (i *Index) DeleteBySKU(ctx context.Context, sku string) error {
	if err := i.checkOpen(); err != nil {
		return err
	}
	return i.backend.WithTx(func(tx *badger.Txn) error {
		skuKey := makePointSKUKey(i.collection, sku)
		id, err := readString(tx, skuKey)
		if err != nil {
			return err
		}
		if id == "" {
			return nil
		}
		if err := tx.Delete(makePointKey(i.collection, id)); err != nil {
			return err
		}
		if err := tx.Delete(skuKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Search scores every point matching filter against vector.
func (i *Index) Search(ctx context.Context, vector []float32, limit int, filter *core.SearchFilter) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	if err := i.checkOpen(); err != nil {
		return nil, err
	}
	dims, err := i.loadDimensions()
	if err != nil {
		return nil, err
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			storage.ErrDimensionMismatch, len(vector), dims)
	}
	query := unitVector(vector)

	var results []*core.SearchResult
	err = i.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointPrefix(i.collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var point *core.EmbeddingRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				point, err = storage.UnmarshalPoint(val)
				return err
			})
			if err != nil {
				return err
			}
			if !matches(point, filter) {
				continue
			}
			results = append(results, &core.SearchResult{
				Record: point,
				Score:  dot(query, point.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func matches(p *core.EmbeddingRecord, f *core.SearchFilter) bool {
	if f == nil {
		return true
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MinStock != nil && p.Stock < *f.MinStock {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// Info describes the collection.
func (i *Index) Info(ctx context.Context) (*core.IndexInfo, error) {
	if err := i.checkOpen(); err != nil {
		return nil, err
	}
	dims, err := i.loadDimensions()
	if err != nil {
		return nil, err
	}

	var count int64
	err = i.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointPrefix(i.collection)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return &core.IndexInfo{
		Name:        i.collection,
		PointsCount: count,
		Dimensions:  dims,
		Distance:    distanceCosine,
	}, nil
}

// readPoint returns nil when the key does not exist.
func readPoint(tx *badger.Txn, key []byte) (*core.EmbeddingRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var point *core.EmbeddingRecord
	err = item.Value(func(val []byte) error {
		var err error
		point, err = storage.UnmarshalPoint(val)
		return err
	})
	return point, err
}

// readString returns "" when the key does not exist.
func readString(tx *badger.Txn, key []byte) (string, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	val, err := item.ValueCopy(nil)
	return string(val), err
}
