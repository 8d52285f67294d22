package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

// NewMemoryIndex opens an in-memory backend holding a single, already
// created collection. Tests close the backend; the index shares it.
func NewMemoryIndex(collection string, dimensions int) (*Index, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}
	index := NewIndex(backend, collection)
	if err := index.EnsureCollection(context.Background(), dimensions); err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("create test collection %q: %w", collection, err)
	}
	return index, backend, nil
}

// Get returns the point with the given id, or ErrNotFound. Sync code
// reads points only through scrolls; Get lets tests inspect one.
func (i *Index) Get(ctx context.Context, id string) (*core.EmbeddingRecord, error) {
	if err := i.checkOpen(); err != nil {
		return nil, err
	}
	var point *core.EmbeddingRecord
	err := i.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		point, err = readPoint(tx, makePointKey(i.collection, id))
		if err != nil {
			return err
		}
		if point == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return point, err
}
