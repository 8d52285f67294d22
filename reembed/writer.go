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
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

// DefaultUpsertGroup is the number of points written per index call.
const DefaultUpsertGroup = 16

// IndexWriter applies embedding sync results to the vector index. Bulk
// operations are spread over a bounded worker pool.
type IndexWriter struct {
	index       storage.VectorIndex
	pool        *ants.Pool
	upsertGroup int
	logger      *slog.Logger
}

// WriterOption configures an IndexWriter.
type WriterOption func(*IndexWriter) error

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) WriterOption {
	return func(w *IndexWriter) error {
		if size < 1 {
			size = 1
		}
		if w.pool != nil {
			w.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		w.pool = pool
		return nil
	}
}

// WithUpsertGroup sets how many points go into one UpsertPoints call.
func WithUpsertGroup(size int) WriterOption {
	return func(w *IndexWriter) error {
		if size > 0 {
			w.upsertGroup = size
		}
		return nil
	}
}

// NewIndexWriter creates a writer for index.
func NewIndexWriter(index storage.VectorIndex, opts ...WriterOption) (*IndexWriter, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	w := &IndexWriter{
		index:       index,
		pool:        pool,
		upsertGroup: DefaultUpsertGroup,
		logger:      slog.Default().With("component", "index-writer"),
	}
	for _, opt := range opts {
		if optErr := opt(w); optErr != nil {
			w.Release()
			return nil, optErr
		}
	}
	return w, nil
}

// UpsertFull writes complete points, overwriting vector, payload and hash
// of any point with the same id. It returns how many points were written.
func (w *IndexWriter) UpsertFull(ctx context.Context, records []*core.EmbeddingRecord) (int, []*core.RunError) {
	var tasks []task
	for start := 0; start < len(records); start += w.upsertGroup {
		group := records[start:min(start+w.upsertGroup, len(records))]
		tasks = append(tasks, task{
			size: len(group),
			sku:  group[0].SKU,
			run: func(ctx context.Context) error {
				return w.index.UpsertPoints(ctx, group...)
			},
		})
	}
	written, errs := w.runAll(ctx, "upsert", tasks)
	w.logger.Info("upserted embeddings", "written", written, "total", len(records))
	return written, errs
}

// PatchMetadata updates only price and stock of each product's point. The
// stored vector and content hash are left untouched. Products whose point
// does not exist under their current id are returned as missing, sorted by
// sku, instead of being reported as errors.
func (w *IndexWriter) PatchMetadata(ctx context.Context, products []*core.Product) (int, []*core.Product, []*core.RunError) {
	var (
		mu      sync.Mutex
		missing []*core.Product
	)
	tasks := make([]task, len(products))
	for i, p := range products {
		price, stock := p.Price, p.Stock
		id := p.ID
		tasks[i] = task{
			size: 1,
			sku:  p.SKU,
			run: func(ctx context.Context) error {
				return w.index.PatchPayload(ctx, id, storage.PayloadPatch{Price: &price, Stock: &stock})
			},
			missing: func() {
				mu.Lock()
				defer mu.Unlock()
				missing = append(missing, p)
			},
		}
	}
	patched, errs := w.runAll(ctx, "patch", tasks)
	slices.SortFunc(missing, func(a, b *core.Product) int { return strings.Compare(a.SKU, b.SKU) })
	w.logger.Info("updated metadata", "patched", patched, "missing", len(missing), "total", len(products))
	return patched, missing, errs
}

// GetAllHashes returns the sku to content hash map of the whole index.
func (w *IndexWriter) GetAllHashes(ctx context.Context) (map[string]string, error) {
	return w.index.GetAllHashes(ctx)
}

// Release releases the worker pool.
// The writer should not be used after calling Release.
func (w *IndexWriter) Release() {
	if w.pool != nil {
		w.pool.Release()
	}
}

type task struct {
	size int
	sku  string
	run  func(ctx context.Context) error

	// missing, when set, is called instead of recording an error when run
	// fails with storage.ErrNotFound.
	missing func()
}

// runAll submits tasks to the pool and waits for all of them. Once ctx is
// done no further task is submitted; submitted ones run to completion.
func (w *IndexWriter) runAll(ctx context.Context, stage string, tasks []task) (int, []*core.RunError) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
		errs []*core.RunError
	)
	fail := func(t task, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, core.NewRunError(core.KindLoad, err).WithStage(stage).WithSKU(t.sku))
	}

	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			fail(t, fmt.Errorf("%d of %d %s tasks not started: %w", len(tasks)-i, len(tasks), stage, err))
			break
		}
		wg.Add(1)
		submitErr := w.pool.Submit(func() {
			defer wg.Done()
			if err := t.run(context.WithoutCancel(ctx)); err != nil {
				if t.missing != nil && errors.Is(err, storage.ErrNotFound) {
					t.missing()
					return
				}
				w.logger.Error("index write failed", "stage", stage, "sku", t.sku, "err", err)
				fail(t, err)
				return
			}
			mu.Lock()
			done += t.size
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			fail(t, submitErr)
		}
	}
	wg.Wait()
	return done, errs
}
