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

	"github.com/poiesic/catalogsync/core"
)

const (
	// DefaultBatchSize is the default number of products handled per batch.
	DefaultBatchSize = 50
)

// ProductIterator walks a product list in batches.
type ProductIterator struct {
	products  []*core.Product
	batchSize int
}

// NewProductIterator creates a new product iterator.
// batchSize: number of products per batch (defaults when <= 0)
func NewProductIterator(products []*core.Product, batchSize int) *ProductIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ProductIterator{
		products:  products,
		batchSize: batchSize,
	}
}

// Batches returns how many batches ForEach will produce.
func (it *ProductIterator) Batches() int {
	return (len(it.products) + it.batchSize - 1) / it.batchSize
}

// ForEach calls fn for each batch in order.
// Iteration stops on first error from fn or when all products are processed.
// Context cancellation is checked before each batch.
func (it *ProductIterator) ForEach(ctx context.Context, fn func([]*core.Product) error) error {
	for i := 0; i < len(it.products); i += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+it.batchSize, len(it.products))
		if err := fn(it.products[i:end]); err != nil {
			return err
		}
	}
	return nil
}
