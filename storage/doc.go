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


// Package storage defines the storage capabilities used by the sync engine.
//
// Two stores are kept consistent on a best-effort basis:
//
//   - ProductStore: the relational system of record, keyed by sku
//     (see storage/sqlstore, Postgres or SQLite)
//   - VectorIndex: one embedding point per product with a filterable payload
//     (see storage/badger)
//
// CheckpointStore persists the time of the last successful incremental run.
//
// # Usage
//
//	products, err := sqlstore.Open(ctx, sqlstore.Config{Driver: "sqlite", DSN: "catalog.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer products.Close()
//
//	backend, err := badger.OpenBackend("/path/to/index", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	index := badger.NewIndex(backend, "products")
//	defer index.Close()
//
// Use in tests with in-memory storage:
//
//	index, backend, err := badger.NewMemoryIndex("products", 4)
//
// # Point encoding
//
// Index points are stored with the mus codecs in this package
// (PointMUS, CheckpointMUS).
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
