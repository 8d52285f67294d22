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


package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultUnit is the unit assigned to products that do not declare one.
	DefaultUnit = "unidad"

	// PointIDPrefix prefixes every vector index point id.
	PointIDPrefix = "product-"
)

// RawRecord is an untyped record as delivered by the source API.
// Only the validator and cleaner look inside it.
type RawRecord map[string]any

// SKU returns the record's sku as a string, or "" when absent.
func (r RawRecord) SKU() string {
	s, _ := ToString(r["sku"])
	return s
}

// Clone returns a shallow copy of the record. The attributes map is copied too
// so cleaners can rewrite it without touching the caller's record.
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		if attrs, ok := v.(map[string]any); ok && k == "attributes" {
			copied := make(map[string]any, len(attrs))
			for ak, av := range attrs {
				copied[ak] = av
			}
			out[k] = copied
			continue
		}
		out[k] = v
	}
	return out
}

// Product is the canonical catalog entity.
type Product struct {
	ID          uuid.UUID
	SKU         string
	Name        string
	Description string // empty when the source had none
	Category    string
	Price       decimal.Decimal
	Stock       int64
	Unit        string
	Attributes  map[string]any
	RawData     RawRecord
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EmbeddingRecord is a point in the vector index.
// ID and Vector only change through a full regeneration.
type EmbeddingRecord struct {
	ID          string
	Vector      []float32
	SKU         string
	ProductID   uuid.UUID
	Category    string
	Price       decimal.Decimal
	Stock       int64
	Text        string
	ContentHash string
}

// PointID derives the vector index point id for a product.
func PointID(productID uuid.UUID) string {
	return PointIDPrefix + productID.String()
}

// SearchFilter restricts a similarity search by payload fields.
// Nil fields are not applied.
type SearchFilter struct {
	Category string
	MinStock *int64
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// SearchResult is a single similarity hit.
type SearchResult struct {
	Record *EmbeddingRecord
	Score  float32
}

// CatalogStats aggregates the relational store.
type CatalogStats struct {
	TotalProducts int64            `json:"total_products"`
	ByCategory    map[string]int64 `json:"by_category"`
	TotalStock    int64            `json:"total_stock"`
}

// IndexInfo describes the vector index collection.
type IndexInfo struct {
	Name        string `json:"name"`
	PointsCount int64  `json:"points_count"`
	Dimensions  int    `json:"dimensions"`
	Distance    string `json:"distance"`
}

// Checkpoint records the last successful run of a named sync job.
type Checkpoint struct {
	Name      string
	LastSync  time.Time
	UpdatedAt time.Time
}
