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


package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/catalogsync/core"
	"github.com/shopspring/decimal"
)

// Point layout: id, vector (count + float32s), sku, product id, category,
// price (decimal string), stock, text, content hash.
// Checkpoint layout: name, last sync (unix micros), updated at (unix micros).

// PointMUS serializes core.EmbeddingRecord values.
var PointMUS = pointMUS{}

// CheckpointMUS serializes core.Checkpoint values.
var CheckpointMUS = checkpointMUS{}

type pointMUS struct{}

func (pointMUS) Size(v core.EmbeddingRecord) (size int) {
	size = ord.String.Size(v.ID)
	size += varint.Int.Size(len(v.Vector))
	for _, f := range v.Vector {
		size += raw.Float32.Size(f)
	}
	size += ord.String.Size(v.SKU)
	size += ord.String.Size(v.ProductID.String())
	size += ord.String.Size(v.Category)
	size += ord.String.Size(v.Price.String())
	size += varint.Int64.Size(v.Stock)
	size += ord.String.Size(v.Text)
	size += ord.String.Size(v.ContentHash)
	return
}

func (pointMUS) Marshal(v core.EmbeddingRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += varint.Int.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += ord.String.Marshal(v.SKU, bs[n:])
	n += ord.String.Marshal(v.ProductID.String(), bs[n:])
	n += ord.String.Marshal(v.Category, bs[n:])
	n += ord.String.Marshal(v.Price.String(), bs[n:])
	n += varint.Int64.Marshal(v.Stock, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	return
}

func (pointMUS) Unmarshal(bs []byte) (v core.EmbeddingRecord, n int, err error) {
	var n1 int
	if v.ID, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1

	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if count < 0 || count*4 > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	if count > 0 {
		v.Vector = make([]float32, count)
		for i := range v.Vector {
			if v.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += n1
		}
	}

	if v.SKU, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1

	var s string
	if s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ProductID, err = uuid.Parse(s); err != nil {
		return
	}

	if v.Category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1

	if s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Price, err = decimal.NewFromString(s); err != nil {
		return
	}

	if v.Stock, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1

	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1

	v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

type checkpointMUS struct{}

func (checkpointMUS) Size(v core.Checkpoint) (size int) {
	size = ord.String.Size(v.Name)
	size += varint.Int64.Size(v.LastSync.UnixMicro())
	size += varint.Int64.Size(v.UpdatedAt.UnixMicro())
	return
}

func (checkpointMUS) Marshal(v core.Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int64.Marshal(v.LastSync.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
	return
}

func (checkpointMUS) Unmarshal(bs []byte) (v core.Checkpoint, n int, err error) {
	var n1 int
	if v.Name, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1

	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.LastSync = time.UnixMicro(micros).UTC()

	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.UpdatedAt = time.UnixMicro(micros).UTC()
	return
}

// MarshalPoint serializes an EmbeddingRecord to bytes.
func MarshalPoint(record *core.EmbeddingRecord) []byte {
	buf := make([]byte, PointMUS.Size(*record))
	PointMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalPoint deserializes an EmbeddingRecord from bytes.
func UnmarshalPoint(data []byte) (*core.EmbeddingRecord, error) {
	record, _, err := PointMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, CheckpointMUS.Size(*checkpoint))
	CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &checkpoint, nil
}
