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

import "errors"

// Sentinels shared by the relational store and the vector index. Callers
// test for them with errors.Is; backends wrap them with context.
var (
	ErrNotFound           = errors.New("storage: not found")
	ErrStorageClosed      = errors.New("storage: closed")
	ErrInvalidQuery       = errors.New("storage: invalid query")
	ErrDimensionMismatch  = errors.New("storage: vector dimension mismatch")
	ErrCollectionNotFound = errors.New("storage: collection does not exist")
	ErrUnsupportedDriver  = errors.New("storage: unsupported database driver")

	// ErrTruncatedData is returned by the codecs for short input.
	ErrTruncatedData = errors.New("storage: truncated data")
)
