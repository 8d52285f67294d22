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


package mock

import (
	"sync/atomic"

	"github.com/poiesic/catalogsync/ai"
)

// MockProvider hands out a MockEmbedder and records whether it was closed.
type MockProvider struct {
	embedder *MockEmbedder
	closes   atomic.Int32
}

var _ ai.AIProvider = (*MockProvider)(nil)

// NewMockProvider wraps a default MockEmbedder. Assert on the concrete
// type through GetMockEmbedder.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithEmbedder(NewMockEmbedder())
}

func NewMockProviderWithEmbedder(embedder *MockEmbedder) ai.AIProvider {
	return &MockProvider{embedder: embedder}
}

func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *MockProvider) Close() error {
	p.closes.Add(1)
	return nil
}

// Closed reports whether Close was called at least once.
func (p *MockProvider) Closed() bool {
	return p.closes.Load() > 0
}

// CloseCount is how many times Close was called.
func (p *MockProvider) CloseCount() int {
	return int(p.closes.Load())
}

func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}
