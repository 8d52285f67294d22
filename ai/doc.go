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


// Package ai defines the embedding capability used by catalog sync.
//
// The Embedder interface turns product text into vectors. Batched calls
// return Embedding values tagged with the index of the input they belong
// to, because hosted providers are free to answer out of order. Use
// Correlate to map a response back onto its inputs.
//
// # Implementation Packages
//
//   - ai/voyage: the Voyage embeddings HTTP API
//   - ai/openai: OpenAI-compatible servers (OpenAI, Ollama, vLLM) via langchaingo
//   - ai/mock: deterministic test doubles
//
// Public constructors (voyage.NewProvider, openai.NewProvider) return
// interface types. mock.NewMockEmbedder returns the concrete type so tests
// can inject behaviour and assert call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAPIKey(os.Getenv("VOYAGE_API_KEY")))
//	provider, err := voyage.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	embeddings, err := provider.Embedder().EmbedTexts(ctx, texts)
//	vectors, err := ai.Correlate(embeddings, len(texts))
package ai
