package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/catalogsync/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbeddingServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req.Model)

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[i%dims] = 1
			data[i] = item{Object: "embedding", Embedding: vec, Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(host string, dims int) *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.ProviderOpenAI),
		ai.WithHost(host),
		ai.WithModel("test-embed"),
		ai.WithDimensions(dims),
	)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	server := newEmbeddingServer(t, 3)
	embedder, err := NewEmbedder(testConfig(server.URL, 3))
	require.NoError(t, err)

	texts := []string{"camisa", "bota", "bolso"}
	got, err := embedder.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, got, 3)

	vectors, err := ai.Correlate(got, len(texts))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1, 0}, vectors[1])
	assert.Equal(t, []float32{0, 0, 1}, vectors[2])
}

func TestEmbedder_EmbedText(t *testing.T) {
	server := newEmbeddingServer(t, 3)
	embedder, err := NewEmbedder(testConfig(server.URL, 3))
	require.NoError(t, err)

	vector, err := embedder.EmbedText(context.Background(), "camisa")
	require.NoError(t, err)
	assert.Len(t, vector, 3)
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	server := newEmbeddingServer(t, 3)
	embedder, err := NewEmbedder(testConfig(server.URL, 8))
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), []string{"camisa"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 8")
}

func TestEmbedder_EmptyInput(t *testing.T) {
	server := newEmbeddingServer(t, 3)
	embedder, err := NewEmbedder(testConfig(server.URL, 3))
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), nil)
	assert.ErrorIs(t, err, ai.ErrEmptyInput)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI), ai.WithModel("")))
	assert.Error(t, err)
}

func TestProvider_EmbedAndClose(t *testing.T) {
	server := newEmbeddingServer(t, 3)
	provider, err := NewProvider(testConfig(server.URL, 3))
	require.NoError(t, err)

	vector, err := provider.Embedder().EmbedText(context.Background(), "bota")
	require.NoError(t, err)
	assert.Len(t, vector, 3)
	assert.NoError(t, provider.Close())
}
