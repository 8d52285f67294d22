package voyage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithHost(host),
		ai.WithAPIKey("test-key"),
		ai.WithDimensions(2),
	)
}

// reversedServer answers with the data array in reverse input order.
func reversedServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "voyage-3", req.Model)

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float32{float32(i), float32(len(req.Input[i]))}})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data":  data,
			"model": req.Model,
			"usage": map[string]int{"total_tokens": 7},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEmbedder_EmbedTextsKeepsProviderIndex(t *testing.T) {
	var calls atomic.Int32
	server := reversedServer(t, &calls)
	embedder, err := NewEmbedder(testConfig(server.URL))
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc"}
	got, err := embedder.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 2, got[0].Index, "response order is passed through")

	vectors, err := ai.Correlate(got, len(texts))
	require.NoError(t, err)
	for i, text := range texts {
		assert.Equal(t, []float32{float32(i), float32(len(text))}, vectors[i])
	}
	assert.Equal(t, int32(1), calls.Load(), "one request per batch")
}

func TestEmbedder_EmbedText(t *testing.T) {
	var calls atomic.Int32
	server := reversedServer(t, &calls)
	embedder, err := NewEmbedder(testConfig(server.URL))
	require.NoError(t, err)

	vector, err := embedder.EmbedText(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 4}, vector)
}

func TestEmbedder_StatusErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(strings.Repeat("x", 800)))
	}))
	defer server.Close()

	embedder, err := NewEmbedder(testConfig(server.URL),
		WithRetryPolicy(core.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Retryable: core.IsTransient}))
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), []string{"a"})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Len(t, statusErr.Body, maxErrorBody)
	assert.ErrorIs(t, err, core.ErrUpstreamResponse)
	assert.Equal(t, core.KindUpstreamResponse, core.Classify(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedder_TimeoutIsTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	embedder, err := NewEmbedder(testConfig(server.URL),
		WithHTTPClient(&http.Client{Timeout: 10 * time.Millisecond}),
		WithRetryPolicy(core.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, Retryable: core.IsTransient}))
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, core.IsTransient(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	var calls atomic.Int32
	server := reversedServer(t, &calls)
	embedder, err := NewEmbedder(testConfig(server.URL), WithRetryPolicy(core.RetryPolicy{MaxAttempts: 1}))
	require.NoError(t, err)
	embedder.(*Embedder).dimensions = 3

	_, err = embedder.EmbedTexts(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3")
}

func TestEmbedder_EmptyInput(t *testing.T) {
	embedder, err := NewEmbedder(testConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), nil)
	assert.ErrorIs(t, err, ai.ErrEmptyInput)
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(ai.NewConfig())
	assert.Error(t, err, "api key is required")

	provider, err := NewProvider(testConfig("http://127.0.0.1:1"))
	require.NoError(t, err)
	assert.NotNil(t, provider.Embedder())
	assert.NoError(t, provider.Close())
}
