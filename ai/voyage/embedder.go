package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/core"
)

const maxErrorBody = 500

// StatusError is a non-2xx answer from the embeddings API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("voyage: status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return core.ErrUpstreamResponse
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Option customizes an Embedder.
type Option func(*Embedder)

// WithHTTPClient replaces the default client, whose timeout comes from the config.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Embedder) {
		e.client = client
	}
}

// WithRetryPolicy replaces core.DefaultRetryPolicy.
func WithRetryPolicy(policy core.RetryPolicy) Option {
	return func(e *Embedder) {
		e.retry = policy
	}
}

// Embedder implements ai.Embedder against the Voyage embeddings API.
type Embedder struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	model      string
	dimensions int
	retry      core.RetryPolicy
	logger     *slog.Logger
}

func newEmbedder(config *ai.Config, opts ...Option) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	e := &Embedder{
		client:     &http.Client{Timeout: timeout},
		endpoint:   config.Host + "/embeddings",
		apiKey:     config.APIKey,
		model:      config.Model,
		dimensions: config.Dimensions,
		retry:      core.DefaultRetryPolicy(),
		logger:     slog.Default().With("component", "voyage-embedder"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewEmbedder creates a Voyage embedder.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config, opts ...Option) (ai.Embedder, error) {
	return newEmbedder(config, opts...)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	vectors, err := ai.Correlate(embeddings, 1)
	if err != nil {
		return nil, err
	}
	if vectors[0] == nil {
		return nil, fmt.Errorf("voyage: no embedding returned")
	}
	return vectors[0], nil
}

// EmbedTexts sends all texts in one request. Results carry the index the
// API reports; they are not reordered here.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([]ai.Embedding, error) {
	if len(texts) == 0 {
		return nil, ai.ErrEmptyInput
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	var resp embeddingResponse
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		resp = embeddingResponse{}
		return e.post(ctx, embeddingRequest{Input: texts, Model: e.model}, &resp)
	})
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	out := make([]ai.Embedding, 0, len(resp.Data))
	for _, item := range resp.Data {
		if e.dimensions > 0 && len(item.Embedding) != e.dimensions {
			return nil, fmt.Errorf("voyage: model returned %d dimensions, expected %d", len(item.Embedding), e.dimensions)
		}
		out = append(out, ai.Embedding{Index: item.Index, Vector: item.Embedding})
	}
	e.logger.Debug("embeddings generated", "count", len(out), "tokens", resp.Usage.TotalTokens)
	return out, nil
}

func (e *Embedder) post(ctx context.Context, body embeddingRequest, out *embeddingResponse) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	res, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("voyage request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &StatusError{StatusCode: res.StatusCode, Body: string(msg)}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("voyage: decode response: %w", err)
	}
	return nil
}
