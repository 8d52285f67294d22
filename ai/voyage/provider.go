package voyage

import (
	"log/slog"

	"github.com/poiesic/catalogsync/ai"
)

// Provider implements ai.AIProvider for Voyage.
type Provider struct {
	embedder *Embedder
	logger   *slog.Logger
}

// NewProvider validates config and builds the embedder.
func NewProvider(config *ai.Config, opts ...Option) (ai.AIProvider, error) {
	embedder, err := newEmbedder(config, opts...)
	if err != nil {
		return nil, err
	}
	return &Provider{
		embedder: embedder,
		logger:   slog.Default().With("component", "voyage-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close releases idle connections.
func (p *Provider) Close() error {
	p.logger.Debug("closing voyage provider")
	p.embedder.client.CloseIdleConnections()
	return nil
}
