package openai

import (
	"github.com/poiesic/catalogsync/ai"
)

// Provider owns an Embedder and its HTTP connections.
type Provider struct {
	embedder *Embedder
}

// NewProvider validates config and connects nothing yet; the first request
// dials the server.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	return &Provider{embedder: embedder}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close drops idle keep-alive connections to the embedding server.
func (p *Provider) Close() error {
	p.embedder.logger.Debug("closing provider")
	p.embedder.httpClient.CloseIdleConnections()
	return nil
}
