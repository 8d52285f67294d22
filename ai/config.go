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


package ai

import (
	"errors"
	"strings"
	"time"
)

// Provider names accepted by Config.Provider.
const (
	ProviderVoyage = "voyage"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config holds configuration for the embedding provider.
type Config struct {
	// Provider selects the implementation: "voyage", "openai" or "mock".
	Provider string

	// Host is the base URL of the embedding API.
	// Example: "https://api.voyageai.com/v1", "http://localhost:11434/v1"
	Host string

	// APIKey is sent as a bearer token. Required for voyage.
	APIKey string

	// Model is the embedding model identifier.
	// Example: "voyage-3", "text-embedding-3-small"
	Model string

	// Dimensions is the vector size the model produces.
	// Default: 1024
	Dimensions int

	// Timeout bounds a single embedding request.
	// Default: 60s
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider name.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the embedding API base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithDimensions sets the expected vector size.
func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// DefaultConfig returns a Config for the hosted Voyage API.
func DefaultConfig() *Config {
	return &Config{
		Provider:   ProviderVoyage,
		Host:       "https://api.voyageai.com/v1",
		Model:      "voyage-3",
		Dimensions: 1024,
		Timeout:    60 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithHost("http://localhost:11434"),
//	    WithModel("nomic-embed-text"),
//	    WithDimensions(768),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// Trailing slashes are removed from the host and the /v1 suffix is added
// when missing, which every supported API expects.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Host != "" {
		c.Host = strings.TrimSuffix(c.Host, "/")
		if !strings.HasSuffix(c.Host, "/v1") {
			c.Host = c.Host + "/v1"
		}
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderVoyage, ProviderOpenAI, ProviderMock:
	case "":
		return errors.New("ai config: Provider is required")
	default:
		return errors.New("ai config: Provider must be one of voyage, openai, mock")
	}
	if c.Dimensions <= 0 {
		return errors.New("ai config: Dimensions must be positive")
	}
	if c.Provider == ProviderMock {
		return nil
	}
	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.Provider == ProviderVoyage && c.APIKey == "" {
		return errors.New("ai config: APIKey is required for voyage")
	}
	if c.Timeout < 0 {
		return errors.New("ai config: Timeout cannot be negative")
	}
	return nil
}
