package catalogsync

import (
	"fmt"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/ai/mock"
	"github.com/poiesic/catalogsync/ai/openai"
	"github.com/poiesic/catalogsync/ai/voyage"
	"github.com/poiesic/catalogsync/config"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/reembed"
	"github.com/poiesic/catalogsync/source"
	"github.com/poiesic/catalogsync/storage/sqlstore"
	"github.com/poiesic/catalogsync/transform"
)

const defaultOpenAIHost = "https://api.openai.com/v1"

// NewProvider builds the embedding provider named by cfg.Provider.
//
// Voyage is built without retries of its own: the embedding sync retries
// whole chunks, so retrying inside the client would multiply the attempts.
func NewProvider(cfg *config.EmbeddingConfig) (ai.AIProvider, error) {
	aiConfig := ai.NewConfig(
		ai.WithProvider(cfg.Provider),
		ai.WithAPIKey(cfg.APIKey),
		ai.WithDimensions(cfg.Dimensions),
		ai.WithTimeout(cfg.Timeout.Std()),
	)
	if cfg.Host != "" {
		aiConfig.Host = cfg.Host
	}
	if cfg.Model != "" {
		aiConfig.Model = cfg.Model
	}

	switch cfg.Provider {
	case config.ProviderVoyage:
		return voyage.NewProvider(aiConfig, voyage.WithRetryPolicy(core.RetryPolicy{MaxAttempts: 1}))
	case config.ProviderOpenAI:
		if cfg.Host == "" {
			aiConfig.Host = defaultOpenAIHost
		}
		return openai.NewProvider(aiConfig)
	case config.ProviderMock:
		embedder := mock.NewMockEmbedder()
		embedder.Dimensions = cfg.Dimensions
		return mock.NewMockProviderWithEmbedder(embedder), nil
	}
	return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
}

// NewSource builds the product source: a JSON file when cfg.File is set,
// the HTTP client when cfg.BaseURL is set. It returns nil, nil when
// neither is configured.
func NewSource(cfg *config.SourceConfig) (source.Source, error) {
	switch {
	case cfg.File != "":
		return source.NewFileSource(cfg.File), nil
	case cfg.BaseURL != "":
		client, err := source.NewClient(source.Config{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			Timeout:           cfg.Timeout.Std(),
			PageSize:          cfg.PageSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Retry: core.RetryPolicy{
				MaxAttempts: cfg.MaxRetries,
				BaseDelay:   cfg.RetryMinDelay.Std(),
				MaxDelay:    cfg.RetryMaxDelay.Std(),
				Retryable:   source.IsTransient,
			},
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, nil
}

func sqlStoreConfig(cfg *config.DatabaseConfig) sqlstore.Config {
	return sqlstore.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN(),
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime.Std(),
	}
}

func transformConfig(cfg *config.TransformConfig) *transform.Config {
	tc := transform.DefaultConfig()
	tc.MinPrice = cfg.MinPrice
	tc.MaxSKULength = cfg.MaxSKULength
	tc.MaxNameLength = cfg.MaxNameLength
	tc.MaxDescriptionLength = cfg.MaxDescriptionLength
	tc.RequirePositiveStock = cfg.RequirePositiveStock
	tc.PriceMultiplier = cfg.PriceMultiplier
	tc.PricePrecision = cfg.PricePrecision
	tc.DefaultCategory = cfg.DefaultCategory
	tc.DefaultUnit = cfg.DefaultUnit
	// config.Validate has already checked the name.
	tc.DuplicatePolicy, _ = transform.ParseDuplicatePolicy(cfg.DuplicatePolicy)
	return tc
}

func reembedConfig(cfg *config.Config) *reembed.Config {
	rc := reembed.DefaultConfig()
	rc.BatchSize = cfg.Sync.BatchSize
	rc.PoolSize = cfg.Sync.PoolSize
	rc.ChunkSize = cfg.Embedding.ChunkSize
	rc.ChunkDelay = cfg.Embedding.ChunkDelay.Std()
	rc.MaxRetries = cfg.Embedding.MaxRetries
	rc.RetryDelay = cfg.Embedding.RetryDelay.Std()
	rc.DefaultUnit = cfg.Transform.DefaultUnit
	return rc
}
