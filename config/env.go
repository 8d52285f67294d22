package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// LookupFunc reads one environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// binding maps environment variables to one setting. The first name that
// is set wins, so the CATALOG_ names take precedence over the legacy ones.
type binding struct {
	names []string
	apply func(c *Config, value string) error
}

func str(field func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func integer(field func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*field(c) = n
		return nil
	}
}

func boolean(field func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		*field(c) = b
		return nil
	}
}

func duration(field func(c *Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

var bindings = []binding{
	{[]string{"CATALOG_SOURCE_BASE_URL", "API_BASE_URL"}, str(func(c *Config) *string { return &c.Source.BaseURL })},
	{[]string{"CATALOG_SOURCE_FILE"}, str(func(c *Config) *string { return &c.Source.File })},
	{[]string{"CATALOG_SOURCE_API_KEY", "API_KEY"}, str(func(c *Config) *string { return &c.Source.APIKey })},
	{[]string{"CATALOG_SOURCE_TIMEOUT", "API_TIMEOUT"}, duration(func(c *Config) *Duration { return &c.Source.Timeout })},
	{[]string{"CATALOG_SOURCE_MAX_RETRIES", "API_MAX_RETRIES"}, integer(func(c *Config) *int { return &c.Source.MaxRetries })},
	{[]string{"CATALOG_SOURCE_PAGE_SIZE", "API_PAGE_SIZE"}, integer(func(c *Config) *int { return &c.Source.PageSize })},
	{[]string{"CATALOG_SOURCE_RPS"}, func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", v)
		}
		c.Source.RequestsPerSecond = f
		return nil
	}},

	{[]string{"CATALOG_DB_DRIVER"}, str(func(c *Config) *string { return &c.Database.Driver })},
	{[]string{"CATALOG_DB_HOST", "POSTGRES_HOST"}, str(func(c *Config) *string { return &c.Database.Host })},
	{[]string{"CATALOG_DB_PORT", "POSTGRES_PORT"}, integer(func(c *Config) *int { return &c.Database.Port })},
	{[]string{"CATALOG_DB_USER", "POSTGRES_USER"}, str(func(c *Config) *string { return &c.Database.User })},
	{[]string{"CATALOG_DB_PASSWORD", "POSTGRES_PASSWORD"}, str(func(c *Config) *string { return &c.Database.Password })},
	{[]string{"CATALOG_DB_NAME", "POSTGRES_DB"}, str(func(c *Config) *string { return &c.Database.Name })},
	{[]string{"CATALOG_DB_SSLMODE", "POSTGRES_SSLMODE"}, str(func(c *Config) *string { return &c.Database.SSLMode })},
	{[]string{"CATALOG_DB_PATH"}, str(func(c *Config) *string { return &c.Database.Path })},

	{[]string{"CATALOG_INDEX_PATH"}, str(func(c *Config) *string { return &c.Index.Path })},
	{[]string{"CATALOG_INDEX_IN_MEMORY"}, boolean(func(c *Config) *bool { return &c.Index.InMemory })},
	{[]string{"CATALOG_INDEX_COLLECTION", "QDRANT_COLLECTION"}, str(func(c *Config) *string { return &c.Index.Collection })},

	{[]string{"CATALOG_EMBEDDING_PROVIDER"}, str(func(c *Config) *string { return &c.Embedding.Provider })},
	{[]string{"CATALOG_EMBEDDING_HOST"}, str(func(c *Config) *string { return &c.Embedding.Host })},
	{[]string{"CATALOG_EMBEDDING_API_KEY", "VOYAGE_API_KEY"}, str(func(c *Config) *string { return &c.Embedding.APIKey })},
	{[]string{"CATALOG_EMBEDDING_MODEL", "EMBEDDING_MODEL"}, str(func(c *Config) *string { return &c.Embedding.Model })},
	{[]string{"CATALOG_EMBEDDING_DIMENSIONS", "EMBEDDING_DIMENSIONS"}, func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		c.Embedding.Dimensions = n
		c.Index.Dimensions = n
		return nil
	}},
	{[]string{"CATALOG_EMBEDDING_CHUNK_SIZE"}, integer(func(c *Config) *int { return &c.Embedding.ChunkSize })},
	{[]string{"CATALOG_EMBEDDING_CHUNK_DELAY"}, duration(func(c *Config) *Duration { return &c.Embedding.ChunkDelay })},

	{[]string{"CATALOG_MIN_PRICE"}, func(c *Config, v string) error {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid decimal %q", v)
		}
		c.Transform.MinPrice = d
		return nil
	}},
	{[]string{"CATALOG_DUPLICATE_POLICY"}, str(func(c *Config) *string { return &c.Transform.DuplicatePolicy })},

	{[]string{"CATALOG_BATCH_SIZE", "BATCH_SIZE"}, integer(func(c *Config) *int { return &c.Sync.BatchSize })},
	{[]string{"CATALOG_POOL_SIZE"}, integer(func(c *Config) *int { return &c.Sync.PoolSize })},

	{[]string{"CATALOG_SERVER_HOST"}, str(func(c *Config) *string { return &c.Server.Host })},
	{[]string{"CATALOG_SERVER_PORT"}, integer(func(c *Config) *int { return &c.Server.Port })},

	{[]string{"CATALOG_LOG_LEVEL", "LOG_LEVEL"}, func(c *Config, v string) error {
		c.LogLevel = strings.ToLower(strings.TrimSpace(v))
		return nil
	}},
	{[]string{"CATALOG_LOG_FORMAT", "LOG_FORMAT"}, str(func(c *Config) *string { return &c.LogFormat })},
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for _, b := range bindings {
		for _, name := range b.names {
			value, ok := lookup(name)
			if !ok || value == "" {
				continue
			}
			if err := b.apply(c, value); err != nil {
				return fmt.Errorf("config: %s: %w", name, err)
			}
			break
		}
	}
	return nil
}
