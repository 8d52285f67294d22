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


// Package config loads process configuration. Values are layered:
// defaults, then an optional TOML file, then a .env file, then the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/catalogsync/transform"
	"github.com/shopspring/decimal"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderVoyage = "voyage"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// SourceConfig describes the product source API.
type SourceConfig struct {
	BaseURL           string   `toml:"base_url"`
	File              string   `toml:"file"` // JSON fixture read instead of the API
	APIKey            string   `toml:"api_key"`
	Timeout           Duration `toml:"timeout"`
	MaxRetries        int      `toml:"max_retries"`
	PageSize          int      `toml:"page_size"`
	RetryMinDelay     Duration `toml:"retry_min_delay"`
	RetryMaxDelay     Duration `toml:"retry_max_delay"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// DatabaseConfig describes the relational store.
type DatabaseConfig struct {
	Driver          string   `toml:"driver"`
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	User            string   `toml:"user"`
	Password        string   `toml:"password"`
	Name            string   `toml:"name"`
	SSLMode         string   `toml:"sslmode"`
	Path            string   `toml:"path"` // sqlite only
	MaxOpenConns    int      `toml:"max_open_conns"`
	MaxIdleConns    int      `toml:"max_idle_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime"`
}

// IndexConfig describes the vector index.
type IndexConfig struct {
	Path        string `toml:"path"`
	InMemory    bool   `toml:"in_memory"`
	Collection  string `toml:"collection"`
	Dimensions  int    `toml:"dimensions"` // zero means the embedding dimensions
	ScrollLimit int    `toml:"scroll_limit"`
}

// EmbeddingConfig describes the embedding provider and how it is driven.
type EmbeddingConfig struct {
	Provider   string   `toml:"provider"`
	Host       string   `toml:"host"`
	APIKey     string   `toml:"api_key"`
	Model      string   `toml:"model"`
	Dimensions int      `toml:"dimensions"`
	Timeout    Duration `toml:"timeout"`
	ChunkSize  int      `toml:"chunk_size"`
	ChunkDelay Duration `toml:"chunk_delay"`
	MaxRetries int      `toml:"max_retries"`
	RetryDelay Duration `toml:"retry_delay"`
}

// TransformConfig holds validation thresholds and normalization settings.
type TransformConfig struct {
	MinPrice             decimal.Decimal `toml:"min_price"`
	MaxNameLength        int             `toml:"max_name_length"`
	MaxDescriptionLength int             `toml:"max_description_length"`
	MaxSKULength         int             `toml:"max_sku_length"`
	RequirePositiveStock bool            `toml:"require_positive_stock"`
	PriceMultiplier      decimal.Decimal `toml:"price_multiplier"`
	PricePrecision       int32           `toml:"price_precision"`
	DefaultCategory      string          `toml:"default_category"`
	DefaultUnit          string          `toml:"default_unit"`
	DuplicatePolicy      string          `toml:"duplicate_policy"`
}

// SyncConfig tunes embedding sync runs.
type SyncConfig struct {
	BatchSize int `toml:"batch_size"`
	PoolSize  int `toml:"pool_size"` // zero picks a default
}

// ServerConfig describes the HTTP surface.
type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// Config is the complete process configuration.
type Config struct {
	Source    SourceConfig    `toml:"source"`
	Database  DatabaseConfig  `toml:"database"`
	Index     IndexConfig     `toml:"index"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Transform TransformConfig `toml:"transform"`
	Sync      SyncConfig      `toml:"sync"`
	Server    ServerConfig    `toml:"server"`
	LogLevel  string          `toml:"log_level"`
	LogFormat string          `toml:"log_format"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Timeout:       Duration(30 * time.Second),
			MaxRetries:    3,
			PageSize:      100,
			RetryMinDelay: Duration(2 * time.Second),
			RetryMaxDelay: Duration(30 * time.Second),
		},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			Path:            "catalog.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(30 * time.Minute),
		},
		Index: IndexConfig{
			Path:        "catalog-index",
			Collection:  "products",
			ScrollLimit: 100,
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderVoyage,
			Model:      "voyage-3",
			Dimensions: 1024,
			Timeout:    Duration(60 * time.Second),
			ChunkSize:  8,
			ChunkDelay: Duration(500 * time.Millisecond),
			MaxRetries: 3,
			RetryDelay: Duration(time.Second),
		},
		Transform: TransformConfig{
			MinPrice:             decimal.RequireFromString("0.01"),
			MaxNameLength:        500,
			MaxDescriptionLength: 5000,
			MaxSKULength:         100,
			PriceMultiplier:      decimal.NewFromInt(1),
			PricePrecision:       2,
			DefaultCategory:      "otros",
			DefaultUnit:          "unidad",
			DuplicatePolicy:      string(transform.KeepLatest),
		},
		Sync: SyncConfig{
			BatchSize: 50,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(10 * time.Minute),
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration. path names an optional TOML file; an
// empty path skips it. envFiles are loaded into the environment without
// overriding variables that are already set; when none are given ".env" is
// tried. Missing env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		if c.Path == "" {
			return ":memory:"
		}
		return c.Path
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Addr returns the listen address of the HTTP server.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the configuration and returns the first problem found.
// A zero Index.Dimensions takes the embedding dimensions.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" || c.Database.User == "" {
			return errors.New("config: postgres requires host, name and user")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return errors.New("config: database port must be between 1 and 65535")
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}

	switch c.Embedding.Provider {
	case ProviderVoyage:
		if c.Embedding.APIKey == "" {
			return errors.New("config: voyage provider requires an API key")
		}
	case ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("config: unsupported embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("config: embedding dimensions must be greater than 0")
	}
	if c.Index.Dimensions == 0 {
		c.Index.Dimensions = c.Embedding.Dimensions
	}
	if c.Index.Dimensions != c.Embedding.Dimensions {
		return fmt.Errorf("config: index dimensions %d differ from embedding dimensions %d",
			c.Index.Dimensions, c.Embedding.Dimensions)
	}
	if c.Index.Collection == "" {
		return errors.New("config: index collection is required")
	}
	if !c.Index.InMemory && c.Index.Path == "" {
		return errors.New("config: index path is required unless in_memory is set")
	}
	if c.Embedding.ChunkSize <= 0 {
		return errors.New("config: embedding chunk size must be greater than 0")
	}

	if c.Source.BaseURL != "" && c.Source.File != "" {
		return errors.New("config: source base URL and source file are exclusive")
	}
	if c.Source.BaseURL != "" {
		if u, err := url.Parse(c.Source.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: invalid source base URL %q", c.Source.BaseURL)
		}
	}
	if c.Source.PageSize <= 0 {
		return errors.New("config: source page size must be greater than 0")
	}
	if c.Source.MaxRetries < 1 {
		return errors.New("config: source max retries must be at least 1")
	}

	if c.Sync.BatchSize <= 0 {
		return errors.New("config: sync batch size must be greater than 0")
	}
	if _, err := transform.ParseDuplicatePolicy(c.Transform.DuplicatePolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("config: server port must be between 1 and 65535")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: invalid log format %q", c.LogFormat)
	}
	return nil
}
