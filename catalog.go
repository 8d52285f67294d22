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


// Package catalogsync keeps a product catalog in step across a source API,
// a relational store and a vector index. Catalog wires every component
// from a config.Config and exposes the sync runs.
package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/config"
	"github.com/poiesic/catalogsync/ingestion"
	"github.com/poiesic/catalogsync/reembed"
	"github.com/poiesic/catalogsync/search"
	"github.com/poiesic/catalogsync/source"
	"github.com/poiesic/catalogsync/storage"
	"github.com/poiesic/catalogsync/storage/badger"
	"github.com/poiesic/catalogsync/storage/sqlstore"
)

// ErrNoSource is reported by runs that need the source API when neither
// a base URL nor a source file is configured.
var ErrNoSource = errors.New("catalog: no product source configured")

type Catalog struct {
	config      *config.Config
	source      source.Source
	store       storage.ProductStore
	backend     *badger.Backend
	index       *badger.Index
	checkpoints storage.CheckpointStore
	provider    ai.AIProvider
	pipeline    *ingestion.Pipeline
	reembedder  *reembed.Reembedder
	searcher    *search.Searcher
	logger      *slog.Logger
}

// Option configures a Catalog.
type Option func(*catalogOptions)

type catalogOptions struct {
	source   source.Source
	provider ai.AIProvider
	progress io.Writer
	logger   *slog.Logger
}

// WithSource replaces the source built from the configuration.
func WithSource(src source.Source) Option {
	return func(o *catalogOptions) {
		o.source = src
	}
}

// WithProvider replaces the embedding provider built from the configuration.
// The Catalog takes ownership and closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *catalogOptions) {
		o.provider = provider
	}
}

// WithProgress sets where embedding sync progress is written.
// Default is no progress output.
func WithProgress(w io.Writer) Option {
	return func(o *catalogOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *catalogOptions) {
		o.logger = logger
	}
}

// Open validates cfg, connects every client and prepares the schema and
// the index collection.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Catalog, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &catalogOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	c := &Catalog{
		config: cfg,
		logger: options.logger.With("component", "catalog"),
	}
	if err := c.open(ctx, options); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) open(ctx context.Context, options *catalogOptions) error {
	cfg := c.config

	store, err := sqlstore.Open(ctx, sqlStoreConfig(&cfg.Database))
	if err != nil {
		return err
	}
	c.store = store
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	c.backend, err = badger.OpenBackend(cfg.Index.Path, cfg.Index.InMemory)
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	c.index = badger.NewIndex(c.backend, cfg.Index.Collection, badger.WithScrollLimit(cfg.Index.ScrollLimit))
	if err := c.index.EnsureCollection(ctx, cfg.Index.Dimensions); err != nil {
		return err
	}
	c.checkpoints = badger.NewCheckpointStore(c.backend)

	c.provider = options.provider
	if c.provider == nil {
		if c.provider, err = NewProvider(&cfg.Embedding); err != nil {
			return err
		}
	}

	c.source = options.source
	if c.source == nil {
		if c.source, err = NewSource(&cfg.Source); err != nil {
			return err
		}
	}
	if c.source != nil {
		c.pipeline, err = ingestion.NewPipeline(c.source, c.store,
			ingestion.WithTransformConfig(transformConfig(&cfg.Transform)),
			ingestion.WithLogger(options.logger))
		if err != nil {
			return err
		}
	}

	c.reembedder, err = reembed.NewReembedder(c.store, c.index, c.provider.Embedder(),
		reembedConfig(cfg), options.progress)
	if err != nil {
		return err
	}

	c.searcher, err = search.NewSearcher(c.index, c.provider.Embedder(), search.WithLogger(options.logger))
	if err != nil {
		return err
	}
	return nil
}

// Config returns the configuration the catalog was opened with.
func (c *Catalog) Config() *config.Config {
	return c.config
}

// Store returns the relational store.
func (c *Catalog) Store() storage.ProductStore {
	return c.store
}

// Index returns the vector index.
func (c *Catalog) Index() storage.VectorIndex {
	return c.index
}

// Pipeline returns the transform-and-load pipeline, or nil when no
// source is configured.
func (c *Catalog) Pipeline() *ingestion.Pipeline {
	return c.pipeline
}

// Close releases every client. It is safe to call on a partly opened catalog.
func (c *Catalog) Close() error {
	var errs []error

	if c.reembedder != nil {
		c.reembedder.Release()
	}
	if c.provider != nil {
		if err := c.provider.Close(); err != nil {
			c.logger.Error("error closing embedding provider", "err", err)
		}
	}
	if c.source != nil {
		if err := c.source.Close(); err != nil {
			c.logger.Error("error closing source", "err", err)
		}
	}
	if c.index != nil {
		if err := c.index.Close(); err != nil {
			c.logger.Error("error closing vector index", "err", err)
			errs = append(errs, err)
		}
	}
	if c.backend != nil {
		if err := c.backend.Close(); err != nil {
			c.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Error("error closing relational store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
