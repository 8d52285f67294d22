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


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/source"
	"github.com/poiesic/catalogsync/storage"
	"github.com/poiesic/catalogsync/transform"
)

// DefaultEndpoint is the source endpoint listing products.
const DefaultEndpoint = "/products"

// Pipeline orchestrates extract, validate, clean, normalize and load.
type Pipeline struct {
	source     source.Source
	store      storage.ProductStore
	config     *transform.Config
	validator  *transform.Validator
	cleaner    *transform.Cleaner
	normalizer *transform.Normalizer
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithTransformConfig sets the thresholds and tables of the transform stages.
// Default is transform.DefaultConfig().
func WithTransformConfig(config *transform.Config) Option {
	return func(p *Pipeline) error {
		if config == nil {
			return nil
		}
		if err := config.Validate(); err != nil {
			return err
		}
		p.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new transform-and-load pipeline.
func NewPipeline(src source.Source, store storage.ProductStore, opts ...Option) (*Pipeline, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		source: src,
		store:  store,
		config: transform.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	// Stages are built after options so they see the final config.
	p.validator = transform.NewValidator(p.config)
	p.cleaner = transform.NewCleaner(p.config)
	p.normalizer = transform.NewNormalizer(p.config)
	p.logger = p.logger.With("component", "ingestion")
	return p, nil
}

// RunOptions holds optional parameters for a run.
type RunOptions struct {
	// Endpoint defaults to DefaultEndpoint.
	Endpoint string

	// Params are passed to the source with every page request.
	Params url.Values

	// IncludeInvalid passes rejected records on to cleaning instead of
	// dropping them. They are still reported.
	IncludeInvalid bool

	// DuplicatePolicy overrides the configured policy when set.
	DuplicatePolicy transform.DuplicatePolicy
}

func (o RunOptions) endpoint() string {
	if o.Endpoint == "" {
		return DefaultEndpoint
	}
	return o.Endpoint
}

// Run extracts every record of the endpoint and loads it.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (result *Result) {
	result = newResult()
	defer p.finish(result, "transform-and-load")

	p.logger.Info("starting extraction", "endpoint", opts.endpoint())
	records, err := p.source.FetchAll(ctx, opts.endpoint(), opts.Params)
	if err != nil {
		result.Add(core.NewRunError(core.Classify(err), fmt.Errorf("extract %s: %w", opts.endpoint(), err)).
			WithStage("extract"))
		return result
	}
	result.Extracted = len(records)
	p.logger.Info("extracted records", "count", len(records))

	if len(records) == 0 {
		result.warn("no products found in source")
		return result
	}

	p.process(ctx, records, opts, result)
	return result
}

// RunRecords loads records that were obtained elsewhere, such as a fixture
// file or a webhook body.
func (p *Pipeline) RunRecords(ctx context.Context, records []core.RawRecord, opts RunOptions) (result *Result) {
	result = newResult()
	defer p.finish(result, "transform-and-load")

	result.Extracted = len(records)
	if len(records) == 0 {
		result.warn("no products given")
		return result
	}
	p.process(ctx, records, opts, result)
	return result
}

// RunSingle fetches one product from the source and loads it. A record that
// fails validation makes the run unsuccessful.
func (p *Pipeline) RunSingle(ctx context.Context, endpoint, sku string) (result *Result) {
	result = newResult()
	defer p.finish(result, "single-product")

	opts := RunOptions{Endpoint: endpoint}
	record, err := p.source.FetchProduct(ctx, opts.endpoint(), sku)
	if err != nil {
		result.Add(core.NewRunError(core.Classify(err), err).WithStage("extract").WithSKU(sku))
		return result
	}
	if record == nil {
		result.Add(core.NewRunError(core.KindUpstreamResponse, ErrProductNotFound).WithStage("extract").WithSKU(sku))
		return result
	}
	result.Extracted = 1

	outcome := p.validator.Validate(record)
	if !outcome.Valid {
		result.Rejected = 1
		for _, fe := range outcome.Errors {
			result.Add(core.NewRunErrorf(core.KindValidation, "%s", fe.Message).
				WithStage("validate").WithSKU(sku).WithField(fe.Field))
		}
		return result
	}

	p.process(ctx, []core.RawRecord{record}, opts, result)
	return result
}

func (p *Pipeline) process(ctx context.Context, records []core.RawRecord, opts RunOptions, result *Result) {
	accepted, rejected := p.validator.ValidateBatch(records, !opts.IncludeInvalid)
	result.Validated = len(accepted)
	result.Rejected = len(rejected)
	for _, r := range rejected {
		sku := r.Record.SKU()
		for _, fe := range r.Outcome.Errors {
			result.Rejections.Add(core.NewRunErrorf(core.KindValidation, "%s", fe.Message).
				WithStage("validate").WithSKU(sku).WithField(fe.Field))
		}
	}

	cleaned := p.cleaner.CleanBatch(accepted)
	result.Cleaned = len(cleaned)

	policy := opts.DuplicatePolicy
	if policy == "" {
		policy = p.config.DuplicatePolicy
	}
	products, invalid := p.normalizer.NormalizeBatch(cleaned, policy)
	result.Normalized = len(products)
	for _, e := range invalid {
		result.Rejections.Add(e)
	}

	if len(products) == 0 {
		result.warn("no products left after normalization")
		return
	}

	p.logger.Info("loading products", "count", len(products))
	loaded, err := p.store.UpsertBatch(ctx, products)
	if loaded != nil {
		result.Inserted = loaded.Inserted
		result.Updated = loaded.Updated
		result.AddAll(loaded.Errors)
	}
	if err != nil {
		result.Add(core.NewRunError(core.Classify(err), fmt.Errorf("load interrupted: %w", err)).WithStage("load"))
	}

	result.SKUs = make([]string, len(products))
	for i, product := range products {
		result.SKUs[i] = product.SKU
	}
	p.logger.Info("load complete", "inserted", result.Inserted, "updated", result.Updated)
}

// finish recovers a panic into the result and stamps it. It must be deferred.
func (p *Pipeline) finish(result *Result, stage string) {
	if rec := recover(); rec != nil {
		p.logger.Error("pipeline panicked", "stage", stage, "panic", rec)
		result.Add(core.PanicError(stage, rec))
	}
	result.Finish()
	p.logger.Info("pipeline finished",
		"run_id", result.RunID, "success", result.Success, "errors", result.Len(),
		"duration", result.Duration())
}
