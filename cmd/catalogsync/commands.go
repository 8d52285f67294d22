package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/catalogsync"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/server"
	"github.com/poiesic/catalogsync/transform"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func (a *app) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "full-sync",
			Usage:  "Load products from the source, embed changed products and remove deleted ones",
			Action: a.fullSyncCommand,
			Flags: []cli.Flag{
				endpointFlag(),
				&cli.BoolFlag{
					Name:  "force",
					Usage: "Regenerate every embedding regardless of content hashes",
				},
			},
		},
		{
			Name:    "transform-and-load",
			Aliases: []string{"api-to-postgres"},
			Usage:   "Extract products from the source, transform them and load the relational store",
			Action:  a.transformAndLoadCommand,
			Flags: []cli.Flag{
				endpointFlag(),
				&cli.BoolFlag{
					Name:  "include-invalid",
					Usage: "Load records that failed validation instead of dropping them",
				},
				&cli.BoolFlag{
					Name:  "keep-duplicates",
					Usage: "Do not resolve duplicate skus; the last row loaded wins",
				},
				&cli.StringFlag{
					Name:  "duplicates",
					Usage: "Duplicate policy (keep_first, keep_latest, merge); defaults to the configured policy",
				},
			},
		},
		{
			Name:    "embedding-sync",
			Aliases: []string{"postgres-to-qdrant"},
			Usage:   "Embed products whose content changed and patch price and stock of the rest",
			Action:  a.embeddingSyncCommand,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "force",
					Usage: "Regenerate every embedding regardless of content hashes",
				},
				&cli.IntFlag{
					Name:  "batch-size",
					Usage: "Number of products to embed per batch",
					Value: 50,
				},
			},
		},
		{
			Name:    "deletion-sync",
			Aliases: []string{"sync-deletions"},
			Usage:   "Remove index points whose product left the relational store",
			Action:  a.deletionSyncCommand,
		},
		{
			Name:   "incremental",
			Usage:  "Sync the products updated since the last successful incremental run",
			Action: a.incrementalCommand,
			Flags:  []cli.Flag{endpointFlag()},
		},
		{
			Name:   "sync-products",
			Usage:  "Run an embedding sync restricted to the given skus",
			Action: a.syncProductsCommand,
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:     "sku",
					Aliases:  []string{"s"},
					Usage:    "Product sku (repeatable)",
					Required: true,
				},
				&cli.BoolFlag{
					Name:  "force",
					Usage: "Regenerate the embeddings regardless of content hashes",
				},
			},
		},
		{
			Name:   "sync-product",
			Usage:  "Fetch one product from the source, load it and embed it",
			Action: a.syncProductCommand,
			Flags: []cli.Flag{
				endpointFlag(),
				&cli.StringFlag{
					Name:     "sku",
					Aliases:  []string{"s"},
					Usage:    "Product sku",
					Required: true,
				},
			},
		},
		{
			Name:   "health",
			Usage:  "Check the source, the relational store, the vector index and the embedder",
			Action: a.healthCommand,
		},
		{
			Name:   "stats",
			Usage:  "Print relational store and vector index statistics",
			Action: a.statsCommand,
		},
		{
			Name:      "search",
			Usage:     "Semantic product search",
			ArgsUsage: "<query>",
			Action:    a.searchCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"n"},
					Usage:   "Maximum number of results",
					Value:   10,
				},
				&cli.StringFlag{
					Name:  "category",
					Usage: "Only return products of this category",
				},
				&cli.Int64Flag{
					Name:  "min-stock",
					Usage: "Only return products with at least this stock",
				},
				&cli.StringFlag{
					Name:  "min-price",
					Usage: "Only return products at or above this price",
				},
				&cli.StringFlag{
					Name:  "max-price",
					Usage: "Only return products at or below this price",
				},
			},
		},
		{
			Name:   "serve",
			Usage:  "Serve the HTTP API",
			Action: a.serveCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "host",
					Usage: "Listen host; defaults to the configured host",
				},
				&cli.IntFlag{
					Name:  "port",
					Usage: "Listen port; defaults to the configured port",
				},
			},
		},
	}
}

func (a *app) fullSyncCommand(c *cli.Context) error {
	return a.withCatalog(c, func(ctx context.Context, catalog *catalogsync.Catalog) error {
		result := catalog.RunFullSync(ctx, c.String("endpoint"), c.Bool("force"))
		return a.printResult(result, result.Success)
	})
}

func (a *app) transformAndLoadCommand(c *cli.Context) error {
	var policy transform.DuplicatePolicy
	switch {
	case c.Bool("keep-duplicates") && c.IsSet("duplicates"):
		return errors.New("--keep-duplicates and --duplicates are exclusive")
	case c.Bool("keep-duplicates"):
		policy = transform.KeepAll
	case c.IsSet("duplicates"):
		var err error
		if policy, err = transform.ParseDuplicatePolicy(c.String("duplicates")); err != nil {
			return err
		}
	}

	return a.withCatalog(c, func(ctx context.Context, catalog *catalogsync.Catalog) error {
		result := catalog.RunTransformAndLoad(ctx, c.String("endpoint"), c.Bool("include-invalid"), policy)
		return a.printResult(result, result.Success)
	})
}

func (a *app) embeddingSyncCommand(c *cli.Context) error {
	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be greater than 0, got %d", batchSize)
	}
	return a.withCatalog(c, func(ctx context.Context, catalog *catalogsync.Catalog) error {
		result := catalog.RunEmbeddingSync(ctx, c.Bool("force"), batchSize)
		return a.printResult(result, result.Success)
	})
}

func (a *app) deletionSyncCommand(c *cli.Context) error {
	return a.withCatalog(c, func(ctx context.Context, catalog *catalogsync.Catalog) error {
		result := catalog.RunDeletionSync(ctx)
		return a.printResult(result, result.Success)
	})
}

func (a *app) incrementalCommand(c *cli.Context) error {
	return a.withCatalog(c, func(ctx context.Context, catalog *catalogsync.Catalog) error {
		result := catalog.RunIncremental(ctx, c.String("endpoint"))
		return a.printResult(result, result.Success)
	})
}

func (a *app) syncProductsCommand(c *cli.Context) error {
	var skus []string
	for _, sku := range c.StringSlice("sku") {
		if sku = strings.TrimSpace(sku); sku != "" {
			skus = append(skus, sku)
		}
	}
	if len(skus) == 0 {
		return errors.New("at least one --sku is required")
	}
	return a.withCatalog(c, func(ctx context.Context, catalog *catalogsync.Catalog) error {
		result := catalog.RunForProducts(ctx, skus, c.Bool("force"))
		return a.printResult(result, result.Success)
	})
}

func (a *app) syncProductCommand(c *cli.Context) error {
	return a.withCatalog(c, func(ctx context.Context, catalog *catalogsync.Catalog) error {
		result := catalog.RunSingleProduct(ctx, c.String("endpoint"), c.String("sku"))
		return a.printResult(result, result.Success)
	})
}

func (a *app) healthCommand(c *cli.Context) error {
	return a.withCatalog(c, func(ctx context.Context, catalog *catalogsync.Catalog) error {
		report := catalog.HealthCheck(ctx)
		return a.printResult(report, report.Healthy)
	})
}

func (a *app) statsCommand(c *cli.Context) error {
	return a.withCatalog(c, func(ctx context.Context, catalog *catalogsync.Catalog) error {
		stats, err := catalog.Stats(ctx)
		if err != nil {
			return err
		}
		return a.printJSON(stats)
	})
}

func (a *app) searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a search query is required")
	}
	filter, err := searchFilter(c)
	if err != nil {
		return err
	}

	return a.withCatalog(c, func(ctx context.Context, catalog *catalogsync.Catalog) error {
		results, err := catalog.Search(ctx, query, c.Int("limit"), filter)
		if err != nil {
			return err
		}
		return a.printJSON(server.NewSearchHits(results))
	})
}

func searchFilter(c *cli.Context) (*core.SearchFilter, error) {
	filter := &core.SearchFilter{Category: c.String("category")}
	set := filter.Category != ""
	if c.IsSet("min-stock") {
		minStock := c.Int64("min-stock")
		filter.MinStock = &minStock
		set = true
	}
	for _, bound := range []struct {
		flag string
		dst  **decimal.Decimal
	}{
		{"min-price", &filter.MinPrice},
		{"max-price", &filter.MaxPrice},
	} {
		if !c.IsSet(bound.flag) {
			continue
		}
		d, err := decimal.NewFromString(c.String(bound.flag))
		if err != nil {
			return nil, fmt.Errorf("invalid --%s %q: %w", bound.flag, c.String(bound.flag), err)
		}
		*bound.dst = &d
		set = true
	}
	if !set {
		return nil, nil
	}
	return filter, nil
}

func (a *app) serveCommand(c *cli.Context) error {
	cfg := a.config.Server
	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := catalogsync.Open(ctx, a.config)
	if err != nil {
		return err
	}
	defer catalog.Close()

	srv := server.New(catalog, server.Config{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
	})
	return srv.Run(ctx)
}
