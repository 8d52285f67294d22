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


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/catalogsync"
	"github.com/poiesic/catalogsync/config"
	"github.com/poiesic/catalogsync/ingestion"
	"github.com/urfave/cli/v2"
)

// errRunFailed is returned by commands whose run finished unsuccessfully.
// The result has already been printed.
var errRunFailed = errors.New("run finished with errors")

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		if errors.Is(err, errRunFailed) {
			os.Exit(1)
		}
		log.Fatal(err)
	}
}

// app holds the state shared by the commands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	config *config.Config
}

func newApp(stdout, stderr io.Writer) *cli.App {
	a := &app{stdout: stdout, stderr: stderr}
	return &cli.App{
		Name:      "catalogsync",
		Usage:     "Keep a product catalog in sync across the source API, the relational store and the vector index",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				EnvVars: []string{"CATALOG_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); defaults to the configured level",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json); defaults to the configured format",
			},
		},
		Before:   a.before,
		Commands: a.commands(),
	}
}

// before loads the configuration and installs the logger.
func (a *app) before(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	a.config = cfg

	levelStr := cfg.LogLevel
	if c.IsSet("log-level") {
		levelStr = c.String("log-level")
	}
	level, err := parseLevel(levelStr)
	if err != nil {
		return err
	}

	format := cfg.LogFormat
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(a.stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(a.stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
}

// withCatalog opens the catalog for the duration of fn.
func (a *app) withCatalog(c *cli.Context, fn func(ctx context.Context, catalog *catalogsync.Catalog) error) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	catalog, err := catalogsync.Open(ctx, a.config, catalogsync.WithProgress(a.stderr))
	if err != nil {
		return err
	}
	defer catalog.Close()
	return fn(ctx, catalog)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult prints a run result and turns an unsuccessful run into
// errRunFailed.
func (a *app) printResult(v any, success bool) error {
	if err := a.printJSON(v); err != nil {
		return err
	}
	if !success {
		return errRunFailed
	}
	return nil
}

func endpointFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "endpoint",
		Aliases: []string{"e"},
		Usage:   "Source API endpoint",
		Value:   ingestion.DefaultEndpoint,
	}
}
