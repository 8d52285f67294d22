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
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/catalogsync"
	"github.com/poiesic/catalogsync/config"
)

var (
	configPath = flag.String("config", "", "TOML configuration file")
	limit      = flag.Int("n", 5, "number of hits")
)

func init() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

func main() {
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	catalog, err := catalogsync.Open(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer catalog.Close()

	query := "camisa de lino"
	if flag.NArg() > 0 {
		query = strings.Join(flag.Args(), " ")
	}
	results, err := catalog.Search(ctx, query, *limit, nil)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: %s '%s' (%s, %s, stock %d)[%0.3f]\n", i, hit.Record.SKU, hit.Record.Text,
			hit.Record.Category, hit.Record.Price.StringFixed(2), hit.Record.Stock, hit.Score)
	}
}
