package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const fixture = `[
  {"sku": "CAM-1", "name": "Camisa de lino", "category": "camisas", "price": "39.90", "stock": 12},
  {"sku": "CAM-2", "name": "Camisa oxford", "category": "camisas", "price": "49.90", "stock": 0},
  {"sku": "BOT-1", "name": "Bota de cuero", "category": "botas", "price": "120", "stock": 3}
]`

// writeConfig lays out a config file backed by a sqlite file, an on-disk
// index and the mock embedder, reading products from a fixture file.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	products := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(products, []byte(fixture), 0o600))

	path := filepath.Join(dir, "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
log_level = "error"

[source]
file = %q

[database]
driver = "sqlite"
path = %q

[index]
path = %q

[embedding]
provider = "mock"
dimensions = 8
chunk_delay = "0s"
`, products, filepath.Join(dir, "catalog.db"), filepath.Join(dir, "index"))), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(append([]string{"catalogsync"}, args...))
	return stdout.String(), err
}

func findCommand(t *testing.T, name string) *cli.Command {
	t.Helper()
	for _, cmd := range newApp(&bytes.Buffer{}, &bytes.Buffer{}).Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestCommandAliases(t *testing.T) {
	tests := []struct {
		name  string
		alias string
	}{
		{"transform-and-load", "api-to-postgres"},
		{"embedding-sync", "postgres-to-qdrant"},
		{"deletion-sync", "sync-deletions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, findCommand(t, tt.name).Aliases, tt.alias)
		})
	}
}

func TestCommandFlagDefaults(t *testing.T) {
	t.Run("endpoint defaults to /products", func(t *testing.T) {
		for _, name := range []string{"full-sync", "transform-and-load", "incremental", "sync-product"} {
			var endpoint *cli.StringFlag
			for _, flag := range findCommand(t, name).Flags {
				if f, ok := flag.(*cli.StringFlag); ok && f.Name == "endpoint" {
					endpoint = f
				}
			}
			require.NotNil(t, endpoint, name)
			assert.Equal(t, "/products", endpoint.Value, name)
		}
	})

	t.Run("batch-size defaults to 50", func(t *testing.T) {
		var batch *cli.IntFlag
		for _, flag := range findCommand(t, "embedding-sync").Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "batch-size" {
				batch = f
			}
		}
		require.NotNil(t, batch)
		assert.Equal(t, 50, batch.Value)
	})

	t.Run("sku is required", func(t *testing.T) {
		_, err := run(t, "--config", writeConfig(t), "sync-products")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sku")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		level, err := parseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, level)
	}
}

func TestBefore_Errors(t *testing.T) {
	config := writeConfig(t)

	_, err := run(t, "--config", config, "--log-level", "loud", "stats")
	assert.ErrorContains(t, err, "invalid log level")

	_, err = run(t, "--config", config, "--log-format", "xml", "stats")
	assert.ErrorContains(t, err, "invalid log format")

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "stats")
	assert.ErrorContains(t, err, "config:")
}

func TestApp_SyncStatsSearch(t *testing.T) {
	config := writeConfig(t)

	out, err := run(t, "--config", config, "full-sync")
	require.NoError(t, err)
	var full struct {
		Success          bool `json:"success"`
		TransformAndLoad struct {
			Inserted int `json:"inserted"`
		} `json:"transform_and_load"`
		EmbeddingSync struct {
			EmbeddingsUpserted int `json:"embeddings_upserted"`
		} `json:"embedding_sync"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &full))
	assert.True(t, full.Success)
	assert.Equal(t, 3, full.TransformAndLoad.Inserted)
	assert.Equal(t, 3, full.EmbeddingSync.EmbeddingsUpserted)

	out, err = run(t, "--config", config, "stats")
	require.NoError(t, err)
	var stats struct {
		Relational struct {
			TotalProducts int64 `json:"total_products"`
		} `json:"relational"`
		Index struct {
			PointsCount int64 `json:"points_count"`
		} `json:"index"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(3), stats.Relational.TotalProducts)
	assert.Equal(t, int64(3), stats.Index.PointsCount)

	out, err = run(t, "--config", config, "search", "--category", "camisas", "--min-stock", "1", "camisa", "de", "lino")
	require.NoError(t, err)
	var hits []struct {
		SKU string `json:"sku"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "CAM-1", hits[0].SKU)

	out, err = run(t, "--config", config, "postgres-to-qdrant", "--batch-size", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"embeddings_generated": 0`)
}

func TestApp_FailedRunExitsWithError(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t), "sync-product", "--sku", "NOPE")
	assert.ErrorIs(t, err, errRunFailed)
	assert.Contains(t, out, `"success": false`)
}

func TestApp_ArgumentErrors(t *testing.T) {
	config := writeConfig(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"exclusive duplicate flags", []string{"transform-and-load", "--keep-duplicates", "--duplicates", "merge"}, "exclusive"},
		{"unknown policy", []string{"api-to-postgres", "--duplicates", "newest"}, "duplicate policy"},
		{"zero batch", []string{"embedding-sync", "--batch-size", "0"}, "batch size"},
		{"empty query", []string{"search"}, "query"},
		{"bad price", []string{"search", "--min-price", "cheap", "bota"}, "--min-price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--config", config}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
