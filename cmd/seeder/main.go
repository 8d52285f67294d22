package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/poiesic/catalogsync"
	"github.com/poiesic/catalogsync/config"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/ingestion"
)

type garment struct {
	name       string
	category   string
	materials  []string
	minPrice   int
	maxPrice   int
	attributes map[string]any
}

var garments = []garment{
	{"Camisa", "camisas", []string{"lino", "algodón", "oxford", "seda"}, 25, 90, map[string]any{"manga": "larga"}},
	{"Camiseta", "Camisetas", []string{"algodón", "poliéster"}, 9, 35, nil},
	{"Pantalón", "pantalon", []string{"chino", "vaquero", "lino"}, 30, 110, map[string]any{"corte": "recto"}},
	{"Falda", "faldas", []string{"plisada", "vaquera", "de tubo"}, 20, 70, nil},
	{"Vestido", "Vestidos", []string{"de fiesta", "de verano", "camisero"}, 35, 180, nil},
	{"Chaqueta", "chaquetas", []string{"de cuero", "vaquera", "acolchada"}, 60, 250, map[string]any{"forro": true}},
	{"Bota", "BOTAS", []string{"de cuero", "de agua", "chelsea"}, 50, 220, nil},
	{"Zapatilla", "zapatillas", []string{"de running", "de lona", "urbana"}, 30, 140, nil},
	{"Bolso", "bolsos", []string{"de piel", "bandolera", "tote"}, 25, 300, nil},
	{"Cinturón", "accesorios", []string{"de piel", "trenzado"}, 12, 60, nil},
}

var (
	colors = []string{"azul", "negro", "blanco", "rojo", "verde", "marrón", "gris", "beige"}
	sizes  = []string{"XS", "S", "M", "L", "XL"}
	units  = []string{"unidad", "Pieza", "par", "uds", ""}
)

var (
	outFile    = flag.String("out", "products.json", "fixture file to write")
	count      = flag.Int("n", 200, "number of products")
	seed       = flag.Uint64("seed", 1, "random seed")
	dirtyRatio = flag.Float64("dirty", 0.1, "share of records with invalid or messy fields")
	load       = flag.Bool("load", false, "load the fixture into the configured catalog")
	embed      = flag.Bool("embed", false, "run an embedding sync after loading")
	configPath = flag.String("config", "", "TOML configuration file")
	batchSize  = flag.Int("batch", 50, "records per load batch")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// products yields n synthetic raw records. Some records carry the kind of
// noise real catalogs have: padded text, localized prices, string stocks,
// duplicate skus and missing fields.
func products(r *rand.Rand, n int, dirty float64) iter.Seq[core.RawRecord] {
	return func(yield func(core.RawRecord) bool) {
		for i := range n {
			g := garments[r.IntN(len(garments))]
			material := g.materials[r.IntN(len(g.materials))]
			color := colors[r.IntN(len(colors))]
			cents := (g.minPrice + r.IntN(g.maxPrice-g.minPrice+1)) * 100
			cents += []int{0, 50, 90, 95}[r.IntN(4)]

			attributes := map[string]any{"color": color, "talla": sizes[r.IntN(len(sizes))]}
			for k, v := range g.attributes {
				attributes[k] = v
			}
			record := core.RawRecord{
				"sku":         fmt.Sprintf("%s-%05d", strings.ToUpper(g.name[:3]), i+1),
				"name":        fmt.Sprintf("%s %s %s", g.name, material, color),
				"description": fmt.Sprintf("%s %s en color %s.", g.name, material, color),
				"category":    g.category,
				"price":       fmt.Sprintf("%d.%02d", cents/100, cents%100),
				"stock":       r.IntN(40),
				"unit":        units[r.IntN(len(units))],
				"attributes":  attributes,
			}
			if r.Float64() < dirty {
				mess(r, record, i)
			}
			if !yield(record) {
				return
			}
		}
	}
}

func mess(r *rand.Rand, record core.RawRecord, i int) {
	switch r.IntN(7) {
	case 0:
		record["name"] = "   " + strings.ToUpper(record["name"].(string)) + "  ™ "
	case 1:
		record["price"] = strings.Replace(record["price"].(string), ".", ",", 1)
	case 2:
		record["stock"] = fmt.Sprint(record["stock"])
	case 3:
		record["sku"] = fmt.Sprintf("DUP-%05d", i%5)
	case 4:
		delete(record, "category")
	case 5:
		record["price"] = "-1"
	case 6:
		record["stock"] = "muchos"
	}
}

func writeFixture(path string, records iter.Seq[core.RawRecord]) ([]core.RawRecord, error) {
	var all []core.RawRecord
	for record := range records {
		all = append(all, record)
	}
	data, err := json.MarshalIndent(map[string]any{"data": all}, "", "  ")
	if err != nil {
		return nil, err
	}
	return all, os.WriteFile(path, data, 0o644)
}

// loadBatched loads records through the pipeline in batches.
func loadBatched(ctx context.Context, pipeline *ingestion.Pipeline, records []core.RawRecord, batchSize int) error {
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		result := pipeline.RunRecords(ctx, records[start:end], ingestion.RunOptions{})
		slog.Info("loaded batch", "from", start, "to", end,
			"inserted", result.Inserted, "updated", result.Updated, "rejected", result.Rejected)
		if !result.Success && len(result.Errors) > 0 {
			return fmt.Errorf("batch %d-%d: %d errors, first: %s", start, end, result.Len(), result.Errors[0].Message)
		}
	}
	return nil
}

func main() {
	r := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	records, err := writeFixture(*outFile, products(r, *count, *dirtyRatio))
	if err != nil {
		panic(err)
	}
	slog.Info("wrote fixture", "path", *outFile, "records", len(records))

	if !*load {
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	// Load from the fixture regardless of the configured source.
	cfg.Source.BaseURL = ""
	cfg.Source.File = *outFile

	ctx := context.Background()
	catalog, err := catalogsync.Open(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer catalog.Close()

	if err := loadBatched(ctx, catalog.Pipeline(), records, *batchSize); err != nil {
		panic(err)
	}

	if *embed {
		result := catalog.RunEmbeddingSync(ctx, false, 0)
		slog.Info("embedding sync finished", "success", result.Success,
			"generated", result.EmbeddingsGenerated, "metadata_only", result.MetadataOnlyUpdates)
	}
}
