package reembed

import (
	"testing"

	"github.com/poiesic/catalogsync/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	unchanged := newProduct("SKU-A", "Taladro", "120.00", 4)
	priceOnly := newProduct("SKU-B", "Sierra", "80.00", 2)
	renamed := newProduct("SKU-C", "Lija", "5.00", 100)
	fresh := newProduct("SKU-D", "Brocha", "12.00", 9)

	existing := map[string]string{
		"SKU-A": core.ComputeContentHash(unchanged),
		"SKU-B": core.ComputeContentHash(priceOnly),
		"SKU-C": core.ComputeContentHash(renamed),
	}
	priceOnly.Price = decimal.RequireFromString("75.00")
	priceOnly.Stock = 0
	renamed.Name = "Lija fina"

	products := []*core.Product{unchanged, priceOnly, renamed, fresh}

	tests := []struct {
		name          string
		force         bool
		wantEmbedding []string
		wantMetadata  []string
	}{
		{
			name:          "by content hash",
			wantEmbedding: []string{"SKU-C", "SKU-D"},
			wantMetadata:  []string{"SKU-A", "SKU-B"},
		},
		{
			name:          "forced",
			force:         true,
			wantEmbedding: []string{"SKU-A", "SKU-B", "SKU-C", "SKU-D"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(products, existing, tt.force)
			assert.Equal(t, tt.wantEmbedding, skus(c.NeedsEmbedding))
			assert.Equal(t, tt.wantMetadata, skus(c.MetadataOnly))
			assert.Equal(t, len(products), len(c.NeedsEmbedding)+len(c.MetadataOnly))
		})
	}
}

// An edit that changes the embedding text must never be classified as
// metadata-only, whatever the attribute's shape.
func TestClassify_ListAttributeEdit(t *testing.T) {
	tests := []struct {
		name   string
		before any
		after  any
	}{
		{"any list", []any{"rojo", "verde"}, []any{"rojo", "azul"}},
		{"string list", []string{"M", "L"}, []string{"M", "XL"}},
		{"element added", []any{"rojo"}, []any{"rojo", "negro"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProduct("SKU-L", "Guante", "8.00", 12)
			p.Attributes["colores"] = tt.before
			existing := map[string]string{"SKU-L": core.ComputeContentHash(p)}
			textBefore := core.EmbeddingText(p, core.DefaultUnit)

			p.Attributes["colores"] = tt.after
			assert.NotEqual(t, textBefore, core.EmbeddingText(p, core.DefaultUnit))

			c := Classify([]*core.Product{p}, existing, false)
			assert.Equal(t, []string{"SKU-L"}, skus(c.NeedsEmbedding))
			assert.Empty(t, c.MetadataOnly)
		})
	}
}

func TestClassify_EmptyIndex(t *testing.T) {
	c := Classify([]*core.Product{newProduct("SKU-1", "Clavo", "0.10", 1000)}, map[string]string{}, false)
	assert.Len(t, c.NeedsEmbedding, 1)
	assert.Empty(t, c.MetadataOnly)
}

func skus(products []*core.Product) []string {
	if len(products) == 0 {
		return nil
	}
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.SKU
	}
	return out
}
