package transform

import (
	"testing"

	"github.com/poiesic/catalogsync/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_NormalizePrice(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"thousands comma", "$1,234.56", "1234.56"},
		{"european format", "1.234,56 €", "1234.56"},
		{"lone comma is thousands", "1,234", "1234.00"},
		{"lone dot is decimal", "12.5", "12.50"},
		{"integer", 1000, "1000.00"},
		{"float rounds half up", 2.675, "2.68"},
		{"string rounds half up", "0.125", "0.13"},
		{"spaces", "£ 1 000", "1000.00"},
		{"unparsable", "gratis", "0.00"},
		{"nil", nil, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.NormalizePrice(tt.input)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestNormalizer_NormalizePrice_Multiplier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PriceMultiplier = decimal.NewFromInt(100)
	cfg.PricePrecision = 0
	n := NewNormalizer(cfg)

	assert.Equal(t, "1999", n.NormalizePrice("19.99").String())
}

func TestNormalizer_NormalizeStock(t *testing.T) {
	n := NewNormalizer(nil)

	assert.Equal(t, int64(10), n.NormalizeStock(10))
	assert.Equal(t, int64(7), n.NormalizeStock("7"))
	assert.Equal(t, int64(12), n.NormalizeStock("12.0"))
	assert.Equal(t, int64(0), n.NormalizeStock(3.9))
	assert.Equal(t, int64(0), n.NormalizeStock("99999999999999999999"))
	assert.Equal(t, int64(0), n.NormalizeStock(-4))
	assert.Equal(t, int64(0), n.NormalizeStock("n/a"))
	assert.Equal(t, int64(0), n.NormalizeStock(nil))
}

func TestNormalizer_NormalizeCategory(t *testing.T) {
	n := NewNormalizer(nil)

	assert.Equal(t, "camisas", n.NormalizeCategory("Camisa"))
	assert.Equal(t, "zapatillas", n.NormalizeCategory("SNEAKERS"))
	assert.Equal(t, "camisas", n.NormalizeCategory("camisa oxford manga larga"))
	assert.Equal(t, "otros", n.NormalizeCategory("electrodomésticos"))
	assert.Equal(t, "otros", n.NormalizeCategory(""))
	assert.Equal(t, "otros", n.NormalizeCategory(nil))
}

func duplicates() []core.RawRecord {
	return []core.RawRecord{
		{"sku": "A", "name": "first", "stock": int64(10), "attributes": map[string]any{"color": "azul", "talla": "M"}},
		{"sku": "B", "name": "other", "stock": int64(1)},
		{"sku": "A", "name": "second", "stock": int64(20), "description": nil, "attributes": map[string]any{"color": "rojo"}},
	}
}

func TestNormalizer_Dedupe(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("keep_latest", func(t *testing.T) {
		out := n.Dedupe(duplicates(), KeepLatest)

		require.Len(t, out, 2)
		assert.Equal(t, "A", out[0].SKU())
		assert.Equal(t, "second", out[0]["name"])
		assert.Equal(t, int64(20), out[0]["stock"])
		assert.Equal(t, "B", out[1].SKU())
	})

	t.Run("keep_first", func(t *testing.T) {
		out := n.Dedupe(duplicates(), KeepFirst)

		require.Len(t, out, 2)
		assert.Equal(t, "first", out[0]["name"])
		assert.Equal(t, int64(10), out[0]["stock"])
	})

	t.Run("merge", func(t *testing.T) {
		out := n.Dedupe(duplicates(), Merge)

		require.Len(t, out, 2)
		assert.Equal(t, "second", out[0]["name"])
		assert.Equal(t, int64(30), out[0]["stock"])
		assert.Equal(t, map[string]any{"color": "rojo", "talla": "M"}, out[0]["attributes"])
	})

	t.Run("keep_all", func(t *testing.T) {
		out := n.Dedupe(duplicates(), KeepAll)
		assert.Len(t, out, 3)
	})

	t.Run("drops records without sku", func(t *testing.T) {
		out := n.Dedupe([]core.RawRecord{{"name": "x"}, {"sku": ""}, {"sku": "C"}}, KeepLatest)

		require.Len(t, out, 1)
		assert.Equal(t, "C", out[0].SKU())
	})
}

func TestNormalizer_ToProduct(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNameLength = 5
	n := NewNormalizer(cfg)

	p, err := n.ToProduct(core.RawRecord{
		"sku":      "SKU-1",
		"name":     "Camiseta",
		"category": "camisetas",
		"price":    decimal.RequireFromString("9.90"),
		"stock":    int64(3),
	})
	require.NoError(t, err)

	assert.Equal(t, "SKU-1", p.SKU)
	assert.Equal(t, "Camis", p.Name)
	assert.Equal(t, "", p.Description)
	assert.Equal(t, core.DefaultUnit, p.Unit)
	assert.Equal(t, "9.9", p.Price.String())
	assert.Equal(t, int64(3), p.Stock)
	assert.NotNil(t, p.Attributes)
	assert.Equal(t, core.ComputeContentHash(p), p.ContentHash)

	_, err = n.ToProduct(core.RawRecord{"name": "no sku"})
	assert.ErrorIs(t, err, ErrMissingSKU)
}

func TestNormalizer_NormalizeBatch(t *testing.T) {
	n := NewNormalizer(nil)
	records := []core.RawRecord{
		{"sku": "A", "name": "Camisa", "category": "Camisa", "price": "$10.50", "stock": "5"},
		{"sku": "B", "name": "Bota", "category": "boots", "price": 20, "stock": -2},
		{"sku": "A", "name": "Camisa", "category": "camisa", "price": "11", "stock": 7},
	}

	products, rejected := n.NormalizeBatch(records, KeepLatest)

	assert.Empty(t, rejected)
	require.Len(t, products, 2)
	assert.Equal(t, "A", products[0].SKU)
	assert.Equal(t, "camisas", products[0].Category)
	assert.Equal(t, "11.00", products[0].Price.StringFixed(2))
	assert.Equal(t, int64(7), products[0].Stock)
	assert.Equal(t, "B", products[1].SKU)
	assert.Equal(t, "botas", products[1].Category)
	assert.Equal(t, int64(0), products[1].Stock)
}

func TestNormalizer_RejectsInvalidProducts(t *testing.T) {
	n := NewNormalizer(nil)
	records := []core.RawRecord{
		{"sku": "OK", "name": "Camisa", "category": "camisas", "price": "10", "stock": 1},
		{"sku": "NOPRICE", "name": "Bota", "category": "botas", "price": "gratis", "stock": 1},
		{"sku": "ZERO", "name": "Falda", "category": "faldas", "price": 0, "stock": 1},
		{"sku": "NONAME", "name": "  ", "category": "faldas", "price": 5, "stock": 1},
	}

	products, rejected := n.NormalizeBatch(records, KeepFirst)

	require.Len(t, products, 1)
	assert.Equal(t, "OK", products[0].SKU)
	require.Len(t, rejected, 3)
	for i, want := range []string{"NOPRICE", "ZERO", "NONAME"} {
		assert.Equal(t, want, rejected[i].SKU)
		assert.Equal(t, core.KindValidation, rejected[i].Kind)
		assert.Equal(t, "normalize", rejected[i].Stage)
		assert.ErrorIs(t, rejected[i], core.ErrInvalidProduct)
	}
	assert.ErrorIs(t, rejected[0], core.ErrNonPositivePrice)
	assert.ErrorIs(t, rejected[2], core.ErrEmptyName)
}

func TestParseDuplicatePolicy(t *testing.T) {
	for in, want := range map[string]DuplicatePolicy{
		"keep_first":  KeepFirst,
		"keep_latest": KeepLatest,
		"keep_last":   KeepLatest,
		"merge":       Merge,
		"keep_all":    KeepAll,
	} {
		got, err := ParseDuplicatePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseDuplicatePolicy("newest")
	assert.ErrorIs(t, err, ErrUnknownDuplicatePolicy)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.PriceMultiplier = decimal.Zero
	assert.Error(t, cfg.Validate())
}
