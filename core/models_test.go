package core

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sampleProduct() *Product {
	return &Product{
		ID:          uuid.MustParse("2f1c7b8e-58a4-4d0f-9c0a-1b9b7f6f3e21"),
		SKU:         "SKU-001",
		Name:        "Camisa Oxford",
		Description: "Camisa de algodón",
		Category:    "camisas",
		Price:       decimal.RequireFromString("19.99"),
		Stock:       10,
		Unit:        DefaultUnit,
		Attributes: map[string]any{
			"color": "azul",
			"talla": "M",
			"peso":  0.3,
		},
	}
}

func TestComputeContentHash_Stable(t *testing.T) {
	p := sampleProduct()
	h1 := ComputeContentHash(p)
	h2 := ComputeContentHash(p)

	if h1 != h2 {
		t.Errorf("ComputeContentHash() not stable: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("ComputeContentHash() length = %d, want 64", len(h1))
	}
}

func TestComputeContentHash_IgnoresPriceAndStock(t *testing.T) {
	p := sampleProduct()
	before := ComputeContentHash(p)

	p.Price = decimal.RequireFromString("99.50")
	p.Stock = 0
	p.Attributes["peso"] = 1.5 // non-string attributes do not count either

	if after := ComputeContentHash(p); after != before {
		t.Errorf("hash changed on price/stock edit: %s vs %s", before, after)
	}
}

func TestComputeContentHash_ChangesOnContent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Product)
	}{
		{"name", func(p *Product) { p.Name = "Camisa Lino" }},
		{"description", func(p *Product) { p.Description = "Otra descripción" }},
		{"category", func(p *Product) { p.Category = "camisetas" }},
		{"string attribute value", func(p *Product) { p.Attributes["color"] = "rojo" }},
		{"new string attribute", func(p *Product) { p.Attributes["material"] = "lino" }},
		{"list attribute", func(p *Product) { p.Attributes["colores"] = []any{"rojo", "verde"} }},
		{"list attribute element", func(p *Product) { p.Attributes["tallas"] = []string{"S", "XL"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sampleProduct()
			before := ComputeContentHash(p)
			tt.mutate(p)
			if after := ComputeContentHash(p); after == before {
				t.Errorf("hash did not change after editing %s", tt.name)
			}
		})
	}
}

func TestComputeContentHash_AttributeOrderIrrelevant(t *testing.T) {
	a := sampleProduct()
	b := sampleProduct()
	b.Attributes = map[string]any{"talla": "M", "peso": 0.3, "color": "azul"}

	if ComputeContentHash(a) != ComputeContentHash(b) {
		t.Errorf("hash depends on attribute map order")
	}
}

func TestEmbeddingText_ConfiguredDefaultUnit(t *testing.T) {
	p := sampleProduct()
	p.Attributes = nil

	tests := []struct {
		name        string
		unit        string
		defaultUnit string
		wantUnit    bool
	}{
		{"matches configured default", "pieza", "pieza", false},
		{"builtin default under custom config", "unidad", "pieza", true},
		{"builtin default", "unidad", DefaultUnit, false},
		{"empty unit", "", "pieza", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.Unit = tt.unit
			got := EmbeddingText(p, tt.defaultUnit)
			if strings.Contains(got, "Unidad:") != tt.wantUnit {
				t.Errorf("EmbeddingText(%q, %q) = %s", tt.unit, tt.defaultUnit, got)
			}
		})
	}
}

// Every attribute that reaches the embedding text must also move the hash,
// otherwise a text change would be classified as metadata-only.
func TestComputeContentHash_CoversEmbeddedAttributes(t *testing.T) {
	tests := []struct {
		name   string
		before any
		after  any
	}{
		{"any list", []any{"rojo", "verde"}, []any{"rojo", "azul"}},
		{"string list", []string{"S", "M"}, []string{"S", "L"}},
		{"list grows", []any{"rojo"}, []any{"rojo", "verde"}},
		{"string to list", "rojo", []any{"rojo", "verde"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := sampleProduct()
			a.Attributes["extra"] = tt.before
			b := sampleProduct()
			b.Attributes["extra"] = tt.after

			if EmbeddingText(a, DefaultUnit) == EmbeddingText(b, DefaultUnit) {
				t.Fatalf("embedding text did not change")
			}
			if ComputeContentHash(a) == ComputeContentHash(b) {
				t.Errorf("hash did not change although the embedding text did")
			}
		})
	}
}

func TestComputeContentHash_IgnoresBlankListElements(t *testing.T) {
	a := sampleProduct()
	a.Attributes["colores"] = []any{"rojo", "", "verde", nil}
	b := sampleProduct()
	b.Attributes["colores"] = []string{"rojo", "verde"}

	if ComputeContentHash(a) != ComputeContentHash(b) {
		t.Errorf("blank list elements changed the hash")
	}
}

func TestPointID(t *testing.T) {
	id := uuid.MustParse("2f1c7b8e-58a4-4d0f-9c0a-1b9b7f6f3e21")
	if got := PointID(id); got != "product-2f1c7b8e-58a4-4d0f-9c0a-1b9b7f6f3e21" {
		t.Errorf("PointID() = %s", got)
	}
}

func TestEmbeddingText(t *testing.T) {
	p := sampleProduct()
	p.Attributes["colores"] = []any{"rojo", "", "verde"}

	got := EmbeddingText(p, DefaultUnit)
	want := "Producto: Camisa Oxford. Categoría: camisas. Descripción: Camisa de algodón. " +
		"Características: color: azul; colores: rojo, verde; talla: M"
	if got != want {
		t.Errorf("EmbeddingText() =\n%s\nwant\n%s", got, want)
	}
}

func TestEmbeddingText_UnitAndNoDescription(t *testing.T) {
	p := sampleProduct()
	p.Description = ""
	p.Unit = "kg"
	p.Attributes = nil

	got := EmbeddingText(p, DefaultUnit)
	if got != "Producto: Camisa Oxford. Categoría: camisas. Unidad: kg" {
		t.Errorf("EmbeddingText() = %s", got)
	}
	if strings.Contains(got, "19.99") {
		t.Errorf("EmbeddingText() must not include the price")
	}
}

func TestRawRecordClone(t *testing.T) {
	r := RawRecord{"sku": "a", "attributes": map[string]any{"color": "rojo"}}
	c := r.Clone()
	c["sku"] = "b"
	c["attributes"].(map[string]any)["color"] = "azul"

	if r["sku"] != "a" {
		t.Errorf("Clone() shares top-level keys")
	}
	if r["attributes"].(map[string]any)["color"] != "rojo" {
		t.Errorf("Clone() shares the attributes map")
	}
}
