package core

import (
	"sort"
	"strings"
)

// textAttr is one textual attribute as it appears in both the embedding
// text and the content hash.
type textAttr struct {
	key   string
	value string
}

// textualAttributes returns the attributes that carry text, sorted by key.
// Strings count, and so do lists whose string elements are joined with
// ", ". Blank values and non-string values are left out.
func textualAttributes(attrs map[string]any) []textAttr {
	out := make([]textAttr, 0, len(attrs))
	for k, v := range attrs {
		var value string
		switch v := v.(type) {
		case string:
			value = strings.TrimSpace(v)
		case []string:
			value = joinNonEmpty(v)
		case []any:
			values := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					values = append(values, s)
				}
			}
			value = joinNonEmpty(values)
		}
		if value != "" {
			out = append(out, textAttr{key: k, value: value})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// EmbeddingText builds the text sent to the embedding provider for a product.
// Price and stock are left out. The unit is mentioned only when it differs
// from defaultUnit, the unit the normalizer assigns to products without one.
// Every attribute in the text also feeds ComputeContentHash.
func EmbeddingText(p *Product, defaultUnit string) string {
	parts := []string{
		"Producto: " + p.Name,
		"Categoría: " + p.Category,
	}
	if p.Description != "" {
		parts = append(parts, "Descripción: "+p.Description)
	}
	if p.Unit != "" && p.Unit != defaultUnit {
		parts = append(parts, "Unidad: "+p.Unit)
	}

	attrs := textualAttributes(p.Attributes)
	if len(attrs) > 0 {
		pairs := make([]string, len(attrs))
		for i, a := range attrs {
			pairs[i] = a.key + ": " + a.value
		}
		parts = append(parts, "Características: "+strings.Join(pairs, "; "))
	}

	return strings.Join(parts, ". ")
}

func joinNonEmpty(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ", ")
}
