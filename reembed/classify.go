package reembed

import "github.com/poiesic/catalogsync/core"

// Classification splits products by the work they need in the vector index.
// Every classified product is in exactly one of the two lists.
type Classification struct {
	NeedsEmbedding []*core.Product
	MetadataOnly   []*core.Product
}

// Classify compares each product's content hash with the hash stored in
// the index for its sku. A product needs an embedding when regeneration is
// forced, when the index has no entry for it, or when the hashes differ.
// Otherwise only its price and stock may have changed.
func Classify(products []*core.Product, existing map[string]string, forceRegenerate bool) Classification {
	var c Classification
	for _, p := range products {
		stored, ok := existing[p.SKU]
		switch {
		case forceRegenerate, !ok:
			c.NeedsEmbedding = append(c.NeedsEmbedding, p)
		case stored != core.ComputeContentHash(p):
			c.NeedsEmbedding = append(c.NeedsEmbedding, p)
		default:
			c.MetadataOnly = append(c.MetadataOnly, p)
		}
	}
	return c
}
