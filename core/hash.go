package core

import (
	"encoding/hex"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ComputeContentHash fingerprints the semantically relevant fields of a product:
// name, description, category and textual attributes sorted by key, list
// values joined the way EmbeddingText joins them. Price and stock never
// contribute.
func ComputeContentHash(p *Product) string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte('|')
	b.WriteString(p.Description)
	b.WriteByte('|')
	b.WriteString(p.Category)

	for _, a := range textualAttributes(p.Attributes) {
		b.WriteByte('|')
		b.WriteString(a.key)
		b.WriteByte(':')
		b.WriteString(a.value)
	}

	h, _ := blake2b.New(32, nil) // 32 bytes = 64 hex chars
	h.Write([]byte(b.String()))
	return hex.EncodeToString(h.Sum(nil))
}
