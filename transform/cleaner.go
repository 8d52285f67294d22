package transform

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/poiesic/catalogsync/core"
	"golang.org/x/text/unicode/norm"
)

var (
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s\-.,;:()"'áéíóúñÁÉÍÓÚÑüÜ/&%$#@!¿?¡]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	skuDisallowed   = regexp.MustCompile(`[^\p{L}\p{N}_\-]`)
)

// Cleaner normalizes textual fields and codes of raw records.
// It never drops a record.
type Cleaner struct {
	units       *Table
	defaultUnit string
	logger      *slog.Logger
}

// NewCleaner creates a cleaner. A nil config uses DefaultConfig.
func NewCleaner(config *Config) *Cleaner {
	if config == nil {
		config = DefaultConfig()
	}
	units := config.Units
	if units == nil {
		units = DefaultUnits
	}
	return &Cleaner{
		units:       units,
		defaultUnit: config.DefaultUnit,
		logger:      slog.Default().With("component", "cleaner"),
	}
}

// CleanText trims, NFKC-normalizes, strips characters outside the allow-list
// and collapses whitespace. ok is false when nothing is left.
func (c *Cleaner) CleanText(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	s, ok := core.ToString(value)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	s = norm.NFKC.String(s)
	s = disallowedChars.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return s, s != ""
}

// CleanUnit maps a unit spelling to its canonical form. Unknown units are
// passed through lower-cased; absent units become the default unit.
func (c *Cleaner) CleanUnit(value any) string {
	if value == nil {
		return c.defaultUnit
	}
	s, ok := core.ToString(value)
	if !ok {
		return c.defaultUnit
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return c.defaultUnit
	}
	if unit, _, found := c.units.lookup(s); found {
		return unit
	}
	c.logger.Warn("unrecognized unit, keeping original", "unit", s)
	return s
}

// CleanSKU upper-cases and keeps only letters, digits, hyphen and underscore.
// ok is false when nothing is left.
func (c *Cleaner) CleanSKU(value any) (string, bool) {
	s, ok := core.ToString(value)
	if !ok {
		return "", false
	}
	s = skuDisallowed.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
	return s, s != ""
}

// CleanAttributes cleans keys and string values. Entries whose key or value
// cleans to empty are dropped; non-string values pass through.
func (c *Cleaner) CleanAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for key, value := range attrs {
		cleanKey, ok := c.CleanText(key)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if cleaned, ok := c.CleanText(v); ok {
				out[cleanKey] = cleaned
			}
		case []any:
			out[cleanKey] = c.cleanList(v)
		case []string:
			items := make([]any, len(v))
			for i, s := range v {
				items[i] = s
			}
			out[cleanKey] = c.cleanList(items)
		default:
			out[cleanKey] = value
		}
	}
	return out
}

func (c *Cleaner) cleanList(items []any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if cleaned, ok := c.CleanText(s); ok {
				out = append(out, cleaned)
			}
			continue
		}
		out = append(out, item)
	}
	return out
}

// CleanRecord returns a cleaned copy of record. Keys that are absent stay absent.
func (c *Cleaner) CleanRecord(record core.RawRecord) core.RawRecord {
	cleaned := record.Clone()

	if v, ok := cleaned["name"]; ok {
		name, _ := c.CleanText(v)
		cleaned["name"] = name
	}
	if v, ok := cleaned["description"]; ok {
		if desc, ok := c.CleanText(v); ok {
			cleaned["description"] = desc
		} else {
			cleaned["description"] = nil
		}
	}
	if v, ok := cleaned["category"]; ok {
		category, _ := c.CleanText(v)
		cleaned["category"] = category
	}
	if v, ok := cleaned["sku"]; ok {
		if sku, ok := c.CleanSKU(v); ok {
			cleaned["sku"] = sku
		}
	}
	if v, ok := cleaned["unit"]; ok {
		cleaned["unit"] = c.CleanUnit(v)
	}
	if attrs, ok := cleaned["attributes"].(map[string]any); ok {
		cleaned["attributes"] = c.CleanAttributes(attrs)
	}

	return cleaned
}

// CleanBatch cleans every record in order.
func (c *Cleaner) CleanBatch(records []core.RawRecord) []core.RawRecord {
	out := make([]core.RawRecord, len(records))
	for i, r := range records {
		out[i] = c.CleanRecord(r)
	}
	c.logger.Info("cleaning complete", "count", len(out))
	return out
}
