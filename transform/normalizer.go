package transform

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/catalogsync/core"
	"github.com/shopspring/decimal"
)

// ErrMissingSKU is returned by ToProduct for records without a sku.
var ErrMissingSKU = errors.New("record has no sku")

var currencySymbols = strings.NewReplacer("$", "", "€", "", "£", "")

// Normalizer canonicalizes categories, prices and stock, resolves
// duplicate skus and builds canonical products.
type Normalizer struct {
	config *Config
	logger *slog.Logger
}

// NewNormalizer creates a normalizer. A nil config uses DefaultConfig.
func NewNormalizer(config *Config) *Normalizer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Categories == nil {
		config.Categories = DefaultCategories
	}
	return &Normalizer{
		config: config,
		logger: slog.Default().With("component", "normalizer"),
	}
}

// NormalizeCategory maps a category to its canonical bucket, falling back
// to substring matches in table order and then to the default category.
func (n *Normalizer) NormalizeCategory(value any) string {
	s, _ := core.ToString(value)
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return n.config.DefaultCategory
	}
	if category, exact, found := n.config.Categories.lookup(s); found {
		if !exact {
			n.logger.Debug("category matched by substring", "category", s, "canonical", category)
		}
		return category
	}
	n.logger.Warn("unrecognized category, using default", "category", s, "default", n.config.DefaultCategory)
	return n.config.DefaultCategory
}

// NormalizePrice parses a price, applies the multiplier and rounds half-up
// to the configured precision. Unparsable input yields zero.
func (n *Normalizer) NormalizePrice(value any) decimal.Decimal {
	price, err := ParsePrice(value)
	if err != nil {
		n.logger.Error("could not parse price", "price", value, "err", err)
		return decimal.Zero
	}
	return price.Mul(n.config.PriceMultiplier).Round(n.config.PricePrecision)
}

// ParsePrice turns a price as found in source data into a decimal.
// Currency symbols and spaces are stripped. When both ',' and '.' occur,
// whichever comes later is the decimal point and the other is a thousands
// separator. A lone ',' is a thousands separator.
func ParsePrice(value any) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, nil
	}
	s, isString := value.(string)
	if !isString {
		return core.ToDecimal(value)
	}

	s = currencySymbols.Replace(s)
	s = strings.Join(strings.Fields(s), "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	if s == "" {
		return decimal.Zero, fmt.Errorf("empty price")
	}
	return decimal.NewFromString(s)
}

// NormalizeStock coerces stock to a non-negative integer. Unparsable,
// fractional or out-of-range input yields zero.
func (n *Normalizer) NormalizeStock(value any) int64 {
	stock, err := core.ToInt(value)
	if err != nil {
		return 0
	}
	if stock < 0 {
		return 0
	}
	return stock
}

// NormalizeRecord returns a copy of record with category, price and stock
// in canonical form. Absent keys stay absent.
func (n *Normalizer) NormalizeRecord(record core.RawRecord) core.RawRecord {
	normalized := record.Clone()
	if v, ok := normalized["category"]; ok {
		normalized["category"] = n.NormalizeCategory(v)
	}
	if v, ok := normalized["price"]; ok {
		normalized["price"] = n.NormalizePrice(v)
	}
	if v, ok := normalized["stock"]; ok {
		normalized["stock"] = n.NormalizeStock(v)
	}
	return normalized
}

// Dedupe resolves repeated skus in one pass, keeping encounter order.
// Records without a sku are dropped with a warning.
func (n *Normalizer) Dedupe(records []core.RawRecord, policy DuplicatePolicy) []core.RawRecord {
	if policy == KeepAll {
		out := make([]core.RawRecord, 0, len(records))
		for _, r := range records {
			if r.SKU() == "" {
				n.logger.Warn("record without sku, ignoring")
				continue
			}
			out = append(out, r)
		}
		return out
	}

	out := make([]core.RawRecord, 0, len(records))
	position := make(map[string]int, len(records))
	duplicates := 0

	for _, r := range records {
		sku := r.SKU()
		if sku == "" {
			n.logger.Warn("record without sku, ignoring")
			continue
		}
		i, seen := position[sku]
		if !seen {
			position[sku] = len(out)
			out = append(out, r)
			continue
		}

		duplicates++
		switch policy {
		case KeepFirst:
		case Merge:
			out[i] = mergeRecords(out[i], r)
		default:
			out[i] = r
		}
	}

	if duplicates > 0 {
		n.logger.Info("resolved duplicates", "duplicates", duplicates, "policy", string(policy))
	}
	return out
}

// mergeRecords folds later into earlier: stock is summed, attributes are
// unioned with later keys winning, any other non-nil later value replaces.
func mergeRecords(earlier, later core.RawRecord) core.RawRecord {
	merged := earlier.Clone()
	for key, value := range later {
		if value == nil {
			continue
		}
		switch key {
		case "stock":
			prev, _ := core.ToInt(merged["stock"])
			add, _ := core.ToInt(value)
			merged["stock"] = prev + add
		case "attributes":
			laterAttrs, ok := value.(map[string]any)
			if !ok {
				merged[key] = value
				continue
			}
			union := make(map[string]any)
			if prevAttrs, ok := merged[key].(map[string]any); ok {
				for k, v := range prevAttrs {
					union[k] = v
				}
			}
			for k, v := range laterAttrs {
				union[k] = v
			}
			merged[key] = union
		default:
			merged[key] = value
		}
	}
	return merged
}

// ToProduct builds a canonical product from a cleaned, normalized record.
// Overlong name and description are truncated here. A record that does not
// yield a valid product, such as one with an unparsable price passed
// through validation, fails with core.ErrInvalidProduct.
func (n *Normalizer) ToProduct(record core.RawRecord) (*core.Product, error) {
	sku := record.SKU()
	if sku == "" {
		return nil, ErrMissingSKU
	}

	name, _ := core.ToString(record["name"])
	description, _ := core.ToString(record["description"])
	category, _ := core.ToString(record["category"])
	unit, _ := core.ToString(record["unit"])
	if unit == "" {
		unit = n.config.DefaultUnit
	}
	if category == "" {
		category = n.config.DefaultCategory
	}

	price, ok := record["price"].(decimal.Decimal)
	if !ok {
		price = n.NormalizePrice(record["price"])
	}
	stock, ok := record["stock"].(int64)
	if !ok {
		stock = n.NormalizeStock(record["stock"])
	}

	attrs, _ := record["attributes"].(map[string]any)
	if attrs == nil {
		attrs = map[string]any{}
	}

	p := &core.Product{
		SKU:         sku,
		Name:        truncateRunes(name, n.config.MaxNameLength),
		Description: truncateRunes(description, n.config.MaxDescriptionLength),
		Category:    category,
		Price:       price,
		Stock:       stock,
		Unit:        unit,
		Attributes:  attrs,
		RawData:     record,
	}
	if err := core.ValidateProduct(p); err != nil {
		return nil, fmt.Errorf("%s: %w", sku, err)
	}
	p.ContentHash = core.ComputeContentHash(p)
	return p, nil
}

// NormalizeBatch normalizes every record, resolves duplicates with the
// given policy and builds products in encounter order. Records that do not
// yield a valid product are left out and reported as validation errors.
func (n *Normalizer) NormalizeBatch(records []core.RawRecord, policy DuplicatePolicy) ([]*core.Product, []*core.RunError) {
	normalized := make([]core.RawRecord, len(records))
	for i, r := range records {
		normalized[i] = n.NormalizeRecord(r)
	}

	deduped := n.Dedupe(normalized, policy)

	products := make([]*core.Product, 0, len(deduped))
	var rejected []*core.RunError
	for _, r := range deduped {
		p, err := n.ToProduct(r)
		if err != nil {
			n.logger.Warn("skipping record", "err", err)
			rejected = append(rejected, core.NewRunError(core.KindValidation, err).
				WithStage("normalize").WithSKU(r.SKU()))
			continue
		}
		products = append(products, p)
	}

	n.logger.Info("normalization complete", "input", len(records), "products", len(products), "rejected", len(rejected))
	return products, rejected
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
