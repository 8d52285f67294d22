package transform

import (
	"errors"
	"fmt"

	"github.com/poiesic/catalogsync/core"
	"github.com/shopspring/decimal"
)

// DuplicatePolicy decides what happens when a sku shows up more than once in a batch.
type DuplicatePolicy string

const (
	KeepFirst  DuplicatePolicy = "keep_first"
	KeepLatest DuplicatePolicy = "keep_latest"
	Merge      DuplicatePolicy = "merge"
	// KeepAll disables duplicate resolution. The store's upsert then lets the last row win.
	KeepAll DuplicatePolicy = "keep_all"
)

// ErrUnknownDuplicatePolicy is returned by ParseDuplicatePolicy.
var ErrUnknownDuplicatePolicy = errors.New("unknown duplicate policy")

// ParseDuplicatePolicy accepts the policy names plus "keep_last" as an alias of keep_latest.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case string(KeepFirst):
		return KeepFirst, nil
	case string(KeepLatest), "keep_last", "":
		return KeepLatest, nil
	case string(Merge):
		return Merge, nil
	case string(KeepAll), "none":
		return KeepAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDuplicatePolicy, s)
}

// Config holds the thresholds and tables used by the transform stages.
type Config struct {
	// MinPrice is the lowest price accepted without a warning.
	MinPrice decimal.Decimal

	// MaxSKULength is the longest sku accepted. Longer skus are errors.
	MaxSKULength int

	// MaxNameLength and MaxDescriptionLength only produce warnings.
	MaxNameLength        int
	MaxDescriptionLength int

	// RequirePositiveStock turns a zero stock into a warning.
	RequirePositiveStock bool

	// PriceMultiplier is applied after parsing (e.g. 100 for cents).
	PriceMultiplier decimal.Decimal

	// PricePrecision is the number of decimals kept after half-up rounding.
	PricePrecision int32

	DefaultCategory string
	DefaultUnit     string
	DuplicatePolicy DuplicatePolicy

	Categories *Table
	Units      *Table
}

// DefaultConfig returns a Config with the catalog defaults.
func DefaultConfig() *Config {
	return &Config{
		MinPrice:             decimal.RequireFromString("0.01"),
		MaxSKULength:         100,
		MaxNameLength:        500,
		MaxDescriptionLength: 5000,
		PriceMultiplier:      decimal.NewFromInt(1),
		PricePrecision:       2,
		DefaultCategory:      "otros",
		DefaultUnit:          core.DefaultUnit,
		DuplicatePolicy:      KeepLatest,
		Categories:           DefaultCategories,
		Units:                DefaultUnits,
	}
}

// Validate checks the configuration. Missing tables are filled with the defaults.
func (c *Config) Validate() error {
	if c.Categories == nil {
		c.Categories = DefaultCategories
	}
	if c.Units == nil {
		c.Units = DefaultUnits
	}
	if c.MaxSKULength <= 0 {
		return errors.New("transform config: MaxSKULength must be greater than 0")
	}
	if c.MaxNameLength <= 0 || c.MaxDescriptionLength <= 0 {
		return errors.New("transform config: length limits must be greater than 0")
	}
	if c.PricePrecision < 0 {
		return errors.New("transform config: PricePrecision cannot be negative")
	}
	if !c.PriceMultiplier.IsPositive() {
		return errors.New("transform config: PriceMultiplier must be positive")
	}
	if c.DefaultCategory == "" {
		return errors.New("transform config: DefaultCategory is required")
	}
	if c.DefaultUnit == "" {
		return errors.New("transform config: DefaultUnit is required")
	}
	if _, err := ParseDuplicatePolicy(string(c.DuplicatePolicy)); err != nil {
		return fmt.Errorf("transform config: %w", err)
	}
	return nil
}
