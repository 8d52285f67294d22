package transform

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/catalogsync/core"
)

// requiredFields are checked in this order.
var requiredFields = []string{"sku", "name", "category", "price", "stock"}

// Rejected pairs a record with the outcome that rejected it.
type Rejected struct {
	Record  core.RawRecord
	Outcome *core.ValidationOutcome
}

// Validator enforces structural and semantic correctness of raw records.
type Validator struct {
	config *Config
	logger *slog.Logger
}

// NewValidator creates a validator. A nil config uses DefaultConfig.
func NewValidator(config *Config) *Validator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Validator{
		config: config,
		logger: slog.Default().With("component", "validator"),
	}
}

// Validate checks one record. It never fails; problems are reported in the outcome.
func (v *Validator) Validate(record core.RawRecord) *core.ValidationOutcome {
	outcome := core.NewValidationOutcome()

	for _, field := range requiredFields {
		value, ok := record[field]
		if !ok || value == nil {
			outcome.AddError(field, fmt.Sprintf("required field %q is missing", field), nil)
			continue
		}
		if !core.IsScalar(value) {
			outcome.AddError(field, fmt.Sprintf("invalid type for %q: got %T", field, value), value)
		}
	}
	if !outcome.Valid {
		return outcome
	}

	v.validateSKU(record["sku"], outcome)
	v.validateName(record["name"], outcome)
	v.validatePrice(record["price"], outcome)
	v.validateStock(record["stock"], outcome)
	v.validateDescription(record["description"], outcome)

	return outcome
}

func (v *Validator) validateSKU(value any, outcome *core.ValidationOutcome) {
	s, _ := core.ToString(value)
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		outcome.AddError("sku", "sku cannot be empty", value)
	case utf8.RuneCountInString(s) > v.config.MaxSKULength:
		outcome.AddError("sku", fmt.Sprintf("sku too long: %d characters (max %d)",
			utf8.RuneCountInString(s), v.config.MaxSKULength), value)
	}
}

func (v *Validator) validateName(value any, outcome *core.ValidationOutcome) {
	s, _ := core.ToString(value)
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	switch {
	case s == "":
		outcome.AddError("name", "name cannot be empty", value)
	case n > v.config.MaxNameLength:
		outcome.AddWarning("name", fmt.Sprintf("name too long: %d characters (max %d), will be truncated",
			n, v.config.MaxNameLength), nil)
	}
}

func (v *Validator) validatePrice(value any, outcome *core.ValidationOutcome) {
	price, err := ParsePrice(value)
	if err != nil {
		outcome.AddError("price", fmt.Sprintf("invalid price: %v", value), value)
		return
	}
	switch {
	case !price.IsPositive():
		outcome.AddError("price", fmt.Sprintf("price must be greater than 0: %s", price), value)
	case price.LessThan(v.config.MinPrice):
		outcome.AddWarning("price", fmt.Sprintf("price below recommended minimum %s: %s",
			v.config.MinPrice, price), value)
	}
}

func (v *Validator) validateStock(value any, outcome *core.ValidationOutcome) {
	stock, err := core.ToInt(value)
	if errors.Is(err, core.ErrNotInteger) {
		outcome.AddError("stock", fmt.Sprintf("stock must be a whole number in range: %v", value), value)
		return
	}
	if err != nil {
		outcome.AddError("stock", fmt.Sprintf("invalid stock: %v", value), value)
		return
	}
	switch {
	case stock < 0:
		outcome.AddError("stock", fmt.Sprintf("stock cannot be negative: %d", stock), value)
	case stock == 0 && v.config.RequirePositiveStock:
		outcome.AddWarning("stock", "stock is zero", value)
	}
}

func (v *Validator) validateDescription(value any, outcome *core.ValidationOutcome) {
	if value == nil {
		return
	}
	s, ok := core.ToString(value)
	if !ok {
		return
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(s)); n > v.config.MaxDescriptionLength {
		outcome.AddWarning("description", fmt.Sprintf("description too long: %d characters (max %d), will be truncated",
			n, v.config.MaxDescriptionLength), nil)
	}
}

// ValidateBatch validates every record. Rejected records are always reported;
// with skipInvalid=false they are also kept in the accepted slice so the
// caller can pass them through.
func (v *Validator) ValidateBatch(records []core.RawRecord, skipInvalid bool) (accepted []core.RawRecord, rejected []Rejected) {
	accepted = make([]core.RawRecord, 0, len(records))
	for _, record := range records {
		outcome := v.Validate(record)
		if outcome.Valid {
			accepted = append(accepted, record)
			if len(outcome.Warnings) > 0 {
				v.logger.Warn("record has warnings", "sku", skuOrUnknown(record), "warnings", len(outcome.Warnings))
			}
			continue
		}

		rejected = append(rejected, Rejected{Record: record, Outcome: outcome})
		v.logger.Debug("record rejected", "sku", skuOrUnknown(record), "errors", outcome.Error())
		if !skipInvalid {
			accepted = append(accepted, record)
		}
	}

	v.logger.Info("validation complete", "total", len(records), "accepted", len(accepted), "rejected", len(rejected))
	return accepted, rejected
}

func skuOrUnknown(record core.RawRecord) string {
	if sku := record.SKU(); sku != "" {
		return sku
	}
	return "UNKNOWN"
}
