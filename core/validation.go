// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"
)

// FieldError describes a problem with one field of a raw record.
type FieldError struct {
	Field          string `json:"field"`
	Message        string `json:"message"`
	OffendingValue any    `json:"offending_value,omitempty"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationOutcome is the result of validating one raw record.
// Errors block the record; warnings never do.
type ValidationOutcome struct {
	Valid    bool         `json:"is_valid"`
	Errors   []FieldError `json:"errors,omitempty"`
	Warnings []FieldError `json:"warnings,omitempty"`
}

// NewValidationOutcome returns an outcome with no findings.
func NewValidationOutcome() *ValidationOutcome {
	return &ValidationOutcome{Valid: true}
}

// AddError records a blocking finding.
func (o *ValidationOutcome) AddError(field, message string, value any) {
	o.Valid = false
	o.Errors = append(o.Errors, FieldError{Field: field, Message: message, OffendingValue: value})
}

// AddWarning records a non-blocking finding.
func (o *ValidationOutcome) AddWarning(field, message string, value any) {
	o.Warnings = append(o.Warnings, FieldError{Field: field, Message: message, OffendingValue: value})
}

// Error joins the error messages, or returns "" for a valid outcome.
func (o *ValidationOutcome) Error() string {
	if len(o.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(o.Errors))
	for i, e := range o.Errors {
		msgs[i] = e.String()
	}
	return strings.Join(msgs, "; ")
}

// ValidateProduct checks the invariants of a canonical product.
//
// Validation rules:
//   - SKU must not be empty
//   - Name must not be empty
//   - Price must be positive
//   - Stock must not be negative
//
// NOT validated:
//   - ContentHash (computed by the normalizer)
//   - ID (assigned by the store on first insert)
func ValidateProduct(p *Product) error {
	if p == nil {
		return fmt.Errorf("%w: product is nil", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrEmptySKU)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrEmptyName)
	}
	if !p.Price.IsPositive() {
		return fmt.Errorf("%w: %w: %s", ErrInvalidProduct, ErrNonPositivePrice, p.Price)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidProduct, ErrNegativeStock, p.Stock)
	}
	return nil
}
