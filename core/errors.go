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
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// MaxRunErrors bounds the error list attached to a run result.
const MaxRunErrors = 100

var (
	// ErrInvalidProduct indicates a Product failed validation.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrEmptySKU indicates the SKU field is empty.
	ErrEmptySKU = errors.New("sku cannot be empty")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNonPositivePrice indicates the price is zero or negative.
	ErrNonPositivePrice = errors.New("price must be positive")

	// ErrNegativeStock indicates the stock is negative.
	ErrNegativeStock = errors.New("stock cannot be negative")

	// ErrNotInteger is returned by ToInt for fractional or out-of-range values.
	ErrNotInteger = errors.New("not an integer")

	// ErrTransientIO marks timeouts and connection failures. These are retried.
	ErrTransientIO = errors.New("transient I/O failure")

	// ErrUpstreamResponse marks a non-2xx answer from an external capability.
	ErrUpstreamResponse = errors.New("upstream response error")
)

// ErrKind is the run error taxonomy.
type ErrKind int

const (
	KindUnexpected ErrKind = iota
	KindTransientIO
	KindUpstreamResponse
	KindValidation
	KindLoad
)

func (k ErrKind) String() string {
	switch k {
	case KindTransientIO:
		return "TransientIOError"
	case KindUpstreamResponse:
		return "UpstreamResponseError"
	case KindValidation:
		return "ValidationError"
	case KindLoad:
		return "LoadError"
	default:
		return "UnexpectedError"
	}
}

// MarshalText renders the kind by name in JSON results.
func (k ErrKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name. Unknown names become KindUnexpected.
func (k *ErrKind) UnmarshalText(text []byte) error {
	*k = KindUnexpected
	for _, kind := range []ErrKind{KindTransientIO, KindUpstreamResponse, KindValidation, KindLoad} {
		if kind.String() == string(text) {
			*k = kind
		}
	}
	return nil
}

// RunError is one entry in a run result's error list.
type RunError struct {
	Kind    ErrKind `json:"kind"`
	Stage   string  `json:"stage,omitempty"`
	SKU     string  `json:"sku,omitempty"`
	Field   string  `json:"field,omitempty"`
	Message string  `json:"message"`
	Err     error   `json:"-"`
}

// NewRunError builds a RunError of the given kind from err.
func NewRunError(kind ErrKind, err error) *RunError {
	re := &RunError{Kind: kind, Err: err}
	if err != nil {
		re.Message = err.Error()
	}
	return re
}

// NewRunErrorf builds a RunError with a formatted message and no cause.
func NewRunErrorf(kind ErrKind, format string, args ...any) *RunError {
	return &RunError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithStage sets the pipeline stage the error happened in.
func (e *RunError) WithStage(stage string) *RunError {
	e.Stage = stage
	return e
}

// WithSKU sets the product the error belongs to.
func (e *RunError) WithSKU(sku string) *RunError {
	e.SKU = sku
	return e
}

// WithField sets the record field the error belongs to.
func (e *RunError) WithField(field string) *RunError {
	e.Field = field
	return e
}

func (e *RunError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Stage != "" {
		b.WriteString(" [" + e.Stage + "]")
	}
	if e.SKU != "" {
		b.WriteString(" sku=" + e.SKU)
	}
	if e.Field != "" {
		b.WriteString(" field=" + e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ErrorList collects run errors up to MaxRunErrors and counts the overflow.
type ErrorList struct {
	Errors  []RunError `json:"errors"`
	Dropped int        `json:"dropped_errors,omitempty"`
}

// Add appends e, or counts it as dropped when the list is full.
func (l *ErrorList) Add(e *RunError) {
	if e == nil {
		return
	}
	if len(l.Errors) >= MaxRunErrors {
		l.Dropped++
		return
	}
	l.Errors = append(l.Errors, *e)
}

// Len returns the number of errors seen, including dropped ones.
func (l *ErrorList) Len() int {
	return len(l.Errors) + l.Dropped
}

// Empty reports whether no error was recorded.
func (l *ErrorList) Empty() bool {
	return l.Len() == 0
}

// Classify maps an arbitrary error into the run taxonomy.
func Classify(err error) ErrKind {
	if err == nil {
		return KindUnexpected
	}
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind
	}
	switch {
	case errors.Is(err, ErrTransientIO):
		return KindTransientIO
	case errors.Is(err, ErrUpstreamResponse):
		return KindUpstreamResponse
	case errors.Is(err, ErrInvalidProduct):
		return KindValidation
	}
	if IsTransient(err) {
		return KindTransientIO
	}
	return KindUnexpected
}

// IsTransient reports whether err is a timeout or connection-level failure.
// Cancellation of the caller's context is not transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTransientIO) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "unexpected EOF")
}

// PanicError converts a value recovered from a panic into an unexpected run error.
func PanicError(stage string, recovered any) *RunError {
	return NewRunErrorf(KindUnexpected, "panic: %v", recovered).WithStage(stage)
}
