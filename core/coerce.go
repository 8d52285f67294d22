package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ToString coerces scalar values to a string. Maps, slices, booleans
// and nil are rejected.
func ToString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case decimal.Decimal:
		return val.String(), true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint32:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}

// IsScalar reports whether v is numeric-like or a string.
func IsScalar(v any) bool {
	_, ok := ToString(v)
	return ok
}

// ToDecimal coerces numeric-like values to a decimal. Strings are parsed
// as plain decimal literals after trimming.
func ToDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero, fmt.Errorf("not a finite number: %v", val)
		}
		return decimal.NewFromFloat(val), nil
	case float32:
		return decimal.NewFromFloat32(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int32:
		return decimal.NewFromInt32(val), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(val))
	}
	if s, ok := ToString(v); ok {
		return decimal.NewFromString(s)
	}
	return decimal.Zero, fmt.Errorf("cannot convert %T to a number", v)
}

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// ToInt coerces numeric-like values to an int64. Values with a fractional
// part or outside the int64 range fail with ErrNotInteger; "12.0" is 12.
func ToInt(v any) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		return floatToInt(val)
	case float32:
		return floatToInt(float64(val))
	case string:
		s := strings.TrimSpace(val)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, err
		}
		return decimalToInt(d)
	}
	d, err := ToDecimal(v)
	if err != nil {
		return 0, err
	}
	return decimalToInt(d)
}

func floatToInt(f float64) (int64, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, fmt.Errorf("not a finite number: %v", f)
	case f != math.Trunc(f):
		return 0, fmt.Errorf("%w: %v", ErrNotInteger, f)
	case f < math.MinInt64 || f >= math.MaxInt64:
		return 0, fmt.Errorf("%w: %v out of range", ErrNotInteger, f)
	}
	return int64(f), nil
}

func decimalToInt(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrNotInteger, d)
	}
	if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
		return 0, fmt.Errorf("%w: %s out of range", ErrNotInteger, d)
	}
	return d.IntPart(), nil
}
