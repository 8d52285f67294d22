package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/poiesic/catalogsync/core"
)

// listKeys are the object keys searched for a product list, in order.
var listKeys = []string{"data", "products", "items", "results"}

// decodeJSON decodes body keeping numbers as json.Number so prices keep
// their exact digits.
func decodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return body, nil
}

// Unwrap extracts the record list from a decoded response. A bare list is
// returned as is. An object yields the first list found under one of the
// known keys; failing that, an object carrying "id" or "sku" is a single
// record. Anything else yields no records. Non-object list elements are
// skipped.
func Unwrap(body any) []core.RawRecord {
	switch v := body.(type) {
	case []any:
		return toRecords(v)
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				return toRecords(list)
			}
		}
		_, hasID := v["id"]
		_, hasSKU := v["sku"]
		if hasID || hasSKU {
			return []core.RawRecord{core.RawRecord(v)}
		}
	}
	return nil
}

// UnwrapBytes decodes and unwraps a raw JSON document.
func UnwrapBytes(data []byte) ([]core.RawRecord, error) {
	body, err := decodeJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return Unwrap(body), nil
}

func toRecords(list []any) []core.RawRecord {
	out := make([]core.RawRecord, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, core.RawRecord(m))
		}
	}
	return out
}
