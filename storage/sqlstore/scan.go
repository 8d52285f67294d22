package sqlstore

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/catalogsync/core"
	"github.com/shopspring/decimal"
)

// productRow is the column projection of a product.
type productRow struct {
	ID          uuid.UUID       `db:"id"`
	SKU         string          `db:"sku"`
	Name        string          `db:"name"`
	Description sql.NullString  `db:"description"`
	Category    string          `db:"category"`
	Price       decimal.Decimal `db:"price"`
	Stock       int64           `db:"stock"`
	Unit        string          `db:"unit"`
	Attributes  jsonMap         `db:"attributes"`
	RawData     jsonMap         `db:"raw_data"`
	TextHash    sql.NullString  `db:"text_hash"`
	CreatedAt   dbTime          `db:"created_at"`
	UpdatedAt   dbTime          `db:"updated_at"`
}

func (r *productRow) product() *core.Product {
	attrs := map[string]any(r.Attributes)
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &core.Product{
		ID:          r.ID,
		SKU:         r.SKU,
		Name:        r.Name,
		Description: r.Description.String,
		Category:    r.Category,
		Price:       r.Price,
		Stock:       r.Stock,
		Unit:        r.Unit,
		Attributes:  attrs,
		RawData:     core.RawRecord(r.RawData),
		ContentHash: r.TextHash.String,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

// jsonMap stores a JSON object column. Drivers hand JSON back as
// either string or []byte.
type jsonMap map[string]any

func (m jsonMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *jsonMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into a JSON object", src)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// dbTime accepts the time representations of both drivers: Postgres
// returns time.Time, SQLite may return the stored text.
type dbTime struct {
	time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("cannot scan %T into a timestamp", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
