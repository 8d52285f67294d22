package source

import (
	"context"
	"net/url"

	"github.com/poiesic/catalogsync/core"
)

// Source delivers raw product records.
type Source interface {
	// FetchPage returns one page of records. page is 1-based.
	FetchPage(ctx context.Context, endpoint string, page, limit int, params url.Values) ([]core.RawRecord, error)

	// FetchAll pages through endpoint until an empty or short page.
	FetchAll(ctx context.Context, endpoint string, params url.Values) ([]core.RawRecord, error)

	// FetchProduct returns one record, or nil when the source does not know the sku.
	FetchProduct(ctx context.Context, endpoint, sku string) (core.RawRecord, error)

	// Ping checks that the source is reachable.
	Ping(ctx context.Context) error

	Close() error
}
