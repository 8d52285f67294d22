package ingestion

import "errors"

var (
	// ErrSourceRequired is returned when a record source is not provided.
	ErrSourceRequired = errors.New("record source required")

	// ErrStoreRequired is returned when a product store is not provided.
	ErrStoreRequired = errors.New("product store required")

	// ErrProductNotFound is recorded when the source does not know a requested sku.
	ErrProductNotFound = errors.New("product not found in source")
)
