package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/poiesic/catalogsync/core"
)

// FileSource serves records from a JSON document on disk. The document
// may take any shape Unwrap accepts. The endpoint argument is ignored;
// params are ignored too, so incremental runs see every record.
type FileSource struct {
	path   string
	logger *slog.Logger
}

var _ Source = (*FileSource)(nil)

// NewFileSource returns a source reading path on every fetch.
func NewFileSource(path string) *FileSource {
	return &FileSource{
		path:   path,
		logger: slog.Default().With("component", "file-source", "path", path),
	}
}

func (f *FileSource) load() ([]core.RawRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return UnwrapBytes(data)
}

// FetchPage slices the document into pages.
func (f *FileSource) FetchPage(ctx context.Context, _ string, page, limit int, _ url.Values) ([]core.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidPageSize
	}
	records, err := f.load()
	if err != nil {
		return nil, err
	}
	start := (page - 1) * limit
	if page < 1 || start >= len(records) {
		return nil, nil
	}
	return records[start:min(start+limit, len(records))], nil
}

// FetchAll returns every record in the document.
func (f *FileSource) FetchAll(ctx context.Context, _ string, _ url.Values) ([]core.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := f.load()
	if err != nil {
		return nil, err
	}
	f.logger.Info("extraction complete", "records", len(records))
	return records, nil
}

// FetchProduct scans the document for sku.
func (f *FileSource) FetchProduct(ctx context.Context, _ string, sku string) (core.RawRecord, error) {
	records, err := f.FetchAll(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.SKU() == sku {
			return r, nil
		}
	}
	return nil, nil
}

// Ping checks the file is readable.
func (f *FileSource) Ping(context.Context) error {
	_, err := os.Stat(f.path)
	return err
}

func (f *FileSource) Close() error {
	return nil
}
