package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
	_ "modernc.org/sqlite"
)

const (
	// DriverPostgres selects Postgres through the pgx database/sql driver.
	DriverPostgres = "postgres"
	// DriverSQLite selects SQLite through the pure-Go modernc driver.
	DriverSQLite = "sqlite"

	defaultPingTimeout = 5 * time.Second
)

var sqlDrivers = map[string]string{
	DriverPostgres: "pgx",
	DriverSQLite:   "sqlite",
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Config describes the relational connection.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements storage.ProductStore on Postgres or SQLite.
type Store struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
}

var _ storage.ProductStore = (*Store)(nil)

// Open connects to the database and verifies the connection.
// It does not create the schema; call Migrate for that.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driverName, ok := sqlDrivers[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedDriver, cfg.Driver)
	}

	dsn := cfg.DSN
	if cfg.Driver == DriverSQLite && !strings.Contains(dsn, "_time_format") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		// Every connection to :memory: is a separate database.
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := &Store{
		db:     db,
		driver: cfg.Driver,
		logger: slog.Default().With("component", "product-store", "driver", cfg.Driver),
	}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	s.logger.Info("connected to relational store")
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection with a bounded timeout.
func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// Migrate creates the products table and indices idempotently.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemas[s.driver] {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Upsert inserts or updates p by sku. Conflicting inserts update every
// column except id and created_at.
func (s *Store) Upsert(ctx context.Context, p *core.Product) (bool, error) {
	candidate := p.ID
	if candidate == uuid.Nil {
		candidate = uuid.New()
	}
	now := time.Now().UTC()

	var description sql.NullString
	if p.Description != "" {
		description = sql.NullString{String: p.Description, Valid: true}
	}
	attrs := jsonMap(p.Attributes)
	if attrs == nil {
		attrs = jsonMap{}
	}

	var stored uuid.UUID
	err := s.db.GetContext(ctx, &stored, s.db.Rebind(upsertProduct),
		candidate, p.SKU, p.Name, description, p.Category, p.Price, p.Stock, p.Unit,
		attrs, jsonMap(p.RawData), p.ContentHash, now, now)
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", p.SKU, err)
	}

	inserted := stored == candidate
	p.ID = stored
	p.UpdatedAt = now
	if inserted {
		p.CreatedAt = now
	}
	return inserted, nil
}

// UpsertBatch upserts each product on its own so one failing row does not
// abort the rest. It stops early only when ctx is done.
func (s *Store) UpsertBatch(ctx context.Context, products []*core.Product) (*storage.UpsertResult, error) {
	result := &storage.UpsertResult{}
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		inserted, err := s.Upsert(ctx, p)
		if err != nil {
			s.logger.Error("failed to upsert product", "sku", p.SKU, "err", err)
			result.Errors = append(result.Errors,
				core.NewRunError(core.KindLoad, err).WithStage("load").WithSKU(p.SKU))
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	s.logger.Info("batch upsert complete",
		"inserted", result.Inserted, "updated", result.Updated, "failed", len(result.Errors))
	return result, nil
}

func (s *Store) selectProducts(ctx context.Context, query string, args ...any) ([]*core.Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]*core.Product, len(rows))
	for i := range rows {
		out[i] = rows[i].product()
	}
	return out, nil
}

// GetAll returns every product ordered by sku.
func (s *Store) GetAll(ctx context.Context) ([]*core.Product, error) {
	return s.selectProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY sku`)
}

// GetBySKU returns storage.ErrNotFound for unknown skus.
func (s *Store) GetBySKU(ctx context.Context, sku string) (*core.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+productColumns+` FROM products WHERE sku = ?`), sku)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return row.product(), nil
}

// GetBySKUs returns the products that exist, ordered by sku.
func (s *Store) GetBySKUs(ctx context.Context, skus []string) ([]*core.Product, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE sku IN (?) ORDER BY sku`, skus)
	if err != nil {
		return nil, err
	}
	return s.selectProducts(ctx, query, args...)
}

// GetByCategory returns the products of one canonical category.
func (s *Store) GetByCategory(ctx context.Context, category string) ([]*core.Product, error) {
	return s.selectProducts(ctx, `SELECT `+productColumns+` FROM products WHERE category = ? ORDER BY sku`, category)
}

// GetUpdatedSince returns products updated at or after since.
func (s *Store) GetUpdatedSince(ctx context.Context, since time.Time) ([]*core.Product, error) {
	return s.selectProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE updated_at >= ? ORDER BY updated_at, sku`, since.UTC())
}

// ListSKUs returns every sku.
func (s *Store) ListSKUs(ctx context.Context) ([]string, error) {
	var skus []string
	if err := s.db.SelectContext(ctx, &skus, `SELECT sku FROM products ORDER BY sku`); err != nil {
		return nil, err
	}
	return skus, nil
}

// DeleteBySKU returns storage.ErrNotFound when no row matched.
func (s *Store) DeleteBySKU(ctx context.Context, sku string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM products WHERE sku = ?`), sku)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Stats aggregates count, per-category count and total stock.
func (s *Store) Stats(ctx context.Context) (*core.CatalogStats, error) {
	var totals struct {
		Count int64 `db:"total"`
		Stock int64 `db:"total_stock"`
	}
	if err := s.db.GetContext(ctx, &totals,
		`SELECT COUNT(*) AS total, COALESCE(SUM(stock), 0) AS total_stock FROM products`); err != nil {
		return nil, err
	}

	var groups []struct {
		Category string `db:"category"`
		Count    int64  `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &groups,
		`SELECT category, COUNT(*) AS count FROM products GROUP BY category ORDER BY category`); err != nil {
		return nil, err
	}

	stats := &core.CatalogStats{
		TotalProducts: totals.Count,
		TotalStock:    totals.Stock,
		ByCategory:    make(map[string]int64, len(groups)),
	}
	for _, g := range groups {
		stats.ByCategory[g.Category] = g.Count
	}
	return stats, nil
}
