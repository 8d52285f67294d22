package sqlstore

// Dialect-specific DDL. Postgres keeps price as NUMERIC(12,2) and JSON as JSONB;
// SQLite stores price as TEXT so decimals round-trip exactly.
var schemas = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS products (
			id          UUID PRIMARY KEY,
			sku         VARCHAR(100) NOT NULL UNIQUE,
			name        VARCHAR(500) NOT NULL,
			description TEXT,
			category    VARCHAR(100) NOT NULL,
			price       NUMERIC(12,2) NOT NULL,
			stock       BIGINT NOT NULL DEFAULT 0,
			unit        VARCHAR(50) NOT NULL DEFAULT 'unidad',
			attributes  JSONB NOT NULL DEFAULT '{}',
			raw_data    JSONB,
			text_hash   VARCHAR(64),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category)`,
		`CREATE INDEX IF NOT EXISTS idx_products_updated_at ON products (updated_at)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS products (
			id          TEXT PRIMARY KEY,
			sku         TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			description TEXT,
			category    TEXT NOT NULL,
			price       TEXT NOT NULL,
			stock       INTEGER NOT NULL DEFAULT 0,
			unit        TEXT NOT NULL DEFAULT 'unidad',
			attributes  TEXT NOT NULL DEFAULT '{}',
			raw_data    TEXT,
			text_hash   TEXT,
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category)`,
		`CREATE INDEX IF NOT EXISTS idx_products_updated_at ON products (updated_at)`,
	},
}

const productColumns = `id, sku, name, description, category, price, stock, unit,
	attributes, raw_data, text_hash, created_at, updated_at`

const upsertProduct = `INSERT INTO products (` + productColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (sku) DO UPDATE SET
		name        = excluded.name,
		description = excluded.description,
		category    = excluded.category,
		price       = excluded.price,
		stock       = excluded.stock,
		unit        = excluded.unit,
		attributes  = excluded.attributes,
		raw_data    = excluded.raw_data,
		text_hash   = excluded.text_hash,
		updated_at  = excluded.updated_at
	RETURNING id`
