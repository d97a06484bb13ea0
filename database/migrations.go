package database

import (
	"fmt"
)

// migrations DDL-миграции хранилищ ядра сопоставления
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		supplier_id TEXT NOT NULL,
		raw_name TEXT NOT NULL,
		normalized_name TEXT NOT NULL,
		price REAL NOT NULL,
		currency TEXT NOT NULL,
		image_ref TEXT NOT NULL DEFAULT '',
		import_batch_id TEXT NOT NULL,
		matching_status TEXT NOT NULL DEFAULT 'unmatched',
		extra_attributes TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(supplier_id, raw_name)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(matching_status)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_supplier ON listings(supplier_id)`,

	`CREATE TABLE IF NOT EXISTS matching_groups (
		id TEXT PRIMARY KEY,
		representative_name TEXT NOT NULL,
		min_price REAL NOT NULL DEFAULT 0,
		max_price REAL NOT NULL DEFAULT 0,
		avg_price REAL NOT NULL DEFAULT 0,
		best_supplier_id TEXT NOT NULL DEFAULT '',
		confidence_score REAL NOT NULL DEFAULT 0,
		matching_method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'auto_matched',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_groups_status ON matching_groups(status)`,

	`CREATE TABLE IF NOT EXISTS group_members (
		group_id TEXT NOT NULL REFERENCES matching_groups(id),
		listing_id INTEGER NOT NULL REFERENCES listings(id),
		PRIMARY KEY (group_id, listing_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_group_members_listing ON group_members(listing_id)`,

	`CREATE TABLE IF NOT EXISTS pairwise_scores (
		listing_a_id INTEGER NOT NULL,
		listing_b_id INTEGER NOT NULL,
		text_score REAL NOT NULL,
		image_score REAL,
		hybrid_score REAL NOT NULL,
		algorithm_version TEXT NOT NULL,
		computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (listing_a_id, listing_b_id),
		CHECK (listing_a_id < listing_b_id)
	)`,

	`CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_id INTEGER NOT NULL REFERENCES listings(id),
		price REAL NOT NULL,
		currency TEXT NOT NULL,
		recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		change_abs REAL,
		change_pct REAL,
		source TEXT NOT NULL DEFAULT 'import'
	)`,

	`CREATE INDEX IF NOT EXISTS idx_price_history_listing ON price_history(listing_id, recorded_at)`,
}

// migrate выполняет все миграции
func (db *DB) migrate() error {
	for i, migration := range migrations {
		if _, err := db.conn.Exec(migration); err != nil {
			return fmt.Errorf("миграция %d не выполнена: %w", i+1, err)
		}
	}
	return nil
}
