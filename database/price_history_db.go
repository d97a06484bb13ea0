package database

import (
	"context"
	"database/sql"
	"fmt"

	"pricematcher/internal/domain/models"
)

// AppendPriceEntry дописывает ценовое наблюдение в журнал листинга.
// Журнал append-only: обновлений и удалений нет.
func (db *DB) AppendPriceEntry(ctx context.Context, entry *models.PriceHistoryEntry) error {
	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO price_history (listing_id, price, currency, recorded_at, change_abs, change_pct, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ListingID, entry.Price, entry.Currency, entry.RecordedAt,
		entry.ChangeAbs, entry.ChangePct, string(entry.Source))
	if err != nil {
		return fmt.Errorf("не удалось записать наблюдение цены: %w", err)
	}

	entry.ID, err = result.LastInsertId()
	return err
}

// GetLastPriceEntry возвращает последнее наблюдение по листингу
// или (nil, nil), если наблюдений еще нет
func (db *DB) GetLastPriceEntry(ctx context.Context, listingID int64) (*models.PriceHistoryEntry, error) {
	row := db.conn.QueryRowContext(ctx, priceHistorySelect+`
		WHERE listing_id = ? ORDER BY recorded_at DESC, id DESC LIMIT 1`, listingID)

	entry, err := scanPriceEntry(row)
	if err == ErrNotFound {
		return nil, nil
	}
	return entry, err
}

// ListPriceHistory возвращает журнал цен листинга в хронологическом порядке
func (db *DB) ListPriceHistory(ctx context.Context, listingID int64) ([]models.PriceHistoryEntry, error) {
	rows, err := db.conn.QueryContext(ctx, priceHistorySelect+`
		WHERE listing_id = ? ORDER BY recorded_at, id`, listingID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить историю цен: %w", err)
	}
	defer rows.Close()

	var entries []models.PriceHistoryEntry
	for rows.Next() {
		entry, err := scanPriceEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

const priceHistorySelect = `
	SELECT id, listing_id, price, currency, recorded_at, change_abs, change_pct, source
	FROM price_history`

// scanPriceEntry читает наблюдение цены из строки результата
func scanPriceEntry(row rowScanner) (*models.PriceHistoryEntry, error) {
	var e models.PriceHistoryEntry
	var source string

	err := row.Scan(&e.ID, &e.ListingID, &e.Price, &e.Currency, &e.RecordedAt,
		&e.ChangeAbs, &e.ChangePct, &source)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать наблюдение цены: %w", err)
	}

	e.Source = models.PriceSource(source)
	return &e, nil
}
