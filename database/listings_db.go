package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pricematcher/internal/domain/models"
)

// CreateListing сохраняет новый листинг и проставляет его ID
func (db *DB) CreateListing(ctx context.Context, l *models.RawListing) error {
	extra, err := marshalExtra(l.ExtraAttributes)
	if err != nil {
		return err
	}

	if l.MatchingStatus == "" {
		l.MatchingStatus = models.MatchingStatusUnmatched
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO listings (supplier_id, raw_name, normalized_name, price, currency,
			image_ref, import_batch_id, matching_status, extra_attributes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.SupplierID, l.RawName, l.NormalizedName, l.Price, l.Currency,
		l.ImageRef, l.ImportBatchID, string(l.MatchingStatus), extra, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("не удалось сохранить листинг: %w", err)
	}

	l.ID, err = result.LastInsertId()
	return err
}

// GetListingByID возвращает листинг по ID
func (db *DB) GetListingByID(ctx context.Context, id int64) (*models.RawListing, error) {
	row := db.conn.QueryRowContext(ctx, listingSelect+" WHERE id = ?", id)
	return scanListing(row)
}

// FindListingBySupplierAndName ищет листинг поставщика по исходному наименованию.
// Возвращает (nil, nil), если листинга нет: реимпорт различает
// обновление существующей позиции и создание новой.
func (db *DB) FindListingBySupplierAndName(ctx context.Context, supplierID, rawName string) (*models.RawListing, error) {
	row := db.conn.QueryRowContext(ctx,
		listingSelect+" WHERE supplier_id = ? AND raw_name = ?", supplierID, rawName)

	listing, err := scanListing(row)
	if err == ErrNotFound {
		return nil, nil
	}
	return listing, err
}

// UpdateListingOnReimport обновляет изменяемые поля листинга при реимпорте:
// цену, нормализованное наименование, ссылку на изображение и батч
func (db *DB) UpdateListingOnReimport(ctx context.Context, id int64, normalizedName string, price float64, imageRef, batchID string) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE listings SET normalized_name = ?, price = ?, image_ref = ?, import_batch_id = ?
		WHERE id = ?`,
		normalizedName, price, imageRef, batchID, id)
	if err != nil {
		return fmt.Errorf("не удалось обновить листинг %d: %w", id, err)
	}
	return nil
}

// ListListingsByStatus возвращает листинги с указанным статусом сопоставления
func (db *DB) ListListingsByStatus(ctx context.Context, status models.MatchingStatus) ([]models.RawListing, error) {
	rows, err := db.conn.QueryContext(ctx,
		listingSelect+" WHERE matching_status = ? ORDER BY id", string(status))
	if err != nil {
		return nil, fmt.Errorf("не удалось получить листинги: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// ListAllListings возвращает все листинги
func (db *DB) ListAllListings(ctx context.Context) ([]models.RawListing, error) {
	rows, err := db.conn.QueryContext(ctx, listingSelect+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("не удалось получить листинги: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// ListListingsByIDs возвращает листинги с указанными ID
func (db *DB) ListListingsByIDs(ctx context.Context, ids []int64) ([]models.RawListing, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := listingSelect + " WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY id"
	rows, err := db.conn.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить листинги: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// SetListingsMatchingStatus проставляет статус сопоставления группе листингов
func (db *DB) SetListingsMatchingStatus(ctx context.Context, ids []int64, status models.MatchingStatus) error {
	if len(ids) == 0 {
		return nil
	}

	query := "UPDATE listings SET matching_status = ? WHERE id IN (" + placeholders(len(ids)) + ")"
	args := append([]interface{}{string(status)}, int64Args(ids)...)

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("не удалось обновить статус листингов: %w", err)
	}
	return nil
}

// CountListingsByStatus возвращает число листингов по статусам
func (db *DB) CountListingsByStatus(ctx context.Context) (map[models.MatchingStatus]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT matching_status, COUNT(*) FROM listings GROUP BY matching_status")
	if err != nil {
		return nil, fmt.Errorf("не удалось посчитать листинги: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.MatchingStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[models.MatchingStatus(status)] = count
	}
	return counts, rows.Err()
}

const listingSelect = `
	SELECT id, supplier_id, raw_name, normalized_name, price, currency,
		image_ref, import_batch_id, matching_status, extra_attributes, created_at
	FROM listings`

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanListing читает листинг из строки результата
func scanListing(row rowScanner) (*models.RawListing, error) {
	var l models.RawListing
	var status, extra string

	err := row.Scan(&l.ID, &l.SupplierID, &l.RawName, &l.NormalizedName, &l.Price,
		&l.Currency, &l.ImageRef, &l.ImportBatchID, &status, &extra, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать листинг: %w", err)
	}

	l.MatchingStatus = models.MatchingStatus(status)
	if err := json.Unmarshal([]byte(extra), &l.ExtraAttributes); err != nil {
		return nil, fmt.Errorf("не удалось разобрать extra_attributes: %w", err)
	}
	return &l, nil
}

// scanListings читает все листинги из результата запроса
func scanListings(rows *sql.Rows) ([]models.RawListing, error) {
	var listings []models.RawListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

// marshalExtra сериализует дополнительные атрибуты листинга
func marshalExtra(extra map[string]string) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("не удалось сериализовать extra_attributes: %w", err)
	}
	return string(data), nil
}

// placeholders возвращает строку вида "?, ?, ?" для n аргументов
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// int64Args преобразует срез ID в аргументы запроса
func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
