package models

import (
	"fmt"
	"time"
)

// MatchingStatus статус листинга в процессе сопоставления
type MatchingStatus string

const (
	// MatchingStatusUnmatched листинг еще не входит ни в одну группу
	MatchingStatusUnmatched MatchingStatus = "unmatched"
	// MatchingStatusMatched листинг входит в группу сопоставления
	MatchingStatusMatched MatchingStatus = "matched"
)

// ParseMatchingStatus разбирает статус сопоставления из строки запроса
func ParseMatchingStatus(s string) (MatchingStatus, error) {
	switch MatchingStatus(s) {
	case MatchingStatusUnmatched:
		return MatchingStatusUnmatched, nil
	case MatchingStatusMatched:
		return MatchingStatusMatched, nil
	default:
		return "", fmt.Errorf("неизвестный статус сопоставления: %q", s)
	}
}

// RawListing позиция прайс-листа одного поставщика.
// Принадлежит поставщику и неизменна, кроме matching_status и
// нормализованных полей, которые ядро пересчитывает при реимпорте.
type RawListing struct {
	ID              int64             `json:"id"`
	SupplierID      string            `json:"supplier_id"`
	RawName         string            `json:"raw_name"`
	NormalizedName  string            `json:"normalized_name"`
	Price           float64           `json:"price"`
	Currency        string            `json:"currency"`
	ImageRef        string            `json:"image_ref,omitempty"`
	ImportBatchID   string            `json:"import_batch_id"`
	MatchingStatus  MatchingStatus    `json:"matching_status"`
	ExtraAttributes map[string]string `json:"extra_attributes,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
