package models

import (
	"time"
)

// PriceSource источник ценового наблюдения
type PriceSource string

const (
	PriceSourceImport   PriceSource = "import"
	PriceSourceManual   PriceSource = "manual"
	PriceSourceExternal PriceSource = "external"
)

// PriceHistoryEntry ценовое наблюдение по листингу.
// Журнал только дописывается: записи никогда не изменяются и не удаляются.
// Дельты считаются относительно непосредственно предыдущей записи
// того же листинга.
type PriceHistoryEntry struct {
	ID         int64       `json:"id"`
	ListingID  int64       `json:"listing_id"`
	Price      float64     `json:"price"`
	Currency   string      `json:"currency"`
	RecordedAt time.Time   `json:"recorded_at"`
	ChangeAbs  *float64    `json:"change_abs,omitempty"` // nil для первого наблюдения
	ChangePct  *float64    `json:"change_pct,omitempty"` // nil, если предыдущая цена нулевая
	Source     PriceSource `json:"source"`
}

// NextPriceEntry строит следующее наблюдение после prev.
// Для первого наблюдения (prev == nil) дельты отсутствуют.
// Если предыдущая цена нулевая, процентная дельта не определена.
func NextPriceEntry(prev *PriceHistoryEntry, listingID int64, price float64, currency string, source PriceSource) PriceHistoryEntry {
	entry := PriceHistoryEntry{
		ListingID:  listingID,
		Price:      price,
		Currency:   currency,
		RecordedAt: time.Now(),
		Source:     source,
	}

	if prev != nil {
		changeAbs := price - prev.Price
		entry.ChangeAbs = &changeAbs

		if prev.Price != 0 {
			changePct := changeAbs / prev.Price * 100
			entry.ChangePct = &changePct
		}
	}

	return entry
}
