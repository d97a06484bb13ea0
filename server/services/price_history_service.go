package services

import (
	"context"
	"errors"

	"pricematcher/database"
	"pricematcher/internal/domain/models"
	apperrors "pricematcher/server/errors"
)

// PriceHistoryService журнал цен листингов: запись наблюдений
// с дельтами и выдача истории для анализа трендов
type PriceHistoryService struct {
	db *database.DB
}

// NewPriceHistoryService создает сервис истории цен
func NewPriceHistoryService(db *database.DB) *PriceHistoryService {
	return &PriceHistoryService{db: db}
}

// RecordObservation дописывает ценовое наблюдение листинга.
// Дельты считаются относительно предыдущего наблюдения; для первого
// наблюдения дельт нет, при нулевой предыдущей цене процент не определен.
func (s *PriceHistoryService) RecordObservation(ctx context.Context, listingID int64, price float64, currency string, source models.PriceSource) (*models.PriceHistoryEntry, error) {
	if price <= 0 {
		return nil, apperrors.NewValidationError("цена наблюдения должна быть положительной", nil)
	}

	prev, err := s.db.GetLastPriceEntry(ctx, listingID)
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось прочитать последнее наблюдение", err)
	}

	entry := models.NextPriceEntry(prev, listingID, price, currency, source)
	if err := s.db.AppendPriceEntry(ctx, &entry); err != nil {
		return nil, apperrors.NewInternalError("не удалось записать наблюдение", err)
	}

	return &entry, nil
}

// History возвращает журнал цен листинга в хронологическом порядке
func (s *PriceHistoryService) History(ctx context.Context, listingID int64) ([]models.PriceHistoryEntry, error) {
	if _, err := s.db.GetListingByID(ctx, listingID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("листинг не найден", err)
		}
		return nil, apperrors.NewInternalError("не удалось получить листинг", err)
	}

	history, err := s.db.ListPriceHistory(ctx, listingID)
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось получить историю цен", err)
	}
	return history, nil
}
