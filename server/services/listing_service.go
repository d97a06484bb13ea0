package services

import (
	"context"
	"errors"
	"fmt"

	"pricematcher/database"
	"pricematcher/internal/domain/models"
	apperrors "pricematcher/server/errors"
)

// ListingService операции просмотра листингов и их оценок сходства
type ListingService struct {
	db *database.DB
}

// NewListingService создает сервис листингов
func NewListingService(db *database.DB) *ListingService {
	return &ListingService{db: db}
}

// ListListings возвращает листинги, опционально отфильтрованные по статусу
// сопоставления
func (s *ListingService) ListListings(ctx context.Context, status string) ([]models.RawListing, error) {
	var (
		listings []models.RawListing
		err      error
	)
	if status == "" {
		listings, err = s.db.ListAllListings(ctx)
	} else {
		parsed, parseErr := models.ParseMatchingStatus(status)
		if parseErr != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("неизвестный статус сопоставления: %s", status), parseErr)
		}
		listings, err = s.db.ListListingsByStatus(ctx, parsed)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось получить листинги", err)
	}
	return listings, nil
}

// ListingScores возвращает сохраненные попарные оценки с участием листинга,
// от наиболее к наименее похожим
func (s *ListingService) ListingScores(ctx context.Context, listingID int64) ([]models.PairwiseScore, error) {
	if _, err := s.db.GetListingByID(ctx, listingID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("листинг %d не найден", listingID), err)
		}
		return nil, apperrors.NewInternalError("не удалось получить листинг", err)
	}

	scores, err := s.db.ListScoresForListing(ctx, listingID)
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось получить оценки листинга", err)
	}
	return scores, nil
}
