package services

import (
	"context"
	"errors"
	"log"
	"sort"

	"pricematcher/database"
	"pricematcher/internal/domain/models"
	apperrors "pricematcher/server/errors"
)

// GroupService операции над группами сопоставления: просмотр,
// подтверждение и отклонение человеком, ценовое сравнение
type GroupService struct {
	db *database.DB
}

// NewGroupService создает сервис групп
func NewGroupService(db *database.DB) *GroupService {
	return &GroupService{db: db}
}

// GroupListFilter фильтр списка групп
type GroupListFilter struct {
	Status        string
	MinConfidence *float64
}

// GetGroup возвращает группу по ID
func (s *GroupService) GetGroup(ctx context.Context, id string) (*models.MatchingGroup, error) {
	group, err := s.db.GetGroupByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("группа не найдена", err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось получить группу", err)
	}
	return group, nil
}

// ListGroups возвращает группы по фильтру
func (s *GroupService) ListGroups(ctx context.Context, filter GroupListFilter) ([]models.MatchingGroup, error) {
	dbFilter := database.GroupFilter{MinConfidence: filter.MinConfidence}

	if filter.Status != "" {
		status := models.GroupStatus(filter.Status)
		switch status {
		case models.GroupStatusAutoMatched, models.GroupStatusManualMatched, models.GroupStatusManualRejected:
			dbFilter.Status = &status
		default:
			return nil, apperrors.NewValidationError("неизвестный статус группы", nil)
		}
	}

	groups, err := s.db.ListGroups(ctx, dbFilter)
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось получить группы", err)
	}
	return groups, nil
}

// ConfirmGroup подтверждает группу (auto_matched -> manual_matched).
// Версия защищает от конкурентного изменения: при несовпадении клиент
// перечитывает группу и повторяет запрос.
func (s *GroupService) ConfirmGroup(ctx context.Context, id string, version int64) (*models.MatchingGroup, error) {
	return s.transitionGroup(ctx, id, version, (*models.MatchingGroup).Confirm)
}

// RejectGroup отклоняет группу (auto_matched -> manual_rejected).
// Участники возвращаются в статус unmatched и могут быть сгруппированы
// иначе будущими прогонами; сама группа сохраняется для аудита.
func (s *GroupService) RejectGroup(ctx context.Context, id string, version int64) (*models.MatchingGroup, error) {
	group, err := s.transitionGroup(ctx, id, version, (*models.MatchingGroup).Reject)
	if err != nil {
		return nil, err
	}

	if err := s.db.SetListingsMatchingStatus(ctx, group.MemberListingIDs, models.MatchingStatusUnmatched); err != nil {
		return nil, apperrors.NewInternalError("не удалось сбросить статусы участников", err)
	}

	log.Printf("Группа %s отклонена, %d листингов возвращено в unmatched", id, len(group.MemberListingIDs))
	return group, nil
}

// transitionGroup выполняет переход статуса с контролем версии
func (s *GroupService) transitionGroup(ctx context.Context, id string, version int64, transition func(*models.MatchingGroup) error) (*models.MatchingGroup, error) {
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}

	if version != 0 && version != group.Version {
		return nil, apperrors.NewConflictError("группа изменена конкурентно, перечитайте и повторите", nil)
	}

	if err := transition(group); err != nil {
		var stateErr *models.StateTransitionError
		if errors.As(err, &stateErr) {
			return nil, apperrors.NewUnprocessableError(stateErr.Error(), err)
		}
		return nil, apperrors.NewInternalError("не удалось выполнить переход статуса", err)
	}

	if err := s.db.UpdateGroupStatus(ctx, id, group.Status, group.Version); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, apperrors.NewConflictError("группа изменена конкурентно, перечитайте и повторите", err)
		}
		return nil, apperrors.NewInternalError("не удалось сохранить статус группы", err)
	}
	group.Version++

	return group, nil
}

// PriceComparisonRow позиция ценового сравнения внутри группы
type PriceComparisonRow struct {
	ListingID  int64   `json:"listing_id"`
	SupplierID string  `json:"supplier_id"`
	RawName    string  `json:"raw_name"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	// DiffFromMin переплата относительно лучшего предложения
	DiffFromMin float64 `json:"diff_from_min"`
	// PctOverMin переплата в процентах; 0 для лучшего предложения
	PctOverMin float64 `json:"pct_over_min"`
}

// PriceComparison ценовое сравнение предложений одной группы
type PriceComparison struct {
	GroupID            string               `json:"group_id"`
	RepresentativeName string               `json:"representative_name"`
	BestSupplierID     string               `json:"best_supplier_id"`
	MinPrice           float64              `json:"min_price"`
	MaxPrice           float64              `json:"max_price"`
	AvgPrice           float64              `json:"avg_price"`
	// Spread разница между худшим и лучшим предложением
	Spread float64              `json:"spread"`
	Rows   []PriceComparisonRow `json:"rows"`
}

// ComparePrices строит ценовое сравнение группы: предложения участников
// по возрастанию цены с переплатой относительно лучшего
func (s *GroupService) ComparePrices(ctx context.Context, groupID string) (*PriceComparison, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	listings, err := s.db.ListListingsByIDs(ctx, group.MemberListingIDs)
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось получить листинги группы", err)
	}

	sort.Slice(listings, func(i, j int) bool {
		if listings[i].Price != listings[j].Price {
			return listings[i].Price < listings[j].Price
		}
		return listings[i].ID < listings[j].ID
	})

	comparison := &PriceComparison{
		GroupID:            group.ID,
		RepresentativeName: group.RepresentativeName,
		BestSupplierID:     group.BestSupplierID,
		MinPrice:           group.MinPrice,
		MaxPrice:           group.MaxPrice,
		AvgPrice:           group.AvgPrice,
		Spread:             group.MaxPrice - group.MinPrice,
	}

	for _, l := range listings {
		row := PriceComparisonRow{
			ListingID:   l.ID,
			SupplierID:  l.SupplierID,
			RawName:     l.RawName,
			Price:       l.Price,
			Currency:    l.Currency,
			DiffFromMin: l.Price - group.MinPrice,
		}
		if group.MinPrice > 0 {
			row.PctOverMin = row.DiffFromMin / group.MinPrice * 100
		}
		comparison.Rows = append(comparison.Rows, row)
	}

	return comparison, nil
}

// Stats возвращает агрегированную статистику сопоставления
func (s *GroupService) Stats(ctx context.Context) (*database.MatchingStats, error) {
	stats, err := s.db.ComputeMatchingStats(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось собрать статистику", err)
	}
	return stats, nil
}
