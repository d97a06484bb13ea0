package models

import (
	"fmt"
	"time"
)

// GroupStatus статус валидации группы сопоставления
type GroupStatus string

const (
	// GroupStatusAutoMatched группа создана кластеризацией, ждет проверки
	GroupStatusAutoMatched GroupStatus = "auto_matched"
	// GroupStatusManualMatched группа подтверждена человеком (терминальный)
	GroupStatusManualMatched GroupStatus = "manual_matched"
	// GroupStatusManualRejected группа отклонена человеком (терминальный)
	GroupStatusManualRejected GroupStatus = "manual_rejected"
)

// MatchingMethod метод, которым была собрана группа
type MatchingMethod string

const (
	MatchingMethodText   MatchingMethod = "text"
	MatchingMethodImage  MatchingMethod = "image"
	MatchingMethodHybrid MatchingMethod = "hybrid"
)

// ParseMatchingMethod разбирает метод сопоставления из строки
func ParseMatchingMethod(s string) (MatchingMethod, error) {
	switch MatchingMethod(s) {
	case MatchingMethodText, MatchingMethodImage, MatchingMethodHybrid:
		return MatchingMethod(s), nil
	default:
		return "", fmt.Errorf("неизвестный метод сопоставления: %q", s)
	}
}

// StateTransitionError ошибка недопустимого перехода статуса группы
type StateTransitionError struct {
	GroupID string
	From    GroupStatus
	To      GroupStatus
}

// Error реализует интерфейс error
func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("недопустимый переход статуса группы %s: %s -> %s", e.GroupID, e.From, e.To)
}

// MatchingGroup группа листингов, считающихся одним физическим товаром.
// Ценовая статистика и best_supplier_id пересчитываются при любом
// изменении состава или цен участников. Группы физически не удаляются:
// отклоненные сохраняются со статусом manual_rejected для аудита.
type MatchingGroup struct {
	ID                 string         `json:"id"`
	RepresentativeName string         `json:"representative_name"`
	MemberListingIDs   []int64        `json:"member_listing_ids"`
	MinPrice           float64        `json:"min_price"`
	MaxPrice           float64        `json:"max_price"`
	AvgPrice           float64        `json:"avg_price"`
	BestSupplierID     string         `json:"best_supplier_id"`
	ConfidenceScore    float64        `json:"confidence_score"`
	MatchingMethod     MatchingMethod `json:"matching_method"`
	Status             GroupStatus    `json:"status"`
	Version            int64          `json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// IsFrozen сообщает, исключена ли группа из автоматической рекластеризации.
// Подтвержденные и отклоненные группы заморожены: решение человека
// не пересматривается автоматикой.
func (g *MatchingGroup) IsFrozen() bool {
	return g.Status == GroupStatusManualMatched || g.Status == GroupStatusManualRejected
}

// CanTransition проверяет допустимость перехода статуса.
// Разрешены только auto_matched -> manual_matched и
// auto_matched -> manual_rejected; оба целевых статуса терминальны.
func (g *MatchingGroup) CanTransition(to GroupStatus) bool {
	switch g.Status {
	case GroupStatusAutoMatched:
		return to == GroupStatusManualMatched || to == GroupStatusManualRejected
	case GroupStatusManualMatched, GroupStatusManualRejected:
		return false
	default:
		return false
	}
}

// Confirm подтверждает группу (auto_matched -> manual_matched)
func (g *MatchingGroup) Confirm() error {
	return g.transition(GroupStatusManualMatched)
}

// Reject отклоняет группу (auto_matched -> manual_rejected).
// Отклонение подтвержденной группы запрещено: сначала требуется
// явная отмена подтверждения, иначе решение человека будет потеряно молча.
func (g *MatchingGroup) Reject() error {
	return g.transition(GroupStatusManualRejected)
}

// transition выполняет переход статуса с проверкой допустимости
func (g *MatchingGroup) transition(to GroupStatus) error {
	if !g.CanTransition(to) {
		return &StateTransitionError{GroupID: g.ID, From: g.Status, To: to}
	}
	g.Status = to
	g.UpdatedAt = time.Now()
	return nil
}
