package database

import (
	"context"
	"fmt"

	"pricematcher/internal/domain/models"
)

// MatchingStats агрегированная статистика по хранилищу сопоставлений
type MatchingStats struct {
	ListingsByStatus map[models.MatchingStatus]int `json:"listings_by_status"`
	GroupsByStatus   map[models.GroupStatus]int    `json:"groups_by_status"`
	AvgConfidence    float64                       `json:"avg_confidence"`
	// PotentialSavings суммарная разница между максимальной и минимальной
	// ценой по всем неотклоненным группам: верхняя оценка экономии
	// при закупке у лучшего поставщика
	PotentialSavings float64 `json:"potential_savings"`
}

// CountGroupsByStatus возвращает число групп по статусам
func (db *DB) CountGroupsByStatus(ctx context.Context) (map[models.GroupStatus]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM matching_groups GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("не удалось посчитать группы: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.GroupStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[models.GroupStatus(status)] = count
	}
	return counts, rows.Err()
}

// ComputeMatchingStats собирает агрегированную статистику одним проходом
func (db *DB) ComputeMatchingStats(ctx context.Context) (*MatchingStats, error) {
	stats := &MatchingStats{}

	var err error
	stats.ListingsByStatus, err = db.CountListingsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats.GroupsByStatus, err = db.CountGroupsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	err = db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(confidence_score), 0), COALESCE(SUM(max_price - min_price), 0)
		FROM matching_groups WHERE status != ?`,
		string(models.GroupStatusManualRejected)).
		Scan(&stats.AvgConfidence, &stats.PotentialSavings)
	if err != nil {
		return nil, fmt.Errorf("не удалось посчитать статистику групп: %w", err)
	}

	return stats, nil
}
