package database

import (
	"context"
	"database/sql"
	"fmt"

	"pricematcher/internal/domain/models"
)

// UpsertPairwiseScores сохраняет парные оценки прогона. Оценки производные:
// повторный прогон перезаписывает запись той же пары целиком.
func (db *DB) UpsertPairwiseScores(ctx context.Context, scores []models.PairwiseScore) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO pairwise_scores
			(listing_a_id, listing_b_id, text_score, image_score, hybrid_score, algorithm_version, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("не удалось подготовить запрос оценок: %w", err)
	}
	defer stmt.Close()

	for _, s := range scores {
		aID, bID := models.CanonicalPair(s.ListingAID, s.ListingBID)
		if _, err := stmt.ExecContext(ctx, aID, bID, s.TextScore, s.ImageScore,
			s.HybridScore, s.AlgorithmVersion, s.ComputedAt); err != nil {
			return fmt.Errorf("не удалось сохранить оценку пары (%d, %d): %w", aID, bID, err)
		}
	}

	return tx.Commit()
}

// GetPairwiseScore возвращает оценку пары листингов
func (db *DB) GetPairwiseScore(ctx context.Context, a, b int64) (*models.PairwiseScore, error) {
	aID, bID := models.CanonicalPair(a, b)

	var s models.PairwiseScore
	err := db.conn.QueryRowContext(ctx, `
		SELECT listing_a_id, listing_b_id, text_score, image_score, hybrid_score, algorithm_version, computed_at
		FROM pairwise_scores WHERE listing_a_id = ? AND listing_b_id = ?`, aID, bID).
		Scan(&s.ListingAID, &s.ListingBID, &s.TextScore, &s.ImageScore,
			&s.HybridScore, &s.AlgorithmVersion, &s.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать оценку пары: %w", err)
	}
	return &s, nil
}

// ListScoresForListing возвращает все сохраненные оценки с участием листинга
func (db *DB) ListScoresForListing(ctx context.Context, listingID int64) ([]models.PairwiseScore, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT listing_a_id, listing_b_id, text_score, image_score, hybrid_score, algorithm_version, computed_at
		FROM pairwise_scores WHERE listing_a_id = ? OR listing_b_id = ?
		ORDER BY hybrid_score DESC`, listingID, listingID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить оценки листинга: %w", err)
	}
	defer rows.Close()

	var scores []models.PairwiseScore
	for rows.Next() {
		var s models.PairwiseScore
		if err := rows.Scan(&s.ListingAID, &s.ListingBID, &s.TextScore, &s.ImageScore,
			&s.HybridScore, &s.AlgorithmVersion, &s.ComputedAt); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
