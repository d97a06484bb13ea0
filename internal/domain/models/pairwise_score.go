package models

import (
	"time"
)

// AlgorithmVersion версия алгоритма оценки схожести.
// Меняется при изменении нормализации, весов или формулы слияния:
// оценки разных версий несравнимы между собой.
const AlgorithmVersion = "2024.2"

// PairwiseScore парная оценка схожести двух листингов.
// Пара неупорядоченная и канонизирована условием listing_a_id < listing_b_id.
// Запись производная: пересчитывается при каждом прогоне и перестает
// быть авторитетной после подтверждения группы. Сохраняется как
// свидетельство для объяснимости и ручной проверки кластеров.
type PairwiseScore struct {
	ListingAID       int64     `json:"listing_a_id"`
	ListingBID       int64     `json:"listing_b_id"`
	TextScore        float64   `json:"text_score"`
	ImageScore       *float64  `json:"image_score,omitempty"` // nil, если изображения нет
	HybridScore      float64   `json:"hybrid_score"`
	AlgorithmVersion string    `json:"algorithm_version"`
	ComputedAt       time.Time `json:"computed_at"`
}

// CanonicalPair возвращает пару ID в каноническом порядке (меньший первым)
func CanonicalPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}
