package clustering

import (
	"errors"
	"time"

	"pricematcher/internal/domain/models"
	"pricematcher/matching/algorithms"
	"pricematcher/matching/imaging"
)

// Listing снимок листинга для кластеризации.
// Внутри движка листинги адресуются целым индексом арены, ID нужен
// только для публикации результата.
type Listing struct {
	ID             int64
	SupplierID     string
	NormalizedName string
	Price          float64
	ImageHash      *imaging.Hash // nil, если изображение отсутствует или не загрузилось
}

// ErrNoImage пара не может быть оценена по изображениям:
// хотя бы у одной стороны нет хэша
var ErrNoImage = errors.New("у пары нет изображений для визуального сравнения")

// PairScorer вычисляет парную оценку схожести двух листингов
type PairScorer interface {
	ScorePair(a, b *Listing) (models.PairwiseScore, error)
}

// MethodScorer парный скорер для выбранного метода сопоставления.
// text — только текстовая оценка; image — только визуальная (пары без
// изображений пропускаются); hybrid — слияние с откатом к тексту.
type MethodScorer struct {
	text   *algorithms.TextScorer
	fuser  *algorithms.HybridScorer
	method models.MatchingMethod
}

// NewMethodScorer создает скорер для указанного метода
func NewMethodScorer(text *algorithms.TextScorer, fuser *algorithms.HybridScorer, method models.MatchingMethod) *MethodScorer {
	return &MethodScorer{
		text:   text,
		fuser:  fuser,
		method: method,
	}
}

// ScorePair вычисляет парную оценку в каноническом порядке ID
func (s *MethodScorer) ScorePair(a, b *Listing) (models.PairwiseScore, error) {
	textScore := s.text.Score(a.NormalizedName, b.NormalizedName)

	var imageScore *float64
	if a.ImageHash != nil && b.ImageHash != nil {
		sim := a.ImageHash.Similarity(*b.ImageHash)
		imageScore = &sim
	}

	var hybridScore float64
	var err error

	switch s.method {
	case models.MatchingMethodText:
		hybridScore, err = s.fuser.Fuse(textScore, nil)
	case models.MatchingMethodImage:
		if imageScore == nil {
			return models.PairwiseScore{}, ErrNoImage
		}
		if err := algorithms.ValidateScore("image_score", *imageScore); err != nil {
			return models.PairwiseScore{}, err
		}
		hybridScore = *imageScore
	default:
		hybridScore, err = s.fuser.Fuse(textScore, imageScore)
	}
	if err != nil {
		return models.PairwiseScore{}, err
	}

	aID, bID := models.CanonicalPair(a.ID, b.ID)
	return models.PairwiseScore{
		ListingAID:       aID,
		ListingBID:       bID,
		TextScore:        textScore,
		ImageScore:       imageScore,
		HybridScore:      hybridScore,
		AlgorithmVersion: models.AlgorithmVersion,
		ComputedAt:       time.Now(),
	}, nil
}
