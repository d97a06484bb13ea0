package algorithms

// HybridWeights веса текстовой и визуальной оценок при слиянии
type HybridWeights struct {
	Text  float64 `json:"text"`
	Image float64 `json:"image"`
}

// DefaultHybridWeights возвращает веса слияния по умолчанию
func DefaultHybridWeights() HybridWeights {
	return HybridWeights{
		Text:  0.6,
		Image: 0.4,
	}
}

// HybridScorer сливает текстовую и визуальную оценки в одну итоговую.
// Веса задаются конфигурацией: меняя их, вызывающая сторона получает
// текстовый, визуальный или гибридный проход без изменения кода.
type HybridScorer struct {
	weights HybridWeights
}

// NewHybridScorer создает новый скорер слияния с указанными весами
func NewHybridScorer(weights HybridWeights) (*HybridScorer, error) {
	if err := ValidateWeights("hybrid_weights", weights.Text, weights.Image); err != nil {
		return nil, err
	}
	return &HybridScorer{weights: weights}, nil
}

// NewDefaultHybridScorer создает скорер слияния с весами по умолчанию
func NewDefaultHybridScorer() *HybridScorer {
	scorer, _ := NewHybridScorer(DefaultHybridWeights())
	return scorer
}

// Fuse сливает текстовую и визуальную оценки.
// imageScore == nil означает отсутствие изображения хотя бы у одного
// из листингов: в этом случае итог равен текстовой оценке.
// Входные оценки вне [0, 1] отклоняются с ScoreRangeError, чтобы баг
// скорера не искажал кластеризацию молча.
func (hs *HybridScorer) Fuse(textScore float64, imageScore *float64) (float64, error) {
	if err := ValidateScore("text_score", textScore); err != nil {
		return 0, err
	}

	if imageScore == nil {
		return textScore, nil
	}

	if err := ValidateScore("image_score", *imageScore); err != nil {
		return 0, err
	}

	total := hs.weights.Text + hs.weights.Image
	fused := (hs.weights.Text*textScore + hs.weights.Image**imageScore) / total

	return Clamp01(fused), nil
}
