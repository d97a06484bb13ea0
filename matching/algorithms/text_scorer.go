package algorithms

// TextWeights веса составляющих текстовой оценки схожести
type TextWeights struct {
	CharSet float64 `json:"char_set"`
	Bigram  float64 `json:"bigram"`
	Trigram float64 `json:"trigram"`
}

// DefaultTextWeights возвращает веса текстовой оценки по умолчанию
func DefaultTextWeights() TextWeights {
	return TextWeights{
		CharSet: 0.4,
		Bigram:  0.4,
		Trigram: 0.2,
	}
}

// TextScorer вычисляет схожесть двух нормализованных наименований.
// Итоговая оценка — взвешенная сумма трех индексов Жаккара: по множеству
// символов, по биграммам и по триграммам. Детерминированная чистая
// функция без побочных эффектов.
type TextScorer struct {
	weights TextWeights
	jaccard *JaccardIndex
	bigrams *NGramGenerator
	trigram *NGramGenerator
}

// NewTextScorer создает новый текстовый скорер с указанными весами
func NewTextScorer(weights TextWeights) (*TextScorer, error) {
	if err := ValidateWeights("text_weights", weights.CharSet, weights.Bigram, weights.Trigram); err != nil {
		return nil, err
	}
	return &TextScorer{
		weights: weights,
		jaccard: NewJaccardIndex(),
		bigrams: NewNGramGenerator(2),
		trigram: NewNGramGenerator(3),
	}, nil
}

// NewDefaultTextScorer создает текстовый скорер с весами по умолчанию
func NewDefaultTextScorer() *TextScorer {
	scorer, _ := NewTextScorer(DefaultTextWeights())
	return scorer
}

// Score вычисляет текстовую оценку схожести двух нормализованных наименований.
// Идентичные строки дают ровно 1.0, строки без общих символов — 0.0.
func (ts *TextScorer) Score(name1, name2 string) float64 {
	if name1 == name2 {
		if name1 == "" {
			return 0.0
		}
		return 1.0
	}
	if name1 == "" || name2 == "" {
		return 0.0
	}

	charScore := ts.jaccard.CharSetSimilarity(name1, name2)

	// Короткие строки дают слишком разреженный профиль n-грамм:
	// вместо шумной оценки используем посимвольный Жаккар
	bigramScore := ts.ngramOrFallback(ts.bigrams, name1, name2, charScore)
	trigramScore := ts.ngramOrFallback(ts.trigram, name1, name2, charScore)

	total := ts.weights.CharSet + ts.weights.Bigram + ts.weights.Trigram
	score := (ts.weights.CharSet*charScore +
		ts.weights.Bigram*bigramScore +
		ts.weights.Trigram*trigramScore) / total

	return Clamp01(score)
}

// ngramOrFallback вычисляет n-граммную схожесть либо возвращает fallback,
// если любая из строк короче минимальной длины для данного размера граммы
func (ts *TextScorer) ngramOrFallback(gen *NGramGenerator, name1, name2 string, fallback float64) float64 {
	minLen := minRuneLength(gen.Size())
	if runeLength(name1) < minLen || runeLength(name2) < minLen {
		return fallback
	}
	return gen.Similarity(name1, name2)
}

// minRuneLength минимальная длина строки в рунах, при которой n-граммный
// профиль еще имеет смысл (хотя бы три полных окна без учета padding)
func minRuneLength(n int) int {
	return 3 * n
}

// runeLength возвращает длину строки в рунах без пробелов
func runeLength(text string) int {
	count := 0
	for _, r := range text {
		if r != ' ' {
			count++
		}
	}
	return count
}

// Clamp01 ограничивает значение диапазоном [0, 1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
