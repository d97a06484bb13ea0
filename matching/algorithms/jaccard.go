package algorithms

// JaccardIndex вычисляет индекс Жаккара для сравнения множеств
// Индекс Жаккара = |A ∩ B| / |A ∪ B|
// Значение от 0.0 (нет общих элементов) до 1.0 (полное совпадение)
type JaccardIndex struct{}

// NewJaccardIndex создает новый вычислитель индекса Жаккара
func NewJaccardIndex() *JaccardIndex {
	return &JaccardIndex{}
}

// CharSetSimilarity вычисляет индекс Жаккара по множествам символов двух строк
func (j *JaccardIndex) CharSetSimilarity(text1, text2 string) float64 {
	if text1 == "" && text2 == "" {
		return 1.0
	}
	if text1 == "" || text2 == "" {
		return 0.0
	}

	set1 := runeSet(text1)
	set2 := runeSet(text2)

	intersection := 0
	for r := range set1 {
		if set2[r] {
			intersection++
		}
	}

	union := len(set1)
	for r := range set2 {
		if !set1[r] {
			union++
		}
	}

	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// SimilaritySets вычисляет индекс Жаккара для двух множеств строк напрямую
func (j *JaccardIndex) SimilaritySets(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}
	return jaccardOfSets(set1, set2)
}

// runeSet возвращает множество символов строки.
// Пробелы не учитываются: они несут только разметку между токенами.
func runeSet(text string) map[rune]bool {
	set := make(map[rune]bool)
	for _, r := range text {
		if r == ' ' {
			continue
		}
		set[r] = true
	}
	return set
}

// jaccardOfSets вычисляет индекс Жаккара для двух множеств строк
func jaccardOfSets(set1, set2 map[string]bool) float64 {
	intersection := 0
	for elem := range set1 {
		if set2[elem] {
			intersection++
		}
	}

	union := len(set1)
	for elem := range set2 {
		if !set1[elem] {
			union++
		}
	}

	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}
