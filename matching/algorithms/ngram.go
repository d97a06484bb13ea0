package algorithms

import (
	"strings"
)

// NGramGenerator генерирует символьные N-граммы из текста
type NGramGenerator struct {
	n int // размер граммы (2 для биграмм, 3 для триграмм)
}

// NewNGramGenerator создает новый генератор N-грамм
func NewNGramGenerator(n int) *NGramGenerator {
	if n < 1 {
		n = 2 // по умолчанию биграммы
	}
	return &NGramGenerator{n: n}
}

// Size возвращает размер граммы
func (ng *NGramGenerator) Size() int {
	return ng.n
}

// Generate создает N-граммы из текста.
// Добавляет padding-символы в начале и конце, чтобы первые и последние
// символы участвовали в сравнении с тем же весом, что и средние.
func (ng *NGramGenerator) Generate(text string) []string {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return nil
	}

	padded := strings.Repeat("_", ng.n-1) + normalized + strings.Repeat("_", ng.n-1)

	var ngrams []string
	runes := []rune(padded)

	for i := 0; i <= len(runes)-ng.n; i++ {
		ngram := string(runes[i : i+ng.n])
		// Граммы из одного padding пропускаем
		if strings.Trim(ngram, "_") != "" {
			ngrams = append(ngrams, ngram)
		}
	}

	return ngrams
}

// GenerateSet создает множество уникальных N-грамм
func (ng *NGramGenerator) GenerateSet(text string) map[string]bool {
	ngrams := ng.Generate(text)
	set := make(map[string]bool, len(ngrams))
	for _, g := range ngrams {
		set[g] = true
	}
	return set
}

// Similarity вычисляет схожесть Жаккара двух текстов по N-граммам.
// Возвращает значение от 0.0 до 1.0 (1.0 = идентичные профили грамм).
func (ng *NGramGenerator) Similarity(text1, text2 string) float64 {
	set1 := ng.GenerateSet(text1)
	set2 := ng.GenerateSet(text2)

	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	return jaccardOfSets(set1, set2)
}
