package algorithms

import (
	"strings"

	"github.com/kljensen/snowball"
)

// Stemmer приводит слова к основе с помощью алгоритма Snowball.
// Используется нормализатором для латинских токенов в наименованиях,
// чтобы "connectors" и "connector" давали одинаковые n-граммы.
type Stemmer struct {
	language string
}

// NewStemmer создает новый стеммер для указанного языка
func NewStemmer(language string) *Stemmer {
	if language == "" {
		language = "english"
	}
	return &Stemmer{language: language}
}

// Stem возвращает основу слова.
// При ошибке стемминга возвращается исходное слово без изменений.
func (s *Stemmer) Stem(word string) string {
	normalized := strings.ToLower(strings.TrimSpace(word))
	if normalized == "" {
		return normalized
	}

	stemmed, err := snowball.Stem(normalized, s.language, true)
	if err != nil {
		return normalized
	}
	return stemmed
}

// StemAll применяет стемминг к каждому слову списка
func (s *Stemmer) StemAll(words []string) []string {
	result := make([]string, 0, len(words))
	for _, word := range words {
		result = append(result, s.Stem(word))
	}
	return result
}
