package algorithms

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// TextNormalizer нормализует наименования товаров перед сравнением.
// Нормализация не выполняет перевод: все смысловые символы (включая
// иероглифы и кириллицу) сохраняются как есть.
type TextNormalizer struct {
	stemLatinTokens bool
	stemmer         *Stemmer
}

// NewTextNormalizer создает новый нормализатор наименований
func NewTextNormalizer(stemLatinTokens bool) *TextNormalizer {
	tn := &TextNormalizer{
		stemLatinTokens: stemLatinTokens,
	}
	if stemLatinTokens {
		tn.stemmer = NewStemmer("english")
	}
	return tn
}

// Normalize выполняет полную нормализацию наименования:
// полноширинные символы приводятся к полуширинным, текст — к нижнему
// регистру, пунктуация заменяется пробелами, пробелы схлопываются.
func (tn *TextNormalizer) Normalize(text string) string {
	// 1. Unicode-нормализация NFKC (совместимые формы приводятся к каноническим)
	text = norm.NFKC.String(text)

	// 2. Полноширинные символы -> полуширинные (Ａ -> A, １ -> 1)
	text = width.Fold.String(text)

	// 3. Нижний регистр
	text = strings.ToLower(text)

	// 4. Пунктуация и прочий шум -> пробел
	text = replacePunctuation(text)

	// 5. Схлопывание пробельных символов
	text = strings.Join(strings.Fields(text), " ")

	// 6. Стемминг латинских токенов (если включен)
	if tn.stemLatinTokens && tn.stemmer != nil {
		text = tn.stemLatinOnly(text)
	}

	return strings.TrimSpace(text)
}

// replacePunctuation заменяет знаки пунктуации и символы-разделители пробелами.
// Буквы, цифры и иероглифы любых письменностей сохраняются.
func replacePunctuation(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			builder.WriteRune(' ')
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// stemLatinOnly применяет стемминг только к чисто латинским токенам.
// Токены с иероглифами, кириллицей и цифрами не трогаем.
func (tn *TextNormalizer) stemLatinOnly(text string) string {
	words := strings.Fields(text)
	result := make([]string, 0, len(words))
	for _, word := range words {
		if isLatinToken(word) {
			result = append(result, tn.stemmer.Stem(word))
		} else {
			result = append(result, word)
		}
	}
	return strings.Join(result, " ")
}

// isLatinToken проверяет, состоит ли токен только из латинских букв
func isLatinToken(word string) bool {
	for _, r := range word {
		if !unicode.In(r, unicode.Latin) {
			return false
		}
	}
	return word != ""
}
