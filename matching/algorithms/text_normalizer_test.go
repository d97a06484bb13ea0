package algorithms

import "testing"

// Тесты нормализатора наименований
func TestTextNormalizer_Normalize(t *testing.T) {
	tn := NewTextNormalizer(false)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"нижний регистр", "Резистор SMD", "резистор smd"},
		{"схлопывание пробелов", "  резистор   smd  ", "резистор smd"},
		{"пунктуация заменяется пробелом", "модуль, 5в (набор)", "модуль 5в набор"},
		{"полноширинные символы", "ＡＢＣ１２３", "abc123"},
		{"иероглифы сохраняются", "电子元件模块", "电子元件模块"},
		{"табы и переводы строк", "модуль\t5в\nнабор", "модуль 5в набор"},
		{"пустая строка", "", ""},
		{"только пунктуация", "...!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tn.Normalize(tt.input)
			if result != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// Нормализация не должна переводить текст между языками
func TestTextNormalizer_NoTranslation(t *testing.T) {
	tn := NewTextNormalizer(false)

	input := "电子元件 connector 模块"
	result := tn.Normalize(input)
	if result != "电子元件 connector 模块" {
		t.Errorf("нормализация изменила смысловые символы: %q -> %q", input, result)
	}
}

// Стемминг применяется только к латинским токенам
func TestTextNormalizer_LatinStemming(t *testing.T) {
	tn := NewTextNormalizer(true)

	result := tn.Normalize("Connectors 电子模块")
	if result != "connector 电子模块" {
		t.Errorf("ожидался стемминг только латинского токена, получено %q", result)
	}
}

func TestStemmer_Stem(t *testing.T) {
	s := NewStemmer("english")

	tests := []struct {
		input    string
		expected string
	}{
		{"connectors", "connector"},
		{"modules", "modul"},
		{"", ""},
	}

	for _, tt := range tests {
		result := s.Stem(tt.input)
		if result != tt.expected {
			t.Errorf("Stem(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
