package algorithms

import (
	"fmt"
)

// ScoreRangeError ошибка выхода оценки схожести за пределы [0, 1].
// Сигнализирует о баге в скорере: такая оценка не должна попадать
// в кластеризацию, иначе группы будут собраны на мусорных данных.
type ScoreRangeError struct {
	Quantity string  // какая оценка вышла за пределы (text_score, image_score, ...)
	Value    float64 // фактическое значение
}

// Error реализует интерфейс error
func (e *ScoreRangeError) Error() string {
	return fmt.Sprintf("оценка %s вне диапазона [0, 1]: %g", e.Quantity, e.Value)
}

// NewScoreRangeError создает ошибку выхода оценки за диапазон
func NewScoreRangeError(quantity string, value float64) *ScoreRangeError {
	return &ScoreRangeError{Quantity: quantity, Value: value}
}

// ConfigurationError ошибка конфигурации алгоритмов (порог, веса)
type ConfigurationError struct {
	Param   string
	Message string
}

// Error реализует интерфейс error
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("некорректная конфигурация %s: %s", e.Param, e.Message)
}

// NewConfigurationError создает ошибку конфигурации
func NewConfigurationError(param, message string) *ConfigurationError {
	return &ConfigurationError{Param: param, Message: message}
}

// ValidateScore проверяет, что оценка лежит в [0, 1]
func ValidateScore(quantity string, value float64) error {
	if value < 0 || value > 1 {
		return NewScoreRangeError(quantity, value)
	}
	return nil
}

// ValidateThreshold проверяет валидность порога кластеризации.
// Порог должен лежать строго внутри (0, 1): порог 0 склеивает все
// подряд, порог 1 не склеивает ничего.
func ValidateThreshold(threshold float64) error {
	if threshold <= 0 || threshold >= 1 {
		return NewConfigurationError("threshold",
			fmt.Sprintf("порог должен лежать в интервале (0, 1), получено %.2f", threshold))
	}
	return nil
}

// ValidateWeights проверяет, что веса неотрицательны и дают положительную сумму
func ValidateWeights(param string, weights ...float64) error {
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return NewConfigurationError(param, "веса должны быть неотрицательными")
		}
		total += w
	}
	if total <= 0 {
		return NewConfigurationError(param, "сумма весов должна быть больше нуля")
	}
	return nil
}
