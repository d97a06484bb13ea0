package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pricematcher/matching/algorithms"
)

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	var errors []string

	// Валидация порта
	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	// Валидация базы данных
	if c.DatabasePath == "" {
		errors = append(errors, "database path is required")
	}
	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns < 1 {
		errors = append(errors, "max idle connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, "connection max lifetime must be at least 1 second")
	}

	// Валидация параметров сопоставления
	if err := algorithms.ValidateThreshold(c.Matching.Threshold); err != nil {
		errors = append(errors, err.Error())
	}
	if c.Matching.Workers < 0 {
		errors = append(errors, "matching workers cannot be negative")
	}
	if err := algorithms.ValidateWeights("text_weights",
		c.Matching.CharSetWeight, c.Matching.BigramWeight, c.Matching.TrigramWeight); err != nil {
		errors = append(errors, err.Error())
	}
	if err := algorithms.ValidateWeights("hybrid_weights",
		c.Matching.TextWeight, c.Matching.ImageWeight); err != nil {
		errors = append(errors, err.Error())
	}

	// Валидация загрузки изображений
	if c.Images.Timeout < time.Second {
		errors = append(errors, "image fetch timeout must be at least 1 second")
	}
	if c.Images.RequestsPerSecond <= 0 {
		errors = append(errors, "image fetch rate must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

// TextWeights возвращает веса текстовой оценки в виде, пригодном для скорера
func (c *Config) TextWeights() algorithms.TextWeights {
	return algorithms.TextWeights{
		CharSet: c.Matching.CharSetWeight,
		Bigram:  c.Matching.BigramWeight,
		Trigram: c.Matching.TrigramWeight,
	}
}

// HybridWeights возвращает веса гибридного слияния
func (c *Config) HybridWeights() algorithms.HybridWeights {
	return algorithms.HybridWeights{
		Text:  c.Matching.TextWeight,
		Image: c.Matching.ImageWeight,
	}
}
