package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config конфигурация сервера сопоставления
type Config struct {
	// Сервер
	Port string `json:"port"`

	// База данных
	DatabasePath    string        `json:"database_path"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"-"`

	// Логирование
	LogLevel string `json:"log_level"`

	// Сопоставление
	Matching MatchingConfig `json:"matching"`

	// Загрузка изображений
	Images ImageFetchConfig `json:"images"`
}

// MatchingConfig параметры алгоритмов сопоставления
type MatchingConfig struct {
	// Threshold порог парной оценки, строго внутри (0, 1)
	Threshold float64 `json:"threshold"`
	// Workers число воркеров парной оценки; 0 — по числу CPU
	Workers int `json:"workers"`

	// Веса текстовой оценки: посимвольный Жаккар, биграммы, триграммы
	CharSetWeight float64 `json:"char_set_weight"`
	BigramWeight  float64 `json:"bigram_weight"`
	TrigramWeight float64 `json:"trigram_weight"`

	// Веса гибридного слияния текстовой и визуальной оценок
	TextWeight  float64 `json:"text_weight"`
	ImageWeight float64 `json:"image_weight"`
}

// ImageFetchConfig параметры загрузки изображений листингов
type ImageFetchConfig struct {
	Timeout           time.Duration `json:"-"`
	RequestsPerSecond float64       `json:"requests_per_second"`
}

// configJSON структура конфигурационного файла: длительности как строки,
// числовые параметры сопоставления как указатели, чтобы явный ноль в файле
// отличался от отсутствующего значения
type configJSON struct {
	Port            string           `json:"port"`
	DatabasePath    string           `json:"database_path"`
	MaxOpenConns    int              `json:"max_open_conns"`
	MaxIdleConns    int              `json:"max_idle_conns"`
	ConnMaxLifetime string           `json:"conn_max_lifetime"`
	LogLevel        string           `json:"log_level"`
	Matching        matchingJSON     `json:"matching"`
	Images          struct {
		Timeout           string  `json:"timeout"`
		RequestsPerSecond float64 `json:"requests_per_second"`
	} `json:"images"`
}

type matchingJSON struct {
	Threshold     *float64 `json:"threshold"`
	Workers       *int     `json:"workers"`
	CharSetWeight *float64 `json:"char_set_weight"`
	BigramWeight  *float64 `json:"bigram_weight"`
	TrigramWeight *float64 `json:"trigram_weight"`
	TextWeight    *float64 `json:"text_weight"`
	ImageWeight   *float64 `json:"image_weight"`
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем
// JSON-файл (если путь передан или задан через CONFIG_PATH), затем
// переменные окружения поверх
func LoadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
		log.Printf("Конфигурация загружена из %s", path)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	return config, nil
}

// defaultConfig возвращает конфигурацию по умолчанию
func defaultConfig() *Config {
	return &Config{
		Port:            "9999",
		DatabasePath:    "pricematcher.db",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		LogLevel:        "INFO",
		Matching: MatchingConfig{
			Threshold:     0.70,
			Workers:       0,
			CharSetWeight: 0.4,
			BigramWeight:  0.4,
			TrigramWeight: 0.2,
			TextWeight:    0.6,
			ImageWeight:   0.4,
		},
		Images: ImageFetchConfig{
			Timeout:           15 * time.Second,
			RequestsPerSecond: 5,
		},
	}
}

// applyFile накладывает значения из JSON-файла
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("не удалось прочитать конфигурацию %s: %w", path, err)
	}

	var cfgJSON configJSON
	if err := json.Unmarshal(data, &cfgJSON); err != nil {
		return fmt.Errorf("не удалось разобрать конфигурацию %s: %w", path, err)
	}

	if cfgJSON.Port != "" {
		c.Port = cfgJSON.Port
	}
	if cfgJSON.DatabasePath != "" {
		c.DatabasePath = cfgJSON.DatabasePath
	}
	if cfgJSON.MaxOpenConns > 0 {
		c.MaxOpenConns = cfgJSON.MaxOpenConns
	}
	if cfgJSON.MaxIdleConns > 0 {
		c.MaxIdleConns = cfgJSON.MaxIdleConns
	}
	if cfgJSON.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfgJSON.ConnMaxLifetime); err == nil {
			c.ConnMaxLifetime = d
		}
	}
	if cfgJSON.LogLevel != "" {
		c.LogLevel = cfgJSON.LogLevel
	}
	if cfgJSON.Matching.Threshold != nil {
		c.Matching.Threshold = *cfgJSON.Matching.Threshold
	}
	if cfgJSON.Matching.Workers != nil {
		c.Matching.Workers = *cfgJSON.Matching.Workers
	}
	if cfgJSON.Matching.CharSetWeight != nil {
		c.Matching.CharSetWeight = *cfgJSON.Matching.CharSetWeight
	}
	if cfgJSON.Matching.BigramWeight != nil {
		c.Matching.BigramWeight = *cfgJSON.Matching.BigramWeight
	}
	if cfgJSON.Matching.TrigramWeight != nil {
		c.Matching.TrigramWeight = *cfgJSON.Matching.TrigramWeight
	}
	if cfgJSON.Matching.TextWeight != nil {
		c.Matching.TextWeight = *cfgJSON.Matching.TextWeight
	}
	if cfgJSON.Matching.ImageWeight != nil {
		c.Matching.ImageWeight = *cfgJSON.Matching.ImageWeight
	}
	if cfgJSON.Images.Timeout != "" {
		if d, err := time.ParseDuration(cfgJSON.Images.Timeout); err == nil {
			c.Images.Timeout = d
		}
	}
	if cfgJSON.Images.RequestsPerSecond > 0 {
		c.Images.RequestsPerSecond = cfgJSON.Images.RequestsPerSecond
	}

	return nil
}

// applyEnv накладывает переменные окружения поверх текущих значений
func (c *Config) applyEnv() {
	c.Port = getEnv("SERVER_PORT", c.Port)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.MaxOpenConns)
	c.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.MaxIdleConns)
	c.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", c.ConnMaxLifetime)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Matching.Threshold = getEnvFloat("MATCHING_THRESHOLD", c.Matching.Threshold)
	c.Matching.Workers = getEnvInt("MATCHING_WORKERS", c.Matching.Workers)
	c.Images.Timeout = getEnvDuration("IMAGE_FETCH_TIMEOUT", c.Images.Timeout)
	c.Images.RequestsPerSecond = getEnvFloat("IMAGE_FETCH_RPS", c.Images.RequestsPerSecond)
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64 или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
