package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrConflict конфликт версий при конкурентном изменении группы.
// Вызывающая сторона должна повторить операцию на свежих данных.
var ErrConflict = errors.New("конфликт версий: группа изменена конкурентно")

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("запись не найдена")

// DBConfig конфигурация пула соединений
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultDBConfig возвращает конфигурацию пула по умолчанию
func DefaultDBConfig() DBConfig {
	return DBConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// DB обертка над SQLite с доменными операциями хранилищ:
// листинги, группы сопоставления, парные оценки, история цен
type DB struct {
	conn *sql.DB
	path string
}

// NewDB создает базу данных с конфигурацией пула по умолчанию
func NewDB(path string) (*DB, error) {
	return NewDBWithConfig(path, DefaultDBConfig())
}

// NewDBWithConfig создает базу данных и выполняет миграции
func NewDBWithConfig(path string, cfg DBConfig) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть базу данных %s: %w", path, err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("не удалось включить foreign keys: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("не удалось включить WAL: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("База данных открыта: %s", path)
	return db, nil
}

// Close закрывает соединение с базой данных
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path возвращает путь к файлу базы данных
func (db *DB) Path() string {
	return db.path
}
