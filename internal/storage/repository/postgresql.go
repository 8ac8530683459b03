// Package repository реализует хранилище пользователей на PostgreSQL:
// чтение и запись состояния подписки, push-токенов и агрегированной
// статистики по действующим планам.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultTimeout = 5 * time.Second

// Storage инкапсулирует соединение с PostgreSQL. Каждый запрос ограничен timeout.
type Storage struct {
	DB      *sql.DB
	timeout time.Duration
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string, timeout time.Duration) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s := NewWithDB(db, timeout)
	if err = s.Ping(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// NewWithDB оборачивает уже открытое соединение.
func NewWithDB(db *sql.DB, timeout time.Duration) *Storage {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Storage{DB: db, timeout: timeout}
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.DB.PingContext(ctx)
}

// Close закрывает соединение.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// CheckDatabaseReady проверяет, что миграции применены.
func CheckDatabaseReady(storage *Storage) error {
	ctx, cancel := context.WithTimeout(context.Background(), storage.timeout)
	defer cancel()

	var exists bool
	err := storage.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'users'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("required table users: query error: %w", err)
	}
	if !exists {
		return fmt.Errorf("required table users missing")
	}
	return nil
}

func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
