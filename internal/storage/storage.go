// Package storage реализует хранилище данных на основе PostgreSQL
// для пользователей и их задач.
//
// Все операции — атомарные одиночные запросы, кроме CreateTodoGuarded,
// которая проверяет лимит и вставляет задачу в одной транзакции.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	// ErrUserNotFound — пользователя с таким идентификатором нет.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken — почта уже принадлежит другому пользователю.
	ErrEmailTaken = errors.New("email already taken")
	// ErrTodoNotFound — задачи с таким идентификатором нет (или она принадлежит другому владельцу).
	ErrTodoNotFound = errors.New("todo not found")
	// ErrQuotaExceeded — политика лимита отказала во вставке.
	ErrQuotaExceeded = errors.New("todo quota exceeded")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// Ping проверяет доступность базы.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == pgerrcode.ForeignKeyViolation
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

func isInvalidText(err error) bool {
	return pgCode(err) == pgerrcode.InvalidTextRepresentation
}
