package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/todo-subscription/internal/models"
)

const todoColumns = `id, title, user_id, created_at`

const matchTitle = `strpos(lower(title), lower($2)) > 0`

// CountTodos возвращает число задач владельца, чьё название содержит search
// без учёта регистра. Пустой search совпадает со всеми задачами.
func (s *Storage) CountTodos(ctx context.Context, ownerID, search string) (int, error) {
	const op = "storage.CountTodos"

	query := `SELECT COUNT(*) FROM todos WHERE user_id = $1 AND ` + matchTitle
	var count int
	if err := s.DB.QueryRowContext(ctx, query, ownerID, search).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ListTodos возвращает задачи владельца от новых к старым.
func (s *Storage) ListTodos(ctx context.Context, filter models.TodoFilter) ([]*models.Todo, error) {
	const op = "storage.ListTodos"

	query := `SELECT ` + todoColumns + `
			  FROM todos
			  WHERE user_id = $1 AND ` + matchTitle + `
			  ORDER BY created_at DESC, id DESC
			  LIMIT $3 OFFSET $4`
	rows, err := s.DB.QueryContext(ctx, query, filter.OwnerID, filter.Search, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	todos := make([]*models.Todo, 0, filter.Limit)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return todos, nil
}

// CreateTodo вставляет задачу без проверки лимита.
func (s *Storage) CreateTodo(ctx context.Context, todo *models.Todo) error {
	const op = "storage.CreateTodo"

	if err := insertTodo(ctx, s.DB, todo); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateTodoGuarded вставляет задачу, только если allow разрешает это при текущем
// числе задач владельца. Строка пользователя блокируется до конца транзакции,
// поэтому параллельные вставки одного владельца видят счётчик по очереди.
func (s *Storage) CreateTodoGuarded(ctx context.Context, todo *models.Todo, allow func(count int) bool) error {
	const op = "storage.CreateTodoGuarded"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, todo.UserID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var count int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos WHERE user_id = $1`, todo.UserID).Scan(&count); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !allow(count) {
		return fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
	}

	if err = insertTodo(ctx, tx, todo); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetTodo возвращает задачу по идентификатору.
func (s *Storage) GetTodo(ctx context.Context, id string) (*models.Todo, error) {
	const op = "storage.GetTodo"

	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`
	t, err := scanTodo(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrTodoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// DeleteTodo удаляет задачу, если она принадлежит ownerID.
func (s *Storage) DeleteTodo(ctx context.Context, id, ownerID string) error {
	const op = "storage.DeleteTodo"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		if isInvalidText(err) {
			return fmt.Errorf("%s: %w", op, ErrTodoNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrTodoNotFound)
	}
	return nil
}

// UpdateTodoTitle переименовывает задачу, если она принадлежит ownerID.
func (s *Storage) UpdateTodoTitle(ctx context.Context, id, ownerID, title string) (*models.Todo, error) {
	const op = "storage.UpdateTodoTitle"

	query := `UPDATE todos SET title = $3
			  WHERE id = $1 AND user_id = $2
			  RETURNING ` + todoColumns
	t, err := scanTodo(s.DB.QueryRowContext(ctx, query, id, ownerID, title))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrTodoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func insertTodo(ctx context.Context, db execer, todo *models.Todo) error {
	query := `INSERT INTO todos (` + todoColumns + `) VALUES ($1, $2, $3, $4)`
	_, err := db.ExecContext(ctx, query, todo.ID, todo.Title, todo.UserID, todo.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func scanTodo(row scanner) (*models.Todo, error) {
	t := &models.Todo{}
	if err := row.Scan(&t.ID, &t.Title, &t.UserID, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
