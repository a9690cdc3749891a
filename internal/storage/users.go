package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/todo-subscription/internal/models"
)

// CreateUser сохраняет пользователя без подписки. Повторная доставка с тем же
// идентификатором ничего не меняет; created сообщает, была ли запись создана.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (bool, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (id, email, is_subscribed, subscription_ends)
			  VALUES ($1, $2, FALSE, NULL)
			  ON CONFLICT (id) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query, user.ID, user.Email)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, is_subscribed, subscription_ends, created_at
			  FROM users
			  WHERE id = $1`
	u := &models.User{}
	var ends sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.IsSubscribed, &ends, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ends.Valid {
		t := ends.Time.UTC()
		u.SubscriptionEnds = &t
	}
	return u, nil
}

// ActivateSubscription устанавливает новое окно подписки, заменяя предыдущее.
func (s *Storage) ActivateSubscription(ctx context.Context, id string, ends time.Time) error {
	const op = "storage.ActivateSubscription"

	query := `UPDATE users
			  SET is_subscribed = TRUE,
			      subscription_ends = $2
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, id, ends)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// ExpireSubscription снимает подписку, только если её окно закончилось строго до now.
// Если окно успели продлить, запись не меняется и возвращается false.
func (s *Storage) ExpireSubscription(ctx context.Context, id string, now time.Time) (bool, error) {
	const op = "storage.ExpireSubscription"

	query := `UPDATE users
			  SET is_subscribed = FALSE,
			      subscription_ends = NULL
			  WHERE id = $1 AND subscription_ends < $2`
	res, err := s.DB.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}
