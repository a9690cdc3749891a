// Package cache хранит снимки пользователей в redis, чтобы чтение статуса
// подписки не ходило в базу на каждый запрос.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/todo-subscription/internal/config"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
)

// Cache — обёртка над клиентом redis со значениями в JSON.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// Get читает значение по ключу в result. found=false, если ключа нет.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	err = json.Unmarshal([]byte(val), result)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение в JSON с временем жизни expiration.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключ.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает клиент.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// UserKey — ключ снимка пользователя.
func UserKey(id string) string {
	return "user:" + id
}

// UserCache кеширует пользователей с ограниченным временем жизни.
type UserCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewUserCache создаёт кеш пользователей поверх c.
func NewUserCache(c *Cache, ttl time.Duration) *UserCache {
	return &UserCache{cache: c, ttl: ttl}
}

// GetUser возвращает снимок пользователя или nil, если его нет в кеше.
func (u *UserCache) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := u.cache.Get(ctx, UserKey(id), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// SetUser сохраняет снимок. Запись живёт не дольше, чем до конца окна подписки,
// поэтому истёкшая подписка не читается из кеша как активная.
func (u *UserCache) SetUser(ctx context.Context, user *models.User, now time.Time) error {
	ttl := u.ttl
	if user.SubscriptionEnds != nil {
		left := user.SubscriptionEnds.Sub(now)
		if left <= 0 {
			return u.InvalidateUser(ctx, user.ID)
		}
		if left < ttl {
			ttl = left
		}
	}
	return u.cache.Set(ctx, UserKey(user.ID), user, ttl)
}

// InvalidateUser удаляет снимок пользователя.
func (u *UserCache) InvalidateUser(ctx context.Context, id string) error {
	return u.cache.Invalidate(ctx, UserKey(id))
}
