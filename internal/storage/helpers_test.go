package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/todo-subscription/internal/migrations"
	"github.com/magabrotheeeer/todo-subscription/internal/models"
)

// setupTestStorage поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	path, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(s.DB, path))

	return s
}

// testDataFactory создаёт тестовые записи напрямую через хранилище.
type testDataFactory struct {
	storage *Storage
}

func (f *testDataFactory) user(t *testing.T, id string) {
	t.Helper()
	created, err := f.storage.CreateUser(context.Background(), models.User{ID: id, Email: id + "@example.com"})
	require.NoError(t, err)
	require.True(t, created)
}

func (f *testDataFactory) todo(t *testing.T, ownerID, title string, createdAt time.Time) *models.Todo {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	todo := &models.Todo{
		ID:        id.String(),
		Title:     title,
		UserID:    ownerID,
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, f.storage.CreateTodo(context.Background(), todo))
	return todo
}
