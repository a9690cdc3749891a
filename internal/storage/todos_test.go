package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-subscription/internal/models"
)

func TestStorage_Todos(t *testing.T) {
	s := setupTestStorage(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()

	f.user(t, "owner")
	f.user(t, "stranger")

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	first := f.todo(t, "owner", "Buy Milk", base)
	second := f.todo(t, "owner", "walk the dog", base.Add(time.Minute))
	third := f.todo(t, "owner", "MILKSHAKE recipe", base.Add(2*time.Minute))
	f.todo(t, "stranger", "milk for stranger", base.Add(3*time.Minute))

	t.Run("count with search", func(t *testing.T) {
		n, err := s.CountTodos(ctx, "owner", "")
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = s.CountTodos(ctx, "owner", "milk")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.CountTodos(ctx, "owner", "%")
		require.NoError(t, err)
		assert.Equal(t, 0, n, "search is a literal substring")
	})

	t.Run("list newest first", func(t *testing.T) {
		items, err := s.ListTodos(ctx, models.TodoFilter{OwnerID: "owner", Limit: 10})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, third.ID, items[0].ID)
		assert.Equal(t, second.ID, items[1].ID)
		assert.Equal(t, first.ID, items[2].ID)
		assert.True(t, first.CreatedAt.Equal(items[2].CreatedAt))

		items, err = s.ListTodos(ctx, models.TodoFilter{OwnerID: "owner", Search: "MiLk", Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, first.ID, items[0].ID)
	})

	t.Run("get and delete with ownership", func(t *testing.T) {
		got, err := s.GetTodo(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, "walk the dog", got.Title)

		_, err = s.GetTodo(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, ErrTodoNotFound)

		err = s.DeleteTodo(ctx, second.ID, "stranger")
		assert.ErrorIs(t, err, ErrTodoNotFound)

		require.NoError(t, s.DeleteTodo(ctx, second.ID, "owner"))
		_, err = s.GetTodo(ctx, second.ID)
		assert.ErrorIs(t, err, ErrTodoNotFound)

		err = s.DeleteTodo(ctx, second.ID, "owner")
		assert.ErrorIs(t, err, ErrTodoNotFound)
	})

	t.Run("rename", func(t *testing.T) {
		_, err := s.UpdateTodoTitle(ctx, first.ID, "stranger", "hijack")
		assert.ErrorIs(t, err, ErrTodoNotFound)

		renamed, err := s.UpdateTodoTitle(ctx, first.ID, "owner", "Buy oat milk")
		require.NoError(t, err)
		assert.Equal(t, "Buy oat milk", renamed.Title)
		assert.True(t, first.CreatedAt.Equal(renamed.CreatedAt))
	})

	t.Run("create for unknown owner", func(t *testing.T) {
		id, err := uuid.NewV7()
		require.NoError(t, err)
		err = s.CreateTodo(ctx, &models.Todo{ID: id.String(), Title: "x", UserID: "ghost", CreatedAt: base})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestStorage_CreateTodoGuarded(t *testing.T) {
	s := setupTestStorage(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()

	f.user(t, "free")
	const limit = 3
	allow := func(count int) bool { return count < limit }

	errs := make([]error, 10)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreateTodoGuarded(ctx, &models.Todo{
				ID:        uuid.NewString(),
				Title:     fmt.Sprintf("todo %d", i),
				UserID:    "free",
				CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
			}, allow)
		}(i)
	}
	wg.Wait()

	var ok, refused int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrQuotaExceeded)
		refused++
	}

	assert.Equal(t, limit, ok)
	assert.Equal(t, 10-limit, refused)

	n, err := s.CountTodos(ctx, "free", "")
	require.NoError(t, err)
	assert.Equal(t, limit, n)

	err = s.CreateTodoGuarded(ctx, &models.Todo{ID: uuid.NewString(), Title: "x", UserID: "ghost"}, allow)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
