package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TaskRepositoryContract runs the behaviour every domain.TaskRepository must share.
// newRepo must return an empty repository; it is called once per subtest.
func TaskRepositoryContract(t *testing.T, newRepo func(t *testing.T) domain.TaskRepository) {
	t.Helper()

	ctx := context.Background()

	t.Run("empty list", func(t *testing.T) {
		repo := newRepo(t)
		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("create assigns increasing ids and timestamps", func(t *testing.T) {
		repo := newRepo(t)
		before := time.Now().Add(-time.Minute)

		first, err := repo.Create(ctx, domain.TaskCreate{Title: "First", Description: "one"})
		require.NoError(t, err)
		second, err := repo.Create(ctx, domain.TaskCreate{Title: "Second", Description: "two"})
		require.NoError(t, err)

		assert.Positive(t, first.ID)
		assert.Greater(t, second.ID, first.ID)
		assert.Equal(t, "First", first.Title)
		assert.Equal(t, "one", first.Description)
		assert.True(t, first.CreatedAt.After(before), "created_at should be set")
		assert.False(t, first.UpdatedAt.IsZero(), "updated_at should be set")
	})

	t.Run("list is ordered by id", func(t *testing.T) {
		repo := newRepo(t)
		for _, title := range []string{"a", "b", "c"} {
			_, err := repo.Create(ctx, domain.TaskCreate{Title: title, Description: "d"})
			require.NoError(t, err)
		}

		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "a", tasks[0].Title)
		assert.Equal(t, "c", tasks[2].Title)
		assert.Less(t, tasks[0].ID, tasks[1].ID)
		assert.Less(t, tasks[1].ID, tasks[2].ID)
	})

	t.Run("get", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, domain.TaskCreate{Title: "Find me", Description: "here"})
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Find me", got.Title)

		_, err = repo.Get(ctx, created.ID+1000)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("update changes only the given fields", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, domain.TaskCreate{Title: "Old", Description: "keep"})
		require.NoError(t, err)

		title := "New"
		updated, err := repo.Update(ctx, created.ID, domain.TaskUpdate{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "New", updated.Title)
		assert.Equal(t, "keep", updated.Description)
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "New", got.Title)
	})

	t.Run("empty update returns the task unchanged", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, domain.TaskCreate{Title: "Same", Description: "same"})
		require.NoError(t, err)

		got, err := repo.Update(ctx, created.ID, domain.TaskUpdate{})
		require.NoError(t, err)
		assert.Equal(t, "Same", got.Title)
	})

	t.Run("update missing task", func(t *testing.T) {
		repo := newRepo(t)
		title := "x"
		_, err := repo.Update(ctx, 424242, domain.TaskUpdate{Title: &title})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, domain.TaskCreate{Title: "Gone", Description: "soon"})
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, created.ID))
		_, err = repo.Get(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = repo.Delete(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Create(ctx, domain.TaskCreate{Title: "1", Description: "1"})
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, first.ID))

		second, err := repo.Create(ctx, domain.TaskCreate{Title: "2", Description: "2"})
		require.NoError(t, err)
		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("ping", func(t *testing.T) {
		repo := newRepo(t)
		assert.NoError(t, repo.Ping(ctx))
	})
}
