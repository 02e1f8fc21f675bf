package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStore_Contract(t *testing.T) {
	testutils.TaskRepositoryContract(t, func(t *testing.T) domain.TaskRepository {
		return NewTaskStore()
	})
}

func TestTaskStore_ConcurrentCreate(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Create(ctx, domain.TaskCreate{Title: fmt.Sprintf("task %d", i), Description: "d"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 50)
	for i, task := range tasks {
		assert.Equal(t, int64(i+1), task.ID, "ids are dense and ordered")
	}
}

func TestTaskStore_GetReturnsCopy(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	created, err := store.Create(ctx, domain.TaskCreate{Title: "original", Description: "d"})
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Title)
}

func TestTaskStore_CreateBatch(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	_, err := store.Create(ctx, domain.TaskCreate{Title: "first", Description: "d"})
	require.NoError(t, err)

	created, err := store.CreateBatch(ctx, []domain.TaskCreate{
		{Title: "second", Description: "d"},
		{Title: "third", Description: "d"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, []int64{2, 3}, []int64{created[0].ID, created[1].ID})

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}
