package registry

import (
	"sync"
	"testing"

	"github.com/nfrund/taskmanager/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n int }

func TestRegistry_SetAndLookup(t *testing.T) {
	r := New(&config.Config{AppName: "TaskApp"})
	assert.Equal(t, "TaskApp", r.Config().GetAppName())

	key := Key[*counter]("tasks.counter")
	_, ok := Get(r, key)
	assert.False(t, ok)

	_, err := Lookup(r, key)
	require.ErrorIs(t, err, ErrNotRegistered)
	assert.ErrorContains(t, err, "tasks.counter")

	want := &counter{n: 3}
	Set(r, key, want)
	got, err := Lookup(r, key)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestRegistry_TypeMismatch(t *testing.T) {
	r := New(&config.Config{})
	Set(r, Key[int]("shared"), 42)

	_, ok := Get(r, Key[string]("shared"))
	assert.False(t, ok, "a key of another type must not match")

	_, err := Lookup(r, Key[string]("shared"))
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestRegistry_KeysSorted(t *testing.T) {
	r := New(&config.Config{})
	Set(r, Key[int]("tasks.b"), 2)
	Set(r, Key[int]("tasks.a"), 1)
	Set(r, Key[int]("tasks.a"), 10)

	assert.Equal(t, []string{"tasks.a", "tasks.b"}, r.Keys())
	v, _ := Get(r, Key[int]("tasks.a"))
	assert.Equal(t, 10, v, "set replaces")
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New(&config.Config{})
	key := Key[int]("tasks.n")

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() { defer wg.Done(); Set(r, key, i) }()
		go func() { defer wg.Done(); _, _ = Get(r, key) }()
	}
	wg.Wait()

	_, ok := Get(r, key)
	assert.True(t, ok)
}
