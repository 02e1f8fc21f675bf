package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNewHooks_LoadsScripts(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "before_create.tengo", `title = title + "!"`)
	writeScript(t, dir, "broken.tengo", `title = (`)
	writeScript(t, dir, "README.md", "not a script")

	hooks, err := NewHooks(dir, NewTengoEngine(), "title")
	require.NoError(t, err)

	assert.Equal(t, []string{"before_create"}, hooks.Names())
	assert.True(t, hooks.Has("before_create"))
	assert.False(t, hooks.Has("broken"))

	out, err := hooks.Run(context.Background(), "before_create", map[string]any{"title": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi!", out["title"])
}

func TestHooks_RunMissing(t *testing.T) {
	hooks, err := NewHooks(t.TempDir(), NewTengoEngine())
	require.NoError(t, err)

	_, err = hooks.Run(context.Background(), "before_update", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewHooks_BadDirectory(t *testing.T) {
	_, err := NewHooks(filepath.Join(t.TempDir(), "missing"), NewTengoEngine())
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.tengo")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewHooks(file, NewTengoEngine())
	assert.Error(t, err)
}

func TestHooks_Watch(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "before_create.tengo", `title = "v1"`)

	hooks, err := NewHooks(dir, NewTengoEngine(), "title")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hooks.Watch(ctx))
	defer hooks.Close()

	titleAfterRun := func() any {
		out, err := hooks.Run(context.Background(), "before_create", nil)
		if err != nil {
			return nil
		}
		return out["title"]
	}

	writeScript(t, dir, "before_create.tengo", `title = "v2"`)
	assert.Eventually(t, func() bool { return titleAfterRun() == "v2" }, 2*time.Second, 20*time.Millisecond)

	// A broken edit keeps the last good version.
	writeScript(t, dir, "before_create.tengo", `title = (`)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "v2", titleAfterRun())

	writeScript(t, dir, "before_update.tengo", `title = "new"`)
	assert.Eventually(t, func() bool { return hooks.Has("before_update") }, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "before_update.tengo")))
	assert.Eventually(t, func() bool { return !hooks.Has("before_update") }, 2*time.Second, 20*time.Millisecond)
}
