package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Hooks holds the compiled scripts of one directory, keyed by file name
// without extension (before_create.tengo is hook "before_create"). Scripts
// assign to the declared globals to hand values back to the caller.
type Hooks struct {
	dir    string
	vars   []string
	engine *TengoEngine

	mu      sync.RWMutex
	scripts map[string]*CompiledScript

	watcher *fsnotify.Watcher
}

// NewHooks compiles every script in dir. vars lists the globals available to
// every script. A script that fails to compile is logged and skipped so one
// bad file does not disable the others.
func NewHooks(dir string, engine *TengoEngine, vars ...string) (*Hooks, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("hooks directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("hooks directory %q is not a directory", dir)
	}

	h := &Hooks{
		dir:     dir,
		vars:    vars,
		engine:  engine,
		scripts: make(map[string]*CompiledScript),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading hooks directory %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isScriptFile(entry.Name()) {
			continue
		}
		if err := h.load(filepath.Join(dir, entry.Name())); err != nil {
			slog.Error("Failed to load hook script", "event", "hook_load_failed", "path", entry.Name(), "error", err)
		}
	}
	slog.Info("Hook scripts loaded", "event", "hooks_loaded", "dir", dir, "hooks", h.Names())
	return h, nil
}

// Has reports whether a script is loaded for the named hook.
func (h *Hooks) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.scripts[name]
	return ok
}

// Names returns the loaded hook names in sorted order.
func (h *Hooks) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.scripts))
	for name := range h.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named hook. It returns ErrNotFound when no script is loaded.
func (h *Hooks) Run(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	h.mu.RLock()
	cs, ok := h.scripts[name]
	h.mu.RUnlock()
	if !ok {
		return nil, NewScriptError(ErrorTypeNotFound, name, "no hook script loaded", ErrNotFound)
	}
	return h.engine.Execute(ctx, cs, input)
}

// Watch reloads scripts when files in the directory change until ctx is done.
// A script that no longer compiles keeps its previous version.
func (h *Hooks) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file system watcher: %w", err)
	}
	if err := watcher.Add(h.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %q: %w", h.dir, err)
	}

	h.mu.Lock()
	h.watcher = watcher
	h.mu.Unlock()

	go h.watchFiles(ctx, watcher)
	slog.Debug("Started file system watcher for hook hot-reloading", "event", "hooks_watch_started", "dir", h.dir)
	return nil
}

// Close stops the watcher, if one is running.
func (h *Hooks) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watcher == nil {
		return nil
	}
	err := h.watcher.Close()
	h.watcher = nil
	return err
}

func (h *Hooks) watchFiles(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			h.handleFileEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File system watcher error", "event", "hooks_watch_error", "error", err)
		}
	}
}

func (h *Hooks) handleFileEvent(event fsnotify.Event) {
	if !isScriptFile(event.Name) {
		return
	}
	name := hookName(event.Name)

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		if err := h.load(event.Name); err != nil {
			slog.Error("Failed to reload hook script, keeping previous version", "event", "hook_reload_failed", "hook", name, "error", err)
			return
		}
		slog.Info("Hook script reloaded", "event", "hook_reloaded", "hook", name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		h.mu.Lock()
		delete(h.scripts, name)
		h.mu.Unlock()
		slog.Info("Hook script removed", "event", "hook_removed", "hook", name)
	}
}

func (h *Hooks) load(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s := &Script{
		Name:         hookName(path),
		Path:         path,
		Content:      string(content),
		LastModified: info.ModTime(),
	}
	cs, err := h.engine.Compile(s, h.vars...)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.scripts[s.Name] = cs
	h.mu.Unlock()
	return nil
}

func isScriptFile(path string) bool {
	return strings.HasSuffix(path, FileExt)
}

func hookName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), FileExt)
}
