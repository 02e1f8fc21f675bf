package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/logging"
)

// ConfigForTests loads the .env.test file, when the project has one, and returns a
// valid config.Provider. This is the definitive way to get configuration for
// integration tests.
func ConfigForTests(t *testing.T) config.Provider {
	t.Helper()

	// 1. Find project root by looking for go.mod to reliably locate .env.test
	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			break
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}

	// 2. Read the .env.test file if present. CI supplies the same keys directly.
	env, err := godotenv.Read(filepath.Join(path, ".env.test"))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("failed to load .env.test file: %v", err)
	}

	// 3. Use t.Setenv so every variable is restored when the test ends.
	for key, value := range env {
		t.Setenv(key, value)
	}

	logging.New()

	// 4. Now that the environment is set, create the config.
	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("invalid test configuration: %v", err)
	}
	return cfg
}

// SurrealConfigForTests is ConfigForTests for tests that need a live SurrealDB.
// The test is skipped when no server is configured.
func SurrealConfigForTests(t *testing.T) config.Provider {
	t.Helper()

	cfg := ConfigForTests(t)
	if cfg.GetDBURL() == "" {
		t.Skip("SURREAL_URL not set; skipping SurrealDB integration test")
	}
	return cfg
}
