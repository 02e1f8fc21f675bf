package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends understood by the application.
const (
	BackendSQLite  = "sqlite"
	BackendSurreal = "surreal"
	BackendMemory  = "memory"
)

// DefaultSessionSecret signs development sessions. Validate rejects it in production.
const DefaultSessionSecret = "dev-session-secret-change-me"

// Provider is the read-only view of the configuration that the rest of the
// application depends on.
type Provider interface {
	GetAppName() string
	GetEnvironment() string
	IsDebug() bool
	GetAPIPrefix() string
	GetServerAddr() string
	GetCORSOrigins() []string
	GetSessionSecret() string
	GetStoreBackend() string
	GetSQLitePath() string
	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration
	GetFormRateLimit() int
	GetTaskHooksDir() string
}

// Config holds all configuration for the application.
type Config struct {
	AppName       string
	Environment   string
	Debug         bool
	APIPrefix     string
	ServerAddr    string
	CORSOrigins   []string
	SessionSecret string

	StoreBackend string
	SQLitePath   string

	DBUrl            string
	DBNs             string
	DBDb             string
	DBUser           string
	DBPass           string
	DBQueryTimeout   time.Duration
	DBExecuteTimeout time.Duration

	// FormRateLimit is the number of form posts allowed per client per minute.
	FormRateLimit int
	// TaskHooksDir holds optional Tengo hook scripts. Empty disables hooks.
	TaskHooksDir string
}

// New loads configuration from a .env file (if any) and the environment,
// falling back to development defaults.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
		slog.Debug("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env files.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppName:       getEnv("APP_NAME", "TaskApp"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		APIPrefix:     getEnv("API_V1_PREFIX", "/api/v1"),
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		SessionSecret: getEnv("SESSION_SECRET", DefaultSessionSecret),
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		SQLitePath:    getEnv("SQLITE_PATH", "taskapp.db"),
		DBUrl:         os.Getenv("SURREAL_URL"),
		DBNs:          os.Getenv("SURREAL_NS"),
		DBDb:          os.Getenv("SURREAL_DB"),
		DBUser:        os.Getenv("SURREAL_USER"),
		DBPass:        os.Getenv("SURREAL_PASS"),
		TaskHooksDir:  os.Getenv("TASK_HOOKS_DIR"),
	}

	var err error
	if cfg.Debug, err = strconv.ParseBool(getEnv("DEBUG", "true")); err != nil {
		return nil, fmt.Errorf("DEBUG: %w", err)
	}
	if cfg.CORSOrigins, err = parseOrigins(getEnv("BACKEND_CORS_ORIGINS", "http://localhost:5173")); err != nil {
		return nil, fmt.Errorf("BACKEND_CORS_ORIGINS: %w", err)
	}
	if cfg.DBQueryTimeout, err = time.ParseDuration(getEnv("DB_QUERY_TIMEOUT", "5s")); err != nil {
		return nil, fmt.Errorf("DB_QUERY_TIMEOUT: %w", err)
	}
	if cfg.DBExecuteTimeout, err = time.ParseDuration(getEnv("DB_EXECUTE_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("DB_EXECUTE_TIMEOUT: %w", err)
	}

	if cfg.FormRateLimit, err = strconv.Atoi(getEnv("FORM_RATE_LIMIT", "30")); err != nil {
		return nil, fmt.Errorf("FORM_RATE_LIMIT: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the backend-specific settings are present and sane.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSurreal:
		if c.DBUrl == "" || c.DBNs == "" || c.DBDb == "" {
			return fmt.Errorf("store backend %q requires SURREAL_URL, SURREAL_NS and SURREAL_DB", c.StoreBackend)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("store backend %q requires SQLITE_PATH", c.StoreBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.DBQueryTimeout <= 0 || c.DBExecuteTimeout <= 0 {
		return fmt.Errorf("database timeouts must be positive durations")
	}
	if c.FormRateLimit <= 0 {
		return fmt.Errorf("FORM_RATE_LIMIT must be positive, got %d", c.FormRateLimit)
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("API_V1_PREFIX must start with '/', got %q", c.APIPrefix)
	}
	if c.Environment == "production" && (c.SessionSecret == "" || c.SessionSecret == DefaultSessionSecret) {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}
	return nil
}

// parseOrigins accepts either a comma separated list or a JSON array.
func parseOrigins(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var origins []string
		if err := json.Unmarshal([]byte(raw), &origins); err != nil {
			return nil, err
		}
		return origins, nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func (c *Config) GetAppName() string                 { return c.AppName }
func (c *Config) GetEnvironment() string             { return c.Environment }
func (c *Config) IsDebug() bool                      { return c.Debug }
func (c *Config) GetAPIPrefix() string               { return c.APIPrefix }
func (c *Config) GetServerAddr() string              { return c.ServerAddr }
func (c *Config) GetCORSOrigins() []string           { return c.CORSOrigins }
func (c *Config) GetSessionSecret() string           { return c.SessionSecret }
func (c *Config) GetStoreBackend() string            { return c.StoreBackend }
func (c *Config) GetSQLitePath() string              { return c.SQLitePath }
func (c *Config) GetDBURL() string                   { return c.DBUrl }
func (c *Config) GetDBNs() string                    { return c.DBNs }
func (c *Config) GetDBDb() string                    { return c.DBDb }
func (c *Config) GetDBUser() string                  { return c.DBUser }
func (c *Config) GetDBPass() string                  { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration   { return c.DBQueryTimeout }
func (c *Config) GetDBExecuteTimeout() time.Duration { return c.DBExecuteTimeout }
func (c *Config) GetFormRateLimit() int              { return c.FormRateLimit }
func (c *Config) GetTaskHooksDir() string            { return c.TaskHooksDir }
