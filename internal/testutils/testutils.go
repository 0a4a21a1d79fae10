// Package testutils holds configuration and id helpers shared by tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
)

// Config returns a complete configuration that needs no external services:
// log email, local storage in a temp dir and a database that is never dialled.
func Config(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ServerAddr:       "127.0.0.1:0",
		AppBaseURL:       "http://localhost:8080",
		AllowedOrigins:   []string{"http://localhost:5173"},
		DBUrl:            "ws://localhost:8000/rpc",
		DBNs:             "test",
		DBDb:             "parley_test",
		DBQueryTimeout:   5 * time.Second,
		DBExecuteTimeout: 5 * time.Second,
		JWTSecret:        "test-jwt-secret",
		JWTExpire:        time.Hour,
		SessionSecret:    "test-session-secret",
		EmailProvider:    "log",
		StorageBackend:   "local",
		StorageDir:       t.TempDir(),
		StoragePublicURL: "/media",
		RateLimit:        100,
		JanitorSchedule:  "@every 1h",
	}
}

// SurrealConfig returns a configuration pointing at a live SurrealDB. The
// connection comes from .env.test at the project root or from the
// PARLEY_TEST_SURREAL_* variables; the test is skipped when neither names a
// database.
func SurrealConfig(t *testing.T) *config.Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	if root, ok := projectRoot(); ok {
		if env, err := godotenv.Read(filepath.Join(root, ".env.test")); err == nil {
			for key, value := range env {
				t.Setenv(key, value)
			}
		}
	}

	url := os.Getenv("PARLEY_TEST_SURREAL_URL")
	if url == "" {
		t.Skip("skipping integration test: PARLEY_TEST_SURREAL_URL not set")
	}

	cfg := Config(t)
	cfg.DBUrl = url
	cfg.DBUser = os.Getenv("PARLEY_TEST_SURREAL_USER")
	cfg.DBPass = os.Getenv("PARLEY_TEST_SURREAL_PASS")
	return cfg
}

// NewTestID creates an id with a random key in table.
func NewTestID(table string) *domain.ID {
	return domain.NewID(table, uuid.NewString())
}

// projectRoot walks up from the working directory to the directory holding go.mod.
func projectRoot() (string, bool) {
	path, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			return path, true
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", false
		}
		path = parent
	}
}
