// Package cli consolidates the process initialization shared by
// cmd/spendlite, cmd/spendlite-worker, and cmd/spendlite-report.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"spendlite/internal/config"
	"spendlite/internal/log"
	"spendlite/internal/storage"
)

// LoadEnvFile loads the .env file for local development. Errors are
// ignored silently as the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it, exiting the process on failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger installs the root logger according to the configured
// level and format.
func SetupLogger(cfg *config.Config) *slog.Logger {
	return log.Setup(cfg.LogLevel, cfg.LogFormat)
}

// InitRepository opens the SQLite ledger, runs pending migrations and
// returns the repository, exiting the process on failure.
func InitRepository(logger *slog.Logger, dbPath string) *storage.Repository {
	repo, err := storage.NewRepository(dbPath)
	if err != nil {
		logger.Error("Failed to open ledger database", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}
