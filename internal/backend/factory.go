package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spendlite/internal/config"
	gsheet "spendlite/internal/sheets/google"
	"spendlite/internal/sheets/memory"
)

// New builds the export destination selected by EXPORT_BACKEND.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	t := Type(cfg.ExportBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid export backend: %s", cfg.ExportBackend)
	}

	switch t {
	case NoneBackend:
		logger.Info("Exports disabled")
		return &Result{}, nil

	case MemoryBackend:
		logger.Info("Initialized memory export backend")
		return &Result{Appender: memory.New()}, nil

	case SheetsBackend:
		cli, err := gsheet.NewClient(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		logger.Info("Initialized Google Sheets export backend",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
		return &Result{Appender: cli}, nil

	default:
		return nil, fmt.Errorf("unsupported export backend: %s", t)
	}
}
