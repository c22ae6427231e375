// Package worker drains the export queue into the configured sheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendlite/internal/core"
	"spendlite/internal/sheets"
	"spendlite/internal/storage"
)

// Config holds the export worker's timing and retry knobs.
type Config struct {
	// PollInterval is how often to check for pending items (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum attempts before an item parks as failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often to clean up completed items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before cleanup (default: 24h)
	CleanupAge time.Duration

	// StaleAfter is how long an item may sit in processing before it is
	// assumed orphaned by a crash and requeued (default: 10m)
	StaleAfter time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
		StaleAfter:      10 * time.Minute,
	}
}

// ExportWorker mirrors queued transactions to the export destination,
// one appended row per transaction.
type ExportWorker struct {
	storage  *storage.Repository
	appender sheets.RowAppender
	config   Config

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	nudgeCh chan struct{}
}

func NewExportWorker(storage *storage.Repository, appender sheets.RowAppender, config Config) *ExportWorker {
	return &ExportWorker{
		storage:  storage,
		appender: appender,
		config:   config,
		nudgeCh:  make(chan struct{}, 1),
	}
}

// Start begins the processing loop. Returns an error if already running
// or no export destination is configured.
func (w *ExportWorker) Start(ctx context.Context) error {
	if w.appender == nil {
		return fmt.Errorf("no export destination configured")
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	// Requeue items orphaned in processing by a previous crash
	if _, err := w.storage.ResetStaleExports(ctx, w.config.StaleAfter); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale exports", "error", err)
	}

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Export worker started",
		"poll_interval", w.config.PollInterval,
		"batch_size", w.config.BatchSize)

	return nil
}

// Stop gracefully stops the worker and waits for completion.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Export worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// IsRunning returns whether the worker is currently running.
func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Nudge asks the worker to process a batch now instead of waiting for
// the next poll tick. Safe to call from any goroutine; a nudge while
// one is already queued is dropped.
func (w *ExportWorker) Nudge() {
	select {
	case w.nudgeCh <- struct{}{}:
	default:
	}
}

func (w *ExportWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	pollTicker := time.NewTicker(w.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(w.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Process immediately on startup
	w.processBatch(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-w.nudgeCh:
			w.processBatch(ctx)
		case <-pollTicker.C:
			w.processBatch(ctx)
		case <-cleanupTicker.C:
			w.cleanupCompleted(ctx)
		}
	}
}

// processBatch processes a single batch of pending items.
func (w *ExportWorker) processBatch(ctx context.Context) {
	items, err := w.storage.ExportBatch(ctx, w.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to dequeue export batch", "error", err)
		return
	}

	if len(items) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing export batch", "count", len(items))

	for _, item := range items {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := w.storage.MarkExportProcessing(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark item as processing",
				"queue_id", item.ID, "error", err)
			continue
		}

		if err := w.exportItem(ctx, item); err != nil {
			w.handleFailure(ctx, item, err)
		} else {
			w.handleSuccess(ctx, item)
		}
	}
}

// exportItem appends one transaction to the sheet.
func (w *ExportWorker) exportItem(ctx context.Context, item storage.ExportItem) error {
	category := item.Category
	if category == "" {
		category = core.Uncategorised
	}

	row := []interface{}{
		item.RawDate,
		item.Description,
		item.Amount,
		category,
		time.Now().UTC().Format(time.RFC3339),
	}

	ref, err := w.appender.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	slog.InfoContext(ctx, "Transaction exported",
		"transaction_id", item.TransactionID,
		"sheets_ref", ref)

	return nil
}

func (w *ExportWorker) handleSuccess(ctx context.Context, item storage.ExportItem) {
	if err := w.storage.MarkExportCompleted(ctx, item.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark export completed",
			"queue_id", item.ID, "error", err)
	}
}

func (w *ExportWorker) handleFailure(ctx context.Context, item storage.ExportItem, processErr error) {
	if err := w.storage.FailExport(ctx, item.ID, processErr, w.config.MaxRetries); err != nil {
		slog.ErrorContext(ctx, "Failed to record export failure",
			"queue_id", item.ID, "error", err)
		return
	}

	if item.Attempts+1 >= int64(w.config.MaxRetries) {
		slog.ErrorContext(ctx, "Export failed permanently after max retries",
			"queue_id", item.ID,
			"transaction_id", item.TransactionID,
			"attempts", item.Attempts+1)
	}
}

// cleanupCompleted removes old completed items.
func (w *ExportWorker) cleanupCompleted(ctx context.Context) {
	n, err := w.storage.CleanupExports(ctx, w.config.CleanupAge)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to clean up completed exports", "error", err)
		return
	}
	if n > 0 {
		slog.DebugContext(ctx, "Export queue cleanup completed", "removed", n)
	}
}
