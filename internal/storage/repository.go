package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spendlite/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a transaction or the rule document does
// not exist.
var ErrNotFound = errors.New("not found")

type Repository struct {
	db      *sql.DB
	queries *Queries
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, queries: New(db)}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Core converts a stored row to its engine representation.
func (t Transaction) Core() core.Transaction {
	return core.Transaction{
		Date:        t.RawDate,
		Amount:      t.Amount,
		Description: t.Description,
		Category:    t.Category,
	}
}

// ReplaceTransactions swaps the whole ledger for the given set and
// queues every new row for export. The old queue is cleared in the same
// transaction since its items point at rows that no longer exist
// afterwards.
func (r *Repository) ReplaceTransactions(ctx context.Context, txns []core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	if err := qtx.DeleteAllExports(ctx); err != nil {
		return fmt.Errorf("clear export queue: %w", err)
	}
	if err := qtx.DeleteAllTransactions(ctx); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	now := nowRFC3339()
	for i, t := range txns {
		id, err := qtx.InsertTransaction(ctx, InsertTransactionParams{
			Position:    int64(i),
			RawDate:     t.Date,
			Amount:      t.Amount,
			Description: t.Description,
			Category:    t.Category,
			ImportedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("insert transaction %d: %w", i, err)
		}
		if _, err := qtx.EnqueueExport(ctx, id, now); err != nil {
			return fmt.Errorf("enqueue export for transaction %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Ledger replaced", "count", len(txns))
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context) ([]Transaction, error) {
	txns, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	t, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (r *Repository) CountTransactions(ctx context.Context) (int64, error) {
	n, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// AssignCategory pins a user-chosen category on a transaction.
func (r *Repository) AssignCategory(ctx context.Context, id int64, category string) error {
	if err := r.queries.AssignCategory(ctx, id, category); err != nil {
		return fmt.Errorf("assign category: %w", err)
	}
	return nil
}

// SetComputedCategory writes a rule-derived category. Rows with a
// user-assigned category are left alone.
func (r *Repository) SetComputedCategory(ctx context.Context, id int64, category string) error {
	if err := r.queries.SetComputedCategory(ctx, id, category); err != nil {
		return fmt.Errorf("set computed category: %w", err)
	}
	return nil
}

// RuleText returns the stored rule document, or ErrNotFound before the
// first save.
func (r *Repository) RuleText(ctx context.Context) (string, error) {
	content, err := r.queries.GetRuleDocument(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get rule document: %w", err)
	}
	return content, nil
}

func (r *Repository) SaveRules(ctx context.Context, content string) error {
	if err := r.queries.SaveRuleDocument(ctx, content, nowRFC3339()); err != nil {
		return fmt.Errorf("save rule document: %w", err)
	}
	slog.InfoContext(ctx, "Rule document saved", "bytes", len(content))
	return nil
}

// EnqueueExport schedules a transaction for the export worker.
func (r *Repository) EnqueueExport(ctx context.Context, transactionID int64) error {
	id, err := r.queries.EnqueueExport(ctx, transactionID, nowRFC3339())
	if err != nil {
		return fmt.Errorf("enqueue export: %w", err)
	}
	slog.DebugContext(ctx, "Export enqueued", "queue_id", id, "transaction_id", transactionID)
	return nil
}

func (r *Repository) ExportBatch(ctx context.Context, limit int) ([]ExportItem, error) {
	items, err := r.queries.GetExportBatch(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get export batch: %w", err)
	}
	return items, nil
}

func (r *Repository) MarkExportProcessing(ctx context.Context, id int64) error {
	if err := r.queries.MarkExportProcessing(ctx, id, nowRFC3339()); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}
	return nil
}

func (r *Repository) MarkExportCompleted(ctx context.Context, id int64) error {
	if err := r.queries.MarkExportCompleted(ctx, id, nowRFC3339()); err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}
	return nil
}

// FailExport records a failed attempt. The item goes back to pending
// until maxAttempts is reached, then stays failed for inspection.
func (r *Repository) FailExport(ctx context.Context, id int64, cause error, maxAttempts int) error {
	err := r.queries.FailExport(ctx, FailExportParams{
		ID:          id,
		LastError:   cause.Error(),
		MaxAttempts: int64(maxAttempts),
		UpdatedAt:   nowRFC3339(),
	})
	if err != nil {
		return fmt.Errorf("fail export: %w", err)
	}
	slog.WarnContext(ctx, "Export attempt failed", "queue_id", id, "error", cause)
	return nil
}

// ResetStaleExports requeues items stuck in processing longer than
// olderThan, typically after a crash mid-batch.
func (r *Repository) ResetStaleExports(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	n, err := r.queries.ResetStaleExports(ctx, nowRFC3339(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset stale exports: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Stale exports requeued", "count", n)
	}
	return n, nil
}

// CleanupExports deletes completed items older than olderThan.
func (r *Repository) CleanupExports(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	n, err := r.queries.DeleteCompletedExports(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup exports: %w", err)
	}
	return n, nil
}

func (r *Repository) PendingExportCount(ctx context.Context) (int64, error) {
	n, err := r.queries.CountExportsByStatus(ctx, ExportPending)
	if err != nil {
		return 0, fmt.Errorf("count pending exports: %w", err)
	}
	return n, nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
