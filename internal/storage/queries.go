package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so the same queries run
// standalone or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Export queue statuses.
const (
	ExportPending    = "pending"
	ExportProcessing = "processing"
	ExportCompleted  = "completed"
	ExportFailed     = "failed"
)

// Transaction is a stored ledger row. RawDate holds the date cell
// exactly as imported.
type Transaction struct {
	ID           int64
	Position     int64
	RawDate      string
	Amount       float64
	Description  string
	Category     string
	UserAssigned bool
}

// ExportItem is one pending export joined with the transaction it
// mirrors.
type ExportItem struct {
	ID            int64
	TransactionID int64
	Attempts      int64
	RawDate       string
	Amount        float64
	Description   string
	Category      string
}

const insertTransaction = `
INSERT INTO transactions (position, raw_date, amount, description, category, user_assigned, imported_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type InsertTransactionParams struct {
	Position     int64
	RawDate      string
	Amount       float64
	Description  string
	Category     string
	UserAssigned bool
	ImportedAt   string
}

func (q *Queries) InsertTransaction(ctx context.Context, p InsertTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertTransaction,
		p.Position, p.RawDate, p.Amount, p.Description, p.Category, p.UserAssigned, p.ImportedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listTransactions = `
SELECT id, position, raw_date, amount, description, category, user_assigned
FROM transactions
ORDER BY position`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Position, &t.RawDate, &t.Amount, &t.Description, &t.Category, &t.UserAssigned); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

const getTransaction = `
SELECT id, position, raw_date, amount, description, category, user_assigned
FROM transactions
WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	var t Transaction
	err := q.db.QueryRowContext(ctx, getTransaction, id).
		Scan(&t.ID, &t.Position, &t.RawDate, &t.Amount, &t.Description, &t.Category, &t.UserAssigned)
	return t, err
}

const assignCategory = `
UPDATE transactions
SET category = ?, user_assigned = 1
WHERE id = ?`

// AssignCategory records a user decision; the row is pinned against
// later recategorization passes.
func (q *Queries) AssignCategory(ctx context.Context, id int64, category string) error {
	_, err := q.db.ExecContext(ctx, assignCategory, category, id)
	return err
}

const setComputedCategory = `
UPDATE transactions
SET category = ?
WHERE id = ? AND user_assigned = 0`

// SetComputedCategory writes a rule-derived category, never touching
// rows the user has assigned by hand.
func (q *Queries) SetComputedCategory(ctx context.Context, id int64, category string) error {
	_, err := q.db.ExecContext(ctx, setComputedCategory, category, id)
	return err
}

const deleteAllTransactions = `DELETE FROM transactions`

func (q *Queries) DeleteAllTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllTransactions)
	return err
}

const countTransactions = `SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions).Scan(&n)
	return n, err
}

const getRuleDocument = `SELECT content FROM rule_documents WHERE id = 1`

func (q *Queries) GetRuleDocument(ctx context.Context) (string, error) {
	var content string
	err := q.db.QueryRowContext(ctx, getRuleDocument).Scan(&content)
	return content, err
}

const saveRuleDocument = `
INSERT INTO rule_documents (id, content, updated_at)
VALUES (1, ?, ?)
ON CONFLICT (id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`

func (q *Queries) SaveRuleDocument(ctx context.Context, content, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, saveRuleDocument, content, updatedAt)
	return err
}

const enqueueExport = `
INSERT INTO export_queue (transaction_id, status, created_at, updated_at)
VALUES (?, 'pending', ?, ?)`

func (q *Queries) EnqueueExport(ctx context.Context, transactionID int64, now string) (int64, error) {
	res, err := q.db.ExecContext(ctx, enqueueExport, transactionID, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getExportBatch = `
SELECT q.id, q.transaction_id, q.attempts, t.raw_date, t.amount, t.description, t.category
FROM export_queue q
JOIN transactions t ON t.id = q.transaction_id
WHERE q.status = 'pending'
ORDER BY q.id
LIMIT ?`

func (q *Queries) GetExportBatch(ctx context.Context, limit int64) ([]ExportItem, error) {
	rows, err := q.db.QueryContext(ctx, getExportBatch, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ExportItem
	for rows.Next() {
		var it ExportItem
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.Attempts, &it.RawDate, &it.Amount, &it.Description, &it.Category); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const markExportProcessing = `
UPDATE export_queue
SET status = 'processing', updated_at = ?
WHERE id = ?`

func (q *Queries) MarkExportProcessing(ctx context.Context, id int64, now string) error {
	_, err := q.db.ExecContext(ctx, markExportProcessing, now, id)
	return err
}

const markExportCompleted = `
UPDATE export_queue
SET status = 'completed', last_error = '', updated_at = ?
WHERE id = ?`

func (q *Queries) MarkExportCompleted(ctx context.Context, id int64, now string) error {
	_, err := q.db.ExecContext(ctx, markExportCompleted, now, id)
	return err
}

const failExport = `
UPDATE export_queue
SET status = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE 'pending' END,
    attempts = attempts + 1,
    last_error = ?,
    updated_at = ?
WHERE id = ?`

type FailExportParams struct {
	ID          int64
	LastError   string
	MaxAttempts int64
	UpdatedAt   string
}

// FailExport bumps the attempt counter and either requeues the item or,
// once the attempt limit is reached, parks it as failed.
func (q *Queries) FailExport(ctx context.Context, p FailExportParams) error {
	_, err := q.db.ExecContext(ctx, failExport, p.MaxAttempts, p.LastError, p.UpdatedAt, p.ID)
	return err
}

const resetStaleExports = `
UPDATE export_queue
SET status = 'pending', updated_at = ?
WHERE status = 'processing' AND updated_at < ?`

// ResetStaleExports requeues items stuck in processing, typically after
// a crash mid-batch.
func (q *Queries) ResetStaleExports(ctx context.Context, now, cutoff string) (int64, error) {
	res, err := q.db.ExecContext(ctx, resetStaleExports, now, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteCompletedExports = `
DELETE FROM export_queue
WHERE status = 'completed' AND updated_at < ?`

func (q *Queries) DeleteCompletedExports(ctx context.Context, cutoff string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCompletedExports, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllExports = `DELETE FROM export_queue`

func (q *Queries) DeleteAllExports(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllExports)
	return err
}

const countExportsByStatus = `SELECT COUNT(*) FROM export_queue WHERE status = ?`

func (q *Queries) CountExportsByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countExportsByStatus, status).Scan(&n)
	return n, err
}
