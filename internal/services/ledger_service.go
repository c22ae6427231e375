// Package services wires the categorization engine to storage and the
// event channel. Storage errors fail the call; publish errors are
// logged and swallowed so the ledger never depends on the broker.
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"spendlite/assets"
	"spendlite/internal/amqp"
	"spendlite/internal/core"
	"spendlite/internal/storage"
)

// ErrEmptyCategory rejects assignments without a category.
var ErrEmptyCategory = errors.New("category must not be empty")

// ErrEmptyImport rejects CSV uploads that yield no transactions, so a
// bad file cannot wipe the ledger.
var ErrEmptyImport = errors.New("no importable transactions in csv")

// EventPublisher is the slice of the AMQP client the service needs.
// A nil publisher disables events without disabling anything else.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *amqp.Event) error
}

// LedgerService orchestrates imports, rule edits and category
// assignments across SQLite and AMQP.
type LedgerService struct {
	storage   *storage.Repository
	publisher EventPublisher
	cols      core.ColumnMap
}

func NewLedgerService(storage *storage.Repository, publisher EventPublisher, cols core.ColumnMap) *LedgerService {
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
		cols:      cols,
	}
}

// ImportCSV parses a bank CSV export and replaces the whole ledger with
// its transactions, categorized against the current rules. Bytes that
// are not valid UTF-8 are decoded as Windows-1252 first, which is what
// the banks that need it actually send.
func (s *LedgerService) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return 0, fmt.Errorf("decode csv: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("parse csv: %w", err)
	}

	txns := core.ImportRows(rows, s.cols)
	if len(txns) == 0 {
		return 0, ErrEmptyImport
	}

	rules, err := s.loadRules(ctx)
	if err != nil {
		return 0, err
	}
	core.Categorise(txns, rules)

	if err := s.storage.ReplaceTransactions(ctx, txns); err != nil {
		return 0, fmt.Errorf("replace transactions: %w", err)
	}

	s.publishEvent(ctx, amqp.NewImportedEvent(len(txns)))
	slog.InfoContext(ctx, "CSV imported", "transactions", len(txns))
	return len(txns), nil
}

// List returns stored transactions, optionally narrowed to one month
// key (YYYY-MM) and one category. Empty filters match everything.
func (s *LedgerService) List(ctx context.Context, month, category string) ([]storage.Transaction, error) {
	rows, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}

	wantCat := strings.ToUpper(category)
	out := make([]storage.Transaction, 0, len(rows))
	for _, row := range rows {
		t := row.Core()
		if month != "" && t.MonthKey() != month {
			continue
		}
		if wantCat != "" && t.EffectiveCategory() != wantCat {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// Totals aggregates the (optionally filtered) ledger by category.
func (s *LedgerService) Totals(ctx context.Context, month, category string) ([]core.CategoryTotal, decimal.Decimal, error) {
	txns, err := s.coreTransactions(ctx)
	if err != nil {
		return nil, decimal.Zero, err
	}
	txns = core.FilterByMonth(txns, month)
	txns = core.FilterByCategory(txns, category)
	rows, grand := core.CategoryTotals(txns)
	return rows, grand, nil
}

// Report renders the plain-text category report for one month, or for
// the whole ledger when month is empty.
func (s *LedgerService) Report(ctx context.Context, month string) (string, error) {
	rows, grand, err := s.Totals(ctx, month, "")
	if err != nil {
		return "", err
	}
	return core.RenderReport(rows, grand), nil
}

// Months returns the distinct month keys in the ledger, newest first.
func (s *LedgerService) Months(ctx context.Context) ([]string, error) {
	txns, err := s.coreTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.MonthKeys(txns), nil
}

// RuleText returns the current rule document, seeding the starter rules
// on first use.
func (s *LedgerService) RuleText(ctx context.Context) (string, error) {
	return s.ruleText(ctx)
}

// UpdateRules stores a new rule document and recategorizes every
// transaction without a user-assigned category. Returns how many rows
// changed category.
func (s *LedgerService) UpdateRules(ctx context.Context, text string) (int, error) {
	if err := s.storage.SaveRules(ctx, text); err != nil {
		return 0, err
	}
	changed, err := s.recategorise(ctx, core.ParseRules(text))
	if err != nil {
		return 0, err
	}
	s.publishEvent(ctx, amqp.NewRulesUpdatedEvent())
	slog.InfoContext(ctx, "Rules updated", "recategorized", changed)
	return changed, nil
}

// AssignCategory pins a category on one transaction, learns a rule from
// its description and replays the rules over the rest of the ledger.
// The derived keyword is returned so callers can surface what was
// learned; it is empty when the description yields nothing usable.
func (s *LedgerService) AssignCategory(ctx context.Context, id int64, category string) (string, error) {
	category = strings.ToUpper(strings.TrimSpace(category))
	if category == "" {
		return "", ErrEmptyCategory
	}

	row, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.storage.AssignCategory(ctx, id, category); err != nil {
		return "", err
	}

	text, err := s.ruleText(ctx)
	if err != nil {
		return "", err
	}
	keyword := core.DeriveKeyword(row.Core())
	if keyword != "" {
		if newText, changed := core.UpsertRule(text, keyword, category); changed {
			if err := s.storage.SaveRules(ctx, newText); err != nil {
				return "", err
			}
			text = newText
		}
	}

	if _, err := s.recategorise(ctx, core.ParseRules(text)); err != nil {
		return "", err
	}
	if err := s.storage.EnqueueExport(ctx, id); err != nil {
		return "", err
	}

	s.publishEvent(ctx, amqp.NewCategorizedEvent(id, category))
	slog.InfoContext(ctx, "Category assigned",
		"transaction_id", id,
		"category", category,
		"keyword", keyword)
	return keyword, nil
}

// Recategorise replays the stored rules over every transaction without
// a user-assigned category and reports how many changed.
func (s *LedgerService) Recategorise(ctx context.Context) (int, error) {
	rules, err := s.loadRules(ctx)
	if err != nil {
		return 0, err
	}
	return s.recategorise(ctx, rules)
}

func (s *LedgerService) recategorise(ctx context.Context, rules []core.Rule) (int, error) {
	rows, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return 0, err
	}

	candidates := make([]core.Transaction, 0, len(rows))
	idx := make([]int, 0, len(rows))
	for i, row := range rows {
		if row.UserAssigned {
			continue
		}
		candidates = append(candidates, row.Core())
		idx = append(idx, i)
	}
	core.Categorise(candidates, rules)

	changed := 0
	for j, t := range candidates {
		row := rows[idx[j]]
		if t.Category == row.Category {
			continue
		}
		if err := s.storage.SetComputedCategory(ctx, row.ID, t.Category); err != nil {
			return changed, fmt.Errorf("recategorize transaction %d: %w", row.ID, err)
		}
		changed++
	}
	return changed, nil
}

func (s *LedgerService) coreTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	txns := make([]core.Transaction, len(rows))
	for i, row := range rows {
		txns[i] = row.Core()
	}
	return txns, nil
}

func (s *LedgerService) ruleText(ctx context.Context) (string, error) {
	text, err := s.storage.RuleText(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		if err := s.storage.SaveRules(ctx, assets.DefaultRules); err != nil {
			return "", fmt.Errorf("seed starter rules: %w", err)
		}
		slog.InfoContext(ctx, "Starter rules seeded")
		return assets.DefaultRules, nil
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *LedgerService) loadRules(ctx context.Context) ([]core.Rule, error) {
	text, err := s.ruleText(ctx)
	if err != nil {
		return nil, err
	}
	return core.ParseRules(text), nil
}

func (s *LedgerService) publishEvent(ctx context.Context, event *amqp.Event) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping event", "kind", event.Kind)
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"kind", event.Kind, "error", err)
		// Don't fail the request - the ledger is already saved locally
	}
}
