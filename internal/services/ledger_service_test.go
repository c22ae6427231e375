package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"spendlite/assets"
	"spendlite/internal/amqp"
	"spendlite/internal/core"
	"spendlite/internal/storage"
)

type fakePublisher struct {
	events []*amqp.Event
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, e *amqp.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) kinds() []string {
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Kind
	}
	return out
}

func newTestService(t *testing.T) (*LedgerService, *storage.Repository, *fakePublisher) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	pub := &fakePublisher{}
	return NewLedgerService(repo, pub, core.DefaultColumns), repo, pub
}

// csvLine builds a ten-cell row in the default export layout.
func csvLine(date, amount, desc string) string {
	cells := make([]string, 10)
	cells[0] = date
	cells[1] = amount
	cells[9] = desc
	return strings.Join(cells, ",")
}

func TestImportCSVReplacesAndCategorises(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()

	if err := repo.SaveRules(ctx, "coles => GROCERIES\nbp => PETROL"); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}

	csv := strings.Join([]string{
		csvLine("Date", "Amount", "Description"),
		csvLine("01/02/2024", "12.50", "COLES 123"),
		csvLine("02/02/2024", "1.80", "BP CONNECT"),
		csvLine("03/02/2024", "0.00", "ZERO ROW"),
		csvLine("04/02/2024", "-45.00", "UNKNOWN MERCHANT"),
	}, "\n")

	n, err := svc.ImportCSV(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if n != 3 {
		t.Fatalf("imported %d transactions, want 3", n)
	}

	rows, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("stored %d rows, want 3", len(rows))
	}
	if rows[0].Category != "GROCERIES" {
		t.Errorf("rows[0].Category = %q, want GROCERIES", rows[0].Category)
	}
	// Micro purchases at the petrol station are coffee, not fuel.
	if rows[1].Category != "COFFEE" {
		t.Errorf("rows[1].Category = %q, want COFFEE", rows[1].Category)
	}
	if rows[2].Category != "" {
		t.Errorf("rows[2].Category = %q, want empty", rows[2].Category)
	}

	pending, _ := repo.PendingExportCount(ctx)
	if pending != 3 {
		t.Errorf("pending exports = %d, want 3", pending)
	}

	if len(pub.events) != 1 || pub.events[0].Kind != amqp.KindImported {
		t.Fatalf("published %v, want one %s event", pub.kinds(), amqp.KindImported)
	}
	if pub.events[0].Count != 3 {
		t.Errorf("event count = %d, want 3", pub.events[0].Count)
	}
}

func TestImportCSVEmptyKeepsLedger(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ImportCSV(ctx, strings.NewReader(csvLine("01/02/2024", "5.00", "CAFE"))); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}

	// A file with nothing importable must not wipe what is already there.
	_, err := svc.ImportCSV(ctx, strings.NewReader("just,one,line\n"))
	if !errors.Is(err, ErrEmptyImport) {
		t.Fatalf("got %v, want ErrEmptyImport", err)
	}
	rows, _ := repo.ListTransactions(ctx)
	if len(rows) != 1 || rows[0].Description != "CAFE" {
		t.Fatalf("ledger was touched by empty import: %+v", rows)
	}
}

func TestImportCSVWindows1252(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	// 0xC9 is É in Windows-1252 and invalid on its own in UTF-8.
	raw := csvLine("01/02/2024", "8.00", "CAF\xc9 MELBOURNE")
	if _, err := svc.ImportCSV(ctx, strings.NewReader(raw)); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	rows, _ := repo.ListTransactions(ctx)
	if len(rows) != 1 || rows[0].Description != "CAFÉ MELBOURNE" {
		t.Fatalf("transcoding failed: %+v", rows)
	}
}

func TestImportCSVSurvivesPublishFailure(t *testing.T) {
	svc, repo, pub := newTestService(t)
	pub.err = errors.New("broker down")
	ctx := context.Background()

	n, err := svc.ImportCSV(ctx, strings.NewReader(csvLine("01/02/2024", "5.00", "CAFE")))
	if err != nil {
		t.Fatalf("ImportCSV failed on publish error: %v", err)
	}
	if n != 1 {
		t.Fatalf("imported %d, want 1", n)
	}
	rows, _ := repo.ListTransactions(ctx)
	if len(rows) != 1 {
		t.Fatalf("ledger not saved: %+v", rows)
	}
}

func TestRuleTextSeedsStarterRules(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	text, err := svc.RuleText(ctx)
	if err != nil {
		t.Fatalf("RuleText: %v", err)
	}
	if text != assets.DefaultRules {
		t.Fatalf("first RuleText did not seed the starter rules")
	}
	stored, err := repo.RuleText(ctx)
	if err != nil {
		t.Fatalf("RuleText after seed: %v", err)
	}
	if stored != assets.DefaultRules {
		t.Fatalf("seed not persisted")
	}
}

func TestListFilters(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if err := repo.SaveRules(ctx, "coles => GROCERIES"); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}
	csv := strings.Join([]string{
		csvLine("01/02/2024", "12.50", "COLES 123"),
		csvLine("15/03/2024", "9.00", "COLES 456"),
		csvLine("16/03/2024", "4.00", "MYSTERY"),
	}, "\n")
	if _, err := svc.ImportCSV(ctx, strings.NewReader(csv)); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}

	all, err := svc.List(ctx, "", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("unfiltered list has %d rows, want 3", len(all))
	}

	march, _ := svc.List(ctx, "2024-03", "")
	if len(march) != 2 {
		t.Fatalf("month filter kept %d rows, want 2", len(march))
	}

	groceries, _ := svc.List(ctx, "", "groceries")
	if len(groceries) != 2 {
		t.Fatalf("category filter kept %d rows, want 2", len(groceries))
	}

	uncat, _ := svc.List(ctx, "", "uncategorised")
	if len(uncat) != 1 || uncat[0].Description != "MYSTERY" {
		t.Fatalf("uncategorised filter: %+v", uncat)
	}

	both, _ := svc.List(ctx, "2024-03", "GROCERIES")
	if len(both) != 1 || both[0].Description != "COLES 456" {
		t.Fatalf("combined filter: %+v", both)
	}
}

func TestTotalsReportAndMonths(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if err := repo.SaveRules(ctx, "coles => GROCERIES"); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}
	csv := strings.Join([]string{
		csvLine("01/02/2024", "10.00", "COLES 1"),
		csvLine("02/02/2024", "20.00", "COLES 2"),
		csvLine("15/03/2024", "5.00", "MYSTERY"),
	}, "\n")
	if _, err := svc.ImportCSV(ctx, strings.NewReader(csv)); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}

	rows, grand, err := svc.Totals(ctx, "2024-02", "")
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if len(rows) != 1 || rows[0].Category != "GROCERIES" {
		t.Fatalf("totals rows: %+v", rows)
	}
	if grand.String() != "30" {
		t.Fatalf("grand = %s, want 30", grand)
	}

	report, err := svc.Report(ctx, "2024-02")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !strings.Contains(report, "GROCERIES") || !strings.Contains(report, "TOTAL") {
		t.Fatalf("report missing expected rows:\n%s", report)
	}

	months, err := svc.Months(ctx)
	if err != nil {
		t.Fatalf("Months: %v", err)
	}
	if len(months) != 2 || months[0] != "2024-03" || months[1] != "2024-02" {
		t.Fatalf("months = %v", months)
	}
}

func TestUpdateRulesRecategorises(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()

	if err := repo.SaveRules(ctx, "coles => GROCERIES"); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}
	csv := strings.Join([]string{
		csvLine("01/02/2024", "12.50", "COLES 123"),
		csvLine("02/02/2024", "7.00", "MYSTERY SHOP"),
	}, "\n")
	if _, err := svc.ImportCSV(ctx, strings.NewReader(csv)); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}

	// Pin the second row so the rule replay must leave it alone.
	rows, _ := repo.ListTransactions(ctx)
	if _, err := svc.AssignCategory(ctx, rows[1].ID, "PINNED"); err != nil {
		t.Fatalf("AssignCategory: %v", err)
	}

	changed, err := svc.UpdateRules(ctx, "coles => FOOD\nmystery => FUN")
	if err != nil {
		t.Fatalf("UpdateRules: %v", err)
	}
	if changed != 1 {
		t.Fatalf("recategorized %d rows, want 1", changed)
	}

	rows, _ = repo.ListTransactions(ctx)
	if rows[0].Category != "FOOD" {
		t.Errorf("rows[0].Category = %q, want FOOD", rows[0].Category)
	}
	if rows[1].Category != "PINNED" {
		t.Errorf("user assignment overwritten: %+v", rows[1])
	}

	got, _ := svc.RuleText(ctx)
	if got != "coles => FOOD\nmystery => FUN" {
		t.Errorf("rule text = %q", got)
	}

	kinds := pub.kinds()
	if kinds[len(kinds)-1] != amqp.KindRulesUpdated {
		t.Errorf("last event = %v, want %s", kinds, amqp.KindRulesUpdated)
	}
}

func TestAssignCategoryLearnsRule(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()

	if err := repo.SaveRules(ctx, "# starter"); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}
	csv := strings.Join([]string{
		csvLine("05/02/2024", "20.00", "VISA-ACME SYDNEY NS"),
		csvLine("06/02/2024", "30.00", "ACME STORE 22"),
	}, "\n")
	if _, err := svc.ImportCSV(ctx, strings.NewReader(csv)); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	rows, _ := repo.ListTransactions(ctx)

	keyword, err := svc.AssignCategory(ctx, rows[0].ID, "widgets")
	if err != nil {
		t.Fatalf("AssignCategory: %v", err)
	}
	if keyword != "ACME" {
		t.Fatalf("derived keyword = %q, want ACME", keyword)
	}

	text, _ := svc.RuleText(ctx)
	if !strings.Contains(text, "ACME => WIDGETS") {
		t.Fatalf("rule not learned, text = %q", text)
	}

	rows, _ = repo.ListTransactions(ctx)
	if rows[0].Category != "WIDGETS" || !rows[0].UserAssigned {
		t.Errorf("assigned row: %+v", rows[0])
	}
	// The learned rule immediately reaches the sibling transaction.
	if rows[1].Category != "WIDGETS" || rows[1].UserAssigned {
		t.Errorf("sibling row: %+v", rows[1])
	}

	// Import queued two exports; the assignment queues the row again.
	pending, _ := repo.PendingExportCount(ctx)
	if pending != 3 {
		t.Errorf("pending exports = %d, want 3", pending)
	}

	kinds := pub.kinds()
	if kinds[len(kinds)-1] != amqp.KindCategorized {
		t.Errorf("last event = %v, want %s", kinds, amqp.KindCategorized)
	}
	last := pub.events[len(pub.events)-1]
	if last.TransactionID != rows[0].ID || last.Category != "WIDGETS" {
		t.Errorf("categorized event = %+v", last)
	}
}

func TestAssignCategoryRejectsEmpty(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ImportCSV(ctx, strings.NewReader(csvLine("01/02/2024", "5.00", "CAFE"))); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	rows, _ := repo.ListTransactions(ctx)

	if _, err := svc.AssignCategory(ctx, rows[0].ID, "   "); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("got %v, want ErrEmptyCategory", err)
	}
	if _, err := svc.AssignCategory(ctx, 9999, "FUN"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRecategoriseAppliesStoredRules(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if err := repo.SaveRules(ctx, "# none yet"); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}
	if _, err := svc.ImportCSV(ctx, strings.NewReader(csvLine("01/02/2024", "5.00", "CAFE CORNER"))); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}

	// Edit the document behind the service's back, then replay it.
	if err := repo.SaveRules(ctx, "cafe => COFFEE"); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}
	changed, err := svc.Recategorise(ctx)
	if err != nil {
		t.Fatalf("Recategorise: %v", err)
	}
	if changed != 1 {
		t.Fatalf("changed %d rows, want 1", changed)
	}
	rows, _ := repo.ListTransactions(ctx)
	if rows[0].Category != "COFFEE" {
		t.Fatalf("category = %q, want COFFEE", rows[0].Category)
	}

	// Nothing left to change on a second run.
	changed, err = svc.Recategorise(ctx)
	if err != nil {
		t.Fatalf("Recategorise: %v", err)
	}
	if changed != 0 {
		t.Fatalf("second run changed %d rows, want 0", changed)
	}
}
