// Command spendlite-report renders a category report for a bank CSV
// export without touching a database: read, categorize, aggregate,
// print.
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"spendlite/assets"
	"spendlite/internal/core"
)

func main() {
	var (
		csvPath   = flag.String("csv", "", "path to the bank CSV export (required)")
		rulesPath = flag.String("rules", "", "path to a rules file, starter rules when empty")
		month     = flag.String("month", "", "limit the report to a YYYY-MM month")
		category  = flag.String("category", "", "limit the report to one category")
		dateCol   = flag.Int("date-col", core.DefaultColumns.Date, "0-based CSV column holding the date")
		amountCol = flag.Int("amount-col", core.DefaultColumns.Amount, "0-based CSV column holding the amount")
		descCol   = flag.Int("desc-col", core.DefaultColumns.Description, "0-based CSV column holding the description")
	)
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: spendlite-report -csv <file> [-rules <file>] [-month YYYY-MM] [-category NAME]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cols := core.ColumnMap{Date: *dateCol, Amount: *amountCol, Description: *descCol}
	if err := run(*csvPath, *rulesPath, *month, *category, cols); err != nil {
		fmt.Fprintln(os.Stderr, "spendlite-report:", err)
		os.Exit(1)
	}
}

func run(csvPath, rulesPath, month, category string, cols core.ColumnMap) error {
	raw, err := os.ReadFile(csvPath)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}
	if !utf8.Valid(raw) {
		raw, err = charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return fmt.Errorf("decode csv: %w", err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}

	ruleText := assets.DefaultRules
	if rulesPath != "" {
		b, err := os.ReadFile(rulesPath)
		if err != nil {
			return fmt.Errorf("read rules: %w", err)
		}
		ruleText = string(b)
	}

	txns := core.ImportRows(records, cols)
	core.Categorise(txns, core.ParseRules(ruleText))
	txns = core.FilterByMonth(txns, month)
	txns = core.FilterByCategory(txns, category)

	totals, grand := core.CategoryTotals(txns)
	fmt.Print(core.RenderReport(totals, grand))
	return nil
}
