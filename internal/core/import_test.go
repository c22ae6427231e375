package core

import "testing"

// row builds a ten-cell row with date, amount and description at the
// default column positions.
func row(date, amount, desc string) []string {
	r := make([]string, 10)
	r[DefaultColumns.Date] = date
	r[DefaultColumns.Amount] = amount
	r[DefaultColumns.Description] = desc
	return r
}

func TestImportRowsSkipsHeader(t *testing.T) {
	rows := [][]string{
		row("Date", "Amount", "Description"),
		row("01/02/2024", "12.50", "COLES"),
	}
	txns := ImportRows(rows, DefaultColumns)
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].Description != "COLES" || txns[0].Amount != 12.5 {
		t.Fatalf("unexpected transaction: %+v", txns[0])
	}
}

func TestImportRowsKeepsNumericFirstRow(t *testing.T) {
	rows := [][]string{
		row("01/02/2024", "12.50", "COLES"),
		row("02/02/2024", "3.00", "CAFE"),
	}
	txns := ImportRows(rows, DefaultColumns)
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txns))
	}
}

func TestImportRowsFiltering(t *testing.T) {
	cases := []struct {
		name string
		row  []string
		kept bool
	}{
		{"valid", row("01/02/2024", "10.00", "SHOP"), true},
		{"currency symbols", row("01/02/2024", "$1,234.56", "SHOP"), true},
		{"zero amount", row("01/02/2024", "0.00", "SHOP"), false},
		{"unparseable amount", row("01/02/2024", "n/a", "SHOP"), false},
		{"no date", row("", "10.00", "SHOP"), true},
		{"no description", row("01/02/2024", "10.00", ""), true},
		{"no date and no description", row("", "10.00", ""), false},
		{"short row", []string{"01/02/2024", "10.00"}, false},
		{"credit", row("01/02/2024", "-25.00", "REFUND"), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			// A header row keeps detection out of the way.
			rows := [][]string{row("Date", "Amount", "Description"), c.row}
			txns := ImportRows(rows, DefaultColumns)
			if kept := len(txns) == 1; kept != c.kept {
				t.Fatalf("kept = %v, want %v (txns %+v)", kept, c.kept, txns)
			}
		})
	}
}

func TestImportRowsAmountNormalized(t *testing.T) {
	rows := [][]string{
		row("Date", "Amount", "Description"),
		row("01/02/2024", "$1,234.56", "BIG SHOP"),
	}
	txns := ImportRows(rows, DefaultColumns)
	if len(txns) != 1 || txns[0].Amount != 1234.56 {
		t.Fatalf("got %+v", txns)
	}
	// The raw date cell travels through untouched.
	if txns[0].Date != "01/02/2024" {
		t.Fatalf("date mutated: %q", txns[0].Date)
	}
}

func TestImportRowsCustomColumns(t *testing.T) {
	cols := ColumnMap{Date: 2, Amount: 5, Description: 0}
	r := make([]string, 10)
	r[2] = "01/02/2024"
	r[5] = "9.99"
	r[0] = "KIOSK"
	txns := ImportRows([][]string{make([]string, 10), r}, cols)
	if len(txns) != 1 || txns[0].Description != "KIOSK" || txns[0].Amount != 9.99 {
		t.Fatalf("got %+v", txns)
	}
}

func TestImportRowsEmpty(t *testing.T) {
	if txns := ImportRows(nil, DefaultColumns); txns != nil {
		t.Fatalf("got %+v, want nil", txns)
	}
	// A lone header row yields no transactions.
	if txns := ImportRows([][]string{row("Date", "Amount", "Desc")}, DefaultColumns); len(txns) != 0 {
		t.Fatalf("got %+v, want none", txns)
	}
}
