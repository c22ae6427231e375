package core

// ColumnMap gives the 0-based cell positions of the fields a bank
// export is read from.
type ColumnMap struct {
	Date        int
	Amount      int
	Description int
}

// DefaultColumns matches the export layout this tool was built around:
// date first, amount second, description in the tenth column.
var DefaultColumns = ColumnMap{Date: 0, Amount: 1, Description: 9}

// Rows shorter than this are dropped outright.
const minImportCells = 10

// ImportRows converts raw tabular cells into transactions. If the
// amount cell of the first row does not parse to a finite nonzero
// number the row is treated as a header and skipped. Every remaining
// row is kept only when it has at least ten cells, its amount is finite
// and nonzero, and at least one of date or description is non-empty.
// Rows failing any of these checks are dropped without diagnostics.
//
// Cell text is carried into the transaction verbatim; in particular the
// raw date string is never rewritten.
func ImportRows(rows [][]string, cols ColumnMap) []Transaction {
	if len(rows) == 0 {
		return nil
	}
	start := 0
	if ParseAmount(cell(rows[0], cols.Amount)) == 0 {
		start = 1
	}
	var txns []Transaction
	for _, row := range rows[start:] {
		if len(row) < minImportCells {
			continue
		}
		amount := ParseAmount(cell(row, cols.Amount))
		if amount == 0 {
			continue
		}
		date := cell(row, cols.Date)
		desc := cell(row, cols.Description)
		if date == "" && desc == "" {
			continue
		}
		txns = append(txns, Transaction{Date: date, Amount: amount, Description: desc})
	}
	return txns
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
