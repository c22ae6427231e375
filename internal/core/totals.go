package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryTotal is one aggregation row.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Percent  float64
}

// CategoryTotals groups transactions by effective category and sums the
// signed amounts per group, so a category nets debits against credits.
// Rows come back sorted by descending total, ties by name, and the
// grand total equals the sum of every transaction amount. Percentages
// are row/grand*100, all zero when the grand total is zero.
func CategoryTotals(txns []Transaction) ([]CategoryTotal, decimal.Decimal) {
	sums := make(map[string]decimal.Decimal)
	grand := decimal.Zero
	for _, t := range txns {
		cat := strings.ToUpper(t.EffectiveCategory())
		amt := decimal.NewFromFloat(t.Amount)
		sums[cat] = sums[cat].Add(amt)
		grand = grand.Add(amt)
	}

	rows := make([]CategoryTotal, 0, len(sums))
	for cat, total := range sums {
		rows = append(rows, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Total.Equal(rows[j].Total) {
			return rows[i].Total.GreaterThan(rows[j].Total)
		}
		return rows[i].Category < rows[j].Category
	})

	if !grand.IsZero() {
		g := grand.InexactFloat64()
		for i := range rows {
			rows[i].Percent = rows[i].Total.InexactFloat64() / g * 100
		}
	}
	return rows, grand
}

// FilterByMonth keeps transactions whose canonical month key equals
// monthKey (YYYY-MM). Transactions with unparseable dates never match
// an active filter. An empty monthKey means no filter and returns the
// input unchanged.
func FilterByMonth(txns []Transaction, monthKey string) []Transaction {
	if monthKey == "" {
		return txns
	}
	var out []Transaction
	for _, t := range txns {
		if t.MonthKey() == monthKey {
			out = append(out, t)
		}
	}
	return out
}

// FilterByCategory keeps transactions whose effective category equals
// the given category, upper-cased. An empty category means no filter.
func FilterByCategory(txns []Transaction, category string) []Transaction {
	if category == "" {
		return txns
	}
	want := strings.ToUpper(category)
	var out []Transaction
	for _, t := range txns {
		if t.EffectiveCategory() == want {
			out = append(out, t)
		}
	}
	return out
}

// MonthKeys returns the distinct canonical month keys present in the
// set, newest first. Unparseable dates contribute nothing.
func MonthKeys(txns []Transaction) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, t := range txns {
		k := t.MonthKey()
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}
