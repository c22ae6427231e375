package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	minCategoryWidth = 8
	amountWidth      = 12
	percentWidth     = 6
)

// RenderReport lays the aggregation out as a plain-text table: a header
// line, an '=' underline the same length, one row per category padded
// to the widest category name, a blank line, and a TOTAL row whose
// percent cell reads "100%". Amounts print with two decimals.
func RenderReport(rows []CategoryTotal, grand decimal.Decimal) string {
	nameWidth := minCategoryWidth
	for _, r := range rows {
		if len(r.Category) > nameWidth {
			nameWidth = len(r.Category)
		}
	}

	var b strings.Builder
	header := fmt.Sprintf("%-*s %*s %*s", nameWidth, "Category", amountWidth, "Amount", percentWidth, "%")
	b.WriteString(header)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("=", len(header)))
	b.WriteByte('\n')

	for _, r := range rows {
		b.WriteString(fmt.Sprintf("%-*s %*s %*s\n",
			nameWidth, r.Category,
			amountWidth, r.Total.StringFixed(2),
			percentWidth, formatPercent(r.Percent)))
	}

	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("%-*s %*s %*s\n",
		nameWidth, "TOTAL",
		amountWidth, grand.StringFixed(2),
		percentWidth, "100%"))
	return b.String()
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}
