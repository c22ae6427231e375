// Package core implements the categorization engine: transaction import,
// date and amount normalization, keyword rules, and category aggregation.
// Everything in this package is a pure transformation over in-memory data.
// Malformed input never produces an error or a panic; it degrades to
// sentinel values (zero amount, empty keyword, unparseable date) and
// invalid rows are dropped silently.
package core

// Uncategorised is the label applied at display and aggregation time to
// transactions without a stored category. It is never written back to a
// transaction unless a user explicitly assigns it.
const Uncategorised = "UNCATEGORISED"

// Transaction is one imported bank row.
type Transaction struct {
	// Date holds the raw date cell exactly as imported. The canonical
	// calendar date is derived on demand via ParseDate.
	Date string

	// Amount is signed: positive is a debit (money spent), negative a
	// credit. Zero-amount rows are excluded at import.
	Amount float64

	Description string

	// Category is upper-case when set. Empty means uncategorised.
	Category string
}

// EffectiveCategory returns the stored category, or Uncategorised when
// none is set.
func (t Transaction) EffectiveCategory() string {
	if t.Category == "" {
		return Uncategorised
	}
	return t.Category
}

// MonthKey returns the canonical YYYY-MM key for the transaction date,
// or "" when the date cannot be parsed.
func (t Transaction) MonthKey() string {
	d, ok := ParseDate(t.Date)
	if !ok {
		return ""
	}
	return d.MonthKey()
}
