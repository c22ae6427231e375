package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Rule maps a lower-case keyword to an upper-case category. Rules are
// an ordered sequence; the first match wins.
type Rule struct {
	Keyword  string
	Category string
}

const (
	petrolCategory = "PETROL"
	coffeeCategory = "COFFEE"
)

// Charges at or below this are assumed to be the coffee counter, not
// the pump.
var microPurchaseLimit = decimal.NewFromInt(2)

// ParseRules reads the line-oriented rule text into an ordered rule
// list. Blank lines and lines starting with '#' are skipped. Each
// remaining line splits on the literal "=>": the first part becomes the
// lower-cased keyword, the second the upper-cased category, and any
// further parts are ignored. Lines yielding an empty keyword or
// category are discarded rather than reported.
func ParseRules(text string) []Rule {
	var rules []Rule
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		parts := strings.Split(line, "=>")
		if len(parts) < 2 {
			continue
		}
		keyword := strings.ToLower(strings.TrimSpace(parts[0]))
		category := strings.ToUpper(strings.TrimSpace(parts[1]))
		if keyword == "" || category == "" {
			continue
		}
		rules = append(rules, Rule{Keyword: keyword, Category: category})
	}
	return rules
}

// Word characters for keyword matching and extraction. '&', '.' and '_'
// do not delimit words, so "cafe.com" and "h&m" hold together as single
// words in a description.
func isWordChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '&' || b == '.' || b == '_':
		return true
	}
	return false
}

// Matches reports whether every whitespace-delimited token of keyword
// occurs in description at the start of a word, case-insensitively. A
// token occurrence counts only when preceded by a non-word character or
// the string edge: "cafe" matches "CAFE.COM" but not "ecafe". A keyword
// with no tokens matches nothing.
func Matches(description, keyword string) bool {
	tokens := strings.Fields(strings.ToLower(keyword))
	if len(tokens) == 0 {
		return false
	}
	desc := strings.ToLower(description)
	for _, tok := range tokens {
		if !hasWordStart(desc, tok) {
			return false
		}
	}
	return true
}

func hasWordStart(desc, token string) bool {
	for from := 0; ; {
		i := strings.Index(desc[from:], token)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 || !isWordChar(desc[i-1]) {
			return true
		}
		from = i + 1
	}
}

// Categorise assigns each transaction the category of the first rule
// whose keyword matches its description. Transactions with no matching
// rule keep an empty category; EffectiveCategory surfaces those as
// Uncategorised without storing the label.
func Categorise(txns []Transaction, rules []Rule) {
	for i := range txns {
		txns[i].Category = categoryFor(txns[i], rules)
	}
}

func categoryFor(t Transaction, rules []Rule) string {
	for _, r := range rules {
		if Matches(t.Description, r.Keyword) {
			return overrideCategory(r.Category, t.Amount)
		}
	}
	return ""
}

// overrideCategory reroutes micro-transactions matched as PETROL to
// COFFEE. This is the only post-match adjustment; it applies to the
// absolute amount, so small credits are rerouted too.
func overrideCategory(category string, amount float64) string {
	if strings.EqualFold(category, petrolCategory) &&
		decimal.NewFromFloat(amount).Abs().LessThanOrEqual(microPurchaseLimit) {
		return coffeeCategory
	}
	return category
}

// UpsertRule returns rule text with keyword mapped to category. When a
// non-comment line already parses to the same keyword
// (case-insensitively) that whole line is replaced with
// "KEYWORD => CATEGORY"; otherwise such a line is appended. Every other
// line, including comments, blank lines and their order, is preserved
// verbatim. An empty keyword or category leaves the text untouched and
// reports false. The operation is a fixed point: repeating it with the
// same arguments changes nothing further.
func UpsertRule(ruleText, keyword, category string) (string, bool) {
	kw := strings.TrimSpace(keyword)
	cat := strings.TrimSpace(category)
	if kw == "" || cat == "" {
		return ruleText, false
	}
	newLine := strings.ToUpper(kw) + " => " + strings.ToUpper(cat)
	target := strings.ToLower(kw)

	lines := strings.Split(ruleText, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		parts := strings.Split(line, "=>")
		if len(parts) < 2 {
			continue
		}
		if strings.ToLower(strings.TrimSpace(parts[0])) == target {
			lines[i] = newLine
			return strings.Join(lines, "\n"), true
		}
	}

	out := ruleText
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + newLine, true
}
