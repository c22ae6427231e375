package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	amountJunk    = regexp.MustCompile(`[^0-9.,-]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	wordBreaks    = strings.NewReplacer("_", " ", "-", " ")
)

// ParseAmount extracts a signed decimal amount from free-form text such
// as "$1,234.56" or "AUD -12.00". Every character that is not a digit,
// minus sign, comma or period is stripped, commas are removed as
// thousands separators, and whatever remains is parsed as a number.
// Returns 0 when no finite amount can be recovered; it never fails.
func ParseAmount(raw string) float64 {
	cleaned := amountJunk.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ToTitleCase lowers the input, turns underscores and dashes into
// spaces, collapses whitespace, trims, and capitalizes the first letter
// of each remaining word.
func ToTitleCase(raw string) string {
	s := wordBreaks.Replace(strings.ToLower(raw))
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	if s == "" {
		return ""
	}
	words := strings.Split(s, " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// EscapeForDisplay escapes the five HTML metacharacters. The ampersand
// is replaced first so already-escaped entities are not double-escaped.
func EscapeForDisplay(raw string) string {
	s := strings.ReplaceAll(raw, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}
